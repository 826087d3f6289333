package handlers

import (
	"context"
	"time"

	"github.com/fasthttp/router"
	"github.com/nimasrn/campaign-mailer/internal/apperr"
	"github.com/nimasrn/campaign-mailer/internal/model"
	xhttp "github.com/nimasrn/campaign-mailer/pkg/http"
)

type TrackingService interface {
	Campaign(ctx context.Context, campaignID int64) (*model.CampaignTracking, error)
	Today(ctx context.Context, campaignID int64) (*model.TodayTracking, error)
	StatusUpdates(ctx context.Context, campaignID int64, since *time.Time) (*model.StatusUpdates, error)
	Overview(ctx context.Context, campaignID int64) ([]*model.ScheduleOverview, error)
}

type TrackingHandler struct {
	svc TrackingService
}

func RegisterTrackingRoutes(e *router.Group, h *TrackingHandler) {
	e.GET("/campaigns/{id}/tracking", h.CampaignTracking)
	e.GET("/campaigns/{id}/tracking/today", h.TodayTracking)
	e.GET("/campaigns/{id}/tracking/updates", h.StatusUpdates)
	e.GET("/campaigns/{id}/tracking/overview", h.Overview)
}

func NewTrackingHandler(svc TrackingService) *TrackingHandler {
	return &TrackingHandler{svc: svc}
}

func (h *TrackingHandler) CampaignTracking(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	res, err := h.svc.Campaign(ctx, id)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", res)
}

func (h *TrackingHandler) TodayTracking(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	res, err := h.svc.Today(ctx, id)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", res)
}

// StatusUpdates returns entries changed after ?since=, an RFC3339 instant.
// Clients pass back the returned timestamp on the next poll.
func (h *TrackingHandler) StatusUpdates(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}

	var since *time.Time
	if v := query(ctx, "since"); v != "" {
		t, perr := time.Parse(time.RFC3339, v)
		if perr != nil {
			writeFailure(ctx, apperr.Validation("since must be an RFC3339 timestamp"))
			return
		}
		since = &t
	}

	res, err := h.svc.StatusUpdates(ctx, id, since)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", res)
}

func (h *TrackingHandler) Overview(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	res, err := h.svc.Overview(ctx, id)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", res)
}
