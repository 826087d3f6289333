package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/campaign-mailer/internal/model"
	xhttp "github.com/nimasrn/campaign-mailer/pkg/http"
)

// DeliveryService is the queue surface polled by the workflow engine.
type DeliveryService interface {
	Pending(ctx context.Context, limit int) ([]*model.QueueEntry, error)
	Retryable(ctx context.Context, limit int) ([]*model.QueueEntry, error)
	Get(ctx context.Context, id int64) (*model.QueueEntry, error)
	ListBySchedule(ctx context.Context, scheduleID int64, status *model.QueueStatus) ([]*model.QueueEntry, error)
	ListByCampaign(ctx context.Context, campaignID int64, status *model.QueueStatus) ([]*model.QueueEntry, error)
	ScheduleStats(ctx context.Context, scheduleID int64) (*model.QueueStats, error)
	CampaignStats(ctx context.Context, campaignID int64) (*model.QueueStats, error)
	Events(ctx context.Context, id int64) ([]*model.DeliveryEvent, error)
	MarkSent(ctx context.Context, id int64, req model.MarkSentRequest) (*model.QueueEntry, error)
	MarkFailed(ctx context.Context, id int64, req model.MarkFailedRequest) (*model.QueueEntry, error)
	IncrementRetry(ctx context.Context, id int64) (*model.QueueEntry, error)
	UpdateStatus(ctx context.Context, id int64, req model.QueueStatusRequest) (*model.QueueEntry, error)
	Delete(ctx context.Context, id int64) error
}

type QueueHandler struct {
	svc DeliveryService
}

func RegisterQueueRoutes(e *router.Group, h *QueueHandler) {
	e.GET("/pending-ready", h.PendingReady)
	e.GET("/retryable", h.Retryable)
	e.GET("/queue/{id}", h.GetEntry)
	e.DELETE("/queue/{id}", h.DeleteEntry)
	e.GET("/queue/{id}/events", h.EntryEvents)
	e.PATCH("/queue/{id}/sent", h.MarkSent)
	e.PATCH("/queue/{id}/failed", h.MarkFailed)
	e.PATCH("/queue/{id}/retry", h.IncrementRetry)
	e.PATCH("/queue/{id}/status", h.UpdateStatus)
	e.GET("/schedules/{id}/queue", h.ScheduleQueue)
	e.GET("/schedules/{id}/stats", h.ScheduleStats)
	e.GET("/campaigns/{id}/queue", h.CampaignQueue)
	e.GET("/campaigns/{id}/stats", h.CampaignStats)
}

func NewQueueHandler(svc DeliveryService) *QueueHandler {
	return &QueueHandler{svc: svc}
}

type emailsResponse struct {
	Emails []*model.QueueEntry `json:"emails"`
	Count  int                 `json:"count"`
}

func newEmailsResponse(list []*model.QueueEntry) emailsResponse {
	if list == nil {
		list = make([]*model.QueueEntry, 0)
	}
	return emailsResponse{Emails: list, Count: len(list)}
}

// PendingReady is the workflow engine's polling endpoint.
func (h *QueueHandler) PendingReady(ctx *xhttp.RequestCtx) {
	limit, err := queryInt(ctx, "limit", 0)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	list, err := h.svc.Pending(ctx, limit)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", newEmailsResponse(list))
}

func (h *QueueHandler) Retryable(ctx *xhttp.RequestCtx) {
	limit, err := queryInt(ctx, "limit", 0)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	list, err := h.svc.Retryable(ctx, limit)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", newEmailsResponse(list))
}

func (h *QueueHandler) GetEntry(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	entry, err := h.svc.Get(ctx, id)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", entry)
}

func (h *QueueHandler) DeleteEntry(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	if err = h.svc.Delete(ctx, id); err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "queue entry deleted", nil)
}

func (h *QueueHandler) EntryEvents(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	events, err := h.svc.Events(ctx, id)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	if events == nil {
		events = make([]*model.DeliveryEvent, 0)
	}
	writeSuccess(ctx, xhttp.StatusOK, "", events)
}

// MarkSent takes an optional {message_id} body.
func (h *QueueHandler) MarkSent(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	var req model.MarkSentRequest
	if len(ctx.PostBody()) > 0 {
		if err = readJSON(ctx, &req); err != nil {
			writeFailure(ctx, err)
			return
		}
	}
	entry, err := h.svc.MarkSent(ctx, id, req)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "email marked as sent", entry)
}

func (h *QueueHandler) MarkFailed(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	var req model.MarkFailedRequest
	if err = readJSON(ctx, &req); err != nil {
		writeFailure(ctx, err)
		return
	}
	entry, err := h.svc.MarkFailed(ctx, id, req)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "email marked as failed", entry)
}

func (h *QueueHandler) IncrementRetry(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	entry, err := h.svc.IncrementRetry(ctx, id)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "retry count incremented", entry)
}

func (h *QueueHandler) UpdateStatus(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	var req model.QueueStatusRequest
	if err = readJSON(ctx, &req); err != nil {
		writeFailure(ctx, err)
		return
	}
	entry, err := h.svc.UpdateStatus(ctx, id, req)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "status updated", entry)
}

func (h *QueueHandler) ScheduleQueue(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	list, err := h.svc.ListBySchedule(ctx, id, queryQueueStatus(ctx))
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", newEmailsResponse(list))
}

func (h *QueueHandler) ScheduleStats(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	stats, err := h.svc.ScheduleStats(ctx, id)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", stats)
}

func (h *QueueHandler) CampaignQueue(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	list, err := h.svc.ListByCampaign(ctx, id, queryQueueStatus(ctx))
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", newEmailsResponse(list))
}

func (h *QueueHandler) CampaignStats(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	stats, err := h.svc.CampaignStats(ctx, id)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", stats)
}
