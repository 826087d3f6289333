package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/campaign-mailer/internal/model"
	xhttp "github.com/nimasrn/campaign-mailer/pkg/http"
)

type ScheduleService interface {
	Create(ctx context.Context, req model.ScheduleCreateRequest) (*model.ScheduleResult, error)
	Get(ctx context.Context, id int64) (*model.Schedule, error)
	ListByCampaign(ctx context.Context, campaignID int64) ([]*model.Schedule, error)
	List(ctx context.Context, f model.ScheduleFilter) ([]*model.Schedule, error)
	UpdateStatus(ctx context.Context, id int64, req model.ScheduleStatusRequest) (*model.Schedule, error)
	Cancel(ctx context.Context, id int64) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	DeleteQueue(ctx context.Context, id int64) (int64, error)
	Today() model.Date
}

type ScheduleHandler struct {
	svc ScheduleService
}

func RegisterScheduleRoutes(e *router.Group, h *ScheduleHandler) {
	e.POST("/schedules", h.CreateSchedule)
	e.GET("/schedules", h.ListSchedules)
	e.GET("/schedules/{id}", h.GetSchedule)
	e.PATCH("/schedules/{id}/status", h.UpdateScheduleStatus)
	e.PATCH("/schedules/{id}/cancel", h.CancelSchedule)
	e.DELETE("/schedules/{id}", h.DeleteSchedule)
	e.DELETE("/schedules/{id}/queue", h.DeleteScheduleQueue)
	e.GET("/campaigns/{id}/schedules", h.ListCampaignSchedules)
}

func NewScheduleHandler(svc ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{svc: svc}
}

type removedResponse struct {
	ID      int64 `json:"id"`
	Removed int64 `json:"entries_removed"`
}

func (h *ScheduleHandler) CreateSchedule(ctx *xhttp.RequestCtx) {
	var req model.ScheduleCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeFailure(ctx, err)
		return
	}
	res, err := h.svc.Create(ctx, req)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusCreated, "schedule created", res)
}

// ListSchedules filters by status and date; date=today resolves to the
// server's calendar day.
func (h *ScheduleHandler) ListSchedules(ctx *xhttp.RequestCtx) {
	var f model.ScheduleFilter
	if v := query(ctx, "status"); v != "" {
		status := model.ScheduleStatus(v)
		f.Status = &status
	}
	if query(ctx, "date") == "today" {
		today := h.svc.Today()
		f.Date = &today
	} else {
		d, err := queryDate(ctx, "date")
		if err != nil {
			writeFailure(ctx, err)
			return
		}
		f.Date = d
	}

	list, err := h.svc.List(ctx, f)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", list)
}

func (h *ScheduleHandler) GetSchedule(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	s, err := h.svc.Get(ctx, id)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", s)
}

func (h *ScheduleHandler) ListCampaignSchedules(ctx *xhttp.RequestCtx) {
	campaignID, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	list, err := h.svc.ListByCampaign(ctx, campaignID)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", list)
}

func (h *ScheduleHandler) UpdateScheduleStatus(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	var req model.ScheduleStatusRequest
	if err = readJSON(ctx, &req); err != nil {
		writeFailure(ctx, err)
		return
	}
	s, err := h.svc.UpdateStatus(ctx, id, req)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "schedule status updated", s)
}

func (h *ScheduleHandler) CancelSchedule(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	removed, err := h.svc.Cancel(ctx, id)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "schedule cancelled", removedResponse{ID: id, Removed: removed})
}

func (h *ScheduleHandler) DeleteSchedule(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	removed, err := h.svc.Delete(ctx, id)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "schedule deleted", removedResponse{ID: id, Removed: removed})
}

func (h *ScheduleHandler) DeleteScheduleQueue(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	removed, err := h.svc.DeleteQueue(ctx, id)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "schedule queue cleared", removedResponse{ID: id, Removed: removed})
}
