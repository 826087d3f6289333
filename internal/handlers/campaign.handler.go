package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/campaign-mailer/internal/model"
	xhttp "github.com/nimasrn/campaign-mailer/pkg/http"
)

type CampaignService interface {
	Create(ctx context.Context, req model.CampaignCreateRequest) (*model.Campaign, error)
	Get(ctx context.Context, id int64) (*model.Campaign, error)
	List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, error)
	Update(ctx context.Context, id int64, req model.CampaignUpdateRequest) (*model.Campaign, error)
	UpdateStatus(ctx context.Context, id int64, req model.CampaignStatusRequest) (*model.Campaign, error)
	Delete(ctx context.Context, id int64) error
}

type CampaignHandler struct {
	svc CampaignService
}

func RegisterCampaignRoutes(e *router.Group, h *CampaignHandler) {
	e.POST("/campaigns", h.CreateCampaign)
	e.GET("/campaigns", h.ListCampaigns)
	e.GET("/campaigns/{id}", h.GetCampaign)
	e.PUT("/campaigns/{id}", h.UpdateCampaign)
	e.PATCH("/campaigns/{id}/status", h.UpdateCampaignStatus)
	e.DELETE("/campaigns/{id}", h.DeleteCampaign)
}

func NewCampaignHandler(svc CampaignService) *CampaignHandler {
	return &CampaignHandler{svc: svc}
}

func (h *CampaignHandler) CreateCampaign(ctx *xhttp.RequestCtx) {
	var req model.CampaignCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeFailure(ctx, err)
		return
	}
	c, err := h.svc.Create(ctx, req)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusCreated, "campaign created", c)
}

// ListCampaigns filters by status and by windows overlapping
// start_date..end_date.
func (h *CampaignHandler) ListCampaigns(ctx *xhttp.RequestCtx) {
	var (
		f   model.CampaignFilter
		err error
	)
	if v := query(ctx, "status"); v != "" {
		status := model.CampaignStatus(v)
		f.Status = &status
	}
	if f.From, err = queryDate(ctx, "start_date"); err != nil {
		writeFailure(ctx, err)
		return
	}
	if f.To, err = queryDate(ctx, "end_date"); err != nil {
		writeFailure(ctx, err)
		return
	}

	list, err := h.svc.List(ctx, f)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", list)
}

func (h *CampaignHandler) GetCampaign(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	c, err := h.svc.Get(ctx, id)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", c)
}

func (h *CampaignHandler) UpdateCampaign(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	var req model.CampaignUpdateRequest
	if err = readJSON(ctx, &req); err != nil {
		writeFailure(ctx, err)
		return
	}
	c, err := h.svc.Update(ctx, id, req)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "campaign updated", c)
}

func (h *CampaignHandler) UpdateCampaignStatus(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	var req model.CampaignStatusRequest
	if err = readJSON(ctx, &req); err != nil {
		writeFailure(ctx, err)
		return
	}
	c, err := h.svc.UpdateStatus(ctx, id, req)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "campaign status updated", c)
}

func (h *CampaignHandler) DeleteCampaign(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	if err = h.svc.Delete(ctx, id); err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "campaign deleted", nil)
}
