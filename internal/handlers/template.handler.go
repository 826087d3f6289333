package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/campaign-mailer/internal/model"
	xhttp "github.com/nimasrn/campaign-mailer/pkg/http"
)

type TemplateService interface {
	Create(ctx context.Context, req model.TemplateRequest) (*model.Template, error)
	Get(ctx context.Context, id int64) (*model.Template, error)
	List(ctx context.Context) ([]*model.Template, error)
	Update(ctx context.Context, id int64, req model.TemplateRequest) (*model.Template, error)
	Delete(ctx context.Context, id int64) error
}

type TemplateHandler struct {
	svc TemplateService
}

func RegisterTemplateRoutes(e *router.Group, h *TemplateHandler) {
	e.POST("/templates", h.CreateTemplate)
	e.GET("/templates", h.ListTemplates)
	e.GET("/templates/{id}", h.GetTemplate)
	e.PUT("/templates/{id}", h.UpdateTemplate)
	e.DELETE("/templates/{id}", h.DeleteTemplate)
}

func NewTemplateHandler(svc TemplateService) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

func (h *TemplateHandler) CreateTemplate(ctx *xhttp.RequestCtx) {
	var req model.TemplateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeFailure(ctx, err)
		return
	}
	t, err := h.svc.Create(ctx, req)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusCreated, "template created", t)
}

func (h *TemplateHandler) ListTemplates(ctx *xhttp.RequestCtx) {
	list, err := h.svc.List(ctx)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", list)
}

func (h *TemplateHandler) GetTemplate(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	t, err := h.svc.Get(ctx, id)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", t)
}

func (h *TemplateHandler) UpdateTemplate(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	var req model.TemplateRequest
	if err = readJSON(ctx, &req); err != nil {
		writeFailure(ctx, err)
		return
	}
	t, err := h.svc.Update(ctx, id, req)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "template updated", t)
}

func (h *TemplateHandler) DeleteTemplate(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	if err = h.svc.Delete(ctx, id); err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "template deleted", nil)
}
