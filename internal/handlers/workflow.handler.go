package handlers

import (
	"context"

	"github.com/fasthttp/router"
	gateway "github.com/nimasrn/campaign-mailer/internal/gateways"
	"github.com/nimasrn/campaign-mailer/internal/services"
	xhttp "github.com/nimasrn/campaign-mailer/pkg/http"
)

type WorkflowService interface {
	Trigger(ctx context.Context, payload []byte) (*gateway.Response, error)
	Test(ctx context.Context) (*gateway.Response, error)
	Status() *services.WorkflowStatus
}

type WorkflowHandler struct {
	svc WorkflowService
}

func RegisterWorkflowRoutes(e *router.Group, h *WorkflowHandler) {
	e.POST("/trigger-campaign", h.TriggerCampaign)
	e.POST("/test-workflow", h.TestWorkflow)
	e.GET("/campaign-status", h.CampaignStatus)
}

func NewWorkflowHandler(svc WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{svc: svc}
}

type testWorkflowResponse struct {
	StatusCode int `json:"status_code"`
	Response   any `json:"response,omitempty"`
}

func (h *WorkflowHandler) TriggerCampaign(ctx *xhttp.RequestCtx) {
	resp, err := h.svc.Trigger(ctx, ctx.PostBody())
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "Campaign workflow triggered successfully", rawBody(resp.Body))
}

func (h *WorkflowHandler) TestWorkflow(ctx *xhttp.RequestCtx) {
	resp, err := h.svc.Test(ctx)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "Workflow engine reachable", testWorkflowResponse{
		StatusCode: resp.StatusCode,
		Response:   rawBody(resp.Body),
	})
}

func (h *WorkflowHandler) CampaignStatus(ctx *xhttp.RequestCtx) {
	writeSuccess(ctx, xhttp.StatusOK, "", h.svc.Status())
}
