package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nimasrn/campaign-mailer/internal/apperr"
	gateway "github.com/nimasrn/campaign-mailer/internal/gateways"
)

type WorkflowGateway interface {
	Configured() bool
	Trigger(ctx context.Context, body []byte) (*gateway.Response, error)
	Test(ctx context.Context, body []byte) (*gateway.Response, error)
}

// WorkflowStatus reports whether the backend can reach a workflow engine.
type WorkflowStatus struct {
	Status            string    `json:"status"`
	WebhookConfigured bool      `json:"webhook_configured"`
	Timestamp         time.Time `json:"timestamp"`
}

// WorkflowService proxies calls to the external workflow engine.
type WorkflowService struct {
	gateway WorkflowGateway
	source  string
	now     func() time.Time
}

func NewWorkflowService(gw WorkflowGateway, source string) *WorkflowService {
	return &WorkflowService{gateway: gw, source: source, now: time.Now}
}

// Trigger forwards the payload and returns the engine's answer.
func (s *WorkflowService) Trigger(ctx context.Context, payload []byte) (*gateway.Response, error) {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	if !json.Valid(payload) {
		return nil, apperr.Validation("request body must be valid JSON")
	}

	resp, err := s.gateway.Trigger(ctx, payload)
	if err != nil {
		return nil, mapGatewayErr(err, "failed to trigger workflow")
	}
	return resp, nil
}

// Test sends a probe payload to check the webhook is reachable.
func (s *WorkflowService) Test(ctx context.Context) (*gateway.Response, error) {
	payload, err := json.Marshal(map[string]string{
		"action":    "test",
		"source":    s.source,
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, apperr.Internal("failed to build test payload", err)
	}

	resp, err := s.gateway.Test(ctx, payload)
	if err != nil {
		return nil, mapGatewayErr(err, "failed to connect to workflow engine")
	}
	return resp, nil
}

func (s *WorkflowService) Status() *WorkflowStatus {
	return &WorkflowStatus{
		Status:            "backend-online",
		WebhookConfigured: s.gateway.Configured(),
		Timestamp:         s.now().UTC(),
	}
}

func mapGatewayErr(err error, msg string) error {
	var upstream *gateway.UpstreamError
	switch {
	case errors.Is(err, gateway.ErrNotConfigured):
		return apperr.Dependency(err.Error(), err)
	case errors.As(err, &upstream):
		return apperr.Upstream(msg, upstream.StatusCode, upstream.Body, err)
	default:
		return apperr.Upstream(msg, 0, nil, err)
	}
}
