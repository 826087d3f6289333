package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nimasrn/campaign-mailer/internal/apperr"
	gateway "github.com/nimasrn/campaign-mailer/internal/gateways"
	"github.com/nimasrn/campaign-mailer/internal/services"
	xhttp "github.com/nimasrn/campaign-mailer/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWorkflowService struct {
	mock.Mock
}

func (m *MockWorkflowService) Trigger(ctx context.Context, payload []byte) (*gateway.Response, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Response), args.Error(1)
}

func (m *MockWorkflowService) Test(ctx context.Context) (*gateway.Response, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Response), args.Error(1)
}

func (m *MockWorkflowService) Status() *services.WorkflowStatus {
	return m.Called().Get(0).(*services.WorkflowStatus)
}

func TestWorkflowHandler_TriggerCampaign(t *testing.T) {
	t.Run("upstream json is embedded", func(t *testing.T) {
		svc := new(MockWorkflowService)
		handler := NewWorkflowHandler(svc)
		svc.On("Trigger", mock.Anything, []byte(`{"campaign_id":1}`)).
			Return(&gateway.Response{StatusCode: 200, Body: []byte(`{"executionId":"e1"}`)}, nil)

		ctx := setupTestContext("POST", "/trigger-campaign", []byte(`{"campaign_id":1}`))
		handler.TriggerCampaign(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		env := decodeEnvelope(t, ctx)
		assert.Equal(t, "Campaign workflow triggered successfully", env.Message)
		assert.JSONEq(t, `{"executionId":"e1"}`, string(env.Data))
	})

	t.Run("upstream failure", func(t *testing.T) {
		svc := new(MockWorkflowService)
		handler := NewWorkflowHandler(svc)
		svc.On("Trigger", mock.Anything, mock.Anything).
			Return(nil, apperr.Upstream("failed to trigger workflow", 500, []byte(`{"message":"boom"}`), errors.New("status 500")))

		ctx := setupTestContext("POST", "/trigger-campaign", nil)
		handler.TriggerCampaign(ctx)

		assert.Equal(t, xhttp.StatusBadGateway, ctx.Response.StatusCode())
		var detail struct {
			StatusCode int             `json:"status_code"`
			Response   json.RawMessage `json:"response"`
		}
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, ctx).Data, &detail))
		assert.Equal(t, 500, detail.StatusCode)
		assert.JSONEq(t, `{"message":"boom"}`, string(detail.Response))
	})
}

func TestWorkflowHandler_CampaignStatus(t *testing.T) {
	svc := new(MockWorkflowService)
	handler := NewWorkflowHandler(svc)
	svc.On("Status").Return(&services.WorkflowStatus{Status: "backend-online", WebhookConfigured: true, Timestamp: time.Now()})

	ctx := setupTestContext("GET", "/campaign-status", nil)
	handler.CampaignStatus(ctx)

	var st services.WorkflowStatus
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, ctx).Data, &st))
	assert.Equal(t, "backend-online", st.Status)
	assert.True(t, st.WebhookConfigured)
}
