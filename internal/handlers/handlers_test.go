package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nimasrn/campaign-mailer/internal/model"
	xhttp "github.com/nimasrn/campaign-mailer/pkg/http"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeEnvelope(t *testing.T, ctx *xhttp.RequestCtx) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &env))
	return env
}

type MockTemplateService struct {
	mock.Mock
}

func (m *MockTemplateService) Create(ctx context.Context, req model.TemplateRequest) (*model.Template, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (m *MockTemplateService) Get(ctx context.Context, id int64) (*model.Template, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (m *MockTemplateService) List(ctx context.Context) ([]*model.Template, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Template), args.Error(1)
}

func (m *MockTemplateService) Update(ctx context.Context, id int64, req model.TemplateRequest) (*model.Template, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (m *MockTemplateService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockDeliveryService struct {
	mock.Mock
}

func (m *MockDeliveryService) entries(args mock.Arguments) ([]*model.QueueEntry, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.QueueEntry), args.Error(1)
}

func (m *MockDeliveryService) entry(args mock.Arguments) (*model.QueueEntry, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QueueEntry), args.Error(1)
}

func (m *MockDeliveryService) stats(args mock.Arguments) (*model.QueueStats, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QueueStats), args.Error(1)
}

func (m *MockDeliveryService) Pending(ctx context.Context, limit int) ([]*model.QueueEntry, error) {
	return m.entries(m.Called(ctx, limit))
}

func (m *MockDeliveryService) Retryable(ctx context.Context, limit int) ([]*model.QueueEntry, error) {
	return m.entries(m.Called(ctx, limit))
}

func (m *MockDeliveryService) Get(ctx context.Context, id int64) (*model.QueueEntry, error) {
	return m.entry(m.Called(ctx, id))
}

func (m *MockDeliveryService) ListBySchedule(ctx context.Context, scheduleID int64, status *model.QueueStatus) ([]*model.QueueEntry, error) {
	return m.entries(m.Called(ctx, scheduleID, status))
}

func (m *MockDeliveryService) ListByCampaign(ctx context.Context, campaignID int64, status *model.QueueStatus) ([]*model.QueueEntry, error) {
	return m.entries(m.Called(ctx, campaignID, status))
}

func (m *MockDeliveryService) ScheduleStats(ctx context.Context, scheduleID int64) (*model.QueueStats, error) {
	return m.stats(m.Called(ctx, scheduleID))
}

func (m *MockDeliveryService) CampaignStats(ctx context.Context, campaignID int64) (*model.QueueStats, error) {
	return m.stats(m.Called(ctx, campaignID))
}

func (m *MockDeliveryService) Events(ctx context.Context, id int64) ([]*model.DeliveryEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.DeliveryEvent), args.Error(1)
}

func (m *MockDeliveryService) MarkSent(ctx context.Context, id int64, req model.MarkSentRequest) (*model.QueueEntry, error) {
	return m.entry(m.Called(ctx, id, req))
}

func (m *MockDeliveryService) MarkFailed(ctx context.Context, id int64, req model.MarkFailedRequest) (*model.QueueEntry, error) {
	return m.entry(m.Called(ctx, id, req))
}

func (m *MockDeliveryService) IncrementRetry(ctx context.Context, id int64) (*model.QueueEntry, error) {
	return m.entry(m.Called(ctx, id))
}

func (m *MockDeliveryService) UpdateStatus(ctx context.Context, id int64, req model.QueueStatusRequest) (*model.QueueEntry, error) {
	return m.entry(m.Called(ctx, id, req))
}

func (m *MockDeliveryService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockScheduleService struct {
	mock.Mock
}

func (m *MockScheduleService) schedule(args mock.Arguments) (*model.Schedule, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}

func (m *MockScheduleService) schedules(args mock.Arguments) ([]*model.Schedule, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Schedule), args.Error(1)
}

func (m *MockScheduleService) Create(ctx context.Context, req model.ScheduleCreateRequest) (*model.ScheduleResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScheduleResult), args.Error(1)
}

func (m *MockScheduleService) Get(ctx context.Context, id int64) (*model.Schedule, error) {
	return m.schedule(m.Called(ctx, id))
}

func (m *MockScheduleService) ListByCampaign(ctx context.Context, campaignID int64) ([]*model.Schedule, error) {
	return m.schedules(m.Called(ctx, campaignID))
}

func (m *MockScheduleService) List(ctx context.Context, f model.ScheduleFilter) ([]*model.Schedule, error) {
	return m.schedules(m.Called(ctx, f))
}

func (m *MockScheduleService) UpdateStatus(ctx context.Context, id int64, req model.ScheduleStatusRequest) (*model.Schedule, error) {
	return m.schedule(m.Called(ctx, id, req))
}

func (m *MockScheduleService) Cancel(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockScheduleService) Delete(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockScheduleService) DeleteQueue(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockScheduleService) Today() model.Date {
	return m.Called().Get(0).(model.Date)
}
