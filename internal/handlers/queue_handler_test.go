package handlers

import (
	"encoding/json"
	"testing"

	"github.com/nimasrn/campaign-mailer/internal/apperr"
	"github.com/nimasrn/campaign-mailer/internal/model"
	xhttp "github.com/nimasrn/campaign-mailer/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestQueueHandler_PendingReady(t *testing.T) {
	t.Run("returns emails and count", func(t *testing.T) {
		svc := new(MockDeliveryService)
		handler := NewQueueHandler(svc)
		svc.On("Pending", mock.Anything, 10).Return([]*model.QueueEntry{{ID: 1}, {ID: 2}}, nil)

		ctx := setupTestContext("GET", "/pending-ready?limit=10", nil)
		handler.PendingReady(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		var data struct {
			Emails []*model.QueueEntry `json:"emails"`
			Count  int                 `json:"count"`
		}
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, ctx).Data, &data))
		assert.Equal(t, 2, data.Count)
		assert.Len(t, data.Emails, 2)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		svc := new(MockDeliveryService)
		handler := NewQueueHandler(svc)
		svc.On("Pending", mock.Anything, 0).Return(nil, nil)

		ctx := setupTestContext("GET", "/pending-ready", nil)
		handler.PendingReady(ctx)

		assert.JSONEq(t, `{"emails":[],"count":0}`, string(decodeEnvelope(t, ctx).Data))
	})

	t.Run("bad limit", func(t *testing.T) {
		svc := new(MockDeliveryService)
		handler := NewQueueHandler(svc)

		ctx := setupTestContext("GET", "/pending-ready?limit=x", nil)
		handler.PendingReady(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Pending")
	})
}

func TestQueueHandler_MarkSent(t *testing.T) {
	t.Run("without body", func(t *testing.T) {
		svc := new(MockDeliveryService)
		handler := NewQueueHandler(svc)
		svc.On("MarkSent", mock.Anything, int64(5), model.MarkSentRequest{}).
			Return(&model.QueueEntry{ID: 5, Status: model.QueueStatusSent}, nil)

		ctx := setupTestContext("PATCH", "/queue/5/sent", nil)
		ctx.SetUserValue("id", "5")
		handler.MarkSent(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("with message id", func(t *testing.T) {
		svc := new(MockDeliveryService)
		handler := NewQueueHandler(svc)
		svc.On("MarkSent", mock.Anything, int64(5), mock.MatchedBy(func(r model.MarkSentRequest) bool {
			return r.MessageID != nil && *r.MessageID == "abc"
		})).Return(&model.QueueEntry{ID: 5}, nil)

		ctx := setupTestContext("PATCH", "/queue/5/sent", []byte(`{"message_id":"abc"}`))
		ctx.SetUserValue("id", "5")
		handler.MarkSent(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("already terminal", func(t *testing.T) {
		svc := new(MockDeliveryService)
		handler := NewQueueHandler(svc)
		svc.On("MarkSent", mock.Anything, int64(5), mock.Anything).
			Return(nil, apperr.Conflict("queue entry cannot move from sent to sent", nil))

		ctx := setupTestContext("PATCH", "/queue/5/sent", nil)
		ctx.SetUserValue("id", "5")
		handler.MarkSent(ctx)

		assert.Equal(t, xhttp.StatusConflict, ctx.Response.StatusCode())
	})
}

func TestQueueHandler_MarkFailed(t *testing.T) {
	svc := new(MockDeliveryService)
	handler := NewQueueHandler(svc)
	svc.On("MarkFailed", mock.Anything, int64(9), mock.MatchedBy(func(r model.MarkFailedRequest) bool {
		return r.ErrorMessage == "mailbox full" && r.ErrorCode != nil && *r.ErrorCode == "552"
	})).Return(&model.QueueEntry{ID: 9, Status: model.QueueStatusFailed, RetryCount: 1}, nil)

	ctx := setupTestContext("PATCH", "/queue/9/failed", []byte(`{"error_message":"mailbox full","error_code":"552"}`))
	ctx.SetUserValue("id", "9")
	handler.MarkFailed(ctx)

	assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "email marked as failed", decodeEnvelope(t, ctx).Message)
	svc.AssertExpectations(t)
}

func TestQueueHandler_ScheduleQueueStatusFilter(t *testing.T) {
	svc := new(MockDeliveryService)
	handler := NewQueueHandler(svc)
	svc.On("ListBySchedule", mock.Anything, int64(4), mock.MatchedBy(func(s *model.QueueStatus) bool {
		return s != nil && *s == model.QueueStatusFailed
	})).Return([]*model.QueueEntry{{ID: 1}}, nil)

	ctx := setupTestContext("GET", "/schedules/4/queue?status=failed", nil)
	ctx.SetUserValue("id", "4")
	handler.ScheduleQueue(ctx)

	assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	svc.AssertExpectations(t)
}
