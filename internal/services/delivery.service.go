package services

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/campaign-mailer/internal/apperr"
	"github.com/nimasrn/campaign-mailer/internal/model"
	"github.com/nimasrn/campaign-mailer/internal/repository"
	"github.com/nimasrn/campaign-mailer/pkg/logger"
	"github.com/nimasrn/campaign-mailer/pkg/prom"
)

type QueueRepository interface {
	Get(ctx context.Context, id int64) (*model.QueueEntry, error)
	List(ctx context.Context, f model.QueueFilter) ([]*model.QueueEntry, error)
	ListPending(ctx context.Context, now time.Time, limit int) ([]*model.QueueEntry, error)
	ListRetryable(ctx context.Context, limit int) ([]*model.QueueEntry, error)
	MarkSent(ctx context.Context, id int64, messageID *string, now time.Time) error
	MarkFailed(ctx context.Context, id int64, errorMessage string, errorCode *string, now time.Time) error
	IncrementRetry(ctx context.Context, id int64, now time.Time) error
	UpdateStatus(ctx context.Context, id int64, status model.QueueStatus, f repository.StatusFields, now time.Time) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context, f model.QueueFilter) (*model.QueueStats, error)
}

// ScheduleRollup is the schedule side of a delivery report.
type ScheduleRollup interface {
	Get(ctx context.Context, id int64) (*model.Schedule, error)
	GetForUpdate(ctx context.Context, id int64) (*model.Schedule, error)
	MarkProcessing(ctx context.Context, id int64, now time.Time) error
	Rollup(ctx context.Context, id int64, now time.Time) (model.ScheduleStatus, error)
}

type DeliveryEventReader interface {
	ListByQueue(ctx context.Context, queueID int64) ([]*model.DeliveryEvent, error)
}

// EventPublisher hands delivery events to the event stream.
type EventPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

type DeliveryOptions struct {
	PendingLimit   int
	RetryableLimit int
	// Publisher is optional; without it no delivery events are emitted.
	Publisher EventPublisher
}

// DeliveryService drives the queue entry state machine on behalf of the
// workflow engine and rolls the outcome up into the schedule.
type DeliveryService struct {
	tx             Transactor
	queue          QueueRepository
	schedules      ScheduleRollup
	campaigns      CampaignReader
	events         DeliveryEventReader
	publisher      EventPublisher
	pendingLimit   int
	retryableLimit int
	now            func() time.Time
}

func NewDeliveryService(tx Transactor, queue QueueRepository, schedules ScheduleRollup, campaigns CampaignReader,
	events DeliveryEventReader, opts DeliveryOptions) *DeliveryService {
	if opts.PendingLimit <= 0 {
		opts.PendingLimit = 100
	}
	if opts.RetryableLimit <= 0 {
		opts.RetryableLimit = 50
	}
	return &DeliveryService{
		tx:             tx,
		queue:          queue,
		schedules:      schedules,
		campaigns:      campaigns,
		events:         events,
		publisher:      opts.Publisher,
		pendingLimit:   opts.PendingLimit,
		retryableLimit: opts.RetryableLimit,
		now:            time.Now,
	}
}

// Pending returns entries due for delivery, oldest first.
func (s *DeliveryService) Pending(ctx context.Context, limit int) ([]*model.QueueEntry, error) {
	if limit <= 0 {
		limit = s.pendingLimit
	}
	list, err := s.queue.ListPending(ctx, s.now().UTC(), limit)
	return list, mapRepoErr(err, "queue entry")
}

// Retryable returns failed entries with retry budget left, least recently
// updated first.
func (s *DeliveryService) Retryable(ctx context.Context, limit int) ([]*model.QueueEntry, error) {
	if limit <= 0 {
		limit = s.retryableLimit
	}
	list, err := s.queue.ListRetryable(ctx, limit)
	return list, mapRepoErr(err, "queue entry")
}

func (s *DeliveryService) Get(ctx context.Context, id int64) (*model.QueueEntry, error) {
	entry, err := s.queue.Get(ctx, id)
	return entry, mapRepoErr(err, "queue entry")
}

func (s *DeliveryService) ListBySchedule(ctx context.Context, scheduleID int64, status *model.QueueStatus) ([]*model.QueueEntry, error) {
	if _, err := s.schedules.Get(ctx, scheduleID); err != nil {
		return nil, mapRepoErr(err, "schedule")
	}
	return s.list(ctx, model.QueueFilter{ScheduleID: &scheduleID, Status: status})
}

func (s *DeliveryService) ListByCampaign(ctx context.Context, campaignID int64, status *model.QueueStatus) ([]*model.QueueEntry, error) {
	if _, err := s.campaigns.Get(ctx, campaignID); err != nil {
		return nil, mapRepoErr(err, "campaign")
	}
	return s.list(ctx, model.QueueFilter{CampaignID: &campaignID, Status: status})
}

func (s *DeliveryService) list(ctx context.Context, f model.QueueFilter) ([]*model.QueueEntry, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, apperr.Validationf("unknown queue status %q", *f.Status)
	}
	list, err := s.queue.List(ctx, f)
	return list, mapRepoErr(err, "queue entry")
}

func (s *DeliveryService) ScheduleStats(ctx context.Context, scheduleID int64) (*model.QueueStats, error) {
	if _, err := s.schedules.Get(ctx, scheduleID); err != nil {
		return nil, mapRepoErr(err, "schedule")
	}
	stats, err := s.queue.Stats(ctx, model.QueueFilter{ScheduleID: &scheduleID})
	return stats, mapRepoErr(err, "queue entry")
}

func (s *DeliveryService) CampaignStats(ctx context.Context, campaignID int64) (*model.QueueStats, error) {
	if _, err := s.campaigns.Get(ctx, campaignID); err != nil {
		return nil, mapRepoErr(err, "campaign")
	}
	stats, err := s.queue.Stats(ctx, model.QueueFilter{CampaignID: &campaignID})
	return stats, mapRepoErr(err, "queue entry")
}

// Events returns the delivery history of an entry.
func (s *DeliveryService) Events(ctx context.Context, id int64) ([]*model.DeliveryEvent, error) {
	if _, err := s.queue.Get(ctx, id); err != nil {
		return nil, mapRepoErr(err, "queue entry")
	}
	list, err := s.events.ListByQueue(ctx, id)
	return list, mapRepoErr(err, "delivery event")
}

func (s *DeliveryService) Delete(ctx context.Context, id int64) error {
	if err := s.queue.Delete(ctx, id); err != nil {
		return mapRepoErr(err, "queue entry")
	}
	logger.Info("queue entry deleted", "queue_id", id)
	return nil
}

func (s *DeliveryService) MarkSent(ctx context.Context, id int64, req model.MarkSentRequest) (*model.QueueEntry, error) {
	return s.report(ctx, id, "sent", func(ctx context.Context, now time.Time) error {
		return s.queue.MarkSent(ctx, id, req.MessageID, now)
	})
}

func (s *DeliveryService) MarkFailed(ctx context.Context, id int64, req model.MarkFailedRequest) (*model.QueueEntry, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.report(ctx, id, "failed", func(ctx context.Context, now time.Time) error {
		return s.queue.MarkFailed(ctx, id, req.ErrorMessage, req.ErrorCode, now)
	})
}

func (s *DeliveryService) IncrementRetry(ctx context.Context, id int64) (*model.QueueEntry, error) {
	return s.report(ctx, id, "retry", func(ctx context.Context, now time.Time) error {
		return s.queue.IncrementRetry(ctx, id, now)
	})
}

func (s *DeliveryService) UpdateStatus(ctx context.Context, id int64, req model.QueueStatusRequest) (*model.QueueEntry, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	fields := repository.StatusFields{
		MessageID:    req.MessageID,
		ErrorMessage: req.ErrorMessage,
		ErrorCode:    req.ErrorCode,
	}
	return s.report(ctx, id, string(req.Status), func(ctx context.Context, now time.Time) error {
		return s.queue.UpdateStatus(ctx, id, req.Status, fields, now)
	})
}

// report applies one delivery report. The schedule row stays locked from
// before the entry changes until the rollup has run, so concurrent reports
// of the same schedule see each other's results.
func (s *DeliveryService) report(ctx context.Context, id int64, action string, apply func(ctx context.Context, now time.Time) error) (*model.QueueEntry, error) {
	now := s.now().UTC()

	var (
		updated        *model.QueueEntry
		scheduleStatus model.ScheduleStatus
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.queue.Get(ctx, id)
		if err != nil {
			return mapRepoErr(err, "queue entry")
		}
		if _, err = s.schedules.GetForUpdate(ctx, entry.ScheduleID); err != nil {
			return mapRepoErr(err, "schedule")
		}

		if err = apply(ctx, now); err != nil {
			return mapRepoErr(err, "queue entry")
		}

		if err = s.schedules.MarkProcessing(ctx, entry.ScheduleID, now); err != nil {
			return mapRepoErr(err, "schedule")
		}
		if scheduleStatus, err = s.schedules.Rollup(ctx, entry.ScheduleID, now); err != nil {
			return mapRepoErr(err, "schedule")
		}

		updated, err = s.queue.Get(ctx, id)
		return mapRepoErr(err, "queue entry")
	})
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			logger.Warn("delivery report rejected", "queue_id", id, "action", action, "err", err)
		}
		return nil, err
	}

	prom.IncStatusTransition(action)
	logger.Info("delivery report applied",
		"queue_id", id,
		"schedule_id", updated.ScheduleID,
		"campaign_id", updated.CampaignID,
		"action", action,
		"status", string(updated.Status),
		"retry_count", updated.RetryCount,
		"schedule_status", string(scheduleStatus))

	s.publish(ctx, updated, action, now)
	return updated, nil
}

// publish emits the committed transition. A failed publish only loses
// history; the queue state is already durable.
func (s *DeliveryService) publish(ctx context.Context, entry *model.QueueEntry, action string, now time.Time) {
	if s.publisher == nil {
		return
	}

	ev := &model.DeliveryEvent{
		EventID:      uuid.NewString(),
		QueueID:      entry.ID,
		ScheduleID:   entry.ScheduleID,
		CampaignID:   entry.CampaignID,
		Status:       entry.Status,
		MessageID:    entry.MessageID,
		ErrorMessage: entry.ErrorMessage,
		ErrorCode:    entry.ErrorCode,
		RetryCount:   entry.RetryCount,
		ScheduledAt:  entry.ScheduledAt,
		SentAt:       entry.SentAt,
		OccurredAt:   now,
	}
	metadata := map[string]string{
		"event_id": ev.EventID,
		"action":   action,
		"queue_id": strconv.FormatInt(entry.ID, 10),
	}

	if _, err := s.publisher.PublishJSON(ctx, ev, metadata); err != nil {
		logger.Error("failed to publish delivery event", "queue_id", entry.ID, "event_id", ev.EventID, "err", err)
	}
}
