package repository

import (
	"context"
	"time"

	"github.com/nimasrn/campaign-mailer/internal/model"
	"github.com/nimasrn/campaign-mailer/pkg/pg"
	"gorm.io/gorm"
)

type QueueRepository struct {
	*pg.DB
}

func NewQueueRepository(db *pg.DB) *QueueRepository {
	return &QueueRepository{
		db,
	}
}

// BulkCreate inserts entries in batches and returns the affected row count.
func (r *QueueRepository) BulkCreate(ctx context.Context, entries []*model.QueueEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	entities := toQueueEntities(entries)
	res := r.Write(ctx).CreateInBatches(entities, bulkBatchSize)
	if res.Error != nil {
		return 0, translate(res.Error, "bulk create queue entries")
	}

	for i, e := range entities {
		entries[i].ID = e.ID
		entries[i].CreatedAt = e.CreatedAt
		entries[i].UpdatedAt = e.UpdatedAt
	}
	return res.RowsAffected, nil
}

func (r *QueueRepository) Get(ctx context.Context, id int64) (*model.QueueEntry, error) {
	var entity QueueEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, translate(err, "get queue entry")
	}
	return toQueueModel(&entity), nil
}

// ListPending returns entries due at now that still have retry budget, oldest
// scheduled first. Queued entries count as pending.
func (r *QueueRepository) ListPending(ctx context.Context, now time.Time, limit int) ([]*model.QueueEntry, error) {
	var entities []*QueueEntity
	err := r.Read(ctx).
		Where("status IN ? AND scheduled_at <= ? AND retry_count < max_retries",
			[]string{string(model.QueueStatusPending), string(model.QueueStatusQueued)}, now).
		Order("scheduled_at ASC, id ASC").
		Limit(clampLimit(limit)).
		Find(&entities).Error
	if err != nil {
		return nil, translate(err, "list pending")
	}
	return toQueueModels(entities), nil
}

// ListRetryable returns failed entries with retry budget left, least
// recently updated first.
func (r *QueueRepository) ListRetryable(ctx context.Context, limit int) ([]*model.QueueEntry, error) {
	var entities []*QueueEntity
	err := r.Read(ctx).
		Where("status = ? AND retry_count < max_retries", string(model.QueueStatusFailed)).
		Order("updated_at ASC, id ASC").
		Limit(clampLimit(limit)).
		Find(&entities).Error
	if err != nil {
		return nil, translate(err, "list retryable")
	}
	return toQueueModels(entities), nil
}

func (r *QueueRepository) List(ctx context.Context, f model.QueueFilter) ([]*model.QueueEntry, error) {
	q := r.Read(ctx).Model(&QueueEntity{})
	if f.CampaignID != nil {
		q = q.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.ScheduleID != nil {
		q = q.Where("schedule_id = ?", *f.ScheduleID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", string(*f.Status))
	}

	var entities []*QueueEntity
	if err := q.Order("scheduled_at ASC, id ASC").Find(&entities).Error; err != nil {
		return nil, translate(err, "list queue")
	}
	return toQueueModels(entities), nil
}

// MarkSent moves the entry to sent. A nil messageID keeps the stored one.
func (r *QueueRepository) MarkSent(ctx context.Context, id int64, messageID *string, now time.Time) error {
	values := map[string]interface{}{
		"status":     string(model.QueueStatusSent),
		"sent_at":    now,
		"updated_at": now,
	}
	if messageID != nil {
		values["message_id"] = *messageID
	}
	return r.transition(ctx, id, model.QueueStatusSent, false, values)
}

// MarkFailed records the failure and consumes one retry. It only applies
// while retry_count < max_retries.
func (r *QueueRepository) MarkFailed(ctx context.Context, id int64, errorMessage string, errorCode *string, now time.Time) error {
	values := map[string]interface{}{
		"status":        string(model.QueueStatusFailed),
		"error_message": errorMessage,
		"error_code":    errorCode,
		"retry_count":   gorm.Expr("retry_count + 1"),
		"updated_at":    now,
	}
	return r.transition(ctx, id, model.QueueStatusFailed, true, values)
}

// IncrementRetry consumes one retry without touching the status. Terminal
// entries and entries without budget are left alone.
func (r *QueueRepository) IncrementRetry(ctx context.Context, id int64, now time.Time) error {
	res := r.Write(ctx).
		Model(&QueueEntity{}).
		Where("id = ? AND status NOT IN ? AND retry_count < max_retries", id, queueStatusStrings(model.TerminalStatuses)).
		Updates(map[string]interface{}{
			"retry_count": gorm.Expr("retry_count + 1"),
			"updated_at":  now,
		})
	if res.Error != nil {
		return translate(res.Error, "increment retry")
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return r.explainMiss(ctx, id, "")
}

// StatusFields carries the optional columns of a generic status update.
type StatusFields struct {
	MessageID    *string
	ErrorMessage *string
	ErrorCode    *string
}

// UpdateStatus applies any allowed transition. Moving to sent stamps sent_at.
func (r *QueueRepository) UpdateStatus(ctx context.Context, id int64, status model.QueueStatus, f StatusFields, now time.Time) error {
	values := map[string]interface{}{
		"status":     string(status),
		"updated_at": now,
	}
	if status == model.QueueStatusSent {
		values["sent_at"] = now
	}
	if f.MessageID != nil {
		values["message_id"] = *f.MessageID
	}
	if f.ErrorMessage != nil {
		values["error_message"] = *f.ErrorMessage
	}
	if f.ErrorCode != nil {
		values["error_code"] = *f.ErrorCode
	}
	return r.transition(ctx, id, status, false, values)
}

// transition is the single conditional update behind every status change.
func (r *QueueRepository) transition(ctx context.Context, id int64, to model.QueueStatus, needsBudget bool, values map[string]interface{}) error {
	q := r.Write(ctx).
		Model(&QueueEntity{}).
		Where("id = ? AND status IN ?", id, queueStatusStrings(to.Sources()))
	if needsBudget {
		q = q.Where("retry_count < max_retries")
	}

	res := q.Updates(values)
	if res.Error != nil {
		return translate(res.Error, "update queue status")
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return r.explainMiss(ctx, id, to)
}

// explainMiss determines why a conditional update matched no row.
func (r *QueueRepository) explainMiss(ctx context.Context, id int64, to model.QueueStatus) error {
	entry, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	if to != "" && !to.CanTransitionFrom(entry.Status) {
		return ErrInvalidTransition
	}
	if to == "" && entry.Status.Terminal() {
		return ErrInvalidTransition
	}
	if !entry.Retryable() {
		return ErrRetriesExhausted
	}
	return ErrInvalidTransition
}

func (r *QueueRepository) Delete(ctx context.Context, id int64) error {
	res := r.Write(ctx).Where("id = ?", id).Delete(&QueueEntity{})
	if res.Error != nil {
		return translate(res.Error, "delete queue entry")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBySchedule removes the schedule's entries, limited to statuses when
// any are given, and returns how many rows went away.
func (r *QueueRepository) DeleteBySchedule(ctx context.Context, scheduleID int64, statuses ...model.QueueStatus) (int64, error) {
	q := r.Write(ctx).Where("schedule_id = ?", scheduleID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", queueStatusStrings(statuses))
	}
	res := q.Delete(&QueueEntity{})
	if res.Error != nil {
		return 0, translate(res.Error, "delete schedule queue")
	}
	return res.RowsAffected, nil
}

// Stats counts entries per status for a schedule or a campaign.
func (r *QueueRepository) Stats(ctx context.Context, f model.QueueFilter) (*model.QueueStats, error) {
	q := r.Read(ctx).
		Model(&QueueEntity{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status IN ('pending', 'queued') THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status = 'sending' THEN 1 ELSE 0 END), 0) AS sending,
			COALESCE(SUM(CASE WHEN status = 'sent' THEN 1 ELSE 0 END), 0) AS sent,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) AS failed,
			COALESCE(SUM(CASE WHEN status = 'bounced' THEN 1 ELSE 0 END), 0) AS bounced,
			COALESCE(SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END), 0) AS rejected`)
	if f.CampaignID != nil {
		q = q.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.ScheduleID != nil {
		q = q.Where("schedule_id = ?", *f.ScheduleID)
	}

	var stats model.QueueStats
	if err := q.Scan(&stats).Error; err != nil {
		return nil, translate(err, "queue stats")
	}
	return &stats, nil
}
