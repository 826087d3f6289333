package repository

import (
	"context"
	"time"

	"github.com/nimasrn/campaign-mailer/internal/model"
	"github.com/nimasrn/campaign-mailer/pkg/pg"
	"gorm.io/gorm/clause"
)

type ScheduleRepository struct {
	*pg.DB
}

func NewScheduleRepository(db *pg.DB) *ScheduleRepository {
	return &ScheduleRepository{
		db,
	}
}

func (r *ScheduleRepository) Create(ctx context.Context, s *model.Schedule) (*model.Schedule, error) {
	entity := toScheduleEntity(s)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, "create schedule")
	}

	return toScheduleModel(entity), nil
}

func (r *ScheduleRepository) Get(ctx context.Context, id int64) (*model.Schedule, error) {
	var entity ScheduleEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, translate(err, "get schedule")
	}
	return toScheduleModel(&entity), nil
}

// GetForUpdate reads the schedule holding a row lock until the surrounding
// transaction ends. Concurrent transitions of the same schedule serialize here.
func (r *ScheduleRepository) GetForUpdate(ctx context.Context, id int64) (*model.Schedule, error) {
	var entity ScheduleEntity
	err := r.Write(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&entity).Error
	if err != nil {
		return nil, translate(err, "lock schedule")
	}
	return toScheduleModel(&entity), nil
}

// ExistsSlot reports whether the campaign already has a schedule for the same
// date and row range.
func (r *ScheduleRepository) ExistsSlot(ctx context.Context, campaignID int64, date model.Date, startRow, endRow int) (bool, error) {
	var count int64
	err := r.Read(ctx).
		Model(&ScheduleEntity{}).
		Where("campaign_id = ? AND schedule_date = ? AND start_row = ? AND end_row = ?", campaignID, date, startRow, endRow).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "check schedule slot")
	}
	return count > 0, nil
}

func (r *ScheduleRepository) ListByCampaign(ctx context.Context, campaignID int64) ([]*model.Schedule, error) {
	var entities []*ScheduleEntity
	err := r.Read(ctx).
		Where("campaign_id = ?", campaignID).
		Order("schedule_date ASC, start_row ASC, id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, translate(err, "list schedules")
	}
	return toScheduleModels(entities), nil
}

func (r *ScheduleRepository) List(ctx context.Context, f model.ScheduleFilter) ([]*model.Schedule, error) {
	q := r.Read(ctx).Model(&ScheduleEntity{})
	if f.Status != nil {
		q = q.Where("status = ?", string(*f.Status))
	}
	if f.Date != nil {
		q = q.Where("schedule_date = ?", *f.Date)
	}

	var entities []*ScheduleEntity
	if err := q.Order("schedule_date ASC, id ASC").Find(&entities).Error; err != nil {
		return nil, translate(err, "list schedules")
	}
	return toScheduleModels(entities), nil
}

// UpdateStatus moves the schedule to status when it currently holds one of
// from. It returns ErrNotFound or ErrInvalidTransition when nothing changed.
func (r *ScheduleRepository) UpdateStatus(ctx context.Context, id int64, status model.ScheduleStatus, from []model.ScheduleStatus, now time.Time) error {
	res := r.Write(ctx).
		Model(&ScheduleEntity{}).
		Where("id = ? AND status IN ?", id, scheduleStatusStrings(from)).
		Updates(map[string]interface{}{"status": string(status), "updated_at": now})
	if res.Error != nil {
		return translate(res.Error, "update schedule status")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return ErrInvalidTransition
}

// MarkProcessing moves a pending schedule to processing. It is a no-op for
// any other status.
func (r *ScheduleRepository) MarkProcessing(ctx context.Context, id int64, now time.Time) error {
	err := r.Write(ctx).
		Model(&ScheduleEntity{}).
		Where("id = ? AND status = ?", id, string(model.ScheduleStatusPending)).
		Updates(map[string]interface{}{"status": string(model.ScheduleStatusProcessing), "updated_at": now}).Error
	return translate(err, "mark schedule processing")
}

// Rollup derives the schedule status from its queue in single conditional
// statements. A schedule completes when no entry is outstanding and at least
// one was sent; it fails when every entry ended without a send and none can
// be retried. A failed schedule still completes once a late send report
// lands. Completed and cancelled schedules are never touched. The returned
// status is the one held after the rollup.
func (r *ScheduleRepository) Rollup(ctx context.Context, id int64, now time.Time) (model.ScheduleStatus, error) {
	open := scheduleStatusStrings([]model.ScheduleStatus{model.ScheduleStatusPending, model.ScheduleStatusProcessing})
	completable := scheduleStatusStrings([]model.ScheduleStatus{
		model.ScheduleStatusPending, model.ScheduleStatusProcessing, model.ScheduleStatusFailed,
	})

	err := r.Write(ctx).Exec(
		`UPDATE campaign_schedules
		    SET status = ?, updated_at = ?
		  WHERE id = ?
		    AND status IN ?
		    AND NOT EXISTS (SELECT 1 FROM email_queue q
		                     WHERE q.schedule_id = campaign_schedules.id AND q.status IN ?)
		    AND EXISTS (SELECT 1 FROM email_queue q
		                 WHERE q.schedule_id = campaign_schedules.id AND q.status = ?)`,
		string(model.ScheduleStatusCompleted), now, id, completable,
		queueStatusStrings(model.OutstandingStatuses), string(model.QueueStatusSent),
	).Error
	if err != nil {
		return "", translate(err, "rollup schedule")
	}

	err = r.Write(ctx).Exec(
		`UPDATE campaign_schedules
		    SET status = ?, updated_at = ?
		  WHERE id = ?
		    AND status IN ?
		    AND EXISTS (SELECT 1 FROM email_queue q WHERE q.schedule_id = campaign_schedules.id)
		    AND NOT EXISTS (SELECT 1 FROM email_queue q
		                     WHERE q.schedule_id = campaign_schedules.id
		                       AND (q.status IN ? OR (q.status = ? AND q.retry_count < q.max_retries)))`,
		string(model.ScheduleStatusFailed), now, id, open,
		[]string{string(model.QueueStatusPending), string(model.QueueStatusQueued), string(model.QueueStatusSending), string(model.QueueStatusSent)},
		string(model.QueueStatusFailed),
	).Error
	if err != nil {
		return "", translate(err, "rollup schedule")
	}

	var status string
	if err = r.Write(ctx).Model(&ScheduleEntity{}).Select("status").Where("id = ?", id).Scan(&status).Error; err != nil {
		return "", translate(err, "rollup schedule")
	}
	return model.ScheduleStatus(status), nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, id int64) error {
	res := r.Write(ctx).Where("id = ?", id).Delete(&ScheduleEntity{})
	if res.Error != nil {
		return translate(res.Error, "delete schedule")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func scheduleStatusStrings(statuses []model.ScheduleStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func queueStatusStrings(statuses []model.QueueStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
