package repository

import (
	"context"
	"time"

	"github.com/nimasrn/campaign-mailer/internal/model"
	"github.com/nimasrn/campaign-mailer/pkg/pg"
)

// TrackingRepository serves the read-only dashboard joins.
type TrackingRepository struct {
	*pg.DB
}

func NewTrackingRepository(db *pg.DB) *TrackingRepository {
	return &TrackingRepository{
		db,
	}
}

type trackingRowEntity struct {
	ClientID     int64      `gorm:"column:client_id"`
	CSVRow       int        `gorm:"column:csv_row"`
	ClientName   string     `gorm:"column:client_name"`
	ClientEmail  string     `gorm:"column:client_email"`
	ScheduleID   *int64     `gorm:"column:schedule_id"`
	ScheduleDate model.Date `gorm:"column:schedule_date"`
	QueueID      *int64     `gorm:"column:queue_id"`
	Status       *string    `gorm:"column:status"`
	SentAt       *time.Time `gorm:"column:sent_at"`
	ErrorMessage *string    `gorm:"column:error_message"`
}

const trackingSelect = `
	SELECT c.id            AS client_id,
	       c.csv_row       AS csv_row,
	       c.client_name   AS client_name,
	       c.client_email  AS client_email,
	       s.id            AS schedule_id,
	       s.schedule_date AS schedule_date,
	       q.id            AS queue_id,
	       q.status        AS status,
	       q.sent_at       AS sent_at,
	       q.error_message AS error_message
	  FROM campaign_clients c
	  LEFT JOIN campaign_schedules s
	         ON s.campaign_id = c.campaign_id
	        AND c.csv_row BETWEEN s.start_row AND s.end_row`

// CampaignRows joins every client of the campaign with each schedule covering
// its row and the queue entry of that pair.
func (r *TrackingRepository) CampaignRows(ctx context.Context, campaignID int64) ([]*model.TrackingRow, error) {
	var rows []*trackingRowEntity
	err := r.Read(ctx).Raw(trackingSelect+`
	  LEFT JOIN email_queue q
	         ON q.schedule_id = s.id
	        AND q.client_id = c.id
	 WHERE c.campaign_id = ?
	 ORDER BY c.csv_row ASC, s.schedule_date ASC, s.id ASC`, campaignID).
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "campaign tracking")
	}
	return toTrackingRows(rows), nil
}

// DayRows is CampaignRows restricted to schedules on date.
func (r *TrackingRepository) DayRows(ctx context.Context, campaignID int64, date model.Date) ([]*model.TrackingRow, error) {
	var rows []*trackingRowEntity
	err := r.Read(ctx).Raw(trackingSelect+`
	        AND s.schedule_date = ?
	  LEFT JOIN email_queue q
	         ON q.schedule_id = s.id
	        AND q.client_id = c.id
	 WHERE c.campaign_id = ?
	 ORDER BY c.csv_row ASC, s.id ASC`, date, campaignID).
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "day tracking")
	}
	return toTrackingRows(rows), nil
}

type statusUpdateEntity struct {
	QueueID      int64      `gorm:"column:queue_id"`
	ClientID     int64      `gorm:"column:client_id"`
	ScheduleID   int64      `gorm:"column:schedule_id"`
	ScheduleDate model.Date `gorm:"column:schedule_date"`
	Status       string     `gorm:"column:status"`
	SentAt       *time.Time `gorm:"column:sent_at"`
	ErrorMessage *string    `gorm:"column:error_message"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

// StatusUpdates lists queue entries of the campaign sent, created or updated
// after since. A nil since returns every entry.
func (r *TrackingRepository) StatusUpdates(ctx context.Context, campaignID int64, since *time.Time) ([]*model.StatusUpdate, error) {
	q := r.Read(ctx).
		Table("email_queue AS q").
		Select(`q.id AS queue_id, q.client_id, q.schedule_id, s.schedule_date,
			q.status, q.sent_at, q.error_message, q.updated_at`).
		Joins("JOIN campaign_schedules s ON s.id = q.schedule_id").
		Where("q.campaign_id = ?", campaignID)
	if since != nil {
		q = q.Where("(q.sent_at > ? OR q.created_at > ? OR q.updated_at > ?)", *since, *since, *since)
	}

	var rows []*statusUpdateEntity
	if err := q.Order("q.updated_at ASC, q.id ASC").Scan(&rows).Error; err != nil {
		return nil, translate(err, "status updates")
	}

	updates := make([]*model.StatusUpdate, len(rows))
	for i, row := range rows {
		updates[i] = &model.StatusUpdate{
			QueueID:      row.QueueID,
			ClientID:     row.ClientID,
			ScheduleID:   row.ScheduleID,
			ScheduleDate: row.ScheduleDate,
			Status:       model.QueueStatus(row.Status),
			SentAt:       row.SentAt,
			ErrorMessage: row.ErrorMessage,
			UpdatedAt:    row.UpdatedAt,
		}
	}
	return updates, nil
}

type scheduleOverviewEntity struct {
	ScheduleID   int64      `gorm:"column:schedule_id"`
	ScheduleDate model.Date `gorm:"column:schedule_date"`
	TemplateID   int64      `gorm:"column:template_id"`
	TemplateName *string    `gorm:"column:template_name"`
	StartRow     int        `gorm:"column:start_row"`
	EndRow       int        `gorm:"column:end_row"`
	Status       string     `gorm:"column:status"`
	Total        int64      `gorm:"column:total"`
	Pending      int64      `gorm:"column:pending"`
	Sending      int64      `gorm:"column:sending"`
	Sent         int64      `gorm:"column:sent"`
	Failed       int64      `gorm:"column:failed"`
}

// ScheduleOverview returns one row per schedule with its queue counts.
// Failed counts every entry that ended without a send.
func (r *TrackingRepository) ScheduleOverview(ctx context.Context, campaignID int64) ([]*model.ScheduleOverview, error) {
	var rows []*scheduleOverviewEntity
	err := r.Read(ctx).Raw(`
	SELECT s.id            AS schedule_id,
	       s.schedule_date AS schedule_date,
	       s.template_id   AS template_id,
	       t.name          AS template_name,
	       s.start_row     AS start_row,
	       s.end_row       AS end_row,
	       s.status        AS status,
	       COUNT(q.id)     AS total,
	       COALESCE(SUM(CASE WHEN q.status IN ('pending', 'queued') THEN 1 ELSE 0 END), 0) AS pending,
	       COALESCE(SUM(CASE WHEN q.status = 'sending' THEN 1 ELSE 0 END), 0) AS sending,
	       COALESCE(SUM(CASE WHEN q.status = 'sent' THEN 1 ELSE 0 END), 0) AS sent,
	       COALESCE(SUM(CASE WHEN q.status IN ('failed', 'bounced', 'rejected') THEN 1 ELSE 0 END), 0) AS failed
	  FROM campaign_schedules s
	  LEFT JOIN templates t ON t.id = s.template_id
	  LEFT JOIN email_queue q ON q.schedule_id = s.id
	 WHERE s.campaign_id = ?
	 GROUP BY s.id, s.schedule_date, s.template_id, t.name, s.start_row, s.end_row, s.status
	 ORDER BY s.schedule_date ASC, s.id ASC`, campaignID).
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "schedule overview")
	}

	overview := make([]*model.ScheduleOverview, len(rows))
	for i, row := range rows {
		overview[i] = &model.ScheduleOverview{
			ScheduleID:   row.ScheduleID,
			ScheduleDate: row.ScheduleDate,
			TemplateID:   row.TemplateID,
			TemplateName: row.TemplateName,
			StartRow:     row.StartRow,
			EndRow:       row.EndRow,
			Status:       model.ScheduleStatus(row.Status),
			Total:        row.Total,
			Pending:      row.Pending,
			Sending:      row.Sending,
			Sent:         row.Sent,
			Failed:       row.Failed,
		}
	}
	return overview, nil
}

func toTrackingRows(rows []*trackingRowEntity) []*model.TrackingRow {
	out := make([]*model.TrackingRow, len(rows))
	for i, row := range rows {
		tr := &model.TrackingRow{
			ClientID:     row.ClientID,
			CSVRow:       row.CSVRow,
			ClientName:   row.ClientName,
			ClientEmail:  row.ClientEmail,
			ScheduleID:   row.ScheduleID,
			ScheduleDate: row.ScheduleDate,
			QueueID:      row.QueueID,
			SentAt:       row.SentAt,
			ErrorMessage: row.ErrorMessage,
		}
		if row.Status != nil {
			st := model.QueueStatus(*row.Status)
			tr.Status = &st
		}
		out[i] = tr
	}
	return out
}
