package repository

import (
	"time"

	"github.com/nimasrn/campaign-mailer/internal/model"
)

type QueueEntity struct {
	ID           int64      `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	CampaignID   int64      `db:"campaign_id"   gorm:"column:campaign_id;not null;index:idx_email_queue_campaign"`
	ScheduleID   int64      `db:"schedule_id"   gorm:"column:schedule_id;not null;uniqueIndex:uq_email_queue_schedule_client,priority:1"`
	ClientID     int64      `db:"client_id"     gorm:"column:client_id;not null;uniqueIndex:uq_email_queue_schedule_client,priority:2"`
	TemplateID   int64      `db:"template_id"   gorm:"column:template_id;not null"`
	ClientName   string     `db:"client_name"   gorm:"column:client_name;size:255;not null"`
	ClientEmail  string     `db:"client_email"  gorm:"column:client_email;size:255;not null"`
	Subject      string     `db:"subject"       gorm:"column:subject;size:500;not null"`
	BodyHTML     string     `db:"body_html"     gorm:"column:body_html;type:text;not null"`
	BodyText     string     `db:"body_text"     gorm:"column:body_text;type:text"`
	Status       string     `db:"status"        gorm:"column:status;size:20;not null;index:idx_email_queue_due,priority:1"`
	ScheduledAt  time.Time  `db:"scheduled_at"  gorm:"column:scheduled_at;not null;index:idx_email_queue_due,priority:2"`
	SentAt       *time.Time `db:"sent_at"       gorm:"column:sent_at"`
	MessageID    *string    `db:"message_id"    gorm:"column:message_id;size:255"`
	ErrorMessage *string    `db:"error_message" gorm:"column:error_message;type:text"`
	ErrorCode    *string    `db:"error_code"    gorm:"column:error_code;size:50"`
	RetryCount   int        `db:"retry_count"   gorm:"column:retry_count;not null"`
	MaxRetries   int        `db:"max_retries"   gorm:"column:max_retries;not null"`
	CreatedAt    time.Time  `db:"created_at"    gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `db:"updated_at"    gorm:"column:updated_at;autoUpdateTime"`
}

func (QueueEntity) TableName() string {
	return "email_queue"
}

func toQueueEntity(q *model.QueueEntry) *QueueEntity {
	if q == nil {
		return nil
	}
	return &QueueEntity{
		ID:           q.ID,
		CampaignID:   q.CampaignID,
		ScheduleID:   q.ScheduleID,
		ClientID:     q.ClientID,
		TemplateID:   q.TemplateID,
		ClientName:   q.ClientName,
		ClientEmail:  q.ClientEmail,
		Subject:      q.Subject,
		BodyHTML:     q.BodyHTML,
		BodyText:     q.BodyText,
		Status:       string(q.Status),
		ScheduledAt:  q.ScheduledAt,
		SentAt:       q.SentAt,
		MessageID:    q.MessageID,
		ErrorMessage: q.ErrorMessage,
		ErrorCode:    q.ErrorCode,
		RetryCount:   q.RetryCount,
		MaxRetries:   q.MaxRetries,
		CreatedAt:    q.CreatedAt,
		UpdatedAt:    q.UpdatedAt,
	}
}

func toQueueEntities(entries []*model.QueueEntry) []*QueueEntity {
	entities := make([]*QueueEntity, len(entries))
	for i, q := range entries {
		entities[i] = toQueueEntity(q)
	}
	return entities
}

func toQueueModel(e *QueueEntity) *model.QueueEntry {
	if e == nil {
		return nil
	}
	return &model.QueueEntry{
		ID:           e.ID,
		CampaignID:   e.CampaignID,
		ScheduleID:   e.ScheduleID,
		ClientID:     e.ClientID,
		TemplateID:   e.TemplateID,
		ClientName:   e.ClientName,
		ClientEmail:  e.ClientEmail,
		Subject:      e.Subject,
		BodyHTML:     e.BodyHTML,
		BodyText:     e.BodyText,
		Status:       model.QueueStatus(e.Status),
		ScheduledAt:  e.ScheduledAt,
		SentAt:       e.SentAt,
		MessageID:    e.MessageID,
		ErrorMessage: e.ErrorMessage,
		ErrorCode:    e.ErrorCode,
		RetryCount:   e.RetryCount,
		MaxRetries:   e.MaxRetries,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func toQueueModels(entities []*QueueEntity) []*model.QueueEntry {
	models := make([]*model.QueueEntry, len(entities))
	for i, e := range entities {
		models[i] = toQueueModel(e)
	}
	return models
}
