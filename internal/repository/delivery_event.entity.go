package repository

import (
	"time"

	"github.com/nimasrn/campaign-mailer/internal/model"
)

type DeliveryEventEntity struct {
	ID           int64      `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	EventID      string     `db:"event_id"      gorm:"column:event_id;size:36;not null;uniqueIndex:uq_delivery_events_event"`
	QueueID      int64      `db:"queue_id"      gorm:"column:queue_id;not null;index:idx_delivery_events_queue"`
	ScheduleID   int64      `db:"schedule_id"   gorm:"column:schedule_id;not null"`
	CampaignID   int64      `db:"campaign_id"   gorm:"column:campaign_id;not null"`
	Status       string     `db:"status"        gorm:"column:status;size:20;not null"`
	MessageID    *string    `db:"message_id"    gorm:"column:message_id;size:255"`
	ErrorMessage *string    `db:"error_message" gorm:"column:error_message;type:text"`
	ErrorCode    *string    `db:"error_code"    gorm:"column:error_code;size:50"`
	RetryCount   int        `db:"retry_count"   gorm:"column:retry_count;not null"`
	ScheduledAt  time.Time  `db:"scheduled_at"  gorm:"column:scheduled_at;not null"`
	SentAt       *time.Time `db:"sent_at"       gorm:"column:sent_at"`
	OccurredAt   time.Time  `db:"occurred_at"   gorm:"column:occurred_at;not null"`
}

func (DeliveryEventEntity) TableName() string {
	return "delivery_events"
}

func toDeliveryEventEntity(ev *model.DeliveryEvent) *DeliveryEventEntity {
	if ev == nil {
		return nil
	}
	return &DeliveryEventEntity{
		ID:           ev.ID,
		EventID:      ev.EventID,
		QueueID:      ev.QueueID,
		ScheduleID:   ev.ScheduleID,
		CampaignID:   ev.CampaignID,
		Status:       string(ev.Status),
		MessageID:    ev.MessageID,
		ErrorMessage: ev.ErrorMessage,
		ErrorCode:    ev.ErrorCode,
		RetryCount:   ev.RetryCount,
		ScheduledAt:  ev.ScheduledAt,
		SentAt:       ev.SentAt,
		OccurredAt:   ev.OccurredAt,
	}
}

func toDeliveryEventModel(e *DeliveryEventEntity) *model.DeliveryEvent {
	if e == nil {
		return nil
	}
	return &model.DeliveryEvent{
		ID:           e.ID,
		EventID:      e.EventID,
		QueueID:      e.QueueID,
		ScheduleID:   e.ScheduleID,
		CampaignID:   e.CampaignID,
		Status:       model.QueueStatus(e.Status),
		MessageID:    e.MessageID,
		ErrorMessage: e.ErrorMessage,
		ErrorCode:    e.ErrorCode,
		RetryCount:   e.RetryCount,
		ScheduledAt:  e.ScheduledAt,
		SentAt:       e.SentAt,
		OccurredAt:   e.OccurredAt,
	}
}

func toDeliveryEventModels(entities []*DeliveryEventEntity) []*model.DeliveryEvent {
	models := make([]*model.DeliveryEvent, len(entities))
	for i, e := range entities {
		models[i] = toDeliveryEventModel(e)
	}
	return models
}
