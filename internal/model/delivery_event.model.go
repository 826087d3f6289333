package model

import "time"

// DeliveryEvent records one status transition of a queue entry. Events are
// published after the transition commits and persisted by the processor.
type DeliveryEvent struct {
	ID           int64       `json:"id,omitempty"`
	EventID      string      `json:"event_id"`
	QueueID      int64       `json:"queue_id"`
	ScheduleID   int64       `json:"schedule_id"`
	CampaignID   int64       `json:"campaign_id"`
	Status       QueueStatus `json:"status"`
	MessageID    *string     `json:"message_id,omitempty"`
	ErrorMessage *string     `json:"error_message,omitempty"`
	ErrorCode    *string     `json:"error_code,omitempty"`
	RetryCount   int         `json:"retry_count"`
	ScheduledAt  time.Time   `json:"scheduled_at"`
	SentAt       *time.Time  `json:"sent_at,omitempty"`
	OccurredAt   time.Time   `json:"occurred_at"`
}
