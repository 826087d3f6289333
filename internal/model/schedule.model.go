package model

import "time"

type ScheduleStatus string

const (
	ScheduleStatusPending    ScheduleStatus = "pending"
	ScheduleStatusProcessing ScheduleStatus = "processing"
	ScheduleStatusCompleted  ScheduleStatus = "completed"
	ScheduleStatusFailed     ScheduleStatus = "failed"
	ScheduleStatusCancelled  ScheduleStatus = "cancelled"
)

func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleStatusPending, ScheduleStatusProcessing, ScheduleStatusCompleted,
		ScheduleStatusFailed, ScheduleStatusCancelled:
		return true
	}
	return false
}

// Final reports whether the schedule accepts no further status changes.
func (s ScheduleStatus) Final() bool {
	return s == ScheduleStatusCompleted || s == ScheduleStatusCancelled
}

type Schedule struct {
	ID           int64          `json:"id"`
	CampaignID   int64          `json:"campaign_id"`
	ScheduleDate Date           `json:"schedule_date"`
	TemplateID   int64          `json:"template_id"`
	StartRow     int            `json:"start_row"`
	EndRow       int            `json:"end_row"`
	Status       ScheduleStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type ScheduleCreateRequest struct {
	CampaignID   int64 `json:"campaign_id" validate:"required"`
	ScheduleDate Date  `json:"schedule_date"`
	TemplateID   int64 `json:"template_id" validate:"required"`
	StartRow     int   `json:"start_row" validate:"required,min=1"`
	EndRow       int   `json:"end_row" validate:"required,gtefield=StartRow"`
}

type ScheduleStatusRequest struct {
	Status ScheduleStatus `json:"status" validate:"required,oneof=pending processing completed failed cancelled"`
}

// ScheduleResult is what a materialization returns.
type ScheduleResult struct {
	Schedule       *Schedule `json:"schedule"`
	Template       string    `json:"template_name"`
	ClientsMatched int       `json:"clients_matched"`
	EmailsQueued   int       `json:"emails_queued"`
}

type ScheduleFilter struct {
	Status *ScheduleStatus
	Date   *Date
}
