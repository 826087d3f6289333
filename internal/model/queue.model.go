package model

import "time"

type QueueStatus string

const (
	QueueStatusPending  QueueStatus = "pending"
	QueueStatusQueued   QueueStatus = "queued"
	QueueStatusSending  QueueStatus = "sending"
	QueueStatusSent     QueueStatus = "sent"
	QueueStatusFailed   QueueStatus = "failed"
	QueueStatusBounced  QueueStatus = "bounced"
	QueueStatusRejected QueueStatus = "rejected"
)

// QueueStatusNotQueued is reported by tracking views for a client with no
// queue entry. It is never stored.
const QueueStatusNotQueued QueueStatus = "not_queued"

// DefaultMaxRetries is the retry budget of a freshly materialized entry.
const DefaultMaxRetries = 3

var (
	// OutstandingStatuses keep a schedule from completing.
	OutstandingStatuses = []QueueStatus{QueueStatusPending, QueueStatusQueued, QueueStatusSending, QueueStatusFailed}
	// TerminalStatuses are never left except bounced/rejected after sent.
	TerminalStatuses = []QueueStatus{QueueStatusSent, QueueStatusBounced, QueueStatusRejected}
)

// transitionSources lists, per target status, the statuses an entry may
// currently hold for the transition to apply.
var transitionSources = map[QueueStatus][]QueueStatus{
	QueueStatusPending:  {QueueStatusQueued, QueueStatusSending, QueueStatusFailed},
	QueueStatusQueued:   {QueueStatusPending, QueueStatusFailed},
	QueueStatusSending:  {QueueStatusPending, QueueStatusQueued, QueueStatusFailed},
	QueueStatusSent:     {QueueStatusPending, QueueStatusQueued, QueueStatusSending, QueueStatusFailed},
	QueueStatusFailed:   {QueueStatusPending, QueueStatusQueued, QueueStatusSending, QueueStatusFailed},
	QueueStatusBounced:  {QueueStatusPending, QueueStatusQueued, QueueStatusSending, QueueStatusFailed, QueueStatusSent},
	QueueStatusRejected: {QueueStatusPending, QueueStatusQueued, QueueStatusSending, QueueStatusFailed, QueueStatusSent},
}

func (s QueueStatus) Valid() bool {
	_, ok := transitionSources[s]
	return ok
}

// Sources returns the statuses from which an entry may move to s.
func (s QueueStatus) Sources() []QueueStatus {
	return transitionSources[s]
}

func (s QueueStatus) CanTransitionFrom(from QueueStatus) bool {
	for _, src := range transitionSources[s] {
		if src == from {
			return true
		}
	}
	return false
}

func (s QueueStatus) Terminal() bool {
	return s == QueueStatusSent || s == QueueStatusBounced || s == QueueStatusRejected
}

type QueueEntry struct {
	ID           int64       `json:"id"`
	CampaignID   int64       `json:"campaign_id"`
	ScheduleID   int64       `json:"schedule_id"`
	ClientID     int64       `json:"client_id"`
	TemplateID   int64       `json:"template_id"`
	ClientName   string      `json:"client_name"`
	ClientEmail  string      `json:"client_email"`
	Subject      string      `json:"subject"`
	BodyHTML     string      `json:"body_html"`
	BodyText     string      `json:"body_text"`
	Status       QueueStatus `json:"status"`
	ScheduledAt  time.Time   `json:"scheduled_at"`
	SentAt       *time.Time  `json:"sent_at"`
	MessageID    *string     `json:"message_id"`
	ErrorMessage *string     `json:"error_message"`
	ErrorCode    *string     `json:"error_code"`
	RetryCount   int         `json:"retry_count"`
	MaxRetries   int         `json:"max_retries"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Retryable reports whether the entry still has retry budget.
func (q *QueueEntry) Retryable() bool {
	return q.RetryCount < q.MaxRetries
}

type MarkSentRequest struct {
	MessageID *string `json:"message_id"`
}

type MarkFailedRequest struct {
	ErrorMessage string  `json:"error_message" validate:"required"`
	ErrorCode    *string `json:"error_code"`
}

type QueueStatusRequest struct {
	Status       QueueStatus `json:"status" validate:"required,oneof=pending queued sending sent failed bounced rejected"`
	MessageID    *string     `json:"message_id"`
	ErrorMessage *string     `json:"error_message"`
	ErrorCode    *string     `json:"error_code"`
}

// QueueStats counts entries per status; Pending includes queued.
type QueueStats struct {
	Total    int64 `json:"total"    gorm:"column:total"`
	Pending  int64 `json:"pending"  gorm:"column:pending"`
	Sending  int64 `json:"sending"  gorm:"column:sending"`
	Sent     int64 `json:"sent"     gorm:"column:sent"`
	Failed   int64 `json:"failed"   gorm:"column:failed"`
	Bounced  int64 `json:"bounced"  gorm:"column:bounced"`
	Rejected int64 `json:"rejected" gorm:"column:rejected"`
}

type QueueFilter struct {
	CampaignID *int64
	ScheduleID *int64
	Status     *QueueStatus
}
