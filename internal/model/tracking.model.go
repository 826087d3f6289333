package model

import "time"

// TrackingCell is the state of one client on one campaign day.
type TrackingCell struct {
	ScheduleID   *int64      `json:"schedule_id"`
	QueueID      *int64      `json:"queue_id"`
	Status       QueueStatus `json:"status"`
	SentAt       *time.Time  `json:"sent_at"`
	ErrorMessage *string     `json:"error_message"`
}

type ClientTracking struct {
	ClientID    int64                   `json:"client_id"`
	CSVRow      int                     `json:"csv_row"`
	ClientName  string                  `json:"client_name"`
	ClientEmail string                  `json:"client_email"`
	Dates       map[string]TrackingCell `json:"dates"`
}

type TrackingStats struct {
	TotalClients   int `json:"total_clients"`
	TotalScheduled int `json:"total_scheduled"`
	TotalSent      int `json:"total_sent"`
	TotalPending   int `json:"total_pending"`
	TotalFailed    int `json:"total_failed"`
}

type CampaignTracking struct {
	Campaign *Campaign         `json:"campaign"`
	Dates    []string          `json:"dates"`
	Clients  []*ClientTracking `json:"clients"`
	Stats    TrackingStats     `json:"stats"`
}

// TodayTrackingRow is one client on the current day.
type TodayTrackingRow struct {
	ClientID     int64       `json:"client_id"`
	CSVRow       int         `json:"csv_row"`
	ClientName   string      `json:"client_name"`
	ClientEmail  string      `json:"client_email"`
	ScheduleID   *int64      `json:"schedule_id"`
	QueueID      *int64      `json:"queue_id"`
	Status       QueueStatus `json:"status"`
	SentAt       *time.Time  `json:"sent_at"`
	ErrorMessage *string     `json:"error_message"`
}

type TodayTracking struct {
	Date    string              `json:"date"`
	Clients []*TodayTrackingRow `json:"clients"`
}

// TrackingRow is a flat roster x schedule x queue join row.
type TrackingRow struct {
	ClientID     int64
	CSVRow       int
	ClientName   string
	ClientEmail  string
	ScheduleID   *int64
	ScheduleDate Date
	QueueID      *int64
	Status       *QueueStatus
	SentAt       *time.Time
	ErrorMessage *string
}

type StatusUpdate struct {
	QueueID      int64       `json:"queue_id"`
	ClientID     int64       `json:"client_id"`
	ScheduleID   int64       `json:"schedule_id"`
	ScheduleDate Date        `json:"schedule_date"`
	Status       QueueStatus `json:"status"`
	SentAt       *time.Time  `json:"sent_at"`
	ErrorMessage *string     `json:"error_message"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type StatusUpdates struct {
	Updates   []*StatusUpdate `json:"updates"`
	Timestamp time.Time       `json:"timestamp"`
}

type ScheduleOverview struct {
	ScheduleID   int64          `json:"schedule_id"`
	ScheduleDate Date           `json:"schedule_date"`
	TemplateID   int64          `json:"template_id"`
	TemplateName *string        `json:"template_name"`
	StartRow     int            `json:"start_row"`
	EndRow       int            `json:"end_row"`
	Status       ScheduleStatus `json:"status"`
	Total        int64          `json:"total"`
	Pending      int64          `json:"pending"`
	Sending      int64          `json:"sending"`
	Sent         int64          `json:"sent"`
	Failed       int64          `json:"failed"`
}
