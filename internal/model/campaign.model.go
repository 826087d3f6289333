package model

import "time"

type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// MaxCampaignSpanDays bounds end_date - start_date, a five day inclusive window.
const MaxCampaignSpanDays = 4

type Campaign struct {
	ID           int64          `json:"id"`
	Name         string         `json:"campaign_name"`
	StartDate    Date           `json:"start_date"`
	EndDate      Date           `json:"end_date"`
	TotalClients int            `json:"total_clients"`
	CSVFilePath  *string        `json:"csv_file_path"`
	Status       CampaignStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type CampaignCreateRequest struct {
	Name        string  `json:"campaign_name" validate:"required,max=255"`
	StartDate   Date    `json:"start_date"`
	EndDate     Date    `json:"end_date"`
	CSVFilePath *string `json:"csv_file_path"`
}

type CampaignUpdateRequest struct {
	Name        string         `json:"campaign_name" validate:"required,max=255"`
	StartDate   Date           `json:"start_date"`
	EndDate     Date           `json:"end_date"`
	CSVFilePath *string        `json:"csv_file_path"`
	Status      CampaignStatus `json:"status" validate:"omitempty,oneof=draft active completed"`
}

type CampaignStatusRequest struct {
	Status CampaignStatus `json:"status" validate:"required,oneof=draft active completed"`
}

// CampaignFilter controls List queries. From/To select campaigns whose
// window overlaps [From, To].
type CampaignFilter struct {
	Status *CampaignStatus
	From   *Date
	To     *Date
}
