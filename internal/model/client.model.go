package model

import "time"

// Client is one roster row of a campaign, addressed by its upload position.
type Client struct {
	ID           int64     `json:"id"`
	CampaignID   int64     `json:"campaign_id"`
	CSVRow       int       `json:"csv_row"`
	Name         string    `json:"client_name"`
	Email        string    `json:"client_email"`
	IsEmailValid *bool     `json:"is_email_valid"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ClientRequest struct {
	CSVRow int    `json:"csv_row" validate:"omitempty,min=1"`
	Name   string `json:"client_name" validate:"required,max=255"`
	Email  string `json:"client_email" validate:"required,max=255"`
}

type ClientBulkRequest struct {
	Clients []ClientRequest `json:"clients" validate:"required,min=1,dive"`
}

type ClientPage struct {
	Limit  int
	Offset int
}
