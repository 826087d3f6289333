package model

import "time"

type Template struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Subject      string    `json:"subject"`
	BodyTemplate string    `json:"body_template"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type TemplateRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	Subject      string `json:"subject" validate:"required,max=500"`
	BodyTemplate string `json:"body_template" validate:"required"`
}
