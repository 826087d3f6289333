package repository

import (
	"time"

	"github.com/nimasrn/campaign-mailer/internal/model"
)

type ClientEntity struct {
	ID           int64     `db:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	CampaignID   int64     `db:"campaign_id"    gorm:"column:campaign_id;not null;uniqueIndex:uq_campaign_clients_row,priority:1"`
	CSVRow       int       `db:"csv_row"        gorm:"column:csv_row;not null;uniqueIndex:uq_campaign_clients_row,priority:2"`
	Name         string    `db:"client_name"    gorm:"column:client_name;size:255;not null"`
	Email        string    `db:"client_email"   gorm:"column:client_email;size:255;not null"`
	IsEmailValid *bool     `db:"is_email_valid" gorm:"column:is_email_valid"`
	CreatedAt    time.Time `db:"created_at"     gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `db:"updated_at"     gorm:"column:updated_at;autoUpdateTime"`
}

func (ClientEntity) TableName() string {
	return "campaign_clients"
}

func toClientEntity(c *model.Client) *ClientEntity {
	if c == nil {
		return nil
	}
	return &ClientEntity{
		ID:           c.ID,
		CampaignID:   c.CampaignID,
		CSVRow:       c.CSVRow,
		Name:         c.Name,
		Email:        c.Email,
		IsEmailValid: c.IsEmailValid,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toClientEntities(clients []*model.Client) []*ClientEntity {
	entities := make([]*ClientEntity, len(clients))
	for i, c := range clients {
		entities[i] = toClientEntity(c)
	}
	return entities
}

func toClientModel(e *ClientEntity) *model.Client {
	if e == nil {
		return nil
	}
	return &model.Client{
		ID:           e.ID,
		CampaignID:   e.CampaignID,
		CSVRow:       e.CSVRow,
		Name:         e.Name,
		Email:        e.Email,
		IsEmailValid: e.IsEmailValid,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func toClientModels(entities []*ClientEntity) []*model.Client {
	models := make([]*model.Client, len(entities))
	for i, e := range entities {
		models[i] = toClientModel(e)
	}
	return models
}
