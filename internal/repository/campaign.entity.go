package repository

import (
	"time"

	"github.com/nimasrn/campaign-mailer/internal/model"
)

type CampaignEntity struct {
	ID           int64      `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	Name         string     `db:"campaign_name" gorm:"column:campaign_name;size:255;not null;uniqueIndex:uq_campaigns_name"`
	StartDate    model.Date `db:"start_date"    gorm:"column:start_date;type:date;not null"`
	EndDate      model.Date `db:"end_date"      gorm:"column:end_date;type:date;not null"`
	TotalClients int        `db:"total_clients" gorm:"column:total_clients;not null"`
	CSVFilePath  *string    `db:"csv_file_path" gorm:"column:csv_file_path;size:500"`
	Status       string     `db:"status"        gorm:"column:status;size:20;not null;index:idx_campaigns_status"`
	CreatedAt    time.Time  `db:"created_at"    gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `db:"updated_at"    gorm:"column:updated_at;autoUpdateTime"`
}

func (CampaignEntity) TableName() string {
	return "campaigns"
}

func toCampaignEntity(c *model.Campaign) *CampaignEntity {
	if c == nil {
		return nil
	}
	return &CampaignEntity{
		ID:           c.ID,
		Name:         c.Name,
		StartDate:    c.StartDate,
		EndDate:      c.EndDate,
		TotalClients: c.TotalClients,
		CSVFilePath:  c.CSVFilePath,
		Status:       string(c.Status),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toCampaignModel(e *CampaignEntity) *model.Campaign {
	if e == nil {
		return nil
	}
	return &model.Campaign{
		ID:           e.ID,
		Name:         e.Name,
		StartDate:    e.StartDate,
		EndDate:      e.EndDate,
		TotalClients: e.TotalClients,
		CSVFilePath:  e.CSVFilePath,
		Status:       model.CampaignStatus(e.Status),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func toCampaignModels(entities []*CampaignEntity) []*model.Campaign {
	models := make([]*model.Campaign, len(entities))
	for i, e := range entities {
		models[i] = toCampaignModel(e)
	}
	return models
}
