package repository

import (
	"time"

	"github.com/nimasrn/campaign-mailer/internal/model"
)

type ScheduleEntity struct {
	ID           int64      `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	CampaignID   int64      `db:"campaign_id"   gorm:"column:campaign_id;not null;uniqueIndex:uq_campaign_schedules_slot,priority:1"`
	ScheduleDate model.Date `db:"schedule_date" gorm:"column:schedule_date;type:date;not null;uniqueIndex:uq_campaign_schedules_slot,priority:2"`
	TemplateID   int64      `db:"template_id"   gorm:"column:template_id;not null"`
	StartRow     int        `db:"start_row"     gorm:"column:start_row;not null;uniqueIndex:uq_campaign_schedules_slot,priority:3"`
	EndRow       int        `db:"end_row"       gorm:"column:end_row;not null;uniqueIndex:uq_campaign_schedules_slot,priority:4"`
	Status       string     `db:"status"        gorm:"column:status;size:20;not null;index:idx_campaign_schedules_status"`
	CreatedAt    time.Time  `db:"created_at"    gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `db:"updated_at"    gorm:"column:updated_at;autoUpdateTime"`
}

func (ScheduleEntity) TableName() string {
	return "campaign_schedules"
}

func toScheduleEntity(s *model.Schedule) *ScheduleEntity {
	if s == nil {
		return nil
	}
	return &ScheduleEntity{
		ID:           s.ID,
		CampaignID:   s.CampaignID,
		ScheduleDate: s.ScheduleDate,
		TemplateID:   s.TemplateID,
		StartRow:     s.StartRow,
		EndRow:       s.EndRow,
		Status:       string(s.Status),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func toScheduleModel(e *ScheduleEntity) *model.Schedule {
	if e == nil {
		return nil
	}
	return &model.Schedule{
		ID:           e.ID,
		CampaignID:   e.CampaignID,
		ScheduleDate: e.ScheduleDate,
		TemplateID:   e.TemplateID,
		StartRow:     e.StartRow,
		EndRow:       e.EndRow,
		Status:       model.ScheduleStatus(e.Status),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func toScheduleModels(entities []*ScheduleEntity) []*model.Schedule {
	models := make([]*model.Schedule, len(entities))
	for i, e := range entities {
		models[i] = toScheduleModel(e)
	}
	return models
}
