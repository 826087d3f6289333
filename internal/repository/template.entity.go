package repository

import (
	"time"

	"github.com/nimasrn/campaign-mailer/internal/model"
)

type TemplateEntity struct {
	ID           int64     `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	Name         string    `db:"name"          gorm:"column:name;size:255;not null;uniqueIndex:uq_templates_name"`
	Subject      string    `db:"subject"       gorm:"column:subject;size:500;not null"`
	BodyTemplate string    `db:"body_template" gorm:"column:body_template;type:text;not null"`
	CreatedAt    time.Time `db:"created_at"    gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `db:"updated_at"    gorm:"column:updated_at;autoUpdateTime"`
}

func (TemplateEntity) TableName() string {
	return "templates"
}

func toTemplateEntity(t *model.Template) *TemplateEntity {
	if t == nil {
		return nil
	}
	return &TemplateEntity{
		ID:           t.ID,
		Name:         t.Name,
		Subject:      t.Subject,
		BodyTemplate: t.BodyTemplate,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func toTemplateModel(e *TemplateEntity) *model.Template {
	if e == nil {
		return nil
	}
	return &model.Template{
		ID:           e.ID,
		Name:         e.Name,
		Subject:      e.Subject,
		BodyTemplate: e.BodyTemplate,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func toTemplateModels(entities []*TemplateEntity) []*model.Template {
	models := make([]*model.Template, len(entities))
	for i, e := range entities {
		models[i] = toTemplateModel(e)
	}
	return models
}
