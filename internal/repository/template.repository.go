package repository

import (
	"context"

	"github.com/nimasrn/campaign-mailer/internal/model"
	"github.com/nimasrn/campaign-mailer/pkg/pg"
)

type TemplateRepository struct {
	*pg.DB
}

func NewTemplateRepository(db *pg.DB) *TemplateRepository {
	return &TemplateRepository{
		db,
	}
}

func (r *TemplateRepository) Create(ctx context.Context, t *model.Template) (*model.Template, error) {
	entity := toTemplateEntity(t)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, "create template")
	}

	return toTemplateModel(entity), nil
}

func (r *TemplateRepository) Get(ctx context.Context, id int64) (*model.Template, error) {
	var entity TemplateEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, translate(err, "get template")
	}
	return toTemplateModel(&entity), nil
}

func (r *TemplateRepository) List(ctx context.Context) ([]*model.Template, error) {
	var entities []*TemplateEntity
	if err := r.Read(ctx).Order("created_at DESC, id DESC").Find(&entities).Error; err != nil {
		return nil, translate(err, "list templates")
	}
	return toTemplateModels(entities), nil
}

func (r *TemplateRepository) Update(ctx context.Context, t *model.Template) (*model.Template, error) {
	res := r.Write(ctx).
		Model(&TemplateEntity{}).
		Where("id = ?", t.ID).
		Updates(map[string]interface{}{
			"name":          t.Name,
			"subject":       t.Subject,
			"body_template": t.BodyTemplate,
			"updated_at":    t.UpdatedAt,
		})
	if res.Error != nil {
		return nil, translate(res.Error, "update template")
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, t.ID)
}

func (r *TemplateRepository) Delete(ctx context.Context, id int64) error {
	res := r.Write(ctx).Where("id = ?", id).Delete(&TemplateEntity{})
	if res.Error != nil {
		return translate(res.Error, "delete template")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
