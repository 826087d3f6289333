package services

import (
	"context"
	"strings"
	"time"

	"github.com/nimasrn/campaign-mailer/internal/apperr"
	"github.com/nimasrn/campaign-mailer/internal/model"
	"github.com/nimasrn/campaign-mailer/pkg/logger"
)

type TemplateRepository interface {
	Create(ctx context.Context, t *model.Template) (*model.Template, error)
	Get(ctx context.Context, id int64) (*model.Template, error)
	List(ctx context.Context) ([]*model.Template, error)
	Update(ctx context.Context, t *model.Template) (*model.Template, error)
	Delete(ctx context.Context, id int64) error
}

type TemplateService struct {
	repo TemplateRepository
	now  func() time.Time
}

func NewTemplateService(repo TemplateRepository) *TemplateService {
	return &TemplateService{
		repo: repo,
		now:  time.Now,
	}
}

func (s *TemplateService) Create(ctx context.Context, req model.TemplateRequest) (*model.Template, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	t, err := s.repo.Create(ctx, &model.Template{
		Name:         req.Name,
		Subject:      req.Subject,
		BodyTemplate: req.BodyTemplate,
	})
	if err != nil {
		return nil, s.mapWriteErr(err)
	}

	logger.Info("template created", "template_id", t.ID, "name", t.Name)
	return t, nil
}

func (s *TemplateService) Get(ctx context.Context, id int64) (*model.Template, error) {
	t, err := s.repo.Get(ctx, id)
	return t, mapRepoErr(err, "template")
}

func (s *TemplateService) List(ctx context.Context) ([]*model.Template, error) {
	list, err := s.repo.List(ctx)
	return list, mapRepoErr(err, "template")
}

// Update changes the template record only; queue entries materialized earlier
// keep their own copy of subject and body.
func (s *TemplateService) Update(ctx context.Context, id int64, req model.TemplateRequest) (*model.Template, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	t, err := s.repo.Update(ctx, &model.Template{
		ID:           id,
		Name:         req.Name,
		Subject:      req.Subject,
		BodyTemplate: req.BodyTemplate,
		UpdatedAt:    s.now().UTC(),
	})
	if err != nil {
		return nil, s.mapWriteErr(err)
	}
	return t, nil
}

func (s *TemplateService) Delete(ctx context.Context, id int64) error {
	return mapRepoErr(s.repo.Delete(ctx, id), "template")
}

func (s *TemplateService) mapWriteErr(err error) error {
	mapped := mapRepoErr(err, "template")
	if apperr.Is(mapped, apperr.KindConflict) {
		return apperr.Conflict("template name already exists", err)
	}
	return mapped
}
