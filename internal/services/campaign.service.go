package services

import (
	"context"
	"strings"
	"time"

	"github.com/nimasrn/campaign-mailer/internal/apperr"
	"github.com/nimasrn/campaign-mailer/internal/model"
	"github.com/nimasrn/campaign-mailer/pkg/logger"
)

type CampaignRepository interface {
	Create(ctx context.Context, c *model.Campaign) (*model.Campaign, error)
	Get(ctx context.Context, id int64) (*model.Campaign, error)
	List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, error)
	Update(ctx context.Context, c *model.Campaign) (*model.Campaign, error)
	UpdateStatus(ctx context.Context, id int64, status model.CampaignStatus, now time.Time) error
	Delete(ctx context.Context, id int64) error
}

type CampaignService struct {
	repo CampaignRepository
	now  func() time.Time
}

func NewCampaignService(repo CampaignRepository) *CampaignService {
	return &CampaignService{
		repo: repo,
		now:  time.Now,
	}
}

// validateWindow enforces start <= end and a window of at most five days.
func validateWindow(start, end model.Date) error {
	if start.IsZero() {
		return apperr.Validation("start_date is required")
	}
	if end.IsZero() {
		return apperr.Validation("end_date is required")
	}
	span := start.DaysUntil(end)
	if span < 0 {
		return apperr.Validation("end_date must be on or after start_date")
	}
	if span > model.MaxCampaignSpanDays {
		return apperr.Validationf("campaign window cannot exceed %d days", model.MaxCampaignSpanDays+1)
	}
	return nil
}

func (s *CampaignService) Create(ctx context.Context, req model.CampaignCreateRequest) (*model.Campaign, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := validateWindow(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	c, err := s.repo.Create(ctx, &model.Campaign{
		Name:        req.Name,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CSVFilePath: req.CSVFilePath,
		Status:      model.CampaignStatusDraft,
	})
	if err != nil {
		return nil, s.mapWriteErr(err)
	}

	logger.Info("campaign created", "campaign_id", c.ID, "start_date", c.StartDate.String(), "end_date", c.EndDate.String())
	return c, nil
}

func (s *CampaignService) Get(ctx context.Context, id int64) (*model.Campaign, error) {
	c, err := s.repo.Get(ctx, id)
	return c, mapRepoErr(err, "campaign")
}

func (s *CampaignService) List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, error) {
	if f.Status != nil {
		switch *f.Status {
		case model.CampaignStatusDraft, model.CampaignStatusActive, model.CampaignStatusCompleted:
		default:
			return nil, apperr.Validationf("unknown campaign status %q", *f.Status)
		}
	}
	list, err := s.repo.List(ctx, f)
	return list, mapRepoErr(err, "campaign")
}

func (s *CampaignService) Update(ctx context.Context, id int64, req model.CampaignUpdateRequest) (*model.Campaign, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := validateWindow(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "campaign")
	}

	current.Name = req.Name
	current.StartDate = req.StartDate
	current.EndDate = req.EndDate
	current.CSVFilePath = req.CSVFilePath
	if req.Status != "" {
		current.Status = req.Status
	}
	current.UpdatedAt = s.now().UTC()

	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return nil, s.mapWriteErr(err)
	}
	return updated, nil
}

func (s *CampaignService) UpdateStatus(ctx context.Context, id int64, req model.CampaignStatusRequest) (*model.Campaign, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status, s.now().UTC()); err != nil {
		return nil, mapRepoErr(err, "campaign")
	}

	logger.Info("campaign status changed", "campaign_id", id, "status", string(req.Status))
	return s.Get(ctx, id)
}

// Delete removes the campaign record only. Its roster, schedules and queue
// entries stay behind.
func (s *CampaignService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoErr(err, "campaign")
	}
	logger.Warn("campaign deleted without cascade", "campaign_id", id)
	return nil
}

func (s *CampaignService) mapWriteErr(err error) error {
	mapped := mapRepoErr(err, "campaign")
	if apperr.Is(mapped, apperr.KindConflict) {
		return apperr.Conflict("campaign name already exists", err)
	}
	return mapped
}
