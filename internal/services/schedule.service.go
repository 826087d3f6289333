package services

import (
	"context"
	"errors"
	"time"

	"github.com/nimasrn/campaign-mailer/internal/apperr"
	"github.com/nimasrn/campaign-mailer/internal/model"
	"github.com/nimasrn/campaign-mailer/pkg/htmltext"
	"github.com/nimasrn/campaign-mailer/pkg/logger"
	"github.com/nimasrn/campaign-mailer/pkg/prom"
)

type ScheduleRepository interface {
	Create(ctx context.Context, s *model.Schedule) (*model.Schedule, error)
	Get(ctx context.Context, id int64) (*model.Schedule, error)
	ExistsSlot(ctx context.Context, campaignID int64, date model.Date, startRow, endRow int) (bool, error)
	ListByCampaign(ctx context.Context, campaignID int64) ([]*model.Schedule, error)
	List(ctx context.Context, f model.ScheduleFilter) ([]*model.Schedule, error)
	UpdateStatus(ctx context.Context, id int64, status model.ScheduleStatus, from []model.ScheduleStatus, now time.Time) error
	Delete(ctx context.Context, id int64) error
}

type CampaignReader interface {
	Get(ctx context.Context, id int64) (*model.Campaign, error)
}

type TemplateReader interface {
	Get(ctx context.Context, id int64) (*model.Template, error)
}

type ClientRangeReader interface {
	ListRange(ctx context.Context, campaignID int64, start, end int) ([]*model.Client, error)
}

type QueueWriter interface {
	BulkCreate(ctx context.Context, entries []*model.QueueEntry) (int64, error)
	DeleteBySchedule(ctx context.Context, scheduleID int64, statuses ...model.QueueStatus) (int64, error)
}

type ScheduleOptions struct {
	// Location decides the calendar day and the midnight of scheduled_at.
	Location   *time.Location
	MaxRetries int
}

// ScheduleService materializes schedules into queue entries.
type ScheduleService struct {
	tx        Transactor
	campaigns CampaignReader
	templates TemplateReader
	clients   ClientRangeReader
	schedules ScheduleRepository
	queue     QueueWriter
	loc       *time.Location
	retries   int
	now       func() time.Time
}

func NewScheduleService(tx Transactor, campaigns CampaignReader, templates TemplateReader, clients ClientRangeReader,
	schedules ScheduleRepository, queue QueueWriter, opts ScheduleOptions) *ScheduleService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = model.DefaultMaxRetries
	}
	return &ScheduleService{
		tx:        tx,
		campaigns: campaigns,
		templates: templates,
		clients:   clients,
		schedules: schedules,
		queue:     queue,
		loc:       opts.Location,
		retries:   opts.MaxRetries,
		now:       time.Now,
	}
}

// Today is the current calendar day of the service location.
func (s *ScheduleService) Today() model.Date {
	return model.DateOf(s.now().In(s.loc))
}

// Create materializes one schedule: it stores the schedule and one pending
// queue entry per client in the row range, all in one transaction. The same
// campaign, date and row range can only be scheduled once.
func (s *ScheduleService) Create(ctx context.Context, req model.ScheduleCreateRequest) (*model.ScheduleResult, error) {
	if req.ScheduleDate.IsZero() {
		return nil, apperr.Validation("schedule_date is required")
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	result := &model.ScheduleResult{}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		campaign, err := s.campaigns.Get(ctx, req.CampaignID)
		if err != nil {
			return mapRepoErr(err, "campaign")
		}
		if req.ScheduleDate.Before(campaign.StartDate) || req.ScheduleDate.After(campaign.EndDate) {
			return apperr.Validationf("schedule_date %s is outside the campaign window %s to %s",
				req.ScheduleDate, campaign.StartDate, campaign.EndDate)
		}

		exists, err := s.schedules.ExistsSlot(ctx, req.CampaignID, req.ScheduleDate, req.StartRow, req.EndRow)
		if err != nil {
			return mapRepoErr(err, "schedule")
		}
		if exists {
			return apperr.Conflict("schedule already exists for this date and row range", nil)
		}

		schedule, err := s.schedules.Create(ctx, &model.Schedule{
			CampaignID:   req.CampaignID,
			ScheduleDate: req.ScheduleDate,
			TemplateID:   req.TemplateID,
			StartRow:     req.StartRow,
			EndRow:       req.EndRow,
			Status:       model.ScheduleStatusPending,
		})
		if err != nil {
			return mapRepoErr(err, "schedule")
		}
		result.Schedule = schedule

		template, err := s.templates.Get(ctx, req.TemplateID)
		if err != nil {
			if !apperr.Is(mapRepoErr(err, "template"), apperr.KindNotFound) {
				return mapRepoErr(err, "template")
			}
			if delErr := s.schedules.Delete(ctx, schedule.ID); delErr != nil {
				return errors.Join(apperr.NotFound("template"), mapRepoErr(delErr, "schedule"))
			}
			logger.Warn("schedule rolled back, template missing", "schedule_id", schedule.ID, "template_id", req.TemplateID)
			return apperr.NotFound("template")
		}
		result.Template = template.Name

		clients, err := s.clients.ListRange(ctx, req.CampaignID, req.StartRow, req.EndRow)
		if err != nil {
			return mapRepoErr(err, "client")
		}
		result.ClientsMatched = len(clients)
		if len(clients) == 0 {
			return nil
		}

		entries := s.buildEntries(schedule, template, clients)
		affected, err := s.queue.BulkCreate(ctx, entries)
		if err != nil {
			return apperr.Dependency("queue bulk insert failed", err)
		}
		if affected != int64(len(entries)) {
			return apperr.Dependency("queue bulk insert incomplete", nil)
		}
		result.EmailsQueued = len(entries)
		return nil
	})
	if err != nil {
		if apperr.Is(err, apperr.KindDependency) {
			logger.Error("materialization failed", "campaign_id", req.CampaignID, "err", err)
		}
		return nil, err
	}

	prom.AddEmailsMaterialized(result.EmailsQueued)
	logger.Info("schedule materialized",
		"campaign_id", req.CampaignID,
		"schedule_id", result.Schedule.ID,
		"schedule_date", req.ScheduleDate.String(),
		"clients_matched", result.ClientsMatched,
		"emails_queued", result.EmailsQueued)
	return result, nil
}

// buildEntries snapshots the template into one pending entry per client,
// due at 00:00 of the schedule date.
func (s *ScheduleService) buildEntries(schedule *model.Schedule, template *model.Template, clients []*model.Client) []*model.QueueEntry {
	scheduledAt := schedule.ScheduleDate.StartOfDay(s.loc).UTC()
	bodyText := htmltext.FromHTML(template.BodyTemplate)

	entries := make([]*model.QueueEntry, len(clients))
	for i, c := range clients {
		entries[i] = &model.QueueEntry{
			CampaignID:  schedule.CampaignID,
			ScheduleID:  schedule.ID,
			ClientID:    c.ID,
			TemplateID:  template.ID,
			ClientName:  c.Name,
			ClientEmail: c.Email,
			Subject:     template.Subject,
			BodyHTML:    template.BodyTemplate,
			BodyText:    bodyText,
			Status:      model.QueueStatusPending,
			ScheduledAt: scheduledAt,
			RetryCount:  0,
			MaxRetries:  s.retries,
		}
	}
	return entries
}

func (s *ScheduleService) Get(ctx context.Context, id int64) (*model.Schedule, error) {
	sc, err := s.schedules.Get(ctx, id)
	return sc, mapRepoErr(err, "schedule")
}

func (s *ScheduleService) ListByCampaign(ctx context.Context, campaignID int64) ([]*model.Schedule, error) {
	list, err := s.schedules.ListByCampaign(ctx, campaignID)
	return list, mapRepoErr(err, "schedule")
}

func (s *ScheduleService) List(ctx context.Context, f model.ScheduleFilter) ([]*model.Schedule, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, apperr.Validationf("unknown schedule status %q", *f.Status)
	}
	list, err := s.schedules.List(ctx, f)
	return list, mapRepoErr(err, "schedule")
}

// UpdateStatus sets the schedule status. Completed and cancelled schedules
// are final.
func (s *ScheduleService) UpdateStatus(ctx context.Context, id int64, req model.ScheduleStatusRequest) (*model.Schedule, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	from := []model.ScheduleStatus{model.ScheduleStatusPending, model.ScheduleStatusProcessing, model.ScheduleStatusFailed}
	if err := s.schedules.UpdateStatus(ctx, id, req.Status, from, s.now().UTC()); err != nil {
		return nil, mapRepoErr(err, "schedule")
	}

	logger.Info("schedule status changed", "schedule_id", id, "status", string(req.Status))
	return s.Get(ctx, id)
}

// Cancel stops an open schedule and drops its entries that were not picked up.
func (s *ScheduleService) Cancel(ctx context.Context, id int64) (int64, error) {
	var removed int64
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		open := []model.ScheduleStatus{model.ScheduleStatusPending, model.ScheduleStatusProcessing}
		if err := s.schedules.UpdateStatus(ctx, id, model.ScheduleStatusCancelled, open, s.now().UTC()); err != nil {
			return mapRepoErr(err, "schedule")
		}

		var err error
		removed, err = s.queue.DeleteBySchedule(ctx, id, model.QueueStatusPending, model.QueueStatusQueued)
		return mapRepoErr(err, "queue entry")
	})
	if err != nil {
		return 0, err
	}

	logger.Info("schedule cancelled", "schedule_id", id, "entries_removed", removed)
	return removed, nil
}

// Delete removes the schedule together with its queue entries.
func (s *ScheduleService) Delete(ctx context.Context, id int64) (int64, error) {
	var removed int64
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.schedules.Get(ctx, id); err != nil {
			return mapRepoErr(err, "schedule")
		}

		var err error
		removed, err = s.queue.DeleteBySchedule(ctx, id)
		if err != nil {
			return mapRepoErr(err, "queue entry")
		}
		return mapRepoErr(s.schedules.Delete(ctx, id), "schedule")
	})
	if err != nil {
		return 0, err
	}

	logger.Info("schedule deleted", "schedule_id", id, "entries_removed", removed)
	return removed, nil
}

// DeleteQueue empties the schedule's queue and keeps the schedule.
func (s *ScheduleService) DeleteQueue(ctx context.Context, id int64) (int64, error) {
	if _, err := s.schedules.Get(ctx, id); err != nil {
		return 0, mapRepoErr(err, "schedule")
	}
	removed, err := s.queue.DeleteBySchedule(ctx, id)
	if err != nil {
		return 0, mapRepoErr(err, "queue entry")
	}

	logger.Info("schedule queue cleared", "schedule_id", id, "entries_removed", removed)
	return removed, nil
}
