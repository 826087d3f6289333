package services

import (
	"context"
	"time"

	"github.com/nimasrn/campaign-mailer/internal/model"
)

type TrackingRepository interface {
	CampaignRows(ctx context.Context, campaignID int64) ([]*model.TrackingRow, error)
	DayRows(ctx context.Context, campaignID int64, date model.Date) ([]*model.TrackingRow, error)
	StatusUpdates(ctx context.Context, campaignID int64, since *time.Time) ([]*model.StatusUpdate, error)
	ScheduleOverview(ctx context.Context, campaignID int64) ([]*model.ScheduleOverview, error)
}

// TrackingService builds the read-only dashboard views. A client without a
// covering schedule or queue entry shows up as not_queued.
type TrackingService struct {
	campaigns CampaignReader
	repo      TrackingRepository
	loc       *time.Location
	now       func() time.Time
}

func NewTrackingService(campaigns CampaignReader, repo TrackingRepository, loc *time.Location) *TrackingService {
	if loc == nil {
		loc = time.UTC
	}
	return &TrackingService{
		campaigns: campaigns,
		repo:      repo,
		loc:       loc,
		now:       time.Now,
	}
}

// Campaign returns the client x day matrix of the campaign window.
func (s *TrackingService) Campaign(ctx context.Context, campaignID int64) (*model.CampaignTracking, error) {
	campaign, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return nil, mapRepoErr(err, "campaign")
	}

	rows, err := s.repo.CampaignRows(ctx, campaignID)
	if err != nil {
		return nil, mapRepoErr(err, "tracking")
	}

	dates := make([]string, 0, model.MaxCampaignSpanDays+1)
	for _, d := range campaign.StartDate.Range(campaign.EndDate) {
		dates = append(dates, d.String())
	}

	clients := make([]*model.ClientTracking, 0)
	byID := make(map[int64]*model.ClientTracking)
	for _, row := range rows {
		ct, ok := byID[row.ClientID]
		if !ok {
			ct = &model.ClientTracking{
				ClientID:    row.ClientID,
				CSVRow:      row.CSVRow,
				ClientName:  row.ClientName,
				ClientEmail: row.ClientEmail,
				Dates:       make(map[string]model.TrackingCell, len(dates)),
			}
			for _, d := range dates {
				ct.Dates[d] = model.TrackingCell{Status: model.QueueStatusNotQueued}
			}
			byID[row.ClientID] = ct
			clients = append(clients, ct)
		}

		if row.ScheduleID == nil {
			continue
		}
		key := row.ScheduleDate.String()
		current, inWindow := ct.Dates[key]
		if !inWindow || current.QueueID != nil {
			continue
		}
		ct.Dates[key] = toTrackingCell(row)
	}

	result := &model.CampaignTracking{
		Campaign: campaign,
		Dates:    dates,
		Clients:  clients,
	}
	result.Stats.TotalClients = len(clients)
	for _, ct := range clients {
		for _, cell := range ct.Dates {
			countCell(&result.Stats, cell.Status)
		}
	}
	return result, nil
}

// Today returns one row per client for the current calendar day.
func (s *TrackingService) Today(ctx context.Context, campaignID int64) (*model.TodayTracking, error) {
	if _, err := s.campaigns.Get(ctx, campaignID); err != nil {
		return nil, mapRepoErr(err, "campaign")
	}

	today := model.DateOf(s.now().In(s.loc))

	rows, err := s.repo.DayRows(ctx, campaignID, today)
	if err != nil {
		return nil, mapRepoErr(err, "tracking")
	}

	result := &model.TodayTracking{Date: today.String(), Clients: make([]*model.TodayTrackingRow, 0)}
	byID := make(map[int64]*model.TodayTrackingRow)
	for _, row := range rows {
		tr, ok := byID[row.ClientID]
		if !ok {
			tr = &model.TodayTrackingRow{
				ClientID:    row.ClientID,
				CSVRow:      row.CSVRow,
				ClientName:  row.ClientName,
				ClientEmail: row.ClientEmail,
				Status:      model.QueueStatusNotQueued,
			}
			byID[row.ClientID] = tr
			result.Clients = append(result.Clients, tr)
		}
		if row.ScheduleID == nil || tr.QueueID != nil {
			continue
		}

		cell := toTrackingCell(row)
		tr.ScheduleID = cell.ScheduleID
		tr.QueueID = cell.QueueID
		tr.Status = cell.Status
		tr.SentAt = cell.SentAt
		tr.ErrorMessage = cell.ErrorMessage
	}
	return result, nil
}

// StatusUpdates returns entries changed after since, or all of them when
// since is nil. The returned timestamp is the next since to poll with.
func (s *TrackingService) StatusUpdates(ctx context.Context, campaignID int64, since *time.Time) (*model.StatusUpdates, error) {
	if _, err := s.campaigns.Get(ctx, campaignID); err != nil {
		return nil, mapRepoErr(err, "campaign")
	}

	now := s.now().UTC()
	if since != nil {
		utc := since.UTC()
		since = &utc
	}

	updates, err := s.repo.StatusUpdates(ctx, campaignID, since)
	if err != nil {
		return nil, mapRepoErr(err, "tracking")
	}
	if updates == nil {
		updates = make([]*model.StatusUpdate, 0)
	}
	return &model.StatusUpdates{Updates: updates, Timestamp: now}, nil
}

func (s *TrackingService) Overview(ctx context.Context, campaignID int64) ([]*model.ScheduleOverview, error) {
	if _, err := s.campaigns.Get(ctx, campaignID); err != nil {
		return nil, mapRepoErr(err, "campaign")
	}

	list, err := s.repo.ScheduleOverview(ctx, campaignID)
	if err != nil {
		return nil, mapRepoErr(err, "tracking")
	}
	if list == nil {
		list = make([]*model.ScheduleOverview, 0)
	}
	return list, nil
}

func toTrackingCell(row *model.TrackingRow) model.TrackingCell {
	cell := model.TrackingCell{
		ScheduleID:   row.ScheduleID,
		QueueID:      row.QueueID,
		Status:       model.QueueStatusNotQueued,
		SentAt:       row.SentAt,
		ErrorMessage: row.ErrorMessage,
	}
	if row.Status != nil {
		cell.Status = *row.Status
	}
	return cell
}

func countCell(stats *model.TrackingStats, status model.QueueStatus) {
	if status == model.QueueStatusNotQueued {
		return
	}
	stats.TotalScheduled++
	switch status {
	case model.QueueStatusSent:
		stats.TotalSent++
	case model.QueueStatusPending, model.QueueStatusQueued, model.QueueStatusSending:
		stats.TotalPending++
	case model.QueueStatusFailed, model.QueueStatusBounced, model.QueueStatusRejected:
		stats.TotalFailed++
	}
}
