package services

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/nimasrn/campaign-mailer/internal/apperr"
	"github.com/nimasrn/campaign-mailer/internal/model"
	"github.com/nimasrn/campaign-mailer/pkg/logger"
)

type ClientRepository interface {
	Create(ctx context.Context, c *model.Client) (*model.Client, error)
	BulkCreate(ctx context.Context, clients []*model.Client) (int64, error)
	Get(ctx context.Context, id int64) (*model.Client, error)
	MaxCSVRow(ctx context.Context, campaignID int64) (int, error)
	ListByCampaign(ctx context.Context, campaignID int64, page model.ClientPage) ([]*model.Client, int64, error)
	ListRange(ctx context.Context, campaignID int64, start, end int) ([]*model.Client, error)
	Count(ctx context.Context, campaignID int64) (int64, error)
	Update(ctx context.Context, c *model.Client) (*model.Client, error)
	SetEmailValid(ctx context.Context, id int64, valid bool, now time.Time) error
	Delete(ctx context.Context, id int64) error
}

// RosterCampaigns is the campaign access the roster needs.
type RosterCampaigns interface {
	Get(ctx context.Context, id int64) (*model.Campaign, error)
	RecountClients(ctx context.Context, id int64, now time.Time) (int, error)
}

type ClientService struct {
	tx        Transactor
	clients   ClientRepository
	campaigns RosterCampaigns
	now       func() time.Time
}

func NewClientService(tx Transactor, clients ClientRepository, campaigns RosterCampaigns) *ClientService {
	return &ClientService{
		tx:        tx,
		clients:   clients,
		campaigns: campaigns,
		now:       time.Now,
	}
}

// ImportResult summarizes a bulk insert or CSV upload.
type ImportResult struct {
	Inserted     int `json:"inserted"`
	Skipped      int `json:"skipped"`
	FirstRow     int `json:"first_row"`
	LastRow      int `json:"last_row"`
	TotalClients int `json:"total_clients"`
}

func emailFormatValid(email string) *bool {
	valid := checkmail.ValidateFormat(email) == nil
	return &valid
}

func (s *ClientService) Create(ctx context.Context, campaignID int64, req model.ClientRequest) (*model.Client, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var created *model.Client
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.campaigns.Get(ctx, campaignID); err != nil {
			return mapRepoErr(err, "campaign")
		}

		row := req.CSVRow
		if row == 0 {
			maxRow, err := s.clients.MaxCSVRow(ctx, campaignID)
			if err != nil {
				return mapRepoErr(err, "client")
			}
			row = maxRow + 1
		}

		email := strings.TrimSpace(req.Email)
		c, err := s.clients.Create(ctx, &model.Client{
			CampaignID:   campaignID,
			CSVRow:       row,
			Name:         strings.TrimSpace(req.Name),
			Email:        email,
			IsEmailValid: emailFormatValid(email),
		})
		if err != nil {
			if apperr.Is(mapRepoErr(err, "client"), apperr.KindConflict) {
				return apperr.Conflict("csv_row already used in this campaign", err)
			}
			return mapRepoErr(err, "client")
		}
		created = c

		_, err = s.campaigns.RecountClients(ctx, campaignID, s.now().UTC())
		return mapRepoErr(err, "campaign")
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// BulkCreate inserts the clients in one statement batch. Rows without an
// explicit csv_row are numbered after the current maximum.
func (s *ClientService) BulkCreate(ctx context.Context, campaignID int64, req model.ClientBulkRequest) (*ImportResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	rows := make([]rosterRow, len(req.Clients))
	explicit := make([]int, len(req.Clients))
	for i, c := range req.Clients {
		rows[i] = rosterRow{name: strings.TrimSpace(c.Name), email: strings.TrimSpace(c.Email)}
		explicit[i] = c.CSVRow
	}
	return s.insertRoster(ctx, campaignID, rows, explicit, 0)
}

// Upload imports a CSV roster. The header is resolved through the alias
// table once; numbering continues after the campaign's highest csv_row and
// follows the record position in the file, so a skipped record leaves a gap.
func (s *ClientService) Upload(ctx context.Context, campaignID int64, r io.Reader) (*ImportResult, error) {
	rows, skipped, err := parseRoster(r)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if len(rows) == 0 {
		return nil, apperr.Validation("csv contains no client rows")
	}
	return s.insertRoster(ctx, campaignID, rows, nil, skipped)
}

func (s *ClientService) insertRoster(ctx context.Context, campaignID int64, rows []rosterRow, explicit []int, skipped int) (*ImportResult, error) {
	res := &ImportResult{Skipped: skipped}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.campaigns.Get(ctx, campaignID); err != nil {
			return mapRepoErr(err, "campaign")
		}

		base, err := s.clients.MaxCSVRow(ctx, campaignID)
		if err != nil {
			return mapRepoErr(err, "client")
		}

		next := base
		clients := make([]*model.Client, len(rows))
		for i, row := range rows {
			csvRow := 0
			if explicit != nil {
				csvRow = explicit[i]
			}
			switch {
			case csvRow > 0:
			case row.pos > 0:
				csvRow = base + row.pos
			default:
				next++
				csvRow = next
			}
			clients[i] = &model.Client{
				CampaignID:   campaignID,
				CSVRow:       csvRow,
				Name:         row.name,
				Email:        row.email,
				IsEmailValid: emailFormatValid(row.email),
			}
		}

		affected, err := s.clients.BulkCreate(ctx, clients)
		if err != nil {
			if apperr.Is(mapRepoErr(err, "client"), apperr.KindConflict) {
				return apperr.Conflict("csv_row already used in this campaign", err)
			}
			return mapRepoErr(err, "client")
		}
		if affected != int64(len(clients)) {
			return apperr.Dependency("client bulk insert incomplete", nil)
		}

		res.Inserted = len(clients)
		res.FirstRow, res.LastRow = clients[0].CSVRow, clients[0].CSVRow
		for _, c := range clients {
			if c.CSVRow < res.FirstRow {
				res.FirstRow = c.CSVRow
			}
			if c.CSVRow > res.LastRow {
				res.LastRow = c.CSVRow
			}
		}

		res.TotalClients, err = s.campaigns.RecountClients(ctx, campaignID, s.now().UTC())
		return mapRepoErr(err, "campaign")
	})
	if err != nil {
		return nil, err
	}

	logger.Info("clients imported", "campaign_id", campaignID, "inserted", res.Inserted, "skipped", res.Skipped, "total_clients", res.TotalClients)
	return res, nil
}

func (s *ClientService) Get(ctx context.Context, id int64) (*model.Client, error) {
	c, err := s.clients.Get(ctx, id)
	return c, mapRepoErr(err, "client")
}

func (s *ClientService) List(ctx context.Context, campaignID int64, page model.ClientPage) ([]*model.Client, int64, error) {
	list, total, err := s.clients.ListByCampaign(ctx, campaignID, page)
	return list, total, mapRepoErr(err, "client")
}

func (s *ClientService) Range(ctx context.Context, campaignID int64, start, end int) ([]*model.Client, error) {
	if start < 1 || end < start {
		return nil, apperr.Validation("start_row must be >= 1 and <= end_row")
	}
	list, err := s.clients.ListRange(ctx, campaignID, start, end)
	return list, mapRepoErr(err, "client")
}

func (s *ClientService) Count(ctx context.Context, campaignID int64) (int64, error) {
	n, err := s.clients.Count(ctx, campaignID)
	return n, mapRepoErr(err, "client")
}

func (s *ClientService) Update(ctx context.Context, id int64, req model.ClientRequest) (*model.Client, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	current, err := s.clients.Get(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "client")
	}
	current.Name = strings.TrimSpace(req.Name)
	current.Email = strings.TrimSpace(req.Email)
	current.IsEmailValid = emailFormatValid(current.Email)
	current.UpdatedAt = s.now().UTC()

	updated, err := s.clients.Update(ctx, current)
	return updated, mapRepoErr(err, "client")
}

// ValidateEmail recomputes the client's email format flag.
func (s *ClientService) ValidateEmail(ctx context.Context, id int64) (*model.Client, error) {
	c, err := s.clients.Get(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "client")
	}

	valid := emailFormatValid(c.Email)
	if err = s.clients.SetEmailValid(ctx, id, *valid, s.now().UTC()); err != nil {
		return nil, mapRepoErr(err, "client")
	}
	c.IsEmailValid = valid
	return c, nil
}

func (s *ClientService) Delete(ctx context.Context, id int64) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.clients.Get(ctx, id)
		if err != nil {
			return mapRepoErr(err, "client")
		}
		if err = s.clients.Delete(ctx, id); err != nil {
			return mapRepoErr(err, "client")
		}
		_, err = s.campaigns.RecountClients(ctx, c.CampaignID, s.now().UTC())
		if apperr.Is(mapRepoErr(err, "campaign"), apperr.KindNotFound) {
			// orphaned roster of a deleted campaign
			return nil
		}
		return mapRepoErr(err, "campaign")
	})
}
