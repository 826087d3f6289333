package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/nimasrn/campaign-mailer/internal/model"
	"github.com/nimasrn/campaign-mailer/pkg/pg"
)

type ClientRepository struct {
	*pg.DB
}

func NewClientRepository(db *pg.DB) *ClientRepository {
	return &ClientRepository{
		db,
	}
}

func (r *ClientRepository) Create(ctx context.Context, c *model.Client) (*model.Client, error) {
	entity := toClientEntity(c)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, "create client")
	}

	return toClientModel(entity), nil
}

// BulkCreate inserts clients in batches and returns the affected row count.
// The ids of the inserted rows are written back into clients.
func (r *ClientRepository) BulkCreate(ctx context.Context, clients []*model.Client) (int64, error) {
	if len(clients) == 0 {
		return 0, nil
	}

	entities := toClientEntities(clients)
	res := r.Write(ctx).CreateInBatches(entities, bulkBatchSize)
	if res.Error != nil {
		return 0, translate(res.Error, "bulk create clients")
	}

	for i, e := range entities {
		clients[i].ID = e.ID
		clients[i].CreatedAt = e.CreatedAt
		clients[i].UpdatedAt = e.UpdatedAt
	}
	return res.RowsAffected, nil
}

func (r *ClientRepository) Get(ctx context.Context, id int64) (*model.Client, error) {
	var entity ClientEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, translate(err, "get client")
	}
	return toClientModel(&entity), nil
}

// MaxCSVRow returns the highest csv_row of the campaign, 0 for an empty roster.
func (r *ClientRepository) MaxCSVRow(ctx context.Context, campaignID int64) (int, error) {
	var maxRow int
	err := r.Read(ctx).
		Model(&ClientEntity{}).
		Select("COALESCE(MAX(csv_row), 0)").
		Where("campaign_id = ?", campaignID).
		Scan(&maxRow).Error
	if err != nil {
		return 0, translate(err, "max csv row")
	}
	return maxRow, nil
}

func (r *ClientRepository) ListByCampaign(ctx context.Context, campaignID int64, page model.ClientPage) ([]*model.Client, int64, error) {
	q := r.Read(ctx).Model(&ClientEntity{}).Where("campaign_id = ?", campaignID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count clients")
	}

	offset := page.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*ClientEntity
	if err := q.Order("csv_row ASC").Limit(clampLimit(page.Limit)).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, translate(err, "list clients")
	}
	return toClientModels(entities), total, nil
}

// ListRange returns the campaign's clients with start <= csv_row <= end.
func (r *ClientRepository) ListRange(ctx context.Context, campaignID int64, start, end int) ([]*model.Client, error) {
	var entities []*ClientEntity
	err := r.Read(ctx).
		Where("campaign_id = ? AND csv_row BETWEEN ? AND ?", campaignID, start, end).
		Order("csv_row ASC").
		Find(&entities).Error
	if err != nil {
		return nil, translate(err, "list client range")
	}
	return toClientModels(entities), nil
}

func (r *ClientRepository) Count(ctx context.Context, campaignID int64) (int64, error) {
	var total int64
	if err := r.Read(ctx).Model(&ClientEntity{}).Where("campaign_id = ?", campaignID).Count(&total).Error; err != nil {
		return 0, translate(err, "count clients")
	}
	return total, nil
}

func (r *ClientRepository) Update(ctx context.Context, c *model.Client) (*model.Client, error) {
	res := r.Write(ctx).
		Model(&ClientEntity{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"client_name":    c.Name,
			"client_email":   c.Email,
			"is_email_valid": c.IsEmailValid,
			"updated_at":     c.UpdatedAt,
		})
	if res.Error != nil {
		return nil, translate(res.Error, "update client")
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, c.ID)
}

func (r *ClientRepository) SetEmailValid(ctx context.Context, id int64, valid bool, now time.Time) error {
	res := r.Write(ctx).
		Model(&ClientEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_email_valid": valid, "updated_at": now})
	if res.Error != nil {
		return fmt.Errorf("set email valid: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ClientRepository) Delete(ctx context.Context, id int64) error {
	res := r.Write(ctx).Where("id = ?", id).Delete(&ClientEntity{})
	if res.Error != nil {
		return translate(res.Error, "delete client")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
