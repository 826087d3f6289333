package repository

import (
	"context"
	"time"

	"github.com/nimasrn/campaign-mailer/internal/model"
	"github.com/nimasrn/campaign-mailer/pkg/pg"
)

type CampaignRepository struct {
	*pg.DB
}

func NewCampaignRepository(db *pg.DB) *CampaignRepository {
	return &CampaignRepository{
		db,
	}
}

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) (*model.Campaign, error) {
	entity := toCampaignEntity(c)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, "create campaign")
	}

	return toCampaignModel(entity), nil
}

func (r *CampaignRepository) Get(ctx context.Context, id int64) (*model.Campaign, error) {
	var entity CampaignEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, translate(err, "get campaign")
	}
	return toCampaignModel(&entity), nil
}

func (r *CampaignRepository) List(ctx context.Context, f model.CampaignFilter) ([]*model.Campaign, error) {
	q := r.Read(ctx).Model(&CampaignEntity{})

	if f.Status != nil {
		q = q.Where("status = ?", string(*f.Status))
	}
	// overlap with [From, To]
	if f.From != nil {
		q = q.Where("end_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("start_date <= ?", *f.To)
	}

	var entities []*CampaignEntity
	if err := q.Order("created_at DESC, id DESC").Find(&entities).Error; err != nil {
		return nil, translate(err, "list campaigns")
	}
	return toCampaignModels(entities), nil
}

func (r *CampaignRepository) Update(ctx context.Context, c *model.Campaign) (*model.Campaign, error) {
	res := r.Write(ctx).
		Model(&CampaignEntity{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"campaign_name": c.Name,
			"start_date":    c.StartDate,
			"end_date":      c.EndDate,
			"csv_file_path": c.CSVFilePath,
			"status":        string(c.Status),
			"updated_at":    c.UpdatedAt,
		})
	if res.Error != nil {
		return nil, translate(res.Error, "update campaign")
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, c.ID)
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, id int64, status model.CampaignStatus, now time.Time) error {
	res := r.Write(ctx).
		Model(&CampaignEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": string(status), "updated_at": now})
	if res.Error != nil {
		return translate(res.Error, "update campaign status")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecountClients sets total_clients from the roster and returns the new count.
func (r *CampaignRepository) RecountClients(ctx context.Context, id int64, now time.Time) (int, error) {
	res := r.Write(ctx).Exec(
		`UPDATE campaigns
		    SET total_clients = (SELECT COUNT(*) FROM campaign_clients WHERE campaign_id = ?),
		        updated_at = ?
		  WHERE id = ?`,
		id, now, id)
	if res.Error != nil {
		return 0, translate(res.Error, "recount clients")
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}

	var total int
	if err := r.Write(ctx).Model(&CampaignEntity{}).Select("total_clients").Where("id = ?", id).Scan(&total).Error; err != nil {
		return 0, translate(err, "recount clients")
	}
	return total, nil
}

// Delete removes only the campaign row; roster, schedules and queue rows are
// left in place.
func (r *CampaignRepository) Delete(ctx context.Context, id int64) error {
	res := r.Write(ctx).Where("id = ?", id).Delete(&CampaignEntity{})
	if res.Error != nil {
		return translate(res.Error, "delete campaign")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
