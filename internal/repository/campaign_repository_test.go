package repository

import (
	"testing"

	"github.com/nimasrn/campaign-mailer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCampaignRepository_CRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRepository(db.DB)
	ctx := ctxBg()

	c, err := repo.Create(ctx, &model.Campaign{
		Name:      "spring",
		StartDate: model.NewDate(2026, 1, 1),
		EndDate:   model.NewDate(2026, 1, 5),
		Status:    model.CampaignStatusDraft,
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01", got.StartDate.String())
	assert.Equal(t, "2026-01-05", got.EndDate.String())
	assert.Equal(t, model.CampaignStatusDraft, got.Status)

	_, err = repo.Create(ctx, &model.Campaign{Name: "spring", StartDate: got.StartDate, EndDate: got.EndDate, Status: model.CampaignStatusDraft})
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, repo.UpdateStatus(ctx, c.ID, model.CampaignStatusActive, testNow))
	got, err = repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusActive, got.Status)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, 999, model.CampaignStatusActive, testNow), ErrNotFound)

	got.Name = "spring-2026"
	got.UpdatedAt = testNow
	updated, err := repo.Update(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "spring-2026", updated.Name)

	require.NoError(t, repo.Delete(ctx, c.ID))
	_, err = repo.Get(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCampaignRepository_ListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRepository(db.DB)
	ctx := ctxBg()

	mk := func(name string, start, end model.Date, status model.CampaignStatus) {
		_, err := repo.Create(ctx, &model.Campaign{Name: name, StartDate: start, EndDate: end, Status: status})
		require.NoError(t, err)
	}
	mk("jan", model.NewDate(2026, 1, 1), model.NewDate(2026, 1, 5), model.CampaignStatusDraft)
	mk("feb", model.NewDate(2026, 2, 1), model.NewDate(2026, 2, 3), model.CampaignStatusActive)
	mk("mar", model.NewDate(2026, 3, 10), model.NewDate(2026, 3, 12), model.CampaignStatusActive)

	all, err := repo.List(ctx, model.CampaignFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active := model.CampaignStatusActive
	list, err := repo.List(ctx, model.CampaignFilter{Status: &active})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	from, to := model.NewDate(2026, 1, 4), model.NewDate(2026, 2, 1)
	list, err = repo.List(ctx, model.CampaignFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, list, 2)
	names := []string{list[0].Name, list[1].Name}
	assert.ElementsMatch(t, []string{"jan", "feb"}, names)
}

func TestCampaignRepository_RecountClients(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRepository(db.DB)
	ctx := ctxBg()

	c := seedCampaign(t, db, "recount")
	seedClients(t, db, c.ID, 4)

	total, err := repo.RecountClients(ctx, c.ID, testNow)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	got, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.TotalClients)

	_, err = repo.RecountClients(ctx, 999, testNow)
	assert.ErrorIs(t, err, ErrNotFound)
}
