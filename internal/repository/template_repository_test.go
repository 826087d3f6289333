package repository

import (
	"testing"

	"github.com/nimasrn/campaign-mailer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTemplateRepository(db.DB)
	ctx := ctxBg()

	created, err := repo.Create(ctx, &model.Template{Name: "welcome", Subject: "Hi {{name}}", BodyTemplate: "<p>Hello</p>"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	t.Run("duplicate name", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.Template{Name: "welcome", Subject: "x", BodyTemplate: "y"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("update", func(t *testing.T) {
		created.Subject = "Hello again"
		created.UpdatedAt = testNow
		updated, err := repo.Update(ctx, created)
		require.NoError(t, err)
		assert.Equal(t, "Hello again", updated.Subject)
	})

	t.Run("update missing", func(t *testing.T) {
		_, err := repo.Update(ctx, &model.Template{ID: 999, Name: "n", Subject: "s", BodyTemplate: "b"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list and delete", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.Template{Name: "reminder", Subject: "s", BodyTemplate: "b"})
		require.NoError(t, err)

		list, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 2)

		require.NoError(t, repo.Delete(ctx, created.ID))
		_, err = repo.Get(ctx, created.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, created.ID), ErrNotFound)
	})
}
