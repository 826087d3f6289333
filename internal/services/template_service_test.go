package services

import (
	"context"
	"testing"

	"github.com/nimasrn/campaign-mailer/internal/apperr"
	"github.com/nimasrn/campaign-mailer/internal/model"
	"github.com/nimasrn/campaign-mailer/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTemplateService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("trims name and stores template", func(t *testing.T) {
		repo := new(MockTemplateRepository)
		svc := NewTemplateService(repo)

		repo.On("Create", ctx, mock.MatchedBy(func(tpl *model.Template) bool {
			return tpl.Name == "welcome" && tpl.Subject == "Hi {{name}}"
		})).Return(&model.Template{ID: 1, Name: "welcome", Subject: "Hi {{name}}"}, nil)

		tpl, err := svc.Create(ctx, model.TemplateRequest{Name: "  welcome ", Subject: "Hi {{name}}", BodyTemplate: "<p>x</p>"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), tpl.ID)
		repo.AssertExpectations(t)
	})

	t.Run("missing fields are a validation error", func(t *testing.T) {
		repo := new(MockTemplateRepository)
		svc := NewTemplateService(repo)

		_, err := svc.Create(ctx, model.TemplateRequest{Name: "x"})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		assert.Contains(t, err.Error(), "subject is required")
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate name is a conflict", func(t *testing.T) {
		repo := new(MockTemplateRepository)
		svc := NewTemplateService(repo)

		repo.On("Create", ctx, mock.Anything).Return(nil, repository.ErrDuplicate)

		_, err := svc.Create(ctx, model.TemplateRequest{Name: "welcome", Subject: "s", BodyTemplate: "b"})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindConflict))
		assert.Equal(t, "template name already exists", apperr.Message(err))
	})
}

func TestTemplateService_GetAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTemplateRepository)
	svc := NewTemplateService(repo)

	repo.On("Get", ctx, int64(9)).Return(nil, repository.ErrNotFound)
	repo.On("Delete", ctx, int64(9)).Return(repository.ErrNotFound)

	_, err := svc.Get(ctx, 9)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, "template not found", apperr.Message(err))

	err = svc.Delete(ctx, 9)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestTemplateService_Update(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTemplateRepository)
	svc := NewTemplateService(repo)
	svc.now = fixedNow

	repo.On("Update", ctx, mock.MatchedBy(func(tpl *model.Template) bool {
		return tpl.ID == 3 && tpl.UpdatedAt.Equal(fixedNow())
	})).Return(&model.Template{ID: 3, Name: "renamed"}, nil)

	tpl, err := svc.Update(ctx, 3, model.TemplateRequest{Name: "renamed", Subject: "s", BodyTemplate: "b"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", tpl.Name)
	repo.AssertExpectations(t)
}
