package handlers

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nimasrn/campaign-mailer/internal/apperr"
	"github.com/nimasrn/campaign-mailer/internal/model"
	xhttp "github.com/nimasrn/campaign-mailer/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTemplateHandler_CreateTemplate(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockTemplateService)
		handler := NewTemplateHandler(svc)

		req := model.TemplateRequest{Name: "welcome", Subject: "Hi", BodyTemplate: "<p>Hello</p>"}
		body, _ := json.Marshal(req)
		svc.On("Create", mock.Anything, req).Return(&model.Template{ID: 7, Name: "welcome"}, nil)

		ctx := setupTestContext("POST", "/templates", body)
		handler.CreateTemplate(ctx)

		assert.Equal(t, xhttp.StatusCreated, ctx.Response.StatusCode())
		env := decodeEnvelope(t, ctx)
		assert.True(t, env.Success)
		var got model.Template
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, int64(7), got.ID)
		svc.AssertExpectations(t)
	})

	t.Run("invalid json", func(t *testing.T) {
		svc := new(MockTemplateService)
		handler := NewTemplateHandler(svc)

		ctx := setupTestContext("POST", "/templates", []byte("{nope"))
		handler.CreateTemplate(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
		assert.False(t, decodeEnvelope(t, ctx).Success)
		svc.AssertNotCalled(t, "Create")
	})

	t.Run("validation from service", func(t *testing.T) {
		svc := new(MockTemplateService)
		handler := NewTemplateHandler(svc)
		svc.On("Create", mock.Anything, mock.Anything).Return(nil, apperr.Validation("name is required"))

		ctx := setupTestContext("POST", "/templates", []byte(`{}`))
		handler.CreateTemplate(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
		assert.Equal(t, "name is required", decodeEnvelope(t, ctx).Message)
	})
}

func TestTemplateHandler_GetTemplate(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		svc := new(MockTemplateService)
		handler := NewTemplateHandler(svc)
		svc.On("Get", mock.Anything, int64(3)).Return(nil, apperr.NotFound("template"))

		ctx := setupTestContext("GET", "/templates/3", nil)
		ctx.SetUserValue("id", "3")
		handler.GetTemplate(ctx)

		assert.Equal(t, xhttp.StatusNotFound, ctx.Response.StatusCode())
	})

	t.Run("bad id", func(t *testing.T) {
		svc := new(MockTemplateService)
		handler := NewTemplateHandler(svc)

		ctx := setupTestContext("GET", "/templates/abc", nil)
		ctx.SetUserValue("id", "abc")
		handler.GetTemplate(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Get")
	})
}

func TestWriteFailure_HidesInternalErrors(t *testing.T) {
	svc := new(MockTemplateService)
	handler := NewTemplateHandler(svc)
	svc.On("List", mock.Anything).Return(nil, errors.New("pq: connection refused"))

	ExposeErrors(false)
	defer ExposeErrors(true)

	ctx := setupTestContext("GET", "/templates", nil)
	handler.ListTemplates(ctx)

	assert.Equal(t, xhttp.StatusInternalServerError, ctx.Response.StatusCode())
	env := decodeEnvelope(t, ctx)
	assert.Equal(t, "internal server error", env.Message)
	assert.Empty(t, env.Error)
}
