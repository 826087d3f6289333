package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("start_row must be <= end_row"), 400},
		{"not found", NotFound("template"), 404},
		{"conflict", Conflict("campaign name already exists", cause), 409},
		{"dependency", Dependency("bulk insert", cause), 500},
		{"upstream", Upstream("workflow webhook failed", 503, []byte("down"), nil), 502},
		{"wrapped", fmt.Errorf("create schedule: %w", NotFound("campaign")), 404},
		{"plain", cause, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrorChain(t *testing.T) {
	cause := errors.New("unique violation")
	err := fmt.Errorf("svc: %w", Conflict("template name already exists", cause))

	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(err, KindNotFound))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "template name already exists", Message(err))
	assert.Equal(t, "internal server error", Message(cause))
	assert.Equal(t, "template not found", NotFound("template").Error())
	assert.Equal(t, "conflict", KindConflict.String())
}
