package services

import (
	"context"
	"errors"

	"github.com/nimasrn/campaign-mailer/internal/apperr"
	"github.com/nimasrn/campaign-mailer/internal/repository"
	"github.com/nimasrn/campaign-mailer/pkg/validate"
)

// Transactor runs fn in one database transaction. Repositories called with
// the ctx passed to fn take part in it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// mapRepoErr turns repository sentinels into the error taxonomy. entity names
// the record in NotFound messages.
func mapRepoErr(err error, entity string) error {
	var appErr *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(entity)
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Conflict(entity+" already exists", err)
	case errors.Is(err, repository.ErrInvalidTransition):
		return apperr.Conflict("invalid status transition for "+entity, err)
	case errors.Is(err, repository.ErrRetriesExhausted):
		return apperr.Conflict("retry budget exhausted for "+entity, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperr.Dependency("database call interrupted", err)
	default:
		return apperr.Internal(entity+" storage failure", err)
	}
}

func validateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		return apperr.Validation(err.Error())
	}
	return nil
}
