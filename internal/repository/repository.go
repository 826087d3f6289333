package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("duplicate record")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrRetriesExhausted  = errors.New("retries exhausted")
)

const defaultListLimit = 50
const maxListLimit = 1000

// bulkBatchSize keeps multi-row inserts under the bind parameter limits of
// both postgres and sqlite.
const bulkBatchSize = 500

// translate maps driver errors onto the package sentinels.
func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// Entities lists every table model, in dependency order.
func Entities() []interface{} {
	return []interface{}{
		&TemplateEntity{},
		&CampaignEntity{},
		&ClientEntity{},
		&ScheduleEntity{},
		&QueueEntity{},
		&DeliveryEventEntity{},
	}
}
