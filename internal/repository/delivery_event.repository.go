package repository

import (
	"context"

	"github.com/nimasrn/campaign-mailer/internal/model"
	"github.com/nimasrn/campaign-mailer/pkg/pg"
)

type DeliveryEventRepository struct {
	*pg.DB
}

func NewDeliveryEventRepository(db *pg.DB) *DeliveryEventRepository {
	return &DeliveryEventRepository{
		db,
	}
}

// Create stores the event. A second event with the same event_id yields
// ErrDuplicate.
func (r *DeliveryEventRepository) Create(ctx context.Context, ev *model.DeliveryEvent) (*model.DeliveryEvent, error) {
	entity := toDeliveryEventEntity(ev)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, "create delivery event")
	}

	return toDeliveryEventModel(entity), nil
}

func (r *DeliveryEventRepository) ListByQueue(ctx context.Context, queueID int64) ([]*model.DeliveryEvent, error) {
	var entities []*DeliveryEventEntity
	err := r.Read(ctx).
		Where("queue_id = ?", queueID).
		Order("occurred_at ASC, id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, translate(err, "list delivery events")
	}
	return toDeliveryEventModels(entities), nil
}
