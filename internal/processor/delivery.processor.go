package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nimasrn/campaign-mailer/internal/model"
	"github.com/nimasrn/campaign-mailer/internal/queue"
	"github.com/nimasrn/campaign-mailer/internal/repository"
	"github.com/nimasrn/campaign-mailer/pkg/logger"
	"github.com/nimasrn/campaign-mailer/pkg/prom"
)

type DeliveryEventRepository interface {
	Create(ctx context.Context, ev *model.DeliveryEvent) (*model.DeliveryEvent, error)
}

// DeliveryEventProcessor persists delivery events published by the API into
// the delivery_events audit table, once per event id.
type DeliveryEventProcessor struct {
	events      DeliveryEventRepository
	idempotency *Idempotency
}

func NewDeliveryEventProcessor(events DeliveryEventRepository, idempotency *Idempotency) *DeliveryEventProcessor {
	return &DeliveryEventProcessor{events: events, idempotency: idempotency}
}

func (p *DeliveryEventProcessor) GetType() string {
	return "delivery_event"
}

func (p *DeliveryEventProcessor) Process(ctx context.Context, msg *queue.Message) error {
	var ev model.DeliveryEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("malformed delivery event", "stream_id", msg.ID, "error", err)
		return msg.DeadLetter("malformed payload: " + err.Error())
	}
	if ev.EventID == "" {
		ev.EventID = msg.Headers["event_id"]
	}
	if ev.EventID == "" || ev.QueueID == 0 || !ev.Status.Valid() {
		logger.Error("incomplete delivery event", "stream_id", msg.ID, "event_id", ev.EventID, "queue_id", ev.QueueID)
		return msg.DeadLetter("incomplete event")
	}

	claim, err := p.idempotency.Claim(ctx, ev.EventID)
	switch {
	case errors.Is(err, ErrAlreadyProcessed):
		logger.Debug("delivery event already stored", "event_id", ev.EventID)
		return nil
	case errors.Is(err, ErrAttemptsExhausted):
		logger.Error("giving up on delivery event", "event_id", ev.EventID, "error", err)
		return msg.DeadLetter(err.Error())
	case err != nil:
		return err
	}

	if _, err = p.events.Create(ctx, &ev); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		p.idempotency.Fail(ctx, claim, err)
		return fmt.Errorf("store delivery event %s: %w", ev.EventID, err)
	}

	if err = p.idempotency.Complete(ctx, claim); err != nil {
		// the row is stored, a redelivery hits the unique event_id
		logger.Warn("processed marker not written", "event_id", ev.EventID, "error", err)
	}

	prom.IncDeliveryEvent(string(ev.Status))
	if ev.Status == model.QueueStatusSent && ev.SentAt != nil {
		if d := ev.SentAt.Sub(ev.ScheduledAt); d > 0 {
			prom.AddSendLatency(d.Seconds())
		}
	}
	return nil
}
