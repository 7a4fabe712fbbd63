package service

import (
	"context"

	"github.com/iliyamo/travel-lottery/internal/model"
)

// EventPublisher receives domain events after their transaction committed.
// Delivery is best effort: errors are logged by the caller and never undo
// the committed state.
type EventPublisher interface {
	TicketPurchased(ctx context.Context, l model.Lottery, t model.Ticket) error
	DrawExecuted(ctx context.Context, l model.Lottery, d model.Draw) error
}

// NopPublisher discards all events.
type NopPublisher struct{}

func (NopPublisher) TicketPurchased(context.Context, model.Lottery, model.Ticket) error { return nil }
func (NopPublisher) DrawExecuted(context.Context, model.Lottery, model.Draw) error      { return nil }
