// Package events publishes booking notifications after a mutation commits.
package events

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/campstay/internal/booking/domain"
)

const (
	DefaultExchange         = "campstay.events"
	RoutingKeyTotalsChanged = "booking.totals_changed"
)

// TotalsChanged is emitted once per committed booking mutation.
type TotalsChanged struct {
	MessageID  string        `json:"message_id"`
	Type       string        `json:"type"`
	BookingID  snowflake.ID  `json:"booking_id"`
	Version    int64         `json:"version"`
	Operation  string        `json:"operation"`
	ActorID    string        `json:"actor_id"`
	Totals     domain.Totals `json:"totals"`
	DepositDue int64         `json:"deposit_due"`
	OccurredAt time.Time     `json:"occurred_at"`
}

func NewTotalsChanged(bookingID snowflake.ID, version int64, operation, actorID string, totals domain.Totals, depositDue int64, at time.Time) TotalsChanged {
	return TotalsChanged{
		MessageID:  ulid.Make().String(),
		Type:       RoutingKeyTotalsChanged,
		BookingID:  bookingID,
		Version:    version,
		Operation:  operation,
		ActorID:    actorID,
		Totals:     totals,
		DepositDue: depositDue,
		OccurredAt: at.UTC(),
	}
}

type Publisher interface {
	PublishTotalsChanged(ctx context.Context, event TotalsChanged) error
}

type noopPublisher struct{}

// NewNoopPublisher drops every event.
func NewNoopPublisher() Publisher { return noopPublisher{} }

func (noopPublisher) PublishTotalsChanged(context.Context, TotalsChanged) error { return nil }
