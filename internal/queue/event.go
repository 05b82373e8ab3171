// Package queue defines the rental events exchanged over RabbitMQ together
// with the publisher used by the API and the consumer that logs them.
package queue

import (
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/movie-rental/internal/model"
)

// RentalEventsQueue is the durable queue every rental event is routed to.
const RentalEventsQueue = "rental.events"

// Event types.
const (
    EventRentalCreated = "rental.created"
    EventRentalClosed  = "rental.closed"
    EventRentalOverdue = "rental.overdue"
)

// RentalEvent is published whenever a rental changes state or is found
// overdue.  It carries enough for consumers to log or notify without
// querying the database.  Timestamps are RFC3339 in UTC.
type RentalEvent struct {
    EventID     string   `json:"event_id"`
    Type        string   `json:"type"`
    RentalID    uint64   `json:"rental_id"`
    UserID      uint64   `json:"user_id"`
    MovieIDs    []uint64 `json:"movie_ids"`
    Date        string   `json:"date"`
    EndDate     string   `json:"end_date"`
    ClosingDate string   `json:"closing_date,omitempty"`
    FeeCents    int64    `json:"fee_cents"`
    OccurredAt  string   `json:"occurred_at"`
}

// NewRentalEvent builds an event of type typ describing r.
func NewRentalEvent(typ string, r model.Rental, movieIDs []uint64, at time.Time) RentalEvent {
    ev := RentalEvent{
        EventID:    uuid.NewString(),
        Type:       typ,
        RentalID:   r.ID,
        UserID:     r.UserID,
        MovieIDs:   movieIDs,
        Date:       r.Date.UTC().Format(time.RFC3339),
        EndDate:    r.EndDate.UTC().Format(time.RFC3339),
        OccurredAt: at.UTC().Format(time.RFC3339),
    }
    if ev.MovieIDs == nil {
        ev.MovieIDs = []uint64{}
    }
    if r.ClosingDate != nil {
        ev.ClosingDate = r.ClosingDate.UTC().Format(time.RFC3339)
    }
    if r.FeeCents != nil {
        ev.FeeCents = *r.FeeCents
    }
    return ev
}
