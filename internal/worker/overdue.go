// Package worker runs background jobs on a cron schedule.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iliyamo/movie-rental/internal/model"
	"github.com/iliyamo/movie-rental/internal/queue"
	"github.com/iliyamo/movie-rental/internal/rental"
)

// RentalSource is the part of rental.Service the sweep reads from.
type RentalSource interface {
	ListRentalsFiltered(ctx context.Context, f rental.RentalFilter) ([]model.Rental, error)
	AccruedFee(r model.Rental, t time.Time) int64
	Now() time.Time
}

// Sweeper reports open rentals that are past their end date.
type Sweeper struct {
	rentals   RentalSource
	publisher rental.EventPublisher
	log       *slog.Logger
	timeout   time.Duration
}

// NewSweeper returns a Sweeper.  publisher may be nil, in which case overdue
// rentals are only logged.
func NewSweeper(src RentalSource, publisher rental.EventPublisher, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{rentals: src, publisher: publisher, log: log, timeout: time.Minute}
}

// Sweep runs one pass and returns how many overdue rentals it found.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.rentals.Now()
	// a rental is only overdue once its end date's calendar day is over
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	open := false
	candidates, err := s.rentals.ListRentalsFiltered(ctx, rental.RentalFilter{Closed: &open, EndBefore: &today})
	if err != nil {
		return 0, err
	}
	found := 0
	for _, r := range candidates {
		days := rental.OverdueDays(r.EndDate, now)
		if days <= 0 {
			continue
		}
		found++
		fee := s.rentals.AccruedFee(r, now)
		s.log.Info("rental overdue",
			"rental_id", r.ID,
			"user_id", r.UserID,
			"end_date", r.EndDate.Format(time.RFC3339),
			"days", days,
			"fee_cents", fee,
		)
		if s.publisher == nil {
			continue
		}
		ev := queue.NewRentalEvent(queue.EventRentalOverdue, r, nil, now)
		ev.FeeCents = fee
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.log.Warn("publish overdue event failed", "rental_id", r.ID, "err", err)
		}
	}
	return found, nil
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	n, err := s.Sweep(ctx)
	if err != nil {
		s.log.Error("overdue sweep failed", "err", err)
		return
	}
	s.log.Debug("overdue sweep done", "overdue", n)
}

// Start schedules the sweep on spec and starts the cron runner.  The caller
// stops it with Stop, whose returned context is done once running jobs end.
func (s *Sweeper) Start(spec string) (*cron.Cron, error) {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(s.log.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	if _, err := c.AddFunc(spec, s.run); err != nil {
		return nil, err
	}
	c.Start()
	s.log.Info("scheduled overdue sweep", "schedule", spec)
	return c, nil
}
