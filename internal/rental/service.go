// Package rental holds the rental rules of the store: who may rent which
// movies, how a rental is opened and closed, and what a late return costs.
package rental

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/movie-rental/internal/model"
	"github.com/iliyamo/movie-rental/internal/queue"
)

// EventPublisher receives rental lifecycle events after they are committed.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.RentalEvent) error
}

// Service opens and closes rentals against a Store.
type Service struct {
	store          Store
	feePerDayCents int64
	now            func() time.Time
	publisher      EventPublisher
	log            *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.  Tests use it to pin "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPublisher sends created and closed events to p.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the logger used for non fatal failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService returns a Service charging feePerDayCents for each overdue day.
func NewService(store Store, feePerDayCents int64, opts ...Option) *Service {
	s := &Service{
		store:          store,
		feePerDayCents: feePerDayCents,
		now:            func() time.Time { return time.Now().UTC() },
		log:            slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListRentals returns every rental.  The slice is empty, never nil, when
// there are none.
func (s *Service) ListRentals(ctx context.Context) ([]model.Rental, error) {
	rentals, err := s.store.GetAllRentals(ctx)
	if err != nil {
		return nil, err
	}
	if rentals == nil {
		rentals = []model.Rental{}
	}
	return rentals, nil
}

// ListRentalsFiltered returns the rentals matching f.
func (s *Service) ListRentalsFiltered(ctx context.Context, f RentalFilter) ([]model.Rental, error) {
	rentals, err := s.store.FindRentals(ctx, f)
	if err != nil {
		return nil, err
	}
	if rentals == nil {
		rentals = []model.Rental{}
	}
	return rentals, nil
}

// ListRentalsByUser returns the rental history of one user.
func (s *Service) ListRentalsByUser(ctx context.Context, userID uint64) ([]model.Rental, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound(MsgUserNotFound)
	}
	return s.ListRentalsFiltered(ctx, RentalFilter{UserID: &userID})
}

// GetRentalByID returns the rental or a NotFound error.
func (s *Service) GetRentalByID(ctx context.Context, id uint64) (*model.Rental, error) {
	r, err := s.store.GetRentalByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, notFound(MsgRentalNotFound)
	}
	return r, nil
}

// CreateRental opens a rental of movieIDs for userID, due back after
// daysUntilReturn days.  The lookups, the eligibility rules and the writes
// share one transaction: on any failure nothing is persisted.
func (s *Service) CreateRental(ctx context.Context, userID uint64, movieIDs []uint64, daysUntilReturn int) (*model.Rental, error) {
	ids := uniqueIDs(movieIDs)
	if len(ids) == 0 {
		return nil, invalid(MsgNoMovies)
	}
	if daysUntilReturn < 1 {
		return nil, invalid(MsgInvalidDuration)
	}
	now := s.now()

	var created *model.Rental
	err := s.store.WithinTx(ctx, func(g Gateway) error {
		user, err := g.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return notFound(MsgUserNotFound)
		}
		open, err := g.GetOpenRentalByUserID(ctx, userID)
		if err != nil {
			return err
		}
		movies, err := resolveMovies(ctx, g, ids)
		if err != nil {
			return err
		}
		if v := Evaluate(user, movies, open != nil, now); !v.Eligible() {
			return v.Err()
		}
		r := &model.Rental{
			Date:    now,
			EndDate: now.AddDate(0, 0, daysUntilReturn),
			UserID:  userID,
		}
		if err := g.CreateRentalWithMovies(ctx, r, ids); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.EventRentalCreated, *created, ids)
	return created, nil
}

// CloseRental closes an open rental, charging the late fee for every whole
// day past its end date.
func (s *Service) CloseRental(ctx context.Context, rentalID uint64) (*model.Rental, error) {
	now := s.now()

	var (
		closed   *model.Rental
		movieIDs []uint64
	)
	err := s.store.WithinTx(ctx, func(g Gateway) error {
		r, err := g.GetRentalByID(ctx, rentalID)
		if err != nil {
			return err
		}
		if r == nil {
			return notFound(MsgRentalNotFound)
		}
		if r.Closed {
			return conflict(MsgRentalClosed)
		}
		movies, err := g.GetMoviesByRentalID(ctx, r.ID)
		if err != nil {
			return err
		}
		fee := s.AccruedFee(*r, now)
		if err := g.UpdateRentalOnClose(ctx, r.ID, now, fee); err != nil {
			return err
		}
		r.Closed = true
		r.ClosingDate = &now
		r.FeeCents = &fee
		closed = r
		movieIDs = make([]uint64, 0, len(movies))
		for _, m := range movies {
			movieIDs = append(movieIDs, m.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.EventRentalClosed, *closed, movieIDs)
	return closed, nil
}

// AccruedFee is the fee r would be charged if it were closed at t.
func (s *Service) AccruedFee(r model.Rental, t time.Time) int64 {
	return ComputeFee(OverdueDays(r.EndDate, t), s.feePerDayCents)
}

// Now is the service clock.
func (s *Service) Now() time.Time { return s.now() }

// resolveMovies loads ids keeping the requested order.  A missing id is a
// NotFound error.
func resolveMovies(ctx context.Context, g Gateway, ids []uint64) ([]model.Movie, error) {
	if len(ids) == 1 {
		m, err := g.GetMovieByID(ctx, ids[0])
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, notFound(MsgMovieNotFound)
		}
		return []model.Movie{*m}, nil
	}
	found, err := g.GetMoviesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]model.Movie, len(found))
	for _, m := range found {
		byID[m.ID] = m
	}
	movies := make([]model.Movie, 0, len(ids))
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			return nil, notFound(MsgMovieNotFound)
		}
		movies = append(movies, m)
	}
	return movies, nil
}

// uniqueIDs drops zero and repeated ids, keeping first occurrences in order.
func uniqueIDs(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *Service) publish(ctx context.Context, typ string, r model.Rental, movieIDs []uint64) {
	if s.publisher == nil {
		return
	}
	ev := queue.NewRentalEvent(typ, r, movieIDs, s.now())
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn("rental event publish failed", "type", typ, "rental_id", r.ID, "err", err)
	}
}
