package rental

import (
	"context"
	"time"

	"github.com/iliyamo/movie-rental/internal/model"
)

// Gateway is the data access the rental core needs.  Lookups return a nil
// record and a nil error when nothing matches; errors are reserved for
// storage failures.
type Gateway interface {
	GetUserByID(ctx context.Context, id uint64) (*model.User, error)
	GetRentalByID(ctx context.Context, id uint64) (*model.Rental, error)
	GetOpenRentalByUserID(ctx context.Context, userID uint64) (*model.Rental, error)
	GetAllRentals(ctx context.Context) ([]model.Rental, error)
	GetMoviesByIDs(ctx context.Context, ids []uint64) ([]model.Movie, error)
	GetMovieByID(ctx context.Context, id uint64) (*model.Movie, error)
	GetMoviesByRentalID(ctx context.Context, rentalID uint64) ([]model.Movie, error)
	// CreateRentalWithMovies inserts r, fills in its generated fields and
	// attaches every movie in movieIDs to it.
	CreateRentalWithMovies(ctx context.Context, r *model.Rental, movieIDs []uint64) error
	UpdateRentalOnClose(ctx context.Context, rentalID uint64, closedAt time.Time, feeCents int64) error
}

// RentalFilter narrows FindRentals.  Nil fields are ignored.
type RentalFilter struct {
	UserID    *uint64
	Closed    *bool
	EndBefore *time.Time
}

// Store is a Gateway that can also run a unit of work atomically.
// WithinTx commits when fn returns nil and rolls back otherwise; the Gateway
// passed to fn reads with row locks so concurrent writers serialize.
type Store interface {
	Gateway
	FindRentals(ctx context.Context, f RentalFilter) ([]model.Rental, error)
	WithinTx(ctx context.Context, fn func(g Gateway) error) error
}
