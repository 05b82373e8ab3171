package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"

	"github.com/iliyamo/movie-rental/internal/model"
	"github.com/iliyamo/movie-rental/internal/rental"
)

var mysqlDialect = goqu.Dialect("mysql")

const rentalColumns = "id, date, end_date, user_id, closed, closing_date, fee_cents"

func scanRental(s scanner) (model.Rental, error) {
	var (
		r           model.Rental
		closingDate sql.NullTime
		fee         sql.NullInt64
	)
	if err := s.Scan(&r.ID, &r.Date, &r.EndDate, &r.UserID, &r.Closed, &closingDate, &fee); err != nil {
		return r, err
	}
	if closingDate.Valid {
		t := closingDate.Time
		r.ClosingDate = &t
	}
	if fee.Valid {
		f := fee.Int64
		r.FeeCents = &f
	}
	return r, nil
}

func (g *Gateway) queryRentals(ctx context.Context, query string, args ...interface{}) ([]model.Rental, error) {
	rows, err := g.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	rentals := []model.Rental{}
	for rows.Next() {
		r, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, r)
	}
	return rentals, rows.Err()
}

func (g *Gateway) getRental(ctx context.Context, q querier, query string, args ...interface{}) (*model.Rental, error) {
	r, err := scanRental(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRentalByID returns nil when the rental does not exist.
func (g *Gateway) GetRentalByID(ctx context.Context, id uint64) (*model.Rental, error) {
	return g.getRental(ctx, g.q, "SELECT "+rentalColumns+" FROM rentals WHERE id = ?"+g.lock, id)
}

// GetOpenRentalByUserID returns the user's open rental, or nil.
func (g *Gateway) GetOpenRentalByUserID(ctx context.Context, userID uint64) (*model.Rental, error) {
	return g.getRental(ctx, g.q,
		"SELECT "+rentalColumns+" FROM rentals WHERE user_id = ? AND closed = 0 ORDER BY id LIMIT 1"+g.lock, userID)
}

// GetAllRentals returns every rental ordered by id.
func (g *Gateway) GetAllRentals(ctx context.Context) ([]model.Rental, error) {
	return g.queryRentals(ctx, "SELECT "+rentalColumns+" FROM rentals ORDER BY id")
}

// FindRentals returns the rentals matching f ordered by id.
func (g *Gateway) FindRentals(ctx context.Context, f rental.RentalFilter) ([]model.Rental, error) {
	query, args, err := rentalsQuery(f)
	if err != nil {
		return nil, fmt.Errorf("build rentals query: %w", err)
	}
	return g.queryRentals(ctx, query, args...)
}

// rentalsQuery builds the filtered listing with placeholders.
func rentalsQuery(f rental.RentalFilter) (string, []interface{}, error) {
	ds := mysqlDialect.From("rentals").Prepared(true).
		Select("id", "date", "end_date", "user_id", "closed", "closing_date", "fee_cents")
	if f.UserID != nil {
		ds = ds.Where(goqu.C("user_id").Eq(*f.UserID))
	}
	if f.Closed != nil {
		closed := 0
		if *f.Closed {
			closed = 1
		}
		ds = ds.Where(goqu.C("closed").Eq(closed))
	}
	if f.EndBefore != nil {
		ds = ds.Where(goqu.C("end_date").Lt(f.EndBefore.UTC()))
	}
	return ds.Order(goqu.C("id").Asc()).ToSQL()
}

// CreateRentalWithMovies inserts r and points every movie in movieIDs at it
// with a single UPDATE.  r is refreshed from the stored row.
func (g *Gateway) CreateRentalWithMovies(ctx context.Context, r *model.Rental, movieIDs []uint64) error {
	if len(movieIDs) == 0 {
		return errors.New("rental without movies")
	}
	return g.write(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx,
			"INSERT INTO rentals (date, end_date, user_id, closed) VALUES (?, ?, ?, 0)",
			r.Date.UTC(), r.EndDate.UTC(), r.UserID)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		ph, args := inClause(movieIDs)
		args = append([]interface{}{uint64(id)}, args...)
		res, err = q.ExecContext(ctx, "UPDATE movies SET rental_id = ? WHERE id IN ("+ph+")", args...)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n != int64(len(movieIDs)) {
			return fmt.Errorf("attach movies to rental %d: %d of %d updated: %w", id, n, len(movieIDs), ErrMovieNotFound)
		}
		stored, err := g.getRental(ctx, q, "SELECT "+rentalColumns+" FROM rentals WHERE id = ?", uint64(id))
		if err != nil {
			return err
		}
		if stored == nil {
			return sql.ErrNoRows
		}
		*r = *stored
		return nil
	})
}

// UpdateRentalOnClose marks an open rental closed.  ErrConflict when the
// rental is missing or already closed.
func (g *Gateway) UpdateRentalOnClose(ctx context.Context, rentalID uint64, closedAt time.Time, feeCents int64) error {
	res, err := g.q.ExecContext(ctx,
		"UPDATE rentals SET closed = 1, closing_date = ?, fee_cents = ? WHERE id = ? AND closed = 0",
		closedAt.UTC(), feeCents, rentalID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("close rental %d: %w", rentalID, ErrConflict)
	}
	return nil
}
