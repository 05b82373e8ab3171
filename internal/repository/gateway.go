package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/movie-rental/internal/database"
	"github.com/iliyamo/movie-rental/internal/model"
	"github.com/iliyamo/movie-rental/internal/rental"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Gateway is the MySQL implementation of rental.Store.  Outside a
// transaction it reads through the pool; the Gateway handed to WithinTx
// callbacks runs on the transaction and locks every row it reads.
type Gateway struct {
	db   *sql.DB
	q    querier
	lock string
}

// NewGateway returns a Gateway bound to db.
func NewGateway(db *sql.DB) *Gateway { return &Gateway{db: db, q: db} }

var _ rental.Store = (*Gateway)(nil)

// WithinTx runs fn against a transaction scoped Gateway.
func (g *Gateway) WithinTx(ctx context.Context, fn func(rental.Gateway) error) error {
	if g.inTx() {
		return fn(g)
	}
	return database.WithTx(ctx, g.db, func(tx *sql.Tx) error {
		return fn(&Gateway{db: g.db, q: tx, lock: " FOR UPDATE"})
	})
}

func (g *Gateway) inTx() bool { return g.lock != "" }

// write runs fn on the current transaction, or on a new one when the
// Gateway is not transactional, so multi statement writes stay atomic.
func (g *Gateway) write(ctx context.Context, fn func(q querier) error) error {
	if g.inTx() {
		return fn(g.q)
	}
	return database.WithTx(ctx, g.db, func(tx *sql.Tx) error { return fn(tx) })
}

const userColumns = "id,birth_date,cpf,email,name,last_name,password_hash,role,created_at,updated_at"

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(s scanner) (model.User, error) {
	var u model.User
	err := s.Scan(&u.ID, &u.BirthDate, &u.CPF, &u.Email, &u.Name, &u.LastName,
		&u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetUserByID returns nil when the user does not exist.
func (g *Gateway) GetUserByID(ctx context.Context, id uint64) (*model.User, error) {
	row := g.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1"+g.lock, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// movieSelect reports rental_id only while the referenced rental is open, so
// movies of closed rentals read as available.
const movieSelect = `SELECT m.id, m.name, m.adults_only, r.id
                     FROM movies m
                     LEFT JOIN rentals r ON r.id = m.rental_id AND r.closed = 0`

func scanMovie(s scanner) (model.Movie, error) {
	var m model.Movie
	var rentalID sql.NullInt64
	if err := s.Scan(&m.ID, &m.Name, &m.AdultsOnly, &rentalID); err != nil {
		return m, err
	}
	if rentalID.Valid {
		id := uint64(rentalID.Int64)
		m.RentalID = &id
	}
	return m, nil
}

func queryMovies(ctx context.Context, q querier, query string, args ...interface{}) ([]model.Movie, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movies := []model.Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// GetMovieByID returns nil when the movie does not exist.
func (g *Gateway) GetMovieByID(ctx context.Context, id uint64) (*model.Movie, error) {
	m, err := scanMovie(g.q.QueryRowContext(ctx, movieSelect+" WHERE m.id = ?"+g.lock, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMoviesByIDs returns the movies that exist among ids, ordered by id.
func (g *Gateway) GetMoviesByIDs(ctx context.Context, ids []uint64) ([]model.Movie, error) {
	if len(ids) == 0 {
		return []model.Movie{}, nil
	}
	ph, args := inClause(ids)
	return queryMovies(ctx, g.q, movieSelect+" WHERE m.id IN ("+ph+") ORDER BY m.id"+g.lock, args...)
}

// GetMoviesByRentalID returns the movies linked to a rental, open or closed.
func (g *Gateway) GetMoviesByRentalID(ctx context.Context, rentalID uint64) ([]model.Movie, error) {
	return queryMovies(ctx, g.q, movieSelect+" WHERE m.rental_id = ? ORDER BY m.id"+g.lock, rentalID)
}

// inClause returns "?,?,?" and the matching arguments.
func inClause(ids []uint64) (string, []interface{}) {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}
