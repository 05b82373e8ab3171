package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-rental/internal/database"
	"github.com/iliyamo/movie-rental/internal/model"
)

// MovieRepo manages the movie catalogue.  Attaching movies to rentals is
// done by Gateway inside the rental transaction, not here.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo returns a MovieRepo bound to db.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

// Create inserts a new, unattached movie.
func (r *MovieRepo) Create(ctx context.Context, name string, adultsOnly bool) (model.Movie, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO movies (name, adults_only) VALUES (?, ?)", name, adultsOnly)
	if err != nil {
		return model.Movie{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Movie{}, err
	}
	return model.Movie{ID: uint64(id), Name: name, AdultsOnly: adultsOnly}, nil
}

// GetByID returns ErrMovieNotFound when no movie has the given id.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (model.Movie, error) {
	m, err := scanMovie(r.db.QueryRowContext(ctx, movieSelect+" WHERE m.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Movie{}, ErrMovieNotFound
	}
	return m, err
}

// List returns the catalogue ordered by name.  With onlyAvailable set,
// movies checked out under an open rental are left out.
func (r *MovieRepo) List(ctx context.Context, onlyAvailable bool) ([]model.Movie, error) {
	q := movieSelect
	if onlyAvailable {
		q += " WHERE r.id IS NULL"
	}
	return queryMovies(ctx, r.db, q+" ORDER BY m.name, m.id")
}

// Delete removes a movie.  A movie checked out under an open rental cannot
// be deleted (ErrConflict).  Links to closed rentals are history and do not
// block deletion.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		m, err := scanMovie(tx.QueryRowContext(ctx, movieSelect+" WHERE m.id = ? FOR UPDATE", id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMovieNotFound
		}
		if err != nil {
			return err
		}
		if !m.Available() {
			return ErrConflict
		}
		_, err = tx.ExecContext(ctx, "DELETE FROM movies WHERE id = ?", id)
		return err
	})
}
