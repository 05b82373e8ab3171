// Package repository implements MySQL persistence for users, movies,
// rentals and refresh tokens.  The sentinel errors below let handlers tell
// failure scenarios apart.  ErrConflict signals that an operation cannot
// proceed because of existing dependent state, such as deleting a movie that
// is checked out.
package repository

import "errors"

// ErrConflict is returned when a write cannot be performed because of
// conflicting state.  Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

// ErrEmailExists and ErrCPFExists report unique key violations on users.
var (
	ErrEmailExists = errors.New("email already exists")
	ErrCPFExists   = errors.New("cpf already exists")
)

// ErrMovieNotFound indicates that a movie was not located in the DB.
var ErrMovieNotFound = errors.New("movie not found")
