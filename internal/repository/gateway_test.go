package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-rental/internal/model"
	"github.com/iliyamo/movie-rental/internal/rental"
)

var (
	movieCols  = []string{"id", "name", "adults_only", "rental_id"}
	rentalCols = []string{"id", "date", "end_date", "user_id", "closed", "closing_date", "fee_cents"}
)

func newMock(t *testing.T) (*Gateway, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewGateway(db), mock
}

func TestGetUserByID_Missing(t *testing.T) {
	g, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	u, err := g.GetUserByID(context.Background(), 9)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestGetMovieByID(t *testing.T) {
	g, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.id = ?")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(movieCols).AddRow(3, "Heat", true, 12))

	m, err := g.GetMovieByID(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, m.AdultsOnly)
	require.NotNil(t, m.RentalID)
	assert.Equal(t, uint64(12), *m.RentalID)
	assert.False(t, m.Available())
}

func TestGetMoviesByIDs(t *testing.T) {
	g, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.id IN (?,?) ORDER BY m.id")).
		WithArgs(uint64(1), uint64(2)).
		WillReturnRows(sqlmock.NewRows(movieCols).AddRow(1, "Up", false, nil).AddRow(2, "Coco", false, nil))

	movies, err := g.GetMoviesByIDs(context.Background(), []uint64{1, 2})
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.True(t, movies[0].Available())

	empty, err := g.GetMoviesByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestWithinTx_LocksReads(t *testing.T) {
	g, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM rentals WHERE id = ? FOR UPDATE")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(rentalCols))
	mock.ExpectCommit()

	err := g.WithinTx(context.Background(), func(tx rental.Gateway) error {
		r, err := tx.GetRentalByID(context.Background(), 5)
		assert.Nil(t, r)
		return err
	})
	require.NoError(t, err)
}

func TestWithinTx_LocksEligibilityReads(t *testing.T) {
	g, mock := newMock(t)
	born := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=? LIMIT 1 FOR UPDATE")).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "birth_date", "cpf", "email", "name", "last_name", "password_hash", "role", "created_at", "updated_at"}).
			AddRow(4, born, "12345678900", "ana@example.com", "Ana", "Silva", "x", "CUSTOMER", born, born))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.id IN (?,?) ORDER BY m.id FOR UPDATE")).
		WithArgs(uint64(1), uint64(2)).
		WillReturnRows(sqlmock.NewRows(movieCols).AddRow(1, "Up", false, nil).AddRow(2, "Coco", false, nil))
	mock.ExpectCommit()

	err := g.WithinTx(context.Background(), func(tx rental.Gateway) error {
		u, err := tx.GetUserByID(context.Background(), 4)
		if err != nil {
			return err
		}
		require.NotNil(t, u)
		assert.Equal(t, "ana@example.com", u.Email)
		movies, err := tx.GetMoviesByIDs(context.Background(), []uint64{1, 2})
		assert.Len(t, movies, 2)
		return err
	})
	require.NoError(t, err)
}

func TestReadsOutsideTx_DoNotLock(t *testing.T) {
	g, mock := newMock(t)
	mock.ExpectQuery(`FROM users WHERE id=\? LIMIT 1$`).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	u, err := g.GetUserByID(context.Background(), 4)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestWithinTx_RollsBack(t *testing.T) {
	g, mock := newMock(t)
	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := g.WithinTx(context.Background(), func(rental.Gateway) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestCreateRentalWithMovies(t *testing.T) {
	g, mock := newMock(t)
	date := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	end := date.AddDate(0, 0, 3)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rentals (date, end_date, user_id, closed)")).
		WithArgs(date, end, uint64(4)).
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE movies SET rental_id = ? WHERE id IN (?,?)")).
		WithArgs(uint64(21), uint64(10), uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta("FROM rentals WHERE id = ?")).
		WithArgs(uint64(21)).
		WillReturnRows(sqlmock.NewRows(rentalCols).AddRow(21, date, end, 4, false, nil, nil))
	mock.ExpectCommit()

	r := &model.Rental{Date: date, EndDate: end, UserID: 4}
	require.NoError(t, g.CreateRentalWithMovies(context.Background(), r, []uint64{10, 11}))
	assert.Equal(t, uint64(21), r.ID)
	assert.False(t, r.Closed)
	assert.Nil(t, r.ClosingDate)
	assert.Nil(t, r.FeeCents)
}

func TestCreateRentalWithMovies_MissingMovie(t *testing.T) {
	g, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO rentals").WillReturnResult(sqlmock.NewResult(22, 1))
	mock.ExpectExec("UPDATE movies SET rental_id").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	r := &model.Rental{Date: time.Now(), EndDate: time.Now(), UserID: 4}
	err := g.CreateRentalWithMovies(context.Background(), r, []uint64{10, 11})
	assert.ErrorIs(t, err, ErrMovieNotFound)
}

func TestUpdateRentalOnClose(t *testing.T) {
	g, mock := newMock(t)
	at := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE rentals SET closed = 1, closing_date = ?, fee_cents = ? WHERE id = ? AND closed = 0")).
		WithArgs(at, int64(600), uint64(21)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, g.UpdateRentalOnClose(context.Background(), 21, at, 600))

	mock.ExpectExec("UPDATE rentals SET closed = 1").WillReturnResult(sqlmock.NewResult(0, 0))
	err := g.UpdateRentalOnClose(context.Background(), 21, at, 600)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGetAllRentals_ScansNullables(t *testing.T) {
	g, mock := newMock(t)
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM rentals ORDER BY id")).
		WillReturnRows(sqlmock.NewRows(rentalCols).
			AddRow(1, d, d, 2, true, d.AddDate(0, 0, 2), 600).
			AddRow(2, d, d, 3, false, nil, nil))

	rentals, err := g.GetAllRentals(context.Background())
	require.NoError(t, err)
	require.Len(t, rentals, 2)
	require.NotNil(t, rentals[0].FeeCents)
	assert.Equal(t, int64(600), *rentals[0].FeeCents)
	assert.Equal(t, d.AddDate(0, 0, 2), *rentals[0].ClosingDate)
	assert.True(t, rentals[1].Open())
	assert.Nil(t, rentals[1].ClosingDate)
}

func TestRentalsQuery(t *testing.T) {
	query, args, err := rentalsQuery(rental.RentalFilter{})
	require.NoError(t, err)
	assert.NotContains(t, query, "WHERE")
	assert.Contains(t, query, "ORDER BY `id` ASC")
	assert.Empty(t, args)

	user := uint64(3)
	open := false
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	query, args, err = rentalsQuery(rental.RentalFilter{UserID: &user, Closed: &open, EndBefore: &cutoff})
	require.NoError(t, err)
	assert.Contains(t, query, "FROM `rentals`")
	assert.Contains(t, query, "`user_id` = ?")
	assert.Contains(t, query, "`closed` = ?")
	assert.Contains(t, query, "`end_date` < ?")
	require.Len(t, args, 3)
	assert.EqualValues(t, 3, args[0])
	assert.EqualValues(t, 0, args[1])
}
