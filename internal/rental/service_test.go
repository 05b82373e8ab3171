package rental

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-rental/internal/model"
	"github.com/iliyamo/movie-rental/internal/queue"
)

type recordingPublisher struct {
	events []queue.RentalEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.RentalEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

const feeRate = 300

type fixture struct {
	store *memStore
	clock *clock
	pub   *recordingPublisher
	svc   *Service
}

// newFixture seeds an adult (1), a minor (2), two family movies (10, 11)
// and an adults-only movie (20).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := newMemStore()
	st.addUser(model.User{ID: 1, Name: "Ana", BirthDate: time.Date(1985, 5, 20, 0, 0, 0, 0, time.UTC)})
	st.addUser(model.User{ID: 2, Name: "Bia", BirthDate: time.Date(2012, 9, 1, 0, 0, 0, 0, time.UTC)})
	st.addMovie(model.Movie{ID: 10, Name: "Up"})
	st.addMovie(model.Movie{ID: 11, Name: "Coco"})
	st.addMovie(model.Movie{ID: 20, Name: "Heat", AdultsOnly: true})

	c := &clock{t: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)}
	pub := &recordingPublisher{}
	svc := NewService(st, feeRate, WithClock(c.now), WithPublisher(pub))
	return &fixture{store: st, clock: c, pub: pub, svc: svc}
}

func TestListRentals_Empty(t *testing.T) {
	f := newFixture(t)
	rentals, err := f.svc.ListRentals(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rentals)
	assert.Empty(t, rentals)
}

func TestCreateRental(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.svc.CreateRental(ctx, 1, []uint64{10, 20}, 3)
	require.NoError(t, err)
	assert.NotZero(t, r.ID)
	assert.Equal(t, uint64(1), r.UserID)
	assert.False(t, r.Closed)
	assert.Equal(t, f.clock.t, r.Date)
	assert.Equal(t, f.clock.t.AddDate(0, 0, 3), r.EndDate)

	got, err := f.svc.GetRentalByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, *r, *got)

	for _, id := range []uint64{10, 20} {
		m, _ := f.store.GetMovieByID(ctx, id)
		require.NotNil(t, m.RentalID)
		assert.Equal(t, r.ID, *m.RentalID)
	}

	all, err := f.svc.ListRentals(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, queue.EventRentalCreated, f.pub.events[0].Type)
	assert.Equal(t, []uint64{10, 20}, f.pub.events[0].MovieIDs)
}

func TestCreateRental_DropsDuplicateIDs(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateRental(context.Background(), 1, []uint64{11, 0, 10, 11}, 1)
	require.NoError(t, err)
	require.Len(t, f.pub.events, 1)
	assert.Equal(t, []uint64{11, 10}, f.pub.events[0].MovieIDs)
}

func TestCreateRental_Invalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRental(ctx, 1, nil, 3)
	assert.True(t, errors.Is(err, &Error{Kind: KindInvalid, Message: MsgNoMovies}))

	_, err = f.svc.CreateRental(ctx, 1, []uint64{0}, 3)
	assert.True(t, IsInvalid(err))

	_, err = f.svc.CreateRental(ctx, 1, []uint64{10}, 0)
	assert.True(t, errors.Is(err, &Error{Kind: KindInvalid, Message: MsgInvalidDuration}))
	assert.Zero(t, f.store.txCalls)
}

func TestCreateRental_UnknownUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRental(ctx, 999999, []uint64{10}, 3)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, MsgUserNotFound, err.Error())

	all, _ := f.svc.ListRentals(ctx)
	assert.Empty(t, all)
	m, _ := f.store.GetMovieByID(ctx, 10)
	assert.True(t, m.Available())
	assert.Empty(t, f.pub.events)
}

func TestCreateRental_UnknownMovie(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRental(ctx, 1, []uint64{10, 404}, 3)
	assert.True(t, errors.Is(err, &Error{Kind: KindNotFound, Message: MsgMovieNotFound}))

	_, err = f.svc.CreateRental(ctx, 1, []uint64{404}, 3)
	assert.True(t, errors.Is(err, &Error{Kind: KindNotFound, Message: MsgMovieNotFound}))

	m, _ := f.store.GetMovieByID(ctx, 10)
	assert.True(t, m.Available())
}

func TestCreateRental_UserWithOpenRental(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRental(ctx, 1, []uint64{10}, 3)
	require.NoError(t, err)

	_, err = f.svc.CreateRental(ctx, 1, []uint64{11}, 3)
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.Equal(t, MsgUserHasRental, err.Error())

	all, _ := f.svc.ListRentals(ctx)
	assert.Len(t, all, 1)
	m, _ := f.store.GetMovieByID(ctx, 11)
	assert.True(t, m.Available())
}

func TestCreateRental_AdultMovieForMinor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRental(ctx, 2, []uint64{20}, 2)
	require.Error(t, err)
	assert.Equal(t, MsgAdultForMinor, err.Error())
	assert.True(t, IsConflict(err))

	_, err = f.svc.CreateRental(ctx, 1, []uint64{20}, 2)
	require.NoError(t, err)
}

func TestCreateRental_MovieAlreadyRented(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRental(ctx, 1, []uint64{10}, 3)
	require.NoError(t, err)

	_, err = f.svc.CreateRental(ctx, 2, []uint64{11, 10}, 3)
	require.Error(t, err)
	assert.Equal(t, MsgMovieRented, err.Error())
	m, _ := f.store.GetMovieByID(ctx, 11)
	assert.True(t, m.Available())
}

func TestCreateRental_RollsBackOnWriteFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	boom := errors.New("disk full")
	f.store.failCreate = boom

	_, err := f.svc.CreateRental(ctx, 1, []uint64{10, 11}, 3)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, KindUnknown, KindOf(err))

	all, _ := f.svc.ListRentals(ctx)
	assert.Empty(t, all)
	for _, id := range []uint64{10, 11} {
		m, _ := f.store.GetMovieByID(ctx, id)
		assert.True(t, m.Available())
	}
	assert.Empty(t, f.pub.events)
}

func TestCloseRental_OnTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.svc.CreateRental(ctx, 1, []uint64{10}, 3)
	require.NoError(t, err)
	f.clock.advance(3 * 24 * time.Hour)

	closed, err := f.svc.CloseRental(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, closed.Closed)
	require.NotNil(t, closed.ClosingDate)
	assert.Equal(t, f.clock.t, *closed.ClosingDate)
	require.NotNil(t, closed.FeeCents)
	assert.Equal(t, int64(0), *closed.FeeCents)

	stored, _ := f.svc.GetRentalByID(ctx, r.ID)
	assert.Equal(t, *closed, *stored)

	m, _ := f.store.GetMovieByID(ctx, 10)
	assert.True(t, m.Available())

	require.Len(t, f.pub.events, 2)
	assert.Equal(t, queue.EventRentalClosed, f.pub.events[1].Type)
	assert.Equal(t, []uint64{10}, f.pub.events[1].MovieIDs)
}

func TestCloseRental_Late(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.svc.CreateRental(ctx, 1, []uint64{10, 11}, 2)
	require.NoError(t, err)
	f.clock.advance(6 * 24 * time.Hour)

	closed, err := f.svc.CloseRental(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4*feeRate), *closed.FeeCents)
	assert.Equal(t, int64(4*feeRate), f.pub.events[1].FeeCents)
}

func TestCloseRental_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.svc.CreateRental(ctx, 1, []uint64{10}, 1)
	require.NoError(t, err)
	_, err = f.svc.CloseRental(ctx, r.ID)
	require.NoError(t, err)
	first, _ := f.svc.GetRentalByID(ctx, r.ID)

	f.clock.advance(10 * 24 * time.Hour)
	_, err = f.svc.CloseRental(ctx, r.ID)
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.Equal(t, MsgRentalClosed, err.Error())

	again, _ := f.svc.GetRentalByID(ctx, r.ID)
	assert.Equal(t, *first, *again)
}

func TestCloseRental_Unknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CloseRental(context.Background(), 77)
	assert.True(t, errors.Is(err, &Error{Kind: KindNotFound, Message: MsgRentalNotFound}))
}

func TestGetRentalByID_Unknown(t *testing.T) {
	f := newFixture(t)
	r, err := f.svc.GetRentalByID(context.Background(), 5)
	assert.Nil(t, r)
	assert.True(t, IsNotFound(err))
}

// A user may keep any number of closed rentals, and movies returned with a
// closed rental can be rented again.
func TestClosedRentalsAreHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		r, err := f.svc.CreateRental(ctx, 1, []uint64{10}, 1)
		require.NoError(t, err, "round %d", i)
		_, err = f.svc.CloseRental(ctx, r.ID)
		require.NoError(t, err)
	}

	history, err := f.svc.ListRentalsByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, history, 3)
	for _, r := range history {
		assert.True(t, r.Closed)
	}

	// another user can rent the same movie afterwards
	_, err = f.svc.CreateRental(ctx, 2, []uint64{10}, 1)
	require.NoError(t, err)
}

func TestListRentalsByUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRental(ctx, 1, []uint64{10}, 1)
	require.NoError(t, err)
	_, err = f.svc.CreateRental(ctx, 2, []uint64{11}, 1)
	require.NoError(t, err)

	mine, err := f.svc.ListRentalsByUser(ctx, 2)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, uint64(2), mine[0].UserID)

	_, err = f.svc.ListRentalsByUser(ctx, 999999)
	assert.True(t, IsNotFound(err))
}

func TestListRentalsFiltered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r1, err := f.svc.CreateRental(ctx, 1, []uint64{10}, 1)
	require.NoError(t, err)
	_, err = f.svc.CloseRental(ctx, r1.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateRental(ctx, 1, []uint64{11}, 5)
	require.NoError(t, err)

	open := false
	got, err := f.svc.ListRentalsFiltered(ctx, RentalFilter{Closed: &open})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Closed)

	cutoff := f.clock.t.AddDate(0, 0, 2)
	got, err = f.svc.ListRentalsFiltered(ctx, RentalFilter{EndBefore: &cutoff})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, r1.ID, got[0].ID)

	nobody := uint64(2)
	got, err = f.svc.ListRentalsFiltered(ctx, RentalFilter{UserID: &nobody})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPublishFailureDoesNotFailRental(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")

	r, err := f.svc.CreateRental(context.Background(), 1, []uint64{10}, 1)
	require.NoError(t, err)
	assert.NotZero(t, r.ID)
}

func TestAccruedFee(t *testing.T) {
	svc := NewService(newMemStore(), 250)
	end := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, int64(0), svc.AccruedFee(model.Rental{EndDate: end}, end))
	assert.Equal(t, int64(500), svc.AccruedFee(model.Rental{EndDate: end}, end.AddDate(0, 0, 2)))
}
