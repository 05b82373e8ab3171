package rental

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/movie-rental/internal/model"
)

// memStore is an in-memory Store.  WithinTx snapshots the state and restores
// it when fn fails, which is what the MySQL transaction does.
type memStore struct {
	mu      sync.Mutex
	users   map[uint64]model.User
	movies  map[uint64]model.Movie // RentalID holds the raw link, open or not
	rentals map[uint64]model.Rental
	nextID  uint64

	failCreate error
	txCalls    int
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[uint64]model.User{},
		movies:  map[uint64]model.Movie{},
		rentals: map[uint64]model.Rental{},
		nextID:  1,
	}
}

func (s *memStore) addUser(u model.User)   { s.users[u.ID] = u }
func (s *memStore) addMovie(m model.Movie) { s.movies[m.ID] = m }

func (s *memStore) WithinTx(ctx context.Context, fn func(Gateway) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCalls++
	users, movies, rentals, next := s.snapshot()
	if err := fn(txView{s}); err != nil {
		s.users, s.movies, s.rentals, s.nextID = users, movies, rentals, next
		return err
	}
	return nil
}

func (s *memStore) snapshot() (map[uint64]model.User, map[uint64]model.Movie, map[uint64]model.Rental, uint64) {
	users := make(map[uint64]model.User, len(s.users))
	for k, v := range s.users {
		users[k] = v
	}
	movies := make(map[uint64]model.Movie, len(s.movies))
	for k, v := range s.movies {
		movies[k] = v
	}
	rentals := make(map[uint64]model.Rental, len(s.rentals))
	for k, v := range s.rentals {
		rentals[k] = v
	}
	return users, movies, rentals, s.nextID
}

// The Store methods used outside a transaction take the lock; txView calls
// the unlocked variants while WithinTx holds it.
type txView struct{ s *memStore }

func (s *memStore) GetUserByID(ctx context.Context, id uint64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return txView{s}.GetUserByID(ctx, id)
}
func (s *memStore) GetRentalByID(ctx context.Context, id uint64) (*model.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return txView{s}.GetRentalByID(ctx, id)
}
func (s *memStore) GetOpenRentalByUserID(ctx context.Context, id uint64) (*model.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return txView{s}.GetOpenRentalByUserID(ctx, id)
}
func (s *memStore) GetAllRentals(ctx context.Context) ([]model.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return txView{s}.GetAllRentals(ctx)
}
func (s *memStore) GetMoviesByIDs(ctx context.Context, ids []uint64) ([]model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return txView{s}.GetMoviesByIDs(ctx, ids)
}
func (s *memStore) GetMovieByID(ctx context.Context, id uint64) (*model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return txView{s}.GetMovieByID(ctx, id)
}
func (s *memStore) GetMoviesByRentalID(ctx context.Context, id uint64) ([]model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return txView{s}.GetMoviesByRentalID(ctx, id)
}
func (s *memStore) CreateRentalWithMovies(ctx context.Context, r *model.Rental, ids []uint64) error {
	return s.WithinTx(ctx, func(g Gateway) error { return g.CreateRentalWithMovies(ctx, r, ids) })
}
func (s *memStore) UpdateRentalOnClose(ctx context.Context, id uint64, at time.Time, fee int64) error {
	return s.WithinTx(ctx, func(g Gateway) error { return g.UpdateRentalOnClose(ctx, id, at, fee) })
}
func (s *memStore) FindRentals(_ context.Context, f RentalFilter) ([]model.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Rental{}
	for _, r := range (txView{s}).sorted() {
		if f.UserID != nil && r.UserID != *f.UserID {
			continue
		}
		if f.Closed != nil && r.Closed != *f.Closed {
			continue
		}
		if f.EndBefore != nil && !r.EndDate.Before(*f.EndBefore) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (v txView) GetUserByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := v.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (v txView) GetRentalByID(_ context.Context, id uint64) (*model.Rental, error) {
	r, ok := v.s.rentals[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (v txView) GetOpenRentalByUserID(_ context.Context, userID uint64) (*model.Rental, error) {
	for _, r := range v.sorted() {
		if r.UserID == userID && !r.Closed {
			return &r, nil
		}
	}
	return nil, nil
}

func (v txView) GetAllRentals(context.Context) ([]model.Rental, error) {
	return v.sorted(), nil
}

func (v txView) sorted() []model.Rental {
	out := make([]model.Rental, 0, len(v.s.rentals))
	for _, r := range v.s.rentals {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// view reports RentalID only while the linked rental is open.
func (v txView) view(m model.Movie) model.Movie {
	if m.RentalID != nil {
		if r, ok := v.s.rentals[*m.RentalID]; !ok || r.Closed {
			m.RentalID = nil
		}
	}
	return m
}

func (v txView) GetMoviesByIDs(_ context.Context, ids []uint64) ([]model.Movie, error) {
	out := []model.Movie{}
	for _, id := range ids {
		if m, ok := v.s.movies[id]; ok {
			out = append(out, v.view(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v txView) GetMovieByID(_ context.Context, id uint64) (*model.Movie, error) {
	m, ok := v.s.movies[id]
	if !ok {
		return nil, nil
	}
	m = v.view(m)
	return &m, nil
}

func (v txView) GetMoviesByRentalID(_ context.Context, rentalID uint64) ([]model.Movie, error) {
	out := []model.Movie{}
	for _, m := range v.s.movies {
		if m.RentalID != nil && *m.RentalID == rentalID {
			out = append(out, v.view(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v txView) CreateRentalWithMovies(_ context.Context, r *model.Rental, ids []uint64) error {
	id := v.s.nextID
	v.s.nextID++
	r.ID = id
	v.s.rentals[id] = *r
	for _, mid := range ids {
		m, ok := v.s.movies[mid]
		if !ok {
			return errors.New("movie vanished")
		}
		rid := id
		m.RentalID = &rid
		v.s.movies[mid] = m
	}
	// fail after the writes so the rollback has something to undo
	return v.s.failCreate
}

func (v txView) UpdateRentalOnClose(_ context.Context, id uint64, at time.Time, fee int64) error {
	r, ok := v.s.rentals[id]
	if !ok || r.Closed {
		return errors.New("rental not open")
	}
	r.Closed = true
	r.ClosingDate = &at
	r.FeeCents = &fee
	v.s.rentals[id] = r
	return nil
}
