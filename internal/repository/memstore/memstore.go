// Package memstore is an in-memory repository.Store and repository.Accounts.
// It backs the tests of the service and handler packages and local runs with
// STORAGE_DRIVER=memory.
//
// Transactions hold a store-wide lock and work on a copy of the state that
// replaces the committed state only when the transaction function succeeds,
// so a failing operation leaves nothing behind.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/travel-lottery/internal/model"
	"github.com/iliyamo/travel-lottery/internal/repository"
)

type refreshRow struct {
	userID    uint64
	expiresAt time.Time
	revoked   bool
}

type state struct {
	lotteries map[uint64]model.Lottery
	tickets   map[uint64]model.Ticket
	draws     map[uint64]model.Draw
	users     map[uint64]model.User
	refresh   map[string]refreshRow

	lastLottery, lastTicket, lastDraw, lastUser uint64
}

func newState() *state {
	return &state{
		lotteries: map[uint64]model.Lottery{},
		tickets:   map[uint64]model.Ticket{},
		draws:     map[uint64]model.Draw{},
		users:     map[uint64]model.User{},
		refresh:   map[string]refreshRow{},
	}
}

func (s *state) clone() *state {
	c := *s
	c.lotteries = make(map[uint64]model.Lottery, len(s.lotteries))
	for k, v := range s.lotteries {
		c.lotteries[k] = v
	}
	c.tickets = make(map[uint64]model.Ticket, len(s.tickets))
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	c.draws = make(map[uint64]model.Draw, len(s.draws))
	for k, v := range s.draws {
		c.draws[k] = v
	}
	c.users = make(map[uint64]model.User, len(s.users))
	for k, v := range s.users {
		c.users[k] = v
	}
	c.refresh = make(map[string]refreshRow, len(s.refresh))
	for k, v := range s.refresh {
		c.refresh[k] = v
	}
	return &c
}

// Store is the in-memory store.  The zero value is not usable; call New.
type Store struct {
	mu     sync.RWMutex
	st     *state
	now    func() time.Time
	faults map[string]error
}

var (
	_ repository.Store    = (*Store)(nil)
	_ repository.Accounts = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{st: newState(), now: time.Now, faults: map[string]error{}}
}

// FailNext makes the next call of the named Tx operation (for example
// "IncrementSold") return err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// WithTx runs fn against a private copy of the state and publishes the copy
// when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(&memTx{st: work, s: s}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func copyInts(ns []int) []int {
	if ns == nil {
		return []int{}
	}
	return append([]int(nil), ns...)
}

func copyTicket(t model.Ticket) model.Ticket {
	t.SelectedNumbers = copyInts(t.SelectedNumbers)
	return t
}

func copyDraw(d model.Draw) model.Draw {
	d.WinningNumbers = copyInts(d.WinningNumbers)
	return d
}

func (s *Store) GetLottery(_ context.Context, id uint64) (model.Lottery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.st.lotteries[id]
	if !ok {
		return model.Lottery{}, repository.ErrNotFound
	}
	return l, nil
}

func (s *Store) GetLotteryByCode(_ context.Context, code string) (model.Lottery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.st.lotteries {
		if l.LotteryCode == code {
			return l, nil
		}
	}
	return model.Lottery{}, repository.ErrNotFound
}

func (s *Store) ListLotteries(_ context.Context, status model.LotteryStatus) ([]model.Lottery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Lottery{}
	for _, l := range s.st.lotteries {
		if status == "" || l.Status == status {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListDueLotteries(_ context.Context, now time.Time) ([]model.Lottery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Lottery{}
	for _, l := range s.st.lotteries {
		if l.IsActive() && l.SoldTickets > 0 && !l.DrawDate.After(now) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DrawDate.Equal(out[j].DrawDate) {
			return out[i].DrawDate.Before(out[j].DrawDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetTicket(_ context.Context, id uint64) (model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.st.tickets[id]
	if !ok {
		return model.Ticket{}, repository.ErrNotFound
	}
	return copyTicket(t), nil
}

func (s *Store) GetTicketByCode(_ context.Context, code string) (model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.st.tickets {
		if t.TicketCode == code {
			return copyTicket(t), nil
		}
	}
	return model.Ticket{}, repository.ErrNotFound
}

func (s *Store) ListTicketsByUser(_ context.Context, userID uint64) ([]model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Ticket{}
	for _, t := range s.st.tickets {
		if t.UserID == userID {
			out = append(out, copyTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) findDraw(match func(model.Draw) bool) (model.Draw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.st.draws {
		if match(d) {
			return copyDraw(d), nil
		}
	}
	return model.Draw{}, repository.ErrNotFound
}

func (s *Store) GetDraw(_ context.Context, id uint64) (model.Draw, error) {
	return s.findDraw(func(d model.Draw) bool { return d.ID == id })
}

func (s *Store) GetDrawByCode(_ context.Context, code string) (model.Draw, error) {
	return s.findDraw(func(d model.Draw) bool { return d.DrawCode == code })
}

func (s *Store) GetDrawByQRToken(_ context.Context, token string) (model.Draw, error) {
	return s.findDraw(func(d model.Draw) bool { return d.QRToken == token })
}

func (s *Store) ListDrawsForLottery(_ context.Context, lotteryID uint64) ([]model.Draw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Draw{}
	for _, d := range s.st.draws {
		if d.LotteryID == lotteryID {
			out = append(out, copyDraw(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetUser(_ context.Context, id uint64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.st.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	email = repository.NormalizeEmail(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.st.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = repository.NormalizeEmail(u.Email)
	for _, existing := range s.st.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrEmailExists
		}
	}
	s.st.lastUser++
	now := s.now().UTC()
	u.ID = s.st.lastUser
	u.IsActive = true
	u.CreatedAt, u.UpdatedAt = now, now
	s.st.users[u.ID] = *u
	return nil
}

func (s *Store) StoreRefresh(_ context.Context, userID uint64, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.refresh[tokenHash] = refreshRow{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *Store) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.st.refresh[tokenHash]
	if !ok || row.revoked || s.now().After(row.expiresAt) {
		return 0, repository.ErrNotFound
	}
	return row.userID, nil
}

func (s *Store) RevokeRefresh(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.st.refresh[tokenHash]; ok {
		row.revoked = true
		s.st.refresh[tokenHash] = row
	}
	return nil
}

func (s *Store) RevokeAllRefresh(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, row := range s.st.refresh {
		if row.userID == userID {
			row.revoked = true
			s.st.refresh[k] = row
		}
	}
	return nil
}
