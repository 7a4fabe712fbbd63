package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/travel-lottery/internal/model"
	"github.com/iliyamo/travel-lottery/internal/repository/memstore"
)

var errBroker = errors.New("broker unavailable")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu      sync.Mutex
	tickets []model.Ticket
	draws   []model.Draw
	err     error
}

func (p *recordingPublisher) TicketPurchased(_ context.Context, _ model.Lottery, t model.Ticket) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tickets = append(p.tickets, t)
	return p.err
}

func (p *recordingPublisher) DrawExecuted(_ context.Context, _ model.Lottery, d model.Draw) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draws = append(p.draws, d)
	return p.err
}

// scriptedSource replays scripted bytes first and falls back to crypto/rand
// once the script is used up.
type scriptedSource struct {
	mu     sync.Mutex
	script *bytes.Reader
}

func (s *scriptedSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.script != nil && s.script.Len() > 0 {
		return s.script.Read(p)
	}
	return rand.Read(p)
}

// Script queues b ahead of the fallback source.
func (s *scriptedSource) Script(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = bytes.NewReader(b)
}

type fixture struct {
	svc    *Service
	store  *memstore.Store
	clock  *testClock
	pub    *recordingPublisher
	random *scriptedSource
	users  int
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:  memstore.New(),
		clock:  &testClock{now: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)},
		pub:    &recordingPublisher{},
		random: &scriptedSource{},
	}
	all := append([]Option{WithClock(f.clock.Now), WithPublisher(f.pub), WithRandom(f.random)}, opts...)
	f.svc = New(f.store, all...)
	return f
}

func (f *fixture) user(t *testing.T, balance int64) model.User {
	t.Helper()
	f.users++
	u := model.User{Email: fmt.Sprintf("player%d@example.com", f.users),
		PasswordHash: "x", Role: model.RolePlayer, TokenBalance: balance}
	require.NoError(t, f.store.CreateUser(context.Background(), &u))
	return u
}

func (f *fixture) lottery(t *testing.T, price int64, maxTickets int) model.Lottery {
	t.Helper()
	l, err := f.svc.CreateLottery(context.Background(), CreateLotteryCommand{
		Title:       "Lisbon long weekend",
		Destination: "Lisbon",
		TicketPrice: price,
		MaxTickets:  maxTickets,
		DrawDate:    f.clock.Now().Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return l
}

func (f *fixture) balance(t *testing.T, userID uint64) int64 {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return u.TokenBalance
}

func (f *fixture) buy(t *testing.T, lotteryID, userID uint64, numbers ...int) model.Ticket {
	t.Helper()
	tk, err := f.svc.PurchaseTicket(context.Background(), PurchaseCommand{
		LotteryID: lotteryID, UserID: userID, Numbers: numbers, AutoGenerated: len(numbers) == 0,
	})
	require.NoError(t, err)
	return tk
}
