package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/travel-lottery/internal/model"
)

func TestCreateLottery_AssignsYearlySequence(t *testing.T) {
	f := newFixture(t)

	a := f.lottery(t, 45, 500)
	b := f.lottery(t, 45, 500)
	assert.Equal(t, "LT2025-101", a.LotteryCode)
	assert.Equal(t, "LT2025-102", b.LotteryCode)
	assert.Equal(t, model.LotteryActive, a.Status)
	assert.Equal(t, model.DefaultNumberCount, a.NumberCount)
	assert.Equal(t, model.DefaultNumberMin, a.NumberMin)
	assert.Equal(t, model.DefaultNumberMax, a.NumberMax)

	f.clock.Advance(365 * 24 * time.Hour)
	c := f.lottery(t, 45, 500)
	assert.Equal(t, "LT2026-101", c.LotteryCode)
}

func TestCreateLottery_Validation(t *testing.T) {
	f := newFixture(t)
	future := f.clock.Now().Add(time.Hour)
	valid := CreateLotteryCommand{Title: "Bali", TicketPrice: 10, MaxTickets: 10, DrawDate: future}

	mutate := map[string]func(c *CreateLotteryCommand){
		"blank title":    func(c *CreateLotteryCommand) { c.Title = "  " },
		"zero price":     func(c *CreateLotteryCommand) { c.TicketPrice = 0 },
		"zero capacity":  func(c *CreateLotteryCommand) { c.MaxTickets = 0 },
		"past draw date": func(c *CreateLotteryCommand) { c.DrawDate = f.clock.Now().Add(-time.Minute) },
		"empty range":    func(c *CreateLotteryCommand) { c.NumberCount, c.NumberMin, c.NumberMax = 1, 5, 5 },
		"count too big":  func(c *CreateLotteryCommand) { c.NumberCount, c.NumberMin, c.NumberMax = 6, 1, 5 },
		"zero count":     func(c *CreateLotteryCommand) { c.NumberCount, c.NumberMin, c.NumberMax = 0, 1, 5 },
		"negative min":   func(c *CreateLotteryCommand) { c.NumberCount, c.NumberMin, c.NumberMax = 6, -5, 49 },
		"range too wide": func(c *CreateLotteryCommand) { c.NumberCount, c.NumberMin, c.NumberMax = 6, 1, 50_000_000 },
		"range one over": func(c *CreateLotteryCommand) { c.NumberCount, c.NumberMin, c.NumberMax = 6, 0, model.MaxNumberRange },
	}
	for name, m := range mutate {
		t.Run(name, func(t *testing.T) {
			cmd := valid
			m(&cmd)
			_, err := f.svc.CreateLottery(context.Background(), cmd)
			assert.ErrorIs(t, err, ErrInvalidLottery)
		})
	}

	custom := valid
	custom.NumberCount, custom.NumberMin, custom.NumberMax = 3, 1, 10
	l, err := f.svc.CreateLottery(context.Background(), custom)
	require.NoError(t, err)
	assert.Equal(t, 3, l.NumberCount)

	widest := valid
	widest.NumberCount, widest.NumberMin, widest.NumberMax = 6, 1, model.MaxNumberRange
	_, err = f.svc.CreateLottery(context.Background(), widest)
	require.NoError(t, err)

	all, err := f.svc.ListLotteries(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListLotteries_FiltersByStatus(t *testing.T) {
	f := newFixture(t)
	open := f.lottery(t, 1, 10)
	closed := f.lottery(t, 1, 10)
	f.buy(t, closed.ID, f.user(t, 10).ID)
	_, err := f.svc.ExecuteDraw(context.Background(), closed.ID, "")
	require.NoError(t, err)

	active, err := f.svc.ListLotteries(context.Background(), model.LotteryActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, open.ID, active[0].ID)

	drawn, err := f.svc.ListLotteries(context.Background(), model.LotteryDrawn)
	require.NoError(t, err)
	require.Len(t, drawn, 1)
	assert.Equal(t, closed.ID, drawn[0].ID)

	_, err = f.svc.ListLotteries(context.Background(), "pending")
	assert.Error(t, err)
}

func TestCreditTokens(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, 5)

	balance, err := f.svc.CreditTokens(context.Background(), u.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, int64(45), balance)
	assert.Equal(t, int64(45), f.balance(t, u.ID))

	_, err = f.svc.CreditTokens(context.Background(), u.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.svc.CreditTokens(context.Background(), 999, 10)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.GetUser(context.Background(), 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
