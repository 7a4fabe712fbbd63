package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/travel-lottery/internal/model"
	"github.com/iliyamo/travel-lottery/internal/repository"
)

// memTx mutates the transaction's private state copy.  The store lock is
// held by WithTx for the whole lifetime of a memTx.
type memTx struct {
	st *state
	s  *Store
}

func (t *memTx) fault(op string) error {
	if err, ok := t.s.faults[op]; ok {
		delete(t.s.faults, op)
		return err
	}
	return nil
}

func (t *memTx) LockLottery(_ context.Context, id uint64) (model.Lottery, error) {
	if err := t.fault("LockLottery"); err != nil {
		return model.Lottery{}, err
	}
	l, ok := t.st.lotteries[id]
	if !ok {
		return model.Lottery{}, repository.ErrNotFound
	}
	return l, nil
}

func (t *memTx) NextLotterySeq(_ context.Context, year int) (int, error) {
	if err := t.fault("NextLotterySeq"); err != nil {
		return 0, err
	}
	next := 101
	for _, l := range t.st.lotteries {
		if l.CodeYear == year && l.CodeSeq >= next {
			next = l.CodeSeq + 1
		}
	}
	return next, nil
}

func (t *memTx) InsertLottery(_ context.Context, l *model.Lottery) error {
	if err := t.fault("InsertLottery"); err != nil {
		return err
	}
	for _, existing := range t.st.lotteries {
		if existing.LotteryCode == l.LotteryCode {
			return repository.ErrDuplicateCode
		}
	}
	t.st.lastLottery++
	now := t.s.now().UTC().Truncate(time.Millisecond)
	l.ID = t.st.lastLottery
	l.SoldTickets = 0
	l.CreatedAt, l.UpdatedAt = now, now
	t.st.lotteries[l.ID] = *l
	return nil
}

func (t *memTx) DebitTokens(_ context.Context, userID uint64, amount int64) error {
	if err := t.fault("DebitTokens"); err != nil {
		return err
	}
	u, ok := t.st.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if u.TokenBalance < amount {
		return repository.ErrInsufficientBalance
	}
	u.TokenBalance -= amount
	t.st.users[userID] = u
	return nil
}

func (t *memTx) CreditTokens(_ context.Context, userID uint64, amount int64) (int64, error) {
	if err := t.fault("CreditTokens"); err != nil {
		return 0, err
	}
	u, ok := t.st.users[userID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	u.TokenBalance += amount
	t.st.users[userID] = u
	return u.TokenBalance, nil
}

func (t *memTx) InsertTicket(_ context.Context, tk *model.Ticket) error {
	if err := t.fault("InsertTicket"); err != nil {
		return err
	}
	for _, existing := range t.st.tickets {
		if existing.TicketCode == tk.TicketCode ||
			(existing.LotteryID == tk.LotteryID && existing.TicketNumber == tk.TicketNumber) {
			return repository.ErrConflict
		}
	}
	t.st.lastTicket++
	tk.ID = t.st.lastTicket
	stored := copyTicket(*tk)
	t.st.tickets[tk.ID] = stored
	return nil
}

func (t *memTx) IncrementSold(_ context.Context, lotteryID uint64, expected int) error {
	if err := t.fault("IncrementSold"); err != nil {
		return err
	}
	l, ok := t.st.lotteries[lotteryID]
	if !ok || !l.IsActive() || l.SoldTickets != expected || l.SoldOut() {
		return repository.ErrConflict
	}
	l.SoldTickets++
	l.UpdatedAt = t.s.now().UTC().Truncate(time.Millisecond)
	t.st.lotteries[lotteryID] = l
	return nil
}

func (t *memTx) ListTickets(_ context.Context, lotteryID uint64) ([]model.Ticket, error) {
	if err := t.fault("ListTickets"); err != nil {
		return nil, err
	}
	out := []model.Ticket{}
	for _, tk := range t.st.tickets {
		if tk.LotteryID == lotteryID {
			out = append(out, copyTicket(tk))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketNumber < out[j].TicketNumber })
	return out, nil
}

func (t *memTx) MarkDrawn(_ context.Context, lotteryID, winnerID uint64, drawnAt time.Time) error {
	if err := t.fault("MarkDrawn"); err != nil {
		return err
	}
	l, ok := t.st.lotteries[lotteryID]
	if !ok || !l.IsActive() {
		return repository.ErrConflict
	}
	l.Status = model.LotteryDrawn
	l.WinnerID = &winnerID
	l.DrawnAt = &drawnAt
	l.UpdatedAt = t.s.now().UTC().Truncate(time.Millisecond)
	t.st.lotteries[lotteryID] = l
	return nil
}

func (t *memTx) InsertDraw(_ context.Context, d *model.Draw) error {
	if err := t.fault("InsertDraw"); err != nil {
		return err
	}
	for _, existing := range t.st.draws {
		if existing.LotteryID == d.LotteryID {
			return repository.ErrConflict
		}
		if existing.DrawCode == d.DrawCode || existing.QRToken == d.QRToken {
			return repository.ErrDuplicateCode
		}
	}
	t.st.lastDraw++
	d.ID = t.st.lastDraw
	t.st.draws[d.ID] = copyDraw(*d)
	return nil
}
