package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/travel-lottery/internal/model"
)

// LotteryRepo reads and writes the lotteries table.
type LotteryRepo struct{}

const lotteryColumns = `id, lottery_code, code_year, code_seq, title, destination, prize_description,
	ticket_price, max_tickets, sold_tickets, number_count, number_min, number_max,
	draw_date, status, winner_id, drawn_at, created_at, updated_at`

func scanLottery(s scanner) (model.Lottery, error) {
	var (
		l        model.Lottery
		winnerID sql.NullInt64
		drawnAt  sql.NullTime
	)
	err := s.Scan(&l.ID, &l.LotteryCode, &l.CodeYear, &l.CodeSeq, &l.Title, &l.Destination, &l.PrizeDescription,
		&l.TicketPrice, &l.MaxTickets, &l.SoldTickets, &l.NumberCount, &l.NumberMin, &l.NumberMax,
		&l.DrawDate, &l.Status, &winnerID, &drawnAt, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return model.Lottery{}, err
	}
	if winnerID.Valid {
		id := uint64(winnerID.Int64)
		l.WinnerID = &id
	}
	if drawnAt.Valid {
		t := drawnAt.Time
		l.DrawnAt = &t
	}
	return l, nil
}

func (LotteryRepo) get(ctx context.Context, q dbtx, query string, arg any) (model.Lottery, error) {
	l, err := scanLottery(q.QueryRowContext(ctx, query, arg))
	return l, noRows(err)
}

// GetByID loads a lottery by primary key.
func (r LotteryRepo) GetByID(ctx context.Context, q dbtx, id uint64) (model.Lottery, error) {
	return r.get(ctx, q, `SELECT `+lotteryColumns+` FROM lotteries WHERE id = ?`, id)
}

// GetByCode loads a lottery by its public code.
func (r LotteryRepo) GetByCode(ctx context.Context, q dbtx, code string) (model.Lottery, error) {
	return r.get(ctx, q, `SELECT `+lotteryColumns+` FROM lotteries WHERE lottery_code = ?`, code)
}

// LockByID loads a lottery and takes a row lock held until the enclosing
// transaction ends.
func (r LotteryRepo) LockByID(ctx context.Context, tx *sql.Tx, id uint64) (model.Lottery, error) {
	return r.get(ctx, tx, `SELECT `+lotteryColumns+` FROM lotteries WHERE id = ? FOR UPDATE`, id)
}

// List returns lotteries ordered by id, filtered by status when non-empty.
func (LotteryRepo) List(ctx context.Context, q dbtx, status model.LotteryStatus) ([]model.Lottery, error) {
	query := `SELECT ` + lotteryColumns + ` FROM lotteries`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id`
	return listLotteries(ctx, q, query, args...)
}

// ListDue returns active lotteries with at least one ticket whose draw date
// is at or before now, oldest draw date first.
func (LotteryRepo) ListDue(ctx context.Context, q dbtx, now time.Time) ([]model.Lottery, error) {
	return listLotteries(ctx, q, `SELECT `+lotteryColumns+` FROM lotteries
		WHERE status = 'active' AND sold_tickets > 0 AND draw_date <= ?
		ORDER BY draw_date, id`, now.UTC())
}

func listLotteries(ctx context.Context, q dbtx, query string, args ...any) ([]model.Lottery, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Lottery{}
	for rows.Next() {
		l, err := scanLottery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// NextSeq returns MAX(code_seq)+1 for the year, starting at 101.  The
// locking read makes concurrent creators queue on the same index range.
func (LotteryRepo) NextSeq(ctx context.Context, tx *sql.Tx, year int) (int, error) {
	var maxSeq sql.NullInt64
	err := tx.QueryRowContext(ctx,
		`SELECT MAX(code_seq) FROM lotteries WHERE code_year = ? FOR UPDATE`, year).Scan(&maxSeq)
	if err != nil {
		return 0, err
	}
	next := int(maxSeq.Int64) + 1
	if next <= 100 {
		next = 101
	}
	return next, nil
}

// Insert stores a lottery and reads back its id and timestamps.
func (r LotteryRepo) Insert(ctx context.Context, tx *sql.Tx, l *model.Lottery) error {
	res, err := tx.ExecContext(ctx, `INSERT INTO lotteries
		(lottery_code, code_year, code_seq, title, destination, prize_description,
		 ticket_price, max_tickets, sold_tickets, number_count, number_min, number_max, draw_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`,
		l.LotteryCode, l.CodeYear, l.CodeSeq, l.Title, l.Destination, l.PrizeDescription,
		l.TicketPrice, l.MaxTickets, l.NumberCount, l.NumberMin, l.NumberMax, l.DrawDate.UTC(), l.Status)
	if err != nil {
		if _, dup := duplicateKey(err); dup {
			return ErrDuplicateCode
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, tx, uint64(id))
	if err != nil {
		return err
	}
	*l = stored
	return nil
}

// IncrementSold moves sold_tickets from expected to expected+1 on an active
// lottery.
func (LotteryRepo) IncrementSold(ctx context.Context, tx *sql.Tx, id uint64, expected int) error {
	res, err := tx.ExecContext(ctx, `UPDATE lotteries SET sold_tickets = sold_tickets + 1
		WHERE id = ? AND sold_tickets = ? AND status = 'active' AND sold_tickets < max_tickets`, id, expected)
	if err != nil {
		return err
	}
	ok, err := expectOneRow(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

// MarkDrawn transitions an active lottery to drawn.
func (LotteryRepo) MarkDrawn(ctx context.Context, tx *sql.Tx, id, winnerID uint64, drawnAt time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE lotteries SET status = 'drawn', winner_id = ?, drawn_at = ?
		WHERE id = ? AND status = 'active'`, winnerID, drawnAt.UTC(), id)
	if err != nil {
		return err
	}
	ok, err := expectOneRow(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}
