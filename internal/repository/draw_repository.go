package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/travel-lottery/internal/model"
)

// DrawRepo reads and writes the draws table.  Draw rows are insert-only.
type DrawRepo struct{}

// uqDrawsLottery is the unique index allowing one draw per lottery.
const uqDrawsLottery = "uq_draws_lottery"

const drawColumns = `id, draw_code, lottery_id, winning_ticket_id, winner_id, winning_numbers,
	total_tickets_sold, executed_by, verification_hash, qr_token, drawn_at`

func scanDraw(s scanner) (model.Draw, error) {
	var (
		d   model.Draw
		raw []byte
	)
	if err := s.Scan(&d.ID, &d.DrawCode, &d.LotteryID, &d.WinningTicketID, &d.WinnerID, &raw,
		&d.TotalTicketsSold, &d.ExecutedBy, &d.VerificationHash, &d.QRToken, &d.DrawnAt); err != nil {
		return model.Draw{}, err
	}
	ns, err := decodeNumbers(raw)
	if err != nil {
		return model.Draw{}, err
	}
	d.WinningNumbers = ns
	return d, nil
}

func (DrawRepo) get(ctx context.Context, q dbtx, column string, arg any) (model.Draw, error) {
	d, err := scanDraw(q.QueryRowContext(ctx, `SELECT `+drawColumns+` FROM draws WHERE `+column+` = ?`, arg))
	return d, noRows(err)
}

// GetByID loads a draw by primary key.
func (r DrawRepo) GetByID(ctx context.Context, q dbtx, id uint64) (model.Draw, error) {
	return r.get(ctx, q, "id", id)
}

// GetByCode loads a draw by its public code.
func (r DrawRepo) GetByCode(ctx context.Context, q dbtx, code string) (model.Draw, error) {
	return r.get(ctx, q, "draw_code", code)
}

// GetByQRToken loads a draw by exact QR token.
func (r DrawRepo) GetByQRToken(ctx context.Context, q dbtx, token string) (model.Draw, error) {
	return r.get(ctx, q, "qr_token", token)
}

// ListByLottery returns the draws of a lottery.
func (DrawRepo) ListByLottery(ctx context.Context, q dbtx, lotteryID uint64) ([]model.Draw, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+drawColumns+` FROM draws WHERE lottery_id = ? ORDER BY id`, lotteryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Draw{}
	for rows.Next() {
		d, err := scanDraw(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Insert stores a draw and sets its id.  A second draw for the lottery
// yields ErrConflict; a clash on draw_code or qr_token yields
// ErrDuplicateCode.
func (DrawRepo) Insert(ctx context.Context, tx *sql.Tx, d *model.Draw) error {
	nums, err := encodeNumbers(d.WinningNumbers)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO draws
		(draw_code, lottery_id, winning_ticket_id, winner_id, winning_numbers, total_tickets_sold,
		 executed_by, verification_hash, qr_token, drawn_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.DrawCode, d.LotteryID, d.WinningTicketID, d.WinnerID, string(nums), d.TotalTicketsSold,
		d.ExecutedBy, d.VerificationHash, d.QRToken, d.DrawnAt.UTC())
	if err != nil {
		if msg, dup := duplicateKey(err); dup {
			if strings.Contains(msg, uqDrawsLottery) {
				return ErrConflict
			}
			return ErrDuplicateCode
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}
