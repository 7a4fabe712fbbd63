package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/travel-lottery/internal/model"
)

// TicketRepo reads and writes the tickets table.  selected_numbers is a JSON
// array column.
type TicketRepo struct{}

const ticketColumns = `id, lottery_id, user_id, ticket_number, ticket_code, selected_numbers,
	auto_generated, price_paid, purchased_at`

func scanTicket(s scanner) (model.Ticket, error) {
	var (
		t   model.Ticket
		raw []byte
	)
	if err := s.Scan(&t.ID, &t.LotteryID, &t.UserID, &t.TicketNumber, &t.TicketCode, &raw,
		&t.AutoGenerated, &t.PricePaid, &t.PurchasedAt); err != nil {
		return model.Ticket{}, err
	}
	ns, err := decodeNumbers(raw)
	if err != nil {
		return model.Ticket{}, err
	}
	t.SelectedNumbers = ns
	return t, nil
}

// GetByID loads a ticket by primary key.
func (TicketRepo) GetByID(ctx context.Context, q dbtx, id uint64) (model.Ticket, error) {
	t, err := scanTicket(q.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id))
	return t, noRows(err)
}

// GetByCode loads a ticket by its public code.
func (TicketRepo) GetByCode(ctx context.Context, q dbtx, code string) (model.Ticket, error) {
	t, err := scanTicket(q.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_code = ?`, code))
	return t, noRows(err)
}

// ListByLottery returns a lottery's tickets in ticket number order.
func (TicketRepo) ListByLottery(ctx context.Context, q dbtx, lotteryID uint64) ([]model.Ticket, error) {
	return listTickets(ctx, q, `SELECT `+ticketColumns+` FROM tickets WHERE lottery_id = ? ORDER BY ticket_number`, lotteryID)
}

// ListByUser returns a user's tickets, newest first.
func (TicketRepo) ListByUser(ctx context.Context, q dbtx, userID uint64) ([]model.Ticket, error) {
	return listTickets(ctx, q, `SELECT `+ticketColumns+` FROM tickets WHERE user_id = ? ORDER BY purchased_at DESC, id DESC`, userID)
}

func listTickets(ctx context.Context, q dbtx, query string, arg any) ([]model.Ticket, error) {
	rows, err := q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Insert stores a ticket and sets its id.  A clash on ticket_code or on
// (lottery_id, ticket_number) means another purchase took the number and is
// reported as ErrConflict.
func (TicketRepo) Insert(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
	nums, err := encodeNumbers(t.SelectedNumbers)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO tickets
		(lottery_id, user_id, ticket_number, ticket_code, selected_numbers, auto_generated, price_paid, purchased_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.LotteryID, t.UserID, t.TicketNumber, t.TicketCode, string(nums), t.AutoGenerated, t.PricePaid, t.PurchasedAt.UTC())
	if err != nil {
		if msg, dup := duplicateKey(err); dup {
			if strings.Contains(msg, "uq_tickets_") {
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
	t.ID = uint64(id)
	return nil
}
