package repository

import (
	"context"
	"time"

	"github.com/iliyamo/travel-lottery/internal/model"
)

// Store is the persistence boundary of the draw core, implemented by
// MySQLStore and memstore.Store.  Read methods run without locks; everything
// that mutates state goes through WithTx so that a failure leaves no partial
// effects.
//
// Implementations report absent rows with ErrNotFound, unique index
// violations on public codes with ErrDuplicateCode and failed conditional
// updates with ErrConflict.
type Store interface {
	Reader
	// WithTx runs fn inside a single transaction.  The transaction commits
	// when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Reader groups the lock-free lookups.
type Reader interface {
	GetLottery(ctx context.Context, id uint64) (model.Lottery, error)
	GetLotteryByCode(ctx context.Context, code string) (model.Lottery, error)
	// ListLotteries returns lotteries ordered by id; an empty status means all.
	ListLotteries(ctx context.Context, status model.LotteryStatus) ([]model.Lottery, error)
	// ListDueLotteries returns active lotteries whose draw date is at or
	// before now and that sold at least one ticket.
	ListDueLotteries(ctx context.Context, now time.Time) ([]model.Lottery, error)

	GetTicket(ctx context.Context, id uint64) (model.Ticket, error)
	GetTicketByCode(ctx context.Context, code string) (model.Ticket, error)
	ListTicketsByUser(ctx context.Context, userID uint64) ([]model.Ticket, error)

	GetDraw(ctx context.Context, id uint64) (model.Draw, error)
	GetDrawByCode(ctx context.Context, code string) (model.Draw, error)
	GetDrawByQRToken(ctx context.Context, token string) (model.Draw, error)
	ListDrawsForLottery(ctx context.Context, lotteryID uint64) ([]model.Draw, error)

	GetUser(ctx context.Context, id uint64) (model.User, error)
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	// LockLottery reads the lottery and holds a row lock until the
	// transaction ends.
	LockLottery(ctx context.Context, id uint64) (model.Lottery, error)
	// NextLotterySeq returns the next free code sequence for a year.
	NextLotterySeq(ctx context.Context, year int) (int, error)
	// InsertLottery stores a new lottery and sets its ID and timestamps.
	InsertLottery(ctx context.Context, l *model.Lottery) error

	// DebitTokens subtracts amount from the user's balance only when the
	// balance covers it.  It returns ErrNotFound for an unknown
	// user and ErrInsufficientBalance when the balance is short.
	DebitTokens(ctx context.Context, userID uint64, amount int64) error
	// CreditTokens adds amount to the user's balance and returns the new balance.
	CreditTokens(ctx context.Context, userID uint64, amount int64) (int64, error)

	// InsertTicket stores a ticket and sets its ID.
	InsertTicket(ctx context.Context, t *model.Ticket) error
	// IncrementSold bumps sold_tickets from expected to expected+1 while the
	// lottery is active; any other current state yields ErrConflict.
	IncrementSold(ctx context.Context, lotteryID uint64, expected int) error
	// ListTickets returns the lottery's tickets ordered by ticket number.
	ListTickets(ctx context.Context, lotteryID uint64) ([]model.Ticket, error)

	// MarkDrawn transitions the lottery from active to drawn.  It is the
	// serialization point for concurrent draws: when the lottery is no
	// longer active it returns ErrConflict.
	MarkDrawn(ctx context.Context, lotteryID, winnerID uint64, drawnAt time.Time) error
	// InsertDraw stores the draw and sets its ID.  A second draw for the
	// same lottery yields ErrConflict.
	InsertDraw(ctx context.Context, d *model.Draw) error
}

// Accounts covers user registration and refresh token bookkeeping used by
// the auth endpoints.
type Accounts interface {
	// CreateUser inserts u and sets its ID; a taken email yields ErrEmailExists.
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUser(ctx context.Context, id uint64) (model.User, error)

	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error
	// ValidateRefresh returns the owner of a live token or ErrNotFound.
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeRefresh(ctx context.Context, tokenHash string) error
	RevokeAllRefresh(ctx context.Context, userID uint64) error
}
