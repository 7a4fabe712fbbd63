package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/travel-lottery/internal/model"
)

// MySQLStore implements Store and Accounts on top of database/sql.
type MySQLStore struct {
	db      *sql.DB
	lottery LotteryRepo
	tickets TicketRepo
	draws   DrawRepo
	users   UserRepo
	tokens  TokenRepo
	now     func() time.Time
}

var (
	_ Store    = (*MySQLStore)(nil)
	_ Accounts = (*MySQLStore)(nil)
)

// NewMySQLStore returns a store bound to db.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db, now: time.Now}
}

// WithTx begins a transaction, runs fn and commits when fn succeeds.
func (s *MySQLStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&mysqlTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func (s *MySQLStore) GetLottery(ctx context.Context, id uint64) (model.Lottery, error) {
	return s.lottery.GetByID(ctx, s.db, id)
}

func (s *MySQLStore) GetLotteryByCode(ctx context.Context, code string) (model.Lottery, error) {
	return s.lottery.GetByCode(ctx, s.db, code)
}

func (s *MySQLStore) ListLotteries(ctx context.Context, status model.LotteryStatus) ([]model.Lottery, error) {
	return s.lottery.List(ctx, s.db, status)
}

func (s *MySQLStore) ListDueLotteries(ctx context.Context, now time.Time) ([]model.Lottery, error) {
	return s.lottery.ListDue(ctx, s.db, now)
}

func (s *MySQLStore) GetTicket(ctx context.Context, id uint64) (model.Ticket, error) {
	return s.tickets.GetByID(ctx, s.db, id)
}

func (s *MySQLStore) GetTicketByCode(ctx context.Context, code string) (model.Ticket, error) {
	return s.tickets.GetByCode(ctx, s.db, code)
}

func (s *MySQLStore) ListTicketsByUser(ctx context.Context, userID uint64) ([]model.Ticket, error) {
	return s.tickets.ListByUser(ctx, s.db, userID)
}

func (s *MySQLStore) GetDraw(ctx context.Context, id uint64) (model.Draw, error) {
	return s.draws.GetByID(ctx, s.db, id)
}

func (s *MySQLStore) GetDrawByCode(ctx context.Context, code string) (model.Draw, error) {
	return s.draws.GetByCode(ctx, s.db, code)
}

func (s *MySQLStore) GetDrawByQRToken(ctx context.Context, token string) (model.Draw, error) {
	return s.draws.GetByQRToken(ctx, s.db, token)
}

func (s *MySQLStore) ListDrawsForLottery(ctx context.Context, lotteryID uint64) ([]model.Draw, error) {
	return s.draws.ListByLottery(ctx, s.db, lotteryID)
}

func (s *MySQLStore) GetUser(ctx context.Context, id uint64) (model.User, error) {
	return s.users.GetByID(ctx, s.db, id)
}

func (s *MySQLStore) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.users.GetByEmail(ctx, s.db, email)
}

func (s *MySQLStore) CreateUser(ctx context.Context, u *model.User) error {
	return s.users.Create(ctx, s.db, u)
}

func (s *MySQLStore) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error {
	return s.tokens.StoreRefresh(ctx, s.db, userID, tokenHash, expiresAt)
}

func (s *MySQLStore) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	return s.tokens.ValidateRefresh(ctx, s.db, tokenHash, s.now())
}

func (s *MySQLStore) RevokeRefresh(ctx context.Context, tokenHash string) error {
	return s.tokens.RevokeByHash(ctx, s.db, tokenHash)
}

func (s *MySQLStore) RevokeAllRefresh(ctx context.Context, userID uint64) error {
	return s.tokens.RevokeAllForUser(ctx, s.db, userID)
}

// mysqlTx runs the Tx operations on a caller-owned *sql.Tx.
type mysqlTx struct {
	tx *sql.Tx
	s  *MySQLStore
}

func (t *mysqlTx) LockLottery(ctx context.Context, id uint64) (model.Lottery, error) {
	return t.s.lottery.LockByID(ctx, t.tx, id)
}

func (t *mysqlTx) NextLotterySeq(ctx context.Context, year int) (int, error) {
	return t.s.lottery.NextSeq(ctx, t.tx, year)
}

func (t *mysqlTx) InsertLottery(ctx context.Context, l *model.Lottery) error {
	return t.s.lottery.Insert(ctx, t.tx, l)
}

func (t *mysqlTx) DebitTokens(ctx context.Context, userID uint64, amount int64) error {
	return t.s.users.Debit(ctx, t.tx, userID, amount)
}

func (t *mysqlTx) CreditTokens(ctx context.Context, userID uint64, amount int64) (int64, error) {
	return t.s.users.Credit(ctx, t.tx, userID, amount)
}

func (t *mysqlTx) InsertTicket(ctx context.Context, tk *model.Ticket) error {
	return t.s.tickets.Insert(ctx, t.tx, tk)
}

func (t *mysqlTx) IncrementSold(ctx context.Context, lotteryID uint64, expected int) error {
	return t.s.lottery.IncrementSold(ctx, t.tx, lotteryID, expected)
}

func (t *mysqlTx) ListTickets(ctx context.Context, lotteryID uint64) ([]model.Ticket, error) {
	return t.s.tickets.ListByLottery(ctx, t.tx, lotteryID)
}

func (t *mysqlTx) MarkDrawn(ctx context.Context, lotteryID, winnerID uint64, drawnAt time.Time) error {
	return t.s.lottery.MarkDrawn(ctx, t.tx, lotteryID, winnerID, drawnAt)
}

func (t *mysqlTx) InsertDraw(ctx context.Context, d *model.Draw) error {
	return t.s.draws.Insert(ctx, t.tx, d)
}
