package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/travel-lottery/internal/model"
)

// UserRepo reads and writes the users table, including the token balance
// spent on tickets.
type UserRepo struct{}

const userColumns = `id, email, password_hash, role, token_balance, is_active, created_at, updated_at`

func scanUser(s scanner) (model.User, error) {
	var u model.User
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.TokenBalance, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a user with a pre-hashed password and sets its id.
func (UserRepo) Create(ctx context.Context, q dbtx, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	res, err := q.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, token_balance) VALUES (?,?,?,?)",
		u.Email, u.PasswordHash, u.Role, u.TokenBalance)
	if err != nil {
		if _, dup := duplicateKey(err); dup {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.IsActive = true
	return nil
}

// GetByEmail fetches a user by normalized email.
func (UserRepo) GetByEmail(ctx context.Context, q dbtx, email string) (model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email)))
	return u, noRows(err)
}

// GetByID fetches a user by id.
func (UserRepo) GetByID(ctx context.Context, q dbtx, id uint64) (model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	return u, noRows(err)
}

// Debit subtracts amount when the balance covers it.
func (UserRepo) Debit(ctx context.Context, tx *sql.Tx, userID uint64, amount int64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET token_balance = token_balance - ? WHERE id = ? AND token_balance >= ?",
		amount, userID, amount)
	if err != nil {
		return err
	}
	ok, err := expectOneRow(res)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	var one int
	if err := tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ?", userID).Scan(&one); err != nil {
		return noRows(err)
	}
	return ErrInsufficientBalance
}

// Credit adds amount and returns the resulting balance.
func (UserRepo) Credit(ctx context.Context, tx *sql.Tx, userID uint64, amount int64) (int64, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET token_balance = token_balance + ? WHERE id = ?", amount, userID)
	if err != nil {
		return 0, err
	}
	ok, err := expectOneRow(res)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotFound
	}
	var balance int64
	err = tx.QueryRowContext(ctx, "SELECT token_balance FROM users WHERE id = ?", userID).Scan(&balance)
	return balance, noRows(err)
}
