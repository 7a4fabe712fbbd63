package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// dbtx is satisfied by *sql.DB and *sql.Tx so that every query can run
// either standalone or inside a caller-owned transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const errDuplicateEntry = 1062

// duplicateKey reports whether err is a unique index violation and, if so,
// returns the MySQL error message naming the key.
func duplicateKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == errDuplicateEntry {
		return me.Message, true
	}
	return "", false
}

// noRows maps sql.ErrNoRows to ErrNotFound.
func noRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func encodeNumbers(ns []int) ([]byte, error) {
	if ns == nil {
		ns = []int{}
	}
	return json.Marshal(ns)
}

func decodeNumbers(raw []byte) ([]int, error) {
	var ns []int
	if len(raw) == 0 {
		return []int{}, nil
	}
	if err := json.Unmarshal(raw, &ns); err != nil {
		return nil, fmt.Errorf("decode numbers %q: %w", strings.TrimSpace(string(raw)), err)
	}
	return ns, nil
}

func expectOneRow(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
