// Package repository defines error types that are reused across multiple
// repositories and stores. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure scenarios
// without knowing which storage driver produced them.
package repository

import "errors"

// ErrNotFound is returned when a row addressed by id or public code does
// not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateCode is returned when an insert violates the unique index of
// a public code column (lottery_code, draw_code, qr_token, ticket_code).
// Callers holding a random code regenerate it and retry.
var ErrDuplicateCode = errors.New("duplicate code")

// ErrConflict is returned when a conditional update matched no row because
// the current state differs from the expected one, e.g. a lottery that is no
// longer active or a sold counter that moved.
var ErrConflict = errors.New("conflict")

// ErrInsufficientBalance is returned by a conditional debit when the
// user's balance does not cover the amount.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")
