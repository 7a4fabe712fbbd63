package service

import "errors"

// Domain errors returned by the ledger, the draw engine and the verification
// lookups.  Handlers translate them into HTTP responses with errors.Is.
var (
	ErrLotteryNotFound    = errors.New("lottery not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrLotteryNotActive   = errors.New("lottery is not active")
	ErrSoldOut            = errors.New("lottery is sold out")
	ErrInvalidSelection   = errors.New("invalid number selection")
	ErrNoTicketsSold      = errors.New("no tickets sold")
	ErrAlreadyDrawn       = errors.New("lottery already drawn")
	ErrNotFound           = errors.New("not found")
	ErrInvalidLottery     = errors.New("invalid lottery settings")
	ErrCodeExhausted      = errors.New("could not allocate a unique code")
	ErrInvalidAmount      = errors.New("amount must be positive")

	// ErrInvalidOrUnknownCode is deliberately the only error a QR
	// verification can produce for bad input: it does not say whether the
	// payload was malformed, unknown or close to a real code.
	ErrInvalidOrUnknownCode = errors.New("invalid or unknown code")
)
