package model

import "time"

// SystemExecutor identifies draws triggered by the scheduler rather than an
// operator.
const SystemExecutor = "system"

// Draw is the single authoritative record of a lottery's outcome.  It is
// written once, at draw time, and never updated.
//
// Fields:
//
//	ID               – primary key identifier.
//	DrawCode         – public code, DRW-XXXXXX.
//	LotteryID        – lottery the draw resolves (unique).
//	WinningTicketID  – ticket selected as winner.
//	WinnerID         – owner of the winning ticket.
//	WinningNumbers   – copy of the winning ticket's selection.
//	TotalTicketsSold – sold count at draw time.
//	ExecutedBy       – "system" or the operator id.
//	VerificationHash – hex SHA-256 over draw code, winning ticket id and DrawnAt.
//	QRToken          – QR-encodable token resolving back to this draw.
//	DrawnAt          – draw timestamp, millisecond precision, UTC.
type Draw struct {
	ID               uint64    `json:"id"`                 // draws.id
	DrawCode         string    `json:"draw_code"`          // draws.draw_code
	LotteryID        uint64    `json:"lottery_id"`         // draws.lottery_id
	WinningTicketID  uint64    `json:"winning_ticket_id"`  // draws.winning_ticket_id
	WinnerID         uint64    `json:"winner_id"`          // draws.winner_id
	WinningNumbers   []int     `json:"winning_numbers"`    // draws.winning_numbers (JSON array)
	TotalTicketsSold int       `json:"total_tickets_sold"` // draws.total_tickets_sold
	ExecutedBy       string    `json:"executed_by"`        // draws.executed_by
	VerificationHash string    `json:"verification_hash"`  // draws.verification_hash
	QRToken          string    `json:"qr_token"`           // draws.qr_token
	DrawnAt          time.Time `json:"drawn_at"`           // draws.drawn_at
}

// DrawFacts is the public answer to "what happened" for a draw.  It is built
// only from stored rows so that repeated lookups return identical values.
type DrawFacts struct {
	DrawCode          string    `json:"draw_code"`
	QRToken           string    `json:"qr_token"`
	LotteryID         uint64    `json:"lottery_id"`
	LotteryCode       string    `json:"lottery_code"`
	WinningTicketID   uint64    `json:"winning_ticket_id"`
	WinningTicketCode string    `json:"winning_ticket_code"`
	WinnerID          uint64    `json:"winner_id"`
	WinningNumbers    []int     `json:"winning_numbers"`
	TotalTicketsSold  int       `json:"total_tickets_sold"`
	ExecutedBy        string    `json:"executed_by"`
	VerificationHash  string    `json:"verification_hash"`
	HashValid         bool      `json:"hash_valid"`
	DrawnAt           time.Time `json:"drawn_at"`
}
