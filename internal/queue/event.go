// Package queue defines the lottery domain events exchanged over RabbitMQ
// and the consumer that appends them to the audit log.
package queue

import (
	"time"

	"github.com/iliyamo/travel-lottery/internal/model"
)

// Event types carried in the Type field of every payload.
const (
	TypeTicketPurchased = "ticket.purchased"
	TypeDrawExecuted    = "draw.executed"
)

// TicketPurchasedEvent is published after a ticket purchase committed.
type TicketPurchasedEvent struct {
	Type         string `json:"type"`
	TicketID     uint64 `json:"ticket_id"`
	TicketCode   string `json:"ticket_code"`
	TicketNumber int    `json:"ticket_number"`
	LotteryID    uint64 `json:"lottery_id"`
	LotteryCode  string `json:"lottery_code"`
	UserID       uint64 `json:"user_id"`
	Numbers      []int  `json:"numbers"`
	PricePaid    int64  `json:"price_paid"`
	SoldTickets  int    `json:"sold_tickets"`
	PurchasedAt  string `json:"purchased_at"`
}

// DrawExecutedEvent is published after a draw committed.  It carries the
// facts needed to audit the draw without reading the database.
type DrawExecutedEvent struct {
	Type             string `json:"type"`
	DrawID           uint64 `json:"draw_id"`
	DrawCode         string `json:"draw_code"`
	LotteryID        uint64 `json:"lottery_id"`
	LotteryCode      string `json:"lottery_code"`
	WinningTicketID  uint64 `json:"winning_ticket_id"`
	WinnerID         uint64 `json:"winner_id"`
	WinningNumbers   []int  `json:"winning_numbers"`
	TotalTicketsSold int    `json:"total_tickets_sold"`
	ExecutedBy       string `json:"executed_by"`
	VerificationHash string `json:"verification_hash"`
	DrawnAt          string `json:"drawn_at"`
}

// NewTicketPurchased builds the event for a committed purchase.
func NewTicketPurchased(l model.Lottery, t model.Ticket) TicketPurchasedEvent {
	return TicketPurchasedEvent{
		Type:         TypeTicketPurchased,
		TicketID:     t.ID,
		TicketCode:   t.TicketCode,
		TicketNumber: t.TicketNumber,
		LotteryID:    l.ID,
		LotteryCode:  l.LotteryCode,
		UserID:       t.UserID,
		Numbers:      t.SelectedNumbers,
		PricePaid:    t.PricePaid,
		SoldTickets:  l.SoldTickets,
		PurchasedAt:  t.PurchasedAt.UTC().Format(time.RFC3339Nano),
	}
}

// NewDrawExecuted builds the event for a committed draw.
func NewDrawExecuted(l model.Lottery, d model.Draw) DrawExecutedEvent {
	return DrawExecutedEvent{
		Type:             TypeDrawExecuted,
		DrawID:           d.ID,
		DrawCode:         d.DrawCode,
		LotteryID:        l.ID,
		LotteryCode:      l.LotteryCode,
		WinningTicketID:  d.WinningTicketID,
		WinnerID:         d.WinnerID,
		WinningNumbers:   d.WinningNumbers,
		TotalTicketsSold: d.TotalTicketsSold,
		ExecutedBy:       d.ExecutedBy,
		VerificationHash: d.VerificationHash,
		DrawnAt:          d.DrawnAt.UTC().Format(time.RFC3339Nano),
	}
}
