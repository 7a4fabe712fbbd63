package model

import "time"

// Ticket binds one user to one lottery.  TicketNumber is 1-based and equals
// the ticket's creation order within its lottery; TicketCode is derived from
// the lottery code and the number.  Tickets are immutable after creation.
type Ticket struct {
	ID              uint64    `json:"id"`               // tickets.id
	LotteryID       uint64    `json:"lottery_id"`       // tickets.lottery_id
	UserID          uint64    `json:"user_id"`          // tickets.user_id
	TicketNumber    int       `json:"ticket_number"`    // tickets.ticket_number
	TicketCode      string    `json:"ticket_code"`      // tickets.ticket_code
	SelectedNumbers []int     `json:"selected_numbers"` // tickets.selected_numbers (JSON array)
	AutoGenerated   bool      `json:"auto_generated"`   // tickets.auto_generated
	PricePaid       int64     `json:"price_paid"`       // tickets.price_paid
	PurchasedAt     time.Time `json:"purchased_at"`     // tickets.purchased_at
}
