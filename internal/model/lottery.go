package model

import "time"

// LotteryStatus is the lifecycle state of a lottery.  The only transition is
// active -> drawn and drawn is terminal.
type LotteryStatus string

const (
	LotteryActive LotteryStatus = "active"
	LotteryDrawn  LotteryStatus = "drawn"
)

// Default number rules applied when a lottery is created without explicit
// selection settings ("6 numbers from 1-49").
const (
	DefaultNumberCount = 6
	DefaultNumberMin   = 1
	DefaultNumberMax   = 49
)

// MaxNumberRange caps how many values [NumberMin, NumberMax] may span.
const MaxNumberRange = 1000

// Lottery is a travel prize pool with a fixed ticket price, a capacity and a
// single eventual draw.  Rows are never deleted.
//
// Fields:
//
//	ID               – primary key identifier.
//	LotteryCode      – public code, LT{year}-{seq}.
//	CodeYear/CodeSeq – components the code was built from; (year, seq) is unique.
//	Title            – display name of the lottery.
//	Destination      – travel destination offered as the prize.
//	PrizeDescription – free text describing the prize.
//	TicketPrice      – price of one ticket in tokens.
//	MaxTickets       – capacity; SoldTickets never exceeds it.
//	SoldTickets      – number of ticket rows referencing this lottery.
//	NumberCount      – how many numbers a selection must contain.
//	NumberMin/Max    – inclusive range for selected numbers.
//	DrawDate         – when the draw is due.
//	Status           – active or drawn.
//	WinnerID         – user who holds the winning ticket (set by the draw).
//	DrawnAt          – when the draw happened.
type Lottery struct {
	ID               uint64        `json:"id"`                  // lotteries.id
	LotteryCode      string        `json:"lottery_code"`        // lotteries.lottery_code
	CodeYear         int           `json:"-"`                   // lotteries.code_year
	CodeSeq          int           `json:"-"`                   // lotteries.code_seq
	Title            string        `json:"title"`               // lotteries.title
	Destination      string        `json:"destination"`         // lotteries.destination
	PrizeDescription string        `json:"prize_description"`   // lotteries.prize_description
	TicketPrice      int64         `json:"ticket_price"`        // lotteries.ticket_price
	MaxTickets       int           `json:"max_tickets"`         // lotteries.max_tickets
	SoldTickets      int           `json:"sold_tickets"`        // lotteries.sold_tickets
	NumberCount      int           `json:"number_count"`        // lotteries.number_count
	NumberMin        int           `json:"number_min"`          // lotteries.number_min
	NumberMax        int           `json:"number_max"`          // lotteries.number_max
	DrawDate         time.Time     `json:"draw_date"`           // lotteries.draw_date
	Status           LotteryStatus `json:"status"`              // lotteries.status
	WinnerID         *uint64       `json:"winner_id,omitempty"` // lotteries.winner_id (nullable)
	DrawnAt          *time.Time    `json:"drawn_at,omitempty"`  // lotteries.drawn_at (nullable)
	CreatedAt        time.Time     `json:"created_at"`          // lotteries.created_at
	UpdatedAt        time.Time     `json:"updated_at"`          // lotteries.updated_at
}

// IsActive reports whether tickets can still be sold for the lottery.
func (l Lottery) IsActive() bool { return l.Status == LotteryActive }

// SoldOut reports whether the lottery reached its capacity.
func (l Lottery) SoldOut() bool { return l.SoldTickets >= l.MaxTickets }
