package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-lottery/internal/codegen"
	"github.com/iliyamo/travel-lottery/internal/metrics"
	"github.com/iliyamo/travel-lottery/internal/model"
	"github.com/iliyamo/travel-lottery/internal/repository"
)

// PurchaseCommand is a validated request to buy one ticket.
type PurchaseCommand struct {
	LotteryID     uint64
	UserID        uint64
	Numbers       []int
	AutoGenerated bool
}

// PurchaseTicket sells one ticket as a single transaction: the price is
// debited, the ticket is numbered soldTickets+1 and inserted, and the sold
// counter is bumped.  Any failure leaves balance, tickets and counter
// untouched.
//
// When AutoGenerated is set and no numbers are supplied, a quick pick is
// generated; otherwise the selection must match the lottery's number rules.
func (s *Service) PurchaseTicket(ctx context.Context, cmd PurchaseCommand) (model.Ticket, error) {
	var (
		lottery model.Lottery
		ticket  model.Ticket
	)
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		l, err := tx.LockLottery(ctx, cmd.LotteryID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrLotteryNotFound
			}
			return fmt.Errorf("lock lottery: %w", err)
		}
		if !l.IsActive() {
			return ErrLotteryNotActive
		}
		if l.SoldOut() {
			return ErrSoldOut
		}

		numbers, err := s.resolveSelection(l, cmd.Numbers, cmd.AutoGenerated)
		if err != nil {
			return err
		}

		if err := tx.DebitTokens(ctx, cmd.UserID, l.TicketPrice); err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return ErrUserNotFound
			case errors.Is(err, repository.ErrInsufficientBalance):
				return ErrInsufficientTokens
			}
			return fmt.Errorf("debit tokens: %w", err)
		}

		number := l.SoldTickets + 1
		t := model.Ticket{
			LotteryID:       l.ID,
			UserID:          cmd.UserID,
			TicketNumber:    number,
			TicketCode:      codegen.TicketCode(l.LotteryCode, number),
			SelectedNumbers: numbers,
			AutoGenerated:   cmd.AutoGenerated,
			PricePaid:       l.TicketPrice,
			PurchasedAt:     s.now().UTC().Truncate(timePrecision),
		}
		if err := tx.InsertTicket(ctx, &t); err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
		if err := tx.IncrementSold(ctx, l.ID, l.SoldTickets); err != nil {
			return fmt.Errorf("increment sold tickets: %w", err)
		}
		l.SoldTickets = number

		lottery, ticket = l, t
		return nil
	})
	if err != nil {
		metrics.RecordPurchaseRejected(rejectReason(err))
		return model.Ticket{}, err
	}

	metrics.RecordPurchase()
	s.log.WithFields(logrus.Fields{
		"lottery_code": lottery.LotteryCode,
		"ticket_code":  ticket.TicketCode,
		"user_id":      ticket.UserID,
		"sold_tickets": lottery.SoldTickets,
	}).Info("ticket purchased")
	if perr := s.publisher.TicketPurchased(ctx, lottery, ticket); perr != nil {
		s.log.WithError(perr).WithField("ticket_code", ticket.TicketCode).Warn("publish ticket.purchased failed")
	}
	return ticket, nil
}

// resolveSelection returns the sorted selection to store on the ticket.
func (s *Service) resolveSelection(l model.Lottery, numbers []int, auto bool) ([]int, error) {
	if len(numbers) == 0 {
		if !auto {
			return nil, fmt.Errorf("%w: numbers are required", ErrInvalidSelection)
		}
		picked, err := quickPick(s.random, l.NumberCount, l.NumberMin, l.NumberMax)
		if err != nil {
			return nil, fmt.Errorf("quick pick: %w", err)
		}
		sort.Ints(picked)
		return picked, nil
	}
	if err := ValidateSelection(l, numbers); err != nil {
		return nil, err
	}
	sorted := make([]int, len(numbers))
	copy(sorted, numbers)
	sort.Ints(sorted)
	return sorted, nil
}

// ValidateSelection checks that numbers contains exactly NumberCount distinct
// values inside [NumberMin, NumberMax].
func ValidateSelection(l model.Lottery, numbers []int) error {
	if len(numbers) != l.NumberCount {
		return fmt.Errorf("%w: expected %d numbers, got %d", ErrInvalidSelection, l.NumberCount, len(numbers))
	}
	seen := make(map[int]struct{}, len(numbers))
	for _, n := range numbers {
		if n < l.NumberMin || n > l.NumberMax {
			return fmt.Errorf("%w: %d is outside %d-%d", ErrInvalidSelection, n, l.NumberMin, l.NumberMax)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("%w: %d selected twice", ErrInvalidSelection, n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrLotteryNotFound):
		return "lottery_not_found"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrInsufficientTokens):
		return "insufficient_tokens"
	case errors.Is(err, ErrLotteryNotActive):
		return "not_active"
	case errors.Is(err, ErrSoldOut):
		return "sold_out"
	case errors.Is(err, ErrInvalidSelection):
		return "invalid_selection"
	}
	return "error"
}
