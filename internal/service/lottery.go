package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-lottery/internal/codegen"
	"github.com/iliyamo/travel-lottery/internal/model"
	"github.com/iliyamo/travel-lottery/internal/repository"
)

// CreateLotteryCommand describes a new lottery.  Zero number rules fall back
// to the 6-from-1-49 defaults.
type CreateLotteryCommand struct {
	Title            string
	Destination      string
	PrizeDescription string
	TicketPrice      int64
	MaxTickets       int
	DrawDate         time.Time
	NumberCount      int
	NumberMin        int
	NumberMax        int
}

func (c *CreateLotteryCommand) applyDefaults() {
	if c.NumberCount == 0 && c.NumberMin == 0 && c.NumberMax == 0 {
		c.NumberCount = model.DefaultNumberCount
		c.NumberMin = model.DefaultNumberMin
		c.NumberMax = model.DefaultNumberMax
	}
}

func (c CreateLotteryCommand) validate(now time.Time) error {
	switch {
	case strings.TrimSpace(c.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidLottery)
	case c.TicketPrice <= 0:
		return fmt.Errorf("%w: ticket price must be positive", ErrInvalidLottery)
	case c.MaxTickets <= 0:
		return fmt.Errorf("%w: max tickets must be positive", ErrInvalidLottery)
	case !c.DrawDate.After(now):
		return fmt.Errorf("%w: draw date must be in the future", ErrInvalidLottery)
	case c.NumberCount < 1:
		return fmt.Errorf("%w: number count must be at least 1", ErrInvalidLottery)
	case c.NumberMin >= c.NumberMax:
		return fmt.Errorf("%w: number range is empty", ErrInvalidLottery)
	case c.NumberMin < 0 || c.NumberMax-c.NumberMin >= model.MaxNumberRange:
		return fmt.Errorf("%w: number range may span at most %d values", ErrInvalidLottery, model.MaxNumberRange)
	case c.NumberCount > c.NumberMax-c.NumberMin+1:
		return fmt.Errorf("%w: range holds fewer than %d numbers", ErrInvalidLottery, c.NumberCount)
	}
	return nil
}

// CreateLottery validates cmd and stores an active lottery with the next
// free LT{year}-{seq} code of the current year.
func (s *Service) CreateLottery(ctx context.Context, cmd CreateLotteryCommand) (model.Lottery, error) {
	cmd.applyDefaults()
	now := s.now().UTC()
	if err := cmd.validate(now); err != nil {
		return model.Lottery{}, err
	}

	l := model.Lottery{
		Title:            strings.TrimSpace(cmd.Title),
		Destination:      strings.TrimSpace(cmd.Destination),
		PrizeDescription: cmd.PrizeDescription,
		TicketPrice:      cmd.TicketPrice,
		MaxTickets:       cmd.MaxTickets,
		NumberCount:      cmd.NumberCount,
		NumberMin:        cmd.NumberMin,
		NumberMax:        cmd.NumberMax,
		DrawDate:         cmd.DrawDate.UTC().Truncate(timePrecision),
		Status:           model.LotteryActive,
		CodeYear:         now.Year(),
	}

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		for attempt := 0; attempt < codegen.MaxAttempts; attempt++ {
			seq, err := tx.NextLotterySeq(ctx, l.CodeYear)
			if err != nil {
				return fmt.Errorf("next lottery sequence: %w", err)
			}
			l.CodeSeq = seq
			l.LotteryCode = codegen.LotteryCode(l.CodeYear, seq)
			err = tx.InsertLottery(ctx, &l)
			if err == nil {
				return nil
			}
			if !errors.Is(err, repository.ErrDuplicateCode) {
				return fmt.Errorf("insert lottery: %w", err)
			}
		}
		return ErrCodeExhausted
	})
	if err != nil {
		return model.Lottery{}, err
	}

	s.log.WithFields(logrus.Fields{
		"lottery_code": l.LotteryCode,
		"max_tickets":  l.MaxTickets,
		"draw_date":    l.DrawDate,
	}).Info("lottery created")
	return l, nil
}

// GetLottery loads a lottery by id.
func (s *Service) GetLottery(ctx context.Context, id uint64) (model.Lottery, error) {
	l, err := s.store.GetLottery(ctx, id)
	if err != nil {
		return model.Lottery{}, notFound(err, ErrLotteryNotFound, "get lottery")
	}
	return l, nil
}

// ListLotteries lists lotteries, optionally filtered by status.
func (s *Service) ListLotteries(ctx context.Context, status model.LotteryStatus) ([]model.Lottery, error) {
	switch status {
	case "", model.LotteryActive, model.LotteryDrawn:
	default:
		return nil, fmt.Errorf("unknown lottery status %q", status)
	}
	return s.store.ListLotteries(ctx, status)
}

// ListTicketsForUser returns the user's tickets, newest first.
func (s *Service) ListTicketsForUser(ctx context.Context, userID uint64) ([]model.Ticket, error) {
	return s.store.ListTicketsByUser(ctx, userID)
}

// GetUser loads a user by id.
func (s *Service) GetUser(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return model.User{}, notFound(err, ErrUserNotFound, "get user")
	}
	return u, nil
}

// CreditTokens adds amount to a user's balance and returns the new balance.
func (s *Service) CreditTokens(ctx context.Context, userID uint64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	var balance int64
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		b, err := tx.CreditTokens(ctx, userID, amount)
		if err != nil {
			return notFound(err, ErrUserNotFound, "credit tokens")
		}
		balance = b
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "amount": amount, "balance": balance}).Info("tokens credited")
	return balance, nil
}

// RunDueDraws executes the draw of every active lottery whose draw date has
// passed and that sold at least one ticket, as the system executor.  A
// lottery drawn concurrently by an operator is skipped.  It returns the
// outcomes of the draws it performed.
func (s *Service) RunDueDraws(ctx context.Context) ([]DrawOutcome, error) {
	due, err := s.store.ListDueLotteries(ctx, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list due lotteries: %w", err)
	}
	var (
		outcomes []DrawOutcome
		errs     []error
	)
	for _, l := range due {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		out, err := s.ExecuteDraw(ctx, l.ID, model.SystemExecutor)
		switch {
		case err == nil:
			outcomes = append(outcomes, out)
		case errors.Is(err, ErrAlreadyDrawn), errors.Is(err, ErrNoTicketsSold):
			s.log.WithField("lottery_code", l.LotteryCode).WithError(err).Debug("scheduled draw skipped")
		default:
			errs = append(errs, fmt.Errorf("draw %s: %w", l.LotteryCode, err))
		}
	}
	return outcomes, errors.Join(errs...)
}
