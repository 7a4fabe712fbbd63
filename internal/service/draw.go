package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-lottery/internal/codegen"
	"github.com/iliyamo/travel-lottery/internal/metrics"
	"github.com/iliyamo/travel-lottery/internal/model"
	"github.com/iliyamo/travel-lottery/internal/repository"
)

// DrawOutcome is the result of a successful draw: the lottery after its
// transition to drawn and the draw record that was created.
type DrawOutcome struct {
	Lottery model.Lottery `json:"lottery"`
	Draw    model.Draw    `json:"draw"`
}

// ExecuteDraw picks a winning ticket uniformly at random among every ticket
// sold for the lottery and records the draw.  An empty executorID means the
// draw was triggered by the system.
//
// The conditional active->drawn transition is the serialization point: of
// two concurrent calls exactly one succeeds and the other gets
// ErrAlreadyDrawn.  On any error the lottery stays active.
func (s *Service) ExecuteDraw(ctx context.Context, lotteryID uint64, executorID string) (DrawOutcome, error) {
	if executorID == "" {
		executorID = model.SystemExecutor
	}

	var out DrawOutcome
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		l, err := tx.LockLottery(ctx, lotteryID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrLotteryNotFound
			}
			return fmt.Errorf("lock lottery: %w", err)
		}
		if l.Status == model.LotteryDrawn {
			return ErrAlreadyDrawn
		}

		tickets, err := tx.ListTickets(ctx, l.ID)
		if err != nil {
			return fmt.Errorf("list tickets: %w", err)
		}
		if len(tickets) == 0 {
			return ErrNoTicketsSold
		}

		idx, err := randomIndex(s.random, len(tickets))
		if err != nil {
			return err
		}
		winner := tickets[idx]
		drawnAt := s.now().UTC().Truncate(timePrecision)

		if err := tx.MarkDrawn(ctx, l.ID, winner.UserID, drawnAt); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrAlreadyDrawn
			}
			return fmt.Errorf("mark drawn: %w", err)
		}

		d := model.Draw{
			LotteryID:        l.ID,
			WinningTicketID:  winner.ID,
			WinnerID:         winner.UserID,
			WinningNumbers:   append([]int(nil), winner.SelectedNumbers...),
			TotalTicketsSold: len(tickets),
			ExecutedBy:       executorID,
			DrawnAt:          drawnAt,
		}
		if err := insertDrawWithFreshCode(ctx, tx, s.random, &d); err != nil {
			return err
		}

		winnerID := winner.UserID
		l.Status = model.LotteryDrawn
		l.WinnerID = &winnerID
		l.DrawnAt = &drawnAt
		out = DrawOutcome{Lottery: l, Draw: d}
		return nil
	})
	if err != nil {
		return DrawOutcome{}, err
	}

	metrics.RecordDraw(out.Draw.ExecutedBy == model.SystemExecutor)
	s.log.WithFields(logrus.Fields{
		"lottery_code":      out.Lottery.LotteryCode,
		"draw_code":         out.Draw.DrawCode,
		"winning_ticket_id": out.Draw.WinningTicketID,
		"tickets_sold":      out.Draw.TotalTicketsSold,
		"executed_by":       out.Draw.ExecutedBy,
	}).Info("draw executed")
	if perr := s.publisher.DrawExecuted(ctx, out.Lottery, out.Draw); perr != nil {
		s.log.WithError(perr).WithField("draw_code", out.Draw.DrawCode).Warn("publish draw.executed failed")
	}
	return out, nil
}

// insertDrawWithFreshCode assigns a draw code, hash and QR token and inserts
// the draw, regenerating the code when it collides with an existing one.
func insertDrawWithFreshCode(ctx context.Context, tx repository.Tx, r io.Reader, d *model.Draw) error {
	for attempt := 0; attempt < codegen.MaxAttempts; attempt++ {
		code, err := codegen.DrawCodeFrom(r)
		if err != nil {
			return err
		}
		d.DrawCode = code
		d.QRToken = codegen.QRToken(code)
		d.VerificationHash = VerificationHash(code, d.WinningTicketID, d.DrawnAt.UnixMilli())

		err = tx.InsertDraw(ctx, d)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrDuplicateCode):
			metrics.RecordCodeCollision("draw")
			continue
		case errors.Is(err, repository.ErrConflict):
			return ErrAlreadyDrawn
		default:
			return fmt.Errorf("insert draw: %w", err)
		}
	}
	return ErrCodeExhausted
}

// VerificationHash is hex(SHA-256(drawCode || winningTicketID || drawnAtMillis))
// with the integers in base 10.  Every input is immutable once the draw is
// stored, so the hash can be recomputed at any time.
func VerificationHash(drawCode string, winningTicketID uint64, drawnAtMillis int64) string {
	h := sha256.New()
	h.Write([]byte(drawCode))
	h.Write([]byte(strconv.FormatUint(winningTicketID, 10)))
	h.Write([]byte(strconv.FormatInt(drawnAtMillis, 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyHash reports whether the stored hash matches the draw's facts.
func VerifyHash(d model.Draw) bool {
	return d.VerificationHash == VerificationHash(d.DrawCode, d.WinningTicketID, d.DrawnAt.UnixMilli())
}
