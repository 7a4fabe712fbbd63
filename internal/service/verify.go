package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/travel-lottery/internal/codegen"
	"github.com/iliyamo/travel-lottery/internal/metrics"
	"github.com/iliyamo/travel-lottery/internal/model"
	"github.com/iliyamo/travel-lottery/internal/repository"
)

// LookupResult is what a public code resolves to.  Exactly one of Lottery,
// Draw and Ticket is set, matching Kind.
type LookupResult struct {
	Kind    codegen.Kind     `json:"kind"`
	Lottery *model.Lottery   `json:"lottery,omitempty"`
	Draw    *model.DrawFacts `json:"draw,omitempty"`
	Ticket  *model.Ticket    `json:"ticket,omitempty"`
}

// notFound maps the storage miss to err and wraps anything else.
func notFound(err error, miss error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return miss
	}
	return fmt.Errorf("%s: %w", what, err)
}

// GetLotteryByCode resolves an exact lottery code.
func (s *Service) GetLotteryByCode(ctx context.Context, code string) (model.Lottery, error) {
	l, err := s.store.GetLotteryByCode(ctx, codegen.Normalize(code))
	if err != nil {
		return model.Lottery{}, notFound(err, ErrNotFound, "get lottery by code")
	}
	return l, nil
}

// GetTicketByCode resolves an exact ticket code.
func (s *Service) GetTicketByCode(ctx context.Context, code string) (model.Ticket, error) {
	t, err := s.store.GetTicketByCode(ctx, codegen.Normalize(code))
	if err != nil {
		return model.Ticket{}, notFound(err, ErrNotFound, "get ticket by code")
	}
	return t, nil
}

// GetDrawByCode resolves an exact draw code.
func (s *Service) GetDrawByCode(ctx context.Context, code string) (model.Draw, error) {
	d, err := s.store.GetDrawByCode(ctx, codegen.Normalize(code))
	if err != nil {
		return model.Draw{}, notFound(err, ErrNotFound, "get draw by code")
	}
	return d, nil
}

// GetDraw loads a draw by id.
func (s *Service) GetDraw(ctx context.Context, id uint64) (model.Draw, error) {
	d, err := s.store.GetDraw(ctx, id)
	if err != nil {
		return model.Draw{}, notFound(err, ErrNotFound, "get draw")
	}
	return d, nil
}

// GetDrawsForLottery lists the draws of a lottery; at most one exists.
func (s *Service) GetDrawsForLottery(ctx context.Context, lotteryID uint64) ([]model.Draw, error) {
	if _, err := s.store.GetLottery(ctx, lotteryID); err != nil {
		return nil, notFound(err, ErrLotteryNotFound, "get lottery")
	}
	draws, err := s.store.ListDrawsForLottery(ctx, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("list draws: %w", err)
	}
	return draws, nil
}

// DrawFacts assembles the public facts of a stored draw.
func (s *Service) DrawFacts(ctx context.Context, d model.Draw) (model.DrawFacts, error) {
	l, err := s.store.GetLottery(ctx, d.LotteryID)
	if err != nil {
		return model.DrawFacts{}, fmt.Errorf("get lottery %d: %w", d.LotteryID, err)
	}
	t, err := s.store.GetTicket(ctx, d.WinningTicketID)
	if err != nil {
		return model.DrawFacts{}, fmt.Errorf("get ticket %d: %w", d.WinningTicketID, err)
	}
	return model.DrawFacts{
		DrawCode:          d.DrawCode,
		QRToken:           d.QRToken,
		LotteryID:         l.ID,
		LotteryCode:       l.LotteryCode,
		WinningTicketID:   t.ID,
		WinningTicketCode: t.TicketCode,
		WinnerID:          d.WinnerID,
		WinningNumbers:    d.WinningNumbers,
		TotalTicketsSold:  d.TotalTicketsSold,
		ExecutedBy:        d.ExecutedBy,
		VerificationHash:  d.VerificationHash,
		HashValid:         VerifyHash(d),
		DrawnAt:           d.DrawnAt,
	}, nil
}

// VerifyQR resolves a scanned QR payload to the facts of the draw it was
// issued for.  The payload is a key: after trimming it must equal a stored
// QR token exactly.  Every failure, including storage errors, is reported as
// ErrInvalidOrUnknownCode.
func (s *Service) VerifyQR(ctx context.Context, payload string) (model.DrawFacts, error) {
	facts, err := s.verifyQR(ctx, payload)
	if err != nil {
		metrics.RecordVerification("qr", false)
		if !errors.Is(err, ErrInvalidOrUnknownCode) {
			s.log.WithError(err).Warn("qr verification failed")
		}
		return model.DrawFacts{}, ErrInvalidOrUnknownCode
	}
	metrics.RecordVerification("qr", true)
	return facts, nil
}

func (s *Service) verifyQR(ctx context.Context, payload string) (model.DrawFacts, error) {
	token := strings.TrimSpace(payload)
	if !strings.HasPrefix(token, codegen.QRPrefix+"-") {
		return model.DrawFacts{}, ErrInvalidOrUnknownCode
	}
	d, err := s.store.GetDrawByQRToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.DrawFacts{}, ErrInvalidOrUnknownCode
		}
		return model.DrawFacts{}, err
	}
	return s.DrawFacts(ctx, d)
}

// LookupByCode dispatches a public code on its prefix.  Draw codes resolve to
// the same facts VerifyQR returns for the draw's QR token.  Unknown or
// unissued codes yield ErrNotFound; QR payloads keep VerifyQR's
// ErrInvalidOrUnknownCode.
func (s *Service) LookupByCode(ctx context.Context, code string) (LookupResult, error) {
	kind := codegen.Classify(code)
	res := LookupResult{Kind: kind}
	switch kind {
	case codegen.KindQR:
		facts, err := s.VerifyQR(ctx, code)
		if err != nil {
			return LookupResult{}, err
		}
		res.Draw = &facts
	case codegen.KindDraw:
		d, err := s.GetDrawByCode(ctx, code)
		if err != nil {
			metrics.RecordVerification("code", false)
			return LookupResult{}, err
		}
		facts, err := s.DrawFacts(ctx, d)
		if err != nil {
			return LookupResult{}, err
		}
		res.Draw = &facts
	case codegen.KindTicket:
		t, err := s.GetTicketByCode(ctx, code)
		if err != nil {
			metrics.RecordVerification("code", false)
			return LookupResult{}, err
		}
		res.Ticket = &t
	case codegen.KindLottery:
		l, err := s.GetLotteryByCode(ctx, code)
		if err != nil {
			metrics.RecordVerification("code", false)
			return LookupResult{}, err
		}
		res.Lottery = &l
	default:
		metrics.RecordVerification("code", false)
		return LookupResult{}, ErrNotFound
	}
	if kind != codegen.KindQR {
		metrics.RecordVerification("code", true)
	}
	return res, nil
}
