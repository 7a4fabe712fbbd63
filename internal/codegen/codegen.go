// Package codegen produces the public, human-shareable codes used for
// lotteries, draws, tickets and QR payloads.
//
// Random suffixes come from crypto/rand: draw codes double as semi-secret
// lookup tokens, so they must not be predictable.  Ticket codes are the
// exception and are derived deterministically from the lottery code and the
// ticket number.
package codegen

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Code prefixes.
const (
	LotteryPrefix = "LT"
	DrawPrefix    = "DRW"
	TicketPrefix  = "TK"
	QRPrefix      = "QR"
)

// DrawSuffixLen is the number of hex characters in a draw code suffix.
const DrawSuffixLen = 6

// MaxAttempts bounds the regenerate-on-collision loop callers run against
// the storage layer's unique indexes.
const MaxAttempts = 5

// ErrInvalidLength is returned when a non-positive suffix length is requested.
var ErrInvalidLength = errors.New("codegen: suffix length must be positive")

// Kind classifies a public code by its prefix.
type Kind string

const (
	KindLottery Kind = "lottery"
	KindDraw    Kind = "draw"
	KindTicket  Kind = "ticket"
	KindQR      Kind = "qr"
	KindUnknown Kind = "unknown"
)

// Generate returns "{PREFIX}-{SUFFIX}" where SUFFIX is n uppercase hex
// characters read from crypto/rand.
func Generate(prefix string, n int) (string, error) {
	return GenerateFrom(rand.Reader, prefix, n)
}

// GenerateFrom is Generate with an explicit random source.
func GenerateFrom(r io.Reader, prefix string, n int) (string, error) {
	if n <= 0 {
		return "", ErrInvalidLength
	}
	buf := make([]byte, (n+1)/2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("codegen: read random: %w", err)
	}
	suffix := strings.ToUpper(hex.EncodeToString(buf))[:n]
	return prefix + "-" + suffix, nil
}

// DrawCode returns a fresh DRW-XXXXXX code.
func DrawCode() (string, error) {
	return DrawCodeFrom(rand.Reader)
}

// DrawCodeFrom returns a fresh DRW-XXXXXX code read from r.
func DrawCodeFrom(r io.Reader) (string, error) {
	return GenerateFrom(r, DrawPrefix, DrawSuffixLen)
}

// LotteryCode formats LT{year}-{seq} with the sequence padded to three digits.
func LotteryCode(year, seq int) string {
	return fmt.Sprintf("%s%d-%03d", LotteryPrefix, year, seq)
}

// TicketCode formats TK-{lotteryCode}-{ticketNumber:04d}.  Ticket codes are
// ordered and predictable; they are support references, not secrets.
func TicketCode(lotteryCode string, ticketNumber int) string {
	return fmt.Sprintf("%s-%s-%04d", TicketPrefix, lotteryCode, ticketNumber)
}

// QRToken returns the QR payload for a draw code.  Verification resolves the
// payload by exact match against the stored token, never by parsing it.
func QRToken(drawCode string) string {
	return QRPrefix + "-" + drawCode
}

// Normalize trims surrounding whitespace and upper-cases a user supplied code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Classify reports which namespace a code belongs to.  The QR prefix is
// checked before the others so that QR-DRW-... is not taken for a draw code.
func Classify(code string) Kind {
	c := Normalize(code)
	switch {
	case strings.HasPrefix(c, QRPrefix+"-"):
		return KindQR
	case strings.HasPrefix(c, DrawPrefix+"-"):
		return KindDraw
	case strings.HasPrefix(c, TicketPrefix+"-"):
		return KindTicket
	case strings.HasPrefix(c, LotteryPrefix) && len(c) > len(LotteryPrefix):
		return KindLottery
	}
	return KindUnknown
}
