package codegen

import (
	"bytes"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	drawCodeRe    = regexp.MustCompile(`^DRW-[0-9A-F]{6}$`)
	lotteryCodeRe = regexp.MustCompile(`^LT\d{4}-\d{3,}$`)
	ticketCodeRe  = regexp.MustCompile(`^TK-LT\d{4}-\d{3,}-\d{4,}$`)
)

func TestGenerate(t *testing.T) {
	code, err := Generate("ABC", 5)
	require.NoError(t, err)
	assert.Regexp(t, `^ABC-[0-9A-F]{5}$`, code)

	_, err = Generate("ABC", 0)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestGenerate_UsesRandomSource(t *testing.T) {
	code, err := DrawCodeFrom(bytes.NewReader([]byte{0x4f, 0x2a, 0x91}))
	require.NoError(t, err)
	assert.Equal(t, "DRW-4F2A91", code)

	code, err = GenerateFrom(bytes.NewReader([]byte{0xab, 0xcd, 0xef}), "X", 5)
	require.NoError(t, err)
	assert.Equal(t, "X-ABCDE", code)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerate_RandomSourceFailure(t *testing.T) {
	_, err := DrawCodeFrom(failingReader{})
	assert.Error(t, err)

	_, err = DrawCodeFrom(bytes.NewReader([]byte{0x01}))
	assert.Error(t, err)
}

func TestDrawCode_FormatAndUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 2000)
	for i := 0; i < 2000; i++ {
		code, err := DrawCode()
		require.NoError(t, err)
		require.Regexp(t, drawCodeRe, code)
		seen[code] = struct{}{}
	}
	// 24 bits of entropy: a handful of birthday collisions in 2000 draws is
	// possible but the vast majority must be distinct.
	assert.Greater(t, len(seen), 1990)
}

func TestLotteryCode(t *testing.T) {
	assert.Equal(t, "LT2025-101", LotteryCode(2025, 101))
	assert.Equal(t, "LT2025-007", LotteryCode(2025, 7))
	assert.Equal(t, "LT2026-1000", LotteryCode(2026, 1000))
	assert.Regexp(t, lotteryCodeRe, LotteryCode(2025, 101))
}

func TestTicketCode(t *testing.T) {
	assert.Equal(t, "TK-LT2025-101-0047", TicketCode("LT2025-101", 47))
	assert.Equal(t, "TK-LT2025-101-0001", TicketCode("LT2025-101", 1))
	assert.Equal(t, "TK-LT2025-101-12345", TicketCode("LT2025-101", 12345))
	assert.Regexp(t, ticketCodeRe, TicketCode("LT2025-101", 47))
}

func TestQRToken(t *testing.T) {
	assert.Equal(t, "QR-DRW-4F2A91", QRToken("DRW-4F2A91"))
}

func TestClassify(t *testing.T) {
	cases := map[string]Kind{
		"LT2025-101":         KindLottery,
		" lt2025-101 ":       KindLottery,
		"DRW-4F2A91":         KindDraw,
		"TK-LT2025-101-0047": KindTicket,
		"QR-DRW-4F2A91":      KindQR,
		"LT":                 KindUnknown,
		"":                   KindUnknown,
		"XYZ-123":            KindUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, Classify(in), in)
	}
}
