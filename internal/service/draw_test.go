package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/travel-lottery/internal/codegen"
	"github.com/iliyamo/travel-lottery/internal/model"
	"github.com/iliyamo/travel-lottery/internal/repository"
)

var drawCodeRE = regexp.MustCompile(`^DRW-[0-9A-F]{6}$`)

func TestExecuteDraw_PicksOneSoldTicket(t *testing.T) {
	f := newFixture(t)
	l := f.lottery(t, 45, 500)
	sold := map[uint64]model.Ticket{}
	for i := 0; i < 3; i++ {
		tk := f.buy(t, l.ID, f.user(t, 100).ID)
		sold[tk.ID] = tk
	}

	out, err := f.svc.ExecuteDraw(context.Background(), l.ID, "")
	require.NoError(t, err)

	winner, ok := sold[out.Draw.WinningTicketID]
	require.True(t, ok, "winner must be one of the sold tickets")
	assert.Equal(t, winner.SelectedNumbers, out.Draw.WinningNumbers)
	assert.Equal(t, winner.UserID, out.Draw.WinnerID)
	assert.Equal(t, 3, out.Draw.TotalTicketsSold)
	assert.Equal(t, model.SystemExecutor, out.Draw.ExecutedBy)
	assert.Regexp(t, drawCodeRE, out.Draw.DrawCode)
	assert.Equal(t, "QR-"+out.Draw.DrawCode, out.Draw.QRToken)
	assert.True(t, VerifyHash(out.Draw))
	assert.Equal(t, out.Draw.DrawnAt, out.Draw.DrawnAt.Truncate(time.Millisecond))

	assert.Equal(t, model.LotteryDrawn, out.Lottery.Status)
	require.NotNil(t, out.Lottery.WinnerID)
	assert.Equal(t, winner.UserID, *out.Lottery.WinnerID)

	stored, err := f.svc.GetLottery(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LotteryDrawn, stored.Status)
	require.Len(t, f.pub.draws, 1)
}

func TestExecuteDraw_UsesRandomSource(t *testing.T) {
	// crypto/rand.Int over [0,3) reads one byte and masks it to two bits.
	// The draw code suffix follows.
	f := newFixture(t, WithRandom(bytes.NewReader([]byte{0x02, 0x4f, 0x2a, 0x91})))
	l := f.lottery(t, 1, 10)
	var third model.Ticket
	for i := 0; i < 3; i++ {
		third = f.buy(t, l.ID, f.user(t, 10).ID, 1, 2, 3, 4, 5, 6+i)
	}

	out, err := f.svc.ExecuteDraw(context.Background(), l.ID, "operator:7")
	require.NoError(t, err)
	assert.Equal(t, third.ID, out.Draw.WinningTicketID)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 8}, out.Draw.WinningNumbers)
	assert.Equal(t, "operator:7", out.Draw.ExecutedBy)
	assert.Equal(t, "DRW-4F2A91", out.Draw.DrawCode)
}

func TestExecuteDraw_SecondCallIsAlreadyDrawn(t *testing.T) {
	f := newFixture(t)
	l := f.lottery(t, 45, 500)
	f.buy(t, l.ID, f.user(t, 100).ID)

	first, err := f.svc.ExecuteDraw(context.Background(), l.ID, "")
	require.NoError(t, err)

	_, err = f.svc.ExecuteDraw(context.Background(), l.ID, "")
	require.ErrorIs(t, err, ErrAlreadyDrawn)

	draws, err := f.svc.GetDrawsForLottery(context.Background(), l.ID)
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.Equal(t, first.Draw.DrawCode, draws[0].DrawCode)
}

func TestExecuteDraw_ConcurrentCallsProduceOneDraw(t *testing.T) {
	f := newFixture(t)
	l := f.lottery(t, 5, 100)
	for i := 0; i < 5; i++ {
		f.buy(t, l.ID, f.user(t, 100).ID)
	}

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.ExecuteDraw(context.Background(), l.ID, "")
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var ok, already int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, ErrAlreadyDrawn)
		already++
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, already)

	draws, err := f.svc.GetDrawsForLottery(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Len(t, draws, 1)
}

func TestExecuteDraw_NoTicketsLeavesLotteryActive(t *testing.T) {
	f := newFixture(t)
	l := f.lottery(t, 45, 500)

	_, err := f.svc.ExecuteDraw(context.Background(), l.ID, "")
	require.ErrorIs(t, err, ErrNoTicketsSold)

	got, err := f.svc.GetLottery(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LotteryActive, got.Status)
	assert.Nil(t, got.WinnerID)

	_, err = f.svc.ExecuteDraw(context.Background(), 404, "")
	assert.ErrorIs(t, err, ErrLotteryNotFound)
}

func TestExecuteDraw_FailedInsertKeepsLotteryActive(t *testing.T) {
	f := newFixture(t)
	l := f.lottery(t, 45, 500)
	f.buy(t, l.ID, f.user(t, 100).ID)

	f.store.FailNext("InsertDraw", errBroker)
	_, err := f.svc.ExecuteDraw(context.Background(), l.ID, "")
	require.ErrorIs(t, err, errBroker)

	got, err := f.svc.GetLottery(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LotteryActive, got.Status)
	draws, err := f.svc.GetDrawsForLottery(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Empty(t, draws)
	assert.Empty(t, f.pub.draws)

	_, err = f.svc.ExecuteDraw(context.Background(), l.ID, "")
	require.NoError(t, err)
}

func TestExecuteDraw_RegeneratesCollidingCode(t *testing.T) {
	f := newFixture(t)
	a := f.lottery(t, 1, 10)
	b := f.lottery(t, 1, 10)
	f.buy(t, a.ID, f.user(t, 10).ID)
	f.buy(t, b.ID, f.user(t, 10).ID)

	f.random.Script([]byte{0x4f, 0x2a, 0x91})
	first, err := f.svc.ExecuteDraw(context.Background(), a.ID, "")
	require.NoError(t, err)
	require.Equal(t, "DRW-4F2A91", first.Draw.DrawCode)

	f.random.Script([]byte{0x4f, 0x2a, 0x91, 0x00, 0x00, 0x01})
	second, err := f.svc.ExecuteDraw(context.Background(), b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "DRW-000001", second.Draw.DrawCode)
	assert.Equal(t, "QR-DRW-000001", second.Draw.QRToken)
	assert.True(t, VerifyHash(second.Draw))
}

func TestExecuteDraw_GivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture(t)
	a := f.lottery(t, 1, 10)
	b := f.lottery(t, 1, 10)
	f.buy(t, a.ID, f.user(t, 10).ID)
	f.buy(t, b.ID, f.user(t, 10).ID)

	f.random.Script([]byte{0xaa, 0xbb, 0xcc})
	_, err := f.svc.ExecuteDraw(context.Background(), a.ID, "")
	require.NoError(t, err)

	f.random.Script(bytes.Repeat([]byte{0xaa, 0xbb, 0xcc}, codegen.MaxAttempts))
	_, err = f.svc.ExecuteDraw(context.Background(), b.ID, "")
	require.ErrorIs(t, err, ErrCodeExhausted)

	got, err := f.svc.GetLottery(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LotteryActive, got.Status)
}

func TestVerificationHash(t *testing.T) {
	drawnAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sum := sha256.Sum256([]byte("DRW-4F2A91" + "47" + "1735689600000"))
	assert.Equal(t, hex.EncodeToString(sum[:]), VerificationHash("DRW-4F2A91", 47, drawnAt.UnixMilli()))

	d := model.Draw{DrawCode: "DRW-4F2A91", WinningTicketID: 47, DrawnAt: drawnAt}
	d.VerificationHash = VerificationHash(d.DrawCode, d.WinningTicketID, d.DrawnAt.UnixMilli())
	assert.True(t, VerifyHash(d))

	d.WinningTicketID = 48
	assert.False(t, VerifyHash(d))
}

func TestRandomIndexIsRoughlyUniform(t *testing.T) {
	f := newFixture(t)
	counts := make([]int, 3)
	for i := 0; i < 3000; i++ {
		idx, err := randomIndex(f.svc.random, 3)
		require.NoError(t, err)
		counts[idx]++
	}
	for _, c := range counts {
		assert.InDelta(t, 1000, c, 200)
	}
}

func TestQuickPick(t *testing.T) {
	picked, err := quickPick(bytes.NewReader(bytes.Repeat([]byte{0}, 64)), 6, 1, 49)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, picked)

	_, err = quickPick(bytes.NewReader(nil), 7, 1, 6)
	assert.Error(t, err)
}

func TestQuickPick_WideRangeStaysSmall(t *testing.T) {
	allocs := testing.AllocsPerRun(20, func() {
		picked, err := quickPick(rand.Reader, 6, 1, 50_000_000)
		if err != nil || len(picked) != 6 {
			t.Fatalf("quick pick: %v %v", picked, err)
		}
	})
	assert.Less(t, allocs, 200.0)

	picked, err := quickPick(rand.Reader, 1000, 1, 1000)
	require.NoError(t, err)
	seen := make(map[int]bool, len(picked))
	for _, n := range picked {
		require.True(t, n >= 1 && n <= 1000)
		require.False(t, seen[n], "duplicate %d", n)
		seen[n] = true
	}
}

func TestRunDueDraws(t *testing.T) {
	f := newFixture(t)
	due := f.lottery(t, 1, 10)
	f.buy(t, due.ID, f.user(t, 10).ID)
	empty := f.lottery(t, 1, 10)

	outcomes, err := f.svc.RunDueDraws(context.Background())
	require.NoError(t, err)
	assert.Empty(t, outcomes)

	f.clock.Advance(31 * 24 * time.Hour)
	later, err := f.svc.CreateLottery(context.Background(), CreateLotteryCommand{
		Title: "Kyoto", TicketPrice: 1, MaxTickets: 10, DrawDate: f.clock.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	f.buy(t, later.ID, f.user(t, 10).ID)

	outcomes, err = f.svc.RunDueDraws(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, due.ID, outcomes[0].Lottery.ID)
	assert.Equal(t, model.SystemExecutor, outcomes[0].Draw.ExecutedBy)

	for _, id := range []uint64{empty.ID, later.ID} {
		l, err := f.svc.GetLottery(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, model.LotteryActive, l.Status)
	}
}

func TestRunDueDraws_SkipsLotteryDrawnMeanwhile(t *testing.T) {
	f := newFixture(t)
	l := f.lottery(t, 1, 10)
	f.buy(t, l.ID, f.user(t, 10).ID)
	f.clock.Advance(31 * 24 * time.Hour)

	f.store.FailNext("MarkDrawn", repository.ErrConflict)
	outcomes, err := f.svc.RunDueDraws(context.Background())
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}
