package draw

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/radieske/lottery-points-platform/internal/lottery/betbook"
	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
	"github.com/radieske/lottery-points-platform/internal/lottery/repo"
	"github.com/radieske/lottery-points-platform/internal/lottery/rules"
	"github.com/radieske/lottery-points-platform/internal/lottery/settlement"
	"github.com/radieske/lottery-points-platform/internal/lottery/testutil"
	"github.com/radieske/lottery-points-platform/pkg/contracts/events"
	"github.com/radieske/lottery-points-platform/pkg/contracts/topics"
)

const day = "2024-01-01"

type recordingNotifier struct {
	mu   sync.Mutex
	got  []events.DrawSettled
	fail bool
}

func (n *recordingNotifier) DrawSettled(_ context.Context, e events.DrawSettled) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, e)
	if n.fail {
		return errors.New("redis down")
	}
	return nil
}

type fixture struct {
	store  *repo.Store
	book   *betbook.Book
	engine *Engine
	notes  *recordingNotifier
}

func newFixture(t *testing.T, winning string) fixture {
	t.Helper()
	store := testutil.OpenStore(t)
	r := rules.Default()
	notes := &recordingNotifier{}
	return fixture{
		store:  store,
		book:   betbook.New(store, r, nil),
		engine: NewEngine(store, r, settlement.NewProcessor(r, nil), nil, WithPicker(Fixed(winning)), WithNotifier(notes)),
		notes:  notes,
	}
}

func (f fixture) place(t *testing.T, account string, m domain.Modality, number string, stake int64) domain.Bet {
	t.Helper()
	b, err := f.book.PlaceBet(context.Background(), betbook.PlaceBetInput{
		AccountID: account, Modality: m, Number: number, Stake: stake, Date: day, Hour: 12,
	})
	if err != nil {
		t.Fatalf("PlaceBet(%s %s %d) error: %v", m, number, stake, err)
	}
	return b
}

func TestConductDraw_WinnerScenario(t *testing.T) {
	f := newFixture(t, "034")
	ctx := context.Background()
	testutil.Fund(t, f.store, "u1", 100)

	f.place(t, "u1", domain.Hundreds, "034", 30)

	res, err := f.engine.ConductDraw(ctx, domain.Hundreds, day)
	if err != nil {
		t.Fatalf("ConductDraw() error: %v", err)
	}
	if res.WinnerCount != 1 || res.Draw.WinningNumber != "034" || res.Draw.Status != domain.DrawSettled {
		t.Errorf("result = %+v", res)
	}
	if res.Draw.TotalAwarded != 12000 {
		t.Errorf("total awarded = %d, want 12000", res.Draw.TotalAwarded)
	}
	if bal := testutil.Balance(t, f.store, "u1"); bal != 12070 {
		t.Errorf("balance = %d, want 12070", bal)
	}

	bets, err := f.book.AccountBets(ctx, "u1", day)
	if err != nil {
		t.Fatal(err)
	}
	if len(bets) != 1 || !bets[0].Settled || !bets[0].IsWinner || bets[0].Awarded != 12000 || bets[0].WinningNumber != "034" {
		t.Errorf("account bets = %+v", bets)
	}

	if len(f.notes.got) != 1 || f.notes.got[0].WinnerCount != 1 {
		t.Errorf("notifications = %+v", f.notes.got)
	}
	if n, _ := repo.CountOutboxByTopic(ctx, f.store.DB(), topics.DrawSettled); n != 1 {
		t.Errorf("draw_settled events = %d, want 1", n)
	}
}

func TestConductDraw_Duplicate(t *testing.T) {
	f := newFixture(t, "07")
	ctx := context.Background()
	testutil.Fund(t, f.store, "u1", 100)
	f.place(t, "u1", domain.Tens, "07", 5)

	if _, err := f.engine.ConductDraw(ctx, domain.Tens, day); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.ConductDraw(ctx, domain.Tens, day); !errors.Is(err, domain.ErrDuplicateDraw) {
		t.Errorf("second ConductDraw() err = %v, want ErrDuplicateDraw", err)
	}
	if _, err := f.engine.AcceptDraw(ctx, domain.Tens, day, "08"); !errors.Is(err, domain.ErrDuplicateDraw) {
		t.Errorf("AcceptDraw() err = %v, want ErrDuplicateDraw", err)
	}
	// 100 - 5 + 5*20
	if bal := testutil.Balance(t, f.store, "u1"); bal != 195 {
		t.Errorf("balance = %d, want 195 (no double settlement)", bal)
	}
}

func TestConductDraw_ClosesBetting(t *testing.T) {
	f := newFixture(t, "07")
	ctx := context.Background()
	testutil.Fund(t, f.store, "u1", 100)

	if _, err := f.engine.ConductDraw(ctx, domain.Tens, day); err != nil {
		t.Fatal(err)
	}
	_, err := f.book.PlaceBet(ctx, betbook.PlaceBetInput{
		AccountID: "u1", Modality: domain.Tens, Number: "07", Stake: 1, Date: day, Hour: 12,
	})
	if !errors.Is(err, domain.ErrBettingClosed) {
		t.Errorf("PlaceBet() after draw err = %v, want ErrBettingClosed", err)
	}
}

func TestSettle_IdempotentOnSettledDraw(t *testing.T) {
	f := newFixture(t, "07")
	ctx := context.Background()
	testutil.Fund(t, f.store, "u1", 100)
	f.place(t, "u1", domain.Tens, "07", 2)

	res, err := f.engine.ConductDraw(ctx, domain.Tens, day)
	if err != nil {
		t.Fatal(err)
	}
	before := testutil.Balance(t, f.store, "u1")

	if _, err := f.engine.Settle(ctx, res.Draw.ID); !errors.Is(err, domain.ErrAlreadySettled) {
		t.Errorf("Settle() err = %v, want ErrAlreadySettled", err)
	}
	if after := testutil.Balance(t, f.store, "u1"); after != before {
		t.Errorf("balance changed on re-settle: %d -> %d", before, after)
	}
	if n, _ := repo.CountOutcomes(ctx, f.store.DB(), res.Draw.ID); n != 1 {
		t.Errorf("outcomes = %d, want 1", n)
	}
	if _, err := f.engine.Settle(ctx, "missing"); !errors.Is(err, domain.ErrDrawNotFound) {
		t.Errorf("Settle(missing) err = %v, want ErrDrawNotFound", err)
	}
}

func TestSettle_ResumesPendingDraw(t *testing.T) {
	f := newFixture(t, "07")
	ctx := context.Background()
	testutil.Fund(t, f.store, "u1", 100)
	f.place(t, "u1", domain.Tens, "07", 1)

	// sorteio gravado sem liquidação, como após uma falha antiga
	d := domain.Draw{Modality: domain.Tens, Date: day, WinningNumber: "07"}
	err := f.store.InTx(ctx, "seed", func(ctx context.Context, tx *sqlx.Tx) error {
		return repo.InsertDraw(ctx, tx, &d)
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := f.engine.Settle(ctx, d.ID)
	if err != nil {
		t.Fatalf("Settle() error: %v", err)
	}
	if res.Draw.Status != domain.DrawSettled || res.WinnerCount != 1 {
		t.Errorf("result = %+v", res)
	}
	if bal := testutil.Balance(t, f.store, "u1"); bal != 119 {
		t.Errorf("balance = %d, want 119", bal)
	}
}

func TestConductDraw_ConservationAcrossManyBets(t *testing.T) {
	f := newFixture(t, "0042")
	ctx := context.Background()

	stakes := map[string]struct {
		number string
		stake  int64
	}{
		"a": {"0042", 5},
		"b": {"0042", 7},
		"c": {"0041", 9},
		"d": {"9999", 20},
		"e": {"0042", 30},
	}
	var staked, expectedAward int64
	for acc, s := range stakes {
		testutil.Fund(t, f.store, acc, 100)
		f.place(t, acc, domain.Thousands, s.number, s.stake)
		staked += s.stake
		if s.number == "0042" {
			expectedAward += s.stake * 4000
		}
	}
	// teto de 50 para o 0042: 5+7+30 = 42 cabem

	res, err := f.engine.ConductDraw(ctx, domain.Thousands, day)
	if err != nil {
		t.Fatal(err)
	}
	if res.WinnerCount != 3 || res.Draw.BetCount != 5 {
		t.Errorf("result = %+v", res)
	}
	if res.Draw.TotalAwarded != expectedAward {
		t.Errorf("awarded = %d, want %d", res.Draw.TotalAwarded, expectedAward)
	}

	var total int64
	for acc := range stakes {
		total += testutil.Balance(t, f.store, acc)
	}
	if want := int64(len(stakes))*100 - staked + expectedAward; total != want {
		t.Errorf("sum of balances = %d, want %d", total, want)
	}

	if n, _ := repo.CountOutcomes(ctx, f.store.DB(), res.Draw.ID); n != 5 {
		t.Errorf("outcomes = %d, want one per bet", n)
	}

	detail, err := f.engine.DrawDetail(ctx, res.Draw.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(detail.Winners) != 3 || detail.Winners[0].Awarded != 30*4000 {
		t.Errorf("winners = %+v", detail.Winners)
	}
}

func TestConductDraw_NoBets(t *testing.T) {
	f := newFixture(t, "07")
	res, err := f.engine.ConductDraw(context.Background(), domain.Tens, day)
	if err != nil {
		t.Fatal(err)
	}
	if res.WinnerCount != 0 || res.Draw.BetCount != 0 || res.Draw.Status != domain.DrawSettled {
		t.Errorf("result = %+v", res)
	}
}

func TestConductDraw_NotifierFailureDoesNotFailDraw(t *testing.T) {
	f := newFixture(t, "07")
	f.notes.fail = true
	if _, err := f.engine.ConductDraw(context.Background(), domain.Tens, day); err != nil {
		t.Errorf("ConductDraw() error: %v", err)
	}
}

func TestAcceptDraw_ValidatesNumber(t *testing.T) {
	f := newFixture(t, "07")
	ctx := context.Background()
	if _, err := f.engine.AcceptDraw(ctx, domain.Tens, day, "100"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want validation", err)
	}
	if _, err := f.engine.ConductDraw(ctx, domain.Tens, "2024-13-01"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("bad date err = %v, want validation", err)
	}
	// nada foi gravado
	if _, err := repo.GetDrawBySlot(ctx, f.store.DB(), domain.Tens, day); !errors.Is(err, domain.ErrDrawNotFound) {
		t.Errorf("draw should not exist: %v", err)
	}
}

func TestResultsAndTodayStatus(t *testing.T) {
	f := newFixture(t, "07")
	ctx := context.Background()
	testutil.Fund(t, f.store, "u1", 100)
	f.place(t, "u1", domain.Tens, "07", 1)
	f.place(t, "u1", domain.Tens, "08", 1)

	if _, err := f.engine.ConductDraw(ctx, domain.Tens, day); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.AcceptDraw(ctx, domain.Hundreds, "2024-01-02", "123"); err != nil {
		t.Fatal(err)
	}

	all, err := f.engine.Results(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Draw.Date != "2024-01-02" {
		t.Fatalf("Results() = %+v", all)
	}

	tens, err := f.engine.Results(ctx, domain.Tens, day)
	if err != nil {
		t.Fatal(err)
	}
	if len(tens) != 1 || tens[0].WinnerCount != 1 || tens[0].TotalAwarded != 20 {
		t.Errorf("Results(tens) = %+v", tens)
	}

	status, err := f.engine.TodayStatus(ctx, day)
	if err != nil {
		t.Fatal(err)
	}
	want := map[domain.Modality]bool{domain.Tens: true, domain.Hundreds: false, domain.Thousands: false}
	for _, s := range status {
		if s.Drawn != want[s.Modality] {
			t.Errorf("status %s drawn = %v", s.Modality, s.Drawn)
		}
	}

	f.engine.now = func() time.Time { return time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC) }
	if today := f.engine.Today(); today != "2024-01-02" {
		t.Errorf("Today() = %s", today)
	}
}

func TestRandomPicker_CoversRange(t *testing.T) {
	mr, _ := rules.Default().Modality(domain.Tens)
	seen := map[string]bool{}
	for i := 0; i < 20000; i++ {
		n := RandomPicker{}.Pick(mr)
		if err := rules.Default().ValidateNumber(domain.Tens, n); err != nil {
			t.Fatalf("picked invalid number %q: %v", n, err)
		}
		seen[n] = true
	}
	if len(seen) != 99 {
		t.Errorf("distinct numbers = %d, want 99", len(seen))
	}
}
