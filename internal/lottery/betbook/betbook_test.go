package betbook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
	"github.com/radieske/lottery-points-platform/internal/lottery/repo"
	"github.com/radieske/lottery-points-platform/internal/lottery/rules"
	"github.com/radieske/lottery-points-platform/internal/lottery/testutil"
	"github.com/radieske/lottery-points-platform/pkg/contracts/topics"
)

const day = "2024-01-01"

func newBook(t *testing.T) (*Book, *repo.Store) {
	t.Helper()
	store := testutil.OpenStore(t)
	return New(store, rules.Default(), nil), store
}

func bet(account string, m domain.Modality, number string, stake int64) PlaceBetInput {
	return PlaceBetInput{AccountID: account, Modality: m, Number: number, Stake: stake, Date: day, Hour: 10}
}

func TestPlaceBet_CapScenario(t *testing.T) {
	b, store := newBook(t)
	ctx := context.Background()
	testutil.Fund(t, store, "u1", 100)
	testutil.Fund(t, store, "u2", 100)

	if _, err := b.PlaceBet(ctx, bet("u1", domain.Tens, "07", 6)); err != nil {
		t.Fatalf("first PlaceBet() error: %v", err)
	}
	_, err := b.PlaceBet(ctx, bet("u2", domain.Tens, "07", 6))
	var capErr *domain.CapExceededError
	if !errors.As(err, &capErr) {
		t.Fatalf("second PlaceBet() err = %v, want CapExceededError", err)
	}
	if capErr.Available != 4 || capErr.Cap != 10 || capErr.Staked != 6 {
		t.Errorf("cap error = %+v, want available 4", capErr)
	}
	if !errors.Is(err, domain.ErrExposureCapExceeded) {
		t.Error("CapExceededError should match ErrExposureCapExceeded")
	}

	// rejeição não mexe no saldo
	if bal := testutil.Balance(t, store, "u2"); bal != 100 {
		t.Errorf("u2 balance = %d, want 100", bal)
	}
	if bal := testutil.Balance(t, store, "u1"); bal != 94 {
		t.Errorf("u1 balance = %d, want 94", bal)
	}

	c, err := b.AvailableCapacity(ctx, domain.Tens, "07", day)
	if err != nil {
		t.Fatal(err)
	}
	if c.Staked != 6 || c.Available != 4 || c.Cap != 10 {
		t.Errorf("capacity = %+v", c)
	}
}

func TestPlaceBet_OutsideWindowWinsOverOtherErrors(t *testing.T) {
	b, _ := newBook(t)
	// número inválido, conta inexistente, stake zero: a janela decide
	in := PlaceBetInput{AccountID: "ghost", Modality: "quina", Number: "x", Stake: 0, Date: "bad", Hour: 18}
	if _, err := b.PlaceBet(context.Background(), in); !errors.Is(err, domain.ErrOutsideBettingWindow) {
		t.Errorf("err = %v, want ErrOutsideBettingWindow", err)
	}
}

func TestPlaceBet_Validation(t *testing.T) {
	b, store := newBook(t)
	testutil.Fund(t, store, "u1", 100)

	cases := map[string]PlaceBetInput{
		"unknown modality": bet("u1", "quina", "07", 1),
		"short number":     bet("u1", domain.Hundreds, "34", 1),
		"zero number":      bet("u1", domain.Tens, "00", 1),
		"zero stake":       bet("u1", domain.Tens, "07", 0),
		"negative stake":   bet("u1", domain.Tens, "07", -5),
		"bad date":         {AccountID: "u1", Modality: domain.Tens, Number: "07", Stake: 1, Date: "01/01/2024", Hour: 10},
		"blank account":    bet("", domain.Tens, "07", 1),
	}
	for name, in := range cases {
		if _, err := b.PlaceBet(context.Background(), in); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%s: err = %v, want validation error", name, err)
		}
	}
	if bal := testutil.Balance(t, store, "u1"); bal != 100 {
		t.Errorf("balance = %d, want 100", bal)
	}
}

func TestPlaceBet_InsufficientFundsAndUnknownAccount(t *testing.T) {
	b, store := newBook(t)
	ctx := context.Background()
	testutil.Fund(t, store, "u1", 5)

	if _, err := b.PlaceBet(ctx, bet("u1", domain.Tens, "07", 6)); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Errorf("err = %v, want ErrInsufficientFunds", err)
	}
	if _, err := b.PlaceBet(ctx, bet("nobody", domain.Tens, "07", 1)); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("err = %v, want ErrAccountNotFound", err)
	}
	c, _ := b.AvailableCapacity(ctx, domain.Tens, "07", day)
	if c.Staked != 0 {
		t.Errorf("rejected bets leaked exposure: %+v", c)
	}
}

func TestPlaceBet_ClosedDay(t *testing.T) {
	b, store := newBook(t)
	ctx := context.Background()
	testutil.Fund(t, store, "u1", 100)

	if err := repo.EnsureBettingDay(ctx, store.DB(), domain.Tens, day); err != nil {
		t.Fatal(err)
	}
	if err := repo.CloseBettingDay(ctx, store.DB(), domain.Tens, day); err != nil {
		t.Fatal(err)
	}
	if _, err := b.PlaceBet(ctx, bet("u1", domain.Tens, "07", 1)); !errors.Is(err, domain.ErrBettingClosed) {
		t.Errorf("err = %v, want ErrBettingClosed", err)
	}
	// outra modalidade segue aberta
	if _, err := b.PlaceBet(ctx, bet("u1", domain.Hundreds, "007", 1)); err != nil {
		t.Errorf("hundreds should be open: %v", err)
	}
}

func TestPlaceBet_ConcurrentNeverExceedsCap(t *testing.T) {
	b, store := newBook(t)
	concurrentCap(t, b, store, "u", day)
}

// concurrentCap dispara apostas simultâneas de 3 pontos na dezena 42
// (limite 10) e confere que só três entram.
func concurrentCap(t *testing.T, b *Book, store *repo.Store, prefix, date string) {
	t.Helper()
	ctx := context.Background()

	const workers = 12
	for i := 0; i < workers; i++ {
		testutil.Fund(t, store, fmt.Sprintf("%s%d", prefix, i), 100)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int64
		capHits  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := bet(fmt.Sprintf("%s%d", prefix, i), domain.Tens, "42", 3)
			in.Date = date
			_, err := b.PlaceBet(ctx, in)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted += 3
			case errors.Is(err, domain.ErrExposureCapExceeded):
				capHits++
			default:
				t.Errorf("worker %d: unexpected error %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if admitted != 9 {
		t.Errorf("admitted stake = %d, want 9 (three bets of 3 under cap 10)", admitted)
	}
	if capHits != workers-3 {
		t.Errorf("cap rejections = %d, want %d", capHits, workers-3)
	}
	sum, err := repo.SumStakes(ctx, store.DB(), domain.Tens, "42", date)
	if err != nil {
		t.Fatal(err)
	}
	counter, _ := repo.GetExposure(ctx, store.DB(), domain.Tens, "42", date)
	if sum != 9 || counter != 9 {
		t.Errorf("sum of stakes = %d, counter = %d, want 9", sum, counter)
	}
}

func TestPlaceBet_WritesOutboxEvent(t *testing.T) {
	b, store := newBook(t)
	ctx := context.Background()
	testutil.Fund(t, store, "u1", 100)

	if _, err := b.PlaceBet(ctx, bet("u1", domain.Thousands, "0007", 10)); err != nil {
		t.Fatal(err)
	}
	_, _ = b.PlaceBet(ctx, bet("u1", domain.Thousands, "0007", 1000))

	n, err := repo.CountOutboxByTopic(ctx, store.DB(), topics.BetPlaced)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("bet_placed events = %d, want 1", n)
	}
}

func TestPlaceBetNow_UsesGameClock(t *testing.T) {
	b, store := newBook(t)
	testutil.Fund(t, store, "u1", 100)

	// 13:00 UTC = 10:00 em São Paulo
	b.now = func() time.Time { return time.Date(2024, 3, 5, 13, 0, 0, 0, time.UTC) }
	got, err := b.PlaceBetNow(context.Background(), "u1", domain.Tens, "11", 2)
	if err != nil {
		t.Fatalf("PlaceBetNow() error: %v", err)
	}
	if got.Date != "2024-03-05" {
		t.Errorf("date = %s, want 2024-03-05", got.Date)
	}

	// 21:00 UTC = 18:00 local, fora da janela
	b.now = func() time.Time { return time.Date(2024, 3, 5, 21, 0, 0, 0, time.UTC) }
	if _, err := b.PlaceBetNow(context.Background(), "u1", domain.Tens, "11", 2); !errors.Is(err, domain.ErrOutsideBettingWindow) {
		t.Errorf("err = %v, want ErrOutsideBettingWindow", err)
	}
}

func TestAccountBets_ListsNewestFirst(t *testing.T) {
	b, store := newBook(t)
	ctx := context.Background()
	testutil.Fund(t, store, "u1", 100)

	first, err := b.PlaceBet(ctx, bet("u1", domain.Tens, "01", 1))
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := b.PlaceBet(ctx, bet("u1", domain.Tens, "02", 1))
	if err != nil {
		t.Fatal(err)
	}

	list, err := b.AccountBets(ctx, "u1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("AccountBets() = %+v", list)
	}
	if list[0].Settled || list[0].WinningNumber != "" {
		t.Errorf("unsettled bet reported as settled: %+v", list[0])
	}

	other, err := b.AccountBets(ctx, "u1", "2024-01-02")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("date filter returned %d bets", len(other))
	}
}
