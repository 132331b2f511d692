package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/radieske/lottery-points-platform/internal/lottery/betbook"
	"github.com/radieske/lottery-points-platform/internal/lottery/draw"
	"github.com/radieske/lottery-points-platform/internal/lottery/dto"
	"github.com/radieske/lottery-points-platform/internal/lottery/ledger"
	"github.com/radieske/lottery-points-platform/internal/lottery/repo"
	"github.com/radieske/lottery-points-platform/internal/lottery/report"
	"github.com/radieske/lottery-points-platform/internal/lottery/rules"
	"github.com/radieske/lottery-points-platform/internal/lottery/settlement"
	"github.com/radieske/lottery-points-platform/internal/lottery/testutil"
)

const adminToken = "s3cret"

// 13:00 UTC = 10:00 em São Paulo, dentro da janela
var morning = time.Date(2024, 3, 5, 13, 0, 0, 0, time.UTC)

func newServer(t *testing.T, now time.Time) (*httptest.Server, *repo.Store) {
	t.Helper()
	store := testutil.OpenStore(t)
	r := rules.Default()
	clock := func() time.Time { return now }
	api := &API{
		Book:       betbook.New(store, r, nil, betbook.WithClock(clock)),
		Ledger:     ledger.New(store, r, nil),
		Engine:     draw.NewEngine(store, r, settlement.NewProcessor(r, nil), nil, draw.WithClock(clock)),
		Reporter:   report.New(store),
		AdminToken: adminToken,
	}
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	return srv, store
}

func do(t *testing.T, srv *httptest.Server, method, path string, headers map[string]string, body any) (int, []byte) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf.Bytes()
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return v
}

func user(id string) map[string]string { return map[string]string{HeaderUserID: id} }

var admin = map[string]string{HeaderAdminToken: adminToken}

func TestPlaceBet_CapConflictReportsAvailable(t *testing.T) {
	srv, store := newServer(t, morning)
	testutil.Fund(t, store, "u1", 100)
	testutil.Fund(t, store, "u2", 100)

	status, body := do(t, srv, http.MethodPost, "/v1/bets", user("u1"), dto.PlaceBetRequest{Modality: "dezena", Number: "07", Stake: 6})
	if status != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", status, body)
	}
	bet := decode[dto.BetResponse](t, body)
	if bet.Modality != "tens" || bet.Date != "2024-03-05" || bet.AccountID != "u1" {
		t.Errorf("bet = %+v", bet)
	}

	status, body = do(t, srv, http.MethodPost, "/v1/bets", user("u2"), dto.PlaceBetRequest{Modality: "tens", Number: "07", Stake: 6})
	if status != http.StatusConflict {
		t.Fatalf("status = %d, want 409", status)
	}
	e := decode[dto.ErrorResponse](t, body)
	if e.Code != "cap_exceeded" || e.Available == nil || *e.Available != 4 {
		t.Errorf("error = %+v", e)
	}

	status, body = do(t, srv, http.MethodGet, "/v1/capacity/tens/07?date=2024-03-05", nil, nil)
	if status != http.StatusOK {
		t.Fatalf("capacity status = %d", status)
	}
	if c := decode[dto.CapacityResponse](t, body); c.Staked != 6 || c.Available != 4 || c.Cap != 10 {
		t.Errorf("capacity = %+v", c)
	}
}

func TestPlaceBet_StatusMapping(t *testing.T) {
	srv, store := newServer(t, morning)
	testutil.Fund(t, store, "poor", 1)

	cases := []struct {
		name    string
		headers map[string]string
		req     dto.PlaceBetRequest
		status  int
		code    string
	}{
		{"no identity", nil, dto.PlaceBetRequest{Modality: "tens", Number: "07", Stake: 1}, http.StatusUnauthorized, "unauthorized"},
		{"bad number", user("poor"), dto.PlaceBetRequest{Modality: "tens", Number: "7", Stake: 1}, http.StatusBadRequest, "validation"},
		{"unknown modality", user("poor"), dto.PlaceBetRequest{Modality: "quina", Number: "07", Stake: 1}, http.StatusBadRequest, "validation"},
		{"insufficient funds", user("poor"), dto.PlaceBetRequest{Modality: "tens", Number: "07", Stake: 2}, http.StatusConflict, "insufficient_funds"},
		{"unknown account", user("ghost"), dto.PlaceBetRequest{Modality: "tens", Number: "07", Stake: 1}, http.StatusNotFound, "account_not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := do(t, srv, http.MethodPost, "/v1/bets", tc.headers, tc.req)
			if status != tc.status {
				t.Fatalf("status = %d, want %d (%s)", status, tc.status, body)
			}
			if e := decode[dto.ErrorResponse](t, body); e.Code != tc.code {
				t.Errorf("code = %q, want %q", e.Code, tc.code)
			}
		})
	}
}

func TestPlaceBet_OutsideWindow(t *testing.T) {
	// 21:00 UTC = 18:00 em São Paulo
	srv, store := newServer(t, time.Date(2024, 3, 5, 21, 0, 0, 0, time.UTC))
	testutil.Fund(t, store, "u1", 100)

	status, body := do(t, srv, http.MethodPost, "/v1/bets", user("u1"), dto.PlaceBetRequest{Modality: "tens", Number: "07", Stake: 1})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if e := decode[dto.ErrorResponse](t, body); e.Code != "outside_window" {
		t.Errorf("code = %q", e.Code)
	}
}

func TestAdmin_DrawLifecycle(t *testing.T) {
	srv, store := newServer(t, morning)
	testutil.Fund(t, store, "u1", 100)
	testutil.Fund(t, store, "u2", 100)

	do(t, srv, http.MethodPost, "/v1/bets", user("u1"), dto.PlaceBetRequest{Modality: "tens", Number: "07", Stake: 2})
	do(t, srv, http.MethodPost, "/v1/bets", user("u2"), dto.PlaceBetRequest{Modality: "tens", Number: "08", Stake: 3})

	req := dto.DrawRequest{Modality: "tens", WinningNumber: "07"}
	if status, _ := do(t, srv, http.MethodPost, "/v1/admin/draws", nil, req); status != http.StatusForbidden {
		t.Fatalf("without token status = %d, want 403", status)
	}

	status, body := do(t, srv, http.MethodPost, "/v1/admin/draws", admin, req)
	if status != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", status, body)
	}
	d := decode[dto.DrawResponse](t, body)
	if d.Status != "SETTLED" || d.Date != "2024-03-05" || d.WinnerCount != 1 || d.BetCount != 2 || d.TotalAwarded != 40 {
		t.Errorf("draw = %+v", d)
	}

	if status, body = do(t, srv, http.MethodPost, "/v1/admin/draws", admin, req); status != http.StatusConflict {
		t.Errorf("second draw status = %d, want 409", status)
	} else if e := decode[dto.ErrorResponse](t, body); e.Code != "duplicate_draw" {
		t.Errorf("code = %q", e.Code)
	}
	if status, _ = do(t, srv, http.MethodPost, "/v1/admin/draws/"+d.DrawID+"/settle", admin, nil); status != http.StatusConflict {
		t.Errorf("settle again status = %d, want 409", status)
	}

	// dia fechado para novas apostas
	status, body = do(t, srv, http.MethodPost, "/v1/bets", user("u1"), dto.PlaceBetRequest{Modality: "tens", Number: "09", Stake: 1})
	if status != http.StatusConflict || decode[dto.ErrorResponse](t, body).Code != "betting_closed" {
		t.Errorf("bet after draw: status = %d, body = %s", status, body)
	}

	status, body = do(t, srv, http.MethodGet, "/v1/draws/"+d.DrawID, nil, nil)
	if status != http.StatusOK {
		t.Fatalf("detail status = %d", status)
	}
	detail := decode[dto.DrawDetailResponse](t, body)
	if len(detail.Winners) != 1 || detail.Winners[0].AccountID != "u1" || detail.Winners[0].Awarded != 40 {
		t.Errorf("winners = %+v", detail.Winners)
	}

	status, body = do(t, srv, http.MethodGet, "/v1/draws/results?modality=dezena", nil, nil)
	if status != http.StatusOK {
		t.Fatalf("results status = %d", status)
	}
	if res := decode[[]dto.DrawResponse](t, body); len(res) != 1 || res[0].WinningNumber != "07" {
		t.Errorf("results = %+v", res)
	}

	status, body = do(t, srv, http.MethodGet, "/v1/draws/today", nil, nil)
	if status != http.StatusOK {
		t.Fatalf("today status = %d", status)
	}
	today := decode[dto.TodayResponse](t, body)
	if today.Date != "2024-03-05" || len(today.Modalities) != 3 || !today.Modalities[0].Drawn || today.Modalities[1].Drawn {
		t.Errorf("today = %+v", today)
	}

	status, body = do(t, srv, http.MethodGet, "/v1/bets", user("u1"), nil)
	if status != http.StatusOK {
		t.Fatalf("bets status = %d", status)
	}
	if bets := decode[[]dto.AccountBetResponse](t, body); len(bets) != 1 || bets[0].Status != "WON" || bets[0].Awarded != 40 {
		t.Errorf("bets = %+v", bets)
	}

	status, body = do(t, srv, http.MethodGet, "/v1/admin/dashboard", admin, nil)
	if status != http.StatusOK {
		t.Fatalf("dashboard status = %d", status)
	}
	dash := decode[dto.DashboardResponse](t, body)
	if dash.TotalStaked != 5 || dash.TotalAwarded != 40 || dash.HouseResult != -35 || dash.WinnersByModality["tens"] != 1 {
		t.Errorf("dashboard = %+v", dash)
	}
}

func TestWallet_BalanceAndEntries(t *testing.T) {
	srv, store := newServer(t, morning)

	// primeira consulta abre a conta
	status, body := do(t, srv, http.MethodGet, "/v1/wallet", user("new"), nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if w := decode[dto.WalletResponse](t, body); w.AccountID != "new" || w.Balance != 0 {
		t.Errorf("wallet = %+v", w)
	}

	testutil.Fund(t, store, "u1", 50)
	do(t, srv, http.MethodPost, "/v1/bets", user("u1"), dto.PlaceBetRequest{Modality: "tens", Number: "07", Stake: 5})

	status, body = do(t, srv, http.MethodGet, "/v1/wallet/entries?limit=10", user("u1"), nil)
	if status != http.StatusOK {
		t.Fatalf("entries status = %d", status)
	}
	entries := decode[[]dto.EntryResponse](t, body)
	if len(entries) != 1 || entries[0].Direction != "DEBIT" || entries[0].Amount != 5 || entries[0].BalanceAfter != 45 {
		t.Errorf("entries = %+v", entries)
	}

	if status, _ = do(t, srv, http.MethodGet, "/v1/wallet/entries?limit=x", user("u1"), nil); status != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", status)
	}
	if status, _ = do(t, srv, http.MethodGet, "/v1/wallet/payments?kind=refund", user("u1"), nil); status != http.StatusBadRequest {
		t.Errorf("bad kind status = %d", status)
	}
}

func TestNotFoundAndStorageFailure(t *testing.T) {
	srv, store := newServer(t, morning)

	if status, _ := do(t, srv, http.MethodGet, "/v1/draws/nope", nil, nil); status != http.StatusNotFound {
		t.Errorf("unknown draw status = %d, want 404", status)
	}

	_ = store.DB().Close()
	status, body := do(t, srv, http.MethodGet, "/v1/wallet", user("u1"), nil)
	if status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", status)
	}
	if e := decode[dto.ErrorResponse](t, body); e.Error != "internal error" || e.Code != "internal" {
		t.Errorf("error leaked detail: %+v", e)
	}
}
