package dto

import (
	"time"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Available *int64 `json:"available,omitempty"` // só em cap_exceeded
}

type BetResponse struct {
	BetID     string    `json:"betId"`
	AccountID string    `json:"accountId"`
	Modality  string    `json:"modality"`
	Number    string    `json:"number"`
	Stake     int64     `json:"stake"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

func Bet(b domain.Bet) BetResponse {
	return BetResponse{
		BetID:     b.ID,
		AccountID: b.AccountID,
		Modality:  string(b.Modality),
		Number:    b.Number,
		Stake:     b.Stake,
		Date:      b.Date,
		CreatedAt: b.CreatedAt,
	}
}

type AccountBetResponse struct {
	BetResponse
	Status        string `json:"status"` // OPEN | WON | LOST
	WinningNumber string `json:"winning_number,omitempty"`
	Awarded       int64  `json:"awarded"`
}

func AccountBets(in []domain.AccountBet) []AccountBetResponse {
	out := make([]AccountBetResponse, 0, len(in))
	for _, b := range in {
		st := "OPEN"
		switch {
		case b.Settled && b.IsWinner:
			st = "WON"
		case b.Settled:
			st = "LOST"
		}
		out = append(out, AccountBetResponse{
			BetResponse:   Bet(b.Bet),
			Status:        st,
			WinningNumber: b.WinningNumber,
			Awarded:       b.Awarded,
		})
	}
	return out
}

type CapacityResponse struct {
	Modality  string `json:"modality"`
	Number    string `json:"number"`
	Date      string `json:"date"`
	Staked    int64  `json:"staked"`
	Available int64  `json:"available"`
	Cap       int64  `json:"cap"`
}

func Capacity(c domain.Capacity) CapacityResponse {
	return CapacityResponse{
		Modality:  string(c.Modality),
		Number:    c.Number,
		Date:      c.Date,
		Staked:    c.Staked,
		Available: c.Available,
		Cap:       c.Cap,
	}
}

type WalletResponse struct {
	AccountID string `json:"accountId"`
	Balance   int64  `json:"balance"`
}

type EntryResponse struct {
	ID           string    `json:"id"`
	Direction    string    `json:"direction"`
	Reason       string    `json:"reason"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	Ref          string    `json:"ref,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func Entries(in []domain.LedgerEntry) []EntryResponse {
	out := make([]EntryResponse, 0, len(in))
	for _, e := range in {
		out = append(out, EntryResponse{
			ID:           e.ID,
			Direction:    e.Direction,
			Reason:       e.Reason,
			Amount:       e.Amount,
			BalanceAfter: e.BalanceAfter,
			Ref:          e.Ref,
			CreatedAt:    e.CreatedAt,
		})
	}
	return out
}

type PaymentResponse struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Points      int64     `json:"points"`
	Amount      string    `json:"amount"`
	ExternalRef string    `json:"external_ref"`
	CreatedAt   time.Time `json:"created_at"`
}

func Payments(in []domain.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(in))
	for _, p := range in {
		out = append(out, PaymentResponse{
			ID:          p.ID,
			Kind:        string(p.Kind),
			Points:      p.Points,
			Amount:      p.Amount,
			ExternalRef: p.ExternalRef,
			CreatedAt:   p.CreatedAt,
		})
	}
	return out
}

type DrawResponse struct {
	DrawID        string     `json:"drawId"`
	Modality      string     `json:"modality"`
	Date          string     `json:"date"`
	WinningNumber string     `json:"winning_number"`
	Status        string     `json:"status"`
	BetCount      int        `json:"bet_count"`
	WinnerCount   int        `json:"winner_count"`
	TotalAwarded  int64      `json:"total_awarded"`
	SettledAt     *time.Time `json:"settled_at,omitempty"`
}

func Draw(d domain.Draw) DrawResponse {
	return DrawResponse{
		DrawID:        d.ID,
		Modality:      string(d.Modality),
		Date:          d.Date,
		WinningNumber: d.WinningNumber,
		Status:        string(d.Status),
		BetCount:      d.BetCount,
		WinnerCount:   d.WinnerCount,
		TotalAwarded:  d.TotalAwarded,
		SettledAt:     d.SettledAt,
	}
}

func Results(in []domain.ResultSummary) []DrawResponse {
	out := make([]DrawResponse, 0, len(in))
	for _, r := range in {
		d := Draw(r.Draw)
		d.WinnerCount = r.WinnerCount
		d.TotalAwarded = r.TotalAwarded
		out = append(out, d)
	}
	return out
}

type WinnerResponse struct {
	BetID     string `json:"betId"`
	AccountID string `json:"accountId"`
	Number    string `json:"number"`
	Stake     int64  `json:"stake"`
	Awarded   int64  `json:"awarded"`
}

type DrawDetailResponse struct {
	DrawResponse
	Winners []WinnerResponse `json:"winners"`
}

func DrawDetail(d domain.DrawDetail) DrawDetailResponse {
	out := DrawDetailResponse{DrawResponse: Draw(d.Draw), Winners: make([]WinnerResponse, 0, len(d.Winners))}
	for _, w := range d.Winners {
		out.Winners = append(out.Winners, WinnerResponse(w))
	}
	return out
}

type ModalityStatusResponse struct {
	Modality      string `json:"modality"`
	Drawn         bool   `json:"drawn"`
	WinningNumber string `json:"winning_number,omitempty"`
}

type TodayResponse struct {
	Date       string                   `json:"date"`
	Modalities []ModalityStatusResponse `json:"modalities"`
}

func Today(date string, in []domain.ModalityStatus) TodayResponse {
	out := TodayResponse{Date: date, Modalities: make([]ModalityStatusResponse, 0, len(in))}
	for _, s := range in {
		out.Modalities = append(out.Modalities, ModalityStatusResponse{
			Modality:      string(s.Modality),
			Drawn:         s.Drawn,
			WinningNumber: s.WinningNumber,
		})
	}
	return out
}

type DashboardResponse struct {
	TotalBets         int64            `json:"total_bets"`
	TotalStaked       int64            `json:"total_staked"`
	TotalAwarded      int64            `json:"total_awarded"`
	HouseResult       int64            `json:"house_result"`
	DrawsConducted    int64            `json:"draws_conducted"`
	Accounts          int64            `json:"accounts"`
	WinnersByModality map[string]int64 `json:"winners_by_modality"`
}

func Dashboard(d domain.Dashboard) DashboardResponse {
	out := DashboardResponse{
		TotalBets:         d.TotalBets,
		TotalStaked:       d.TotalStaked,
		TotalAwarded:      d.TotalAwarded,
		HouseResult:       d.HouseResult,
		DrawsConducted:    d.DrawsConducted,
		Accounts:          d.Accounts,
		WinnersByModality: make(map[string]int64, len(d.WinnersByModality)),
	}
	for m, n := range d.WinnersByModality {
		out.WinnersByModality[string(m)] = n
	}
	return out
}
