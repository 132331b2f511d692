package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
	"github.com/radieske/lottery-points-platform/internal/lottery/dto"
)

const maxEntries = 200

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: msg, Code: "validation"})
}

// placeBet aposta no dia corrente, no relógio do jogo
func (a *API) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}
	// modalidade desconhecida segue como está: a janela é checada antes
	m, err := domain.ParseModality(req.Modality)
	if err != nil {
		m = domain.Modality(req.Modality)
	}
	bet, err := a.Book.PlaceBetNow(r.Context(), accountID(r), m, req.Number, req.Stake)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.Bet(bet))
}

// listBets lista as apostas da conta; ?date= filtra o dia
func (a *API) listBets(w http.ResponseWriter, r *http.Request) {
	bets, err := a.Book.AccountBets(r.Context(), accountID(r), r.URL.Query().Get("date"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AccountBets(bets))
}

// capacity mostra quanto ainda cabe no número; ?date= vazio usa hoje
func (a *API) capacity(w http.ResponseWriter, r *http.Request) {
	m, err := domain.ParseModality(chi.URLParam(r, "modality"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = a.Engine.Today()
	}
	c, err := a.Book.AvailableCapacity(r.Context(), m, chi.URLParam(r, "number"), date)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Capacity(c))
}

// getWallet devolve (ou cria) a conta e o saldo
func (a *API) getWallet(w http.ResponseWriter, r *http.Request) {
	acc, err := a.Ledger.OpenAccount(r.Context(), accountID(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{AccountID: acc.ID, Balance: acc.Balance})
}

func (a *API) listEntries(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			badRequest(w, "invalid limit")
			return
		}
		limit = min(n, maxEntries)
	}
	entries, err := a.Ledger.Entries(r.Context(), accountID(r), limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Entries(entries))
}

// listPayments lista depósitos e saques; ?kind=deposit|withdrawal filtra
func (a *API) listPayments(w http.ResponseWriter, r *http.Request) {
	kind := domain.PaymentKind(r.URL.Query().Get("kind"))
	switch kind {
	case "", domain.PaymentDeposit, domain.PaymentWithdrawal:
	default:
		badRequest(w, "invalid kind")
		return
	}
	list, err := a.Ledger.Payments(r.Context(), accountID(r), kind)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Payments(list))
}

// listResults lista sorteios liquidados; ?modality= e ?date= filtram
func (a *API) listResults(w http.ResponseWriter, r *http.Request) {
	var m domain.Modality
	if s := r.URL.Query().Get("modality"); s != "" {
		var err error
		if m, err = domain.ParseModality(s); err != nil {
			a.writeError(w, r, err)
			return
		}
	}
	res, err := a.Engine.Results(r.Context(), m, r.URL.Query().Get("date"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Results(res))
}

func (a *API) today(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = a.Engine.Today()
	}
	st, err := a.Engine.TodayStatus(r.Context(), date)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Today(date, st))
}

func (a *API) getDraw(w http.ResponseWriter, r *http.Request) {
	d, err := a.Engine.DrawDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DrawDetail(d))
}

// conductDraw sorteia, ou aceita o número informado, e liquida
func (a *API) conductDraw(w http.ResponseWriter, r *http.Request) {
	var req dto.DrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}
	m, err := domain.ParseModality(req.Modality)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.Date == "" {
		req.Date = a.Engine.Today()
	}

	var res domain.DrawResult
	if req.WinningNumber != "" {
		res, err = a.Engine.AcceptDraw(r.Context(), m, req.Date, req.WinningNumber)
	} else {
		res, err = a.Engine.ConductDraw(r.Context(), m, req.Date)
	}
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.Draw(res.Draw))
}

// settleDraw retoma a liquidação de um sorteio PENDING
func (a *API) settleDraw(w http.ResponseWriter, r *http.Request) {
	res, err := a.Engine.Settle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Draw(res.Draw))
}

func (a *API) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := a.Reporter.Dashboard(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Dashboard(d))
}
