package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/radieske/lottery-points-platform/internal/lottery/betbook"
	"github.com/radieske/lottery-points-platform/internal/lottery/draw"
	"github.com/radieske/lottery-points-platform/internal/lottery/ledger"
	"github.com/radieske/lottery-points-platform/internal/lottery/live"
	"github.com/radieske/lottery-points-platform/internal/lottery/report"
)

// API expõe apostas, carteira, sorteios e a administração do jogo.
// A autenticação fica no gateway, que repassa a conta em X-User-ID.
type API struct {
	Log      *zap.Logger
	Book     *betbook.Book
	Ledger   *ledger.Ledger
	Engine   *draw.Engine
	Reporter *report.Reporter
	Hub      *live.Hub // opcional; sem hub não há /v1/ws

	AdminToken  string   // vazio desliga as rotas /v1/admin
	CORSOrigins []string // vazio libera qualquer origem
}

// Router retorna o roteador HTTP com os endpoints REST e o websocket
func (a *API) Router() http.Handler {
	if a.Log == nil {
		a.Log = zap.NewNop()
	}
	origins := a.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(a.observe)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", HeaderUserID, HeaderAdminToken},
		MaxAge:         300,
	}))

	if a.Hub != nil {
		r.Get("/v1/ws", a.Hub.HandleWS) // resultados ao vivo
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))

		// públicas
		r.Get("/v1/draws/results", a.listResults)
		r.Get("/v1/draws/today", a.today)
		r.Get("/v1/draws/{id}", a.getDraw)
		r.Get("/v1/capacity/{modality}/{number}", a.capacity)

		// da conta
		r.Group(func(r chi.Router) {
			r.Use(requireAccount)
			r.Post("/v1/bets", a.placeBet)
			r.Get("/v1/bets", a.listBets)
			r.Get("/v1/wallet", a.getWallet)
			r.Get("/v1/wallet/entries", a.listEntries)
			r.Get("/v1/wallet/payments", a.listPayments)
		})

		// administração
		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(a.requireAdmin)
			r.Post("/draws", a.conductDraw)
			r.Post("/draws/{id}/settle", a.settleDraw)
			r.Get("/dashboard", a.dashboard)
		})
	})
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
