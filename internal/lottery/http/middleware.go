package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/lottery-points-platform/internal/lottery/dto"
	"github.com/radieske/lottery-points-platform/internal/shared/metrics"
)

const (
	HeaderUserID     = "X-User-ID"
	HeaderAdminToken = "X-Admin-Token"
)

type ctxKey struct{}

// requireAccount exige a conta repassada pelo gateway
func requireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if id == "" {
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "missing " + HeaderUserID, Code: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func accountID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func (a *API) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(HeaderAdminToken)
		if a.AdminToken == "" || subtle.ConstantTimeCompare([]byte(got), []byte(a.AdminToken)) != 1 {
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "admin only", Code: "forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// observe registra métricas e log de acesso pelo padrão da rota
func (a *API) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordHTTP(route, r.Method, status, started)
		a.Log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(started)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
