package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	betTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_bets_total",
			Help: "Bet placements by result and modality",
		},
		[]string{"result", "modality"},
	)

	betDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lottery_bet_duration_ms",
			Help:    "Bet placement duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result", "modality"},
	)

	drawTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_draws_total",
			Help: "Draw conductions by result and modality",
		},
		[]string{"result", "modality"},
	)

	drawDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lottery_draw_duration_ms",
			Help:    "Draw plus settlement duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 12),
		},
		[]string{"modality"},
	)

	awardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_awarded_points_total",
			Help: "Points credited to winners by modality",
		},
		[]string{"modality"},
	)

	paymentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_payments_total",
			Help: "External payment notifications by kind and result",
		},
		[]string{"kind", "result"},
	)

	outboxTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lottery_outbox_publish_total",
			Help: "Outbox publish attempts by topic and result",
		},
		[]string{"topic", "result"},
	)

	httpReqTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	httpReqDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "HTTP request duration in ms",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"route", "method"},
	)
)

// RecordBet registra o resultado de uma aposta. result é "success" ou o
// tipo da rejeição (ex.: "cap_exceeded").
func RecordBet(result, modality string, started time.Time) {
	betTotal.WithLabelValues(result, modality).Inc()
	betDuration.WithLabelValues(result, modality).Observe(float64(time.Since(started).Milliseconds()))
}

// RecordDraw registra um sorteio; awarded só é somado em sucesso
func RecordDraw(result, modality string, awarded int64, started time.Time) {
	drawTotal.WithLabelValues(result, modality).Inc()
	if result != "success" {
		return
	}
	drawDuration.WithLabelValues(modality).Observe(float64(time.Since(started).Milliseconds()))
	if awarded > 0 {
		awardedTotal.WithLabelValues(modality).Add(float64(awarded))
	}
}

func RecordPayment(kind, result string) {
	paymentTotal.WithLabelValues(kind, result).Inc()
}

func RecordOutbox(topic, result string) {
	outboxTotal.WithLabelValues(topic, result).Inc()
}

// RecordHTTP usa o padrão da rota (não a URL) para não explodir cardinalidade
func RecordHTTP(route, method string, status int, started time.Time) {
	httpReqTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpReqDuration.WithLabelValues(route, method).Observe(float64(time.Since(started).Milliseconds()))
}
