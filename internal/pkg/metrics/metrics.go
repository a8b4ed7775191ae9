package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 座席保存の総数（day, status: success, invalid, error）
	SeatSavesTotal *prometheus.CounterVec

	// 座席データの初期化・自己修復の回数（day, reason: missing, corrupted）
	InventoryResetsTotal *prometheus.CounterVec

	// 公演日ごとの予約済み座席数
	ReservedSeats *prometheus.GaugeVec

	// アシスタント問い合わせの総数（status: success, cached, limited, error）
	AssistantRequestsTotal *prometheus.CounterVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		SeatSavesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seat_saves_total",
				Help: "Total number of seat inventory save attempts",
			},
			[]string{"day", "status"},
		),
		InventoryResetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_resets_total",
				Help: "Number of times a day inventory was (re)initialized",
			},
			[]string{"day", "reason"},
		),
		ReservedSeats: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reserved_seats",
				Help: "Current number of reserved seats per day",
			},
			[]string{"day"},
		),
		AssistantRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistant_requests_total",
				Help: "Total number of assistant questions",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SeatSavesTotal,
		m.InventoryResetsTotal,
		m.ReservedSeats,
		m.AssistantRequestsTotal,
	)

	return m
}

// ObserveSave は座席保存の結果を記録する（nil でも安全）
func (m *Metrics) ObserveSave(day, status string) {
	if m == nil {
		return
	}
	m.SeatSavesTotal.WithLabelValues(day, status).Inc()
}

// ObserveReset は座席データの初期化を記録する（nil でも安全）
func (m *Metrics) ObserveReset(day, reason string) {
	if m == nil {
		return
	}
	m.InventoryResetsTotal.WithLabelValues(day, reason).Inc()
}

// SetReserved は予約済み座席数を更新する（nil でも安全）
func (m *Metrics) SetReserved(day string, n int) {
	if m == nil {
		return
	}
	m.ReservedSeats.WithLabelValues(day).Set(float64(n))
}

// ObserveAssistant はアシスタント問い合わせの結果を記録する（nil でも安全）
func (m *Metrics) ObserveAssistant(status string) {
	if m == nil {
		return
	}
	m.AssistantRequestsTotal.WithLabelValues(status).Inc()
}
