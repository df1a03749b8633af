// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// 貸出・返却・待機リストのドメインカウンタとHTTPリクエストの計測を提供する。
type Collector struct {
	borrows        prometheus.Counter
	returns        prometheus.Counter
	finesAssessed  prometheus.Counter
	waitlistJoins  prometheus.Counter
	waitlistLeaves prometheus.Counter
	httpStatus     *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		borrows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "libraryportal_borrows_total",
			Help: "貸出成功の合計数",
		}),
		returns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "libraryportal_returns_total",
			Help: "返却成功の合計数",
		}),
		finesAssessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "libraryportal_fines_assessed_total",
			Help: "課された延滞罰金の合計額",
		}),
		waitlistJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "libraryportal_waitlist_joins_total",
			Help: "待機リスト登録の合計数",
		}),
		waitlistLeaves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "libraryportal_waitlist_leaves_total",
			Help: "待機リスト解除の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "libraryportal_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "libraryportal_http_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(
		c.borrows,
		c.returns,
		c.finesAssessed,
		c.waitlistJoins,
		c.waitlistLeaves,
		c.httpStatus,
		c.httpDuration,
	)

	return c
}

// RecordBorrow は貸出成功を記録する。
func (c *Collector) RecordBorrow() {
	c.borrows.Inc()
}

// RecordReturn は返却成功を記録する。
func (c *Collector) RecordReturn() {
	c.returns.Inc()
}

// RecordFineAssessed は課された罰金額を記録する。
func (c *Collector) RecordFineAssessed(amount int) {
	c.finesAssessed.Add(float64(amount))
}

// RecordWaitlistJoin は待機リスト登録を記録する。
func (c *Collector) RecordWaitlistJoin() {
	c.waitlistJoins.Inc()
}

// RecordWaitlistLeave は待機リスト解除を記録する。
func (c *Collector) RecordWaitlistLeave() {
	c.waitlistLeaves.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPDuration はHTTPリクエストの処理時間を記録する。
func (c *Collector) RecordHTTPDuration(method string, duration time.Duration) {
	c.httpDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
