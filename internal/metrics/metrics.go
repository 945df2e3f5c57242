// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 認証サービスや認証ミドルウェアから利用する。
type MetricsCollector interface {
	RecordLogin(result string)
	RecordRegistration(result string)
	RecordAuthRejection(reason string)
	RecordPasswordHash(op string, duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins         *prometheus.CounterVec
	registrations  *prometheus.CounterVec
	authRejections *prometheus.CounterVec
	passwordHash   *prometheus.HistogramVec
	httpStatus     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careerhub_login_total",
			Help: "ログイン試行の結果別合計数",
		}, []string{"result"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careerhub_registration_total",
			Help: "ユーザー登録の結果別合計数",
		}, []string{"result"}),
		authRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careerhub_auth_rejections_total",
			Help: "認証ミドルウェアで拒否されたリクエストの理由別合計数",
		}, []string{"reason"}),
		passwordHash: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "careerhub_password_hash_seconds",
			Help:    "パスワードのハッシュ化・照合に要した時間（秒）",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"op"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careerhub_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.logins,
		c.registrations,
		c.authRejections,
		c.passwordHash,
		c.httpStatus,
	)

	return c
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordRegistration はユーザー登録の結果を記録する。
func (c *Collector) RecordRegistration(result string) {
	c.registrations.WithLabelValues(result).Inc()
}

// RecordAuthRejection は認証ミドルウェアでの拒否理由を記録する。
func (c *Collector) RecordAuthRejection(reason string) {
	c.authRejections.WithLabelValues(reason).Inc()
}

// RecordPasswordHash はパスワード処理のレイテンシを記録する。
func (c *Collector) RecordPasswordHash(op string, duration time.Duration) {
	c.passwordHash.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordLogin(string)                       {}
func (Nop) RecordRegistration(string)                {}
func (Nop) RecordAuthRejection(string)               {}
func (Nop) RecordPasswordHash(string, time.Duration) {}
func (Nop) RecordHTTPStatus(int)                     {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
