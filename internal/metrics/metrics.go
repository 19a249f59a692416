// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordScrapeSuccess(site string, jobCount int)
	RecordScrapeFailure(site string)
	RecordJobsInserted(count int)
	RecordIngestFailure()
	RecordNotificationSent()
	RecordNotificationFailure()
	ObserveRunDuration(d time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	scrapeSuccess *prometheus.CounterVec
	scrapeFail    *prometheus.CounterVec
	jobsScraped   *prometheus.CounterVec
	jobsInserted  prometheus.Counter
	ingestFail    prometheus.Counter
	notifySent    prometheus.Counter
	notifyFail    prometheus.Counter
	runDuration   prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		scrapeSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobradar_scrape_success_total",
			Help: "サイト別のスクレイプ成功の合計数",
		}, []string{"site"}),
		scrapeFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobradar_scrape_fail_total",
			Help: "サイト別のスクレイプ失敗の合計数",
		}, []string{"site"}),
		jobsScraped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobradar_jobs_scraped_total",
			Help: "サイト別の収集した求人の合計数",
		}, []string{"site"}),
		jobsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobradar_jobs_inserted_total",
			Help: "新規保存された求人の合計数",
		}),
		ingestFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobradar_ingest_fail_total",
			Help: "求人バッチ保存失敗の合計数",
		}),
		notifySent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobradar_notifications_sent_total",
			Help: "送信した通知の合計数",
		}),
		notifyFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobradar_notifications_fail_total",
			Help: "送信に失敗した通知の合計数",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobradar_run_duration_seconds",
			Help:    "スクレイプ周期の所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.scrapeSuccess,
		c.scrapeFail,
		c.jobsScraped,
		c.jobsInserted,
		c.ingestFail,
		c.notifySent,
		c.notifyFail,
		c.runDuration,
	)

	return c
}

// RecordScrapeSuccess はサイトのスクレイプ成功と収集求人数を記録する。
func (c *Collector) RecordScrapeSuccess(site string, jobCount int) {
	c.scrapeSuccess.WithLabelValues(site).Inc()
	c.jobsScraped.WithLabelValues(site).Add(float64(jobCount))
}

// RecordScrapeFailure はサイトのスクレイプ失敗を記録する。
func (c *Collector) RecordScrapeFailure(site string) {
	c.scrapeFail.WithLabelValues(site).Inc()
}

// RecordJobsInserted は新規保存された求人数を記録する。
func (c *Collector) RecordJobsInserted(count int) {
	c.jobsInserted.Add(float64(count))
}

// RecordIngestFailure は求人バッチ保存の失敗を記録する。
func (c *Collector) RecordIngestFailure() {
	c.ingestFail.Inc()
}

// RecordNotificationSent は通知の送信成功を記録する。
func (c *Collector) RecordNotificationSent() {
	c.notifySent.Inc()
}

// RecordNotificationFailure は通知の送信失敗を記録する。
func (c *Collector) RecordNotificationFailure() {
	c.notifyFail.Inc()
}

// ObserveRunDuration はスクレイプ周期の所要時間を記録する。
func (c *Collector) ObserveRunDuration(d time.Duration) {
	c.runDuration.Observe(d.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
