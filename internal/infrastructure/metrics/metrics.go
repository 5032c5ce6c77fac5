// Package metrics 定義服務的 Prometheus 指標
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal 依路由、方法與狀態碼統計請求數
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration 請求耗時
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recipe_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	SuggestionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recipe_suggestions_total",
			Help: "Total number of suggestion requests served",
		},
	)

	// SuggestionResults 每次推薦回傳的食譜數量
	SuggestionResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recipe_suggestion_results",
			Help:    "Number of recipes returned per suggestion request",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	SuggestionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recipe_suggestion_duration_seconds",
			Help:    "Time spent scoring and ranking candidates",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	// CacheRequestsTotal 快取查詢結果，result 為 hit 或 miss
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_cache_requests_total",
			Help: "Suggestion cache lookups by result",
		},
		[]string{"result"},
	)

	// FeedbackWritesTotal 評分與收藏寫入次數，kind 為 rating 或 favorite
	FeedbackWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_feedback_writes_total",
			Help: "Feedback writes by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	DetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_detections_total",
			Help: "Ingredient detection calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// DetectorQueueLength 偵測佇列目前長度
	DetectorQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recipe_detector_queue_length",
			Help: "Pending ingredient detection jobs",
		},
	)
)

// ObserveHTTPRequest 記錄單次 HTTP 請求
func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveSuggestion 記錄一次推薦計算
func ObserveSuggestion(results int, d time.Duration) {
	SuggestionsTotal.Inc()
	SuggestionResults.Observe(float64(results))
	SuggestionDuration.Observe(d.Seconds())
}

// RecordCacheResult 記錄快取命中與否
func RecordCacheResult(hit bool) {
	if hit {
		CacheRequestsTotal.WithLabelValues("hit").Inc()
		return
	}
	CacheRequestsTotal.WithLabelValues("miss").Inc()
}

// RecordFeedbackWrite 記錄回饋寫入
func RecordFeedbackWrite(kind string, err error) {
	FeedbackWritesTotal.WithLabelValues(kind, outcome(err)).Inc()
}

// RecordDetection 記錄食材偵測
func RecordDetection(provider string, err error) {
	DetectionsTotal.WithLabelValues(provider, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
