// Package metrics provides Prometheus metrics for the wordleboard bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default bucket layout for the rating participants histogram: 2, 4, ... 20.
const (
	participantBucketStart = 2
	participantBucketWidth = 2
	participantBucketCount = 10
)

// Manager manages all Prometheus metrics for the bot.
type Manager struct {
	namespace          string
	subsystem          string
	histogramBuckets   []float64
	participantBuckets []float64
	enabled            bool
	registry           prometheus.Registerer

	// Ingest
	messagesReceived     *prometheus.CounterVec
	scoresRecorded       prometheus.Counter
	duplicateSubmissions prometheus.Counter
	callbackDuplicates   prometheus.Counter
	processingLatency    prometheus.Histogram
	processingErrors     *prometheus.CounterVec

	// Rollover and rating
	rollovers          *prometheus.CounterVec
	ratingUpdates      prometheus.Counter
	ratingParticipants prometheus.Histogram
	currentGame        prometheus.Gauge
	playersTotal       prometheus.Gauge

	// Notifications
	notifications    *prometheus.CounterVec
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	notifyLatency    prometheus.Histogram
	liveSubscribers  prometheus.Gauge
	mirrorPublishErr prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:          "wordleboard",
		subsystem:          "bot",
		histogramBuckets:   prometheus.DefBuckets,
		participantBuckets: prometheus.LinearBuckets(participantBucketStart, participantBucketWidth, participantBucketCount),
		enabled:            true,
		registry:           prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)

	m.messagesReceived = auto.NewCounterVec(
		m.counterOpts("messages_received_total", "Inbound chat messages by classification"),
		[]string{"kind"},
	)
	m.scoresRecorded = auto.NewCounter(m.counterOpts("scores_recorded_total", "Score reports stored"))
	m.duplicateSubmissions = auto.NewCounter(m.counterOpts("duplicate_submissions_total", "Score reports rejected because the player already submitted that game"))
	m.callbackDuplicates = auto.NewCounter(m.counterOpts("callback_duplicates_total", "Webhook callbacks dropped because the message id was already seen"))
	m.processingLatency = auto.NewHistogram(m.histogramOpts("processing_latency_milliseconds", "Time spent handling one inbound message", m.histogramBuckets))
	m.processingErrors = auto.NewCounterVec(
		m.counterOpts("processing_errors_total", "Inbound messages that failed by reason"),
		[]string{"reason"},
	)

	m.rollovers = auto.NewCounterVec(
		m.counterOpts("rollovers_total", "Window rollovers performed"),
		[]string{"window"},
	)
	m.ratingUpdates = auto.NewCounter(m.counterOpts("rating_updates_total", "Games that produced a rating update"))
	m.ratingParticipants = auto.NewHistogram(m.histogramOpts("rating_participants", "Players included per rating update", m.participantBuckets))
	m.currentGame = auto.NewGauge(m.gaugeOpts("current_game_id", "Active puzzle number"))
	m.playersTotal = auto.NewGauge(m.gaugeOpts("players_total", "Registered players"))

	m.notifications = auto.NewCounterVec(
		m.counterOpts("notifications_total", "Outbound notifications by result"),
		[]string{"result"},
	)
	m.queueSize = auto.NewGauge(m.gaugeOpts("notify_queue_size", "Notifications waiting to be sent"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("notify_queue_capacity", "Capacity of the notification queue"))
	m.notifyLatency = auto.NewHistogram(m.histogramOpts("notify_latency_milliseconds", "Outbound post latency", m.histogramBuckets))
	m.liveSubscribers = auto.NewGauge(m.gaugeOpts("live_subscribers", "Connected live feed websockets"))
	m.mirrorPublishErr = auto.NewCounter(m.counterOpts("mirror_publish_errors_total", "Failed leaderboard mirror publishes"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordMessageReceived counts an inbound message by kind (score, command, ignored, bot).
func RecordMessageReceived(kind string) {
	if globalManager.enabled {
		globalManager.messagesReceived.WithLabelValues(kind).Inc()
	}
}

func RecordScoreRecorded() {
	if globalManager.enabled {
		globalManager.scoresRecorded.Inc()
	}
}

func RecordDuplicateSubmission() {
	if globalManager.enabled {
		globalManager.duplicateSubmissions.Inc()
	}
}

func RecordCallbackDuplicate() {
	if globalManager.enabled {
		globalManager.callbackDuplicates.Inc()
	}
}

func RecordProcessingLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.processingLatency.Observe(latencyMs)
	}
}

func RecordProcessingError(reason string) {
	if globalManager.enabled {
		globalManager.processingErrors.WithLabelValues(reason).Inc()
	}
}

// RecordRollover counts a rollover of the given window (daily or weekly).
func RecordRollover(window string) {
	if globalManager.enabled {
		globalManager.rollovers.WithLabelValues(window).Inc()
	}
}

// RecordRatingUpdate counts one rated game with n participants.
func RecordRatingUpdate(participants int) {
	if globalManager.enabled {
		globalManager.ratingUpdates.Inc()
		globalManager.ratingParticipants.Observe(float64(participants))
	}
}

func UpdateCurrentGame(game int) {
	if globalManager.enabled {
		globalManager.currentGame.Set(float64(game))
	}
}

func UpdatePlayersTotal(count int) {
	if globalManager.enabled {
		globalManager.playersTotal.Set(float64(count))
	}
}

// RecordNotification counts an outbound notification by result (sent, failed, dropped).
func RecordNotification(result string) {
	if globalManager.enabled {
		globalManager.notifications.WithLabelValues(result).Inc()
	}
}

func UpdateQueueSize(size int) {
	if globalManager.enabled {
		globalManager.queueSize.Set(float64(size))
	}
}

func UpdateQueueCapacity(capacity int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

func RecordNotifyLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.notifyLatency.Observe(latencyMs)
	}
}

func UpdateLiveSubscribers(count int) {
	if globalManager.enabled {
		globalManager.liveSubscribers.Set(float64(count))
	}
}

func RecordMirrorPublishError() {
	if globalManager.enabled {
		globalManager.mirrorPublishErr.Inc()
	}
}

func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// GetRegistry returns the registry the global manager writes to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
