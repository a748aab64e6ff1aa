package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "interview_gateway_active_sessions",
		Help: "Number of active interview sessions",
	})

	totalSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_gateway_sessions_total",
		Help: "Total number of interview sessions started",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "interview_gateway_session_duration_seconds",
		Help:    "Duration of interview sessions in seconds",
		Buckets: []float64{30, 60, 120, 300, 600, 1200, 1800, 3600},
	})

	// Chat completion metrics
	chatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_chat_requests_total",
		Help: "Total number of chat completion requests",
	}, []string{"status"})

	chatLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "interview_gateway_chat_latency_seconds",
		Help:    "Chat completion latency in seconds",
		Buckets: []float64{0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	})

	// Speech synthesis metrics
	ttsRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_tts_requests_total",
		Help: "Total number of speech synthesis requests",
	}, []string{"status"})

	ttsLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "interview_gateway_tts_latency_seconds",
		Help:    "Speech synthesis latency in seconds",
		Buckets: []float64{0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	})

	ttsAudioBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_gateway_tts_audio_bytes_total",
		Help: "Total bytes of synthesized PCM audio received",
	})

	// WAV encoding metrics
	wavContainers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_gateway_wav_containers_total",
		Help: "Total number of WAV containers produced",
	})

	wavBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_gateway_wav_bytes_total",
		Help: "Total bytes of WAV audio produced",
	})

	// Resilience metrics
	retryExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_retry_exhausted_total",
		Help: "Total number of operations that failed after all retry attempts",
	}, []string{"operation"})

	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "interview_gateway_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})
)

// RecordSessionStart records the start of an interview session
func RecordSessionStart() {
	activeSessions.Inc()
	totalSessions.Inc()
}

// RecordSessionEnd records the end of an interview session
func RecordSessionEnd(start time.Time) {
	activeSessions.Dec()
	sessionDuration.Observe(time.Since(start).Seconds())
}

// RecordChatRequest records a chat completion request and its latency
func RecordChatRequest(status string, start time.Time) {
	chatRequests.WithLabelValues(status).Inc()
	chatLatency.Observe(time.Since(start).Seconds())
}

// RecordTTSRequest records a speech synthesis request and its latency
func RecordTTSRequest(status string, start time.Time) {
	ttsRequests.WithLabelValues(status).Inc()
	ttsLatency.Observe(time.Since(start).Seconds())
}

// RecordTTSAudioBytes records the size of a synthesized PCM payload
func RecordTTSAudioBytes(n int) {
	ttsAudioBytes.Add(float64(n))
}

// RecordWAVContainer records a produced WAV container and its size
func RecordWAVContainer(size int) {
	wavContainers.Inc()
	wavBytes.Add(float64(size))
}

// RecordRetryExhausted records an operation that failed after all attempts
func RecordRetryExhausted(operation string) {
	retryExhausted.WithLabelValues(operation).Inc()
}

// RecordCircuitBreakerState records a circuit breaker state transition
func RecordCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordError records an error by type and component
func RecordError(errType, component string) {
	errorsTotal.WithLabelValues(errType, component).Inc()
}
