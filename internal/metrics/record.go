package metrics

import (
	"strconv"
	"time"
)

// RecordHTTPRequest records a finished HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func (m *Metrics) IncCommentCreated() {
	if m == nil {
		return
	}
	m.CommentsCreatedTotal.Inc()
}

func (m *Metrics) IncCommentDeleted() {
	if m == nil {
		return
	}
	m.CommentsDeletedTotal.Inc()
}

// RecordEventPublished counts a delivery attempt to the push transport
func (m *Metrics) RecordEventPublished(event string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EventsPublishedTotal.WithLabelValues(event, result).Inc()
}

func (m *Metrics) IncEventDropped() {
	if m == nil {
		return
	}
	m.EventsDroppedTotal.Inc()
}

func (m *Metrics) SetWebsocketClients(n int) {
	if m == nil {
		return
	}
	m.WebsocketClients.Set(float64(n))
}

// ShouldSkipEndpoint reports whether path is excluded from HTTP metrics
func ShouldSkipEndpoint(path string) bool {
	switch path {
	case "/metrics", "/api/comments/health", "/ws":
		return true
	default:
		return false
	}
}
