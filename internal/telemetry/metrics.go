package telemetry

import "sync/atomic"

// MetricsCollector counts echo traffic handled by a server endpoint.
// Safe for concurrent use.
type MetricsCollector struct {
	activeConnections atomic.Int64
	totalConnections  atomic.Int64
	streams           atomic.Int64
	bytesIngress      atomic.Int64
	bytesEgress       atomic.Int64
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

func (m *MetricsCollector) ConnectionOpened() {
	m.activeConnections.Add(1)
	m.totalConnections.Add(1)
}

func (m *MetricsCollector) ConnectionClosed() {
	m.activeConnections.Add(-1)
}

// StreamDone records one finished stream and the bytes moved in each direction.
func (m *MetricsCollector) StreamDone(in, out int64) {
	m.streams.Add(1)
	m.bytesIngress.Add(in)
	m.bytesEgress.Add(out)
}

type MetricsSnapshot struct {
	ActiveConnections int64 `json:"active_connections"`
	TotalConnections  int64 `json:"total_connections_handled"`
	Streams           int64 `json:"streams"`
	BytesIngress      int64 `json:"bytes_ingress"`
	BytesEgress       int64 `json:"bytes_egress"`
}

func (m *MetricsCollector) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		ActiveConnections: m.activeConnections.Load(),
		TotalConnections:  m.totalConnections.Load(),
		Streams:           m.streams.Load(),
		BytesIngress:      m.bytesIngress.Load(),
		BytesEgress:       m.bytesEgress.Load(),
	}
}
