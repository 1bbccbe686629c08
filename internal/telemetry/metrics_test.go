package telemetry

import (
	"sync"
	"testing"
)

func TestMetricsCollector_Concurrent(t *testing.T) {
	m := NewMetricsCollector()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.ConnectionOpened()
			m.StreamDone(10, 12)
			m.ConnectionClosed()
		}()
	}
	wg.Wait()

	got := m.Snapshot()
	want := MetricsSnapshot{
		ActiveConnections: 0,
		TotalConnections:  8,
		Streams:           8,
		BytesIngress:      80,
		BytesEgress:       96,
	}
	if got != want {
		t.Fatalf("snapshot=%+v want %+v", got, want)
	}
}
