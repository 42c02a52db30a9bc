package monitoring

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// System resources
	MemoryUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "venue_memory_bytes",
		Help: "Current memory usage in bytes",
	})

	GoroutineCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "venue_goroutines",
		Help: "Current number of goroutines",
	})

	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "venue_ws_clients",
		Help: "Currently connected websocket clients",
	})
)

// Start collecting system metrics
func StartMetricsCollection(clientCount func() int) {
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			collectSystemMetrics()
			if clientCount != nil {
				ConnectedClients.Set(float64(clientCount()))
			}
		}
	}()
}

func collectSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	MemoryUsage.Set(float64(m.Alloc))
	GoroutineCount.Set(float64(runtime.NumGoroutine()))
}
