package ports

import "time"

// MetricsSink abstracts the monitoring system. Implementations must be safe
// for concurrent use; Publish never blocks the caller on network I/O.
type MetricsSink interface {
	Publish(name string, value float64, ts time.Time, tags map[string]string)
}
