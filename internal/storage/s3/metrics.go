package s3

import (
	"time"
)

// BackendMetrics tracks S3 backend performance metrics
type BackendMetrics struct {
	Requests        int64         `json:"requests"`
	Errors          int64         `json:"errors"`
	BytesUploaded   int64         `json:"bytes_uploaded"`
	BytesDownloaded int64         `json:"bytes_downloaded"`
	AverageLatency  time.Duration `json:"average_latency"`
	LastError       string        `json:"last_error"`
	LastErrorTime   time.Time     `json:"last_error_time"`
}

// GetMetrics returns current backend metrics
func (b *Backend) GetMetrics() BackendMetrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.metrics
}

// record updates the counters for one request and forwards it to the
// metrics collector.
func (b *Backend) record(operation string, start time.Time, size int64, err error) {
	duration := time.Since(start)

	b.mu.Lock()
	b.metrics.Requests++
	if err != nil {
		b.metrics.Errors++
		b.metrics.LastError = err.Error()
		b.metrics.LastErrorTime = time.Now()
	}

	// Calculate rolling average latency
	if b.metrics.Requests == 1 {
		b.metrics.AverageLatency = duration
	} else {
		b.metrics.AverageLatency = time.Duration(
			(int64(b.metrics.AverageLatency)*9 + int64(duration)) / 10,
		)
	}

	if err == nil {
		switch operation {
		case opGet:
			b.metrics.BytesDownloaded += size
		case opPut:
			b.metrics.BytesUploaded += size
		}
	}
	b.mu.Unlock()

	if b.collector != nil {
		b.collector.RecordOperation("s3."+operation, duration, size, err == nil)
	}
}
