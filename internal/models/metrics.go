package models

import "time"

// SystemMetrics is a lightweight snapshot of the process counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"avg_request_duration_ms"`
	TxCommitted              uint64    `json:"tx_committed"`
	TxRetried                uint64    `json:"tx_retried"`
	TxFailed                 uint64    `json:"tx_failed"`
	TxExhausted              uint64    `json:"tx_exhausted"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
