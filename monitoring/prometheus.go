package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/mezonai/accounting/logx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type BlockRejectedReason string

var (
	BlockHeightNotConnecting BlockRejectedReason = "height_not_connecting"
	BlockHashNotConnecting   BlockRejectedReason = "hash_not_connecting"
	BlockRejectedUnknown     BlockRejectedReason = "other"
)

type storePromMetrics struct {
	storeUpUnixSeconds  prometheus.Gauge
	chainHeight         prometheus.Gauge
	chainLength         prometheus.Gauge
	addedBlockCount     prometheus.Counter
	rejectedBlockCount  *prometheus.CounterVec
	purgedBlockCount    prometheus.Counter
	resetCount          prometheus.Counter
	persistDuration     prometheus.Histogram
	persistSizeBytes    prometheus.Histogram
	persistFailureCount prometheus.Counter
	tradeLimitCacheMiss prometheus.Counter
	panicCount          prometheus.Counter
}

func newStorePromMetrics() *storePromMetrics {
	return &storePromMetrics{
		storeUpUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "accounting_store_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the accounting store start",
			},
		),
		chainHeight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "accounting_store_chain_height",
				Help: "Height of the last accounting block",
			},
		),
		chainLength: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "accounting_store_chain_length",
				Help: "Number of accounting blocks held by the store",
			},
		),
		addedBlockCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "accounting_store_added_block_count",
				Help: "The total number of accepted accounting blocks",
			},
		),
		rejectedBlockCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounting_store_rejected_block_count",
				Help: "The total number of rejected accounting blocks",
			},
			[]string{"reason"},
		),
		purgedBlockCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "accounting_store_purged_block_count",
				Help: "The total number of blocks removed by purges",
			},
		),
		resetCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "accounting_store_reset_count",
				Help: "The number of full resets",
			},
		),
		persistDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "accounting_store_persist_duration",
				Help: "Duration in second of a single state write",
			},
		),
		persistSizeBytes: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "accounting_store_persist_size_bytes",
				Help:    "Size of the encoded state in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),
		persistFailureCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "accounting_store_persist_failure_count",
				Help: "The total number of failed state writes",
			},
		),
		tradeLimitCacheMiss: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "accounting_trade_limit_cache_miss_count",
				Help: "The number of max trade limit recomputations",
			},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "accounting_panic_count",
				Help: "The number of recovered panics",
			},
		),
	}
}

var (
	storeMetrics *storePromMetrics
	initOnce     sync.Once
)

// InitMetrics registers the collectors with the default registry. Recording
// functions call it on demand, so calling it explicitly only fixes the start time.
func InitMetrics() {
	initOnce.Do(func() {
		storeMetrics = newStorePromMetrics()
		storeMetrics.storeUpUnixSeconds.SetToCurrentTime()
	})
}

func metrics() *storePromMetrics {
	InitMetrics()
	return storeMetrics
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func SetChainHeight(height uint64, length int) {
	m := metrics()
	m.chainHeight.Set(float64(height))
	m.chainLength.Set(float64(length))
}

func IncreaseAddedBlockCount() {
	metrics().addedBlockCount.Inc()
}

func RecordRejectedBlock(reason BlockRejectedReason) {
	metrics().rejectedBlockCount.With(prometheus.Labels{
		"reason": string(reason),
	}).Inc()
}

func RecordPurgedBlocks(count int) {
	metrics().purgedBlockCount.Add(float64(count))
}

func IncreaseResetCount() {
	metrics().resetCount.Inc()
}

func RecordPersist(duration time.Duration, sizeBytes int) {
	m := metrics()
	m.persistDuration.Observe(duration.Seconds())
	m.persistSizeBytes.Observe(float64(sizeBytes))
}

func IncreasePersistFailureCount() {
	metrics().persistFailureCount.Inc()
}

func IncreaseTradeLimitCacheMiss() {
	metrics().tradeLimitCacheMiss.Inc()
}

func IncreasePanicCount() {
	metrics().panicCount.Inc()
}
