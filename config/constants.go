package config

const (
	DefaultStorageBackend = "leveldb"
	DefaultStateBackend   = "file"
	DefaultStorageDir     = "data"
	DefaultStoreFileName  = "BurningManAccountingStore_v3"
	DefaultFlushDelayMs   = 200
	DefaultCleanupDelay   = 5
	DefaultLogDir         = "./logs"
	DefaultMetricsAddr    = ":9100"
)

// DefaultLegacyFileNames are older versions of the store file, removed on start
var DefaultLegacyFileNames = []string{
	"BurningManAccountingStore",
	"BurningManAccountingStore_v2",
}
