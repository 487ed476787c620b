// Package cfg
package cfg

import (
	"errors"
	"os"
	"strconv"
	"time"
)

const (
	ModeDev        = "dev"
	ModeProduction = "prod"
)

type LedgerConfig struct {
	ServerMode        string
	Port              string
	HttpRequestSecret string

	LogLevel  string
	SentryDSN string

	RPCURL string
	WSURL  string

	BackfillBatchSize     uint64
	BackfillWindowTimeout time.Duration
	ResubscribeBackoff    time.Duration
	WorkerPoolSize        int
	SeedPoolSize          int

	CacheEngine      string
	CacheURL         string
	CacheDB          int
	CacheIsFlush     bool
	CacheExpiredTime time.Duration

	StorageDriver  string
	StorageURI     string
	StorageDB      string
	StorageMinConn int
	StorageMaxConn int
	StorageIsFlush bool
}

func New() (LedgerConfig, error) {
	rpcURL := os.Getenv("RPC_URL")
	if rpcURL == "" {
		return LedgerConfig{}, errors.New("missing RPC URL in config")
	}
	wsURL := os.Getenv("WS_URL")
	if wsURL == "" {
		return LedgerConfig{}, errors.New("missing websocket RPC URL in config")
	}

	batchSizeStr := os.Getenv("BACKFILL_BATCH_SIZE")
	batchSize, err := strconv.ParseUint(batchSizeStr, 10, 64)
	if err != nil {
		batchSize = 10000
	}

	windowTimeoutStr := os.Getenv("BACKFILL_WINDOW_TIMEOUT")
	windowTimeout, err := time.ParseDuration(windowTimeoutStr)
	if err != nil {
		windowTimeout = 30 * time.Second
	}

	resubscribeBackoffStr := os.Getenv("RESUBSCRIBE_BACKOFF")
	resubscribeBackoff, err := time.ParseDuration(resubscribeBackoffStr)
	if err != nil {
		resubscribeBackoff = 5 * time.Second
	}

	workerPoolSizeStr := os.Getenv("WORKER_POOL_SIZE")
	workerPoolSize, err := strconv.Atoi(workerPoolSizeStr)
	if err != nil {
		workerPoolSize = 32
	}

	seedPoolSizeStr := os.Getenv("SEED_POOL_SIZE")
	seedPoolSize, err := strconv.Atoi(seedPoolSizeStr)
	if err != nil {
		seedPoolSize = 4
	}

	cacheDBStr := os.Getenv("CACHE_DB")
	cacheDB, err := strconv.Atoi(cacheDBStr)
	if err != nil {
		cacheDB = 0
	}

	cacheIsFlushStr := os.Getenv("CACHE_IS_FLUSH")
	cacheIsFlush, err := strconv.ParseBool(cacheIsFlushStr)
	if err != nil {
		cacheIsFlush = false
	}

	cacheExpiredTimeStr := os.Getenv("CACHE_EXPIRED_TIME")
	cacheExpiredTime, err := time.ParseDuration(cacheExpiredTimeStr)
	if err != nil {
		cacheExpiredTime = 12 * time.Hour
	}

	storageMinConnStr := os.Getenv("STORAGE_MIN_CONN")
	storageMinConn, err := strconv.Atoi(storageMinConnStr)
	if err != nil {
		storageMinConn = 4
	}

	storageMaxConnStr := os.Getenv("STORAGE_MAX_CONN")
	storageMaxConn, err := strconv.Atoi(storageMaxConnStr)
	if err != nil {
		storageMaxConn = 16
	}

	storageIsFlushStr := os.Getenv("STORAGE_IS_FLUSH")
	storageIsFlush, err := strconv.ParseBool(storageIsFlushStr)
	if err != nil {
		storageIsFlush = false
	}

	cfg := LedgerConfig{
		ServerMode:        os.Getenv("SERVER_MODE"),
		Port:              os.Getenv("PORT"),
		HttpRequestSecret: os.Getenv("HTTP_REQUEST_SECRET"),

		LogLevel:  os.Getenv("LOG_LEVEL"),
		SentryDSN: os.Getenv("SENTRY_DSN"),

		RPCURL: rpcURL,
		WSURL:  wsURL,

		BackfillBatchSize:     batchSize,
		BackfillWindowTimeout: windowTimeout,
		ResubscribeBackoff:    resubscribeBackoff,
		WorkerPoolSize:        workerPoolSize,
		SeedPoolSize:          seedPoolSize,

		CacheEngine:      os.Getenv("CACHE_ENGINE"),
		CacheURL:         os.Getenv("CACHE_URL"),
		CacheDB:          cacheDB,
		CacheIsFlush:     cacheIsFlush,
		CacheExpiredTime: cacheExpiredTime,

		StorageDriver:  os.Getenv("STORAGE_DRIVER"),
		StorageURI:     os.Getenv("STORAGE_URI"),
		StorageDB:      os.Getenv("STORAGE_DB"),
		StorageMinConn: storageMinConn,
		StorageMaxConn: storageMaxConn,
		StorageIsFlush: storageIsFlush,
	}
	if cfg.ServerMode == "" {
		cfg.ServerMode = ModeDev
	}
	if cfg.Port == "" {
		cfg.Port = ":3000"
	}
	return cfg, nil
}
