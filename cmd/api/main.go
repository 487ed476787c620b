package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"github.com/launchbase/ledger-backend/api"
	"github.com/launchbase/ledger-backend/cache"
	"github.com/launchbase/ledger-backend/cfg"
	"github.com/launchbase/ledger-backend/db"
	"github.com/launchbase/ledger-backend/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		panic(err.Error())
	}

	serviceCfg, err := cfg.New()
	if err != nil {
		panic(err.Error())
	}

	logger, err := newLogger(serviceCfg)
	if err != nil {
		panic("cannot init logger")
	}
	logger.Info("Start API server...")

	defer func() {
		if err := recover(); err != nil {
			logger.Error("cannot recover")
		}
		if err := logger.Sync(); err != nil {
			logger.Error("cannot sync log")
		}
	}()

	if err := setupSentry(serviceCfg); err != nil {
		panic(err)
	}
	defer sentry.Flush(2 * time.Second)

	srv, err := server.New(server.Config{
		DBAdapter: db.Adapter(serviceCfg.StorageDriver),
		DBUrl:     serviceCfg.StorageURI,
		DBName:    serviceCfg.StorageDB,
		MinConn:   serviceCfg.StorageMinConn,
		MaxConn:   serviceCfg.StorageMaxConn,
		FlushDB:   serviceCfg.StorageIsFlush,

		RPCURL: serviceCfg.RPCURL,
		WSURL:  serviceCfg.WSURL,

		CacheAdapter:     cache.Adapter(serviceCfg.CacheEngine),
		CacheURL:         serviceCfg.CacheURL,
		CacheDB:          serviceCfg.CacheDB,
		CacheIsFlush:     serviceCfg.CacheIsFlush,
		CacheExpiredTime: serviceCfg.CacheExpiredTime,

		HttpRequestSecret: serviceCfg.HttpRequestSecret,

		BackfillBatchSize:     serviceCfg.BackfillBatchSize,
		BackfillWindowTimeout: serviceCfg.BackfillWindowTimeout,
		ResubscribeBackoff:    serviceCfg.ResubscribeBackoff,
		WorkerPoolSize:        serviceCfg.WorkerPoolSize,
		SeedPoolSize:          serviceCfg.SeedPoolSize,

		Logger: logger,
	})
	if err != nil {
		log.Panicf("cannot create server instance %s", err.Error())
	}
	defer srv.Close()

	go func() {
		api.Start(srv, serviceCfg)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("Shutting down API server...")
}

func setupSentry(cfg cfg.LedgerConfig) error {
	opts := sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.ServerMode,
	}
	if err := sentry.Init(opts); err != nil {
		return err
	}
	return nil
}
