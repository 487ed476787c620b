// Package server receives client requests and routes them onto the ledgers
// and the reconciliation core.
package server

import (
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/launchbase/ledger-backend/cache"
	"github.com/launchbase/ledger-backend/chain"
	"github.com/launchbase/ledger-backend/db"
	"github.com/launchbase/ledger-backend/handler"
)

const defaultTimeout = 5 * time.Second

type Config struct {
	DBAdapter db.Adapter
	DBUrl     string
	DBName    string
	MinConn   int
	MaxConn   int
	FlushDB   bool

	RPCURL string
	WSURL  string

	CacheAdapter     cache.Adapter
	CacheURL         string
	CacheDB          int
	CacheIsFlush     bool
	CacheExpiredTime time.Duration

	HttpRequestSecret string

	BackfillBatchSize     uint64
	BackfillWindowTimeout time.Duration
	ResubscribeBackoff    time.Duration
	WorkerPoolSize        int
	SeedPoolSize          int

	Logger *zap.Logger
}

// Server instance kind of a router, which receive request from client and
// control how we react those request
type Server struct {
	logger *zap.Logger

	dbClient    db.Client
	cacheClient cache.Client
	node        *chain.Node
	pool        *chain.Pool
	handler     *handler.Handler

	httpRequestSecret string
	seedPool          *ants.Pool
}

func New(cfg Config) (*Server, error) {
	cfg.Logger.Info("Create new server instance")

	dbClient, err := db.NewClient(db.Config{
		DbAdapter: cfg.DBAdapter,
		DbName:    cfg.DBName,
		URL:       cfg.DBUrl,
		MinConn:   cfg.MinConn,
		MaxConn:   cfg.MaxConn,
		FlushDB:   cfg.FlushDB,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	cacheClient, err := cache.New(cache.Config{
		Adapter:            cfg.CacheAdapter,
		URL:                cfg.CacheURL,
		DB:                 cfg.CacheDB,
		IsFlush:            cfg.CacheIsFlush,
		DefaultExpiredTime: cfg.CacheExpiredTime,
		Logger:             cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	pool := chain.NewPool(cfg.Logger)
	node, err := chain.NewNode(pool, cfg.RPCURL, cfg.WSURL, cfg.Logger)
	if err != nil {
		return nil, err
	}

	h, err := handler.New(handler.Config{
		Node:               node,
		Store:              dbClient,
		Cache:              cacheClient,
		BatchSize:          cfg.BackfillBatchSize,
		WindowTimeout:      cfg.BackfillWindowTimeout,
		ResubscribeBackoff: cfg.ResubscribeBackoff,
		WorkerPoolSize:     cfg.WorkerPoolSize,
		Logger:             cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	if cfg.SeedPoolSize == 0 {
		cfg.SeedPoolSize = 4
	}
	seedPool, err := ants.NewPool(cfg.SeedPoolSize)
	if err != nil {
		return nil, err
	}

	return &Server{
		logger:            cfg.Logger,
		dbClient:          dbClient,
		cacheClient:       cacheClient,
		node:              node,
		pool:              pool,
		handler:           h,
		httpRequestSecret: cfg.HttpRequestSecret,
		seedPool:          seedPool,
	}, nil
}

// Handler exposes the reconciliation core for roles that drive it directly,
// the listener daemon in particular.
func (s *Server) Handler() *handler.Handler {
	return s.handler
}

func (s *Server) Close() {
	s.handler.Close()
	s.seedPool.Release()
	s.pool.Close()
}
