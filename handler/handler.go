// Package handler holds the event-to-state reconciliation core: it folds
// transfer and trade events, live-streamed or backfilled, into the holder
// and transaction ledgers.
package handler

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/launchbase/ledger-backend/types"
)

// Node is the chain gateway surface the handler consumes.
type Node interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterTransfers(ctx context.Context, address string, from, to uint64) ([]gethtypes.Log, error)
	FilterBuys(ctx context.Context, address string, from, to uint64) ([]gethtypes.Log, error)
	FilterSells(ctx context.Context, address string, from, to uint64) ([]gethtypes.Log, error)
	SubscribeTransfers(ctx context.Context, address string, ch chan<- gethtypes.Log) (ethereum.Subscription, error)
	SubscribeTrades(ctx context.Context, address string, ch chan<- gethtypes.Log) (ethereum.Subscription, error)
}

// Store is the keyed persistence surface the ledgers live in. db.Client
// satisfies it.
type Store interface {
	Holder(ctx context.Context, tokenID, address string) (*types.Holder, error)
	UpsertHolder(ctx context.Context, holder *types.Holder) error

	MarkTransfer(ctx context.Context, txHash string, logIndex uint) error
	UnmarkTransfer(ctx context.Context, txHash string, logIndex uint) error

	TransactionByHash(ctx context.Context, txHash string, chainID int64) (*types.TokenTransaction, error)
	InsertTransaction(ctx context.Context, tx *types.TokenTransaction) error

	Watermark(ctx context.Context, tokenID, stream string) (uint64, error)
	UpdateWatermark(ctx context.Context, tokenID, stream string, block uint64) error

	ActiveTokens(ctx context.Context) ([]*types.Token, error)
}

// Dedup is the optional fast-path dedup cache in front of the durable
// transfer marks. cache.Client satisfies it.
type Dedup interface {
	MarkTransferApplied(ctx context.Context, txHash string, logIndex uint) (bool, error)
	UnmarkTransferApplied(ctx context.Context, txHash string, logIndex uint) error
}

type Config struct {
	Node  Node
	Store Store
	Cache Dedup

	BatchSize          uint64
	WindowTimeout      time.Duration
	ResubscribeBackoff time.Duration
	WorkerPoolSize     int

	Logger *zap.Logger
}

type Handler struct {
	node  Node
	store Store
	cache Dedup

	batchSize     uint64
	windowTimeout time.Duration
	backoff       time.Duration

	pool  *ants.Pool
	locks *keyedMutex

	reg *registry

	logger *zap.Logger
}

func New(cfg Config) (*Handler, error) {
	if cfg.Node == nil {
		return nil, errors.New("missing chain node")
	}
	if cfg.Store == nil {
		return nil, errors.New("missing store")
	}
	if cfg.Logger == nil {
		return nil, errors.New("missing logger")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 10000
	}
	if cfg.WindowTimeout == 0 {
		cfg.WindowTimeout = 30 * time.Second
	}
	if cfg.ResubscribeBackoff == 0 {
		cfg.ResubscribeBackoff = 5 * time.Second
	}
	if cfg.WorkerPoolSize == 0 {
		cfg.WorkerPoolSize = 32
	}
	pool, err := ants.NewPool(cfg.WorkerPoolSize)
	if err != nil {
		return nil, err
	}
	h := &Handler{
		node:          cfg.Node,
		store:         cfg.Store,
		cache:         cfg.Cache,
		batchSize:     cfg.BatchSize,
		windowTimeout: cfg.WindowTimeout,
		backoff:       cfg.ResubscribeBackoff,
		pool:          pool,
		locks:         newKeyedMutex(),
		reg:           newRegistry(),
		logger:        cfg.Logger.With(zap.String("Handler", "Ledger")),
	}
	return h, nil
}

// Close stops every live listener and releases the dispatch pool.
func (h *Handler) Close() {
	for _, id := range h.reg.ids() {
		if err := h.StopListening(id); err != nil {
			h.logger.Warn("Cannot stop listener", zap.String("tokenID", id), zap.Error(err))
		}
	}
	h.pool.Release()
}
