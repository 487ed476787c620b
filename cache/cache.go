// Package cache
package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/launchbase/ledger-backend/types"
)

type Adapter string

const (
	RedisAdapter Adapter = "redis"
)

type Config struct {
	Adapter Adapter
	URL     string
	DB      int

	IsFlush bool

	DefaultExpiredTime time.Duration

	Logger *zap.Logger
}

type Client interface {
	TokenInfo(ctx context.Context, tokenID string) (*types.Token, error)
	UpdateTokenInfo(ctx context.Context, token *types.Token) error

	HolderCount(ctx context.Context, tokenID string) (uint64, error)
	UpdateHolderCount(ctx context.Context, tokenID string, count uint64) error

	// MarkTransferApplied is the fast-path dedup check in front of the
	// durable transfer marks. Returns true when this is the first sighting
	// of (txHash, logIndex).
	MarkTransferApplied(ctx context.Context, txHash string, logIndex uint) (bool, error)
	UnmarkTransferApplied(ctx context.Context, txHash string, logIndex uint) error
}

func New(cfg Config) (Client, error) {
	switch cfg.Adapter {
	case RedisAdapter:
		return newRedis(cfg)
	}
	return nil, errors.New("invalid cache config")
}
