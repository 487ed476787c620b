// Package cache
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/launchbase/ledger-backend/types"
)

const (
	KeyTokenInfo    = "#token#info#%s"
	KeyHolderCount  = "#token#%s#holders#total"
	KeyTransferMark = "#transfer#mark#%s#%d"

	transferMarkExpiredTime = 24 * time.Hour
)

type Redis struct {
	cfg    Config
	client *redis.Client

	logger *zap.Logger
}

func newRedis(cfg Config) (Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.URL,
		DB:   cfg.DB,
	})
	if redisClient == nil {
		return nil, fmt.Errorf("cannot create redis client")
	}
	ctx := context.Background()
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		return nil, err
	}
	if cfg.IsFlush {
		if _, err := redisClient.FlushDB(ctx).Result(); err != nil {
			return nil, err
		}
	}
	client := &Redis{
		cfg:    cfg,
		client: redisClient,
		logger: cfg.Logger,
	}
	return client, nil
}

func (c *Redis) UpdateTokenInfo(ctx context.Context, token *types.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	key := fmt.Sprintf(KeyTokenInfo, token.ID)
	if _, err := c.client.Set(ctx, key, string(data), c.cfg.DefaultExpiredTime).Result(); err != nil {
		return err
	}
	return nil
}

func (c *Redis) TokenInfo(ctx context.Context, tokenID string) (*types.Token, error) {
	result, err := c.client.Get(ctx, fmt.Sprintf(KeyTokenInfo, tokenID)).Result()
	if err != nil {
		return nil, err
	}
	var token *types.Token
	if err := json.Unmarshal([]byte(result), &token); err != nil {
		return nil, err
	}
	return token, nil
}

func (c *Redis) UpdateHolderCount(ctx context.Context, tokenID string, count uint64) error {
	key := fmt.Sprintf(KeyHolderCount, tokenID)
	if err := c.client.Set(ctx, key, count, c.cfg.DefaultExpiredTime).Err(); err != nil {
		return err
	}
	return nil
}

func (c *Redis) HolderCount(ctx context.Context, tokenID string) (uint64, error) {
	result, err := c.client.Get(ctx, fmt.Sprintf(KeyHolderCount, tokenID)).Uint64()
	if err != nil {
		return 0, err
	}
	return result, nil
}

func (c *Redis) MarkTransferApplied(ctx context.Context, txHash string, logIndex uint) (bool, error) {
	key := fmt.Sprintf(KeyTransferMark, txHash, logIndex)
	return c.client.SetNX(ctx, key, 1, transferMarkExpiredTime).Result()
}

func (c *Redis) UnmarkTransferApplied(ctx context.Context, txHash string, logIndex uint) error {
	key := fmt.Sprintf(KeyTransferMark, txHash, logIndex)
	return c.client.Del(ctx, key).Err()
}
