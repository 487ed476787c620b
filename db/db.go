// Package db
package db

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

type Adapter string

const (
	MGO Adapter = "mgo"
)

type Config struct {
	DbAdapter Adapter
	DbName    string
	URL       string
	MinConn   int
	MaxConn   int
	FlushDB   bool

	Logger *zap.Logger
}

type Client interface {
	ping() error
	dropCollection(collectionName string)
	dropDatabase(ctx context.Context) error

	ITokens
	IHolders
	ITransactions
	IWatermarks
	ITransferMarks
}

func NewClient(cfg Config) (Client, error) {
	switch cfg.DbAdapter {
	case MGO:
		return newMongoDB(cfg)
	default:
		return nil, errors.New("invalid db config")
	}
}
