// Package db
package db

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	cTokens       = "Tokens"
	cHolders      = "Holders"
	cTransactions = "TokenTransactions"
	cWatermarks   = "Watermarks"
	cMarks        = "TransferMarks"
)

type mongoDB struct {
	logger  *zap.Logger
	wrapper *Mgo
	db      *mongo.Database
}

func newMongoDB(cfg Config) (*mongoDB, error) {
	ctx := context.Background()
	dbClient := &mongoDB{
		logger:  cfg.Logger,
		wrapper: &Mgo{},
	}
	mgoOptions := options.Client()
	mgoOptions.ApplyURI(cfg.URL)
	mgoOptions.SetMinPoolSize(uint64(cfg.MinConn))
	mgoOptions.SetMaxPoolSize(uint64(cfg.MaxConn))
	mgoClient, err := mongo.Connect(ctx, mgoOptions)
	if err != nil {
		return nil, err
	}

	dbClient.db = mgoClient.Database(cfg.DbName)
	dbClient.wrapper.Database(dbClient.db)

	if cfg.FlushDB {
		cfg.Logger.Info("Start flush database")
		if err := dbClient.db.Drop(ctx); err != nil {
			return nil, err
		}
	}
	if err := createIndexes(dbClient); err != nil {
		cfg.Logger.Warn("Cannot create indexes", zap.Error(err))
	}

	return dbClient, nil
}

func createIndexes(dbClient *mongoDB) error {
	type CIndex struct {
		c     string
		model []mongo.IndexModel
	}

	indexes := []CIndex{
		{c: cTokens, model: dbClient.createTokensCollectionIndexes()},
		{c: cHolders, model: dbClient.createHoldersCollectionIndexes()},
		{c: cTransactions, model: dbClient.createTransactionsCollectionIndexes()},
		{c: cWatermarks, model: dbClient.createWatermarksCollectionIndexes()},
		{c: cMarks, model: dbClient.createTransferMarksCollectionIndexes()},
	}

	for _, cIdx := range indexes {
		if err := dbClient.wrapper.C(cIdx.c).EnsureIndex(cIdx.model); err != nil {
			return err
		}
	}

	return nil
}

func (m *mongoDB) ping() error {
	return m.wrapper.Ping()
}

func (m *mongoDB) dropCollection(collectionName string) {
	if _, err := m.wrapper.C(collectionName).RemoveAll(nil); err != nil {
		return
	}
}

func (m *mongoDB) dropDatabase(ctx context.Context) error {
	return m.db.Drop(ctx)
}
