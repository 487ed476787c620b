package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/launchbase/ledger-backend/types"
)

type ITransactions interface {
	createTransactionsCollectionIndexes() []mongo.IndexModel
	InsertTransaction(ctx context.Context, tx *types.TokenTransaction) error
	TransactionByHash(ctx context.Context, txHash string, chainID int64) (*types.TokenTransaction, error)
	Transactions(ctx context.Context, filter *types.TxsFilter) ([]*types.TokenTransaction, uint64, error)
	TransactionsSince(ctx context.Context, tokenID string, since int64) ([]*types.TokenTransaction, error)
}

func (m *mongoDB) createTransactionsCollectionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "txHash", Value: 1}, {Key: "chain.id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tokenID", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
}

// InsertTransaction writes one immutable trade row. A duplicate
// (txHash, chain.id) violates the unique index and maps to ErrRecordExist so
// racing writers of the same event converge on one row.
func (m *mongoDB) InsertTransaction(ctx context.Context, tx *types.TokenTransaction) error {
	if _, err := m.wrapper.C(cTransactions).Insert(tx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return types.ErrRecordExist
		}
		return err
	}
	return nil
}

func (m *mongoDB) TransactionByHash(ctx context.Context, txHash string, chainID int64) (*types.TokenTransaction, error) {
	var tx types.TokenTransaction
	err := m.wrapper.C(cTransactions).FindOne(bson.M{"txHash": txHash, "chain.id": chainID}).Decode(&tx)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// Transactions returns one page of trade rows ordered by creation time
// descending.
func (m *mongoDB) Transactions(ctx context.Context, filter *types.TxsFilter) ([]*types.TokenTransaction, uint64, error) {
	var (
		txs  []*types.TokenTransaction
		crit = bson.M{}
	)
	critBytes, err := bson.Marshal(filter)
	if err != nil {
		m.logger.Warn("Cannot marshal txs filter criteria", zap.Error(err))
	}
	if err := bson.Unmarshal(critBytes, &crit); err != nil {
		m.logger.Warn("Cannot unmarshal txs filter criteria", zap.Error(err))
	}
	opts := []*options.FindOptions{
		options.Find().SetSort(bson.M{"createdAt": -1}),
	}
	if filter.Pagination != nil {
		filter.Pagination.Sanitize()
		opts = append(opts, options.Find().SetSkip(int64(filter.Pagination.Skip)), options.Find().SetLimit(int64(filter.Pagination.Limit)))
	}
	cursor, err := m.wrapper.C(cTransactions).Find(crit, opts...)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			m.logger.Warn("Error when close cursor", zap.Error(err))
		}
	}()

	if err := cursor.All(ctx, &txs); err != nil {
		return nil, 0, err
	}

	total, err := m.wrapper.C(cTransactions).Count(crit)
	if err != nil {
		return nil, 0, err
	}

	return txs, uint64(total), nil
}

// TransactionsSince streams every trade row of a token created at or after
// the given unix timestamp, oldest first. Used for volume aggregation.
func (m *mongoDB) TransactionsSince(ctx context.Context, tokenID string, since int64) ([]*types.TokenTransaction, error) {
	var txs []*types.TokenTransaction
	crit := bson.M{"tokenID": tokenID, "createdAt": bson.M{"$gte": since}}
	cursor, err := m.wrapper.C(cTransactions).Find(crit, options.Find().SetSort(bson.M{"createdAt": 1}))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			m.logger.Warn("Error when close cursor", zap.Error(err))
		}
	}()
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}
