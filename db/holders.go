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

type IHolders interface {
	createHoldersCollectionIndexes() []mongo.IndexModel
	Holder(ctx context.Context, tokenID, address string) (*types.Holder, error)
	UpsertHolder(ctx context.Context, holder *types.Holder) error
	Holders(ctx context.Context, filter *types.HolderFilter) ([]*types.Holder, uint64, error)
	HolderCount(ctx context.Context, tokenID string) (uint64, error)
}

func (m *mongoDB) createHoldersCollectionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "tokenID", Value: 1}, {Key: "address", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tokenID", Value: 1}, {Key: "balanceFloat", Value: -1}}},
	}
}

func (m *mongoDB) Holder(ctx context.Context, tokenID, address string) (*types.Holder, error) {
	var holder types.Holder
	err := m.wrapper.C(cHolders).FindOne(bson.M{"tokenID": tokenID, "address": address}).Decode(&holder)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &holder, nil
}

func (m *mongoDB) UpsertHolder(ctx context.Context, holder *types.Holder) error {
	if _, err := m.wrapper.C(cHolders).Upsert(
		bson.M{"tokenID": holder.TokenID, "address": holder.Address}, holder); err != nil {
		return err
	}
	return nil
}

// Holders returns one page of holder rows ordered by balance descending.
func (m *mongoDB) Holders(ctx context.Context, filter *types.HolderFilter) ([]*types.Holder, uint64, error) {
	var (
		holders []*types.Holder
		crit    = bson.M{}
	)
	critBytes, err := bson.Marshal(filter)
	if err != nil {
		m.logger.Warn("Cannot marshal holder filter criteria", zap.Error(err))
	}
	if err := bson.Unmarshal(critBytes, &crit); err != nil {
		m.logger.Warn("Cannot unmarshal holder filter criteria", zap.Error(err))
	}
	opts := []*options.FindOptions{
		options.Find().SetSort(bson.M{"balanceFloat": -1}),
	}
	if filter.Pagination != nil {
		filter.Pagination.Sanitize()
		opts = append(opts, options.Find().SetSkip(int64(filter.Pagination.Skip)), options.Find().SetLimit(int64(filter.Pagination.Limit)))
	}
	cursor, err := m.wrapper.C(cHolders).Find(crit, opts...)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			m.logger.Warn("Error when close cursor", zap.Error(err))
		}
	}()

	if err := cursor.All(ctx, &holders); err != nil {
		return nil, 0, err
	}

	total, err := m.wrapper.C(cHolders).Count(crit)
	if err != nil {
		return nil, 0, err
	}

	return holders, uint64(total), nil
}

func (m *mongoDB) HolderCount(ctx context.Context, tokenID string) (uint64, error) {
	total, err := m.wrapper.C(cHolders).Count(bson.M{"tokenID": tokenID})
	if err != nil {
		return 0, err
	}
	return uint64(total), nil
}
