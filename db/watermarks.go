package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/launchbase/ledger-backend/types"
)

type IWatermarks interface {
	createWatermarksCollectionIndexes() []mongo.IndexModel
	Watermark(ctx context.Context, tokenID, stream string) (uint64, error)
	UpdateWatermark(ctx context.Context, tokenID, stream string, block uint64) error
}

func (m *mongoDB) createWatermarksCollectionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "tokenID", Value: 1}, {Key: "stream", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
}

func (m *mongoDB) Watermark(ctx context.Context, tokenID, stream string) (uint64, error) {
	var wm types.Watermark
	err := m.wrapper.C(cWatermarks).FindOne(bson.M{"tokenID": tokenID, "stream": stream}).Decode(&wm)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, types.ErrNotFound
		}
		return 0, err
	}
	return wm.Block, nil
}

// UpdateWatermark advances the stored watermark. $max keeps it monotonic
// even if a stale writer reports an older block.
func (m *mongoDB) UpdateWatermark(ctx context.Context, tokenID, stream string, block uint64) error {
	update := bson.M{
		"$max": bson.M{"block": block},
		"$set": bson.M{"updatedAt": time.Now().Unix()},
		"$setOnInsert": bson.M{
			"tokenID": tokenID,
			"stream":  stream,
		},
	}
	if _, err := m.wrapper.C(cWatermarks).UpsertRaw(
		bson.M{"tokenID": tokenID, "stream": stream}, update); err != nil {
		return err
	}
	return nil
}
