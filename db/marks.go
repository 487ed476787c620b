package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/launchbase/ledger-backend/types"
)

// ITransferMarks is the durable dedup ledger for applied Transfer events.
type ITransferMarks interface {
	createTransferMarksCollectionIndexes() []mongo.IndexModel
	MarkTransfer(ctx context.Context, txHash string, logIndex uint) error
	UnmarkTransfer(ctx context.Context, txHash string, logIndex uint) error
}

func (m *mongoDB) createTransferMarksCollectionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "txHash", Value: 1}, {Key: "logIndex", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
}

// MarkTransfer claims the (txHash, logIndex) dedup key. ErrRecordExist means
// the event was already applied and the caller must treat it as a no-op.
func (m *mongoDB) MarkTransfer(ctx context.Context, txHash string, logIndex uint) error {
	mark := &types.TransferMark{
		TxHash:    txHash,
		LogIndex:  logIndex,
		CreatedAt: time.Now().Unix(),
	}
	if _, err := m.wrapper.C(cMarks).Insert(mark); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return types.ErrRecordExist
		}
		return err
	}
	return nil
}

// UnmarkTransfer releases a claim after a failed apply so a later replay can
// retry the event.
func (m *mongoDB) UnmarkTransfer(ctx context.Context, txHash string, logIndex uint) error {
	if _, err := m.wrapper.C(cMarks).Remove(bson.M{"txHash": txHash, "logIndex": logIndex}); err != nil {
		return err
	}
	return nil
}
