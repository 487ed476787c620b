package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/launchbase/ledger-backend/chain"
	"github.com/launchbase/ledger-backend/types"
	"github.com/launchbase/ledger-backend/utils"
)

// The native asset side of a trade is always scaled at 18 decimals.
const nativeDecimals = 18

// RecordTrade appends one buy/sell event to the transaction ledger.
// Redelivery of the same (txHash, chain.id) is an idempotent no-op, not an
// error. A stored row is immutable.
func (h *Handler) RecordTrade(ctx context.Context, token *types.Token, ev *chain.TradeEvent) error {
	_, err := h.store.TransactionByHash(ctx, ev.TxHash, token.Chain.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return err
	}

	tx := &types.TokenTransaction{
		ID:          primitive.NewObjectID().Hex(),
		TokenID:     token.ID,
		Address:     ev.Trader,
		Type:        ev.Type,
		TxHash:      ev.TxHash,
		BlockNumber: ev.BlockNumber,
		Chain: types.Chain{
			ID:   token.Chain.ID,
			Name: token.Chain.Name,
		},
		CreatedAt: time.Now().Unix(),
	}
	switch ev.Type {
	case types.TxTypeBuy:
		tx.EthAmount = utils.FormatUnits(ev.EthAmount, nativeDecimals)
		tx.TokenAmount = utils.FormatUnits(ev.TokenAmount, token.Decimals)
		tx.Fee = utils.FormatUnits(ev.Fee, nativeDecimals)
	case types.TxTypeSell:
		tx.EthAmount = utils.FormatUnits(ev.EthAmount, nativeDecimals)
		tx.TokenAmount = utils.FormatUnits(ev.TokenAmount, token.Decimals)
		// A sell pays its fee in the asset sold.
		tx.Fee = utils.FormatUnits(ev.Fee, token.Decimals)
	default:
		return fmt.Errorf("unknown trade type %q", ev.Type)
	}

	if err := h.store.InsertTransaction(ctx, tx); err != nil {
		if errors.Is(err, types.ErrRecordExist) {
			// A concurrent writer won the race; the row exists.
			return nil
		}
		return err
	}
	return nil
}
