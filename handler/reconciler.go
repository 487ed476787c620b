package handler

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/launchbase/ledger-backend/chain"
	"github.com/launchbase/ledger-backend/types"
	"github.com/launchbase/ledger-backend/utils"
)

// ApplyTransfer folds one Transfer event into the holder ledger. Applying
// the same (txHash, logIndex) more than once is a no-op: the event claims a
// dedup mark before any balance is touched. Balance math runs on integers
// scaled by 10^decimals end to end.
func (h *Handler) ApplyTransfer(ctx context.Context, token *types.Token, ev *chain.TransferEvent) error {
	lgr := h.logger.With(zap.String("method", "ApplyTransfer"),
		zap.String("txHash", ev.TxHash), zap.Uint("logIndex", ev.LogIndex))

	if h.cache != nil {
		first, err := h.cache.MarkTransferApplied(ctx, ev.TxHash, ev.LogIndex)
		if err == nil && !first {
			return nil
		}
		// Cache miss or cache down: the durable mark below decides.
	}
	if err := h.store.MarkTransfer(ctx, ev.TxHash, ev.LogIndex); err != nil {
		if errors.Is(err, types.ErrRecordExist) {
			return nil
		}
		// The cached claim must not outlive a failed durable claim, or the
		// replay would short-circuit on it and drop the event.
		if h.cache != nil {
			if cerr := h.cache.UnmarkTransferApplied(ctx, ev.TxHash, ev.LogIndex); cerr != nil {
				lgr.Warn("Cannot release cached transfer mark", zap.Error(cerr))
			}
		}
		return err
	}

	var creditErr, debitErr error
	applied := 0
	if ev.To != chain.ZeroAddress {
		if creditErr = h.creditHolder(ctx, token, ev.To, ev.Value, ev.BlockNumber); creditErr == nil {
			applied++
		}
	}
	if ev.From != chain.ZeroAddress {
		if debitErr = h.debitHolder(ctx, token, ev.From, ev.Value, ev.BlockNumber); debitErr == nil {
			applied++
		}
	}

	if creditErr == nil && debitErr == nil {
		return nil
	}
	if applied == 0 {
		// Nothing landed: release the claim so a replay can retry.
		if err := h.store.UnmarkTransfer(ctx, ev.TxHash, ev.LogIndex); err != nil {
			lgr.Error("Cannot release transfer mark", zap.Error(err))
		}
		if h.cache != nil {
			if err := h.cache.UnmarkTransferApplied(ctx, ev.TxHash, ev.LogIndex); err != nil {
				lgr.Warn("Cannot release cached transfer mark", zap.Error(err))
			}
		}
	} else {
		// One side landed; keep the mark so the landed side is not doubled.
		lgr.Error("Transfer applied partially",
			zap.NamedError("creditErr", creditErr), zap.NamedError("debitErr", debitErr))
	}
	if creditErr != nil {
		return creditErr
	}
	return debitErr
}

func (h *Handler) creditHolder(ctx context.Context, token *types.Token, address string, value *big.Int, block uint64) error {
	unlock := h.locks.lock(token.ID + "#" + address)
	defer unlock()

	now := time.Now().Unix()
	holder, err := h.store.Holder(ctx, token.ID, address)
	if errors.Is(err, types.ErrNotFound) {
		balance := utils.FormatUnits(value, token.Decimals)
		return h.store.UpsertHolder(ctx, &types.Holder{
			TokenID:      token.ID,
			Address:      address,
			Balance:      balance,
			BalanceFloat: utils.BalanceToFloat(balance),
			LastBlock:    block,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	if err != nil {
		return err
	}

	current, err := utils.ParseUnits(holder.Balance, token.Decimals)
	if err != nil {
		return fmt.Errorf("stored balance of holder %s is corrupt: %w", address, err)
	}
	balance := utils.FormatUnits(new(big.Int).Add(current, value), token.Decimals)
	holder.Balance = balance
	holder.BalanceFloat = utils.BalanceToFloat(balance)
	holder.LastBlock = block
	holder.UpdatedAt = now
	return h.store.UpsertHolder(ctx, holder)
}

func (h *Handler) debitHolder(ctx context.Context, token *types.Token, address string, value *big.Int, block uint64) error {
	unlock := h.locks.lock(token.ID + "#" + address)
	defer unlock()

	holder, err := h.store.Holder(ctx, token.ID, address)
	if errors.Is(err, types.ErrNotFound) {
		// A holder row starts on its first credit. A debit with no row means
		// the credit is still behind us in the scan; skip.
		h.logger.Debug("Debit for unknown holder skipped",
			zap.String("tokenID", token.ID), zap.String("address", address))
		return nil
	}
	if err != nil {
		return err
	}

	current, err := utils.ParseUnits(holder.Balance, token.Decimals)
	if err != nil {
		return fmt.Errorf("stored balance of holder %s is corrupt: %w", address, err)
	}
	updated := new(big.Int).Sub(current, value)
	if updated.Sign() < 0 {
		// Out-of-order delivery across backfill windows can drive a balance
		// transiently negative; the later credit corrects it.
		h.logger.Warn("Holder balance went negative",
			zap.String("tokenID", token.ID), zap.String("address", address),
			zap.String("balance", updated.String()))
	}
	balance := utils.FormatUnits(updated, token.Decimals)
	holder.Balance = balance
	holder.BalanceFloat = utils.BalanceToFloat(balance)
	holder.LastBlock = block
	holder.UpdatedAt = time.Now().Unix()
	return h.store.UpsertHolder(ctx, holder)
}
