package handler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/launchbase/ledger-backend/chain"
	"github.com/launchbase/ledger-backend/types"
)

// BackfillHolders replays historical Transfer logs of a token from its
// stored watermark (or its chain genesis block on first run) up to the
// current head and folds them into the holder ledger. It returns the last
// block fully processed.
//
// The scan fails fast: the watermark advances after each complete window, so
// a window error stops the scan and a later call resumes from the failed
// window instead of silently dropping the tail.
func (h *Handler) BackfillHolders(ctx context.Context, token *types.Token) (uint64, error) {
	lgr := h.logger.With(zap.String("method", "BackfillHolders"), zap.String("tokenID", token.ID))
	lgr.Info("Seeding token holders", zap.String("address", token.Address))

	return h.scan(ctx, token, types.StreamHolders, func(ctx context.Context, from, to uint64) error {
		logs, err := h.node.FilterTransfers(ctx, token.Address, from, to)
		if err != nil {
			return err
		}
		for _, l := range logs {
			ev, err := chain.ParseTransfer(l)
			if err != nil {
				lgr.Warn("Skip malformed transfer log", zap.Error(err))
				continue
			}
			if err := h.ApplyTransfer(ctx, token, ev); err != nil {
				return err
			}
		}
		return nil
	})
}

// BackfillTrades replays historical TokenBuy/TokenSell logs of a token's
// exchange contract into the transaction ledger. Same windowing and
// watermark semantics as BackfillHolders.
func (h *Handler) BackfillTrades(ctx context.Context, token *types.Token) (uint64, error) {
	lgr := h.logger.With(zap.String("method", "BackfillTrades"), zap.String("tokenID", token.ID))
	lgr.Info("Seeding token transactions", zap.String("exchange", token.ExchangeAddress))

	return h.scan(ctx, token, types.StreamTransactions, func(ctx context.Context, from, to uint64) error {
		buys, err := h.node.FilterBuys(ctx, token.ExchangeAddress, from, to)
		if err != nil {
			return err
		}
		sells, err := h.node.FilterSells(ctx, token.ExchangeAddress, from, to)
		if err != nil {
			return err
		}
		for _, l := range append(buys, sells...) {
			ev, err := chain.ParseTrade(l)
			if err != nil {
				lgr.Warn("Skip malformed trade log", zap.Error(err))
				continue
			}
			if err := h.RecordTrade(ctx, token, ev); err != nil {
				return err
			}
		}
		return nil
	})
}

// scan walks fixed-size block windows in strictly increasing order from the
// stream's watermark to the chain head, invoking fn per window under a
// bounded timeout. The watermark only ever advances.
func (h *Handler) scan(ctx context.Context, token *types.Token, stream string,
	fn func(ctx context.Context, from, to uint64) error) (uint64, error) {
	start := token.Chain.GenesisBlock
	wm, err := h.store.Watermark(ctx, token.ID, stream)
	if err == nil {
		start = wm + 1
	} else if !errors.Is(err, types.ErrNotFound) {
		return 0, err
	}

	head, err := h.node.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}

	var lastDone uint64
	if start > 0 {
		lastDone = start - 1
	}
	if start > head {
		return lastDone, nil
	}

	for from := start; from <= head; from += h.batchSize {
		to := from + h.batchSize - 1
		if to > head {
			to = head
		}
		wctx, cancel := context.WithTimeout(ctx, h.windowTimeout)
		err := fn(wctx, from, to)
		cancel()
		if err != nil {
			return lastDone, fmt.Errorf("scan window [%d, %d] of token %s: %w", from, to, token.ID, err)
		}
		if err := h.store.UpdateWatermark(ctx, token.ID, stream, to); err != nil {
			return lastDone, err
		}
		lastDone = to
	}
	return lastDone, nil
}
