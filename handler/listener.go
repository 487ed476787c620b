package handler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/launchbase/ledger-backend/chain"
	"github.com/launchbase/ledger-backend/types"
)

const logChanSize = 256

type listener struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// registry maps tokenID to its live subscription handle.
type registry struct {
	mu        sync.Mutex
	listeners map[string]*listener
}

func newRegistry() *registry {
	return &registry{listeners: make(map[string]*listener)}
}

func (r *registry) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	return ids
}

type subscribeFn func(ctx context.Context, ch chan<- gethtypes.Log) (ethereum.Subscription, error)

// StartListening establishes the live subscriptions of one token: Transfer
// on the token contract, TokenBuy/TokenSell on its exchange contract.
// Starting an already-listening token is a no-op. A subscription failure at
// startup aborts this token's listener only.
func (h *Handler) StartListening(token *types.Token) error {
	h.reg.mu.Lock()
	if _, ok := h.reg.listeners[token.ID]; ok {
		h.reg.mu.Unlock()
		return nil
	}
	h.reg.mu.Unlock()

	lgr := h.logger.With(zap.String("method", "StartListening"), zap.String("tokenID", token.ID))
	lgr.Info("Listening for token events",
		zap.String("token", token.Address), zap.String("exchange", token.ExchangeAddress))

	ctx, cancel := context.WithCancel(context.Background())

	subscribeTransfers := func(ctx context.Context, ch chan<- gethtypes.Log) (ethereum.Subscription, error) {
		return h.node.SubscribeTransfers(ctx, token.Address, ch)
	}
	subscribeTrades := func(ctx context.Context, ch chan<- gethtypes.Log) (ethereum.Subscription, error) {
		return h.node.SubscribeTrades(ctx, token.ExchangeAddress, ch)
	}

	transferCh := make(chan gethtypes.Log, logChanSize)
	transferSub, err := subscribeTransfers(ctx, transferCh)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe transfers of token %s: %w", token.ID, err)
	}
	tradeCh := make(chan gethtypes.Log, logChanSize)
	tradeSub, err := subscribeTrades(ctx, tradeCh)
	if err != nil {
		transferSub.Unsubscribe()
		cancel()
		return fmt.Errorf("subscribe trades of token %s: %w", token.ID, err)
	}

	h.reg.mu.Lock()
	if _, ok := h.reg.listeners[token.ID]; ok {
		// Lost a start race; the earlier registration wins.
		h.reg.mu.Unlock()
		transferSub.Unsubscribe()
		tradeSub.Unsubscribe()
		cancel()
		return nil
	}
	l := &listener{cancel: cancel, done: make(chan struct{})}
	h.reg.listeners[token.ID] = l
	h.reg.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h.consume(ctx, token, transferSub, transferCh, subscribeTransfers, h.handleTransferLog)
	}()
	go func() {
		defer wg.Done()
		h.consume(ctx, token, tradeSub, tradeCh, subscribeTrades, h.handleTradeLog)
	}()
	go func() {
		wg.Wait()
		close(l.done)
	}()
	return nil
}

// StopListening tears down a token's subscriptions and waits for its
// consume loops to exit.
func (h *Handler) StopListening(tokenID string) error {
	h.reg.mu.Lock()
	l, ok := h.reg.listeners[tokenID]
	if !ok {
		h.reg.mu.Unlock()
		return types.ErrListenerNotFound
	}
	delete(h.reg.listeners, tokenID)
	h.reg.mu.Unlock()

	l.cancel()
	<-l.done
	h.logger.Info("Stopped token listener", zap.String("tokenID", tokenID))
	return nil
}

// ListenerCount reports how many tokens have a live listener.
func (h *Handler) ListenerCount() int {
	h.reg.mu.Lock()
	defer h.reg.mu.Unlock()
	return len(h.reg.listeners)
}

// IsListening reports whether a live listener is registered for the token.
func (h *Handler) IsListening(tokenID string) bool {
	h.reg.mu.Lock()
	defer h.reg.mu.Unlock()
	_, ok := h.reg.listeners[tokenID]
	return ok
}

// Bootstrap starts a listener for every token currently flagged active.
// A failure aborts that token only.
func (h *Handler) Bootstrap(ctx context.Context) error {
	tokens, err := h.store.ActiveTokens(ctx)
	if err != nil {
		return err
	}
	for _, token := range tokens {
		if err := h.StartListening(token); err != nil {
			h.logger.Error("Cannot start token listener",
				zap.String("tokenID", token.ID), zap.Error(err))
		}
	}
	return nil
}

// consume drains one subscription, dispatching each delivered log as an
// independent unit of work on the dispatch pool. A dropped subscription is
// re-established after a backoff rather than dying silently.
func (h *Handler) consume(ctx context.Context, token *types.Token, sub ethereum.Subscription,
	ch chan gethtypes.Log, subscribe subscribeFn, handle func(context.Context, *types.Token, gethtypes.Log)) {
	lgr := h.logger.With(zap.String("method", "consume"), zap.String("tokenID", token.ID))
	for {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
			return
		case err := <-sub.Err():
			if err != nil {
				lgr.Warn("Subscription dropped", zap.Error(err))
			}
			sub.Unsubscribe()
			next, rerr := h.resubscribe(ctx, ch, subscribe)
			if rerr != nil {
				return
			}
			lgr.Info("Resubscribed")
			sub = next
		case l := <-ch:
			logCopy := l
			if err := h.pool.Submit(func() { handle(context.Background(), token, logCopy) }); err != nil {
				// Pool unavailable; process inline rather than dropping.
				handle(ctx, token, logCopy)
			}
		}
	}
}

func (h *Handler) resubscribe(ctx context.Context, ch chan gethtypes.Log, subscribe subscribeFn) (ethereum.Subscription, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(h.backoff):
		}
		sub, err := subscribe(ctx, ch)
		if err == nil {
			return sub, nil
		}
		h.logger.Warn("Resubscribe failed", zap.Error(err))
	}
}

func (h *Handler) handleTransferLog(ctx context.Context, token *types.Token, l gethtypes.Log) {
	ev, err := chain.ParseTransfer(l)
	if err != nil {
		h.logger.Warn("Skip malformed transfer log", zap.Error(err))
		return
	}
	// Store unavailability is retryable infrastructure failure: log and keep
	// the subscription alive for subsequent events.
	if err := h.ApplyTransfer(ctx, token, ev); err != nil {
		h.logger.Error("Cannot apply transfer", zap.String("tokenID", token.ID),
			zap.String("txHash", ev.TxHash), zap.Error(err))
	}
}

func (h *Handler) handleTradeLog(ctx context.Context, token *types.Token, l gethtypes.Log) {
	ev, err := chain.ParseTrade(l)
	if err != nil {
		h.logger.Warn("Skip malformed trade log", zap.Error(err))
		return
	}
	if err := h.RecordTrade(ctx, token, ev); err != nil {
		h.logger.Error("Cannot record trade", zap.String("tokenID", token.ID),
			zap.String("txHash", ev.TxHash), zap.Error(err))
	}
}
