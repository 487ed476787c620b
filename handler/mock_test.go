package handler

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/launchbase/ledger-backend/chain"
	"github.com/launchbase/ledger-backend/types"
)

type memStore struct {
	mu         sync.Mutex
	holders    map[string]*types.Holder
	marks      map[string]bool
	txs        []*types.TokenTransaction
	watermarks map[string]uint64
	active     []*types.Token

	upsertHolderErr error
	markErr         error
}

func newMemStore() *memStore {
	return &memStore{
		holders:    make(map[string]*types.Holder),
		marks:      make(map[string]bool),
		watermarks: make(map[string]uint64),
	}
}

func holderKey(tokenID, address string) string { return tokenID + "#" + address }
func markKey(txHash string, logIndex uint) string {
	return fmt.Sprintf("%s#%d", txHash, logIndex)
}

func (s *memStore) Holder(_ context.Context, tokenID, address string) (*types.Holder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holders[holderKey(tokenID, address)]
	if !ok {
		return nil, types.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (s *memStore) UpsertHolder(_ context.Context, holder *types.Holder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertHolderErr != nil {
		return s.upsertHolderErr
	}
	cp := *holder
	s.holders[holderKey(holder.TokenID, holder.Address)] = &cp
	return nil
}

func (s *memStore) MarkTransfer(_ context.Context, txHash string, logIndex uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	key := markKey(txHash, logIndex)
	if s.marks[key] {
		return types.ErrRecordExist
	}
	s.marks[key] = true
	return nil
}

func (s *memStore) UnmarkTransfer(_ context.Context, txHash string, logIndex uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.marks, markKey(txHash, logIndex))
	return nil
}

func (s *memStore) TransactionByHash(_ context.Context, txHash string, chainID int64) (*types.TokenTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.txs {
		if tx.TxHash == txHash && tx.Chain.ID == chainID {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, types.ErrNotFound
}

func (s *memStore) InsertTransaction(_ context.Context, tx *types.TokenTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, have := range s.txs {
		if have.TxHash == tx.TxHash && have.Chain.ID == tx.Chain.ID {
			return types.ErrRecordExist
		}
	}
	cp := *tx
	s.txs = append(s.txs, &cp)
	return nil
}

func (s *memStore) Watermark(_ context.Context, tokenID, stream string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wm, ok := s.watermarks[tokenID+"#"+stream]
	if !ok {
		return 0, types.ErrNotFound
	}
	return wm, nil
}

func (s *memStore) UpdateWatermark(_ context.Context, tokenID, stream string, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tokenID + "#" + stream
	if block > s.watermarks[key] {
		s.watermarks[key] = block
	}
	return nil
}

func (s *memStore) ActiveTokens(_ context.Context) ([]*types.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, nil
}

func (s *memStore) holder(tokenID, address string) *types.Holder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holders[holderKey(tokenID, address)]
}

func (s *memStore) holderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.holders)
}

func (s *memStore) txCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txs)
}

func (s *memStore) markCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.marks)
}

func (s *memStore) setUpsertHolderErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertHolderErr = err
}

func (s *memStore) setMarkErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markErr = err
}

type window struct{ from, to uint64 }

type fakeSub struct {
	errCh chan error
	once  sync.Once
}

func newFakeSub() *fakeSub { return &fakeSub{errCh: make(chan error, 1)} }

func (s *fakeSub) Unsubscribe()      { s.once.Do(func() { close(s.errCh) }) }
func (s *fakeSub) Err() <-chan error { return s.errCh }
func (s *fakeSub) fail(err error)    { s.errCh <- err }

type fakeNode struct {
	mu   sync.Mutex
	head uint64

	transferLogs []gethtypes.Log
	tradeLogs    []gethtypes.Log

	transferWindows []window
	tradeWindows    []window

	// filtering the window starting at failFrom returns failErr
	failFrom uint64
	failErr  error

	transferChans []chan<- gethtypes.Log
	tradeChans    []chan<- gethtypes.Log
	transferSubs  []*fakeSub
	tradeSubs     []*fakeSub
	subscribeErr  error
}

func newFakeNode(head uint64) *fakeNode { return &fakeNode{head: head} }

func (n *fakeNode) BlockNumber(context.Context) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.head, nil
}

func inWindow(logs []gethtypes.Log, from, to uint64) []gethtypes.Log {
	var out []gethtypes.Log
	for _, l := range logs {
		if l.BlockNumber >= from && l.BlockNumber <= to {
			out = append(out, l)
		}
	}
	return out
}

func (n *fakeNode) FilterTransfers(_ context.Context, _ string, from, to uint64) ([]gethtypes.Log, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failErr != nil && from == n.failFrom {
		return nil, n.failErr
	}
	n.transferWindows = append(n.transferWindows, window{from, to})
	return inWindow(n.transferLogs, from, to), nil
}

func (n *fakeNode) FilterBuys(_ context.Context, _ string, from, to uint64) ([]gethtypes.Log, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failErr != nil && from == n.failFrom {
		return nil, n.failErr
	}
	n.tradeWindows = append(n.tradeWindows, window{from, to})
	var out []gethtypes.Log
	for _, l := range inWindow(n.tradeLogs, from, to) {
		if l.Topics[0] == chain.TokenBuyTopic {
			out = append(out, l)
		}
	}
	return out, nil
}

func (n *fakeNode) FilterSells(_ context.Context, _ string, from, to uint64) ([]gethtypes.Log, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []gethtypes.Log
	for _, l := range inWindow(n.tradeLogs, from, to) {
		if l.Topics[0] == chain.TokenSellTopic {
			out = append(out, l)
		}
	}
	return out, nil
}

func (n *fakeNode) SubscribeTransfers(_ context.Context, _ string, ch chan<- gethtypes.Log) (ethereum.Subscription, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subscribeErr != nil {
		return nil, n.subscribeErr
	}
	sub := newFakeSub()
	n.transferChans = append(n.transferChans, ch)
	n.transferSubs = append(n.transferSubs, sub)
	return sub, nil
}

func (n *fakeNode) SubscribeTrades(_ context.Context, _ string, ch chan<- gethtypes.Log) (ethereum.Subscription, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subscribeErr != nil {
		return nil, n.subscribeErr
	}
	sub := newFakeSub()
	n.tradeChans = append(n.tradeChans, ch)
	n.tradeSubs = append(n.tradeSubs, sub)
	return sub, nil
}

func (n *fakeNode) transferSubCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.transferSubs)
}

func (n *fakeNode) pushTransfer(l gethtypes.Log) {
	n.mu.Lock()
	ch := n.transferChans[len(n.transferChans)-1]
	n.mu.Unlock()
	ch <- l
}

func (n *fakeNode) pushTrade(l gethtypes.Log) {
	n.mu.Lock()
	ch := n.tradeChans[len(n.tradeChans)-1]
	n.mu.Unlock()
	ch <- l
}

const (
	addrAlice = "0x1111111111111111111111111111111111111111"
	addrBob   = "0x2222222222222222222222222222222222222222"
	addrCarol = "0x3333333333333333333333333333333333333333"
)

func testToken() *types.Token {
	return &types.Token{
		ID:              "tok-moon",
		Name:            "Moonshot",
		Symbol:          "MOON",
		Decimals:        18,
		Address:         "0x4444444444444444444444444444444444444444",
		ExchangeAddress: "0x5555555555555555555555555555555555555555",
		Chain:           types.Chain{ID: 8453, Name: "base", GenesisBlock: 100},
		IsActive:        true,
	}
}

func newTestHandler(node Node, store Store, cache Dedup) *Handler {
	h, err := New(Config{
		Node:               node,
		Store:              store,
		Cache:              cache,
		BatchSize:          10000,
		ResubscribeBackoff: 10 * time.Millisecond,
		Logger:             zap.NewNop(),
	})
	if err != nil {
		panic(err)
	}
	return h
}

func units(whole int64, decimals int64) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(decimals), nil)
	return new(big.Int).Mul(big.NewInt(whole), scale)
}

func transfer(from, to string, value *big.Int, txHash string, logIndex uint, block uint64) *chain.TransferEvent {
	return &chain.TransferEvent{
		From:        from,
		To:          to,
		Value:       value,
		TxHash:      txHash,
		LogIndex:    logIndex,
		BlockNumber: block,
	}
}

func addressTopic(addr string) common.Hash {
	return common.BytesToHash(common.HexToAddress(addr).Bytes())
}

func packUint256(v *big.Int) []byte {
	b := make([]byte, 32)
	v.FillBytes(b)
	return b
}

func rawTransferLog(from, to string, value *big.Int, txHash string, index uint, block uint64) gethtypes.Log {
	return gethtypes.Log{
		Topics:      []common.Hash{chain.TransferTopic, addressTopic(from), addressTopic(to)},
		Data:        packUint256(value),
		TxHash:      common.HexToHash(txHash),
		Index:       index,
		BlockNumber: block,
	}
}

func rawTradeLog(topic common.Hash, first, second, fee *big.Int, trader, txHash string, block uint64) gethtypes.Log {
	data := packUint256(first)
	data = append(data, packUint256(second)...)
	data = append(data, packUint256(fee)...)
	data = append(data, addressTopic(trader).Bytes()...)
	return gethtypes.Log{
		Topics:      []common.Hash{topic},
		Data:        data,
		TxHash:      common.HexToHash(txHash),
		BlockNumber: block,
	}
}
