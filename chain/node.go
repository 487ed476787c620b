// Package chain
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Node is a read-only contract view over the pooled connections: ranged log
// filters go through the HTTP client, push subscriptions through the
// websocket client. It performs no retry; RPC errors propagate to the caller.
type Node struct {
	client   *ethclient.Client
	wsClient *ethclient.Client

	logger *zap.Logger
}

func NewNode(pool *Pool, rpcURL, wsURL string, logger *zap.Logger) (*Node, error) {
	client, err := pool.Client(rpcURL)
	if err != nil {
		return nil, err
	}
	wsClient, err := pool.Client(wsURL)
	if err != nil {
		return nil, err
	}
	return &Node{
		client:   client,
		wsClient: wsClient,
		logger:   logger.With(zap.String("component", "chain.Node")),
	}, nil
}

func (n *Node) BlockNumber(ctx context.Context) (uint64, error) {
	return n.client.BlockNumber(ctx)
}

func (n *Node) FilterTransfers(ctx context.Context, address string, from, to uint64) ([]gethtypes.Log, error) {
	return n.client.FilterLogs(ctx, rangedQuery(address, TransferTopic, from, to))
}

func (n *Node) FilterBuys(ctx context.Context, address string, from, to uint64) ([]gethtypes.Log, error) {
	return n.client.FilterLogs(ctx, rangedQuery(address, TokenBuyTopic, from, to))
}

func (n *Node) FilterSells(ctx context.Context, address string, from, to uint64) ([]gethtypes.Log, error) {
	return n.client.FilterLogs(ctx, rangedQuery(address, TokenSellTopic, from, to))
}

func (n *Node) SubscribeTransfers(ctx context.Context, address string, ch chan<- gethtypes.Log) (ethereum.Subscription, error) {
	q := ethereum.FilterQuery{
		Addresses: []common.Address{common.HexToAddress(address)},
		Topics:    [][]common.Hash{{TransferTopic}},
	}
	return n.wsClient.SubscribeFilterLogs(ctx, q, ch)
}

// SubscribeTrades delivers both TokenBuy and TokenSell logs of the exchange
// contract on one channel.
func (n *Node) SubscribeTrades(ctx context.Context, address string, ch chan<- gethtypes.Log) (ethereum.Subscription, error) {
	q := ethereum.FilterQuery{
		Addresses: []common.Address{common.HexToAddress(address)},
		Topics:    [][]common.Hash{{TokenBuyTopic, TokenSellTopic}},
	}
	return n.wsClient.SubscribeFilterLogs(ctx, q, ch)
}

func rangedQuery(address string, topic common.Hash, from, to uint64) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{common.HexToAddress(address)},
		Topics:    [][]common.Hash{{topic}},
	}
}
