// Package chain
package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/launchbase/ledger-backend/types"
)

// ZeroAddress is the designated mint/burn counterparty. It never gets a
// holder row.
var ZeroAddress = common.Address{}.Hex()

// TransferEvent is a decoded ERC20 Transfer log in the token's smallest
// integer unit. (TxHash, LogIndex) is the dedup key for idempotent replay.
type TransferEvent struct {
	From        string
	To          string
	Value       *big.Int
	TxHash      string
	LogIndex    uint
	BlockNumber uint64
}

// TradeEvent is a decoded TokenBuy or TokenSell log. Amounts are integers:
// the native side at 18 decimals, the token side at the token's decimals.
type TradeEvent struct {
	Type        string
	EthAmount   *big.Int
	TokenAmount *big.Int
	Fee         *big.Int
	Trader      string
	TxHash      string
	BlockNumber uint64
}

// ParseTransfer decodes a raw Transfer log. A malformed log yields an error
// and the caller skips that single event.
func ParseTransfer(l gethtypes.Log) (*TransferEvent, error) {
	if len(l.Topics) < 3 || l.Topics[0] != TransferTopic {
		return nil, fmt.Errorf("log %s:%d is not a Transfer event", l.TxHash.Hex(), l.Index)
	}
	vals, err := tokenEvents.Unpack("Transfer", l.Data)
	if err != nil {
		return nil, fmt.Errorf("cannot unpack Transfer log %s:%d: %w", l.TxHash.Hex(), l.Index, err)
	}
	value, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("transfer value of log %s:%d is not uint256", l.TxHash.Hex(), l.Index)
	}
	return &TransferEvent{
		From:        common.BytesToAddress(l.Topics[1].Bytes()).Hex(),
		To:          common.BytesToAddress(l.Topics[2].Bytes()).Hex(),
		Value:       value,
		TxHash:      l.TxHash.Hex(),
		LogIndex:    l.Index,
		BlockNumber: l.BlockNumber,
	}, nil
}

// ParseTrade decodes a raw TokenBuy or TokenSell log, switching on topic0.
func ParseTrade(l gethtypes.Log) (*TradeEvent, error) {
	if len(l.Topics) == 0 {
		return nil, fmt.Errorf("log %s:%d has no topics", l.TxHash.Hex(), l.Index)
	}
	switch l.Topics[0] {
	case TokenBuyTopic:
		vals, err := exchangeEvents.Unpack("TokenBuy", l.Data)
		if err != nil {
			return nil, fmt.Errorf("cannot unpack TokenBuy log %s:%d: %w", l.TxHash.Hex(), l.Index, err)
		}
		ethIn, tokenOut, fee, buyer, err := tradeArgs(vals)
		if err != nil {
			return nil, fmt.Errorf("bad TokenBuy log %s:%d: %w", l.TxHash.Hex(), l.Index, err)
		}
		return &TradeEvent{
			Type:        types.TxTypeBuy,
			EthAmount:   ethIn,
			TokenAmount: tokenOut,
			Fee:         fee,
			Trader:      buyer,
			TxHash:      l.TxHash.Hex(),
			BlockNumber: l.BlockNumber,
		}, nil
	case TokenSellTopic:
		vals, err := exchangeEvents.Unpack("TokenSell", l.Data)
		if err != nil {
			return nil, fmt.Errorf("cannot unpack TokenSell log %s:%d: %w", l.TxHash.Hex(), l.Index, err)
		}
		tokenIn, ethOut, fee, seller, err := tradeArgs(vals)
		if err != nil {
			return nil, fmt.Errorf("bad TokenSell log %s:%d: %w", l.TxHash.Hex(), l.Index, err)
		}
		return &TradeEvent{
			Type:        types.TxTypeSell,
			EthAmount:   ethOut,
			TokenAmount: tokenIn,
			Fee:         fee,
			Trader:      seller,
			TxHash:      l.TxHash.Hex(),
			BlockNumber: l.BlockNumber,
		}, nil
	default:
		return nil, fmt.Errorf("log %s:%d is not a trade event", l.TxHash.Hex(), l.Index)
	}
}

func tradeArgs(vals []interface{}) (*big.Int, *big.Int, *big.Int, string, error) {
	if len(vals) != 4 {
		return nil, nil, nil, "", fmt.Errorf("expect 4 arguments, got %d", len(vals))
	}
	first, ok := vals[0].(*big.Int)
	if !ok {
		return nil, nil, nil, "", fmt.Errorf("argument 0 is not uint256")
	}
	second, ok := vals[1].(*big.Int)
	if !ok {
		return nil, nil, nil, "", fmt.Errorf("argument 1 is not uint256")
	}
	fee, ok := vals[2].(*big.Int)
	if !ok {
		return nil, nil, nil, "", fmt.Errorf("argument 2 is not uint256")
	}
	trader, ok := vals[3].(common.Address)
	if !ok {
		return nil, nil, nil, "", fmt.Errorf("argument 3 is not an address")
	}
	return first, second, fee, trader.Hex(), nil
}
