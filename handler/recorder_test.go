package handler

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchbase/ledger-backend/chain"
	"github.com/launchbase/ledger-backend/types"
)

func TestRecordTrade_Buy(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := newTestHandler(newFakeNode(0), store, nil)
	defer h.Close()

	// Token side carries the token's own scale, not the native one.
	token := testToken()
	token.Decimals = 6

	ev := &chain.TradeEvent{
		Type:        types.TxTypeBuy,
		EthAmount:   units(1, 18),
		TokenAmount: units(500, 6),
		Fee:         new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil), // 0.01 native
		Trader:      addrAlice,
		TxHash:      "0xbeef",
		BlockNumber: 42,
	}
	require.NoError(t, h.RecordTrade(ctx, token, ev))

	require.Equal(t, 1, store.txCount())
	tx, err := store.TransactionByHash(ctx, "0xbeef", token.Chain.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, token.ID, tx.TokenID)
	assert.Equal(t, addrAlice, tx.Address)
	assert.Equal(t, types.TxTypeBuy, tx.Type)
	assert.Equal(t, "1.0", tx.EthAmount)
	assert.Equal(t, "500.0", tx.TokenAmount)
	assert.Equal(t, "0.01", tx.Fee)
	assert.Equal(t, uint64(42), tx.BlockNumber)
	assert.Equal(t, token.Chain.ID, tx.Chain.ID)
	assert.Equal(t, token.Chain.Name, tx.Chain.Name)
	assert.NotZero(t, tx.CreatedAt)
}

func TestRecordTrade_SellFeeInTokenUnits(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := newTestHandler(newFakeNode(0), store, nil)
	defer h.Close()

	token := testToken()
	token.Decimals = 6

	ev := &chain.TradeEvent{
		Type:        types.TxTypeSell,
		EthAmount:   units(2, 18),
		TokenAmount: units(1000, 6),
		Fee:         units(5, 6),
		Trader:      addrBob,
		TxHash:      "0xdead",
		BlockNumber: 43,
	}
	require.NoError(t, h.RecordTrade(ctx, token, ev))

	tx, err := store.TransactionByHash(ctx, "0xdead", token.Chain.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TxTypeSell, tx.Type)
	assert.Equal(t, "2.0", tx.EthAmount)
	assert.Equal(t, "1000.0", tx.TokenAmount)
	assert.Equal(t, "5.0", tx.Fee)
}

func TestRecordTrade_ReplayKeepsFirstRow(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := newTestHandler(newFakeNode(0), store, nil)
	defer h.Close()
	token := testToken()

	ev := &chain.TradeEvent{
		Type:        types.TxTypeBuy,
		EthAmount:   units(1, 18),
		TokenAmount: units(10, token.Decimals),
		Fee:         units(0, 18),
		Trader:      addrAlice,
		TxHash:      "0xbeef",
		BlockNumber: 42,
	}
	require.NoError(t, h.RecordTrade(ctx, token, ev))
	first, err := store.TransactionByHash(ctx, "0xbeef", token.Chain.ID)
	require.NoError(t, err)

	// Redelivery changes nothing, even with different payload.
	ev.EthAmount = units(9, 18)
	require.NoError(t, h.RecordTrade(ctx, token, ev))
	assert.Equal(t, 1, store.txCount())

	again, err := store.TransactionByHash(ctx, "0xbeef", token.Chain.ID)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestRecordTrade_UnknownType(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := newTestHandler(newFakeNode(0), store, nil)
	defer h.Close()

	ev := &chain.TradeEvent{
		Type:        "swap",
		EthAmount:   units(1, 18),
		TokenAmount: units(1, 18),
		Fee:         units(0, 18),
		Trader:      addrAlice,
		TxHash:      "0xffff",
	}
	require.Error(t, h.RecordTrade(ctx, testToken(), ev))
	assert.Equal(t, 0, store.txCount())
}
