package handler

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchbase/ledger-backend/chain"
	"github.com/launchbase/ledger-backend/utils"
)

func TestApplyTransfer_MintAndMove(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := newTestHandler(newFakeNode(0), store, nil)
	defer h.Close()
	token := testToken()

	// Mint 1.0 to alice, then alice sends 0.4 to bob.
	one := units(1, token.Decimals)
	fourTenths := new(big.Int).Div(one, big.NewInt(10))
	fourTenths.Mul(fourTenths, big.NewInt(4))

	require.NoError(t, h.ApplyTransfer(ctx, token, transfer(chain.ZeroAddress, addrAlice, one, "0xaa", 0, 10)))
	require.NoError(t, h.ApplyTransfer(ctx, token, transfer(addrAlice, addrBob, fourTenths, "0xbb", 1, 11)))

	alice := store.holder(token.ID, addrAlice)
	require.NotNil(t, alice)
	assert.Equal(t, "0.6", alice.Balance)
	assert.Equal(t, uint64(11), alice.LastBlock)

	bob := store.holder(token.ID, addrBob)
	require.NotNil(t, bob)
	assert.Equal(t, "0.4", bob.Balance)

	// The mint source never becomes a holder.
	assert.Nil(t, store.holder(token.ID, chain.ZeroAddress))
	assert.Equal(t, 2, store.holderCount())
}

func TestApplyTransfer_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := newTestHandler(newFakeNode(0), store, nil)
	defer h.Close()
	token := testToken()

	ev := transfer(chain.ZeroAddress, addrAlice, units(5, token.Decimals), "0xaa", 3, 10)
	for i := 0; i < 4; i++ {
		require.NoError(t, h.ApplyTransfer(ctx, token, ev))
	}

	alice := store.holder(token.ID, addrAlice)
	require.NotNil(t, alice)
	assert.Equal(t, "5.0", alice.Balance)
}

func TestApplyTransfer_DistinctLogIndexesBothApply(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := newTestHandler(newFakeNode(0), store, nil)
	defer h.Close()
	token := testToken()

	// Same tx hash, two Transfer logs. Both must count.
	require.NoError(t, h.ApplyTransfer(ctx, token, transfer(chain.ZeroAddress, addrAlice, units(1, token.Decimals), "0xaa", 0, 10)))
	require.NoError(t, h.ApplyTransfer(ctx, token, transfer(chain.ZeroAddress, addrAlice, units(1, token.Decimals), "0xaa", 1, 10)))

	assert.Equal(t, "2.0", store.holder(token.ID, addrAlice).Balance)
}

func TestApplyTransfer_Conservation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := newTestHandler(newFakeNode(0), store, nil)
	defer h.Close()
	token := testToken()

	require.NoError(t, h.ApplyTransfer(ctx, token, transfer(chain.ZeroAddress, addrAlice, units(100, token.Decimals), "0x01", 0, 1)))
	moves := []struct {
		from, to string
		amount   int64
	}{
		{addrAlice, addrBob, 30},
		{addrBob, addrCarol, 10},
		{addrAlice, addrCarol, 25},
		{addrCarol, addrBob, 5},
	}
	for i, m := range moves {
		ev := transfer(m.from, m.to, units(m.amount, token.Decimals), fmt.Sprintf("0x%02d", i+2), 0, uint64(i+2))
		require.NoError(t, h.ApplyTransfer(ctx, token, ev))
	}

	total := new(big.Int)
	for _, addr := range []string{addrAlice, addrBob, addrCarol} {
		holder := store.holder(token.ID, addr)
		require.NotNil(t, holder)
		v, err := utils.ParseUnits(holder.Balance, token.Decimals)
		require.NoError(t, err)
		total.Add(total, v)
	}
	assert.Equal(t, units(100, token.Decimals), total)
}

func TestApplyTransfer_DebitWithoutRowSkipped(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := newTestHandler(newFakeNode(0), store, nil)
	defer h.Close()
	token := testToken()

	require.NoError(t, h.ApplyTransfer(ctx, token, transfer(addrAlice, addrBob, units(3, token.Decimals), "0xaa", 0, 10)))

	// Only the receiver got a row.
	assert.Nil(t, store.holder(token.ID, addrAlice))
	require.NotNil(t, store.holder(token.ID, addrBob))
	assert.Equal(t, "3.0", store.holder(token.ID, addrBob).Balance)
}

func TestApplyTransfer_NegativeBalanceStored(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := newTestHandler(newFakeNode(0), store, nil)
	defer h.Close()
	token := testToken()

	require.NoError(t, h.ApplyTransfer(ctx, token, transfer(chain.ZeroAddress, addrAlice, units(1, token.Decimals), "0xaa", 0, 10)))
	// Debit beyond the credited amount; the row goes negative until the
	// missing credit arrives.
	require.NoError(t, h.ApplyTransfer(ctx, token, transfer(addrAlice, addrBob, units(4, token.Decimals), "0xbb", 0, 11)))

	assert.Equal(t, "-3.0", store.holder(token.ID, addrAlice).Balance)
}

func TestApplyTransfer_BurnRemovesFromSupply(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := newTestHandler(newFakeNode(0), store, nil)
	defer h.Close()
	token := testToken()

	require.NoError(t, h.ApplyTransfer(ctx, token, transfer(chain.ZeroAddress, addrAlice, units(10, token.Decimals), "0xaa", 0, 10)))
	require.NoError(t, h.ApplyTransfer(ctx, token, transfer(addrAlice, chain.ZeroAddress, units(4, token.Decimals), "0xbb", 0, 11)))

	assert.Equal(t, "6.0", store.holder(token.ID, addrAlice).Balance)
	assert.Equal(t, 1, store.holderCount())
}

func TestApplyTransfer_ReleasesMarkWhenNothingLands(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := newTestHandler(newFakeNode(0), store, nil)
	defer h.Close()
	token := testToken()

	store.setUpsertHolderErr(errors.New("store down"))
	ev := transfer(chain.ZeroAddress, addrAlice, units(7, token.Decimals), "0xaa", 0, 10)
	require.Error(t, h.ApplyTransfer(ctx, token, ev))
	assert.Equal(t, 0, store.markCount())

	// The claim was released, so a replay succeeds.
	store.setUpsertHolderErr(nil)
	require.NoError(t, h.ApplyTransfer(ctx, token, ev))
	assert.Equal(t, "7.0", store.holder(token.ID, addrAlice).Balance)
}

func TestApplyTransfer_ReleasesCachedClaimWhenDurableMarkFails(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	dedup := &fakeDedup{seen: map[string]bool{}}
	h := newTestHandler(newFakeNode(0), store, dedup)
	defer h.Close()
	token := testToken()

	// The cache claim lands first; the durable mark then fails. The cached
	// claim must be released too, or the replay would see a prior sighting
	// and drop the event.
	store.setMarkErr(errors.New("store down"))
	ev := transfer(chain.ZeroAddress, addrAlice, units(7, token.Decimals), "0xaa", 0, 10)
	require.Error(t, h.ApplyTransfer(ctx, token, ev))
	assert.Nil(t, store.holder(token.ID, addrAlice))

	store.setMarkErr(nil)
	require.NoError(t, h.ApplyTransfer(ctx, token, ev))
	require.NotNil(t, store.holder(token.ID, addrAlice))
	assert.Equal(t, "7.0", store.holder(token.ID, addrAlice).Balance)
}

func TestApplyTransfer_ConcurrentCreditsSerialize(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := newTestHandler(newFakeNode(0), store, nil)
	defer h.Close()
	token := testToken()

	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			ev := transfer(chain.ZeroAddress, addrAlice, units(1, token.Decimals), fmt.Sprintf("0x%04d", i), 0, uint64(i))
			assert.NoError(t, h.ApplyTransfer(ctx, token, ev))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, fmt.Sprintf("%d.0", n), store.holder(token.ID, addrAlice).Balance)
}

func TestApplyTransfer_CacheShortCircuits(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	dedup := &fakeDedup{seen: map[string]bool{markKey("0xaa", 0): true}}
	h := newTestHandler(newFakeNode(0), store, dedup)
	defer h.Close()
	token := testToken()

	require.NoError(t, h.ApplyTransfer(ctx, token, transfer(chain.ZeroAddress, addrAlice, units(1, token.Decimals), "0xaa", 0, 10)))
	assert.Equal(t, 0, store.holderCount())
	assert.Equal(t, 0, store.markCount())
}

type fakeDedup struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *fakeDedup) MarkTransferApplied(_ context.Context, txHash string, logIndex uint) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := markKey(txHash, logIndex)
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

func (d *fakeDedup) UnmarkTransferApplied(_ context.Context, txHash string, logIndex uint) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, markKey(txHash, logIndex))
	return nil
}
