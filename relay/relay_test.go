package relay

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/TEENet-io/onebtc-go/database"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
)

func newHeaderDB(t *testing.T) (*HeaderDB, func()) {
	sqlDB, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	hdb, err := NewHeaderDB(sqlDB)
	if err != nil {
		t.Fatal(err)
	}
	return hdb, func() {
		hdb.Close()
		sqlDB.Close()
	}
}

// fakeChain is a header source whose blocks can be replaced from a height
// up to simulate a reorg.
type fakeChain struct {
	headers []*wire.BlockHeader
}

func (c *fakeChain) extend(n int, nonce uint32) {
	for i := 0; i < n; i++ {
		prev := chainhash.Hash{}
		if len(c.headers) > 0 {
			prev = c.headers[len(c.headers)-1].BlockHash()
		}
		h := wire.NewBlockHeader(1, &prev, &chainhash.Hash{}, 0x207fffff, nonce+uint32(len(c.headers)))
		h.Timestamp = time.Unix(1700000000+int64(len(c.headers)), 0)
		c.headers = append(c.headers, h)
	}
}

func (c *fakeChain) GetLatestBlockHeight() (int64, error) {
	return int64(len(c.headers) - 1), nil
}

func (c *fakeChain) GetBlockHeaderAt(height int64) (*wire.BlockHeader, error) {
	if height < 0 || height >= int64(len(c.headers)) {
		return nil, fmt.Errorf("no block at %d", height)
	}
	return c.headers[height], nil
}

func TestHeaderDB(t *testing.T) {
	hdb, cleanup := newHeaderDB(t)
	defer cleanup()
	ctx := context.Background()

	best, err := hdb.BestHeight(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0), best)

	chain := &fakeChain{}
	chain.extend(3, 0)
	for i, h := range chain.headers {
		assert.NoError(t, hdb.PutHeader(ctx, uint32(i+100), h))
	}

	h, ok, err := hdb.HeaderAt(ctx, 101)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, chain.headers[1].BlockHash(), h.BlockHash())

	_, ok, err = hdb.HeaderAt(ctx, 99)
	assert.NoError(t, err)
	assert.False(t, ok)

	best, err = hdb.BestHeight(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint32(102), best)

	assert.NoError(t, hdb.DropAbove(ctx, 100))
	best, err = hdb.BestHeight(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint32(100), best)
}

func TestSyncerFollowsChain(t *testing.T) {
	hdb, cleanup := newHeaderDB(t)
	defer cleanup()
	ctx := context.Background()

	chain := &fakeChain{}
	chain.extend(10, 0)

	s := NewSyncer(&SyncerConfig{Interval: time.Second, StartHeight: 2, BatchSize: 4}, chain, hdb)

	// two rounds copy 2..9
	assert.NoError(t, s.Scan(ctx))
	best, _ := hdb.BestHeight(ctx)
	assert.Equal(t, uint32(5), best)
	assert.NoError(t, s.Scan(ctx))
	best, _ = hdb.BestHeight(ctx)
	assert.Equal(t, uint32(9), best)

	_, ok, _ := hdb.HeaderAt(ctx, 1)
	assert.False(t, ok)

	// nothing new
	assert.NoError(t, s.Scan(ctx))
	best, _ = hdb.BestHeight(ctx)
	assert.Equal(t, uint32(9), best)
}

func TestSyncerReorg(t *testing.T) {
	hdb, cleanup := newHeaderDB(t)
	defer cleanup()
	ctx := context.Background()

	chain := &fakeChain{}
	chain.extend(6, 0)

	s := NewSyncer(&SyncerConfig{Interval: time.Second, StartHeight: 0, BatchSize: 100}, chain, hdb)
	assert.NoError(t, s.Scan(ctx))

	// replace blocks 4 and 5 and grow the fork by two
	chain.headers = chain.headers[:4]
	chain.extend(4, 1000)

	assert.NoError(t, s.Scan(ctx))
	best, err := hdb.BestHeight(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint32(7), best)

	for i, want := range chain.headers {
		h, ok, err := hdb.HeaderAt(ctx, uint32(i))
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, want.BlockHash(), h.BlockHash(), "height %d", i)
	}
}

func TestMemoryRelay(t *testing.T) {
	r := NewMemoryRelay()
	chain := &fakeChain{}
	chain.extend(1, 0)

	r.AddHeader(7, chain.headers[0])
	h, ok, err := r.HeaderAt(context.Background(), 7)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, chain.headers[0].BlockHash(), h.BlockHash())

	r.SetBestHeight(12)
	best, _ := r.BestHeight(context.Background())
	assert.Equal(t, uint32(12), best)
}
