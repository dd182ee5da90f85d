package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/agorascan/agorascan-node/agora"
	"github.com/agorascan/agorascan-node/core"
	"github.com/agorascan/agorascan-node/internal/chaintest"
	"github.com/agorascan/agorascan-node/storage"
	"github.com/stretchr/testify/require"
)

const cycle = 20

// fakeAgora serves a fixed chain over the consensus-node read API.
func fakeAgora(t *testing.T, blocks []*core.Block) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/block_height", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%d", len(blocks)-1)
	})
	mux.HandleFunc("/blocks_from", func(w http.ResponseWriter, r *http.Request) {
		start, err := strconv.ParseUint(r.URL.Query().Get("height"), 10, 64)
		require.NoError(t, err)
		max, err := strconv.ParseUint(r.URL.Query().Get("max_blocks"), 10, 64)
		require.NoError(t, err)

		var out []*core.Block
		for h := start; h < uint64(len(blocks)) && uint64(len(out)) < max; h++ {
			out = append(out, blocks[h])
		}
		json.NewEncoder(w).Encode(out)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testPipeline(t *testing.T, blocks []*core.Block) (*Pipeline, *storage.LedgerDB) {
	t.Helper()

	ledger, _ := chaintest.OpenLedger(t, cycle)
	server := fakeAgora(t, blocks)

	cfg := chaintest.TestConfig(cycle)
	cfg.Server.IntakeQueue = 16

	return NewPipeline(cfg, ledger, nil, agora.NewClient(server.URL)), ledger
}

func buildChain(t *testing.T, length int) []*core.Block {
	t.Helper()

	b, err := chaintest.NewBuilder(cycle)
	require.NoError(t, err)
	b.Genesis(6)
	for len(b.Blocks()) < length {
		b.NextBlock(nil, nil)
	}
	return b.Blocks()
}

func TestCatchUpFromEmpty(t *testing.T) {
	blocks := buildChain(t, 6)
	p, ledger := testPipeline(t, blocks)

	require.NoError(t, p.CatchUp(context.Background()))

	next, err := ledger.ExpectedNextHeight()
	require.NoError(t, err)
	require.Equal(t, uint64(6), next)
}

func TestInOrderIntake(t *testing.T) {
	blocks := buildChain(t, 4)
	p, ledger := testPipeline(t, blocks)

	for _, blk := range blocks {
		require.NoError(t, p.processBlock(blk))
	}

	next, err := ledger.ExpectedNextHeight()
	require.NoError(t, err)
	require.Equal(t, uint64(4), next)
}

func TestGapRecovery(t *testing.T) {
	blocks := buildChain(t, 9)
	p, ledger := testPipeline(t, blocks)

	// local height 3
	for _, blk := range blocks[:4] {
		require.NoError(t, p.processBlock(blk))
	}

	// submitting height 8 backfills 4..7 from the consensus node
	require.NoError(t, p.processBlock(blocks[8]))

	next, err := ledger.ExpectedNextHeight()
	require.NoError(t, err)
	require.Equal(t, uint64(9), next)

	// every backfilled block is present and in order
	for h := uint64(0); h < 9; h++ {
		rec, err := ledger.BlockByHeight(h)
		require.NoError(t, err)
		require.Equal(t, h, rec.Height)
	}
}

func TestDuplicateIntakeIsIdempotent(t *testing.T) {
	blocks := buildChain(t, 3)
	p, ledger := testPipeline(t, blocks)

	for _, blk := range blocks {
		require.NoError(t, p.processBlock(blk))
	}

	statsBefore, err := ledger.Stats()
	require.NoError(t, err)

	// re-delivery of an old block changes nothing
	require.NoError(t, p.processBlock(blocks[1]))

	statsAfter, err := ledger.Stats()
	require.NoError(t, err)
	require.Equal(t, statsBefore, statsAfter)

	next, err := ledger.ExpectedNextHeight()
	require.NoError(t, err)
	require.Equal(t, uint64(3), next)
}

func TestCommitEmitsInOrder(t *testing.T) {
	blocks := buildChain(t, 5)
	p, _ := testPipeline(t, blocks)

	var emitted []uint64
	p.SetBlockCommitCallback(func(blk *core.Block) {
		emitted = append(emitted, blk.Header.Height)
	})

	// out-of-order submission still emits 0..4 in commit order
	require.NoError(t, p.processBlock(blocks[0]))
	require.NoError(t, p.processBlock(blocks[4]))

	require.Equal(t, []uint64{0, 1, 2, 3, 4}, emitted)
}

func TestPreimageIntakeDropsUnknownUtxo(t *testing.T) {
	blocks := buildChain(t, 2)
	p, _ := testPipeline(t, blocks)

	require.NoError(t, p.processBlock(blocks[0]))

	// must not panic or halt; unknown stakes are out-of-order deliveries
	p.processPreimage(&PreimageSubmission{Height: 3})

	halted, _ := p.Halted()
	require.False(t, halted)
}
