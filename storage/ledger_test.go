package storage_test

import (
	"testing"

	"github.com/agorascan/agorascan-node/common/utils"
	"github.com/agorascan/agorascan-node/core"
	"github.com/agorascan/agorascan-node/internal/chaintest"
	"github.com/agorascan/agorascan-node/storage"
	"github.com/stretchr/testify/require"
)

const cycle = 20

func commitChain(t *testing.T, ledger *storage.LedgerDB, blocks []*core.Block) {
	t.Helper()
	for _, blk := range blocks {
		require.NoError(t, ledger.PutBlock(blk), "height %d", blk.Header.Height)
	}
}

func TestExpectedNextHeightTracksPrefix(t *testing.T) {
	ledger, _ := chaintest.OpenLedger(t, cycle)

	next, err := ledger.ExpectedNextHeight()
	require.NoError(t, err)
	require.Equal(t, uint64(0), next)

	b, err := chaintest.NewBuilder(cycle)
	require.NoError(t, err)
	b.Genesis(6)
	b.NextBlock(nil, nil)
	b.NextBlock(nil, nil)

	for i, blk := range b.Blocks() {
		require.NoError(t, ledger.PutBlock(blk))
		next, err = ledger.ExpectedNextHeight()
		require.NoError(t, err)
		require.Equal(t, uint64(i+1), next)
	}
}

func TestPutBlockDuplicateIsRejected(t *testing.T) {
	ledger, _ := chaintest.OpenLedger(t, cycle)

	b, err := chaintest.NewBuilder(cycle)
	require.NoError(t, err)
	b.Genesis(6)
	b.NextBlock(nil, nil)
	commitChain(t, ledger, b.Blocks())

	err = ledger.PutBlock(b.Blocks()[1])
	require.ErrorIs(t, err, storage.ErrDuplicateBlock)

	next, err := ledger.ExpectedNextHeight()
	require.NoError(t, err)
	require.Equal(t, uint64(2), next)
}

func TestPutBlockConsumesInputsAndComputesFee(t *testing.T) {
	ledger, _ := chaintest.OpenLedger(t, cycle)

	b, err := chaintest.NewBuilder(cycle)
	require.NoError(t, err)
	b.Genesis(6)
	tx := b.Payment(2, 5_000, nil)
	b.NextBlock([]*core.Transaction{tx}, nil)
	commitChain(t, ledger, b.Blocks())

	detail, err := ledger.TxByHash(utils.HashToString(tx.Hash()))
	require.NoError(t, err)
	require.Equal(t, uint64(100), detail.Tx.Fee)

	// the consumed output carries the spending height
	require.Len(t, detail.Inputs, 1)
	require.True(t, detail.Inputs[0].UsedHeight.Valid)
	require.Equal(t, int64(1), detail.Inputs[0].UsedHeight.Int64)

	// input sum = output sum + fee
	var inSum, outSum uint64
	for _, in := range detail.Inputs {
		inSum += in.Amount
	}
	for _, out := range detail.Outputs {
		outSum += out.Amount
	}
	require.Equal(t, inSum, outSum+detail.Tx.Fee)
}

func TestCommitteeGrowsWithFreezeAndEnroll(t *testing.T) {
	ledger, _ := chaintest.OpenLedger(t, cycle)

	b, err := chaintest.NewBuilder(cycle)
	require.NoError(t, err)
	b.Genesis(6)

	// five freeze-then-enroll transactions in block 1
	var txs []*core.Transaction
	var enrs []core.Enrollment
	for i := 7; i <= 11; i++ {
		tx, enr := b.FreezeAndEnroll(i)
		txs = append(txs, tx)
		enrs = append(enrs, enr)
	}
	b.NextBlock(txs, enrs)
	commitChain(t, ledger, b.Blocks())

	committee, err := ledger.CommitteeAt(1)
	require.NoError(t, err)
	require.Len(t, committee, 11)

	committee, err = ledger.CommitteeAt(0)
	require.NoError(t, err)
	require.Len(t, committee, 6)
}

func TestReEnrollmentKeepsSeatAcrossCycleBoundary(t *testing.T) {
	ledger, _ := chaintest.OpenLedger(t, cycle)

	b, err := chaintest.NewBuilder(cycle)
	require.NoError(t, err)
	b.Genesis(3)

	for b.Height() < cycle-1 {
		b.NextBlock(nil, nil)
	}
	// only validator 1 renews in the expiry block
	b.NextBlock(nil, []core.Enrollment{b.ReEnroll(1)})
	b.NextBlock(nil, nil)
	commitChain(t, ledger, b.Blocks())

	// everyone keeps the seat through the boundary block itself
	committee, err := ledger.CommitteeAt(cycle)
	require.NoError(t, err)
	require.Len(t, committee, 3)

	// one block later only the renewed validator remains
	committee, err = ledger.CommitteeAt(cycle + 1)
	require.NoError(t, err)
	require.Len(t, committee, 1)
}

func TestUpdatePreimageMonotone(t *testing.T) {
	ledger, _ := chaintest.OpenLedger(t, cycle)

	b, err := chaintest.NewBuilder(cycle)
	require.NoError(t, err)
	b.Genesis(1)
	commitChain(t, ledger, b.Blocks())

	stake := b.StakeUtxo(1)

	changed, err := ledger.UpdatePreimage(stake, b.PreimageAt(1, 7), 7)
	require.NoError(t, err)
	require.True(t, changed)

	// an older tip is a no-op, not an error
	changed, err = ledger.UpdatePreimage(stake, b.PreimageAt(1, 5), 5)
	require.NoError(t, err)
	require.False(t, changed)

	row, err := storage.PreimageRowTx(ledger.DB(), utils.HashToString(stake))
	require.NoError(t, err)
	require.Equal(t, uint64(7), row.TipHeight)
	require.Equal(t, utils.HashToString(b.PreimageAt(1, 7)), row.TipHash)

	// a tip beyond the cycle is rejected
	_, err = ledger.UpdatePreimage(stake, b.PreimageAt(1, 7), cycle+5)
	require.Error(t, err)

	// an unknown stake reports not-found for the caller to drop
	_, err = ledger.UpdatePreimage(utils.HashBytes([]byte("nope")), b.PreimageAt(1, 8), 8)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestHeaderPreimageVectorAdvancesTips(t *testing.T) {
	ledger, _ := chaintest.OpenLedger(t, cycle)

	b, err := chaintest.NewBuilder(cycle)
	require.NoError(t, err)
	b.Genesis(4)
	b.NextBlock(nil, nil)
	b.NextBlock(nil, nil)
	commitChain(t, ledger, b.Blocks())

	// every committed block carried the committee's pre-images, so each
	// tip sits at the chain head
	for i := 1; i <= 4; i++ {
		row, err := storage.PreimageRowTx(ledger.DB(), utils.HashToString(b.StakeUtxo(i)))
		require.NoError(t, err)
		require.Equal(t, uint64(2), row.TipHeight)
	}

	rec, err := ledger.BlockByHeight(2)
	require.NoError(t, err)
	require.Equal(t, 4, rec.ActiveValidators)
}

func TestStatsAndHolders(t *testing.T) {
	ledger, _ := chaintest.OpenLedger(t, cycle)

	b, err := chaintest.NewBuilder(cycle)
	require.NoError(t, err)
	b.Genesis(2)
	b.NextBlock([]*core.Transaction{b.Payment(5, 1_000, nil)}, nil)
	commitChain(t, ledger, b.Blocks())

	stats, err := ledger.Stats()
	require.NoError(t, err)
	require.Equal(t, uint64(1), stats.Height)
	require.Equal(t, 2*chaintest.StakeAmount, stats.FrozenAmount)
	require.Equal(t, 2, stats.TotalValidators)

	holders, err := ledger.Holders(1, 10)
	require.NoError(t, err)
	require.NotEmpty(t, holders)

	// sum over holders equals the unspent total
	var holderSum uint64
	for _, h := range holders {
		holderSum += h.TotalAmount
	}
	require.Equal(t, stats.FrozenAmount+stats.CirculatingSupply, holderSum)
}
