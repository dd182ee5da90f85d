package core

import (
	"testing"

	"github.com/agorascan/agorascan-node/common/utils"
	prt "github.com/agorascan/agorascan-node/protocol"
	"github.com/stretchr/testify/require"
)

func testTx(seed byte) *Transaction {
	return &Transaction{
		Type: prt.TxPayment,
		Inputs: []*TxInput{
			{UtxoKey: prt.Hash{seed, 0x01}},
		},
		Outputs: []*TxOutput{
			{Address: prt.Address{seed}, Amount: 1000, Type: prt.TxPayment},
		},
	}
}

func TestTransactionHashDeterministic(t *testing.T) {
	a := testTx(1)
	b := testTx(1)
	require.Equal(t, a.Hash(), b.Hash())

	c := testTx(2)
	require.NotEqual(t, a.Hash(), c.Hash())

	// nil and empty payload hash the same
	d := testTx(1)
	d.Payload = []byte{}
	require.Equal(t, a.Hash(), d.Hash())
}

func TestTransactionValidateShape(t *testing.T) {
	require.NoError(t, testTx(1).ValidateShape())

	coinbase := &Transaction{
		Type:    prt.TxCoinbase,
		Outputs: []*TxOutput{{Address: prt.Address{1}, Amount: 10}},
	}
	require.NoError(t, coinbase.ValidateShape())

	coinbase.Inputs = []*TxInput{{}}
	require.Error(t, coinbase.ValidateShape())

	noInputs := &Transaction{Type: prt.TxPayment, Outputs: []*TxOutput{{Amount: 1}}}
	require.Error(t, noInputs.ValidateShape())

	noOutputs := &Transaction{Type: prt.TxPayment, Inputs: []*TxInput{{}}}
	require.Error(t, noOutputs.ValidateShape())

	badType := testTx(1)
	badType.Type = 9
	require.Error(t, badType.ValidateShape())
}

func TestMerkleRootAndPath(t *testing.T) {
	for _, count := range []int{1, 2, 3, 4, 5, 8} {
		var txs []*Transaction
		for i := 0; i < count; i++ {
			txs = append(txs, testTx(byte(i+1)))
		}
		hashes := TxHashes(txs)
		root := MerkleRoot(hashes)

		for i := range hashes {
			path := MerklePath(hashes, uint64(i))
			require.True(t, VerifyMerklePath(hashes[i], uint64(i), path, root),
				"count=%d index=%d", count, i)
		}

		// a wrong leaf must not verify
		wrong := utils.HashBytes([]byte("wrong"))
		path := MerklePath(hashes, 0)
		require.False(t, VerifyMerklePath(wrong, 0, path, root))
	}
}

func TestMerkleRootEmpty(t *testing.T) {
	require.Equal(t, prt.Hash{}, MerkleRoot(nil))
	require.Nil(t, MerklePath(nil, 0))
}

func TestBlockHashCoversHeader(t *testing.T) {
	txs := []*Transaction{testTx(1)}
	blk := &Block{
		Header: BlockHeader{
			Height:     3,
			MerkleRoot: MerkleRoot(TxHashes(txs)),
		},
		Transactions: txs,
	}
	blk.Header.Hash = blk.ComputeHash()
	require.NoError(t, blk.ValidateShape())

	tampered := *blk
	tampered.Header.Height = 4
	require.Error(t, tampered.ValidateShape())
}

func TestBlockTime(t *testing.T) {
	genesis := int64(1_600_000_000)

	require.Equal(t, genesis, BlockTime(0, 0, genesis, 600))
	require.Equal(t, genesis+600*5+7, BlockTime(5, 7, genesis, 600))

	h, err := HeightAt(genesis+1250, genesis, 600)
	require.NoError(t, err)
	require.Equal(t, uint64(2), h)

	_, err = HeightAt(genesis-1, genesis, 600)
	require.Error(t, err)
}

func TestSortAddresses(t *testing.T) {
	addrs := []prt.Address{{0x03}, {0x01}, {0x02}}
	SortAddresses(addrs)
	require.Equal(t, []prt.Address{{0x01}, {0x02}, {0x03}}, addrs)
}
