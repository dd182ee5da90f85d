package validator

import (
	"testing"

	"github.com/agorascan/agorascan-node/common/utils"
	"github.com/stretchr/testify/require"
)

func TestBuildPreimageChain(t *testing.T) {
	seed := utils.HashBytes([]byte("seed"))
	chain := BuildPreimageChain(seed, 20)

	require.Len(t, chain, 21)
	require.Equal(t, seed, chain[20])

	// each element hashes down to its predecessor
	for i := 0; i < 20; i++ {
		require.Equal(t, chain[i], utils.HashBytes(chain[i+1][:]))
	}
}

func TestDerivePreimage(t *testing.T) {
	seed := utils.HashBytes([]byte("seed"))
	chain := BuildPreimageChain(seed, 20)

	// anchored at 100: chain[i] is the preimage for height 100+i
	tip := chain[15]
	for target := uint64(0); target <= 15; target++ {
		derived, err := DerivePreimage(tip, 115, 100+target)
		require.NoError(t, err)
		require.Equal(t, chain[target], derived)
	}

	_, err := DerivePreimage(tip, 115, 116)
	require.Error(t, err, "future heights are not derivable")
}

func TestVerifyPreimageChain(t *testing.T) {
	seed := utils.HashBytes([]byte("seed"))
	chain := BuildPreimageChain(seed, 20)

	require.True(t, VerifyPreimageChain(chain[5], 105, chain[9], 109))
	require.False(t, VerifyPreimageChain(chain[5], 105, chain[9], 105), "not newer")
	require.False(t, VerifyPreimageChain(chain[5], 105, utils.HashBytes([]byte("x")), 109))
}
