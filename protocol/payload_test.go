package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeProposalFeePayload(t *testing.T) {
	original := &ProposalFeePayload{AppName: "Votera", ProposalID: "469008972006"}

	kind, decoded := DecodePayload(original.Encode())
	require.Equal(t, PayloadKindProposalFee, kind)

	fee := decoded.(*ProposalFeePayload)
	require.Equal(t, "Votera", fee.AppName)
	require.Equal(t, "469008972006", fee.ProposalID)
}

func TestDecodeProposalPayload(t *testing.T) {
	original := &ProposalPayload{
		AppName:      "Votera",
		ProposalType: ProposalTypeFund,
		ProposalID:   "469008972006",
		Title:        "Fund the explorer rewrite",
		VoteStart:    10,
		VoteEnd:      15,
		DocHash:      Hash{0xd0, 0xc0},
		FundAmount:   1_000_000,
		ProposalFee:  10_000,
		VoteFee:      100,
		FeeTxHash:    Hash{0xfe, 0xe0},
		Proposer:     Address{0x01},
	}

	kind, decoded := DecodePayload(original.Encode())
	require.Equal(t, PayloadKindProposal, kind)
	require.Equal(t, original, decoded.(*ProposalPayload))
}

func TestDecodeBallotPayload(t *testing.T) {
	original := &BallotPayload{
		AppName:         "Votera",
		ProposalID:      "469008972006",
		EncryptedAnswer: []byte{0xaa, 0xbb, 0xcc},
		Card: VoterCard{
			Validator:       Address{0x11},
			ValidatorPubKey: []byte{0x01, 0x02},
			TempAddress:     Address{0x22},
			TempPubKey:      []byte{0x03, 0x04},
			Expires:         "2030-01-01T00:00:00Z",
		},
		Sequence: 3,
	}

	kind, decoded := DecodePayload(original.Encode())
	require.Equal(t, PayloadKindBallot, kind)
	require.Equal(t, original, decoded.(*BallotPayload))
}

func TestDecodePayloadUnknown(t *testing.T) {
	cases := map[string][]byte{
		"empty":        nil,
		"unknown tag":  {0x7f, 0x01, 0x02},
		"bare tag":     {tagProposal},
		"truncated":    (&ProposalFeePayload{AppName: "Votera", ProposalID: "x"}).Encode()[:5],
		"trailing":     append((&ProposalFeePayload{AppName: "a", ProposalID: "b"}).Encode(), 0x00),
		"huge length":  {tagProposalFee, 0xff, 0xff, 0xff, 0xff},
		"random bytes": {0x01, 0x99, 0x99},
	}

	for name, data := range cases {
		kind, decoded := DecodePayload(data)
		require.Equal(t, PayloadKindUnknown, kind, name)
		require.Nil(t, decoded, name)
	}
}
