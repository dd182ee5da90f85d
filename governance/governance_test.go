package governance_test

import (
	"testing"

	"github.com/agorascan/agorascan-node/core"
	"github.com/agorascan/agorascan-node/governance"
	"github.com/agorascan/agorascan-node/internal/chaintest"
	prt "github.com/agorascan/agorascan-node/protocol"
	"github.com/agorascan/agorascan-node/storage"
	"github.com/stretchr/testify/require"
)

const (
	cycle      = 20
	appName    = "Votera"
	proposalID = "469008972006"
	voteStart  = uint64(10)
	voteEnd    = uint64(15)
)

// setupProposal commits genesis and the fee-marker / declaration blocks,
// leaving the chain at height 5.
func setupProposal(t *testing.T, ledger *storage.LedgerDB, b *chaintest.Builder) {
	t.Helper()

	b.Genesis(6)
	b.NextBlock(nil, nil)
	b.NextBlock(nil, nil)

	// fee marker at h=3
	b.NextBlock([]*core.Transaction{b.FeeTx(appName, proposalID, 9, 10_000)}, nil)
	b.NextBlock(nil, nil)

	// declaration at h=5
	decl := &prt.ProposalPayload{
		AppName:        appName,
		ProposalType:   prt.ProposalTypeFund,
		ProposalID:     proposalID,
		Title:          "Fund the explorer rewrite",
		VoteStart:      voteStart,
		VoteEnd:        voteEnd,
		FundAmount:     1_000_000,
		ProposalFee:    10_000,
		VoteFee:        100,
		FeeTxHash:      b.FeeTxHashFor(appName, proposalID),
		Proposer:       b.Account(1).Address,
		FeeDestination: b.Account(9).Address,
	}
	b.NextBlock([]*core.Transaction{b.ProposalTx(decl)}, nil)

	for _, blk := range b.Blocks() {
		require.NoError(t, ledger.PutBlock(blk))
	}
}

func commitRest(t *testing.T, ledger *storage.LedgerDB, b *chaintest.Builder, from uint64) {
	t.Helper()
	for _, blk := range b.Blocks()[from:] {
		require.NoError(t, ledger.PutBlock(blk))
	}
}

// voteBlocks builds one ballot block per answer starting at voteStart and
// pads the chain through the tally height.
func voteBlocks(t *testing.T, b *chaintest.Builder, answers []byte) {
	t.Helper()

	for b.Height() < voteStart-1 {
		b.NextBlock(nil, nil)
	}
	for i, answer := range answers {
		ballot, err := b.BallotTx(appName, proposalID, voteEnd, i+1, answer, 0)
		require.NoError(t, err)
		b.NextBlock([]*core.Transaction{ballot}, nil)
	}
	for b.Height() < voteEnd+7 {
		b.NextBlock(nil, nil)
	}
}

func TestProposalLifecycleStatuses(t *testing.T) {
	ledger, gov := chaintest.OpenLedger(t, cycle)
	b, err := chaintest.NewBuilder(cycle)
	require.NoError(t, err)

	setupProposal(t, ledger, b)

	detail, err := gov.ProposalByID(proposalID)
	require.NoError(t, err)
	require.Equal(t, governance.StatusPending, detail.Proposal.Status)
	require.Equal(t, governance.ResultPending, detail.Proposal.Result)

	// entering the window flips to VOTING
	for b.Height() < voteStart {
		b.NextBlock(nil, nil)
	}
	commitRest(t, ledger, b, 6)

	detail, err = gov.ProposalByID(proposalID)
	require.NoError(t, err)
	require.Equal(t, governance.StatusVoting, detail.Proposal.Status)

	// one block past the window flips to COUNTING_VOTES
	committed := b.Height() + 1
	for b.Height() <= voteEnd {
		b.NextBlock(nil, nil)
	}
	commitRest(t, ledger, b, committed)

	detail, err = gov.ProposalByID(proposalID)
	require.NoError(t, err)
	require.Equal(t, governance.StatusCounting, detail.Proposal.Status)

	// the grace boundary tallies and closes
	committed = b.Height() + 1
	for b.Height() < voteEnd+7 {
		b.NextBlock(nil, nil)
	}
	commitRest(t, ledger, b, committed)

	detail, err = gov.ProposalByID(proposalID)
	require.NoError(t, err)
	require.Equal(t, governance.StatusClosed, detail.Proposal.Status)
}

func TestProposalPassed(t *testing.T) {
	ledger, gov := chaintest.OpenLedger(t, cycle)
	b, err := chaintest.NewBuilder(cycle)
	require.NoError(t, err)

	setupProposal(t, ledger, b)
	voteBlocks(t, b, []byte{
		governance.AnswerYes, governance.AnswerNo, governance.AnswerBlank, governance.AnswerYes,
	})
	commitRest(t, ledger, b, 6)

	detail, err := gov.ProposalByID(proposalID)
	require.NoError(t, err)
	require.Equal(t, governance.StatusClosed, detail.Proposal.Status)
	require.Equal(t, governance.ResultPassed, detail.Proposal.Result)
	require.Equal(t, 4, detail.Proposal.BallotCount)
}

func TestProposalRejected(t *testing.T) {
	ledger, gov := chaintest.OpenLedger(t, cycle)
	b, err := chaintest.NewBuilder(cycle)
	require.NoError(t, err)

	setupProposal(t, ledger, b)
	voteBlocks(t, b, []byte{
		governance.AnswerYes, governance.AnswerNo, governance.AnswerNo, governance.AnswerBlank,
	})
	commitRest(t, ledger, b, 6)

	detail, err := gov.ProposalByID(proposalID)
	require.NoError(t, err)
	require.Equal(t, governance.ResultRejected, detail.Proposal.Result)
}

func TestOutOfWindowBallotsPersistAsReject(t *testing.T) {
	ledger, gov := chaintest.OpenLedger(t, cycle)
	b, err := chaintest.NewBuilder(cycle)
	require.NoError(t, err)

	setupProposal(t, ledger, b)

	// ballot before the window at h=6
	early, err := b.BallotTx(appName, proposalID, voteEnd, 1, governance.AnswerYes, 0)
	require.NoError(t, err)
	b.NextBlock([]*core.Transaction{early}, nil)

	// two in-window YES votes so the tally has something to count
	voteBlocks(t, b, []byte{governance.AnswerYes, governance.AnswerYes})

	// and one ballot after the window closed
	late, err := b.BallotTx(appName, proposalID, voteEnd, 5, governance.AnswerYes, 0)
	require.NoError(t, err)
	b.NextBlock([]*core.Transaction{late}, nil)
	commitRest(t, ledger, b, 6)

	detail, err := gov.ProposalByID(proposalID)
	require.NoError(t, err)

	rejects := 0
	for _, ballot := range detail.Ballots {
		if ballot.Answer == governance.BallotReject {
			rejects++
			require.Equal(t, governance.RejectOutOfWindow, ballot.RejectReason)
		}
	}
	require.Equal(t, 2, rejects)

	// the two in-window votes still pass on their own
	require.Equal(t, governance.ResultPassed, detail.Proposal.Result)
	require.Equal(t, 2, detail.Proposal.BallotCount)
}

func TestStaleSequenceAndRevote(t *testing.T) {
	ledger, gov := chaintest.OpenLedger(t, cycle)
	b, err := chaintest.NewBuilder(cycle)
	require.NoError(t, err)

	setupProposal(t, ledger, b)
	for b.Height() < voteStart-1 {
		b.NextBlock(nil, nil)
	}

	// validator 1 votes NO with sequence 1, then revotes YES with
	// sequence 2; a replayed sequence 1 is stale
	no, err := b.BallotTx(appName, proposalID, voteEnd, 1, governance.AnswerNo, 1)
	require.NoError(t, err)
	b.NextBlock([]*core.Transaction{no}, nil)

	yes, err := b.BallotTx(appName, proposalID, voteEnd, 1, governance.AnswerYes, 2)
	require.NoError(t, err)
	b.NextBlock([]*core.Transaction{yes}, nil)

	stale, err := b.BallotTx(appName, proposalID, voteEnd, 1, governance.AnswerNo, 1)
	require.NoError(t, err)
	b.NextBlock([]*core.Transaction{stale}, nil)

	// a second validator votes so the quorum holds
	other, err := b.BallotTx(appName, proposalID, voteEnd, 2, governance.AnswerYes, 0)
	require.NoError(t, err)
	b.NextBlock([]*core.Transaction{other}, nil)

	for b.Height() < voteEnd+7 {
		b.NextBlock(nil, nil)
	}
	commitRest(t, ledger, b, 6)

	detail, err := gov.ProposalByID(proposalID)
	require.NoError(t, err)

	// last write wins: the sequence-2 YES decides the validator's vote
	require.Equal(t, governance.ResultPassed, detail.Proposal.Result)

	staleCount := 0
	for _, ballot := range detail.Ballots {
		if ballot.RejectReason == governance.RejectStaleSequence {
			staleCount++
		}
	}
	require.Equal(t, 1, staleCount)
}

func TestProposalWithoutFeeMarkerIsDropped(t *testing.T) {
	ledger, gov := chaintest.OpenLedger(t, cycle)
	b, err := chaintest.NewBuilder(cycle)
	require.NoError(t, err)

	b.Genesis(3)
	decl := &prt.ProposalPayload{
		AppName:      appName,
		ProposalType: prt.ProposalTypeSystem,
		ProposalID:   "no-fee",
		Title:        "Orphan proposal",
		VoteStart:    10,
		VoteEnd:      15,
		ProposalFee:  10_000,
	}
	b.NextBlock([]*core.Transaction{b.ProposalTx(decl)}, nil)
	for _, blk := range b.Blocks() {
		require.NoError(t, ledger.PutBlock(blk))
	}

	_, err = gov.ProposalByID("no-fee")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUnknownPayloadIsIgnored(t *testing.T) {
	ledger, gov := chaintest.OpenLedger(t, cycle)
	b, err := chaintest.NewBuilder(cycle)
	require.NoError(t, err)

	b.Genesis(3)
	b.NextBlock([]*core.Transaction{b.Payment(2, 100, []byte{0x7f, 0x00, 0x01})}, nil)
	for _, blk := range b.Blocks() {
		require.NoError(t, ledger.PutBlock(blk))
	}

	// the transaction persists, no governance row appears
	proposals, err := gov.Proposals(1, 10)
	require.NoError(t, err)
	require.Empty(t, proposals)

	next, err := ledger.ExpectedNextHeight()
	require.NoError(t, err)
	require.Equal(t, uint64(2), next)
}
