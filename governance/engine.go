// Package governance interprets payload-bearing transactions as proposal
// fees, proposal declarations and encrypted ballots, and drives the
// proposal lifecycle from committed block heights. It is a projection: no
// timer fires a transition, replaying the chain reproduces every state.
package governance

import (
	"database/sql"
	"fmt"

	log "github.com/agorascan/agorascan-node/common/logger"
	"github.com/agorascan/agorascan-node/common/crypto"
	"github.com/agorascan/agorascan-node/common/utils"
	"github.com/agorascan/agorascan-node/config"
	prt "github.com/agorascan/agorascan-node/protocol"
	"github.com/agorascan/agorascan-node/storage"
	"github.com/jmoiron/sqlx"
)

// Proposal statuses
const (
	StatusPending  = "PENDING"
	StatusVoting   = "VOTING"
	StatusCounting = "COUNTING_VOTES"
	StatusClosed   = "CLOSED"
)

// Proposal results
const (
	ResultPending  = "PENDING"
	ResultPassed   = "PASSED"
	ResultRejected = "REJECTED"
)

// Stored ballot answers
const (
	BallotPending = "PENDING" // accepted, not yet decoded
	BallotYes     = "YES"
	BallotNo      = "NO"
	BallotBlank   = "BLANK"
	BallotReject  = "REJECT"
)

// Ballot reject reason codes
const (
	RejectUnknownProposal = "UNKNOWN_PROPOSAL"
	RejectOutOfWindow     = "OUT_OF_WINDOW"
	RejectBadCardSig      = "BAD_CARD_SIGNATURE"
	RejectBadBallotSig    = "BAD_BALLOT_SIGNATURE"
	RejectNotValidator    = "NOT_VALIDATOR"
	RejectStaleSequence   = "STALE_SEQUENCE"
	RejectUndecryptable   = "UNDECRYPTABLE"
)

type ProposalRecord struct {
	ProposalID      string `db:"proposal_id"`
	AppName         string `db:"app_name"`
	ProposalType    uint8  `db:"proposal_type"`
	Title           string `db:"title"`
	BlockHeight     uint64 `db:"block_height"`
	TxHash          string `db:"tx_hash"`
	ProposerAddress string `db:"proposer_address"`
	FeeDestination  string `db:"fee_destination"`
	FeeTxHash       string `db:"fee_tx_hash"`
	VoteStartHeight uint64 `db:"vote_start_height"`
	VoteEndHeight   uint64 `db:"vote_end_height"`
	DocHash         string `db:"doc_hash"`
	FundAmount      uint64 `db:"fund_amount"`
	ProposalFee     uint64 `db:"proposal_fee"`
	VoteFee         uint64 `db:"vote_fee"`
	Status          string `db:"status"`
	Result          string `db:"result"`
}

type BallotRecord struct {
	TxHash           string `db:"tx_hash"`
	ProposalID       string `db:"proposal_id"`
	ValidatorAddress string `db:"validator_address"`
	BlockHeight      uint64 `db:"block_height"`
	Sequence         uint64 `db:"sequence"`
	EncryptedBallot  []byte `db:"encrypted_ballot"`
	VoterCard        []byte `db:"voter_card"`
	Signature        string `db:"signature"`
	Answer           string `db:"answer"`
	RejectReason     string `db:"reject_reason"`
}

// Engine implements storage.GovernanceHook; every method body runs inside
// the PutBlock transaction.
type Engine struct {
	cfg    *config.Config
	ledger *storage.LedgerDB
}

func NewEngine(cfg *config.Config, ledger *storage.LedgerDB) *Engine {
	return &Engine{cfg: cfg, ledger: ledger}
}

// OnTxCommitted classifies one committed payload-bearing transaction.
// A payload that does not decode as a governance record is ignored; the
// transaction itself is already persisted by the caller.
func (p *Engine) OnTxCommitted(dbtx *sqlx.Tx, height uint64, rec *storage.TxRecord) error {
	if !p.cfg.Governance.Enabled {
		return nil
	}

	kind, decoded := prt.DecodePayload(rec.Payload)
	switch kind {
	case prt.PayloadKindProposalFee:
		return p.onProposalFee(dbtx, height, rec, decoded.(*prt.ProposalFeePayload))
	case prt.PayloadKindProposal:
		return p.onProposal(dbtx, height, rec, decoded.(*prt.ProposalPayload))
	case prt.PayloadKindBallot:
		return p.onBallot(dbtx, height, rec, decoded.(*prt.BallotPayload))
	}
	return nil
}

// onProposalFee records a pending fee marker keyed by tx hash.
func (p *Engine) onProposalFee(dbtx *sqlx.Tx, height uint64, rec *storage.TxRecord, fee *prt.ProposalFeePayload) error {
	// largest output for display; validation happens at declaration time
	var dest struct {
		Address string `db:"address"`
		Amount  uint64 `db:"amount"`
	}
	err := dbtx.Get(&dest,
		`SELECT address, amount FROM tx_outputs WHERE tx_hash = ?
		 ORDER BY amount DESC LIMIT 1`, rec.TxHash)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to inspect fee tx outputs: %w", err)
	}

	_, err = dbtx.Exec(
		`INSERT INTO proposal_fees (tx_hash, app_name, proposal_id, destination, amount, block_height)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.TxHash, fee.AppName, fee.ProposalID, dest.Address, dest.Amount, height)
	if err != nil {
		return fmt.Errorf("failed to record proposal fee marker: %w", err)
	}
	return nil
}

// onProposal materializes a proposal if its fee marker checks out.
// Validation failures skip the proposal without failing the block.
func (p *Engine) onProposal(dbtx *sqlx.Tx, height uint64, rec *storage.TxRecord, decl *prt.ProposalPayload) error {
	if decl.VoteStart >= decl.VoteEnd {
		log.Warn("Proposal ", decl.ProposalID, " dropped: empty voting window")
		return nil
	}
	if decl.VoteStart <= height {
		log.Warn("Proposal ", decl.ProposalID, " dropped: voting window opens in the past")
		return nil
	}

	feeTxStr := utils.HashToString(decl.FeeTxHash)
	var marker struct {
		AppName    string `db:"app_name"`
		ProposalID string `db:"proposal_id"`
	}
	err := dbtx.Get(&marker,
		`SELECT app_name, proposal_id FROM proposal_fees WHERE tx_hash = ?`, feeTxStr)
	if err == sql.ErrNoRows {
		log.Warn("Proposal ", decl.ProposalID, " dropped: no fee marker for tx ", feeTxStr)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up fee marker: %w", err)
	}
	if marker.AppName != decl.AppName || marker.ProposalID != decl.ProposalID {
		log.Warn("Proposal ", decl.ProposalID, " dropped: fee marker names a different proposal")
		return nil
	}

	// the fee tx must pay at least the declared fee to the declared destination
	destStr := utils.AddressToString(decl.FeeDestination)
	var paid uint64
	err = dbtx.Get(&paid,
		`SELECT COALESCE(SUM(amount), 0) FROM tx_outputs WHERE tx_hash = ? AND address = ?`,
		feeTxStr, destStr)
	if err != nil {
		return fmt.Errorf("failed to sum fee outputs: %w", err)
	}
	if paid < decl.ProposalFee {
		log.Warn("Proposal ", decl.ProposalID, " dropped: fee ", paid, " below required ", decl.ProposalFee)
		return nil
	}

	_, err = dbtx.Exec(
		`INSERT INTO proposals (proposal_id, app_name, proposal_type, title, block_height, tx_hash,
			proposer_address, fee_destination, fee_tx_hash, vote_start_height, vote_end_height,
			doc_hash, fund_amount, proposal_fee, vote_fee, status, result)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		decl.ProposalID, decl.AppName, decl.ProposalType, decl.Title, height, rec.TxHash,
		utils.AddressToString(decl.Proposer), destStr, feeTxStr,
		decl.VoteStart, decl.VoteEnd, utils.HashToString(decl.DocHash),
		decl.FundAmount, decl.ProposalFee, decl.VoteFee, StatusPending, ResultPending)
	if err != nil {
		return fmt.Errorf("failed to insert proposal %s: %w", decl.ProposalID, err)
	}
	return nil
}

// onBallot applies the acceptance rules in order. Every ballot persists;
// a failed rule stamps REJECT with the first failing reason.
func (p *Engine) onBallot(dbtx *sqlx.Tx, height uint64, rec *storage.TxRecord, ballot *prt.BallotPayload) error {
	answer := BallotPending
	reason := ""

	var prop ProposalRecord
	err := dbtx.Get(&prop, `SELECT * FROM proposals WHERE proposal_id = ?`, ballot.ProposalID)
	switch {
	case err == sql.ErrNoRows:
		answer, reason = BallotReject, RejectUnknownProposal
	case err != nil:
		return fmt.Errorf("failed to look up ballot proposal: %w", err)
	case height < prop.VoteStartHeight || height > prop.VoteEndHeight:
		answer, reason = BallotReject, RejectOutOfWindow
	}

	if answer == BallotPending {
		answer, reason = p.checkBallotSignatures(ballot)
	}

	addrStr := utils.AddressToString(ballot.Card.Validator)
	if answer == BallotPending {
		committee, err := storage.CommitteeAtTx(dbtx, height)
		if err != nil {
			return err
		}
		seated := false
		for _, ent := range committee {
			if ent.Address == addrStr {
				seated = true
				break
			}
		}
		if !seated {
			answer, reason = BallotReject, RejectNotValidator
		}
	}

	if answer == BallotPending {
		// monotone revote counter: an older sequence never displaces a newer one
		var maxSeq sql.NullInt64
		err := dbtx.Get(&maxSeq,
			`SELECT MAX(sequence) FROM ballots
			 WHERE proposal_id = ? AND validator_address = ? AND answer <> ?`,
			ballot.ProposalID, addrStr, BallotReject)
		if err != nil {
			return fmt.Errorf("failed to read ballot sequence: %w", err)
		}
		if maxSeq.Valid && uint64(maxSeq.Int64) > uint64(ballot.Sequence) {
			answer, reason = BallotReject, RejectStaleSequence
		}
	}

	_, err = dbtx.Exec(
		`INSERT INTO ballots (tx_hash, proposal_id, validator_address, block_height, sequence,
			encrypted_ballot, voter_card, signature, answer, reject_reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TxHash, ballot.ProposalID, addrStr, height, uint64(ballot.Sequence),
		ballot.EncryptedAnswer, ballot.Card.SigningBytes(),
		utils.SignatureToString(ballot.Signature), answer, reason)
	if err != nil {
		return fmt.Errorf("failed to insert ballot: %w", err)
	}
	return nil
}

// checkBallotSignatures verifies the delegation chain: the validator key
// signs the voter card, the delegated temporary key signs the ballot body.
func (p *Engine) checkBallotSignatures(ballot *prt.BallotPayload) (string, string) {
	card := &ballot.Card

	cardAddr, err := crypto.AddressFromPubKeyBytes(card.ValidatorPubKey)
	if err != nil || cardAddr != card.Validator {
		return BallotReject, RejectBadCardSig
	}
	ok, err := crypto.VerifySignatureWithBytes(card.ValidatorPubKey, card.SigningBytes(), card.Signature)
	if err != nil || !ok {
		return BallotReject, RejectBadCardSig
	}

	tempAddr, err := crypto.AddressFromPubKeyBytes(card.TempPubKey)
	if err != nil || tempAddr != card.TempAddress {
		return BallotReject, RejectBadBallotSig
	}
	ok, err = crypto.VerifySignatureWithBytes(card.TempPubKey, ballot.SigningBytes(), ballot.Signature)
	if err != nil || !ok {
		return BallotReject, RejectBadBallotSig
	}

	return BallotPending, ""
}
