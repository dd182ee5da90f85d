package governance

import (
	"fmt"
	"sort"

	log "github.com/agorascan/agorascan-node/common/logger"
	"github.com/agorascan/agorascan-node/common/utils"
	"github.com/agorascan/agorascan-node/storage"
	"github.com/agorascan/agorascan-node/validator"
	"github.com/jmoiron/sqlx"
)

// StatusAssessing only exists inside the tally transaction; externally a
// proposal goes COUNTING_VOTES -> CLOSED at the grace boundary.
const StatusAssessing = "ASSESSING"

// OnHeightCommitted advances every open proposal whose trigger height has
// been reached. Transitions depend only on the committed height, so replay
// reproduces them exactly.
func (p *Engine) OnHeightCommitted(dbtx *sqlx.Tx, height uint64) error {
	if !p.cfg.Governance.Enabled {
		return nil
	}

	var open []ProposalRecord
	err := dbtx.Select(&open,
		`SELECT * FROM proposals WHERE status <> ? ORDER BY proposal_id`, StatusClosed)
	if err != nil {
		return fmt.Errorf("failed to list open proposals: %w", err)
	}

	for i := range open {
		if err := p.advance(dbtx, &open[i], height); err != nil {
			return err
		}
	}
	return nil
}

func (p *Engine) advance(dbtx *sqlx.Tx, prop *ProposalRecord, height uint64) error {
	if prop.Status == StatusPending && height >= prop.VoteStartHeight {
		if err := p.setStatus(dbtx, prop, StatusVoting); err != nil {
			return err
		}
	}

	if prop.Status == StatusVoting && height > prop.VoteEndHeight {
		if err := p.setStatus(dbtx, prop, StatusCounting); err != nil {
			return err
		}
		// first decode pass; late pre-images get another chance at tally
		if err := p.decodeBallots(dbtx, prop, false); err != nil {
			return err
		}
	}

	if prop.Status == StatusCounting && height >= prop.VoteEndHeight+p.cfg.Governance.GraceBlocks {
		if err := p.setStatus(dbtx, prop, StatusAssessing); err != nil {
			return err
		}
		if err := p.decodeBallots(dbtx, prop, true); err != nil {
			return err
		}
		if err := p.tally(dbtx, prop); err != nil {
			return err
		}
		if err := p.setStatus(dbtx, prop, StatusClosed); err != nil {
			return err
		}
	}

	return nil
}

func (p *Engine) setStatus(dbtx *sqlx.Tx, prop *ProposalRecord, status string) error {
	if _, err := dbtx.Exec(
		`UPDATE proposals SET status = ? WHERE proposal_id = ?`, status, prop.ProposalID); err != nil {
		return fmt.Errorf("failed to set proposal %s status %s: %w", prop.ProposalID, status, err)
	}
	prop.Status = status
	log.Info("Proposal ", prop.ProposalID, " -> ", status)
	return nil
}

// decodeBallots decrypts accepted ballots whose answer is still pending.
// The per-validator key derives from the pre-image published for the vote
// end height; when final, a missing or failing key stamps REJECT.
func (p *Engine) decodeBallots(dbtx *sqlx.Tx, prop *ProposalRecord, final bool) error {
	var pending []BallotRecord
	err := dbtx.Select(&pending,
		`SELECT * FROM ballots WHERE proposal_id = ? AND answer = ?`,
		prop.ProposalID, BallotPending)
	if err != nil {
		return fmt.Errorf("failed to list pending ballots: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	// stake utxo per validator address, from the committee seated at vote end
	committee, err := storage.CommitteeAtTx(dbtx, prop.VoteEndHeight)
	if err != nil {
		return err
	}
	stakeByAddr := make(map[string]string, len(committee))
	for _, ent := range committee {
		stakeByAddr[ent.Address] = ent.UtxoKey
	}

	for i := range pending {
		ballot := &pending[i]
		answer, reason, ok := p.decodeOne(dbtx, prop, ballot, stakeByAddr)
		if !ok && !final {
			continue // pre-image not yet published, retry at tally
		}
		if _, err := dbtx.Exec(
			`UPDATE ballots SET answer = ?, reject_reason = ? WHERE tx_hash = ?`,
			answer, reason, ballot.TxHash); err != nil {
			return fmt.Errorf("failed to store ballot answer: %w", err)
		}
	}
	return nil
}

// decodeOne reports ok=false only for a recoverable miss (pre-image not
// yet available); every other failure is a definitive REJECT.
func (p *Engine) decodeOne(dbtx *sqlx.Tx, prop *ProposalRecord, ballot *BallotRecord, stakeByAddr map[string]string) (string, string, bool) {
	stakeUtxo, seated := stakeByAddr[ballot.ValidatorAddress]
	if !seated {
		return BallotReject, RejectUndecryptable, true
	}

	row, err := storage.PreimageRowTx(dbtx, stakeUtxo)
	if err != nil {
		return BallotReject, RejectUndecryptable, true
	}
	if row.TipHeight < prop.VoteEndHeight {
		return BallotReject, RejectUndecryptable, false // may still be published
	}

	tip, err := utils.StringToHash(row.TipHash)
	if err != nil {
		return BallotReject, RejectUndecryptable, true
	}
	preimage, err := validator.DerivePreimage(tip, row.TipHeight, prop.VoteEndHeight)
	if err != nil {
		return BallotReject, RejectUndecryptable, true
	}

	key := EncryptKeyDerive(preimage, prop.AppName, prop.ProposalID)
	answer, err := OpenBallot(key, ballot.EncryptedBallot)
	if err != nil {
		return BallotReject, RejectUndecryptable, true
	}

	switch answer {
	case AnswerYes:
		return BallotYes, "", true
	case AnswerNo:
		return BallotNo, "", true
	default:
		return BallotBlank, "", true
	}
}

// tally applies the result rule: strict YES majority among {YES, NO} and a
// turnout of at least ceil(N/3) of the committee seated at vote start.
func (p *Engine) tally(dbtx *sqlx.Tx, prop *ProposalRecord) error {
	var decoded []BallotRecord
	err := dbtx.Select(&decoded,
		`SELECT * FROM ballots WHERE proposal_id = ? AND answer IN (?, ?, ?)`,
		prop.ProposalID, BallotYes, BallotNo, BallotBlank)
	if err != nil {
		return fmt.Errorf("failed to list decoded ballots: %w", err)
	}

	// last-write-wins per validator: highest sequence, then latest block
	sort.Slice(decoded, func(i, j int) bool {
		if decoded[i].Sequence != decoded[j].Sequence {
			return decoded[i].Sequence > decoded[j].Sequence
		}
		return decoded[i].BlockHeight > decoded[j].BlockHeight
	})
	winner := make(map[string]string)
	for i := range decoded {
		addr := decoded[i].ValidatorAddress
		if _, done := winner[addr]; !done {
			winner[addr] = decoded[i].Answer
		}
	}

	var yes, no int
	for _, answer := range winner {
		switch answer {
		case BallotYes:
			yes++
		case BallotNo:
			no++
		}
	}
	voted := len(winner)

	committee, err := storage.CommitteeAtTx(dbtx, prop.VoteStartHeight)
	if err != nil {
		return err
	}
	quorum := (len(committee) + 2) / 3

	result := ResultRejected
	if yes > no && voted >= quorum {
		result = ResultPassed
	}

	if _, err := dbtx.Exec(
		`UPDATE proposals SET result = ? WHERE proposal_id = ?`, result, prop.ProposalID); err != nil {
		return fmt.Errorf("failed to store proposal result: %w", err)
	}
	prop.Result = result
	log.Info("Proposal ", prop.ProposalID, " tallied: ", result,
		" (yes=", yes, " no=", no, " voted=", voted, " quorum=", quorum, ")")
	return nil
}
