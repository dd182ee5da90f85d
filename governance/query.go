package governance

import (
	"database/sql"
	"fmt"

	"github.com/agorascan/agorascan-node/storage"
)

// Read-side queries backing /proposals and /proposal/:id.

type ProposalSummary struct {
	ProposalRecord
	BallotCount int `db:"ballot_count"`
}

func (p *Engine) Proposals(page, pageSize int) ([]ProposalSummary, error) {
	var rows []ProposalSummary
	err := p.ledger.DB().Select(&rows,
		`SELECT p.*,
			(SELECT COUNT(*) FROM ballots b
			 WHERE b.proposal_id = p.proposal_id AND b.answer <> ?) AS ballot_count
		 FROM proposals p
		 ORDER BY p.block_height DESC, p.proposal_id
		 LIMIT ? OFFSET ?`,
		BallotReject, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query proposals: %w", err)
	}
	return rows, nil
}

type ProposalDetail struct {
	Proposal ProposalSummary
	Metadata *ProposalMetadata
	Ballots  []BallotRecord
}

func (p *Engine) ProposalByID(proposalID string) (*ProposalDetail, error) {
	var detail ProposalDetail
	err := p.ledger.DB().Get(&detail.Proposal.ProposalRecord,
		`SELECT * FROM proposals WHERE proposal_id = ?`, proposalID)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query proposal %s: %w", proposalID, err)
	}

	err = p.ledger.DB().Select(&detail.Ballots,
		`SELECT * FROM ballots WHERE proposal_id = ?
		 ORDER BY block_height, validator_address`, proposalID)
	if err != nil {
		return nil, fmt.Errorf("failed to query proposal ballots: %w", err)
	}
	for _, b := range detail.Ballots {
		if b.Answer != BallotReject {
			detail.Proposal.BallotCount++
		}
	}

	detail.Metadata, _ = p.MetadataFor(proposalID)
	return &detail, nil
}
