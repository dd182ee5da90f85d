package governance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/agorascan/agorascan-node/common/logger"
)

// Proposal metadata comes from a separate governance front-end service.
// It is cosmetic: a missing record never blocks a status transition.

type ProposalMetadata struct {
	ProposalID  string   `json:"proposalId" db:"proposal_id"`
	Title       string   `json:"title" db:"title"`
	Description string   `json:"description" db:"description"`
	Attachments []string `json:"attachments" db:"-"`
}

type metadataRow struct {
	ProposalID  string `db:"proposal_id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Attachments string `db:"attachments"` // json array
}

// SyncMetadata pulls metadata for proposals that have none yet. Meant to
// run on a ticker from the app; failures are logged and retried next round.
func (p *Engine) SyncMetadata(ctx context.Context) {
	if !p.cfg.Governance.Enabled || p.cfg.Governance.MetadataEndpoint == "" {
		return
	}

	var missing []string
	err := p.ledger.DB().Select(&missing,
		`SELECT p.proposal_id FROM proposals p
		 WHERE NOT EXISTS (SELECT 1 FROM proposal_metadata m WHERE m.proposal_id = p.proposal_id)`)
	if err != nil {
		log.Warn("Metadata sync: failed to list proposals: ", err)
		return
	}

	client := &http.Client{Timeout: 5 * time.Second}
	for _, id := range missing {
		meta, err := fetchMetadata(ctx, client, p.cfg.Governance.MetadataEndpoint, id)
		if err != nil {
			log.Debug("Metadata sync: ", id, ": ", err)
			continue
		}
		if err := p.storeMetadata(meta); err != nil {
			log.Warn("Metadata sync: failed to store ", id, ": ", err)
		}
	}
}

func fetchMetadata(ctx context.Context, client *http.Client, endpoint, proposalID string) (*ProposalMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/proposal/%s", endpoint, proposalID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata service returned %d", resp.StatusCode)
	}

	var meta ProposalMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, err
	}
	meta.ProposalID = proposalID
	return &meta, nil
}

func (p *Engine) storeMetadata(meta *ProposalMetadata) error {
	attachments, err := json.Marshal(meta.Attachments)
	if err != nil {
		return err
	}
	_, err = p.ledger.DB().Exec(
		`REPLACE INTO proposal_metadata (proposal_id, title, description, attachments)
		 VALUES (?, ?, ?, ?)`,
		meta.ProposalID, meta.Title, meta.Description, string(attachments))
	return err
}

// MetadataFor returns stored metadata, nil when absent.
func (p *Engine) MetadataFor(proposalID string) (*ProposalMetadata, error) {
	var row metadataRow
	err := p.ledger.DB().Get(&row,
		`SELECT * FROM proposal_metadata WHERE proposal_id = ?`, proposalID)
	if err != nil {
		return nil, nil // absent metadata is not an error
	}

	meta := &ProposalMetadata{
		ProposalID:  row.ProposalID,
		Title:       row.Title,
		Description: row.Description,
	}
	json.Unmarshal([]byte(row.Attachments), &meta.Attachments)
	return meta, nil
}
