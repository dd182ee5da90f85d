package storage

import (
	"database/sql"
	"fmt"

	prt "github.com/agorascan/agorascan-node/protocol"
	"github.com/jmoiron/sqlx"
)

// Read-side surface backing the public API. Every call is a single
// snapshot-consistent query set over the pooled handle.

type TxListItem struct {
	TxHash      string `db:"tx_hash"`
	BlockHeight uint64 `db:"block_height"`
	BlockHash   string `db:"block_hash"`
	Type        uint8  `db:"type"`
	Fee         uint64 `db:"fee"`
	TxSize      uint64 `db:"tx_size"`
	TimeStamp   int64  `db:"time_stamp"`
	Amount      uint64 `db:"amount"`
}

type TxDetail struct {
	Tx      TxRecord
	Block   BlockRecord
	Inputs  []OutputRecord // the outputs this tx consumed
	Outputs []OutputRecord
}

type HistoryItem struct {
	TxHash      string
	BlockHeight uint64
	TimeStamp   int64
	Direction   string // inbound, outbound, freeze, payload
	Amount      uint64
	Fee         uint64
	Peer        string
	PeerCount   int
}

type HolderRecord struct {
	Address     string `db:"address"`
	TotalAmount uint64 `db:"total_amount"`
	UtxoCount   int    `db:"utxo_count"`
}

type ChainStats struct {
	Height            uint64
	TotalTransactions uint64
	TotalValidators   int
	ActiveValidators  int
	FrozenAmount      uint64
	CirculatingSupply uint64
	TotalFees         uint64
	HolderCount       int
}

func (p *LedgerDB) LatestHeight() (uint64, error) {
	next, err := p.ExpectedNextHeight()
	if err != nil {
		return 0, err
	}
	if next == 0 {
		return 0, ErrNotFound
	}
	return next - 1, nil
}

func (p *LedgerDB) BlockByHeight(height uint64) (*BlockRecord, error) {
	var rec BlockRecord
	err := p.db.Get(&rec, `SELECT * FROM blocks WHERE height = ?`, height)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query block %d: %w", height, err)
	}
	return &rec, nil
}

func (p *LedgerDB) BlockByHash(hash string) (*BlockRecord, error) {
	var rec BlockRecord
	err := p.db.Get(&rec, `SELECT * FROM blocks WHERE hash = ?`, hash)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query block %s: %w", hash, err)
	}
	return &rec, nil
}

// HeightAtTime은 주어진 시각 이전에 커밋된 최대 높이
func (p *LedgerDB) HeightAtTime(unixSeconds int64) (uint64, error) {
	var height sql.NullInt64
	err := p.db.Get(&height, `SELECT MAX(height) FROM blocks WHERE time_stamp <= ?`, unixSeconds)
	if err != nil {
		return 0, fmt.Errorf("failed to query height at time: %w", err)
	}
	if !height.Valid {
		return 0, ErrNotFound
	}
	return uint64(height.Int64), nil
}

func (p *LedgerDB) LatestBlocks(page, pageSize int) ([]BlockRecord, error) {
	var recs []BlockRecord
	err := p.db.Select(&recs,
		`SELECT * FROM blocks ORDER BY height DESC LIMIT ? OFFSET ?`,
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest blocks: %w", err)
	}
	return recs, nil
}

func (p *LedgerDB) LatestTransactions(page, pageSize int) ([]TxListItem, error) {
	var items []TxListItem
	err := p.db.Select(&items,
		`SELECT t.tx_hash, t.block_height, b.hash AS block_hash, t.type, t.fee, t.tx_size, t.time_stamp,
			COALESCE((SELECT SUM(o.amount) FROM tx_outputs o WHERE o.tx_hash = t.tx_hash), 0) AS amount
		 FROM transactions t JOIN blocks b ON b.height = t.block_height
		 ORDER BY t.block_height DESC, t.tx_index DESC LIMIT ? OFFSET ?`,
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest transactions: %w", err)
	}
	return items, nil
}

func (p *LedgerDB) BlockTransactions(height uint64, page, pageSize int) ([]TxListItem, error) {
	var items []TxListItem
	err := p.db.Select(&items,
		`SELECT t.tx_hash, t.block_height, b.hash AS block_hash, t.type, t.fee, t.tx_size, t.time_stamp,
			COALESCE((SELECT SUM(o.amount) FROM tx_outputs o WHERE o.tx_hash = t.tx_hash), 0) AS amount
		 FROM transactions t JOIN blocks b ON b.height = t.block_height
		 WHERE t.block_height = ?
		 ORDER BY t.tx_index LIMIT ? OFFSET ?`,
		height, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query block transactions: %w", err)
	}
	return items, nil
}

func (p *LedgerDB) BlockEnrollments(height uint64, page, pageSize int) ([]EnrollmentRecord, error) {
	var recs []EnrollmentRecord
	err := p.db.Select(&recs,
		`SELECT * FROM enrollments WHERE enrolled_at = ? ORDER BY address LIMIT ? OFFSET ?`,
		height, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query block enrollments: %w", err)
	}
	return recs, nil
}

func (p *LedgerDB) TxByHash(hash string) (*TxDetail, error) {
	var detail TxDetail
	err := p.db.Get(&detail.Tx, `SELECT * FROM transactions WHERE tx_hash = ?`, hash)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction %s: %w", hash, err)
	}

	if err := p.db.Get(&detail.Block, `SELECT * FROM blocks WHERE height = ?`, detail.Tx.BlockHeight); err != nil {
		return nil, fmt.Errorf("failed to query tx block: %w", err)
	}

	err = p.db.Select(&detail.Inputs,
		`SELECT o.* FROM tx_inputs i JOIN tx_outputs o ON o.utxo_key = i.utxo_key
		 WHERE i.tx_hash = ? ORDER BY i.in_index`, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to query tx inputs: %w", err)
	}

	err = p.db.Select(&detail.Outputs,
		`SELECT * FROM tx_outputs WHERE tx_hash = ? ORDER BY output_index`, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to query tx outputs: %w", err)
	}

	return &detail, nil
}

// TxBlockIndex locates a committed transaction for SPV verification.
func (p *LedgerDB) TxBlockIndex(hash string) (height uint64, index uint64, merkleRoot string, err error) {
	var row struct {
		BlockHeight uint64 `db:"block_height"`
		TxIndex     uint64 `db:"tx_index"`
		MerkleRoot  string `db:"merkle_root"`
	}
	err = p.db.Get(&row,
		`SELECT t.block_height, t.tx_index, b.merkle_root
		 FROM transactions t JOIN blocks b ON b.height = t.block_height
		 WHERE t.tx_hash = ?`, hash)
	if err == sql.ErrNoRows {
		return 0, 0, "", ErrNotFound
	}
	if err != nil {
		return 0, 0, "", fmt.Errorf("failed to locate tx: %w", err)
	}
	return row.BlockHeight, row.TxIndex, row.MerkleRoot, nil
}

func (p *LedgerDB) UtxosByAddress(address string) ([]OutputRecord, error) {
	var recs []OutputRecord
	err := p.db.Select(&recs,
		`SELECT * FROM tx_outputs WHERE address = ? AND used_height IS NULL
		 ORDER BY block_height, tx_index, output_index`, address)
	if err != nil {
		return nil, fmt.Errorf("failed to query utxos for %s: %w", address, err)
	}
	return recs, nil
}

func (p *LedgerDB) UtxosByKeys(keys []string) ([]OutputRecord, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM tx_outputs WHERE utxo_key IN (?)`, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to build utxo query: %w", err)
	}
	var recs []OutputRecord
	if err := p.db.Select(&recs, p.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query utxos: %w", err)
	}
	return recs, nil
}

// HistoryFilter narrows the wallet transaction history query.
type HistoryFilter struct {
	Types     []string // inbound, outbound, freeze, payload
	BeginDate int64
	EndDate   int64
	Peer      string
}

// WalletTxHistory lists every committed transaction touching the address,
// newest first, with per-row direction, moved amount and counterparty.
func (p *LedgerDB) WalletTxHistory(address string, page, pageSize int, filter HistoryFilter) ([]HistoryItem, error) {
	query := `
		SELECT t.* FROM transactions t
		WHERE (EXISTS (SELECT 1 FROM tx_outputs o WHERE o.tx_hash = t.tx_hash AND o.address = ?)
		   OR EXISTS (SELECT 1 FROM tx_inputs i JOIN tx_outputs po ON po.utxo_key = i.utxo_key
		              WHERE i.tx_hash = t.tx_hash AND po.address = ?))`
	args := []interface{}{address, address}

	if filter.BeginDate > 0 {
		query += ` AND t.time_stamp >= ?`
		args = append(args, filter.BeginDate)
	}
	if filter.EndDate > 0 {
		query += ` AND t.time_stamp <= ?`
		args = append(args, filter.EndDate)
	}
	query += ` ORDER BY t.block_height DESC, t.tx_index DESC`

	var txs []TxRecord
	if err := p.db.Select(&txs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query wallet history: %w", err)
	}

	items := make([]HistoryItem, 0, len(txs))
	for i := range txs {
		item, err := p.historyItem(address, &txs[i])
		if err != nil {
			return nil, err
		}
		if !matchHistoryFilter(item, filter) {
			continue
		}
		items = append(items, *item)
	}

	// paginate after direction filtering so pages stay dense
	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], nil
}

func (p *LedgerDB) historyItem(address string, tx *TxRecord) (*HistoryItem, error) {
	var spent []OutputRecord
	err := p.db.Select(&spent,
		`SELECT o.* FROM tx_inputs i JOIN tx_outputs o ON o.utxo_key = i.utxo_key
		 WHERE i.tx_hash = ?`, tx.TxHash)
	if err != nil {
		return nil, fmt.Errorf("failed to query history inputs: %w", err)
	}
	var outs []OutputRecord
	err = p.db.Select(&outs,
		`SELECT * FROM tx_outputs WHERE tx_hash = ? ORDER BY output_index`, tx.TxHash)
	if err != nil {
		return nil, fmt.Errorf("failed to query history outputs: %w", err)
	}

	var spentByAddr, receivedByAddr, frozeByAddr uint64
	for _, o := range spent {
		if o.Address == address {
			spentByAddr += o.Amount
		}
	}
	for _, o := range outs {
		if o.Address == address {
			receivedByAddr += o.Amount
			if o.Type == prt.TxFreeze {
				frozeByAddr += o.Amount
			}
		}
	}

	item := &HistoryItem{
		TxHash:      tx.TxHash,
		BlockHeight: tx.BlockHeight,
		TimeStamp:   tx.TimeStamp,
		Fee:         tx.Fee,
	}

	switch {
	case frozeByAddr > 0:
		item.Direction = "freeze"
		item.Amount = frozeByAddr
	case spentByAddr > 0:
		item.Direction = "outbound"
		item.Amount = spentByAddr - receivedByAddr // change comes back
	default:
		item.Direction = "inbound"
		item.Amount = receivedByAddr
	}
	if len(tx.Payload) > 0 {
		item.Direction = "payload"
	}

	// counterparty: first address on the other side
	peers := make(map[string]bool)
	if item.Direction == "inbound" {
		for _, o := range spent {
			if o.Address != address {
				peers[o.Address] = true
			}
		}
	} else {
		for _, o := range outs {
			if o.Address != address {
				peers[o.Address] = true
			}
		}
	}
	for peer := range peers {
		if item.Peer == "" || peer < item.Peer {
			item.Peer = peer
		}
	}
	item.PeerCount = len(peers)

	return item, nil
}

func matchHistoryFilter(item *HistoryItem, filter HistoryFilter) bool {
	if filter.Peer != "" && item.Peer != filter.Peer {
		return false
	}
	if len(filter.Types) == 0 {
		return true
	}
	for _, t := range filter.Types {
		if item.Direction == t {
			return true
		}
	}
	return false
}

func (p *LedgerDB) Holders(page, pageSize int) ([]HolderRecord, error) {
	var recs []HolderRecord
	err := p.db.Select(&recs,
		`SELECT address, SUM(amount) AS total_amount, COUNT(*) AS utxo_count
		 FROM tx_outputs WHERE used_height IS NULL
		 GROUP BY address ORDER BY total_amount DESC, address LIMIT ? OFFSET ?`,
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query holders: %w", err)
	}
	return recs, nil
}

// Stats computes the rolling aggregates served by /boa-stats and pushed on
// the stats channel.
func (p *LedgerDB) Stats() (*ChainStats, error) {
	var stats ChainStats

	height, err := p.LatestHeight()
	if err == ErrNotFound {
		return &stats, nil
	}
	if err != nil {
		return nil, err
	}
	stats.Height = height

	if err := p.db.Get(&stats.TotalTransactions, `SELECT COUNT(*) FROM transactions`); err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}
	if err := p.db.Get(&stats.TotalFees, `SELECT COALESCE(SUM(fee), 0) FROM transactions`); err != nil {
		return nil, fmt.Errorf("failed to sum fees: %w", err)
	}
	if err := p.db.Get(&stats.FrozenAmount,
		`SELECT COALESCE(SUM(amount), 0) FROM tx_outputs WHERE used_height IS NULL AND type = 1`); err != nil {
		return nil, fmt.Errorf("failed to sum frozen: %w", err)
	}
	if err := p.db.Get(&stats.CirculatingSupply,
		`SELECT COALESCE(SUM(amount), 0) FROM tx_outputs WHERE used_height IS NULL AND type <> 1`); err != nil {
		return nil, fmt.Errorf("failed to sum supply: %w", err)
	}
	if err := p.db.Get(&stats.HolderCount,
		`SELECT COUNT(DISTINCT address) FROM tx_outputs WHERE used_height IS NULL`); err != nil {
		return nil, fmt.Errorf("failed to count holders: %w", err)
	}

	committee, err := p.CommitteeAt(height)
	if err != nil {
		return nil, err
	}
	stats.TotalValidators = len(committee)

	var active sql.NullInt64
	if err := p.db.Get(&active, `SELECT active_validators FROM blocks WHERE height = ?`, height); err == nil && active.Valid {
		stats.ActiveValidators = int(active.Int64)
	}

	return &stats, nil
}

// BlockAggregates sums what a block moved and what it paid in fees.
func (p *LedgerDB) BlockAggregates(height uint64) (totalSent, totalFee uint64, err error) {
	if err = p.db.Get(&totalSent,
		`SELECT COALESCE(SUM(amount), 0) FROM tx_outputs WHERE block_height = ?`, height); err != nil {
		return 0, 0, fmt.Errorf("failed to sum block outputs: %w", err)
	}
	if err = p.db.Get(&totalFee,
		`SELECT COALESCE(SUM(fee), 0) FROM transactions WHERE block_height = ?`, height); err != nil {
		return 0, 0, fmt.Errorf("failed to sum block fees: %w", err)
	}
	return totalSent, totalFee, nil
}
