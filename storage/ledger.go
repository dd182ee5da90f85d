package storage

import (
	"database/sql"
	"fmt"

	"github.com/agorascan/agorascan-node/common/utils"
	"github.com/agorascan/agorascan-node/core"
	prt "github.com/agorascan/agorascan-node/protocol"
	"github.com/jmoiron/sqlx"
)

type BlockRecord struct {
	Height           uint64 `db:"height"`
	Hash             string `db:"hash"`
	PrevHash         string `db:"prev_hash"`
	MerkleRoot       string `db:"merkle_root"`
	Signature        string `db:"signature"`
	RandomSeed       string `db:"random_seed"`
	TimeOffset       uint64 `db:"time_offset"`
	TimeStamp        int64  `db:"time_stamp"`
	TxCount          int    `db:"tx_count"`
	EnrollmentCount  int    `db:"enrollment_count"`
	ActiveValidators int    `db:"active_validators"`
}

type TxRecord struct {
	BlockHeight uint64 `db:"block_height"`
	TxIndex     int    `db:"tx_index"`
	TxHash      string `db:"tx_hash"`
	Type        uint8  `db:"type"`
	Payload     []byte `db:"payload"`
	Fee         uint64 `db:"fee"`
	TxSize      uint64 `db:"tx_size"`
	TimeStamp   int64  `db:"time_stamp"`
}

type OutputRecord struct {
	BlockHeight  uint64        `db:"block_height"`
	TxIndex      int           `db:"tx_index"`
	OutputIndex  int           `db:"output_index"`
	TxHash       string        `db:"tx_hash"`
	UtxoKey      string        `db:"utxo_key"`
	Address      string        `db:"address"`
	Amount       uint64        `db:"amount"`
	Type         uint8         `db:"type"`
	LockType     uint8         `db:"lock_type"`
	LockBytes    string        `db:"lock_bytes"`
	UnlockHeight uint64        `db:"unlock_height"`
	UsedHeight   sql.NullInt64 `db:"used_height"`
}

type EnrollmentRecord struct {
	EnrolledAt  uint64 `db:"enrolled_at"`
	UtxoKey     string `db:"utxo_key"`
	Address     string `db:"address"`
	Commitment  string `db:"commitment"`
	CycleLength uint64 `db:"cycle_length"`
	EnrollSig   string `db:"enroll_sig"`
}

type PreimageRecord struct {
	UtxoKey      string `db:"utxo_key"`
	Address      string `db:"address"`
	AnchorHeight uint64 `db:"anchor_height"`
	CycleLength  uint64 `db:"cycle_length"`
	TipHash      string `db:"tip_hash"`
	TipHeight    uint64 `db:"tip_height"`
}

// ExpectedNextHeight는 커밋된 최대 높이 + 1, 비어 있으면 0
func (p *LedgerDB) ExpectedNextHeight() (uint64, error) {
	var next uint64
	err := p.db.Get(&next, `SELECT COALESCE(MAX(height) + 1, 0) FROM blocks`)
	if err != nil {
		return 0, fmt.Errorf("failed to read expected height: %w", err)
	}
	return next, nil
}

// PutBlock commits one block and every projection it implies in a single
// transaction: header, transactions, outputs, input consumption,
// enrollments, pre-image advances from the header vector, and governance
// effects. All-or-nothing.
func (p *LedgerDB) PutBlock(blk *core.Block) error {
	return p.Atomic(func(dbtx *sqlx.Tx) error {
		var next uint64
		if err := dbtx.Get(&next, `SELECT COALESCE(MAX(height) + 1, 0) FROM blocks`); err != nil {
			return fmt.Errorf("failed to read expected height: %w", err)
		}
		h := blk.Header.Height
		if h < next {
			return ErrDuplicateBlock
		}
		if h > next {
			return fmt.Errorf("block height %d ahead of expected %d", h, next)
		}

		timeStamp := core.BlockTime(h, blk.Header.TimeOffset, p.genesisTimestamp, p.blockInterval)

		// tx rows first: outputs must exist before inputs and enrollments
		// of the same block resolve against them
		txRecs := make([]*TxRecord, 0, len(blk.Transactions))
		for i, tx := range blk.Transactions {
			rec, err := p.putTransaction(dbtx, blk, i, tx, timeStamp)
			if err != nil {
				return err
			}
			txRecs = append(txRecs, rec)
		}

		// enrollments carried in the header
		for _, enr := range blk.Header.Enrollments {
			if err := p.putEnrollment(dbtx, h, &enr); err != nil {
				return err
			}
		}

		// header pre-image vector, committee address order
		active, err := p.applyHeaderPreimages(dbtx, blk)
		if err != nil {
			return err
		}

		_, err = dbtx.Exec(
			`INSERT INTO blocks (height, hash, prev_hash, merkle_root, signature, random_seed,
				time_offset, time_stamp, tx_count, enrollment_count, active_validators)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			h, utils.HashToString(blk.Header.Hash), utils.HashToString(blk.Header.PrevHash),
			utils.HashToString(blk.Header.MerkleRoot), utils.SignatureToString(blk.Header.Signature),
			utils.HashToString(blk.Header.RandomSeed), blk.Header.TimeOffset, timeStamp,
			len(blk.Transactions), len(blk.Header.Enrollments), active)
		if err != nil {
			return fmt.Errorf("failed to insert block %d: %w", h, err)
		}

		if p.gov != nil {
			for _, rec := range txRecs {
				if len(rec.Payload) == 0 {
					continue
				}
				if err := p.gov.OnTxCommitted(dbtx, h, rec); err != nil {
					return err
				}
			}
			if err := p.gov.OnHeightCommitted(dbtx, h); err != nil {
				return err
			}
		}

		return nil
	})
}

func (p *LedgerDB) putTransaction(dbtx *sqlx.Tx, blk *core.Block, index int, tx *core.Transaction, timeStamp int64) (*TxRecord, error) {
	h := blk.Header.Height
	txHash := tx.Hash()
	txHashStr := utils.HashToString(txHash)

	// consume inputs and accumulate the implicit fee
	var inputSum uint64
	for inIdx, in := range tx.Inputs {
		utxoStr := utils.HashToString(in.UtxoKey)

		var out OutputRecord
		err := dbtx.Get(&out,
			`SELECT * FROM tx_outputs WHERE utxo_key = ? AND used_height IS NULL`, utxoStr)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("tx %s input %d spends unknown utxo %s", txHashStr, inIdx, utxoStr)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve input utxo: %w", err)
		}
		inputSum += out.Amount

		if _, err := dbtx.Exec(
			`UPDATE tx_outputs SET used_height = ? WHERE utxo_key = ?`, h, utxoStr); err != nil {
			return nil, fmt.Errorf("failed to mark utxo spent: %w", err)
		}

		if _, err := dbtx.Exec(
			`INSERT INTO tx_inputs (block_height, tx_index, in_index, tx_hash, utxo_key, unlock_sig)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			h, index, inIdx, txHashStr, utxoStr, utils.SignatureToString(in.Unlock)); err != nil {
			return nil, fmt.Errorf("failed to insert tx input: %w", err)
		}
	}

	var fee uint64
	if tx.Type != prt.TxCoinbase {
		outSum := tx.OutputSum()
		if inputSum < outSum {
			return nil, fmt.Errorf("tx %s outputs %d exceed inputs %d", txHashStr, outSum, inputSum)
		}
		fee = inputSum - outSum
	}

	for outIdx, out := range tx.Outputs {
		utxoKey := utils.HashUtxoKey(txHash, uint64(outIdx))
		addrStr := utils.AddressToString(out.Address)
		if _, err := dbtx.Exec(
			`INSERT INTO tx_outputs (block_height, tx_index, output_index, tx_hash, utxo_key,
				address, amount, type, lock_type, lock_bytes, unlock_height, used_height)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
			h, index, outIdx, txHashStr, utils.HashToString(utxoKey),
			addrStr, out.Amount, out.Type, out.LockType, addrStr, out.UnlockHeight); err != nil {
			return nil, fmt.Errorf("failed to insert tx output: %w", err)
		}
	}

	rec := &TxRecord{
		BlockHeight: h,
		TxIndex:     index,
		TxHash:      txHashStr,
		Type:        tx.Type,
		Payload:     tx.Payload,
		Fee:         fee,
		TxSize:      tx.Size(),
		TimeStamp:   timeStamp,
	}
	_, err := dbtx.Exec(
		`INSERT INTO transactions (block_height, tx_index, tx_hash, type, payload, fee, tx_size, time_stamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.BlockHeight, rec.TxIndex, rec.TxHash, rec.Type, rec.Payload, rec.Fee, rec.TxSize, rec.TimeStamp)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	return rec, nil
}

func (p *LedgerDB) putEnrollment(dbtx *sqlx.Tx, height uint64, enr *core.Enrollment) error {
	utxoStr := utils.HashToString(enr.UtxoKey)

	// the stake must be a committed freeze output
	var out OutputRecord
	err := dbtx.Get(&out,
		`SELECT * FROM tx_outputs WHERE utxo_key = ? AND used_height IS NULL`, utxoStr)
	if err == sql.ErrNoRows {
		return fmt.Errorf("enrollment references unknown utxo %s", utxoStr)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve enrollment utxo: %w", err)
	}
	if out.Type != prt.TxFreeze {
		return fmt.Errorf("enrollment utxo %s is not a freeze output", utxoStr)
	}

	if _, err := dbtx.Exec(
		`INSERT INTO enrollments (enrolled_at, utxo_key, address, commitment, cycle_length, enroll_sig)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		height, utxoStr, out.Address, utils.HashToString(enr.Commitment),
		enr.CycleLength, utils.SignatureToString(enr.EnrollSig)); err != nil {
		return fmt.Errorf("failed to insert enrollment: %w", err)
	}

	// re-anchor the pre-image chain at this enrollment
	if _, err := dbtx.Exec(`DELETE FROM preimages WHERE utxo_key = ?`, utxoStr); err != nil {
		return fmt.Errorf("failed to reset preimage anchor: %w", err)
	}
	if _, err := dbtx.Exec(
		`INSERT INTO preimages (utxo_key, address, anchor_height, cycle_length, tip_hash, tip_height)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		utxoStr, out.Address, height, enr.CycleLength,
		utils.HashToString(enr.Commitment), height); err != nil {
		return fmt.Errorf("failed to insert preimage anchor: %w", err)
	}

	return nil
}

// applyHeaderPreimages walks the header's pre-image vector in committee
// address order, advancing tips for every non-zero entry. An entry at its
// enrollment's expiry height (enrolled_at+cycle) is counted but not stored,
// since stored tips stay below anchor+cycle. Returns the number of non-zero
// entries.
func (p *LedgerDB) applyHeaderPreimages(dbtx *sqlx.Tx, blk *core.Block) (int, error) {
	h := blk.Header.Height
	committee, err := CommitteeAtTx(dbtx, h)
	if err != nil {
		return 0, err
	}

	var zero prt.Hash
	active := 0
	for i, ent := range committee {
		if i >= len(blk.Header.Preimages) {
			break
		}
		img := blk.Header.Preimages[i]
		if img == zero {
			continue
		}
		active++
		if h >= ent.EnrolledAt+ent.CycleLength {
			continue // expiry-block entry, past the storable tip range
		}
		if _, err := updatePreimageTx(dbtx, ent.UtxoKey, utils.HashToString(img), h); err != nil {
			if err == ErrStaleTip || err == ErrNotFound {
				continue // re-delivery or pre-anchor entry
			}
			return 0, err
		}
	}
	return active, nil
}

// UpdatePreimage advances the stored tip for a stake utxo. Monotone: a tip
// not strictly newer changes nothing and reports false.
func (p *LedgerDB) UpdatePreimage(utxoKey prt.Hash, tip prt.Hash, tipHeight uint64) (bool, error) {
	changed := false
	err := p.Atomic(func(dbtx *sqlx.Tx) error {
		c, err := updatePreimageTx(dbtx, utils.HashToString(utxoKey), utils.HashToString(tip), tipHeight)
		if err != nil {
			return err
		}
		changed = c
		return nil
	})
	if err == ErrStaleTip {
		return false, nil
	}
	return changed, err
}

func updatePreimageTx(dbtx *sqlx.Tx, utxoKey, tip string, tipHeight uint64) (bool, error) {
	var row PreimageRecord
	err := dbtx.Get(&row, `SELECT * FROM preimages WHERE utxo_key = ?`, utxoKey)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to load preimage row: %w", err)
	}

	if tipHeight <= row.TipHeight {
		return false, ErrStaleTip
	}
	if tipHeight >= row.AnchorHeight+row.CycleLength {
		return false, fmt.Errorf("preimage height %d outside cycle anchored at %d", tipHeight, row.AnchorHeight)
	}

	// the new tip must hash down to the stored one
	stored, err := utils.StringToHash(row.TipHash)
	if err != nil {
		return false, err
	}
	next, err := utils.StringToHash(tip)
	if err != nil {
		return false, err
	}
	acc := next
	for i := row.TipHeight; i < tipHeight; i++ {
		acc = utils.HashBytes(acc[:])
	}
	if acc != stored {
		return false, fmt.Errorf("preimage chain mismatch for utxo %s at height %d", utxoKey, tipHeight)
	}

	if _, err := dbtx.Exec(
		`UPDATE preimages SET tip_hash = ?, tip_height = ? WHERE utxo_key = ?`,
		tip, tipHeight, utxoKey); err != nil {
		return false, fmt.Errorf("failed to update preimage tip: %w", err)
	}
	return true, nil
}

// committeeQuery selects the newest enrollment per stake utxo whose window
// covers the height. Window edges are inclusive so a re-enrollment in the
// expiry block hands over without a gap.
const committeeQuery = `
	SELECT e.enrolled_at, e.utxo_key, e.address, e.commitment, e.cycle_length, e.enroll_sig
	FROM enrollments e
	WHERE e.enrolled_at <= ? AND ? <= e.enrolled_at + e.cycle_length
	  AND e.enrolled_at = (
		SELECT MAX(e2.enrolled_at) FROM enrollments e2
		WHERE e2.utxo_key = e.utxo_key AND e2.enrolled_at <= ?)
	ORDER BY e.address, e.utxo_key`

// CommitteeAtTx returns the committee at the height, canonical address order.
func CommitteeAtTx(q sqlx.Queryer, height uint64) ([]EnrollmentRecord, error) {
	var rows []EnrollmentRecord
	if err := sqlx.Select(q, &rows, committeeQuery, height, height, height); err != nil {
		return nil, fmt.Errorf("failed to query committee: %w", err)
	}
	return rows, nil
}

// CommitteeAt is the read-side variant over the pooled handle.
func (p *LedgerDB) CommitteeAt(height uint64) ([]EnrollmentRecord, error) {
	return CommitteeAtTx(p.db, height)
}

// PreimageRowTx fetches the stored tip row for a stake utxo.
func PreimageRowTx(q sqlx.Queryer, utxoKey string) (*PreimageRecord, error) {
	var row PreimageRecord
	err := sqlx.Get(q, &row, `SELECT * FROM preimages WHERE utxo_key = ?`, utxoKey)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load preimage row: %w", err)
	}
	return &row, nil
}
