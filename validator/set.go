// Package validator computes "who is a validator at height H" from the
// committed enrollments plus the pre-image registry.
package validator

import (
	"fmt"

	"github.com/agorascan/agorascan-node/common/utils"
	prt "github.com/agorascan/agorascan-node/protocol"
	"github.com/agorascan/agorascan-node/storage"
)

// Validator 정보
type Validator struct {
	Address     prt.Address `json:"address"`
	UtxoKey     prt.Hash    `json:"stakeUtxo"`
	EnrolledAt  uint64      `json:"enrolledAt"`
	CycleLength uint64      `json:"cycleLength"`
	Commitment  prt.Hash    `json:"commitment"`
	TipHeight   uint64      `json:"preimageHeight"`
	TipHash     prt.Hash    `json:"preimageHash"`
}

// Engine은 저장소 위의 순수 뷰; 상태는 전부 ledger에 있다
type Engine struct {
	ledger *storage.LedgerDB
}

func NewEngine(ledger *storage.LedgerDB) *Engine {
	return &Engine{ledger: ledger}
}

// ActiveAt returns the committee at the height in canonical address order.
// Window edges are inclusive on both sides so a re-enrollment in the expiry
// block keeps the validator seated without a gap.
func (p *Engine) ActiveAt(height uint64) ([]*Validator, error) {
	rows, err := p.ledger.CommitteeAt(height)
	if err != nil {
		return nil, err
	}

	vals := make([]*Validator, 0, len(rows))
	for _, row := range rows {
		v, err := recordToValidator(&row)
		if err != nil {
			return nil, err
		}
		if tip, err := storage.PreimageRowTx(p.ledger.DB(), row.UtxoKey); err == nil {
			v.TipHeight = tip.TipHeight
			if h, err := utils.StringToHash(tip.TipHash); err == nil {
				v.TipHash = h
			}
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// ActiveAvailableAt intersects the committee with pre-image availability:
// only validators whose revealed tip covers the height remain.
func (p *Engine) ActiveAvailableAt(height uint64) ([]*Validator, error) {
	vals, err := p.ActiveAt(height)
	if err != nil {
		return nil, err
	}

	available := make([]*Validator, 0, len(vals))
	for _, v := range vals {
		if v.TipHeight >= height {
			available = append(available, v)
		}
	}
	return available, nil
}

// ByAddress finds a committee member at the height.
func (p *Engine) ByAddress(address prt.Address, height uint64) (*Validator, error) {
	vals, err := p.ActiveAt(height)
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		if v.Address == address {
			return v, nil
		}
	}
	return nil, storage.ErrNotFound
}

// PreimageAt derives the pre-image a validator published for the target
// height, re-hashing down from the stored tip.
func (p *Engine) PreimageAt(utxoKey prt.Hash, target uint64) (prt.Hash, error) {
	row, err := storage.PreimageRowTx(p.ledger.DB(), utils.HashToString(utxoKey))
	if err != nil {
		return prt.Hash{}, err
	}
	if target < row.AnchorHeight {
		return prt.Hash{}, fmt.Errorf("height %d precedes anchor %d", target, row.AnchorHeight)
	}

	tip, err := utils.StringToHash(row.TipHash)
	if err != nil {
		return prt.Hash{}, err
	}
	return DerivePreimage(tip, row.TipHeight, target)
}

func recordToValidator(row *storage.EnrollmentRecord) (*Validator, error) {
	addr, err := utils.StringToAddress(row.Address)
	if err != nil {
		return nil, fmt.Errorf("corrupt enrollment address %s: %w", row.Address, err)
	}
	utxo, err := utils.StringToHash(row.UtxoKey)
	if err != nil {
		return nil, fmt.Errorf("corrupt enrollment utxo %s: %w", row.UtxoKey, err)
	}
	commit, err := utils.StringToHash(row.Commitment)
	if err != nil {
		return nil, fmt.Errorf("corrupt enrollment commitment %s: %w", row.Commitment, err)
	}

	return &Validator{
		Address:     addr,
		UtxoKey:     utxo,
		EnrolledAt:  row.EnrolledAt,
		CycleLength: row.CycleLength,
		Commitment:  commit,
	}, nil
}
