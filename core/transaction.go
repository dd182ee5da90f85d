package core

import (
	"fmt"

	"github.com/agorascan/agorascan-node/common/utils"
	prt "github.com/agorascan/agorascan-node/protocol"
)

// 트랜잭션 와이어 모델
type Transaction struct {
	Type    uint8       `json:"type"` // Payment / Freeze / Coinbase
	Inputs  []*TxInput  `json:"inputs"`
	Outputs []*TxOutput `json:"outputs"` // 잔돈 때문에 단일 출력이 아닌 다중 출력이어야함
	Payload []byte      `json:"payload"` // 거버넌스 레코드가 실리는 불투명 바이트
}

type TxInput struct {
	UtxoKey prt.Hash      `json:"utxo"`   // 소비하는 UTXO 키
	Unlock  prt.Signature `json:"unlock"` // 소유자 서명
}

type TxOutput struct {
	Address      prt.Address `json:"address"`
	Amount       uint64      `json:"amount"`
	Type         uint8       `json:"type"`         // Payment / Freeze / Coinbase
	LockType     uint8       `json:"lockType"`     // LockKey: lock bytes == address
	UnlockHeight uint64      `json:"unlockHeight"` // 0이면 즉시 사용 가능
}

// Hash는 내용으로부터 결정적 트랜잭션 해시를 계산
func (p *Transaction) Hash() prt.Hash {
	normalized := *p
	if normalized.Inputs == nil {
		normalized.Inputs = []*TxInput{}
	}
	if normalized.Outputs == nil {
		normalized.Outputs = []*TxOutput{}
	}
	if normalized.Payload == nil {
		normalized.Payload = []byte{}
	}
	return utils.Hash(normalized)
}

// Size는 저장용 트랜잭션 크기 (JSON 직렬화 길이)
func (p *Transaction) Size() uint64 {
	data, err := utils.SerializeData(p, utils.SerializationFormatJSON)
	if err != nil {
		return 0
	}
	return uint64(len(data))
}

// OutputSum은 출력 금액 합계
func (p *Transaction) OutputSum() uint64 {
	var sum uint64
	for _, out := range p.Outputs {
		sum += out.Amount
	}
	return sum
}

// UtxoKeyAt은 이 트랜잭션의 출력 인덱스에 대한 UTXO 키
func (p *Transaction) UtxoKeyAt(outputIndex uint64) prt.Hash {
	return utils.HashUtxoKey(p.Hash(), outputIndex)
}

func (p *Transaction) ValidateShape() error {
	switch p.Type {
	case prt.TxPayment, prt.TxFreeze, prt.TxCoinbase:
	default:
		return fmt.Errorf("unknown transaction type %d", p.Type)
	}
	if p.Type == prt.TxCoinbase && len(p.Inputs) > 0 {
		return fmt.Errorf("coinbase transaction carries inputs")
	}
	if p.Type != prt.TxCoinbase && len(p.Inputs) == 0 {
		return fmt.Errorf("transaction has no inputs")
	}
	if len(p.Outputs) == 0 {
		return fmt.Errorf("transaction has no outputs")
	}
	return nil
}

// TxHashes는 블록 내 트랜잭션 해시 목록
func TxHashes(txs []*Transaction) []prt.Hash {
	hashes := make([]prt.Hash, 0, len(txs))
	for _, tx := range txs {
		hashes = append(hashes, tx.Hash())
	}
	return hashes
}
