package core

import (
	"fmt"
	"sort"

	"github.com/agorascan/agorascan-node/common/utils"
	prt "github.com/agorascan/agorascan-node/protocol"
)

// Block은 합의 노드가 externalize한 블록의 와이어 모델
type Block struct {
	Header       BlockHeader    `json:"header"`       // 블록 헤더
	Transactions []*Transaction `json:"transactions"` // 트랜잭션 목록
}

type BlockHeader struct {
	Hash        prt.Hash      `json:"hash"`        // 블록 해시
	PrevHash    prt.Hash      `json:"prevHash"`    // 이전 블록 해시
	Height      uint64        `json:"height"`      // 블록 높이
	MerkleRoot  prt.Hash      `json:"merkleRoot"`  // 트랜잭션 머클 루트
	Signature   prt.Signature `json:"signature"`   // 합의 서명 (구조 검증만)
	RandomSeed  prt.Hash      `json:"randomSeed"`  // 커밋된 랜덤 시드
	TimeOffset  uint64        `json:"timeOffset"`  // 제네시스 기준 보정 초
	Enrollments []Enrollment  `json:"enrollments"` // 이 블록에 포함된 등록
	Preimages   []prt.Hash    `json:"preimages"`   // 위원회 주소순 프리이미지 (미공개는 zero-hash)
}

// Enrollment는 동결 지분 UTXO를 건 validator 등록
type Enrollment struct {
	UtxoKey     prt.Hash      `json:"utxo"`
	Commitment  prt.Hash      `json:"commitment"` // 해시체인 앵커 커밋
	CycleLength uint64        `json:"cycleLength"`
	EnrollSig   prt.Signature `json:"enrollSig"`
}

// ComputeHash는 해시 필드를 비운 헤더로부터 블록 해시를 계산
func (p *Block) ComputeHash() prt.Hash {
	hdr := p.Header
	hdr.Hash = prt.Hash{}
	return utils.Hash(hdr)
}

// Time은 프로토콜 상수로부터 블록 시각을 유도 (저장된 타임스탬프 없음)
func (p *Block) Time(genesisTimestamp int64, blockIntervalSeconds uint64) int64 {
	return BlockTime(p.Header.Height, p.Header.TimeOffset, genesisTimestamp, blockIntervalSeconds)
}

func BlockTime(height, timeOffset uint64, genesisTimestamp int64, blockIntervalSeconds uint64) int64 {
	return genesisTimestamp + int64(height*blockIntervalSeconds) + int64(timeOffset)
}

// HeightAt은 주어진 unix 시각 이전에 생성됐을 최대 블록 높이
func HeightAt(unixSeconds, genesisTimestamp int64, blockIntervalSeconds uint64) (uint64, error) {
	if unixSeconds < genesisTimestamp {
		return 0, fmt.Errorf("timestamp %d precedes genesis %d", unixSeconds, genesisTimestamp)
	}
	if blockIntervalSeconds == 0 {
		return 0, fmt.Errorf("block interval is zero")
	}
	return uint64(unixSeconds-genesisTimestamp) / blockIntervalSeconds, nil
}

// ValidateShape는 intake 수락 전의 구조 검증
// 합의 서명의 암호학적 검증은 하지 않는다
func (p *Block) ValidateShape() error {
	if p.ComputeHash() != p.Header.Hash {
		return fmt.Errorf("block hash mismatch at height %d", p.Header.Height)
	}
	if root := MerkleRoot(TxHashes(p.Transactions)); root != p.Header.MerkleRoot {
		return fmt.Errorf("merkle root mismatch at height %d", p.Header.Height)
	}
	for i, tx := range p.Transactions {
		if err := tx.ValidateShape(); err != nil {
			return fmt.Errorf("tx %d: %w", i, err)
		}
	}
	return nil
}

// SortAddresses는 위원회의 표준 주소 순서 (바이트 오름차순)
func SortAddresses(addrs []prt.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		for k := range addrs[i] {
			if addrs[i][k] != addrs[j][k] {
				return addrs[i][k] < addrs[j][k]
			}
		}
		return false
	})
}
