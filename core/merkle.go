package core

import (
	"github.com/agorascan/agorascan-node/common/utils"
	prt "github.com/agorascan/agorascan-node/protocol"
)

// MerkleRoot는 트랜잭션 해시 목록의 머클 루트
// 홀수 레벨은 마지막 해시를 복제해서 짝을 맞춘다
func MerkleRoot(hashes []prt.Hash) prt.Hash {
	if len(hashes) == 0 {
		return prt.Hash{}
	}

	level := make([]prt.Hash, len(hashes))
	copy(level, hashes)

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]prt.Hash, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, utils.HashMulti(level[i][:], level[i+1][:]))
		}
		level = next
	}

	return level[0]
}

// MerklePath는 index 위치 트랜잭션의 감사 경로 (레벨당 형제 해시)
func MerklePath(hashes []prt.Hash, index uint64) []prt.Hash {
	if int(index) >= len(hashes) {
		return nil
	}

	level := make([]prt.Hash, len(hashes))
	copy(level, hashes)

	var path []prt.Hash
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}

		sibling := index ^ 1
		path = append(path, level[sibling])

		next := make([]prt.Hash, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, utils.HashMulti(level[i][:], level[i+1][:]))
		}
		level = next
		index /= 2
	}

	return path
}

// VerifyMerklePath는 표준 bottom-up 폴드로 경로를 접어 루트와 비교
// 각 레벨의 짝 순서는 인덱스 최하위 비트가 결정한다
func VerifyMerklePath(txHash prt.Hash, index uint64, path []prt.Hash, root prt.Hash) bool {
	acc := txHash
	for _, sibling := range path {
		if index&1 == 0 {
			acc = utils.HashMulti(acc[:], sibling[:])
		} else {
			acc = utils.HashMulti(sibling[:], acc[:])
		}
		index /= 2
	}
	return acc == root
}
