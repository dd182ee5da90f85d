package validator

import (
	"fmt"

	"github.com/agorascan/agorascan-node/common/utils"
	prt "github.com/agorascan/agorascan-node/protocol"
)

// 프리이미지 체인은 앵커 커밋에서 시작해 위로 자란다. 저장소에는 tip만 두고
// 이전 높이는 재해싱으로 유도한다:
//
//	preimage(T) = hash^(tipHeight-T)(tip)    T <= tipHeight
//
// 커밋 자체가 앵커 높이의 프리이미지다.

// DerivePreimage는 tip에서 target 높이의 프리이미지를 유도
func DerivePreimage(tip prt.Hash, tipHeight, target uint64) (prt.Hash, error) {
	if target > tipHeight {
		return prt.Hash{}, fmt.Errorf("preimage for height %d not yet revealed (tip %d)", target, tipHeight)
	}

	acc := tip
	for i := target; i < tipHeight; i++ {
		acc = utils.HashBytes(acc[:])
	}
	return acc, nil
}

// VerifyPreimageChain은 새 tip이 기존 tip으로 해싱되어 내려가는지 확인
func VerifyPreimageChain(oldTip prt.Hash, oldHeight uint64, newTip prt.Hash, newHeight uint64) bool {
	if newHeight <= oldHeight {
		return false
	}
	derived, err := DerivePreimage(newTip, newHeight, oldHeight)
	if err != nil {
		return false
	}
	return derived == oldTip
}

// BuildPreimageChain은 시드로부터 [anchor, anchor+length] 구간의 체인을 생성
// (테스트와 체인 생성 도구용). 반환 슬라이스의 i번째 원소가 anchor+i의
// 프리이미지이고, 마지막에서 앞으로 갈수록 한 번씩 더 해싱된 값이다.
func BuildPreimageChain(seed prt.Hash, length uint64) []prt.Hash {
	chain := make([]prt.Hash, length+1)
	chain[length] = seed
	for i := int(length) - 1; i >= 0; i-- {
		chain[i] = utils.HashBytes(chain[i+1][:])
	}
	return chain
}
