package utils

import (
	"crypto/sha256"
	"fmt"

	prt "github.com/agorascan/agorascan-node/protocol"
)

// 인터페이스를 가져와 해당 내용을 해싱한 후 해시를 반환
// JSON 직렬화 사용 - GOB는 네트워크 전송 후 해시가 달라지는 문제 있음
func Hash(i interface{}) prt.Hash {
	data, err := SerializeData(i, SerializationFormatJSON)
	if err != nil {
		s := fmt.Sprintf("%v", i)
		return sha256.Sum256([]byte(s))
	}
	return sha256.Sum256(data)
}

// HashBytes 바이트 배열을 해싱
func HashBytes(b []byte) prt.Hash {
	return sha256.Sum256(b)
}

// HashMulti 여러 조각을 이어붙여 한 번에 해싱
func HashMulti(parts ...[]byte) prt.Hash {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out prt.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// HashUtxoKey 트랜잭션 해시와 출력 인덱스로 UTXO 키 파생
func HashUtxoKey(txHash prt.Hash, outputIndex uint64) prt.Hash {
	return HashMulti(txHash[:], Uint64ToBytes(outputIndex))
}
