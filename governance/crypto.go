package governance

import (
	"crypto/rand"
	"fmt"

	"github.com/agorascan/agorascan-node/common/utils"
	prt "github.com/agorascan/agorascan-node/protocol"
	"golang.org/x/crypto/chacha20poly1305"
)

// Ballot answers on the wire (single plaintext byte)
const (
	AnswerYes   byte = 0
	AnswerNo    byte = 1
	AnswerBlank byte = 2
)

// EncryptKeyDerive는 투표 복호화 키 유도:
//
//	key = hash( hash_multi(preimage(vote_end), app_name) || proposal_id )
//
// 검증자가 vote_end까지 프리이미지를 공개해야만 키가 존재한다.
func EncryptKeyDerive(preimage prt.Hash, appName, proposalID string) []byte {
	seed := utils.HashMulti(preimage[:], []byte(appName))
	key := utils.HashMulti(seed[:], []byte(proposalID))
	return key[:]
}

// SealBallot encrypts a single answer byte. Layout: nonce || box.
// Used by the chain generator and tests; the service only opens.
func SealBallot(key []byte, answer byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build ballot cipher: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to draw ballot nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, []byte{answer}, nil)
	return append(nonce, sealed...), nil
}

// OpenBallot decrypts an encrypted answer. Any failure, including an
// out-of-range plaintext, is reported as an error and the ballot becomes
// REJECT.
func OpenBallot(key, ciphertext []byte) (byte, error) {
	if len(ciphertext) <= chacha20poly1305.NonceSize {
		return 0, fmt.Errorf("ballot ciphertext too short: %d bytes", len(ciphertext))
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return 0, fmt.Errorf("failed to build ballot cipher: %w", err)
	}

	nonce := ciphertext[:chacha20poly1305.NonceSize]
	plain, err := aead.Open(nil, nonce, ciphertext[chacha20poly1305.NonceSize:], nil)
	if err != nil {
		return 0, fmt.Errorf("ballot decryption failed: %w", err)
	}
	if len(plain) != 1 || plain[0] > AnswerBlank {
		return 0, fmt.Errorf("ballot plaintext malformed")
	}
	return plain[0], nil
}
