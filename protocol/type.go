package protocol

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

type Address [20]byte
type Hash [32]byte
type Signature [72]byte // Set to max length

// Transaction types as delivered by the consensus node
const (
	TxPayment  uint8 = 0
	TxFreeze   uint8 = 1
	TxCoinbase uint8 = 2
)

// Output lock types
const (
	LockKey uint8 = 0 // lock bytes hold the owning address
)

func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + hex.EncodeToString(h[:]))
}

func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if len(s) >= 2 && s[0:2] == "0x" {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hash string: %v", err)
	}
	if len(b) != 32 {
		return fmt.Errorf("invalid hash length: %d (need 32 bytes)", len(b))
	}
	copy(h[:], b)
	return nil
}

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + hex.EncodeToString(a[:]))
}

func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if len(s) >= 2 && s[0:2] == "0x" {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid address string: %v", err)
	}
	if len(b) != 20 {
		return fmt.Errorf("invalid address length: %d (need 20 bytes)", len(b))
	}
	copy(a[:], b)
	return nil
}

func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + hex.EncodeToString(s[:]))
}

func (s *Signature) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	if len(str) >= 2 && str[0:2] == "0x" {
		str = str[2:]
	}
	b, err := hex.DecodeString(str)
	if err != nil {
		return fmt.Errorf("invalid signature string: %v", err)
	}
	if len(b) > 72 {
		return fmt.Errorf("invalid signature length: %d (max 72 bytes)", len(b))
	}
	copy(s[:], b)
	return nil
}
