package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Governance records ride inside transaction payloads with a one-byte tag.
// Anything that does not decode cleanly is PayloadKindUnknown; the payload
// bytes themselves are still persisted with the transaction.
type PayloadKind uint8

const (
	PayloadKindUnknown PayloadKind = iota
	PayloadKindProposalFee
	PayloadKindProposal
	PayloadKindBallot
)

const (
	tagProposalFee uint8 = 0x01
	tagProposal    uint8 = 0x02
	tagBallot      uint8 = 0x03
)

// Proposal types
const (
	ProposalTypeSystem uint8 = 0
	ProposalTypeFund   uint8 = 1
)

type ProposalFeePayload struct {
	AppName    string
	ProposalID string
}

type ProposalPayload struct {
	AppName        string
	ProposalType   uint8
	ProposalID     string
	Title          string
	VoteStart      uint64
	VoteEnd        uint64
	DocHash        Hash
	FundAmount     uint64
	ProposalFee    uint64
	VoteFee        uint64
	FeeTxHash      Hash
	Proposer       Address
	FeeDestination Address
}

// VoterCard delegates one ballot signature to a temporary key. Public keys
// ride along so signatures can be checked against the claimed addresses.
type VoterCard struct {
	Validator       Address
	ValidatorPubKey []byte
	TempAddress     Address
	TempPubKey      []byte
	Expires         string
	Signature       Signature
}

type BallotPayload struct {
	AppName         string
	ProposalID      string
	EncryptedAnswer []byte
	Card            VoterCard
	Sequence        uint32
	Signature       Signature
}

// DecodePayload classifies raw transaction payload bytes. PayloadKindUnknown
// with a nil value means "not a governance record"; no error is returned.
func DecodePayload(data []byte) (PayloadKind, interface{}) {
	if len(data) < 1 {
		return PayloadKindUnknown, nil
	}

	r := bytes.NewReader(data[1:])
	switch data[0] {
	case tagProposalFee:
		p, err := decodeProposalFee(r)
		if err != nil || r.Len() != 0 {
			return PayloadKindUnknown, nil
		}
		return PayloadKindProposalFee, p
	case tagProposal:
		p, err := decodeProposal(r)
		if err != nil || r.Len() != 0 {
			return PayloadKindUnknown, nil
		}
		return PayloadKindProposal, p
	case tagBallot:
		p, err := decodeBallot(r)
		if err != nil || r.Len() != 0 {
			return PayloadKindUnknown, nil
		}
		return PayloadKindBallot, p
	}
	return PayloadKindUnknown, nil
}

func decodeProposalFee(r *bytes.Reader) (*ProposalFeePayload, error) {
	var p ProposalFeePayload
	var err error
	if p.AppName, err = readString(r); err != nil {
		return nil, err
	}
	if p.ProposalID, err = readString(r); err != nil {
		return nil, err
	}
	return &p, nil
}

func decodeProposal(r *bytes.Reader) (*ProposalPayload, error) {
	var p ProposalPayload
	var err error
	if p.AppName, err = readString(r); err != nil {
		return nil, err
	}
	if err = binary.Read(r, binary.LittleEndian, &p.ProposalType); err != nil {
		return nil, err
	}
	if p.ProposalID, err = readString(r); err != nil {
		return nil, err
	}
	if p.Title, err = readString(r); err != nil {
		return nil, err
	}
	if err = binary.Read(r, binary.LittleEndian, &p.VoteStart); err != nil {
		return nil, err
	}
	if err = binary.Read(r, binary.LittleEndian, &p.VoteEnd); err != nil {
		return nil, err
	}
	if _, err = io.ReadFull(r, p.DocHash[:]); err != nil {
		return nil, err
	}
	if err = binary.Read(r, binary.LittleEndian, &p.FundAmount); err != nil {
		return nil, err
	}
	if err = binary.Read(r, binary.LittleEndian, &p.ProposalFee); err != nil {
		return nil, err
	}
	if err = binary.Read(r, binary.LittleEndian, &p.VoteFee); err != nil {
		return nil, err
	}
	if _, err = io.ReadFull(r, p.FeeTxHash[:]); err != nil {
		return nil, err
	}
	if _, err = io.ReadFull(r, p.Proposer[:]); err != nil {
		return nil, err
	}
	if _, err = io.ReadFull(r, p.FeeDestination[:]); err != nil {
		return nil, err
	}
	return &p, nil
}

func decodeBallot(r *bytes.Reader) (*BallotPayload, error) {
	var p BallotPayload
	var err error
	if p.AppName, err = readString(r); err != nil {
		return nil, err
	}
	if p.ProposalID, err = readString(r); err != nil {
		return nil, err
	}
	if p.EncryptedAnswer, err = readBytes(r); err != nil {
		return nil, err
	}
	if _, err = io.ReadFull(r, p.Card.Validator[:]); err != nil {
		return nil, err
	}
	if p.Card.ValidatorPubKey, err = readBytes(r); err != nil {
		return nil, err
	}
	if _, err = io.ReadFull(r, p.Card.TempAddress[:]); err != nil {
		return nil, err
	}
	if p.Card.TempPubKey, err = readBytes(r); err != nil {
		return nil, err
	}
	if p.Card.Expires, err = readString(r); err != nil {
		return nil, err
	}
	if _, err = io.ReadFull(r, p.Card.Signature[:]); err != nil {
		return nil, err
	}
	if err = binary.Read(r, binary.LittleEndian, &p.Sequence); err != nil {
		return nil, err
	}
	if _, err = io.ReadFull(r, p.Signature[:]); err != nil {
		return nil, err
	}
	return &p, nil
}

// Encoders are used by the chain generator and tests; the service itself
// only decodes.

func (p *ProposalFeePayload) Encode() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(tagProposalFee)
	writeString(buf, p.AppName)
	writeString(buf, p.ProposalID)
	return buf.Bytes()
}

func (p *ProposalPayload) Encode() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(tagProposal)
	writeString(buf, p.AppName)
	binary.Write(buf, binary.LittleEndian, p.ProposalType)
	writeString(buf, p.ProposalID)
	writeString(buf, p.Title)
	binary.Write(buf, binary.LittleEndian, p.VoteStart)
	binary.Write(buf, binary.LittleEndian, p.VoteEnd)
	buf.Write(p.DocHash[:])
	binary.Write(buf, binary.LittleEndian, p.FundAmount)
	binary.Write(buf, binary.LittleEndian, p.ProposalFee)
	binary.Write(buf, binary.LittleEndian, p.VoteFee)
	buf.Write(p.FeeTxHash[:])
	buf.Write(p.Proposer[:])
	buf.Write(p.FeeDestination[:])
	return buf.Bytes()
}

func (p *BallotPayload) Encode() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(tagBallot)
	writeString(buf, p.AppName)
	writeString(buf, p.ProposalID)
	writeBytes(buf, p.EncryptedAnswer)
	buf.Write(p.Card.Validator[:])
	writeBytes(buf, p.Card.ValidatorPubKey)
	buf.Write(p.Card.TempAddress[:])
	writeBytes(buf, p.Card.TempPubKey)
	writeString(buf, p.Card.Expires)
	buf.Write(p.Card.Signature[:])
	binary.Write(buf, binary.LittleEndian, p.Sequence)
	buf.Write(p.Signature[:])
	return buf.Bytes()
}

// SigningBytes is what the validator key signs when delegating to the
// temporary key.
func (c *VoterCard) SigningBytes() []byte {
	buf := new(bytes.Buffer)
	buf.Write(c.Validator[:])
	writeBytes(buf, c.ValidatorPubKey)
	buf.Write(c.TempAddress[:])
	writeBytes(buf, c.TempPubKey)
	writeString(buf, c.Expires)
	return buf.Bytes()
}

// SigningBytes is what the temporary key signs over the ballot body.
func (p *BallotPayload) SigningBytes() []byte {
	buf := new(bytes.Buffer)
	writeString(buf, p.AppName)
	writeString(buf, p.ProposalID)
	writeBytes(buf, p.EncryptedAnswer)
	binary.Write(buf, binary.LittleEndian, p.Sequence)
	return buf.Bytes()
}

const maxFieldLen = 1 << 16 // single payload fields never come close

func readString(r *bytes.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if int(n) > maxFieldLen || int(n) > r.Len() {
		return nil, fmt.Errorf("field length %d out of range", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func writeString(buf *bytes.Buffer, s string) {
	writeBytes(buf, []byte(s))
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	binary.Write(buf, binary.LittleEndian, uint32(len(b)))
	buf.Write(b)
}
