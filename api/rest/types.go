package rest

import (
	"encoding/json"
	"strconv"
)

// General response structure
type RestResp struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Amount fields can exceed 2^53 and are encoded as decimal strings.
type Amount uint64

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(a), 10))
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*a = Amount(v)
	return nil
}

// Block header response
type BlockHeaderResp struct {
	Height      uint64 `json:"height"`
	Hash        string `json:"hash"`
	PrevHash    string `json:"prevHash"`
	MerkleRoot  string `json:"merkleRoot"`
	Signature   string `json:"signature"`
	RandomSeed  string `json:"randomSeed"`
	Time        int64  `json:"time"`
	TxCount     int    `json:"txCount"`
	Enrollments int    `json:"enrollments"`
	Validators  int    `json:"validators"`
}

// Block summary response
type BlockSummaryResp struct {
	BlockHeaderResp
	TotalSent Amount `json:"totalSent"`
	TotalFee  Amount `json:"totalFee"`
}

// Transaction list item response
type TxListResp struct {
	TxHash    string `json:"txHash"`
	Height    uint64 `json:"height"`
	BlockHash string `json:"blockHash"`
	Type      uint8  `json:"type"`
	Amount    Amount `json:"amount"`
	Fee       Amount `json:"fee"`
	Size      uint64 `json:"size"`
	Time      int64  `json:"time"`
}

// Transaction detail response
type TxDetailResp struct {
	TxHash  string         `json:"txHash"`
	Height  uint64         `json:"height"`
	Hash    string         `json:"blockHash"`
	Type    uint8          `json:"type"`
	Time    int64          `json:"time"`
	Fee     Amount         `json:"fee"`
	Size    uint64         `json:"size"`
	Payload bool           `json:"hasPayload"`
	Inputs  []TxEndpoint   `json:"inputs"`
	Outputs []TxOutputResp `json:"outputs"`
}

type TxEndpoint struct {
	Address string `json:"address"`
	Amount  Amount `json:"amount"`
	UtxoKey string `json:"utxo"`
}

type TxOutputResp struct {
	Address      string `json:"address"`
	Amount       Amount `json:"amount"`
	Type         uint8  `json:"type"`
	UtxoKey      string `json:"utxo"`
	UnlockHeight uint64 `json:"unlockHeight"`
	UsedHeight   uint64 `json:"usedHeight,omitempty"`
}

// UTXO response
type UtxoResp struct {
	UtxoKey      string `json:"utxo"`
	TxHash       string `json:"txHash"`
	OutputIndex  int    `json:"outputIndex"`
	Address      string `json:"address"`
	Amount       Amount `json:"amount"`
	Type         uint8  `json:"type"`
	LockType     uint8  `json:"lockType"`
	LockBytes    string `json:"lockBytes"`
	UnlockHeight uint64 `json:"unlockHeight"`
	Height       uint64 `json:"height"`
}

// Validator response
type ValidatorResp struct {
	Address        string `json:"address"`
	StakeUtxo      string `json:"stakeUtxo"`
	EnrolledAt     uint64 `json:"enrolledAt"`
	CycleLength    uint64 `json:"cycleLength"`
	PreimageHeight uint64 `json:"preimageHeight"`
	PreimageHash   string `json:"preimageHash"`
}

// Wallet history item response
type HistoryResp struct {
	TxHash    string `json:"txHash"`
	Height    uint64 `json:"height"`
	Time      int64  `json:"time"`
	Type      string `json:"type"`
	Amount    Amount `json:"amount"`
	Fee       Amount `json:"fee"`
	Peer      string `json:"peer"`
	PeerCount int    `json:"peerCount"`
}

// Pending transaction response
type PendingTxResp struct {
	TxHash   string      `json:"txHash"`
	SeenTime int64       `json:"seenTime"`
	Tx       interface{} `json:"tx"`
}

// Fee estimate response
type FeesResp struct {
	TxSize uint64 `json:"txSize"`
	High   Amount `json:"high"`
	Medium Amount `json:"medium"`
	Low    Amount `json:"low"`
}

// Chain stats response
type StatsResp struct {
	Height            uint64 `json:"height"`
	Transactions      Amount `json:"transactions"`
	Validators        int    `json:"validators"`
	ActiveValidators  int    `json:"activeValidators"`
	FrozenAmount      Amount `json:"frozenAmount"`
	CirculatingSupply Amount `json:"circulatingSupply"`
	TotalFees         Amount `json:"totalFees"`
	Holders           int    `json:"holders"`
}

// Holder response
type HolderResp struct {
	Address   string `json:"address"`
	Total     Amount `json:"total"`
	UtxoCount int    `json:"utxoCount"`
}

// SPV response
type SpvResp struct {
	Result bool   `json:"result"`
	Height uint64 `json:"height,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Proposal response
type ProposalResp struct {
	ProposalID      string      `json:"proposalId"`
	AppName         string      `json:"appName"`
	ProposalType    uint8       `json:"proposalType"`
	Title           string      `json:"title"`
	Proposer        string      `json:"proposer"`
	FeeDestination  string      `json:"feeDestination"`
	FeeTxHash       string      `json:"feeTxHash"`
	VoteStartHeight uint64      `json:"voteStartHeight"`
	VoteEndHeight   uint64      `json:"voteEndHeight"`
	DocHash         string      `json:"docHash"`
	FundAmount      Amount      `json:"fundAmount"`
	ProposalFee     Amount      `json:"proposalFee"`
	VoteFee         Amount      `json:"voteFee"`
	Status          string      `json:"status"`
	Result          string      `json:"result"`
	BallotCount     int         `json:"ballotCount"`
	Metadata        interface{} `json:"metadata,omitempty"`
}

// Write endpoint request bodies
type BlockExternalizedReq struct {
	Block *json.RawMessage `json:"block"`
}

type PreimageReceivedReq struct {
	Preimage *json.RawMessage `json:"preimage"`
}

type TransactionReceivedReq struct {
	Tx *json.RawMessage `json:"tx"`
}

type UtxosReq struct {
	Utxos []string `json:"utxos"`
}
