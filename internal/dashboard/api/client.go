package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client는 인덱서 read API 클라이언트
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient는 새 API 클라이언트 생성
func NewClient(host string, port int) *Client {
	return &Client{
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// RestResp는 API 응답 래퍼
type RestResp struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Stats는 /boa-stats 응답
type Stats struct {
	Height            uint64 `json:"height"`
	Transactions      string `json:"transactions"`
	Validators        int    `json:"validators"`
	ActiveValidators  int    `json:"activeValidators"`
	FrozenAmount      string `json:"frozenAmount"`
	CirculatingSupply string `json:"circulatingSupply"`
	Holders           int    `json:"holders"`
}

// BlockHeader는 /latest-blocks 항목
type BlockHeader struct {
	Height      uint64 `json:"height"`
	Hash        string `json:"hash"`
	Time        int64  `json:"time"`
	TxCount     int    `json:"txCount"`
	Enrollments int    `json:"enrollments"`
	Validators  int    `json:"validators"`
}

// Proposal은 /proposals 항목
type Proposal struct {
	ProposalID      string `json:"proposalId"`
	Title           string `json:"title"`
	Status          string `json:"status"`
	Result          string `json:"result"`
	VoteStartHeight uint64 `json:"voteStartHeight"`
	VoteEndHeight   uint64 `json:"voteEndHeight"`
	BallotCount     int    `json:"ballotCount"`
}

func (c *Client) get(path string, out interface{}) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil // empty result, leave out untouched
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	var envelope RestResp
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	if !envelope.Success {
		return fmt.Errorf("api error: %s", envelope.Error)
	}
	if out != nil && envelope.Data != nil {
		return json.Unmarshal(envelope.Data, out)
	}
	return nil
}

// GetHeight는 현재 인덱싱 높이
func (c *Client) GetHeight() (uint64, error) {
	var height uint64
	if err := c.get("/block_height", &height); err != nil {
		return 0, err
	}
	return height, nil
}

// GetStats는 체인 집계
func (c *Client) GetStats() (*Stats, error) {
	var stats Stats
	if err := c.get("/boa-stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetLatestBlocks는 최근 블록 목록
func (c *Client) GetLatestBlocks(count int) ([]BlockHeader, error) {
	var blocks []BlockHeader
	if err := c.get(fmt.Sprintf("/latest-blocks?pageSize=%d", count), &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// GetProposals는 거버넌스 제안 목록
func (c *Client) GetProposals() ([]Proposal, error) {
	var proposals []Proposal
	if err := c.get("/proposals", &proposals); err != nil {
		return nil, err
	}
	return proposals, nil
}
