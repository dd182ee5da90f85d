// Package agora is the pull client for the consensus node. It only reads;
// the node's ledger is the source of truth and is never mutated from here.
package agora

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/agorascan/agorascan-node/common/utils"
	"github.com/agorascan/agorascan-node/core"
	prt "github.com/agorascan/agorascan-node/protocol"
)

// Client는 합의 노드 API 클라이언트
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient는 새 합의 노드 클라이언트 생성
func NewClient(endpoint string) *Client {
	return &Client{
		baseURL: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetTipHeight는 합의 노드의 현재 최고 높이
func (c *Client) GetTipHeight(ctx context.Context) (uint64, error) {
	body, err := c.get(ctx, "/block_height", nil)
	if err != nil {
		return 0, err
	}

	height, err := strconv.ParseUint(string(body), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid block_height response: %w", err)
	}
	return height, nil
}

// GetBlocksFrom은 start부터 최대 count개의 연속 블록 (짧게 올 수 있음)
func (c *Client) GetBlocksFrom(ctx context.Context, start uint64, count uint) ([]*core.Block, error) {
	query := url.Values{}
	query.Set("height", utils.Uint64ToString(start))
	query.Set("max_blocks", strconv.FormatUint(uint64(count), 10))

	body, err := c.get(ctx, "/blocks_from", query)
	if err != nil {
		return nil, err
	}

	var blocks []*core.Block
	if err := json.Unmarshal(body, &blocks); err != nil {
		return nil, fmt.Errorf("invalid blocks_from response: %w", err)
	}

	// keep only the contiguous prefix starting at the requested height
	expected := start
	for i, blk := range blocks {
		if blk.Header.Height != expected {
			return blocks[:i], nil
		}
		expected++
	}
	return blocks, nil
}

// GetMerklePath는 블록 머클 루트 재계산에 필요한 형제 해시 목록
func (c *Client) GetMerklePath(ctx context.Context, height uint64, txHash prt.Hash) ([]prt.Hash, error) {
	path := fmt.Sprintf("/merkle_path/%d/%s", height, utils.HashToString(txHash))
	body, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var hashes []prt.Hash
	if err := json.Unmarshal(body, &hashes); err != nil {
		return nil, fmt.Errorf("invalid merkle_path response: %w", err)
	}
	return hashes, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agora request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agora returned status %d for %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read agora response: %w", err)
	}
	return body, nil
}
