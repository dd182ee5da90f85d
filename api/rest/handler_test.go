package rest_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agorascan/agorascan-node/agora"
	"github.com/agorascan/agorascan-node/api"
	"github.com/agorascan/agorascan-node/api/rest"
	"github.com/agorascan/agorascan-node/core"
	"github.com/agorascan/agorascan-node/internal/chaintest"
	"github.com/agorascan/agorascan-node/storage"
	"github.com/agorascan/agorascan-node/validator"
	"github.com/stretchr/testify/require"
)

const cycle = 20

type fixture struct {
	server *httptest.Server
}

// newFixture serves the public API over the scenario chain: genesis with
// six enrollments plus five freeze-and-enroll transactions in block 1.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	ledger, gov := chaintest.OpenLedger(t, cycle)

	cfg := chaintest.TestConfig(cycle)
	cfg.Pool.Path = t.TempDir()
	pool, err := storage.InitPoolDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	b, err := chaintest.NewBuilder(cycle)
	require.NoError(t, err)
	b.Genesis(6)

	var txs []*core.Transaction
	var enrs []core.Enrollment
	for i := 7; i <= 11; i++ {
		tx, enr := b.FreezeAndEnroll(i)
		txs = append(txs, tx)
		enrs = append(enrs, enr)
	}
	b.NextBlock(txs, enrs)
	for _, blk := range b.Blocks() {
		require.NoError(t, ledger.PutBlock(blk))
	}

	router := rest.NewTestRouter(ledger, pool, validator.NewEngine(ledger), gov,
		agora.NewClient("http://localhost:0"), api.NewWSHub())
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &fixture{server: server}
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, rest.RestResp) {
	t.Helper()

	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope rest.RestResp
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	}
	return resp, envelope
}

func TestGetBlockHeight(t *testing.T) {
	f := newFixture(t)

	resp, envelope := f.get(t, "/block_height")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, envelope.Success)

	var height uint64
	require.NoError(t, json.Unmarshal(mustRaw(t, envelope.Data), &height))
	require.Equal(t, uint64(1), height)
}

func TestGetValidatorsAtHeight(t *testing.T) {
	f := newFixture(t)

	resp, envelope := f.get(t, "/validators?height=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var validators []rest.ValidatorResp
	require.NoError(t, json.Unmarshal(mustRaw(t, envelope.Data), &validators))
	require.Len(t, validators, 11)

	resp, envelope = f.get(t, "/validators?height=0")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(mustRaw(t, envelope.Data), &validators))
	require.Len(t, validators, 6)
}

func TestParamValidation(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{
		"/validators?height=abc",
		"/validators?height=-1",
		"/validators?height=1.5",
		"/latest-blocks?page=0",
		"/latest-blocks?pageSize=101",
		"/latest-blocks?pageSize=-3",
		"/transaction/zz-not-hex",
		"/utxo/1234",
		"/block_height_at/notatime",
		"/transaction/fees/0",
		"/block-summary", // neither height nor hash
	} {
		resp, _ := f.get(t, path)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestNotFoundIsNoContent(t *testing.T) {
	f := newFixture(t)

	unknown := "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
	for _, path := range []string{
		"/transaction/" + unknown,
		"/transaction/pending/" + unknown,
		"/transaction/status/" + unknown,
		"/proposal/does-not-exist",
	} {
		resp, err := http.Get(f.server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusNoContent, resp.StatusCode, path)
	}
}

func TestBlockSummary(t *testing.T) {
	f := newFixture(t)

	resp, envelope := f.get(t, "/block-summary?height=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary rest.BlockSummaryResp
	require.NoError(t, json.Unmarshal(mustRaw(t, envelope.Data), &summary))
	require.Equal(t, uint64(1), summary.Height)
	require.Equal(t, 5, summary.TxCount)
	require.Equal(t, 5, summary.Enrollments)
}

func TestStatsAmountsAreStrings(t *testing.T) {
	f := newFixture(t)

	resp, envelope := f.get(t, "/boa-stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// amounts that can exceed 2^53 ride as decimal strings
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(mustRaw(t, envelope.Data), &raw))
	require.Equal(t, byte('"'), raw["frozenAmount"][0])
	require.Equal(t, byte('"'), raw["circulatingSupply"][0])
}

func mustRaw(t *testing.T, data interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return raw
}
