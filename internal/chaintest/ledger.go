package chaintest

import (
	"testing"

	"github.com/agorascan/agorascan-node/config"
	"github.com/agorascan/agorascan-node/governance"
	"github.com/agorascan/agorascan-node/storage"
)

// TestConfig mirrors the test-net constants: cycle 20, one block a second.
func TestConfig(cycle uint64) *config.Config {
	return &config.Config{
		Database: config.Database{
			Driver: "sqlite3",
			Name:   ":memory:",
		},
		Consensus: config.Consensus{
			GenesisTimestamp:     1_600_000_000,
			BlockIntervalSeconds: 1,
			ValidatorCycle:       cycle,
		},
		Governance: config.Governance{
			Enabled:     true,
			GraceBlocks: 7,
		},
	}
}

// OpenLedger returns an in-memory ledger with the governance engine wired
// the way the app wires it.
func OpenLedger(tb testing.TB, cycle uint64) (*storage.LedgerDB, *governance.Engine) {
	tb.Helper()

	cfg := TestConfig(cycle)
	ledger, err := storage.OpenLedger(cfg)
	if err != nil {
		tb.Fatalf("failed to open test ledger: %v", err)
	}
	tb.Cleanup(func() { ledger.Close() })

	gov := governance.NewEngine(cfg, ledger)
	ledger.SetGovernanceHook(gov)
	return ledger, gov
}
