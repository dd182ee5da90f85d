package protocol

// Key prefixes for the LevelDB transaction-pool store. The relational ledger
// has its own schema; only the best-effort pool projection lives here.
const (
	// Pool metadata
	PrefixPoolMeta = "pool:meta" // pool:meta = entry count

	// Pool transaction related prefixes
	PrefixPoolTx     = "pool:tx:"   // pool:tx:TxHash = pending transaction data
	PrefixPoolByAddr = "pool:addr:" // pool:addr:Address = pending tx hash set
	PrefixPoolSeen   = "pool:seen:" // pool:seen:TxHash = first-seen unix time
)
