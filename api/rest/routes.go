package rest

import (
	"net/http"

	"github.com/agorascan/agorascan-node/agora"
	"github.com/agorascan/agorascan-node/api"
	"github.com/agorascan/agorascan-node/governance"
	"github.com/agorascan/agorascan-node/ingest"
	"github.com/agorascan/agorascan-node/storage"
	"github.com/agorascan/agorascan-node/validator"
	"github.com/gorilla/mux"
)

func setupPublicRouter(ledger *storage.LedgerDB, pool *storage.PoolDB, engine *validator.Engine,
	gov *governance.Engine, client *agora.Client, wsHub *api.WSHub) http.Handler {
	r := mux.NewRouter()

	// Middleware setup
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(NewRateLimiter(nil).Middleware)

	// Base route
	r.HandleFunc("/", HomeHandler).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws", api.HandleWebSocket(wsHub))

	// Chain height
	r.HandleFunc("/block_height", GetBlockHeight(ledger)).Methods("GET")
	r.HandleFunc("/block_height_at/{time}", GetBlockHeightAt(ledger)).Methods("GET")

	// Validators
	r.HandleFunc("/validators", GetValidators(ledger, engine)).Methods("GET")
	r.HandleFunc("/validator/{address}", GetValidator(ledger, engine)).Methods("GET")

	// Transactions
	r.HandleFunc("/transaction/pending/{hash}", GetPendingTransaction(pool)).Methods("GET")
	r.HandleFunc("/transaction/status/{hash}", GetTransactionStatus(ledger, pool)).Methods("GET")
	r.HandleFunc("/transaction/fees/{tx_size}", GetTransactionFees()).Methods("GET")
	r.HandleFunc("/transaction/{hash}", GetTransaction(ledger)).Methods("GET")

	// UTXO lookups
	r.HandleFunc("/utxo/{address}", GetUtxos(ledger)).Methods("GET")
	r.HandleFunc("/utxos", PostUtxos(ledger)).Methods("POST")

	// Wallet surface
	r.HandleFunc("/wallet/transactions/history/{address}", GetWalletTxHistory(ledger)).Methods("GET")
	r.HandleFunc("/wallet/transaction/overview/{hash}", GetWalletTxOverview(ledger)).Methods("GET")
	r.HandleFunc("/wallet/transactions/pending/{address}", GetWalletPendingTxs(pool)).Methods("GET")
	r.HandleFunc("/wallet/blocks/header", GetBlockHeader(ledger)).Methods("GET")

	// Explorer surface
	r.HandleFunc("/latest-blocks", GetLatestBlocks(ledger)).Methods("GET")
	r.HandleFunc("/latest-transactions", GetLatestTransactions(ledger)).Methods("GET")
	r.HandleFunc("/block-summary", GetBlockSummary(ledger)).Methods("GET")
	r.HandleFunc("/block-enrollments", GetBlockEnrollments(ledger)).Methods("GET")
	r.HandleFunc("/block-transactions", GetBlockTransactions(ledger)).Methods("GET")
	r.HandleFunc("/boa-stats", GetStats(ledger)).Methods("GET")
	r.HandleFunc("/holders", GetHolders(ledger)).Methods("GET")

	// SPV proof
	r.HandleFunc("/spv/{hash}", GetSpv(ledger, client)).Methods("GET")

	// Governance
	r.HandleFunc("/proposals", GetProposals(gov)).Methods("GET")
	r.HandleFunc("/proposal/{proposal_id}", GetProposal(gov)).Methods("GET")

	return r
}

func setupPrivateRouter(pipeline *ingest.Pipeline) http.Handler {
	r := mux.NewRouter()

	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.HandleFunc("/block_externalized", PostBlockExternalized(pipeline)).Methods("POST")
	r.HandleFunc("/preimage_received", PostPreimageReceived(pipeline)).Methods("POST")
	r.HandleFunc("/transaction_received", PostTransactionReceived(pipeline)).Methods("POST")

	return r
}
