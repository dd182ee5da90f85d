package rest

import (
	"net/http"

	"github.com/agorascan/agorascan-node/agora"
	"github.com/agorascan/agorascan-node/api"
	"github.com/agorascan/agorascan-node/governance"
	"github.com/agorascan/agorascan-node/storage"
	"github.com/agorascan/agorascan-node/validator"
)

// NewTestRouter exposes the public router to the external test package.
func NewTestRouter(ledger *storage.LedgerDB, pool *storage.PoolDB, engine *validator.Engine,
	gov *governance.Engine, client *agora.Client, wsHub *api.WSHub) http.Handler {
	return setupPublicRouter(ledger, pool, engine, gov, client, wsHub)
}
