package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agorascan/agorascan-node/agora"
	"github.com/agorascan/agorascan-node/common/utils"
	"github.com/agorascan/agorascan-node/core"
	"github.com/agorascan/agorascan-node/governance"
	"github.com/agorascan/agorascan-node/storage"
	"github.com/agorascan/agorascan-node/validator"
	"github.com/gorilla/mux"
)

// Per-byte fee rates for the estimate endpoint.
const (
	feeRateLow    uint64 = 200
	feeRateMedium uint64 = 250
	feeRateHigh   uint64 = 300
)

// get home response
func HomeHandler(w http.ResponseWriter, r *http.Request) {
	info := map[string]string{
		"name":    "Agorascan Indexing API",
		"version": "1.0.0",
	}
	sendResp(w, http.StatusOK, info, nil)
}

// get current ledger height response
func GetBlockHeight(ledger *storage.LedgerDB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		height, err := ledger.LatestHeight()
		if err != nil {
			sendStoreErr(w, err)
			return
		}
		sendResp(w, http.StatusOK, height, nil)
	}
}

// get height at unix time response
func GetBlockHeightAt(ledger *storage.LedgerDB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		when, err := strconv.ParseInt(vars["time"], 10, 64)
		if err != nil || when < 0 {
			sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("invalid timestamp: %q", vars["time"]))
			return
		}

		height, err := ledger.HeightAtTime(when)
		if err != nil {
			sendStoreErr(w, err)
			return
		}
		sendResp(w, http.StatusOK, height, nil)
	}
}

// get validator set response
func GetValidators(ledger *storage.LedgerDB, engine *validator.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		height, ok, err := parseHeightQuery(r)
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}
		if !ok {
			if height, err = ledger.LatestHeight(); err != nil {
				sendStoreErr(w, err)
				return
			}
		}

		vals, err := engine.ActiveAt(height)
		if err != nil {
			sendStoreErr(w, err)
			return
		}
		if len(vals) == 0 {
			sendResp(w, http.StatusNoContent, nil, nil)
			return
		}
		sendResp(w, http.StatusOK, formatValidators(vals), nil)
	}
}

// get single validator response
func GetValidator(ledger *storage.LedgerDB, engine *validator.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address, err := utils.StringToAddress(mux.Vars(r)["address"])
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		height, ok, err := parseHeightQuery(r)
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}
		if !ok {
			if height, err = ledger.LatestHeight(); err != nil {
				sendStoreErr(w, err)
				return
			}
		}

		val, err := engine.ByAddress(address, height)
		if err != nil {
			sendStoreErr(w, err)
			return
		}
		sendResp(w, http.StatusOK, formatValidators([]*validator.Validator{val})[0], nil)
	}
}

// get committed transaction response
func GetTransaction(ledger *storage.LedgerDB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash, err := utils.StringToHash(mux.Vars(r)["hash"])
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		detail, err := ledger.TxByHash(utils.HashToString(hash))
		if err != nil {
			sendStoreErr(w, err)
			return
		}
		sendResp(w, http.StatusOK, formatTxDetail(detail), nil)
	}
}

// get pending transaction response
func GetPendingTransaction(pool *storage.PoolDB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash, err := utils.StringToHash(mux.Vars(r)["hash"])
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		entry, err := pool.GetPoolTx(hash)
		if err != nil {
			sendStoreErr(w, err)
			return
		}
		sendResp(w, http.StatusOK, PendingTxResp{
			TxHash:   utils.HashToString(entry.TxHash),
			SeenTime: entry.SeenTime,
			Tx:       entry.Tx,
		}, nil)
	}
}

// get transaction status response
func GetTransactionStatus(ledger *storage.LedgerDB, pool *storage.PoolDB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash, err := utils.StringToHash(mux.Vars(r)["hash"])
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}
		hashStr := utils.HashToString(hash)

		if height, _, _, err := ledger.TxBlockIndex(hashStr); err == nil {
			block, err := ledger.BlockByHeight(height)
			if err != nil {
				sendStoreErr(w, err)
				return
			}
			sendResp(w, http.StatusOK, map[string]interface{}{
				"status":    "confirmed",
				"height":    height,
				"blockHash": block.Hash,
			}, nil)
			return
		} else if err != storage.ErrNotFound {
			sendStoreErr(w, err)
			return
		}

		if _, err := pool.GetPoolTx(hash); err == nil {
			sendResp(w, http.StatusOK, map[string]interface{}{"status": "pending"}, nil)
			return
		}

		sendResp(w, http.StatusNoContent, nil, nil)
	}
}

// get fee estimate response
func GetTransactionFees() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		size, err := strconv.ParseUint(mux.Vars(r)["tx_size"], 10, 64)
		if err != nil || size == 0 {
			sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("invalid tx size: %q", mux.Vars(r)["tx_size"]))
			return
		}

		sendResp(w, http.StatusOK, FeesResp{
			TxSize: size,
			High:   Amount(size * feeRateHigh),
			Medium: Amount(size * feeRateMedium),
			Low:    Amount(size * feeRateLow),
		}, nil)
	}
}

// get address utxo response
func GetUtxos(ledger *storage.LedgerDB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address, err := utils.StringToAddress(mux.Vars(r)["address"])
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		recs, err := ledger.UtxosByAddress(utils.AddressToString(address))
		if err != nil {
			sendStoreErr(w, err)
			return
		}
		if len(recs) == 0 {
			sendResp(w, http.StatusNoContent, nil, nil)
			return
		}
		sendResp(w, http.StatusOK, formatUtxos(recs), nil)
	}
}

// lookup utxos by key response
func PostUtxos(ledger *storage.LedgerDB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UtxosReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Utxos) == 0 {
			sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("missing utxos list"))
			return
		}

		keys := make([]string, 0, len(req.Utxos))
		for _, raw := range req.Utxos {
			hash, err := utils.StringToHash(raw)
			if err != nil {
				sendResp(w, http.StatusBadRequest, nil, err)
				return
			}
			keys = append(keys, utils.HashToString(hash))
		}

		recs, err := ledger.UtxosByKeys(keys)
		if err != nil {
			sendStoreErr(w, err)
			return
		}
		sendResp(w, http.StatusOK, formatUtxos(recs), nil)
	}
}

// get wallet transaction history response
func GetWalletTxHistory(ledger *storage.LedgerDB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address, err := utils.StringToAddress(mux.Vars(r)["address"])
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}
		page, pageSize, err := parsePagination(r)
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		filter := storage.HistoryFilter{}
		if raw := r.URL.Query().Get("type"); raw != "" {
			for _, t := range strings.Split(raw, ",") {
				switch t {
				case "inbound", "outbound", "freeze", "payload":
					filter.Types = append(filter.Types, t)
				default:
					sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("invalid type filter: %q", t))
					return
				}
			}
		}
		if raw := r.URL.Query().Get("beginDate"); raw != "" {
			if filter.BeginDate, err = strconv.ParseInt(raw, 10, 64); err != nil {
				sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("invalid beginDate: %q", raw))
				return
			}
		}
		if raw := r.URL.Query().Get("endDate"); raw != "" {
			if filter.EndDate, err = strconv.ParseInt(raw, 10, 64); err != nil {
				sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("invalid endDate: %q", raw))
				return
			}
		}
		if raw := r.URL.Query().Get("peer"); raw != "" {
			peer, err := utils.StringToAddress(raw)
			if err != nil {
				sendResp(w, http.StatusBadRequest, nil, err)
				return
			}
			filter.Peer = utils.AddressToString(peer)
		}

		items, err := ledger.WalletTxHistory(utils.AddressToString(address), page, pageSize, filter)
		if err != nil {
			sendStoreErr(w, err)
			return
		}
		if len(items) == 0 {
			sendResp(w, http.StatusNoContent, nil, nil)
			return
		}

		resp := make([]HistoryResp, 0, len(items))
		for _, item := range items {
			resp = append(resp, HistoryResp{
				TxHash:    item.TxHash,
				Height:    item.BlockHeight,
				Time:      item.TimeStamp,
				Type:      item.Direction,
				Amount:    Amount(item.Amount),
				Fee:       Amount(item.Fee),
				Peer:      item.Peer,
				PeerCount: item.PeerCount,
			})
		}
		sendResp(w, http.StatusOK, resp, nil)
	}
}

// get wallet transaction overview response
func GetWalletTxOverview(ledger *storage.LedgerDB) http.HandlerFunc {
	return GetTransaction(ledger)
}

// get wallet pending transactions response
func GetWalletPendingTxs(pool *storage.PoolDB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address, err := utils.StringToAddress(mux.Vars(r)["address"])
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		entries, err := pool.PoolTxsByAddress(address)
		if err != nil {
			sendStoreErr(w, err)
			return
		}
		if len(entries) == 0 {
			sendResp(w, http.StatusNoContent, nil, nil)
			return
		}

		resp := make([]PendingTxResp, 0, len(entries))
		for _, entry := range entries {
			resp = append(resp, PendingTxResp{
				TxHash:   utils.HashToString(entry.TxHash),
				SeenTime: entry.SeenTime,
				Tx:       entry.Tx,
			})
		}
		sendResp(w, http.StatusOK, resp, nil)
	}
}

// get block header response
func GetBlockHeader(ledger *storage.LedgerDB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		height, ok, err := parseHeightQuery(r)
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}
		if !ok {
			if height, err = ledger.LatestHeight(); err != nil {
				sendStoreErr(w, err)
				return
			}
		}

		rec, err := ledger.BlockByHeight(height)
		if err != nil {
			sendStoreErr(w, err)
			return
		}
		sendResp(w, http.StatusOK, formatBlockHeader(rec), nil)
	}
}

// get latest blocks response
func GetLatestBlocks(ledger *storage.LedgerDB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, pageSize, err := parsePagination(r)
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		recs, err := ledger.LatestBlocks(page, pageSize)
		if err != nil {
			sendStoreErr(w, err)
			return
		}

		resp := make([]BlockHeaderResp, 0, len(recs))
		for i := range recs {
			resp = append(resp, formatBlockHeader(&recs[i]))
		}
		sendResp(w, http.StatusOK, resp, nil)
	}
}

// get latest transactions response
func GetLatestTransactions(ledger *storage.LedgerDB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, pageSize, err := parsePagination(r)
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		items, err := ledger.LatestTransactions(page, pageSize)
		if err != nil {
			sendStoreErr(w, err)
			return
		}
		sendResp(w, http.StatusOK, formatTxList(items), nil)
	}
}

// resolveBlockParam reads ?height= or ?hash= and loads the block.
func resolveBlockParam(ledger *storage.LedgerDB, r *http.Request) (*storage.BlockRecord, int, error) {
	if height, ok, err := parseHeightQuery(r); err != nil {
		return nil, http.StatusBadRequest, err
	} else if ok {
		rec, err := ledger.BlockByHeight(height)
		if err != nil {
			return nil, 0, err
		}
		return rec, 0, nil
	}

	if raw := r.URL.Query().Get("hash"); raw != "" {
		hash, err := utils.StringToHash(raw)
		if err != nil {
			return nil, http.StatusBadRequest, err
		}
		rec, err := ledger.BlockByHash(utils.HashToString(hash))
		if err != nil {
			return nil, 0, err
		}
		return rec, 0, nil
	}

	return nil, http.StatusBadRequest, fmt.Errorf("height or hash parameter required")
}

// get block summary response
func GetBlockSummary(ledger *storage.LedgerDB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, badCode, err := resolveBlockParam(ledger, r)
		if err != nil {
			if badCode != 0 {
				sendResp(w, badCode, nil, err)
			} else {
				sendStoreErr(w, err)
			}
			return
		}

		totalSent, totalFee, err := ledger.BlockAggregates(rec.Height)
		if err != nil {
			sendStoreErr(w, err)
			return
		}
		sendResp(w, http.StatusOK, BlockSummaryResp{
			BlockHeaderResp: formatBlockHeader(rec),
			TotalSent:       Amount(totalSent),
			TotalFee:        Amount(totalFee),
		}, nil)
	}
}

// get block enrollments response
func GetBlockEnrollments(ledger *storage.LedgerDB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, badCode, err := resolveBlockParam(ledger, r)
		if err != nil {
			if badCode != 0 {
				sendResp(w, badCode, nil, err)
			} else {
				sendStoreErr(w, err)
			}
			return
		}
		page, pageSize, err := parsePagination(r)
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		recs, err := ledger.BlockEnrollments(rec.Height, page, pageSize)
		if err != nil {
			sendStoreErr(w, err)
			return
		}
		if len(recs) == 0 {
			sendResp(w, http.StatusNoContent, nil, nil)
			return
		}
		sendResp(w, http.StatusOK, recs, nil)
	}
}

// get block transactions response
func GetBlockTransactions(ledger *storage.LedgerDB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, badCode, err := resolveBlockParam(ledger, r)
		if err != nil {
			if badCode != 0 {
				sendResp(w, badCode, nil, err)
			} else {
				sendStoreErr(w, err)
			}
			return
		}
		page, pageSize, err := parsePagination(r)
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		items, err := ledger.BlockTransactions(rec.Height, page, pageSize)
		if err != nil {
			sendStoreErr(w, err)
			return
		}
		sendResp(w, http.StatusOK, formatTxList(items), nil)
	}
}

// get chain statistics response
func GetStats(ledger *storage.LedgerDB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := ledger.Stats()
		if err != nil {
			sendStoreErr(w, err)
			return
		}
		sendResp(w, http.StatusOK, FormatStats(stats), nil)
	}
}

// get holders response
func GetHolders(ledger *storage.LedgerDB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, pageSize, err := parsePagination(r)
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		recs, err := ledger.Holders(page, pageSize)
		if err != nil {
			sendStoreErr(w, err)
			return
		}

		resp := make([]HolderResp, 0, len(recs))
		for _, rec := range recs {
			resp = append(resp, HolderResp{
				Address:   rec.Address,
				Total:     Amount(rec.TotalAmount),
				UtxoCount: rec.UtxoCount,
			})
		}
		sendResp(w, http.StatusOK, resp, nil)
	}
}

// get SPV verification response
func GetSpv(ledger *storage.LedgerDB, client *agora.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash, err := utils.StringToHash(mux.Vars(r)["hash"])
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		height, index, rootStr, err := ledger.TxBlockIndex(utils.HashToString(hash))
		if err != nil {
			sendStoreErr(w, err)
			return
		}
		root, err := utils.StringToHash(rootStr)
		if err != nil {
			sendStoreErr(w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		path, err := client.GetMerklePath(ctx, height, hash)
		if err != nil {
			sendResp(w, http.StatusInternalServerError, nil, err)
			return
		}

		if core.VerifyMerklePath(hash, index, path, root) {
			sendResp(w, http.StatusOK, SpvResp{Result: true, Height: height}, nil)
			return
		}
		sendResp(w, http.StatusOK, SpvResp{Result: false, Height: height, Reason: "verification failed"}, nil)
	}
}

// get proposals response
func GetProposals(gov *governance.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, pageSize, err := parsePagination(r)
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		rows, err := gov.Proposals(page, pageSize)
		if err != nil {
			sendStoreErr(w, err)
			return
		}
		if len(rows) == 0 {
			sendResp(w, http.StatusNoContent, nil, nil)
			return
		}

		resp := make([]ProposalResp, 0, len(rows))
		for i := range rows {
			resp = append(resp, formatProposal(&rows[i], nil))
		}
		sendResp(w, http.StatusOK, resp, nil)
	}
}

// get single proposal response
func GetProposal(gov *governance.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := gov.ProposalByID(mux.Vars(r)["proposal_id"])
		if err != nil {
			sendStoreErr(w, err)
			return
		}

		resp := formatProposal(&detail.Proposal, detail.Metadata)
		sendResp(w, http.StatusOK, map[string]interface{}{
			"proposal": resp,
			"ballots":  detail.Ballots,
		}, nil)
	}
}
