package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/agorascan/agorascan-node/core"
	"github.com/agorascan/agorascan-node/ingest"
)

// Private write surface. Only the consensus node talks to these; every
// endpoint answers 200 as soon as the shape is acceptable and defers the
// real work to the serial intake queue.

// accept externalized block
func PostBlockExternalized(pipeline *ingest.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BlockExternalizedReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Block == nil {
			sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("missing block field"))
			return
		}

		var blk core.Block
		if err := json.Unmarshal(*req.Block, &blk); err != nil {
			sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("malformed block: %v", err))
			return
		}
		if err := blk.ValidateShape(); err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		pipeline.SubmitBlock(&blk)
		sendResp(w, http.StatusOK, map[string]uint64{"height": blk.Header.Height}, nil)
	}
}

// accept pre-image advance
func PostPreimageReceived(pipeline *ingest.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PreimageReceivedReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Preimage == nil {
			sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("missing preimage field"))
			return
		}

		var sub ingest.PreimageSubmission
		if err := json.Unmarshal(*req.Preimage, &sub); err != nil {
			sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("malformed preimage: %v", err))
			return
		}

		pipeline.SubmitPreimage(&sub)
		sendResp(w, http.StatusOK, nil, nil)
	}
}

// accept relayed pending transaction
func PostTransactionReceived(pipeline *ingest.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TransactionReceivedReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Tx == nil {
			sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("missing tx field"))
			return
		}

		var tx core.Transaction
		if err := json.Unmarshal(*req.Tx, &tx); err != nil {
			sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("malformed tx: %v", err))
			return
		}
		if err := tx.ValidateShape(); err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		pipeline.SubmitPoolTx(&tx)
		sendResp(w, http.StatusOK, nil, nil)
	}
}
