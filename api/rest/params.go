package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/agorascan/agorascan-node/storage"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// sendResp writes the common response envelope.
func sendResp(w http.ResponseWriter, code int, data interface{}, err error) {
	w.Header().Set("Content-Type", "application/json")

	// 204 carries no body by protocol; the status itself says "not found"
	if code == http.StatusNoContent {
		w.WriteHeader(code)
		return
	}

	resp := RestResp{Success: err == nil, Data: data}
	if err != nil {
		resp.Error = err.Error()
	}

	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}

// sendStoreErr maps a storage failure: missing rows are 204, everything
// else is a 500.
func sendStoreErr(w http.ResponseWriter, err error) {
	if err == storage.ErrNotFound {
		sendResp(w, http.StatusNoContent, nil, nil)
		return
	}
	sendResp(w, http.StatusInternalServerError, nil, err)
}

// parsePagination reads page / pageSize with defaults; non-positive values
// are invalid.
func parsePagination(r *http.Request) (page, pageSize int, err error) {
	page, pageSize = 1, defaultPageSize

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page <= 0 {
			return 0, 0, fmt.Errorf("invalid page: %q", raw)
		}
	}
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		pageSize, err = strconv.Atoi(raw)
		if err != nil || pageSize <= 0 || pageSize > maxPageSize {
			return 0, 0, fmt.Errorf("invalid pageSize: %q (1..%d)", raw, maxPageSize)
		}
	}
	return page, pageSize, nil
}

// parseHeightQuery reads an optional ?height= parameter. ok reports
// whether it was present.
func parseHeightQuery(r *http.Request) (height uint64, ok bool, err error) {
	raw := r.URL.Query().Get("height")
	if raw == "" {
		return 0, false, nil
	}
	height, err = strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid height: %q", raw)
	}
	return height, true, nil
}
