// Package respond writes JSON API responses.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/lodgehub/internal/app/system/faults"
	"go.uber.org/zap"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// Error maps err onto its HTTP status via the faults taxonomy and writes a
// JSON error body. Unclassified errors are logged and returned as a bare 500
// so internals don't leak.
func Error(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := faults.HTTPStatus(err)
	msg := err.Error()
	if faults.KindOf(err) == 0 {
		logger.Error("internal error", zap.Error(err))
		msg = "internal error"
	}
	JSON(w, status, errorBody{Error: msg})
}
