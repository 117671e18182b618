package services

import (
	"errors"
	"net/http"

	"github.com/choosek/tinybook/protocol"
)

// writeProtocolError maps protocol sentinel errors to HTTP status codes.
// Single-use violations surface as conflicts so callers can distinguish
// them from malformed requests.
func writeProtocolError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, protocol.ErrTokenAlreadyConsumed),
		errors.Is(err, protocol.ErrInstanceAlreadyUsed),
		errors.Is(err, protocol.ErrInstanceFailed):
		status = http.StatusConflict
	case errors.Is(err, protocol.ErrUnknownToken),
		errors.Is(err, protocol.ErrIncompleteShares):
		status = http.StatusNotFound
	case errors.Is(err, protocol.ErrExhaustedBatch):
		status = http.StatusTooManyRequests
	}
	http.Error(w, err.Error(), status)
}
