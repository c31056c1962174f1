package lotteryhandlers

import (
	"encoding/json"
	"errors"
	"net/http"

	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	lotterydb "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/infrastructure/repositories"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

var statusByCode = map[lotterydomain.Code]int{
	lotterydomain.CodeAccessDenied:        http.StatusForbidden,
	lotterydomain.CodeInvalidState:        http.StatusConflict,
	lotterydomain.CodeInvalidArgument:     http.StatusBadRequest,
	lotterydomain.CodeInsufficientPayment: http.StatusPaymentRequired,
	lotterydomain.CodeDuplicateEntry:      http.StatusConflict,
	lotterydomain.CodeInsufficientPool:    http.StatusUnprocessableEntity,
	lotterydomain.CodeTooEarly:            http.StatusTooEarly,
}

func writeJSONError(w http.ResponseWriter, status int, code, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Code: code, Reason: reason})
}

// writeError maps service errors onto HTTP statuses. Infrastructure errors
// are logged and hidden behind a generic 500.
func (h *LotteryHTTPHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if code, ok := lotterydomain.CodeOf(err); ok {
		status, known := statusByCode[code]
		if !known {
			status = http.StatusBadRequest
		}
		var de *lotterydomain.Error
		errors.As(err, &de)
		writeJSONError(w, status, string(code), de.Reason)
		return
	}
	if errors.Is(err, lotterydb.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "NOT_FOUND", "lottery not found")
		return
	}
	h.logger.ErrorContext(r.Context(), "Request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeJSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}
