package handlers

import (
	serviceerrors "cartsync/internal/service"
	"cartsync/pkg/lib/logger/sl"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

const StatusClientClosedRequest = 499

// Fail answers with the status that matches err. action goes into the
// log line and, for unexpected failures, the response body.
func Fail(w http.ResponseWriter, log *slog.Logger, err error, action string) {
	if errors.Is(err, serviceerrors.ErrContextCanceled) {
		log.Warn("Context canceled", sl.Err(err))
		http.Error(w, "Context canceled", StatusClientClosedRequest)
	} else if errors.Is(err, serviceerrors.ErrDeadlineExceeded) {
		log.Warn("Deadline exceeded", sl.Err(err))
		http.Error(w, "Deadline exceeded", http.StatusGatewayTimeout)
	} else if errors.Is(err, serviceerrors.ErrInvalidQuantity) || errors.Is(err, serviceerrors.ErrInvalidRequest) {
		log.Warn("Invalid request", sl.Err(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
	} else if errors.Is(err, serviceerrors.ErrNoSession) ||
		errors.Is(err, serviceerrors.ErrUnauthorized) ||
		errors.Is(err, serviceerrors.ErrSessionExpired) {
		log.Warn("Not signed in", sl.Err(err))
		http.Error(w, "Not signed in", http.StatusUnauthorized)
	} else if errors.Is(err, serviceerrors.ErrEmptyCart) {
		log.Warn("Cart is empty", sl.Err(err))
		http.Error(w, "Cart is empty", http.StatusConflict)
	} else if errors.Is(err, serviceerrors.ErrNotFound) {
		log.Warn("Not found", sl.Err(err))
		http.Error(w, "Not found", http.StatusNotFound)
	} else if errors.Is(err, serviceerrors.ErrBackendUnavailable) ||
		errors.Is(err, serviceerrors.ErrUnexpectedResponse) ||
		errors.Is(err, serviceerrors.ErrRejected) {
		log.Error("Backend failure", sl.Err(err))
		http.Error(w, err.Error(), http.StatusBadGateway)
	} else {
		log.Error("Failed to "+action, sl.Err(err))
		http.Error(w, "Failed to "+action, http.StatusInternalServerError)
	}
}

func BadRequest(w http.ResponseWriter, log *slog.Logger, err error, msg string) {
	log.Error(msg, sl.Err(err))
	http.Error(w, msg, http.StatusBadRequest)
}

func WriteJSON(w http.ResponseWriter, log *slog.Logger, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("Failed to respond", sl.Err(err))
	}
}
