package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/ephemera/internal/model"
)

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, key, msg string) {
	writeJSON(w, status, map[string]string{key: msg})
}

type validationResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields"`
}

// writeError maps err onto the API's error responses. Unexpected errors are
// logged with action and reported as 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, action string, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, validationResponse{Error: "validation failed", Fields: ve.Fields})
	case errors.Is(err, model.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "error", "note not found")
	case errors.Is(err, model.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "error", "you do not have permission to perform this action")
	default:
		logger.Error(action, "error", err)
		writeMessage(w, http.StatusInternalServerError, "error", "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "error", "invalid JSON")
		return false
	}
	return true
}

const maxBodyBytes = 1 << 20
