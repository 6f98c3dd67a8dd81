package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"belief-interview/internal/usecase"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeInvalidBody(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, string(usecase.ErrorInvalidInput), "request body must be a JSON object")
}

// writeUsecaseError maps usecase failures to status codes. Internal details
// are logged, never returned.
func writeUsecaseError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		logger.Error("unexpected error", "correlation_id", correlationID(ctx), "err", err)
		writeError(w, http.StatusInternalServerError, string(usecase.ErrorInternal), "internal error")
		return
	}

	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		writeError(w, http.StatusBadRequest, string(ucErr.Code), messageOr(ucErr.Message, "invalid request"))
	case usecase.ErrorNotFound:
		writeError(w, http.StatusNotFound, string(ucErr.Code), messageOr(ucErr.Message, "not found"))
	case usecase.ErrorTerminated:
		writeError(w, http.StatusConflict, string(ucErr.Code), messageOr(ucErr.Message, "conversation has ended"))
	default:
		logger.Error("request failed", "correlation_id", correlationID(ctx), "reason", ucErr.Reason, "err", ucErr.Err)
		writeError(w, http.StatusInternalServerError, string(usecase.ErrorInternal), "internal error")
	}
}

func messageOr(msg, def string) string {
	if msg == "" {
		return def
	}
	return msg
}
