package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/harshaldxb/leadengine/internal/apperr"
)

const maxBodyBytes = 1 << 20

// RequestValidator checks a raw body against the named JSON schema.
type RequestValidator interface {
	ValidateRequest(kind string, body []byte) error
}

// decodeBody reads the body, validates it against kind's schema when a
// validator is set, and unmarshals it into dst. It writes the 400 itself and
// reports false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v RequestValidator, kind string, dst any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, `{"error":"unreadable body"}`, http.StatusBadRequest)
		return false
	}
	if v != nil && kind != "" {
		if err := v.ValidateRequest(kind, body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return false
		}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps the apperr taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	switch {
	case apperr.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case apperr.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case apperr.IsConflict(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case apperr.IsExpired(err):
		writeJSON(w, http.StatusGone, map[string]string{"error": err.Error()})
	case apperr.IsInvariant(err):
		log.Error(op+": commission invariant violated", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	default:
		log.Error(op, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		http.Error(w, `{"error":"invalid `+name+`"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Healthz handles GET /healthz.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
