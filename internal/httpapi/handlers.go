// Package httpapi renders the quote assembler's two endpoints over
// HTTP: request parsing and response framing live here, the actual
// assembly logic does not.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/meridianhost/attest-agent/internal/quote"
)

// envelope is the standard {code, status, results} wire wrapper (spec
// §6) around every quote response, success or failure.
type envelope struct {
	Code    int         `json:"code"`
	Status  string      `json:"status"`
	Results interface{} `json:"results,omitempty"`
}

// NewRouter builds the versioned quote-serving router.
func NewRouter(assembler *quote.Assembler, log *slog.Logger) *mux.Router {
	if log == nil {
		log = slog.Default()
	}
	r := mux.NewRouter()
	v := r.PathPrefix("/v2.1").Subrouter()
	v.HandleFunc("/quotes/identity", identityHandler(assembler, log)).Methods(http.MethodGet)
	v.HandleFunc("/quotes/integrity", integrityHandler(assembler, log)).Methods(http.MethodGet)
	return r
}

func identityHandler(assembler *quote.Assembler, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nonce := r.URL.Query().Get("nonce")
		env, apiErr := assembler.Identity(r.Context(), nonce)
		if apiErr != nil {
			writeError(w, log, apiErr)
			return
		}
		writeSuccess(w, log, env)
	}
}

func integrityHandler(assembler *quote.Assembler, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		nonce := q.Get("nonce")
		mask := q.Get("mask")
		partial := q.Get("partial")

		var imaMLEntry *string
		if v := q.Get("ima_ml_entry"); v != "" {
			imaMLEntry = &v
		}

		env, apiErr := assembler.Integrity(r.Context(), nonce, mask, partial, imaMLEntry)
		if apiErr != nil {
			writeError(w, log, apiErr)
			return
		}
		writeSuccess(w, log, env)
	}
}

func writeSuccess(w http.ResponseWriter, log *slog.Logger, results interface{}) {
	writeJSON(w, log, http.StatusOK, envelope{Code: http.StatusOK, Status: "Success", Results: results})
}

func writeError(w http.ResponseWriter, log *slog.Logger, apiErr *quote.APIError) {
	writeJSON(w, log, apiErr.Code, envelope{Code: apiErr.Code, Status: apiErr.Message})
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug("failed to encode response", "error", err)
	}
}
