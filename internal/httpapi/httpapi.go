// Package httpapi is the small set of HTTP helpers every service's
// cmd/*/main.go shares: a CORS/content-type middleware and uniform
// JSON/error writers, generalized from teacher
// mint/manager/server.go's setupHeaders + per-handler json.Marshal
// idiom into one place instead of repeating it four times.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/wildcat-ecash/backoffice/internal/wcerr"
)

// CORS mirrors teacher mint/manager/server.go's setupHeaders: permissive
// CORS plus a uniform JSON content type, short-circuiting OPTIONS.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WriteJSON marshals v and writes it with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// problem is the error body shape spec §6 calls "problem-style JSON".
type problem struct {
	Error string `json:"error"`
}

// WriteError maps err to its wcerr.Kind's status code (§7) and writes a
// problem body. Any error that isn't already a *wcerr.Error is wrapped
// as Internal so a handler never has to decide a status by hand.
func WriteError(w http.ResponseWriter, err error) {
	e := wcerr.As(err)
	WriteJSON(w, e.Kind.StatusCode(), problem{Error: e.Detail})
}

// DecodeBody decodes r's JSON body into v, reporting malformed input as
// InvalidRequest so callers get the §7-prescribed 400 rather than a bare
// decode error.
func DecodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return wcerr.Newf(wcerr.InvalidRequest, "malformed request body: %v", err)
	}
	return nil
}
