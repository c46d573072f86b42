// Package httpjson writes JSON responses for the REST routes.
package httpjson

import (
	"encoding/json"
	"log"
	"net/http"
)

// WriteJSON writes v as JSON with status.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpjson: encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

// WriteError writes {"error": msg} with status.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	WriteJSON(w, r, status, map[string]string{"error": msg})
}

// MethodNotAllowed writes 405 with an Allow header.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	WriteError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
