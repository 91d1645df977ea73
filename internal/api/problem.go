package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
	Status   int    `json:"status"`
}

const problemBase = "https://smspay.dev/errors/"

var problemTypes = map[int]struct {
	slug  string
	title string
}{
	http.StatusBadRequest:            {"bad-request", "Bad Request"},
	http.StatusUnauthorized:          {"unauthorized", "Unauthorized"},
	http.StatusRequestEntityTooLarge: {"too-large", "Request Entity Too Large"},
	http.StatusUnprocessableEntity:   {"validation-error", "Validation Error"},
	http.StatusInternalServerError:   {"internal-error", "Internal Server Error"},
	http.StatusServiceUnavailable:    {"service-unavailable", "Service Unavailable"},
}

// WriteProblem writes an RFC 7807 Problem Details response.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	pt, ok := problemTypes[status]
	if !ok {
		pt.slug, pt.title = "unknown", http.StatusText(status)
	}

	p := Problem{
		Type:     problemBase + pt.slug,
		Title:    pt.title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		slog.Error("failed to encode problem response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
