package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"finpulse/internal/core"
)

// OwnerHeader carries the caller identity, injected by the gateway in front
// of this service.
const OwnerHeader = "X-Owner-ID"

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// pathID parses the {id} path segment as a positive integer.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseGranularity reads the granularity query parameter, defaulting to
// monthly.
func parseGranularity(r *http.Request) (core.Granularity, bool) {
	v := strings.TrimSpace(r.URL.Query().Get("granularity"))
	if v == "" {
		return core.Month, true
	}
	g := core.Granularity(v)
	if err := g.Validate(); err != nil {
		return g, false
	}
	return g, true
}

// parseWindow reads the window query parameter: how many trailing buckets the
// summary covers. Defaults to 6, capped at 120.
func parseWindow(r *http.Request) (int, bool) {
	v := strings.TrimSpace(r.URL.Query().Get("window"))
	if v == "" {
		return 6, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 120 {
		return 0, false
	}
	return n, true
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
