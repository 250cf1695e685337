package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, host)
}

func isInvalidMessage(err error) bool {
	return errors.Is(err, ErrInvalidMessage)
}

// uniqueLabels drops empty names and later repeats, keeping first-seen order.
func uniqueLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if _, dup := seen[l]; dup || l == "" {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
