package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// parseListOpts reads limit (default 50, max 500), offset and an optional
// RFC 3339 since.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()
	opts := domain.ListOpts{Limit: 50}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		opts.Limit = min(n, 500)
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n >= 0 {
		opts.Offset = n
	}
	if t, err := time.Parse(time.RFC3339, q.Get("since")); err == nil {
		opts.Since = &t
	}
	return opts
}
