package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

type apiError struct {
	Error string `json:"error"`
}

type apiListResponse[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg})
}

// paginate slices items by the page and page_size query parameters.
func paginate[T any](r *http.Request, items []T) apiListResponse[T] {
	page := parsePositive(r.URL.Query().Get("page"), 1)
	size := parsePositive(r.URL.Query().Get("page_size"), 50)
	if size > 500 {
		size = 500
	}

	start := (page - 1) * size
	if start > len(items) {
		start = len(items)
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return apiListResponse[T]{
		Items:      items[start:end],
		Page:       page,
		PageSize:   size,
		TotalItems: int64(len(items)),
	}
}

func parsePositive(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
