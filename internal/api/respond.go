package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/nhalm/canonlog"
)

// Pagination describes the slice of a list response.
type Pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ListResponse is the envelope for list and search endpoints.
type ListResponse[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// WriteJSON encodes v as the response body. Encoding into a buffer first
// keeps a failed encode from producing a half-written 200.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal server error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// WriteList writes a paginated envelope. A nil slice still serializes as an
// empty array.
func WriteList[T any](w http.ResponseWriter, items []T, total, limit, offset int) {
	if items == nil {
		items = []T{}
	}
	WriteJSON(w, http.StatusOK, ListResponse[T]{
		Data:       items,
		Pagination: Pagination{Total: total, Limit: limit, Offset: offset},
	})
}

// WriteError writes the structured error envelope and records the error on
// the request's canonical log entry.
func WriteError(w http.ResponseWriter, r *http.Request, apiErr *APIError) {
	canonlog.ErrorAdd(r.Context(), apiErr)
	WriteJSON(w, apiErr.Status, errorResponse{Error: apiErr})
}
