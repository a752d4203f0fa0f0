// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
)

// Mapping binds a domain error to a problem status and title.
type Mapping struct {
	Err    error
	Status int
	Title  string
}

// Map builds a Mapping.
func Map(err error, status int, title string) Mapping {
	return Mapping{Err: err, Status: status, Title: title}
}

var defaultMappings = []Mapping{
	{Err: ErrNotFound, Status: http.StatusNotFound, Title: "Not Found"},
	{Err: ErrConflict, Status: http.StatusConflict, Title: "Conflict"},
	{Err: ErrValidation, Status: http.StatusBadRequest, Title: "Validation Failed"},
	{Err: ErrUnauthorized, Status: http.StatusUnauthorized, Title: "Unauthorized"},
}

// RespondError maps err to an RFC7807 response. Handler specific mappings
// are checked before the package sentinels; anything unmatched is a 500
// without detail. It reports whether err was matched.
func RespondError(w http.ResponseWriter, err error, mappings ...Mapping) bool {
	for _, m := range append(mappings, defaultMappings...) {
		if errors.Is(err, m.Err) {
			Problem(w, m.Status, m.Title, err.Error())
			return true
		}
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
	return false
}
