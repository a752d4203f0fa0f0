package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorUsesHandlerMappingsFirst(t *testing.T) {
	errDomain := errors.New("domain: bad input")
	rr := httptest.NewRecorder()

	matched := RespondError(rr, fmt.Errorf("op: %w", errDomain), Map(errDomain, http.StatusUnprocessableEntity, "Unprocessable"))
	require.True(t, matched)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Unprocessable", body.Title)
	assert.Equal(t, "op: domain: bad input", body.Detail)
}

func TestRespondErrorFallsBackToSentinels(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("load: %w", ErrNotFound))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRespondErrorHidesUnknownErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	matched := RespondError(rr, errors.New("connection refused"))
	assert.False(t, matched)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "connection refused")
}

func TestFieldErrorsUsesJSONNames(t *testing.T) {
	type form struct {
		EmployeeID int64  `json:"employee_id" validate:"required"`
		Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	}
	v := NewValidator()

	assert.Nil(t, FieldErrors(v.Struct(form{EmployeeID: 1, Date: "2024-03-04"})))

	fields := FieldErrors(v.Struct(form{Date: "04.03.2024"}))
	assert.Equal(t, map[string]string{"employee_id": "required", "date": "datetime"}, fields)
}
