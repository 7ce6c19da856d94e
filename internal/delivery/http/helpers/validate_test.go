package helpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRequest struct {
	Name string `json:"name"`
}

func (t testRequest) Validate() []string {
	var errs []string
	if t.Name == "" {
		errs = append(errs, "name is required")
	}
	return errs
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantOK   bool
		wantCode string
		wantMsg  string
	}{
		{name: "valid", body: `{"name":"x"}`, wantOK: true},
		{name: "invalid json", body: `{invalid`, wantCode: ErrCodeBadRequest, wantMsg: "invalid"},
		{name: "unknown field", body: `{"name":"x","id":"1"}`, wantCode: ErrCodeBadRequest, wantMsg: "unknown field"},
		{name: "failed validation", body: `{}`, wantCode: ErrCodeValidationFailed, wantMsg: "name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "http://test/", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			var dest testRequest
			ok := DecodeAndValidate(rr, req, &dest)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, "x", dest.Name)
				return
			}
			require.Equal(t, http.StatusBadRequest, rr.Code)
			var envelope APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
			require.NotNil(t, envelope.Error)
			assert.Equal(t, tt.wantCode, envelope.Error.Code)
			assert.Contains(t, envelope.Error.Message, tt.wantMsg)
		})
	}
}

func TestWriteJSONSuccess(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSONSuccess(rr, http.StatusCreated, map[string]string{"status": "ok"})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"status":"ok"},"error":null}`, rr.Body.String())
}

func TestWriteAPIError_OmitsEmptyDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSONError(rr, http.StatusNotFound, ErrCodeNotFound, "event not found")
	assert.JSONEq(t, `{"data":null,"error":{"code":"not_found","message":"event not found"}}`, rr.Body.String())
}
