package api

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"tokenomy/internal/economy"

	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	require.Equal(t, "abc123", bearerToken("Bearer abc123"))
	require.Equal(t, "abc123", bearerToken("bearer abc123"))
	require.Equal(t, "", bearerToken(""))
	require.Equal(t, "", bearerToken("abc123"))
	require.Equal(t, "", bearerToken("Basic abc123"))
}

func TestIdempotencyKeyHeaderPreferred(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/ledger/credit", nil)
	r.Header.Set("Idempotency-Key", "client-key-1")
	require.Equal(t, "client-key-1", idempotencyKey(r))
}

func TestIdempotencyKeyGeneratedWhenMissing(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/ledger/credit", nil)
	first := idempotencyKey(r)
	second := idempotencyKey(r)
	require.NotEmpty(t, first)
	require.NotEqual(t, first, second)
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/market/history?limit=48", nil)
	require.Equal(t, 48, queryInt(r, "limit", 24))

	r = httptest.NewRequest("GET", "/v1/market/history", nil)
	require.Equal(t, 24, queryInt(r, "limit", 24))

	r = httptest.NewRequest("GET", "/v1/market/history?limit=oops", nil)
	require.Equal(t, 24, queryInt(r, "limit", 24))
}

func TestWriteDomainErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantKind   string
	}{
		{economy.ErrInvalidAmount, 400, "ValidationError"},
		{economy.ErrInvalidSymbol, 400, "ValidationError"},
		{economy.ErrInsufficientFunds, 400, "InsufficientFunds"},
		{economy.ErrInsufficientShares, 400, "ValidationError"},
		{economy.ErrRewardCooldown, 400, "ValidationError"},
		{economy.ErrPotEmpty, 400, "ValidationError"},
		{economy.ErrNotFound, 404, "NotFound"},
		{economy.ErrUnauthorized, 403, "Unauthorized"},
		{economy.ErrDuplicateIdempotency, 409, "TransactionFailure"},
		{economy.ErrTxConflict, 409, "TransactionFailure"},
		{fmt.Errorf("db exploded"), 500, "TransactionFailure"},
	}
	for _, tc := range tests {
		w := httptest.NewRecorder()
		writeDomainError(w, tc.err)
		require.Equal(t, tc.wantStatus, w.Code, "err %v", tc.err)

		var body struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Equal(t, tc.wantKind, body.Kind, "err %v", tc.err)
		require.NotEmpty(t, body.Error)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/trades", strings.NewReader(`{"symbol":"TSLA","bogus":1}`))
	var in struct {
		Symbol string `json:"symbol"`
	}
	require.Error(t, decodeJSON(r, &in))
}

func TestDecodeJSONAcceptsKnownFields(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/trades", strings.NewReader(`{"symbol":"TSLA"}`))
	var in struct {
		Symbol string `json:"symbol"`
	}
	require.NoError(t, decodeJSON(r, &in))
	require.Equal(t, "TSLA", in.Symbol)
}
