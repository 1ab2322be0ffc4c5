package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestCreateHold_Success(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/holds", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req createHoldRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(12500), req.AmountCents)

		_ = json.NewEncoder(w).Encode(Hold{
			ID:          "hold_123",
			Status:      HoldRequiresCapture,
			AmountCents: req.AmountCents,
			CustomerRef: req.CustomerRef,
		})
	})

	client := NewClient(server.URL, "test-key")
	hold, err := client.CreateHold(context.Background(), 12500, "user-1")

	require.NoError(t, err)
	assert.Equal(t, "hold_123", hold.ID)
	assert.Equal(t, HoldRequiresCapture, hold.Status)
}

func TestCreateHold_InvalidAmount(t *testing.T) {
	client := NewClient("http://unused", "test-key")

	_, err := client.CreateHold(context.Background(), 0, "user-1")
	assert.Error(t, err)
}

func TestCaptureHold_Declined(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	})

	client := NewClient(server.URL, "test-key")
	_, err := client.CaptureHold(context.Background(), "hold_123")

	assert.ErrorIs(t, err, ErrDeclined)
}

func TestRetrieveHold_NotFound(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client := NewClient(server.URL, "test-key")
	_, err := client.RetrieveHold(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrHoldNotFound)
}

func TestCaptureHold_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(Hold{ID: "hold_123", Status: HoldCaptured})
	})

	client := NewClient(server.URL, "test-key")
	hold, err := client.CaptureHold(context.Background(), "hold_123")

	require.NoError(t, err)
	assert.Equal(t, HoldCaptured, hold.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCaptureHold_RetryBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	client := NewClient(server.URL, "test-key")
	_, err := client.CaptureHold(context.Background(), "hold_123")

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(maxAttempts), calls.Load())
}
