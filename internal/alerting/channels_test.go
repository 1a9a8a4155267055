package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/observability"
)

func TestWebhookChannelSend(t *testing.T) {
	var mu sync.Mutex
	var received []webhookPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		mu.Lock()
		received = append(received, p)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL)
	alert := newAlert(TypeServiceDown, SeverityCritical, "service books is down", nil)

	require.NoError(t, ch.Send(context.Background(), alert))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "[critical] service books is down", received[0].Text)
	assert.Equal(t, alert.ID, received[0].Alert.ID)
}

func TestWebhookChannelErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL)
	err := ch.Send(context.Background(), newAlert(TypeServiceDown, SeverityCritical, "x", nil))
	assert.Error(t, err)
}

func TestWebhookChannelBreakerTrips(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL)
	alert := newAlert(TypeServiceDown, SeverityCritical, "x", nil)

	for i := 0; i < webhookMaxFailures; i++ {
		require.Error(t, ch.Send(context.Background(), alert))
	}

	// Breaker now open: the request never reaches the server.
	srv.Close()
	assert.Error(t, ch.Send(context.Background(), alert))
}

func TestLogChannelNeverFails(t *testing.T) {
	ch := newLogChannel(observability.NopLogger())
	assert.Equal(t, "log", ch.Name())

	for _, sev := range []Severity{SeverityInfo, SeverityWarning, SeverityCritical} {
		alert := newAlert(TypeServiceDown, sev, "x", nil)
		assert.NoError(t, ch.Send(context.Background(), alert))
	}
}
