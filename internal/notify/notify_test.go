package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"cricketfancy/settlement/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolvedSession() *models.Session {
	return &models.Session{
		Identity: models.Identity{
			CompetitionID: 1, EventID: 77, MarketID: 5, SelectionID: 9,
		},
		Label:      "total match wkts",
		MarketName: "Normal",
		Status:     models.StatusResolved,
		Result:     int64(16),
	}
}

func TestSessionResolved_FansOutToAllSubscribers(t *testing.T) {
	var mu sync.Mutex
	payloads := make([]map[string]any, 0, 2)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		// Decode into a map so the assertions pin the wire keys subscribers
		// actually see, not this package's struct tags.
		var p map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		mu.Lock()
		payloads = append(payloads, p)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	srv1 := httptest.NewServer(handler)
	defer srv1.Close()
	srv2 := httptest.NewServer(handler)
	defer srv2.Close()

	n := New([]string{srv1.URL, srv2.URL}, time.Second, SMTPConfig{})
	n.SessionResolved(context.Background(), resolvedSession())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, payloads, 2, "every subscriber receives the push")
	for _, p := range payloads {
		assert.Equal(t, float64(77), p["eventId"], "JSON numbers decode as float64")
		assert.Equal(t, float64(5), p["marketId"])
		assert.Equal(t, float64(9), p["selectionId"])
		assert.Equal(t, "Normal", p["marketName"])
		assert.Equal(t, float64(16), p["result"])
	}
}

func TestSessionResolved_FailuresAreSwallowed(t *testing.T) {
	var delivered int
	var mu sync.Mutex

	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		delivered++
		mu.Unlock()
	}))
	defer ok.Close()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	n := New([]string{failing.URL, "http://127.0.0.1:1/unreachable", ok.URL}, time.Second, SMTPConfig{})

	// A rejecting or unreachable subscriber must not block the others.
	n.SessionResolved(context.Background(), resolvedSession())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, delivered)
}

func TestSessionResolved_NoSubscribers(t *testing.T) {
	n := New(nil, time.Second, SMTPConfig{})
	n.SessionResolved(context.Background(), resolvedSession())
}

func TestSendDigest_DisabledWithoutSMTP(t *testing.T) {
	n := New(nil, time.Second, SMTPConfig{})
	err := n.SendDigest(map[models.Status]int64{
		models.StatusNotAvailable: 3,
	})
	assert.NoError(t, err, "digest without SMTP configuration is a no-op")
}
