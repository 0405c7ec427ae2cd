package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cricketfancy/settlement/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Competitions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "4", r.URL.Query().Get("sportid"))
		fmt.Fprint(w, `{"success":true,"msg":"success","status":200,"data":[
			{"competition":{"id":"101480","name":"Big Bash League"}},
			{"competition":{"id":101481,"name":"The Hundred"}}
		]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.URL, srv.URL, 4, time.Second)
	rows, err := c.Competitions(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(101480), rows[0].Competition.ID.Int64(), "string ids decode")
	assert.Equal(t, int64(101481), rows[1].Competition.ID.Int64())
	assert.Equal(t, "Big Bash League", rows[0].Competition.Name)
}

func TestClient_RejectsBadEnvelope(t *testing.T) {
	cases := []string{
		`{"success":false,"msg":"success","status":200,"data":[]}`,
		`{"success":true,"msg":"failed","status":200,"data":[]}`,
		`{"success":true,"msg":"success","status":500,"data":[]}`,
		`{"success":true,"msg":"success","status":200,"data":{}}`,
		`{"success":true,"msg":"success","status":200}`,
	}
	for i, payload := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, payload)
		}))
		c := New(srv.URL, srv.URL, srv.URL, 4, time.Second)
		_, err := c.Competitions(context.Background())
		require.Error(t, err, "case %d", i)
		assert.ErrorIs(t, err, ErrBadEnvelope, "case %d", i)
		srv.Close()
	}
}

func TestClient_Events(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "101480", r.URL.Query().Get("competitionid"))
		fmt.Fprint(w, `{"success":true,"msg":"success","status":200,"data":[
			{"event":{"id":"34589111","name":"India v Australia"},"marketId":"1.234567","marketName":"Match Odds","marketStartTime":"2026-08-30T10:00:00Z"}
		]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.URL, srv.URL, 4, time.Second)
	rows, err := c.Events(context.Background(), 101480)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(34589111), rows[0].Event.ID.Int64())
	assert.Equal(t, int64(1), rows[0].MarketID.Int64(), "exchange-prefixed market ids truncate")
	assert.Equal(t, "Match Odds", rows[0].MarketName)
}

func TestClient_Markets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"msg":"success","status":200,"data":[
			{"gtype":"fancy","mname":"Normal","status":"OPEN","section":[
				{"sid":9,"nat":"total match wkts"},
				{"sid":"10","nat":"2 run AUS"}
			]}
		]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.URL, srv.URL, 4, time.Second)
	rows, err := c.Markets(context.Background(), 34589111)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, rows[0].Section, 2)
	assert.Equal(t, "fancy", rows[0].GType)
	assert.Equal(t, int64(10), rows[0].Section[1].SID.Int64())
	assert.Equal(t, "2 run AUS", rows[0].Section[1].Nat)
}

func TestTimeline_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/34589111", r.URL.Path)
		fmt.Fprint(w, `{"doc":[{"data":{
			"match":{"status":{"name":"Ended"},"resultinfo":{"innings":{"1":{"team":"home","runs":208,"wickets":10,"overs":20}}}},
			"events":[{"inning":1,"over":1,"type":"boundary"}]
		}}]}`)
	}))
	defer srv.Close()

	c := NewTimeline(srv.URL, time.Second, nil)
	snap, err := c.FetchTimeline(context.Background(), 34589111)
	require.NoError(t, err)
	assert.True(t, snap.Match.Ended())
	require.Len(t, snap.Events, 1)
	assert.Equal(t, models.EventTypeBoundary, snap.Events[0].Type)
	assert.Equal(t, 208, snap.Match.ResultInfo.OrderedInnings()[0].Runs)
}

func TestTimeline_EmptyDocument(t *testing.T) {
	cases := []string{`{"doc":[]}`, `{"doc":[{}]}`, `{}`}
	for i, payload := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, payload)
		}))
		c := NewTimeline(srv.URL, time.Second, nil)
		_, err := c.FetchTimeline(context.Background(), 1)
		assert.ErrorIs(t, err, ErrNoTimeline, "case %d", i)
		srv.Close()
	}
}

func TestTimeline_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewTimeline(srv.URL, time.Second, nil)
	_, err := c.FetchTimeline(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoTimeline))
}

type mapCache struct {
	snaps map[int64]*models.TimelineSnapshot
	puts  int
}

func (m *mapCache) GetSnapshot(_ context.Context, eventID int64) (*models.TimelineSnapshot, bool) {
	snap, ok := m.snaps[eventID]
	return snap, ok
}

func (m *mapCache) PutSnapshot(_ context.Context, eventID int64, snap *models.TimelineSnapshot) {
	m.snaps[eventID] = snap
	m.puts++
}

func TestTimeline_CacheCollapsesRefetches(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, `{"doc":[{"data":{"match":{"status":{"name":"Ended"}}}}]}`)
	}))
	defer srv.Close()

	cache := &mapCache{snaps: make(map[int64]*models.TimelineSnapshot)}
	c := NewTimeline(srv.URL, time.Second, cache)

	first, err := c.FetchTimeline(context.Background(), 7)
	require.NoError(t, err)
	second, err := c.FetchTimeline(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 1, hits, "second fetch served from cache")
	assert.Equal(t, 1, cache.puts)
	assert.Same(t, first, second)
}
