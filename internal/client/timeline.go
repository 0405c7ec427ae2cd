package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cricketfancy/settlement/internal/metrics"
	"cricketfancy/settlement/internal/models"

	"github.com/rs/zerolog/log"
)

// ErrNoTimeline marks a timeline response missing the expected nested
// structure; the resolution attempt that saw it reports NotAvailable.
var ErrNoTimeline = errors.New("timeline feed returned no usable document")

// SnapshotCache is a best-effort short-TTL cache keyed by event id. Both
// methods may fail without affecting correctness: a miss or a broken cache
// just means a direct fetch.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, eventID int64) (*models.TimelineSnapshot, bool)
	PutSnapshot(ctx context.Context, eventID int64, snap *models.TimelineSnapshot)
}

// TimelineClient fetches the per-event ball-by-ball snapshot.
type TimelineClient struct {
	baseURL    string
	httpClient *http.Client
	cache      SnapshotCache // nil when redis is unavailable
}

// NewTimeline creates a timeline feed client. cache may be nil.
func NewTimeline(baseURL string, timeout time.Duration, cache SnapshotCache) *TimelineClient {
	return &TimelineClient{
		baseURL: baseURL,
		cache:   cache,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// timelineResponse is the raw feed wrapper around the snapshot.
type timelineResponse struct {
	Doc []struct {
		Data *models.TimelineSnapshot `json:"data"`
	} `json:"doc"`
}

// FetchTimeline retrieves the snapshot for one event. Every resolution
// attempt is independent; the cache only collapses refetches of the same
// event by sibling session pollers within one poll period.
func (c *TimelineClient) FetchTimeline(ctx context.Context, eventID int64) (*models.TimelineSnapshot, error) {
	if c.cache != nil {
		if snap, ok := c.cache.GetSnapshot(ctx, eventID); ok {
			metrics.TimelineCacheHitsTotal.Inc()
			return snap, nil
		}
	}

	url := fmt.Sprintf("%s/%d", c.baseURL, eventID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.TimelineFetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("timeline request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.TimelineFetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to read timeline response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.TimelineFetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("timeline feed returned status %d", resp.StatusCode)
	}

	var tr timelineResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		metrics.TimelineFetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to decode timeline: %w", err)
	}

	if len(tr.Doc) == 0 || tr.Doc[0].Data == nil {
		metrics.TimelineFetchesTotal.WithLabelValues("empty").Inc()
		return nil, ErrNoTimeline
	}

	snap := tr.Doc[0].Data
	metrics.TimelineFetchesTotal.WithLabelValues("ok").Inc()

	if c.cache != nil {
		c.cache.PutSnapshot(ctx, eventID, snap)
	}

	log.Debug().Int64("event_id", eventID).Int("events", len(snap.Events)).Msg("Timeline fetched")
	return snap, nil
}
