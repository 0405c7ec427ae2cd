package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"cricketfancy/settlement/internal/models"

	"github.com/rs/zerolog/log"
)

// ErrBadEnvelope marks a listing response that decoded but failed the
// success-envelope checks. The tick that saw it is aborted; the watcher
// retries on its next period (no backoff, upstream is expected to flap
// around non-match hours).
var ErrBadEnvelope = errors.New("listing feed returned unusable envelope")

// Client talks to the upstream listing feed. One instance is shared by every
// watcher; a slow call blocks only the calling watcher's tick.
type Client struct {
	competitionsURL string
	eventsURL       string
	marketsURL      string
	sportID         int
	httpClient      *http.Client
}

// New creates a listing feed client.
func New(competitionsURL, eventsURL, marketsURL string, sportID int, timeout time.Duration) *Client {
	return &Client{
		competitionsURL: competitionsURL,
		eventsURL:       eventsURL,
		marketsURL:      marketsURL,
		sportID:         sportID,
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

// get performs one GET and unwraps the success envelope. Any transport
// error, non-200 status or envelope mismatch is a transient fetch failure.
func (c *Client) get(ctx context.Context, url string, params map[string]string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	q := req.URL.Query()
	for key, value := range params {
		q.Add(key, value)
	}
	req.URL.RawQuery = q.Encode()

	log.Debug().Str("url", req.URL.String()).Msg("Fetching listing")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing feed returned status %d", resp.StatusCode)
	}

	var env models.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode listing envelope: %w", err)
	}
	if !env.Valid() {
		return nil, fmt.Errorf("%w: success=%t msg=%q status=%d", ErrBadEnvelope, env.Success, env.Msg, env.Status)
	}

	return env.Data, nil
}

// Competitions fetches the currently listed competitions for the configured
// sport.
func (c *Client) Competitions(ctx context.Context) ([]models.CompetitionRow, error) {
	data, err := c.get(ctx, c.competitionsURL, map[string]string{
		"sportid": strconv.Itoa(c.sportID),
	})
	if err != nil {
		return nil, err
	}

	var rows []models.CompetitionRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode competitions: %w", err)
	}
	return rows, nil
}

// Events fetches the event listing of one competition.
func (c *Client) Events(ctx context.Context, competitionID int64) ([]models.EventRow, error) {
	data, err := c.get(ctx, c.eventsURL, map[string]string{
		"competitionid": strconv.FormatInt(competitionID, 10),
	})
	if err != nil {
		return nil, err
	}

	var rows []models.EventRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return rows, nil
}

// Markets fetches the market catalogue of one event.
func (c *Client) Markets(ctx context.Context, eventID int64) ([]models.MarketRow, error) {
	data, err := c.get(ctx, c.marketsURL, map[string]string{
		"eventId": strconv.FormatInt(eventID, 10),
	})
	if err != nil {
		return nil, err
	}

	var rows []models.MarketRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode markets: %w", err)
	}
	return rows, nil
}
