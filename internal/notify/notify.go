// Package notify pushes settlement results to downstream consumers: an HTTP
// webhook per subscriber on every resolved session, and a daily email digest
// of the failure backlog.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cricketfancy/settlement/internal/metrics"
	"cricketfancy/settlement/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"gopkg.in/gomail.v2"
)

// SMTPConfig configures the digest sender. A zero Host disables email.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Notifier delivers results. Webhook failures are logged and dropped;
// subscribers are expected to reconcile from the store if they miss a push.
type Notifier struct {
	subscribers []string
	httpClient  *http.Client
	smtp        SMTPConfig
}

func New(subscribers []string, timeout time.Duration, smtp SMTPConfig) *Notifier {
	return &Notifier{
		subscribers: subscribers,
		httpClient:  &http.Client{Timeout: timeout},
		smtp:        smtp,
	}
}

// webhookPayload mirrors the session document fields subscribers key on.
type webhookPayload struct {
	EventID     int64  `json:"eventId"`
	MarketID    int64  `json:"marketId"`
	SelectionID int64  `json:"selectionId"`
	MarketName  string `json:"marketName"`
	Result      any    `json:"result"`
}

// SessionResolved fans the result out to every subscriber concurrently and
// returns when all deliveries finished or failed.
func (n *Notifier) SessionResolved(ctx context.Context, session *models.Session) {
	if len(n.subscribers) == 0 {
		return
	}

	body, err := json.Marshal(webhookPayload{
		EventID:     session.EventID,
		MarketID:    session.MarketID,
		SelectionID: session.SelectionID,
		MarketName:  session.MarketName,
		Result:      session.Result,
	})
	if err != nil {
		log.Error().Err(err).Str("identity", session.Identity.String()).Msg("Failed to marshal webhook payload")
		return
	}

	p := pool.New().WithContext(ctx)
	for _, url := range n.subscribers {
		url := url
		p.Go(func(ctx context.Context) error {
			n.deliver(ctx, url, body, session.Identity.String())
			return nil
		})
	}
	_ = p.Wait()
}

func (n *Notifier) deliver(ctx context.Context, url string, body []byte, identity string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		metrics.WebhookDeliveriesTotal.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("url", url).Msg("Failed to build webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		metrics.WebhookDeliveriesTotal.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("url", url).Str("identity", identity).Msg("Webhook delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		metrics.WebhookDeliveriesTotal.WithLabelValues("error").Inc()
		log.Warn().Int("status", resp.StatusCode).Str("url", url).Str("identity", identity).Msg("Webhook rejected")
		return
	}
	metrics.WebhookDeliveriesTotal.WithLabelValues("ok").Inc()
}

// digestOrder fixes the line order of the digest body.
var digestOrder = []models.Status{
	models.StatusNotAvailable,
	models.StatusNotHandled,
	models.StatusNotProcessable,
	models.StatusUnexpectedResult,
}

// SendDigest emails the failure-backlog counts to the operations address.
func (n *Notifier) SendDigest(counts map[models.Status]int64) error {
	if n.smtp.Host == "" || n.smtp.To == "" {
		return nil
	}

	var body bytes.Buffer
	var total int64
	body.WriteString("Unresolved session backlog:\n\n")
	for _, status := range digestOrder {
		fmt.Fprintf(&body, "%-18s %d\n", status.String(), counts[status])
		total += counts[status]
	}
	fmt.Fprintf(&body, "\nTotal: %d\n", total)

	m := gomail.NewMessage()
	m.SetHeader("From", n.smtp.From)
	m.SetHeader("To", n.smtp.To)
	m.SetHeader("Subject", fmt.Sprintf("Session settlement digest: %d unresolved", total))
	m.SetBody("text/plain", body.String())

	d := gomail.NewDialer(n.smtp.Host, n.smtp.Port, n.smtp.Username, n.smtp.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send digest email: %w", err)
	}

	log.Info().Int64("unresolved", total).Msg("Digest email sent")
	return nil
}
