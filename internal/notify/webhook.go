package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/velasur/inventory-cli/internal/model"
)

// webhookPayload is the JSON body posted for each finished run.
type webhookPayload struct {
	Event        string           `json:"event"`
	RunID        string           `json:"run_id,omitempty"`
	Error        string           `json:"error,omitempty"`
	PriceUpdates int              `json:"price_updates"`
	StockUpdates int              `json:"stock_updates"`
	ErrorCount   int              `json:"error_count"`
	Report       *model.RunReport `json:"report,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// WebhookNotifier posts run outcomes to an HTTP endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier for the given URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *WebhookNotifier) NotifyReport(ctx context.Context, report *model.RunReport) error {
	return n.post(ctx, webhookPayload{
		Event:        "run_complete",
		PriceUpdates: report.PriceUpdates(),
		StockUpdates: report.StockUpdates(),
		ErrorCount:   report.FailedOps() + len(report.Diagnostics),
		Report:       report,
		Timestamp:    time.Now().UTC(),
	})
}

func (n *WebhookNotifier) NotifyError(ctx context.Context, runID string, runErr error) error {
	return n.post(ctx, webhookPayload{
		Event:     "run_failed",
		RunID:     runID,
		Error:     runErr.Error(),
		Timestamp: time.Now().UTC(),
	})
}

func (n *WebhookNotifier) post(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "notify: marshal webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "notify: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}

	zap.L().Info("notify: webhook delivered", zap.String("event", payload.Event))
	return nil
}
