package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velasur/inventory-cli/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleReport() *model.RunReport {
	started := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	return &model.RunReport{
		StartedAt:   started,
		FinishedAt:  started.Add(90 * time.Second),
		CatalogSize: 250,
		Files: []model.FileSummary{
			{Name: "precios.csv", RowsParsed: 40, Matched: 35},
		},
		Ops: []model.Op{
			{Kind: model.OpPrice, SKU: "AB-1", OldPrice: dec("100.00"), NewPrice: dec("80.00"), IsOffer: true, Applied: true},
			{Kind: model.OpStock, SKU: "AB-1", OldStock: 50, NewStock: 10, Delta: -40, Applied: true},
			{Kind: model.OpPrice, SKU: "CD-2", OldPrice: dec("10.00"), NewPrice: dec("12.00"), Applied: false, Error: "status 422"},
		},
		Diagnostics: []model.Diagnostic{
			{Code: model.DiagUnmatchedSKU, File: "precios.csv", Row: 7, SKU: "ZZ-9", Reason: "sku not found in catalog"},
		},
	}
}

func TestRenderReport(t *testing.T) {
	subject, htmlBody, textBody, err := renderReport(sampleReport())
	require.NoError(t, err)

	// One failed op plus one diagnostic.
	assert.Equal(t, "Inventory update completed with 2 errors", subject)

	assert.Contains(t, htmlBody, "AB-1")
	assert.Contains(t, htmlBody, "80.00 EUR")
	assert.Contains(t, htmlBody, "Yes")
	assert.Contains(t, htmlBody, "-40")
	assert.Contains(t, htmlBody, "sku not found in catalog")

	assert.Contains(t, textBody, "Price updates:   2")
	assert.Contains(t, textBody, "Stock updates:   1")
	assert.Contains(t, textBody, "AB-1: 100.00 EUR -> 80.00 EUR (offer)")
	assert.Contains(t, textBody, "[failed]")
	assert.Contains(t, textBody, "precios.csv row 7 [ZZ-9]")
}

func TestRenderReportNoChanges(t *testing.T) {
	report := &model.RunReport{
		StartedAt:  time.Now().Add(-time.Minute),
		FinishedAt: time.Now(),
	}
	subject, _, textBody, err := renderReport(report)
	require.NoError(t, err)
	assert.Equal(t, "Inventory update completed - no changes required", subject)
	assert.Contains(t, textBody, "Price updates:   0")
}

func TestRenderReportSuccessSubject(t *testing.T) {
	report := sampleReport()
	report.Ops = report.Ops[:2]
	report.Diagnostics = nil

	subject, _, _, err := renderReport(report)
	require.NoError(t, err)
	assert.Equal(t, "Inventory update successful - 1 price, 1 stock updates", subject)
}

func TestRenderReportTruncatesDetails(t *testing.T) {
	report := &model.RunReport{
		StartedAt:  time.Now().Add(-time.Minute),
		FinishedAt: time.Now(),
	}
	for i := 0; i < 25; i++ {
		report.Ops = append(report.Ops, model.Op{
			Kind: model.OpPrice, SKU: "SKU", NewPrice: dec("5.00"), Applied: true,
		})
	}

	_, htmlBody, _, err := renderReport(report)
	require.NoError(t, err)
	assert.Contains(t, htmlBody, "and 15 more")
}

func TestBuildMessageMultipart(t *testing.T) {
	msg, err := buildMessage("sync@example.com", []string{"ops@example.com"}, "Subject line",
		"<html><body>hi</body></html>", "hi")
	require.NoError(t, err)

	s := string(msg)
	assert.Contains(t, s, "From: sync@example.com")
	assert.Contains(t, s, "To: ops@example.com")
	assert.Contains(t, s, "Subject: Subject line")
	assert.Contains(t, s, "multipart/alternative")
	assert.Contains(t, s, "text/plain; charset=utf-8")
	assert.Contains(t, s, "text/html; charset=utf-8")
}

func TestWebhookNotifierReport(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL)
	require.NoError(t, n.NotifyReport(context.Background(), sampleReport()))

	assert.Equal(t, "run_complete", got.Event)
	assert.Equal(t, 1, got.PriceUpdates)
	assert.Equal(t, 1, got.StockUpdates)
	assert.Equal(t, 2, got.ErrorCount)
	require.NotNil(t, got.Report)
}

func TestWebhookNotifierError(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL)
	require.NoError(t, n.NotifyError(context.Background(), "run-7", errors.New("catalog fetch failed")))

	assert.Equal(t, "run_failed", got.Event)
	assert.Equal(t, "run-7", got.RunID)
	assert.Contains(t, got.Error, "catalog fetch failed")
}

func TestWebhookNotifierServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL)
	err := n.NotifyReport(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

type stubNotifier struct {
	reports int
	fail    bool
}

func (s *stubNotifier) NotifyReport(_ context.Context, _ *model.RunReport) error {
	s.reports++
	if s.fail {
		return errors.New("delivery failed")
	}
	return nil
}

func (s *stubNotifier) NotifyError(_ context.Context, _ string, _ error) error {
	if s.fail {
		return errors.New("delivery failed")
	}
	return nil
}

func TestMultiNotifierContinuesOnFailure(t *testing.T) {
	failing := &stubNotifier{fail: true}
	ok := &stubNotifier{}

	m := Multi{failing, ok}
	err := m.NotifyReport(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Equal(t, 1, failing.reports)
	assert.Equal(t, 1, ok.reports)
}
