// Package notify delivers run reports to operators, by email and
// optionally by webhook.
package notify

import (
	"context"

	"github.com/velasur/inventory-cli/internal/model"
)

// Notifier delivers the outcome of a sync run.
type Notifier interface {
	// NotifyReport sends the report of a finished run.
	NotifyReport(ctx context.Context, report *model.RunReport) error
	// NotifyError reports a run that aborted before producing a report.
	NotifyError(ctx context.Context, runID string, runErr error) error
}

// Multi fans a notification out to several notifiers. Delivery failures on
// one notifier do not prevent the others from being tried; the first error
// is returned.
type Multi []Notifier

func (m Multi) NotifyReport(ctx context.Context, report *model.RunReport) error {
	var first error
	for _, n := range m {
		if err := n.NotifyReport(ctx, report); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) NotifyError(ctx context.Context, runID string, runErr error) error {
	var first error
	for _, n := range m {
		if err := n.NotifyError(ctx, runID, runErr); err != nil && first == nil {
			first = err
		}
	}
	return first
}
