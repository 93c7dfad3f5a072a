package quote

import (
	"context"
	"log/slog"
)

// Notifier tells the site owner about a new quote request. Implementations
// must not block the request path for long; failures are logged, not
// surfaced to the submitter.
type Notifier interface {
	NotifyNewQuote(ctx context.Context, q *Quote) error
}

// LogNotifier records new submissions in the structured log. It stands in
// for an email integration in environments without one.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyNewQuote(ctx context.Context, q *Quote) error {
	n.logger.InfoContext(ctx, "new quote request",
		"reference", q.ReferenceNumber,
		"commodity", q.CommodityType,
		"quantity", q.Quantity,
		"unit", q.Unit,
		"timeline", q.DeliveryTimeline,
	)
	return nil
}
