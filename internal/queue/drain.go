package queue

import (
	"context"
	"time"

	"github.com/aminimarket/marketplace-backend/pkg/logger"
)

// Sender delivers one queue entry. Implementations own transport and
// per-send timeouts; the drainer only sequences attempts.
type Sender interface {
	Send(ctx context.Context, entry Entry) error
}

// Drainer walks a queue in enqueue order and attempts delivery for every
// entry. A per-entry failure is recorded and does not stop the drain:
// delivery is best-effort per entry, not all-or-nothing.
type Drainer struct {
	sender Sender
	delay  time.Duration // pause between sends, respects downstream rate limits
}

func NewDrainer(sender Sender, delay time.Duration) *Drainer {
	return &Drainer{sender: sender, delay: delay}
}

// Drain attempts delivery for every entry and returns the per-entry report.
// Cancellation is cooperative: once ctx is done no further sends are issued,
// but the partial report is still returned so the caller can persist it.
func (d *Drainer) Drain(ctx context.Context, q *DeliveryQueue) *DeliveryReport {
	report := &DeliveryReport{
		SentAt:  time.Now(),
		Results: make([]SendResult, 0, len(q.Entries)),
	}

	logger.Info("Draining credential queue", map[string]interface{}{
		"entries": len(q.Entries),
	})

	for i, entry := range q.Entries {
		if ctx.Err() != nil {
			logger.Warn("Drain cancelled, stopping before remaining sends", map[string]interface{}{
				"attempted": i,
				"remaining": len(q.Entries) - i,
			})
			break
		}

		result := SendResult{
			Business: entry.Merchant.BusinessName,
			Email:    entry.Merchant.Email,
		}

		if err := d.sender.Send(ctx, entry); err != nil {
			result.Error = err.Error()
			logger.Error("Failed to deliver credential email", err, map[string]interface{}{
				"business": entry.Merchant.BusinessName,
				"email":    entry.Merchant.Email,
			})
		} else {
			result.Success = true
			logger.Info("Credential email delivered", map[string]interface{}{
				"business": entry.Merchant.BusinessName,
				"email":    entry.Merchant.Email,
			})
		}
		report.Results = append(report.Results, result)

		if d.delay > 0 && i < len(q.Entries)-1 {
			select {
			case <-time.After(d.delay):
			case <-ctx.Done():
			}
		}
	}

	logger.Info("Drain pass complete", map[string]interface{}{
		"attempted": len(report.Results),
		"successes": report.Successes(),
		"failures":  report.Failures(),
	})
	return report
}
