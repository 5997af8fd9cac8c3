// Package queue implements the durable credential delivery queue. The queue
// is a single JSON artifact on disk: enqueue writes it atomically, a drain
// walks its entries in order, and archival moves the artifact (plus per-entry
// results) into a timestamped archive file. A crash anywhere before archival
// leaves the pending artifact intact, so a restarted dispatcher resumes the
// batch (at-least-once delivery).
package queue

import (
	"errors"
	"time"
)

var (
	// ErrQueueAlreadyPending is returned by Enqueue when an undelivered queue
	// artifact already exists. The existing batch must be drained or
	// explicitly discarded first so it cannot be silently clobbered.
	ErrQueueAlreadyPending = errors.New("an undelivered credential queue already exists")

	// ErrNoEntries is returned when Enqueue is called with nothing to send
	ErrNoEntries = errors.New("no entries to enqueue")
)

// MerchantSnapshot is a copy of the merchant fields needed to address the
// welcome email. It is a snapshot, not a live reference: merchant edits made
// after enqueue must not change a queued email.
type MerchantSnapshot struct {
	InternalID   uint   `json:"internal_id"`
	BusinessName string `json:"business"`
	Email        string `json:"email"`
}

// Credentials is the welcome bundle delivered to a new merchant. The
// temporary password and setup token are plaintext here by design: the queue
// artifact is a trusted, short-lived file and is the only place they persist.
type Credentials struct {
	Email        string `json:"email"`
	TempPassword string `json:"tempPassword"`
	SetupURL     string `json:"setupUrl"`
	LoginURL     string `json:"loginUrl"`
}

// Entry is one pending credential email
type Entry struct {
	Merchant          MerchantSnapshot `json:"merchant"`
	Credentials       Credentials      `json:"credentials"`
	SetupToken        string           `json:"setupToken"`
	NeedsManualReview bool             `json:"needsUpdate"`
}

// DeliveryQueue is the unit of durability: the whole structure is persisted
// as one artifact. Entry order is enqueue order is send order.
type DeliveryQueue struct {
	ScheduledFor  time.Time `json:"scheduledFor"`
	ScheduledTime string    `json:"scheduledTime"` // display-only label, e.g. "09:00 EAT"
	CreatedAt     time.Time `json:"created"`
	Entries       []Entry   `json:"emails"`
}

// Due reports whether the queue's scheduled dispatch time has passed at t
func (q *DeliveryQueue) Due(t time.Time) bool {
	return !t.Before(q.ScheduledFor)
}

// SendResult records the outcome of one delivery attempt. Failed entries are
// listed by business name and email so an operator can resend manually.
type SendResult struct {
	Success  bool   `json:"success"`
	Business string `json:"business"`
	Email    string `json:"email"`
	Error    string `json:"error,omitempty"`
}

// DeliveryReport is the per-entry outcome of a full drain pass. Results
// appear in the same order as the input queue.
type DeliveryReport struct {
	SentAt  time.Time    `json:"sentAt"`
	Results []SendResult `json:"results"`
}

// Successes counts entries that were delivered
func (r *DeliveryReport) Successes() int {
	n := 0
	for _, res := range r.Results {
		if res.Success {
			n++
		}
	}
	return n
}

// Failures counts entries whose delivery failed
func (r *DeliveryReport) Failures() int {
	return len(r.Results) - r.Successes()
}

// ArchivedQueue is the immutable record of a completed delivery pass:
// the original queue plus the report.
type ArchivedQueue struct {
	DeliveryQueue
	SentAt  time.Time    `json:"sentAt"`
	Results []SendResult `json:"results"`
}
