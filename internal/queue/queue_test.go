package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntries(n int) []Entry {
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, Entry{
			Merchant: MerchantSnapshot{
				InternalID:   uint(i + 1),
				BusinessName: "Business " + string(rune('A'+i)),
				Email:        string(rune('a'+i)) + "@example.com",
			},
			Credentials: Credentials{
				Email:        string(rune('a'+i)) + "@example.com",
				TempPassword: "Temp-Pass-123!",
				SetupURL:     "https://shop.example.com/merchant/account-setup/abc",
				LoginURL:     "https://shop.example.com/auth?merchant=true",
			},
			SetupToken:        "abc",
			NeedsManualReview: true,
		})
	}
	return entries
}

func TestStore_EnqueueAndLoad(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	scheduledFor := time.Now().Add(time.Hour).Truncate(time.Second)
	q, err := store.Enqueue(testEntries(3), scheduledFor, "09:00 EAT")
	require.NoError(t, err)
	assert.Len(t, q.Entries, 3)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Len(t, loaded.Entries, 3)
	assert.Equal(t, "09:00 EAT", loaded.ScheduledTime)
	assert.True(t, scheduledFor.Equal(loaded.ScheduledFor))

	// Enqueue order survives the round trip
	for i, entry := range loaded.Entries {
		assert.Equal(t, uint(i+1), entry.Merchant.InternalID)
	}
}

func TestStore_Enqueue_RefusesSecondQueue(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Enqueue(testEntries(1), time.Now(), "")
	require.NoError(t, err)

	_, err = store.Enqueue(testEntries(2), time.Now(), "")
	assert.ErrorIs(t, err, ErrQueueAlreadyPending)

	// The original queue is untouched
	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, loaded.Entries, 1)
}

func TestStore_Enqueue_EmptyEntries(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Enqueue(nil, time.Now(), "")
	assert.ErrorIs(t, err, ErrNoEntries)
}

func TestStore_Load_MissingArtifact(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	loaded, err := store.Load()
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStore_ArtifactWireFormat(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	_, err = store.Enqueue(testEntries(1), time.Now(), "09:00 EAT")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "pending-credentials.json"))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "scheduledFor")
	assert.Contains(t, raw, "scheduledTime")
	assert.Contains(t, raw, "created")
	assert.Contains(t, raw, "emails")

	var emails []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["emails"], &emails))
	require.Len(t, emails, 1)
	assert.Contains(t, emails[0], "merchant")
	assert.Contains(t, emails[0], "credentials")
	assert.Contains(t, emails[0], "setupToken")
	assert.Contains(t, emails[0], "needsUpdate")
}

func TestStore_Archive(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	q, err := store.Enqueue(testEntries(2), time.Now(), "")
	require.NoError(t, err)

	report := &DeliveryReport{
		SentAt: time.Now(),
		Results: []SendResult{
			{Success: true, Business: "Business A", Email: "a@example.com"},
			{Success: false, Business: "Business B", Email: "b@example.com", Error: "smtp timeout"},
		},
	}

	path, err := store.Archive(q, report)
	require.NoError(t, err)
	assert.FileExists(t, path)

	// Pending artifact is gone after archival
	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var archived ArchivedQueue
	require.NoError(t, json.Unmarshal(data, &archived))
	assert.Len(t, archived.Entries, 2)
	require.Len(t, archived.Results, 2)
	assert.True(t, archived.Results[0].Success)
	assert.Equal(t, "smtp timeout", archived.Results[1].Error)
}

func TestStore_Discard(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	// Discarding when nothing is pending is a no-op
	assert.NoError(t, store.Discard())

	_, err = store.Enqueue(testEntries(1), time.Now(), "")
	require.NoError(t, err)

	require.NoError(t, store.Discard())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// A new queue can be enqueued after a discard
	_, err = store.Enqueue(testEntries(1), time.Now(), "")
	assert.NoError(t, err)
}

func TestDeliveryQueue_Due(t *testing.T) {
	now := time.Now()
	q := &DeliveryQueue{ScheduledFor: now}

	assert.False(t, q.Due(now.Add(-time.Minute)))
	assert.True(t, q.Due(now))
	assert.True(t, q.Due(now.Add(time.Minute)))
}

// recordingSender records send order and fails for configured addresses
type recordingSender struct {
	sent    []string
	failFor map[string]error
}

func (s *recordingSender) Send(_ context.Context, entry Entry) error {
	s.sent = append(s.sent, entry.Merchant.Email)
	if err, ok := s.failFor[entry.Merchant.Email]; ok {
		return err
	}
	return nil
}

func TestDrainer_Drain_Order(t *testing.T) {
	sender := &recordingSender{}
	drainer := NewDrainer(sender, 0)

	q := &DeliveryQueue{Entries: testEntries(3)}
	report := drainer.Drain(context.Background(), q)

	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, sender.sent)
	assert.Equal(t, 3, report.Successes())
	assert.Equal(t, 0, report.Failures())
}

func TestDrainer_Drain_PartialFailure(t *testing.T) {
	sender := &recordingSender{
		failFor: map[string]error{"b@example.com": errors.New("mailbox full")},
	}
	drainer := NewDrainer(sender, 0)

	q := &DeliveryQueue{Entries: testEntries(3)}
	report := drainer.Drain(context.Background(), q)

	// A failed entry does not stop the remaining sends
	assert.Len(t, sender.sent, 3)
	assert.Equal(t, 2, report.Successes())
	assert.Equal(t, 1, report.Failures())

	require.Len(t, report.Results, 3)
	assert.True(t, report.Results[0].Success)
	assert.False(t, report.Results[1].Success)
	assert.Equal(t, "mailbox full", report.Results[1].Error)
	assert.Equal(t, "Business B", report.Results[1].Business)
	assert.True(t, report.Results[2].Success)
}

func TestDrainer_Drain_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := &recordingSender{}
	drainer := NewDrainer(sender, 0)

	q := &DeliveryQueue{Entries: testEntries(3)}
	report := drainer.Drain(ctx, q)

	// No sends after cancellation; the partial report is still returned
	assert.Empty(t, sender.sent)
	assert.NotNil(t, report)
	assert.Empty(t, report.Results)
}
