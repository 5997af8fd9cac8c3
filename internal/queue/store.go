package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aminimarket/marketplace-backend/pkg/logger"
)

const (
	pendingFileName = "pending-credentials.json"
	archiveDirName  = "archive"
)

// Store persists the delivery queue under a single directory:
//
//	<dir>/pending-credentials.json        the one active queue artifact
//	<dir>/archive/credentials-<ts>.json   immutable delivery records
//
// Enqueue, Persist, Archive and Discard are serialized behind a mutex;
// cross-process exclusion is the dispatcher's job (redis lock).
type Store struct {
	dir string
	mu  sync.Mutex
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, archiveDirName), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create queue directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) pendingPath() string {
	return filepath.Join(s.dir, pendingFileName)
}

// Enqueue creates and persists a new pending queue. It fails with
// ErrQueueAlreadyPending when an undelivered artifact exists.
func (s *Store) Enqueue(entries []Entry, scheduledFor time.Time, scheduledTime string) (*DeliveryQueue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	existing, err := s.load()
	if err != nil {
		return nil, err
	}
	if existing != nil && len(existing.Entries) > 0 {
		logger.Warn("Refusing to enqueue over an undelivered queue", map[string]interface{}{
			"pending_entries": len(existing.Entries),
			"scheduled_for":   existing.ScheduledFor,
		})
		return nil, ErrQueueAlreadyPending
	}

	q := &DeliveryQueue{
		ScheduledFor:  scheduledFor,
		ScheduledTime: scheduledTime,
		CreatedAt:     time.Now(),
		Entries:       entries,
	}

	if err := s.persist(q); err != nil {
		return nil, err
	}

	logger.Info("Credential queue enqueued", map[string]interface{}{
		"entries":       len(entries),
		"scheduled_for": scheduledFor,
	})
	return q, nil
}

// Persist writes the queue artifact atomically (temp file, then rename), so a
// crash mid-write never leaves a half-written queue on the canonical path.
func (s *Store) Persist(q *DeliveryQueue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(q)
}

func (s *Store) persist(q *DeliveryQueue) error {
	data, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode queue: %w", err)
	}
	return atomicWrite(s.pendingPath(), data)
}

// Load reads the pending queue artifact. A missing artifact is not an error:
// it returns (nil, nil).
func (s *Store) Load() (*DeliveryQueue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*DeliveryQueue, error) {
	data, err := os.ReadFile(s.pendingPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read queue artifact: %w", err)
	}

	var q DeliveryQueue
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("failed to decode queue artifact: %w", err)
	}
	return &q, nil
}

// Archive writes the completed queue plus its delivery report to a
// timestamped archive file, then removes the canonical pending artifact.
// The archive path is keyed by the timestamp and never overwritten.
func (s *Store) Archive(q *DeliveryQueue, report *DeliveryReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	archived := ArchivedQueue{
		DeliveryQueue: *q,
		SentAt:        report.SentAt,
		Results:       report.Results,
	}

	data, err := json.MarshalIndent(archived, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode archive: %w", err)
	}

	name := fmt.Sprintf("credentials-%s.json", report.SentAt.Format("20060102-150405"))
	path := filepath.Join(s.dir, archiveDirName, name)
	if _, err := os.Stat(path); err == nil {
		// Two archives within the same second; disambiguate rather than overwrite
		name = fmt.Sprintf("credentials-%s.json", report.SentAt.Format("20060102-150405.000000000"))
		path = filepath.Join(s.dir, archiveDirName, name)
	}

	if err := atomicWrite(path, data); err != nil {
		return "", err
	}

	if err := os.Remove(s.pendingPath()); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to remove pending queue artifact: %w", err)
	}

	logger.Info("Credential queue archived", map[string]interface{}{
		"archive":   path,
		"entries":   len(q.Entries),
		"successes": report.Successes(),
		"failures":  report.Failures(),
	})
	return path, nil
}

// Discard removes the pending queue artifact without sending anything.
// Explicit operator action only.
func (s *Store) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.pendingPath()); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to discard pending queue: %w", err)
	}

	logger.Warn("Pending credential queue discarded", nil)
	return nil
}

// atomicWrite writes data to path via a temp file in the same directory
// followed by a rename.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".queue-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace artifact: %w", err)
	}
	return nil
}
