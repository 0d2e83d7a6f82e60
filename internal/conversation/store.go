// Package conversation holds the per-chat-identity registration scratch state.
// State is a keyed record with replace-on-write semantics: handlers read the
// whole record, decide, and write the whole record back (or clear it). The
// dispatcher serializes access per chat identity, so stores only need to be
// safe across identities.
package conversation

import (
	"context"
	"sync"
	"time"
)

// State names the registration flow position for one conversation.
type State string

const (
	// StateAwaitingUsername means a /start was seen and the next plain-text
	// message is treated as the account handle submission.
	StateAwaitingUsername State = "awaiting_username"
)

// Scratch is the transient data collected during one registration flow.
type Scratch struct {
	State       State  `json:"state"`
	DisplayName string `json:"display_name"`
}

// Store persists scratch records keyed by chat identity.
type Store interface {
	Get(ctx context.Context, chatIdentity string) (Scratch, bool, error)
	Put(ctx context.Context, chatIdentity string, scratch Scratch) error
	Clear(ctx context.Context, chatIdentity string) error
}

// MemoryStore is the in-process store used when no Redis is configured and in
// tests. Entries expire lazily after the configured TTL.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	scratch  Scratch
	deadline time.Time
}

// NewMemoryStore builds an empty in-process store. A zero TTL disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(_ context.Context, chatIdentity string) (Scratch, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[chatIdentity]
	if !ok {
		return Scratch{}, false, nil
	}
	if !entry.deadline.IsZero() && time.Now().After(entry.deadline) {
		delete(s.entries, chatIdentity)
		return Scratch{}, false, nil
	}
	return entry.scratch, true, nil
}

func (s *MemoryStore) Put(_ context.Context, chatIdentity string, scratch Scratch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{scratch: scratch}
	if s.ttl > 0 {
		entry.deadline = time.Now().Add(s.ttl)
	}
	s.entries[chatIdentity] = entry
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, chatIdentity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, chatIdentity)
	return nil
}
