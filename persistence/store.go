package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound is returned by Load when no snapshot exists for a machine.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is the persisted record of a state machine: its identifier, the
// current state name, the serialized context data and the save time.
type Snapshot struct {
	MachineID string          `json:"machine_id"`
	State     string          `json:"state"`
	Context   json.RawMessage `json:"context,omitempty"`
	SavedAt   time.Time       `json:"saved_at"`
}

// Store persists state machine snapshots. Implementations are best-effort
// collaborators: the machine logs and swallows their failures, so a Save
// error never aborts or rolls back a transition.
type Store interface {
	// Save records the machine's current state and context payload.
	Save(ctx context.Context, machineID, state string, payload any) error

	// Load returns the last saved snapshot, or ErrNotFound.
	Load(ctx context.Context, machineID string) (*Snapshot, error)

	// Delete removes the machine's snapshot. Deleting a missing snapshot
	// is not an error.
	Delete(ctx context.Context, machineID string) error
}

// encodePayload serializes the context payload for storage.
func encodePayload(payload any) (json.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot payload: %w", err)
	}
	return raw, nil
}

// MemoryStore is an in-process Store for tests and single-node setups.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]Snapshot)}
}

// Save records the snapshot in memory.
func (s *MemoryStore) Save(_ context.Context, machineID, state string, payload any) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[machineID] = Snapshot{
		MachineID: machineID,
		State:     state,
		Context:   raw,
		SavedAt:   time.Now(),
	}
	return nil
}

// Load returns the stored snapshot, or ErrNotFound.
func (s *MemoryStore) Load(_ context.Context, machineID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[machineID]
	if !ok {
		return nil, ErrNotFound
	}
	out := snap
	return &out, nil
}

// Delete removes the snapshot.
func (s *MemoryStore) Delete(_ context.Context, machineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, machineID)
	return nil
}
