package fsm

import (
	"context"
	"encoding/json"
	"sync"
)

// Store persists one running dialogue per chat.
type Store interface {
	// Load returns nil when the chat has no dialogue.
	Load(ctx context.Context, chatID int64) (*Dialog, error)
	Save(ctx context.Context, d *Dialog) error
	Clear(ctx context.Context, chatID int64) error
}

// MemoryStore keeps dialogues in process. They are lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	dialogs map[int64][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{dialogs: make(map[int64][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, chatID int64) (*Dialog, error) {
	s.mu.Lock()
	raw, ok := s.dialogs[chatID]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return decode(raw)
}

func (s *MemoryStore) Save(_ context.Context, d *Dialog) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.dialogs[d.ChatID] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, chatID int64) error {
	s.mu.Lock()
	delete(s.dialogs, chatID)
	s.mu.Unlock()
	return nil
}

func decode(raw []byte) (*Dialog, error) {
	var d Dialog
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
