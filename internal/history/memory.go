package history

import (
	"context"
	"sync"

	"snowdemo/cli/internal/llm"
)

// Memory is a process-local Store.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string][]llm.Message
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string][]llm.Message)}
}

func (m *Memory) Append(_ context.Context, sessionID string, msgs ...llm.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], msgs...)
	return nil
}

func (m *Memory) Load(_ context.Context, sessionID string) ([]llm.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]llm.Message(nil), m.sessions[sessionID]...), nil
}

func (m *Memory) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *Memory) Close() error { return nil }
