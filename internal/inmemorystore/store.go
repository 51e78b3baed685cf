package inmemorystore

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/agentconfgen/internal/node"
	"github.com/vk/agentconfgen/internal/nodestore"
	"github.com/vk/agentconfgen/internal/topic"
)

// Store is a map-backed nodestore.Store. Generation is single-threaded; the
// mutex only keeps the type safe to share with a reporting goroutine.
type Store struct {
	mu     sync.Mutex
	states map[string]node.Status
}

// New creates a new, empty in-memory store.
func New() nodestore.Store {
	return &Store{states: make(map[string]node.Status)}
}

// Track registers id as Pending.
func (s *Store) Track(_ context.Context, id topic.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := id.String()
	if _, ok := s.states[key]; ok {
		return fmt.Errorf("device %q is already tracked", key)
	}
	s.states[key] = node.Pending
	return nil
}

// SetStatus applies a validated transition.
func (s *Store) SetStatus(_ context.Context, id topic.Address, status node.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := id.String()
	cur, ok := s.states[key]
	if !ok {
		return fmt.Errorf("device %q is not tracked", key)
	}
	if err := node.Transition(cur, status); err != nil {
		return fmt.Errorf("device %q: %w", key, err)
	}
	s.states[key] = status
	return nil
}

// GetStatus returns the status of id.
func (s *Store) GetStatus(_ context.Context, id topic.Address) (node.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id.String()]
	if !ok {
		return node.Pending, fmt.Errorf("device %q is not tracked", id.String())
	}
	return st, nil
}

// Summary counts devices per status.
func (s *Store) Summary(_ context.Context) map[node.Status]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[node.Status]int)
	for _, st := range s.states {
		out[st]++
	}
	return out
}
