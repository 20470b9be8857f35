package mocks

import (
	"errors"
	"sync"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

// ErrSettingsWrite is returned by SettingsStore when FailWrites is set.
var ErrSettingsWrite = errors.New("mock settings write failure")

// SettingsStore is an in-memory ports.SettingsStore.
type SettingsStore struct {
	mu         sync.RWMutex
	values     map[string]string
	failWrites bool
	sets       int
}

// NewSettingsStore creates a store seeded with initial values.
func NewSettingsStore(initial map[string]string) *SettingsStore {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &SettingsStore{values: values}
}

// Get returns the value for key; empty values are reported as absent.
func (s *SettingsStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok && v != ""
}

// Set stores value under key.
func (s *SettingsStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return ErrSettingsWrite
	}
	s.values[key] = value
	s.sets++
	return nil
}

// Clear removes every key.
func (s *SettingsStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return ErrSettingsWrite
	}
	s.values = make(map[string]string)
	return nil
}

// FailWrites makes subsequent Set and Clear calls fail.
func (s *SettingsStore) FailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = fail
}

// SetCount returns the number of successful Set calls.
func (s *SettingsStore) SetCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sets
}

var _ ports.SettingsStore = (*SettingsStore)(nil)
