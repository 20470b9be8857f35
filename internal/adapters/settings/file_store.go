// Package settings provides file-backed implementations of ports.SettingsStore.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	// ErrCorrupt is returned when the settings file cannot be decoded.
	ErrCorrupt = errors.New("settings file is corrupt")
	// ErrSaveFailed is returned when the settings file cannot be written.
	ErrSaveFailed = errors.New("failed to save settings")
)

// Format is the on-disk encoding of a settings file.
type Format string

const (
	// FormatYAML encodes settings as a flat YAML mapping.
	FormatYAML Format = "yaml"
	// FormatTOML encodes settings as flat TOML key/value pairs.
	FormatTOML Format = "toml"
)

// FormatForPath picks the format from the file extension. Unknown extensions use YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// FileStore is a SettingsStore persisted to a single file.
// Every write rewrites the whole snapshot atomically.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	format Format
	values map[string]string
}

// Open loads the settings file at path. A missing file yields an empty store;
// the file is created on the first Set.
func Open(path string) (*FileStore, error) {
	s := &FileStore{
		path:   path,
		format: FormatForPath(path),
		values: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := s.decode(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the value stored under key. Empty values count as absent.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok && v != ""
}

// Set stores value under key and persists the snapshot.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.values[key]
	s.values[key] = value
	if err := s.save(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

// Clear removes every key and deletes the backing file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove settings: %w", err)
	}
	s.values = make(map[string]string)
	return nil
}

func (s *FileStore) decode(data []byte) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	switch s.format {
	case FormatTOML:
		return toml.Unmarshal(data, &s.values)
	default:
		return yaml.Unmarshal(data, &s.values)
	}
}

func (s *FileStore) encode() ([]byte, error) {
	switch s.format {
	case FormatTOML:
		return toml.Marshal(s.values)
	default:
		return yaml.Marshal(s.values)
	}
}

func (s *FileStore) save() error {
	data, err := s.encode()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("%w: failed to create directory: %w", ErrSaveFailed, err)
	}

	// The file holds the decryption key, so keep it private to the user.
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	return nil
}

var _ ports.SettingsStore = (*FileStore)(nil)
