package app

import (
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

// overlayStore answers selected keys from configuration before falling
// back to the persisted store. Writes always go to the store.
type overlayStore struct {
	ports.SettingsStore
	values map[string]string
}

func overlay(store ports.SettingsStore, cfg Config) ports.SettingsStore {
	values := map[string]string{}
	if cfg.SkipPrerequisite {
		values[ports.SettingSkipPrerequisite] = "true"
	}
	if len(values) == 0 {
		return store
	}
	return &overlayStore{SettingsStore: store, values: values}
}

func (s *overlayStore) Get(key string) (string, bool) {
	if v, ok := s.values[key]; ok {
		return v, true
	}
	return s.SettingsStore.Get(key)
}
