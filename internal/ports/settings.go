package ports

// Persisted configuration keys.
const (
	SettingSecretKey        = "secret_key"
	SettingWorkDir          = "work_dir"
	SettingDataDir          = "data_dir"
	SettingSkipPrerequisite = "skip_prerequisite_check"
)

// SettingsStore is a last-writer-wins key-value store that survives restarts.
// Get reports whether the key is present; empty values count as absent.
type SettingsStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Clear() error
}

// SettingEnabled reports whether a boolean-valued setting is switched on.
func SettingEnabled(store SettingsStore, key string) bool {
	v, ok := store.Get(key)
	if !ok {
		return false
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
