package am

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/rfbridge/errors"
	"github.com/teranos/rfbridge/logger"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}

	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		logger.Warnw("Failed to delete old config backup", "path", back3, "error", err)
	}

	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}

	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}

	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// loadOrInitializeConfigMap reads a TOML file into a nested map, or returns an empty map
func loadOrInitializeConfigMap(configPath string) (map[string]interface{}, error) {
	if err := os.MkdirAll(filepath.Dir(configPath), DefaultDirPermissions); err != nil {
		return nil, errors.Wrap(err, "failed to create config directory")
	}

	config := make(map[string]interface{})
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", configPath)
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", configPath)
	}
	return config, nil
}

// saveConfigMap writes the config with backup, marking the write as our own
func saveConfigMap(config map[string]interface{}, configPath string) error {
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	globalWatcherMu.Lock()
	if globalWatcher != nil && filepath.Clean(globalWatcher.configPath) == filepath.Clean(configPath) {
		globalWatcher.MarkOwnWrite()
	}
	globalWatcherMu.Unlock()

	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write config")
	}

	return nil
}

// SaveSetting sets a dotted key (e.g. bridge.fft_size) in the given file.
// The merged result is validated before anything is written.
func SaveSetting(configPath, key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) < 2 {
		return errors.Newf("key %q must be section.name", key)
	}
	if !IsKnownKey(key) {
		return errors.WithHint(errors.Newf("unknown configuration key %q", key), "run `rfbridge am show` to list keys")
	}

	config, err := loadOrInitializeConfigMap(configPath)
	if err != nil {
		return err
	}

	section := config
	for _, part := range parts[:len(parts)-1] {
		next, ok := section[part].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			section[part] = next
		}
		section = next
	}
	section[parts[len(parts)-1]] = value

	if err := validateConfigMap(config); err != nil {
		return err
	}

	return saveConfigMap(config, configPath)
}

// validateConfigMap round-trips the map through TOML and the normal loader
func validateConfigMap(config map[string]interface{}) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	tmp, err := os.CreateTemp("", "rfbridge-*.toml")
	if err != nil {
		return errors.Wrap(err, "failed to stage config")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to stage config")
	}
	tmp.Close()

	cfg, err := LoadFromFile(tmp.Name())
	if err != nil {
		return err
	}
	return cfg.Validate()
}
