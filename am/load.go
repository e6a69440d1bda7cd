package am

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/teranos/rfbridge/errors"
)

// EnvPrefix prefixes every environment override (RFBRIDGE_BRIDGE_FFT_SIZE, ...)
const EnvPrefix = "RFBRIDGE"

var (
	globalConfig  *Config
	viperInstance *viper.Viper
	loadMu        sync.Mutex
)

// ConfigSources records which file each merged key came from during the last load
var ConfigSources = map[string]SourceInfo{}

// Load reads the rfbridge configuration using Viper
func Load() (*Config, error) {
	loadMu.Lock()
	defer loadMu.Unlock()

	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViperLocked()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	globalConfig = &config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	loadMu.Lock()
	defer loadMu.Unlock()
	return initViperLocked()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path on top of the defaults
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	// Defaults only, environment overrides are not applied to a single-file load
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", configPath)
	}

	return &config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	loadMu.Lock()
	defer loadMu.Unlock()
	globalConfig = nil
	viperInstance = nil
	ConfigSources = map[string]SourceInfo{}
}

// initViperLocked initializes Viper with configuration sources and defaults.
// Callers hold loadMu.
func initViperLocked() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	BindEnvVars(v)
	SetDefaults(v)

	// Manually merge configs in precedence order: system -> user -> project -> env vars
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// findProjectConfig searches for am.toml by walking up the directory tree
// Returns the path to the first config file found, or empty string if none found
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		amPath := filepath.Join(dir, "am.toml")
		if _, err := os.Stat(amPath); err == nil {
			return amPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// GetUserConfigDir returns ~/.rfbridge
func GetUserConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".rfbridge")
}

// GetUserConfigPath returns the path of the per-user config file
func GetUserConfigPath() string {
	dir := GetUserConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "am.toml")
}

// configCascade lists the candidate files in ascending precedence
func configCascade() []SourceInfo {
	cascade := []SourceInfo{
		{Source: SourceSystem, Path: SystemConfigPath},
	}
	if user := GetUserConfigPath(); user != "" {
		cascade = append(cascade, SourceInfo{Source: SourceUser, Path: user})
	}
	if project := findProjectConfig(); project != "" {
		cascade = append(cascade, SourceInfo{Source: SourceProject, Path: project})
	}
	return cascade
}

// ActiveConfigFile returns the highest-precedence config file that exists,
// or an empty string when only defaults apply
func ActiveConfigFile() string {
	active := ""
	for _, candidate := range configCascade() {
		if _, err := os.Stat(candidate.Path); err == nil {
			active = candidate.Path
		}
	}
	return active
}

// mergeConfigFiles manually merges configuration files in the correct precedence order
// Precedence (lowest to highest): system < user < project < env vars
func mergeConfigFiles(v *viper.Viper) {
	for _, candidate := range configCascade() {
		if _, err := os.Stat(candidate.Path); err != nil {
			continue
		}

		tempViper := viper.New()
		tempViper.SetConfigFile(candidate.Path)
		tempViper.SetConfigType("toml")

		if err := tempViper.ReadInConfig(); err != nil {
			continue
		}

		// MergeConfigMap keeps file values below environment overrides
		if err := v.MergeConfigMap(tempViper.AllSettings()); err != nil {
			continue
		}
		for _, key := range tempViper.AllKeys() {
			ConfigSources[key] = candidate
		}
	}
}

// Get returns a configuration value using dot notation
func Get(key string) interface{} {
	return GetViper().Get(key)
}

// GetString returns a configuration value as string using dot notation
func GetString(key string) string {
	return GetViper().GetString(key)
}

// GetBool returns a configuration value as bool using dot notation
func GetBool(key string) bool {
	return GetViper().GetBool(key)
}

// GetInt returns a configuration value as int using dot notation
func GetInt(key string) int {
	return GetViper().GetInt(key)
}
