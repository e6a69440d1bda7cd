package am

import (
	"os"
	"sort"
	"strings"

	"github.com/teranos/rfbridge/errors"
)

// SystemConfigPath is the lowest-precedence config file
const SystemConfigPath = "/etc/rfbridge/config.toml"

// ConfigSource represents where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/rfbridge/config.toml
	SourceUser        ConfigSource = "user"        // ~/.rfbridge/am.toml
	SourceProject     ConfigSource = "project"     // nearest am.toml walking up from cwd
	SourceEnvironment ConfigSource = "environment" // RFBRIDGE_* env vars
)

// SettingInfo contains metadata about a configuration setting
type SettingInfo struct {
	Key        string       `json:"key"`
	Value      interface{}  `json:"value"`
	Source     ConfigSource `json:"source"`
	SourcePath string       `json:"source_path,omitempty"` // File path or env var name
}

// ConfigIntrospection provides metadata about the active configuration
type ConfigIntrospection struct {
	ConfigFile string        `json:"config_file"`
	Settings   []SettingInfo `json:"settings"`
}

// SourceInfo tracks where a configuration value originated
type SourceInfo struct {
	Source ConfigSource
	Path   string
}

// GetConfigIntrospection returns detailed information about active configuration
// using the sources tracked during loading
func GetConfigIntrospection() (*ConfigIntrospection, error) {
	if _, err := Load(); err != nil {
		return nil, errors.Wrap(err, "failed to load config for introspection")
	}
	v := GetViper()

	introspection := &ConfigIntrospection{
		ConfigFile: ActiveConfigFile(),
		Settings:   make([]SettingInfo, 0),
	}

	loadMu.Lock()
	sources := make(map[string]SourceInfo, len(ConfigSources))
	for k, si := range ConfigSources {
		sources[k] = si
	}
	loadMu.Unlock()

	flattenSettingsWithSources(v.AllSettings(), "", introspection, sources)
	return introspection, nil
}

// flattenSettingsWithSources flattens settings and assigns sources from sourceMap
func flattenSettingsWithSources(settings map[string]interface{}, prefix string, introspection *ConfigIntrospection, sourceMap map[string]SourceInfo) {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := settings[key]
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nestedMap, ok := value.(map[string]interface{}); ok {
			flattenSettingsWithSources(nestedMap, fullKey, introspection, sourceMap)
			continue
		}

		sourceInfo := SourceInfo{Source: SourceDefault, Path: "built-in default"}
		if si, ok := sourceMap[fullKey]; ok {
			sourceInfo = si
		}

		envKey := EnvKey(fullKey)
		if envValue := os.Getenv(envKey); envValue != "" {
			sourceInfo = SourceInfo{Source: SourceEnvironment, Path: envKey}
		}

		introspection.Settings = append(introspection.Settings, SettingInfo{
			Key:        fullKey,
			Value:      value,
			Source:     sourceInfo.Source,
			SourcePath: sourceInfo.Path,
		})
	}
}

// EnvKey returns the environment variable that overrides a dotted key
func EnvKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
