package am

import (
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/teranos/rfbridge/errors"
)

// knownKeys is the set of dotted keys that SetDefaults declares, plus their sections
var knownKeys, knownSections = func() (map[string]bool, map[string]bool) {
	v := viper.New()
	SetDefaults(v)
	keys := make(map[string]bool)
	sections := make(map[string]bool)
	for _, k := range v.AllKeys() {
		keys[k] = true
		if i := strings.IndexByte(k, '.'); i > 0 {
			sections[k[:i]] = true
		}
	}
	return keys, sections
}()

// IsKnownKey reports whether key is a recognised configuration setting
func IsKnownKey(key string) bool {
	return knownKeys[key]
}

// CheckUnknownKeys parses a TOML file and returns every key that no setting uses.
// Viper silently ignores misspelled keys; this surfaces them for `am validate`.
func CheckUnknownKeys(configPath string) ([]string, error) {
	var raw map[string]interface{}
	md, err := toml.DecodeFile(configPath, &raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", configPath)
	}

	var unknown []string
	for _, key := range md.Keys() {
		if len(key) == 1 && knownSections[key[0]] {
			continue
		}
		if !IsKnownKey(key.String()) {
			unknown = append(unknown, key.String())
		}
	}
	sort.Strings(unknown)
	return unknown, nil
}
