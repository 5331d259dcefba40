// Package conftools glues viper, pflag and the environment into one
// configuration struct keyed by json tags.
package conftools

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Unknown keys in a config file are an operator mistake; failing loudly
// beats silently ignoring a typoed option.
func decoderHook(dc *mapstructure.DecoderConfig) {
	dc.TagName = "json"
	dc.ErrorUnused = true
}

// Initialize points viper at the program's config file locations and
// binds environment variables with the program name as prefix, dots and
// dashes folded to underscores.
func Initialize(programName string) {
	viper.SetConfigName(programName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/" + programName)
	viper.SetEnvPrefix(strings.ToUpper(programName))
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// Load merges file, environment and command-line flags into cfg. A
// missing config file is fine; a broken one is not.
func Load(cfg any) error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read configuration file: %w", err)
		}
	}

	flag.Parse()
	if err := viper.BindPFlags(flag.CommandLine); err != nil {
		return fmt.Errorf("bind command-line flags: %w", err)
	}

	if err := viper.Unmarshal(cfg, decoderHook); err != nil {
		return fmt.Errorf("decode configuration: %w", err)
	}

	return nil
}

// Format renders every resolved option as one "key: value" line, sorted
// by key, with the named keys redacted.
func Format(disallowedKeys []string) []string {
	redacted := make(map[string]bool, len(disallowedKeys))
	for _, key := range disallowedKeys {
		redacted[key] = true
	}

	keys := viper.AllKeys()
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		if redacted[key] {
			lines = append(lines, fmt.Sprintf("%s: ***REDACTED***", key))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %v", key, viper.Get(key)))
	}

	return lines
}
