package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/qpcr-lab/rq-analyzer/ingest"
)

// ParseConfig attempts to read and parse configuration from the given file path.
// An error is returned if reading or parsing the config fails.
func ParseConfig(configPath string) (Config, error) {
	return ParseConfigs([]string{configPath})
}

// ParseConfigs attempts to read and parse configuration from the given file paths.
// Later files override earlier ones. An error is returned if reading or parsing
// the configs fails.
func ParseConfigs(configPaths []string) (Config, error) {
	var cfg Config

	v := viper.New()
	v.AutomaticEnv()
	// Allow nested env vars to be read with underscore separators.
	v.SetEnvPrefix("RQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerDefaults(v)

	// Loop over each config path and merge its values into the previous one
	for _, configPath := range configPaths {
		if configPath == "" {
			return cfg, ErrEmptyConfigPath
		}
		v.SetConfigFile(configPath)
		if err := v.MergeInConfig(); err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	}

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.setDefaults()

	return cfg, cfg.Validate()
}

// registerDefaults sets the defaults of keys whose zero value is meaningful,
// so that they are only used when a key is absent from every config file.
func registerDefaults(v *viper.Viper) {
	layout := ingest.DefaultLayout()
	v.SetDefault("ingest.header_row", layout.HeaderRow)
	v.SetDefault("ingest.sample_column", layout.SampleColumn)
	v.SetDefault("ingest.target_column", layout.TargetColumn)
	v.SetDefault("ingest.ct_column", layout.CtColumn)
	v.SetDefault("ingest.header_search_rows", layout.HeaderSearchRows)
}
