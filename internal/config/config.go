// Package config loads the run configuration that the core reconciliation
// engine needs but does not itself define: where the remote API lives, how
// to authenticate, which collection to sync, and where the local tree is
// rooted.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/eykd/outlinesync/internal/model"
)

// Config is the resolved run configuration.
type Config struct {
	APIBaseURL   string
	APIToken     string
	CollectionID string
	SyncRoot     string
}

// Load reads configPath (YAML or INI, chosen by viper from the file
// extension; both use the same flat keys) and returns the resolved Config. A missing or
// unparsable file, or one missing api_base_url/api_token, is a
// model.ConfigError — fatal, before Phase 1 ever runs.
func Load(configPath string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetDefault("sync_root", ".")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, &model.ConfigError{Msg: "reading " + configPath, Err: err}
	}

	// viper's INI decoder files section-less keys under "default"; lift
	// them to the top level so an INI file is read like a YAML one.
	if def, ok := v.Get("default").(map[string]any); ok {
		for k, val := range def {
			if !v.InConfig(k) {
				v.Set(k, val)
			}
		}
	}

	cfg := Config{
		APIBaseURL:   strings.TrimSuffix(v.GetString("api_base_url"), "/"),
		APIToken:     v.GetString("api_token"),
		CollectionID: v.GetString("collection_id"),
		SyncRoot:     v.GetString("sync_root"),
	}

	if cfg.APIBaseURL == "" {
		return Config{}, &model.ConfigError{Msg: "api_base_url is required"}
	}
	if cfg.APIToken == "" {
		return Config{}, &model.ConfigError{Msg: "api_token is required"}
	}

	return cfg, nil
}
