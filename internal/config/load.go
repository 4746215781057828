package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// LoadFile reads and parses the configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Load(data)
}

// Load parses configuration from raw YAML bytes.
func Load(data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	if topo, ok := raw["topology"]; ok {
		if err := ValidateTopologyDocument(topo); err != nil {
			return nil, fmt.Errorf("topology validation failed: %w", err)
		}
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &cfg,
		TagName: "yaml",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills unset fields with their defaults. The client
// secret can always be supplied out-of-band via the environment to keep
// it out of the config file.
func applyDefaults(cfg *Config) {
	if secret := os.Getenv("FABRIC_CLIENT_SECRET"); secret != "" && cfg.Auth.ClientSecret == "" {
		cfg.Auth.ClientSecret = secret
	}
	if cfg.Auth.Resource == "" {
		cfg.Auth.Resource = "https://api.fabric.microsoft.com"
	}
	if cfg.Auth.TokenURL == "" && cfg.Auth.TenantID != "" {
		cfg.Auth.TokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.Auth.TenantID)
	}
	if cfg.Auth.TokenCachePath == "" {
		cfg.Auth.TokenCachePath = defaultTokenCachePath()
	}
	if cfg.Verify.GateThreshold == 0 {
		// The three foundational control-plane stages; never derived
		// from the stage count.
		cfg.Verify.GateThreshold = 3
	}
	if cfg.Report.Format == "" {
		cfg.Report.Format = "json"
	}
	if cfg.Report.Path == "" {
		cfg.Report.Path = "fabric-verify-report.json"
	}
}

func defaultTokenCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fabrictl-token.json"
	}
	return home + "/.fabrictl/token.json"
}
