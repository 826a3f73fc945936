package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is an optional declarative overlay seeding the allowlist and
// threshold defaults for a deployment, read once at startup.
type Profile struct {
	Allowlist  []ProfileAllowEntry `yaml:"allowlist,omitempty"`
	Thresholds ProfileThresholds   `yaml:"thresholds,omitempty"`
}

// ProfileAllowEntry pre-seeds one allowlist entry so a deployment does
// not have to issue allowlist.add actions for known-good domains before
// Core can use them.
type ProfileAllowEntry struct {
	ServiceName string `yaml:"serviceName"`
	Domain      string `yaml:"domain"`
	Protocol    string `yaml:"protocol"`
	Rule        string `yaml:"rule,omitempty"`
}

// ProfileThresholds overrides the Config defaults that Load() otherwise
// derives from environment variables.
type ProfileThresholds struct {
	GlobalRateLimit       *int   `yaml:"globalRateLimit,omitempty"`
	RateLimitWindowMs     *int64 `yaml:"rateLimitWindowMs,omitempty"`
	AnomalyBurstThreshold *int   `yaml:"anomalyBurstThreshold,omitempty"`
	ReplaySeconds         *int   `yaml:"replaySeconds,omitempty"`
}

// LoadProfile reads and parses a profile overlay YAML file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read profile %q: %w", path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("config: parse profile %q: %w", path, err)
	}
	return &p, nil
}

// Apply overlays the profile's threshold overrides onto cfg in place.
func (p *Profile) Apply(cfg *Config) {
	if p == nil {
		return
	}
	if v := p.Thresholds.GlobalRateLimit; v != nil {
		cfg.GlobalRateLimit = *v
	}
	if v := p.Thresholds.RateLimitWindowMs; v != nil {
		cfg.RateLimitWindowMs = *v
	}
	if v := p.Thresholds.AnomalyBurstThreshold; v != nil {
		cfg.AnomalyBurstThreshold = *v
	}
	if v := p.Thresholds.ReplaySeconds; v != nil {
		cfg.ReplaySeconds = *v
	}
}
