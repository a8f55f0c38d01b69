package group

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cavemanloverboy/balancer/types"
)

// Config describes a NATS-backed process group.
//
// Every member of a group must use an identical Name and Size; the pair is
// checksummed into every collective message so a misconfigured member is
// detected on first contact rather than corrupting gathered results.
type Config struct {
	// Name identifies the group. Members with different names never
	// exchange collective traffic, even on a shared NATS server.
	Name string `yaml:"name"`

	// Size is the fixed number of cooperating processes. The group is not
	// usable until all Size ranks have joined.
	Size int `yaml:"size"`

	// SubjectPrefix is prepended to every collective subject.
	// Default: "balancer".
	SubjectPrefix string `yaml:"subjectPrefix"`

	// RankBucket is the JetStream KV bucket used for rank claiming.
	// Default: "balancer-ranks-<name>". Unused when the launcher assigns
	// ranks explicitly.
	RankBucket string `yaml:"rankBucket"`

	// RankTTL is the lease duration for a claimed rank. A crashed member
	// frees its rank after this long. Default: 30s.
	RankTTL time.Duration `yaml:"rankTtl"`

	// JoinTimeout bounds how long joining waits for the full group to
	// assemble. Default: 30s.
	JoinTimeout time.Duration `yaml:"joinTimeout"`

	// CollectiveTimeout bounds each collective operation. A rank that never
	// calls the collective surfaces here as ErrCollectiveTimeout on the
	// ranks that did. Default: 60s.
	CollectiveTimeout time.Duration `yaml:"collectiveTimeout"`
}

// DefaultConfig returns a Config with production defaults. Name and Size
// have no sensible defaults and must be set by the caller.
func DefaultConfig() Config {
	return Config{
		SubjectPrefix:     "balancer",
		RankTTL:           30 * time.Second,
		JoinTimeout:       30 * time.Second,
		CollectiveTimeout: 60 * time.Second,
	}
}

// SetDefaults fills in missing configuration values in place.
//
// Parameters:
//   - cfg: Config to apply defaults to
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = defaults.SubjectPrefix
	}
	if cfg.RankBucket == "" && cfg.Name != "" {
		cfg.RankBucket = "balancer-ranks-" + cfg.Name
	}
	if cfg.RankTTL == 0 {
		cfg.RankTTL = defaults.RankTTL
	}
	if cfg.JoinTimeout == 0 {
		cfg.JoinTimeout = defaults.JoinTimeout
	}
	if cfg.CollectiveTimeout == 0 {
		cfg.CollectiveTimeout = defaults.CollectiveTimeout
	}
}

// Validate checks the configuration for correctness.
//
// Returns:
//   - error: Description of the first invalid field, nil if valid
func (cfg *Config) Validate() error {
	if cfg.Name == "" {
		return fmt.Errorf("group name is required")
	}
	// Name and prefix become NATS subject tokens; dots would break parsing.
	if strings.ContainsAny(cfg.Name, ". *>") {
		return fmt.Errorf("group name %q must not contain '.', ' ', '*' or '>'", cfg.Name)
	}
	if strings.ContainsAny(cfg.SubjectPrefix, ". *>") {
		return fmt.Errorf("subject prefix %q must not contain '.', ' ', '*' or '>'", cfg.SubjectPrefix)
	}
	if cfg.Size < 1 {
		return fmt.Errorf("%w: %d", types.ErrInvalidGroupSize, cfg.Size)
	}
	if cfg.RankTTL < time.Second {
		return fmt.Errorf("rank TTL %s is below the 1s minimum", cfg.RankTTL)
	}
	if cfg.CollectiveTimeout <= 0 {
		return fmt.Errorf("collective timeout must be positive, got %s", cfg.CollectiveTimeout)
	}

	return nil
}

// LoadConfig reads a Config from a YAML file and applies defaults.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - Config: Parsed configuration with defaults applied
//   - error: File or YAML parse error, or validation failure
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
