// Package config holds the store configuration. The store never reads
// ambient process state itself; callers build a Config (defaults, optional
// YAML file, MEMKEEP_* environment overrides) and pass it in, so multiple
// independently-configured stores can coexist.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config carries every tunable of the memory store.
type Config struct {
	// DataDir is the root directory for records, index and stats files.
	DataDir string `yaml:"data_dir" env:"MEMKEEP_DATA_DIR"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"MEMKEEP_LOG_LEVEL"`

	// DecayHalfLifeDays controls the exponential staleness decay applied
	// by the decay maintenance pass.
	DecayHalfLifeDays float64 `yaml:"decay_half_life_days" env:"MEMKEEP_DECAY_HALF_LIFE_DAYS"`

	// ArchiveMinScore and ArchiveMinAccess define the conjunctive low-value
	// filter of the archive pass: only memories below both thresholds (and
	// older than the caller-supplied cutoff) are archived.
	ArchiveMinScore  float64 `yaml:"archive_min_score" env:"MEMKEEP_ARCHIVE_MIN_SCORE"`
	ArchiveMinAccess int     `yaml:"archive_min_access" env:"MEMKEEP_ARCHIVE_MIN_ACCESS"`

	// SimilarityThreshold is the weighted text similarity above which the
	// consolidation pass merges two memories.
	SimilarityThreshold float64 `yaml:"similarity_threshold" env:"MEMKEEP_SIMILARITY_THRESHOLD"`

	// CacheSize bounds the id -> record read cache used by bulk loads.
	CacheSize int `yaml:"cache_size" env:"MEMKEEP_CACHE_SIZE"`

	// DefaultQueryLimit applies when a query gives no explicit limit.
	// Zero means unlimited.
	DefaultQueryLimit int `yaml:"default_query_limit" env:"MEMKEEP_DEFAULT_QUERY_LIMIT"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:             filepath.Join(home, ".memkeep"),
		LogLevel:            "info",
		DecayHalfLifeDays:   30,
		ArchiveMinScore:     0.3,
		ArchiveMinAccess:    5,
		SimilarityThreshold: 0.75,
		CacheSize:           256,
		DefaultQueryLimit:   0,
	}
}

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load builds a Config from defaults, an optional YAML file (with ${VAR}
// expansion), and MEMKEEP_* environment overrides, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: reading %s: %w", path, err)
		}
		expanded, err := expandEnv(raw)
		if err != nil {
			return cfg, fmt.Errorf("config: expanding variables in %s: %w", path, err)
		}
		if err := yaml.Unmarshal(expanded, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("config: environment overrides: %w", err)
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.DataDir == "" {
		return errors.New("config: data_dir is required")
	}
	if c.DecayHalfLifeDays <= 0 {
		return fmt.Errorf("config: decay_half_life_days must be positive, got %v", c.DecayHalfLifeDays)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("config: similarity_threshold must be in (0,1], got %v", c.SimilarityThreshold)
	}
	return nil
}

// expandEnv replaces ${VAR} and ${VAR:-default} patterns in raw YAML bytes.
// Returns an error listing all unresolved variables.
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error

	result := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		name := string(subs[1])
		hasDefault := len(subs) > 2 && subs[2] != nil

		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		if hasDefault {
			return subs[2]
		}

		errs = append(errs, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return result, errors.Join(errs...)
}
