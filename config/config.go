// Package config loads the engine's environment flags (§6) with safe
// fallback to defaults on missing or malformed values, plus optional YAML
// overrides for local development and the demo CLI.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Engine holds the tunables read from the environment or a YAML file. Zero
// value is invalid; use Default() or Load() to obtain a populated Engine.
type Engine struct {
	// FlushIntervalMS is the maximum time the turn engine consumer holds
	// buffered text before calling emit_text, in milliseconds.
	FlushIntervalMS int `yaml:"flush_interval_ms"`
	// MaxBatchChars is the buffer length, in characters, that forces an
	// immediate emit_text flush regardless of the flush interval.
	MaxBatchChars int `yaml:"max_batch_chars"`
	// MaxCloudSize is the point-cloud cap the optimizer prunes down to.
	MaxCloudSize int `yaml:"max_cloud_size"`
	// ExplorationRate biases the optimizer's parent-bin sampling toward
	// under-explored bins; must lie in [0, 1].
	ExplorationRate float64 `yaml:"exploration_rate"`
}

// Default returns the documented defaults for every flag.
func Default() Engine {
	return Engine{
		FlushIntervalMS: 40,
		MaxBatchChars:   256,
		MaxCloudSize:    1000,
		ExplorationRate: 0.1,
	}
}

// Load returns Default() overridden first by a YAML file at path (skipped if
// path is empty or unreadable) and then by environment variables. Malformed
// environment values are ignored, leaving the prior value (YAML or default)
// in place, matching the §6 contract "malformed values fall back to
// defaults."
func Load(path string) Engine {
	cfg := Default()
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			var fromFile Engine
			if yaml.Unmarshal(data, &fromFile) == nil {
				cfg = mergeNonZero(cfg, fromFile)
			}
		}
	}
	applyEnv(&cfg)
	return cfg
}

func mergeNonZero(base, override Engine) Engine {
	if override.FlushIntervalMS != 0 {
		base.FlushIntervalMS = override.FlushIntervalMS
	}
	if override.MaxBatchChars != 0 {
		base.MaxBatchChars = override.MaxBatchChars
	}
	if override.MaxCloudSize != 0 {
		base.MaxCloudSize = override.MaxCloudSize
	}
	if override.ExplorationRate != 0 {
		base.ExplorationRate = override.ExplorationRate
	}
	return base
}

func applyEnv(cfg *Engine) {
	if v, ok := envInt("FLUSH_INTERVAL_MS"); ok && v > 0 {
		cfg.FlushIntervalMS = v
	}
	if v, ok := envInt("MAX_BATCH_CHARS"); ok && v > 0 {
		cfg.MaxBatchChars = v
	}
	if v, ok := envInt("MAX_CLOUD_SIZE"); ok && v > 0 {
		cfg.MaxCloudSize = v
	}
	if v, ok := envFloat("EXPLORATION_RATE"); ok && v >= 0 && v <= 1 {
		cfg.ExplorationRate = v
	}
}

func envInt(name string) (int, bool) {
	raw, set := os.LookupEnv(name)
	if !set {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envFloat(name string) (float64, bool) {
	raw, set := os.LookupEnv(name)
	if !set {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
