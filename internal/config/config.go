// Package config loads an optional .turnsieve.yaml and maps it onto the
// scorer/selector options the core exposes. Precedence, highest first:
// CLI flag > environment variable > config file > built-in default,
// generalized to every tunable.
package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codalotl/turnsieve/internal/q/health"
	"github.com/codalotl/turnsieve/internal/scorer"
)

// File mirrors .turnsieve.yaml's shape. Keys are the snake_case names of
// the scorer.Options fields, plus method and split_ratio; only some of
// them also exist as CLI flags.
type File struct {
	Method         string  `yaml:"method"`
	Budget         int     `yaml:"budget"`
	ShortThreshold int     `yaml:"short_threshold"`
	MinRepeatLen   int     `yaml:"min_repeat_len"`
	Device         string  `yaml:"device"`
	BatchSize      int     `yaml:"batch_size"`
	EmbedURL       string  `yaml:"embed_url"`
	RerankURL      string  `yaml:"rerank_url"`
	Concurrency    int     `yaml:"concurrency"`
	RequestTimeout int     `yaml:"request_timeout"`
	SplitRatio     float64 `yaml:"split_ratio"`
}

// ErrInvalidConfig is returned when .turnsieve.yaml exists but fails to
// parse.
var ErrInvalidConfig = health.NewErr("turnsieve config file is invalid")

// ConfigEnvVar names the environment variable that overrides the config
// file's location.
const ConfigEnvVar = "TURNSIEVE_CONFIG"

// DefaultConfigName is the filename Load looks for in dir when
// TURNSIEVE_CONFIG is unset.
const DefaultConfigName = ".turnsieve.yaml"

// Load reads dir/.turnsieve.yaml, or the path named by $TURNSIEVE_CONFIG if
// set, returning a zero File (ok=false) when no file is present — absence
// is not an error, since every field has a core-defined default.
func Load(dir string) (file File, ok bool, err error) {
	path := strings.TrimSpace(os.Getenv(ConfigEnvVar))
	if path == "" {
		path = dir + string(os.PathSeparator) + DefaultConfigName
	}

	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return File{}, false, nil
		}
		return File{}, false, health.Wrap("read config file", readErr, "path", path)
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, false, health.Wrap("parse config file", ErrInvalidConfig, "path", path, "cause", err.Error())
	}
	return f, true, nil
}

// Resolve builds scorer.Options starting from scorer.DefaultOptions(),
// applying file values where set, then environment variable overrides,
// matching the precedence documented at the package level. Env var names
// are TURNSIEVE_<FIELD> in upper snake case (e.g. TURNSIEVE_BUDGET,
// TURNSIEVE_EMBED_URL).
func Resolve(file File, env func(string) string) scorer.Options {
	if env == nil {
		env = os.Getenv
	}
	opts := scorer.DefaultOptions()

	if file.Budget != 0 {
		opts.Budget = file.Budget
	}
	if file.ShortThreshold != 0 {
		opts.ShortThreshold = file.ShortThreshold
	}
	if file.MinRepeatLen != 0 {
		opts.MinRepeatLen = file.MinRepeatLen
	}
	if file.Device != "" {
		opts.Device = file.Device
	}
	if file.BatchSize != 0 {
		opts.BatchSize = file.BatchSize
	}
	if file.EmbedURL != "" {
		opts.EmbedURL = file.EmbedURL
	}
	if file.RerankURL != "" {
		opts.RerankURL = file.RerankURL
	}
	if file.Concurrency != 0 {
		opts.Concurrency = file.Concurrency
	}
	if file.RequestTimeout != 0 {
		opts.RequestTimeout = file.RequestTimeout
	}

	applyIntEnv(env, "TURNSIEVE_BUDGET", &opts.Budget)
	applyIntEnv(env, "TURNSIEVE_SHORT_THRESHOLD", &opts.ShortThreshold)
	applyIntEnv(env, "TURNSIEVE_MIN_REPEAT_LEN", &opts.MinRepeatLen)
	applyIntEnv(env, "TURNSIEVE_BATCH_SIZE", &opts.BatchSize)
	applyIntEnv(env, "TURNSIEVE_CONCURRENCY", &opts.Concurrency)
	applyIntEnv(env, "TURNSIEVE_REQUEST_TIMEOUT", &opts.RequestTimeout)
	applyStringEnv(env, "TURNSIEVE_DEVICE", &opts.Device)
	applyStringEnv(env, "TURNSIEVE_EMBED_URL", &opts.EmbedURL)
	applyStringEnv(env, "TURNSIEVE_RERANK_URL", &opts.RerankURL)

	return opts
}

// SplitRatio resolves the entity/evidence coverage evaluator's split ratio
// using the same file-then-env-then-default precedence, defaulting to
// 0.70.
func SplitRatio(file File, env func(string) string) float64 {
	if env == nil {
		env = os.Getenv
	}
	ratio := 0.70
	if file.SplitRatio != 0 {
		ratio = file.SplitRatio
	}
	if v := strings.TrimSpace(env("TURNSIEVE_SPLIT_RATIO")); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			ratio = parsed
		}
	}
	return ratio
}

func applyIntEnv(env func(string) string, key string, target *int) {
	v := strings.TrimSpace(env(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*target = n
	}
}

func applyStringEnv(env func(string) string, key string, target *string) {
	if v := strings.TrimSpace(env(key)); v != "" {
		*target = v
	}
}
