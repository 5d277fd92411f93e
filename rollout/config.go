// Package rollout drives batches of prompts against an agent endpoint and
// persists one trace record per rollout. The dispatcher bounds concurrency
// with a fixed-size gate and isolates per-task failures; clients translate
// transport problems into sentinel response text instead of errors so one
// bad rollout never stops a batch.
package rollout

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Config.Normalize.
const (
	DefaultMode          = "val"
	DefaultTracesDir     = "traces"
	DefaultMaxConcurrent = 4
	DefaultTimeout       = 5 * time.Minute
)

var validModes = map[string]bool{
	"": true, "train": true, "val": true,
}

// Config holds everything a collection run needs. Values are layered in
// ascending precedence: batch spec file, then environment, then flags, with
// Normalize filling defaults last.
type Config struct {
	GatewayBaseURL string
	InternalSecret string
	SessionKey     string
	Mode           string
	TracesDir      string
	MaxConcurrent  int
	Timeout        time.Duration
}

// MergeEnv overlays environment variables onto the config. A .env file in
// the working directory is loaded first; godotenv never overrides variables
// already present in the environment, so real env wins over the file.
func (c *Config) MergeEnv() {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	}
	setString(&c.GatewayBaseURL, "GATEWAY_BASE_URL")
	setString(&c.InternalSecret, "INTERNAL_SECRET")
	setString(&c.SessionKey, "SESSION_KEY")
	setString(&c.Mode, "ROLLOUT_MODE")
	setString(&c.TracesDir, "TRACES_DIR")
	if v := strings.TrimSpace(os.Getenv("MAX_CONCURRENT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			logrus.Warnf("ignoring MAX_CONCURRENT=%q: %v", v, err)
		} else {
			c.MaxConcurrent = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ROLLOUT_TIMEOUT_SECONDS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			logrus.Warnf("ignoring ROLLOUT_TIMEOUT_SECONDS=%q: %v", v, err)
		} else {
			c.Timeout = time.Duration(n) * time.Second
		}
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Normalize trims the base URL and fills defaults for unset fields.
// MaxConcurrent below zero is clamped to one; zero means unset.
func (c *Config) Normalize() {
	c.GatewayBaseURL = strings.TrimRight(strings.TrimSpace(c.GatewayBaseURL), "/")
	if c.Mode == "" {
		c.Mode = DefaultMode
	}
	if c.TracesDir == "" {
		c.TracesDir = DefaultTracesDir
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.MaxConcurrent < 1 {
		c.MaxConcurrent = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// Validate checks the fields a collection run cannot proceed without.
func (c *Config) Validate() error {
	if c.GatewayBaseURL == "" || c.InternalSecret == "" || c.SessionKey == "" {
		return fmt.Errorf("missing required config: set GATEWAY_BASE_URL, INTERNAL_SECRET, and SESSION_KEY")
	}
	if !validModes[c.Mode] {
		return fmt.Errorf("unknown mode %q; valid: train, val", c.Mode)
	}
	return nil
}

// BatchSpec is the optional YAML description of a collection batch. Any
// zero field leaves the corresponding config value untouched, so a spec can
// carry just the prompts or just the endpoint.
type BatchSpec struct {
	GatewayBaseURL string   `yaml:"gateway_base_url"`
	InternalSecret string   `yaml:"internal_secret"`
	SessionKey     string   `yaml:"session_key"`
	Mode           string   `yaml:"mode"`
	TracesDir      string   `yaml:"traces_dir"`
	MaxConcurrent  int      `yaml:"max_concurrent"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Prompts        []string `yaml:"prompts"`
}

// LoadBatchSpec reads and parses a YAML batch spec file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadBatchSpec(path string) (*BatchSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch spec: %w", err)
	}
	var spec BatchSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing batch spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks that all fields in the spec are valid.
func (s *BatchSpec) Validate() error {
	if !validModes[s.Mode] {
		return fmt.Errorf("unknown mode %q; valid: train, val", s.Mode)
	}
	if s.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent must not be negative, got %d", s.MaxConcurrent)
	}
	if s.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative, got %d", s.TimeoutSeconds)
	}
	for i, p := range s.Prompts {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("prompts[%d] is empty", i)
		}
	}
	return nil
}

// Apply overlays the spec's non-zero fields onto cfg.
func (s *BatchSpec) Apply(cfg *Config) {
	if s.GatewayBaseURL != "" {
		cfg.GatewayBaseURL = s.GatewayBaseURL
	}
	if s.InternalSecret != "" {
		cfg.InternalSecret = s.InternalSecret
	}
	if s.SessionKey != "" {
		cfg.SessionKey = s.SessionKey
	}
	if s.Mode != "" {
		cfg.Mode = s.Mode
	}
	if s.TracesDir != "" {
		cfg.TracesDir = s.TracesDir
	}
	if s.MaxConcurrent != 0 {
		cfg.MaxConcurrent = s.MaxConcurrent
	}
	if s.TimeoutSeconds != 0 {
		cfg.Timeout = time.Duration(s.TimeoutSeconds) * time.Second
	}
}

// ReadPrompts loads one prompt per line, trimming whitespace and dropping
// empty lines.
func ReadPrompts(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompts file: %w", err)
	}
	var prompts []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			prompts = append(prompts, line)
		}
	}
	return prompts, nil
}
