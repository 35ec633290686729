// Package config loads the hookbox YAML configuration and turns it into rules.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"hookbox/internal/event"
	"hookbox/internal/security"
	"hookbox/pkg/cmdutil"
	"hookbox/pkg/fileutil"
)

const (
	DefaultFileName  = "hookbox.yaml"
	DefaultPath      = "/webhook"
	DefaultSecretEnv = "HOOKBOX_SECRET"
	DefaultTimeout   = 300 // seconds
)

var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RuleConfig is one entry under `rules:`.
type RuleConfig struct {
	Name     string            `yaml:"name"`
	Event    string            `yaml:"event"`
	Pattern  string            `yaml:"pattern"`
	Command  interface{}       `yaml:"command"` // string or list of strings
	Timeout  int               `yaml:"timeout"` // seconds
	Dir      string            `yaml:"dir"`
	Env      map[string]string `yaml:"env"`
	PassArgs bool              `yaml:"pass_args"`
}

// Config is the root of hookbox.yaml.
type Config struct {
	Path            string       `yaml:"path"`
	Secret          string       `yaml:"secret"`
	SecretEnv       string       `yaml:"secret_env"`
	MaxPayloadBytes int64        `yaml:"max_payload_bytes"`
	Rules           []RuleConfig `yaml:"rules"`

	// File is where the config was loaded from
	File string `yaml:"-"`

	// Warnings are problems that do not prevent the server from starting
	Warnings []string `yaml:"-"`

	inlineSecret bool
}

// Load reads, defaults and validates the configuration at configPath.
// All validation problems are reported together in one error.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.File = configPath

	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid configuration in %s:\n%s", configPath, strings.Join(problems, "\n"))
	}

	cfg.Warnings = cfg.warnings()
	return cfg, nil
}

// Parse decodes YAML and applies defaults. Unknown keys are an error.
// The result is not validated.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Find returns the first existing config in the default search paths.
func Find() (string, error) {
	return fileutil.FindConfig(DefaultFileName)
}

func (c *Config) applyDefaults() {
	if c.Path == "" {
		c.Path = DefaultPath
	}

	c.inlineSecret = c.Secret != ""
	if c.Secret == "" {
		if c.SecretEnv == "" {
			c.SecretEnv = DefaultSecretEnv
		}
		c.Secret = os.Getenv(c.SecretEnv)
	}

	for i := range c.Rules {
		r := &c.Rules[i]
		if r.Name == "" {
			r.Name = fmt.Sprintf("%s#%d", r.Event, i)
		}
		if r.Timeout == 0 {
			r.Timeout = DefaultTimeout
		}
	}
}

// Validate returns one line per problem, empty when the config is usable.
func (c *Config) Validate() []string {
	var problems []string

	if err := security.ValidateWebhookPath(c.Path); err != nil {
		problems = append(problems, fmt.Sprintf("  - path: %v", err))
	}

	if c.Secret == "" {
		problems = append(problems, fmt.Sprintf("  - secret: missing (set 'secret' or export %s)", c.SecretEnv))
	}

	if c.MaxPayloadBytes < 0 {
		problems = append(problems, fmt.Sprintf("  - max_payload_bytes: must not be negative, got %d", c.MaxPayloadBytes))
	}

	if len(c.Rules) == 0 {
		problems = append(problems, "  - rules: at least one rule is required")
	}

	seen := make(map[string]int)
	for i, r := range c.Rules {
		if prev, dup := seen[r.Name]; dup {
			problems = append(problems, fmt.Sprintf("  - rules[%d]: name '%s' already used by rules[%d]", i, r.Name, prev))
		}
		seen[r.Name] = i

		for _, p := range validateRule(r) {
			problems = append(problems, fmt.Sprintf("  - rules[%d] (%s): %s", i, r.Name, p))
		}
	}

	return problems
}

func validateRule(r RuleConfig) []string {
	var problems []string

	// Generated names for wildcard rules contain '*'
	if r.Event != event.Wildcard || !strings.HasPrefix(r.Name, event.Wildcard+"#") {
		if err := security.ValidateRuleName(r.Name); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if strings.TrimSpace(r.Event) == "" {
		problems = append(problems, "missing required 'event' field")
	}

	if _, err := regexp.Compile(r.Pattern); err != nil {
		problems = append(problems, fmt.Sprintf("pattern does not compile: %v", err))
	}

	if _, err := cmdutil.ParseCommandList(r.Command); err != nil {
		problems = append(problems, fmt.Sprintf("command: %v", err))
	}

	if r.Timeout < 0 {
		problems = append(problems, fmt.Sprintf("timeout must be a positive integer, got %d", r.Timeout))
	}

	if r.Dir != "" {
		if !filepath.IsAbs(r.Dir) {
			problems = append(problems, fmt.Sprintf("dir must be absolute, got '%s'", r.Dir))
		} else if !fileutil.DirExists(r.Dir) {
			problems = append(problems, fmt.Sprintf("dir does not exist: '%s'", r.Dir))
		}
	}

	for key := range r.Env {
		if !envNamePattern.MatchString(key) {
			problems = append(problems, fmt.Sprintf("env: invalid variable name '%s'", key))
		}
	}

	return problems
}

func (c *Config) warnings() []string {
	var warnings []string

	if security.IsWeakSecret(c.Secret) {
		warnings = append(warnings, "secret looks weak; generate one with 'hookbox secret'")
	}

	// Only matters when the secret is stored in the file itself
	if c.inlineSecret && c.File != "" {
		if err := security.ValidateSecurePermissions(c.File); err != nil {
			warnings = append(warnings, fmt.Sprintf("config holds the secret but %v; chmod %04o recommended", err, security.PermConfigFile))
		}
	}

	return warnings
}
