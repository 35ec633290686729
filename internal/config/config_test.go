package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookbox/internal/event"
	"hookbox/internal/script"
)

const strongSecret = "kJ8mN2pQ5tR7vX1zB4cE6gH9jL3nP8qS"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Valid(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
path: /hooks/github
secret: `+strongSecret+`
max_payload_bytes: 2048
rules:
  - name: deploy-site
    event: push
    pattern: "^acme/site$"
    command: "/usr/local/bin/deploy --message 'hello world'"
    timeout: 60
    dir: `+dir+`
    pass_args: true
    env:
      STAGE: production
  - event: ping
    command: ["echo", "pong"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/hooks/github", cfg.Path)
	assert.Equal(t, strongSecret, cfg.Secret)
	assert.Equal(t, int64(2048), cfg.MaxPayloadBytes)
	assert.Equal(t, path, cfg.File)
	assert.Empty(t, cfg.Warnings)

	require.Len(t, cfg.Rules, 2)
	assert.Equal(t, "deploy-site", cfg.Rules[0].Name)
	assert.Equal(t, 60, cfg.Rules[0].Timeout)
	assert.True(t, cfg.Rules[0].PassArgs)
	assert.Equal(t, "ping#1", cfg.Rules[1].Name, "unnamed rules get a positional name")
	assert.Equal(t, DefaultTimeout, cfg.Rules[1].Timeout)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(DefaultSecretEnv, strongSecret)

	path := writeConfig(t, `
rules:
  - event: push
    command: "true"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultPath, cfg.Path)
	assert.Equal(t, DefaultSecretEnv, cfg.SecretEnv)
	assert.Equal(t, strongSecret, cfg.Secret)
	assert.Equal(t, "push#0", cfg.Rules[0].Name)
}

func TestLoad_SecretEnv(t *testing.T) {
	t.Setenv("MY_HOOK_SECRET", strongSecret)

	path := writeConfig(t, `
secret_env: MY_HOOK_SECRET
rules:
  - event: push
    command: "true"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, strongSecret, cfg.Secret)
}

func TestLoad_AccumulatesProblems(t *testing.T) {
	t.Setenv(DefaultSecretEnv, "")

	path := writeConfig(t, `
path: /ping
rules:
  - name: bad
    event: ""
    pattern: "("
    command: 42
    timeout: -5
    dir: relative/dir
    env:
      "1BAD": x
  - name: bad
    event: push
    command: "true"
`)

	_, err := Load(path)
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"path:",
		"secret: missing",
		"missing required 'event'",
		"pattern does not compile",
		"command:",
		"timeout must be a positive integer",
		"dir must be absolute",
		"invalid variable name '1BAD'",
		"name 'bad' already used",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestLoad_NoRules(t *testing.T) {
	path := writeConfig(t, "secret: "+strongSecret+"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one rule")
}

func TestLoad_EmptyFile(t *testing.T) {
	t.Setenv(DefaultSecretEnv, "")

	_, err := Load(writeConfig(t, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one rule")
}

func TestLoad_UnknownField(t *testing.T) {
	path := writeConfig(t, `
secret: `+strongSecret+`
projects: {}
rules:
  - event: push
    command: "true"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_MissingDir(t *testing.T) {
	path := writeConfig(t, `
secret: `+strongSecret+`
rules:
  - event: push
    command: "true"
    dir: /definitely/not/here
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dir does not exist")
}

func TestLoad_Warnings(t *testing.T) {
	path := writeConfig(t, `
secret: aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa
rules:
  - event: push
    command: "true"
`)
	require.NoError(t, os.Chmod(path, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Warnings, 2)
	assert.Contains(t, cfg.Warnings[0], "weak")
	assert.Contains(t, cfg.Warnings[1], "world-readable")
}

func TestLoad_NoPermissionWarningForEnvSecret(t *testing.T) {
	t.Setenv(DefaultSecretEnv, strongSecret)

	path := writeConfig(t, `
rules:
  - event: push
    command: "true"
`)
	require.NoError(t, os.Chmod(path, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Warnings)
}

func TestLoad_WildcardRule(t *testing.T) {
	path := writeConfig(t, `
secret: `+strongSecret+`
rules:
  - event: "*"
    command: "true"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "*#0", cfg.Rules[0].Name)
}

func TestBuildRules(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")

	path := writeConfig(t, `
secret: `+strongSecret+`
rules:
  - name: record
    event: push
    pattern: "^acme/"
    command: ["sh", "-c", "echo \"$STAGE $HOOKBOX_REPOSITORY\" > `+out+`"]
    timeout: 10
    env:
      STAGE: production
  - name: other
    event: release
    command: "true"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rules, err := cfg.BuildRules(logger, script.NewLockManager())
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, "record", rules[0].Name())
	assert.Equal(t, "push", rules[0].Event())
	assert.Equal(t, "^acme/", rules[0].Pattern())
	assert.Equal(t, "release", rules[1].Event())

	h, ok := rules[0].Handler().(*script.Handler)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, h.Timeout)
	assert.Equal(t, []string{"STAGE=production"}, h.Env)
	assert.Equal(t, []string{strongSecret}, h.Secrets)

	ev, err := event.New("push", "d-1", "application/json", []byte(`{"repository":{"full_name":"acme/site"}}`))
	require.NoError(t, err)
	require.True(t, rules[0].Matches(ev.Name, ev.Subject()))
	require.NoError(t, rules[0].Handler().Handle(context.Background(), ev))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "production acme/site", strings.TrimSpace(string(data)))
}

func TestEnvList(t *testing.T) {
	assert.Nil(t, envList(nil))
	assert.Equal(t, []string{"A=1", "B=2"}, envList(map[string]string{"B": "2", "A": "1"}))
}
