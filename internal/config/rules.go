package config

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"hookbox/internal/rule"
	"hookbox/internal/script"
	"hookbox/pkg/cmdutil"
)

// BuildRules turns every configured rule into a rule backed by a script
// handler. Handlers share locks, so one script never runs twice at once.
func (c *Config) BuildRules(logger *slog.Logger, locks *script.LockManager) ([]*rule.Rule, error) {
	if locks == nil {
		locks = script.NewLockManager()
	}

	rules := make([]*rule.Rule, 0, len(c.Rules))
	for i, rc := range c.Rules {
		command, err := cmdutil.ParseCommandList(rc.Command)
		if err != nil {
			return nil, fmt.Errorf("rules[%d] (%s): %w", i, rc.Name, err)
		}

		handler := &script.Handler{
			Name:     rc.Name,
			Command:  command,
			Dir:      rc.Dir,
			Env:      envList(rc.Env),
			Timeout:  time.Duration(rc.Timeout) * time.Second,
			PassArgs: rc.PassArgs,
			Secrets:  []string{c.Secret},
			Logger:   logger,
			Locks:    locks,
		}

		r, err := rule.New(rule.Spec{
			Name:    rc.Name,
			Event:   rc.Event,
			Pattern: rc.Pattern,
			Handler: handler,
		})
		if err != nil {
			return nil, fmt.Errorf("rules[%d] (%s): %w", i, rc.Name, err)
		}
		rules = append(rules, r)
	}

	return rules, nil
}

// envList renders env as sorted KEY=value pairs.
func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make([]string, len(keys))
	for i, k := range keys {
		list[i] = k + "=" + env[k]
	}
	return list
}
