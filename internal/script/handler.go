// Package script runs external commands in response to matched webhook events.
package script

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"hookbox/internal/event"
	"hookbox/internal/rule"
	"hookbox/internal/security"
	"hookbox/pkg/cmdutil"
)

// DefaultTimeout applies when a script rule does not set one.
const DefaultTimeout = 300 * time.Second

// maxLoggedOutput caps how much script output is copied into the log.
const maxLoggedOutput = 4096

// Handler runs a command for every event it receives.
//
// The command gets the JSON document on stdin and these variables in its
// environment: HOOKBOX_EVENT, HOOKBOX_DELIVERY, HOOKBOX_REPOSITORY,
// HOOKBOX_REF, HOOKBOX_BRANCH, HOOKBOX_AFTER and, for push events,
// HOOKBOX_PUSHER. With PassArgs the repository and branch are also appended
// as the last two arguments.
type Handler struct {
	Name     string
	Command  []string
	Dir      string
	Env      []string // extra "KEY=value" entries
	Timeout  time.Duration
	PassArgs bool

	// Secrets are redacted from logged output
	Secrets []string

	Logger *slog.Logger

	// Locks serializes runs that share a Name. Nil disables serialization.
	Locks *LockManager
}

var _ rule.Handler = (*Handler)(nil)

// Handle runs the command and returns an error for a non-zero exit or a timeout.
func (h *Handler) Handle(ctx context.Context, ev *event.Event) error {
	if h.Locks != nil {
		h.Locks.Lock(h.Name)
		defer h.Locks.Unlock(h.Name)
	}

	args := append([]string{}, h.Command...)
	if h.PassArgs {
		if err := checkArgs(ev); err != nil {
			return fmt.Errorf("script %s: refusing to pass arguments: %w", h.Name, err)
		}
		args = append(args, ev.Repository(), ev.Branch())
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	env := append(os.Environ(), h.Env...)
	env = append(env, eventEnv(ev)...)

	logger := h.logger().With("script", h.Name, "delivery", ev.DeliveryID)
	logger.Info("running script", "command", cmdutil.FormatCommand(args))

	result, err := cmdutil.Run(ctx, cmdutil.ExecOptions{
		Dir:     h.Dir,
		Timeout: timeout,
		Env:     env,
		Stdin:   ev.Document,
	}, args)

	output := cmdutil.SanitizeOutput(result.Output, h.Secrets)
	if len(output) > maxLoggedOutput {
		output = output[len(output)-maxLoggedOutput:]
	}

	if err != nil {
		logger.Error("script failed",
			"exit_code", result.ExitCode,
			"timed_out", result.TimedOut,
			"output", string(output))
		return fmt.Errorf("script %s: %w (command: %s)", h.Name, err, cmdutil.FormatCommand(args))
	}

	logger.Info("script finished",
		"duration_ms", result.Duration.Milliseconds(),
		"output", string(output))
	return nil
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// checkArgs rejects repository and branch values that a script could mistake
// for options. Either may be empty (ping and tag events).
func checkArgs(ev *event.Event) error {
	if repo := ev.Repository(); repo != "" {
		if err := security.ValidateRepository(repo); err != nil {
			return err
		}
	}
	if branch := ev.Branch(); branch != "" {
		if err := security.ValidateBranchName(branch); err != nil {
			return err
		}
	}
	return nil
}

func eventEnv(ev *event.Event) []string {
	env := []string{
		"HOOKBOX_EVENT=" + ev.Name,
		"HOOKBOX_DELIVERY=" + ev.DeliveryID,
		"HOOKBOX_REPOSITORY=" + ev.Repository(),
		"HOOKBOX_REF=" + ev.Ref(),
		"HOOKBOX_BRANCH=" + ev.Branch(),
		"HOOKBOX_AFTER=" + ev.After(),
	}

	if push, err := ev.Push(); err == nil {
		pusher := push.GetPusher().GetName()
		if pusher == "" {
			pusher = push.GetSender().GetLogin()
		}
		env = append(env, "HOOKBOX_PUSHER="+pusher)
	}

	return env
}
