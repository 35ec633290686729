// Package rule binds webhook event types and repository patterns to handlers.
//
// A Rule is immutable once built: its pattern is compiled a single time in New
// and reused for every match. A Set is an ordered, read-only collection of
// rules and is safe for concurrent use without locking.
package rule

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"hookbox/internal/event"
)

// ErrInvalidRule is wrapped by every rule construction error.
var ErrInvalidRule = errors.New("invalid rule")

// Handler reacts to a matched event. The returned error is logged and recorded
// but never affects the HTTP response or other handlers.
type Handler interface {
	Handle(ctx context.Context, ev *event.Event) error
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, ev *event.Event) error

// Handle calls f(ctx, ev).
func (f HandlerFunc) Handle(ctx context.Context, ev *event.Event) error {
	return f(ctx, ev)
}

// Spec describes a rule before validation.
type Spec struct {
	Name    string
	Event   string
	Pattern string // empty matches everything
	Handler Handler
}

// Rule is one (event, pattern, handler) binding.
type Rule struct {
	name    string
	event   string
	pattern *regexp.Regexp
	handler Handler
}

// New validates spec and compiles its pattern.
func New(spec Spec) (*Rule, error) {
	ev := strings.TrimSpace(spec.Event)
	if ev == "" {
		return nil, fmt.Errorf("%w: `event` must be a non-empty string", ErrInvalidRule)
	}

	pattern, err := regexp.Compile(spec.Pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: `pattern` %q does not compile: %v", ErrInvalidRule, spec.Pattern, err)
	}

	if spec.Handler == nil {
		return nil, fmt.Errorf("%w: `handler` is required for event %q", ErrInvalidRule, ev)
	}

	return &Rule{
		name:    strings.TrimSpace(spec.Name),
		event:   ev,
		pattern: pattern,
		handler: spec.Handler,
	}, nil
}

// MustNew is like New but panics on error. Intended for rules declared in code.
func MustNew(spec Spec) *Rule {
	r, err := New(spec)
	if err != nil {
		panic(err)
	}
	return r
}

// Name returns the rule name, which may be empty until the rule is placed in a Set.
func (r *Rule) Name() string { return r.name }

// Event returns the event type this rule reacts to.
func (r *Rule) Event() string { return r.event }

// Pattern returns the source of the compiled pattern.
func (r *Rule) Pattern() string { return r.pattern.String() }

// Handler returns the handler invoked on match.
func (r *Rule) Handler() Handler { return r.handler }

// Matches reports whether the rule applies to an event name and subject.
func (r *Rule) Matches(eventName, subject string) bool {
	if r.event != event.Wildcard && r.event != eventName {
		return false
	}
	return r.pattern.MatchString(subject)
}

func (r *Rule) String() string {
	return fmt.Sprintf("%s (%s /%s/)", r.name, r.event, r.pattern.String())
}
