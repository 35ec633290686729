package rule

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
)

// ErrEmptySet is returned when a Set is built without rules.
var ErrEmptySet = errors.New("rule set must contain at least one rule")

// Set is an ordered, immutable sequence of rules.
type Set struct {
	rules       []*Rule
	fingerprint string
}

// NewSet builds a Set preserving the given order. Unnamed rules are named
// "<event>#<position>". The input rules are copied, never mutated.
func NewSet(rules ...*Rule) (*Set, error) {
	if len(rules) == 0 {
		return nil, ErrEmptySet
	}

	s := &Set{rules: make([]*Rule, len(rules))}
	for i, r := range rules {
		if r == nil {
			return nil, fmt.Errorf("%w: rule %d is nil", ErrInvalidRule, i)
		}
		named := *r
		if named.name == "" {
			named.name = fmt.Sprintf("%s#%d", r.event, i)
		}
		s.rules[i] = &named
	}
	s.fingerprint = fingerprint(s.rules)

	return s, nil
}

// Rules returns a copy of the rules in declaration order.
func (s *Set) Rules() []*Rule {
	out := make([]*Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Len returns the number of rules.
func (s *Set) Len() int {
	return len(s.rules)
}

// Names returns the rule names in declaration order.
func (s *Set) Names() []string {
	names := make([]string, len(s.rules))
	for i, r := range s.rules {
		names[i] = r.name
	}
	return names
}

// Fingerprint identifies the rule configuration ("blake3:<hex>"). Two sets with
// the same names, events and patterns in the same order share a fingerprint.
func (s *Set) Fingerprint() string {
	return s.fingerprint
}

func fingerprint(rules []*Rule) string {
	h := blake3.New()
	for _, r := range rules {
		// NUL-separated so ("ab","c") and ("a","bc") differ
		h.Write([]byte(r.name))
		h.Write([]byte{0})
		h.Write([]byte(r.event))
		h.Write([]byte{0})
		h.Write([]byte(r.pattern.String()))
		h.Write([]byte{0})
	}
	return "blake3:" + hex.EncodeToString(h.Sum(nil))
}
