package rule

// Match returns every rule whose event equals eventName (or is the wildcard) and
// whose pattern matches subject, in declaration order. Matching has no side effects.
func (s *Set) Match(eventName, subject string) []*Rule {
	var matched []*Rule
	for _, r := range s.rules {
		if r.Matches(eventName, subject) {
			matched = append(matched, r)
		}
	}
	return matched
}
