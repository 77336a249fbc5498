package robots

import (
	"regexp"
	"strings"
)

// disallowPrefix is compared case-insensitively.
const disallowPrefix = "disallow:"

// Rules decides whether a URL may be crawled.
type Rules interface {
	// Disallowed reports whether rawURL is excluded from crawling.
	Disallowed(rawURL string) bool
}

// Pattern is one compiled disallow rule.
type Pattern struct {
	// Source is the value as written after "Disallow:".
	Source string

	re *regexp.Regexp
}

// Match reports whether rawURL matches the pattern.
func (p Pattern) Match(rawURL string) bool {
	return p.re.MatchString(rawURL)
}

// PatternSet is an ordered collection of disallow patterns.
// It is built once per crawl and read concurrently afterwards.
type PatternSet struct {
	patterns []Pattern
}

// Build compiles every "Disallow:" line of a robots file body.
//
// The prefix match is case-insensitive. "*" matches one or more characters,
// a trailing "$" anchors the pattern to the end of the URL, and every other
// character matches literally. Comments starting with "#" are removed. A
// blank value is kept and matches every URL. Lines of any length are read.
func Build(body string) *PatternSet {
	set := &PatternSet{}
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if len(line) < len(disallowPrefix) || !strings.EqualFold(line[:len(disallowPrefix)], disallowPrefix) {
			continue
		}
		value := line[len(disallowPrefix):]
		if idx := strings.Index(value, "#"); idx >= 0 {
			value = value[:idx]
		}
		set.Add(strings.TrimSpace(value))
	}
	return set
}

// Add compiles and appends values to the set.
func (s *PatternSet) Add(values ...string) {
	for _, v := range values {
		s.patterns = append(s.patterns, compile(v))
	}
}

// Patterns returns the compiled patterns in insertion order.
func (s *PatternSet) Patterns() []Pattern {
	if s == nil {
		return nil
	}
	out := make([]Pattern, len(s.patterns))
	copy(out, s.patterns)
	return out
}

// Len returns the number of patterns.
func (s *PatternSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

// Disallowed implements Rules.
func (s *PatternSet) Disallowed(rawURL string) bool {
	return IsDisallowed(rawURL, s)
}

// IsDisallowed reports whether rawURL matches any pattern of set.
// A nil set disallows nothing.
func IsDisallowed(rawURL string, set *PatternSet) bool {
	if set == nil {
		return false
	}
	for _, p := range set.patterns {
		if p.Match(rawURL) {
			return true
		}
	}
	return false
}

// compile translates a disallow value into a regular expression.
// Without a trailing "$" the expression is unanchored and matches anywhere
// within the URL; with it, the match must reach the end of the URL.
func compile(value string) Pattern {
	anchored := strings.HasSuffix(value, "$")
	body := strings.TrimSuffix(value, "$")

	var b strings.Builder
	for i, part := range strings.Split(body, "*") {
		if i > 0 {
			b.WriteString(".+")
		}
		b.WriteString(regexp.QuoteMeta(part))
	}
	if anchored {
		b.WriteString("$")
	}

	return Pattern{
		Source: value,
		re:     regexp.MustCompile(b.String()),
	}
}
