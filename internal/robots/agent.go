package robots

import (
	"net/url"

	"github.com/temoto/robotstxt"
)

// AgentRules evaluates a robots file the way a well-behaved crawler does:
// it selects the group for the configured user agent (falling back to "*")
// and honours Allow lines as well as Disallow lines.
type AgentRules struct {
	group *robotstxt.Group
}

// NewAgentRules parses body for userAgent.
// An empty body allows everything.
func NewAgentRules(body, userAgent string) (*AgentRules, error) {
	data, err := robotstxt.FromString(body)
	if err != nil {
		return nil, err
	}
	return &AgentRules{group: data.FindGroup(userAgent)}, nil
}

// Disallowed implements Rules.
func (a *AgentRules) Disallowed(rawURL string) bool {
	if a == nil || a.group == nil {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	target := u.EscapedPath()
	if target == "" {
		target = "/"
	}
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return !a.group.Test(target)
}

// Compile chooses the rule set for a crawl.
// When strict is false, or the body cannot be parsed strictly, the plain
// disallow-line filter is used. extra patterns apply in both modes.
func Compile(body, userAgent string, strict bool, extra []string) Rules {
	set := Build(body)
	set.Add(extra...)
	if !strict {
		return set
	}

	agent, err := NewAgentRules(body, userAgent)
	if err != nil {
		return set
	}
	if len(extra) == 0 {
		return agent
	}
	extraSet := &PatternSet{}
	extraSet.Add(extra...)
	return anyOf{agent, extraSet}
}

// anyOf disallows a URL when any member does.
type anyOf []Rules

func (rs anyOf) Disallowed(rawURL string) bool {
	for _, r := range rs {
		if r.Disallowed(rawURL) {
			return true
		}
	}
	return false
}
