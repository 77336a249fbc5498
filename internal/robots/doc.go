// Package robots builds the disallow filter applied to every URL before it
// is fetched.
//
// The default filter only understands "Disallow:" lines: every such line
// in the robots file is compiled into a pattern, regardless of the
// user-agent group it appears in. A stricter, group-aware evaluation
// backed by github.com/temoto/robotstxt is available through AgentRules.
//
// Retrieval of the robots file is fail-open: any error yields an empty
// body and therefore an empty filter.
package robots
