package guard

import "strings"

const (
	// PlanRequestKeyword prefixes the statements the plan fetcher issues.
	PlanRequestKeyword = "EXPLAIN"
	readQueryKeyword   = "select"
)

// IsEligibleForAnalysis reports whether statement may be analyzed at all. Plan
// requests are excluded so the fetcher's own EXPLAIN statements, when they come
// back through the same event stream, do not trigger another round.
func IsEligibleForAnalysis(statement string) bool {
	return !strings.HasPrefix(statement, PlanRequestKeyword)
}

// IsReadQuery reports whether statement may be sent to the plan fetcher. Only
// lowercase select statements qualify; requesting a plan for a write is either
// unsupported or has side effects.
func IsReadQuery(statement string) bool {
	return strings.HasPrefix(statement, readQueryKeyword)
}
