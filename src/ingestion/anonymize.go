package ingestion

import "regexp"

var literalRegex = regexp.MustCompile(`'[^']*'|"[^"]*"|\b\d+(?:\.\d+)?\b`)

// AnonymizeQueryText replaces quoted strings and numeric literals with ?
func AnonymizeQueryText(query string) string {
	return literalRegex.ReplaceAllString(query, "?")
}
