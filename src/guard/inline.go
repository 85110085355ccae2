// Package guard evaluates executed statements against their MySQL execution plan
// and reports threshold findings.
package guard

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const (
	placeholder    = "?"
	nullLiteral    = "null"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// InlineOptions controls how bindings are rendered into a statement.
type InlineOptions struct {
	// EscapeQuotes doubles single quotes inside string bindings. Off by
	// default, which reproduces the unescaped display form.
	EscapeQuotes bool
}

// Inline replaces each placeholder in statement, in order, with the rendered
// binding at the same position. Placeholders without a binding are left as
// they are and surplus bindings are ignored. bindings is never modified.
func Inline(statement string, bindings []interface{}, opts InlineOptions) string {
	segments := strings.Split(statement, placeholder)
	if len(segments) == 1 {
		return statement
	}

	var b strings.Builder
	b.Grow(len(statement))
	b.WriteString(segments[0])
	for i, segment := range segments[1:] {
		if i < len(bindings) {
			b.WriteString(renderBinding(bindings[i], opts))
		} else {
			b.WriteString(placeholder)
		}
		b.WriteString(segment)
	}
	return b.String()
}

// renderBinding normalizes value the way database/sql does before it reaches
// the driver, so pointers, named kinds and Valuers render like their base value.
func renderBinding(value interface{}, opts InlineOptions) string {
	converted, err := driver.DefaultParameterConverter.ConvertValue(value)
	if err != nil {
		return fmt.Sprint(value)
	}

	switch v := converted.(type) {
	case nil:
		return nullLiteral
	case string:
		return quote(v, opts)
	case []byte:
		if v == nil {
			return nullLiteral
		}
		return quote(string(v), opts)
	case time.Time:
		return quote(v.Format(dateTimeLayout), opts)
	default:
		return fmt.Sprint(v)
	}
}

func quote(s string, opts InlineOptions) string {
	if opts.EscapeQuotes {
		s = strings.ReplaceAll(s, "'", "''")
	}
	return "'" + s + "'"
}
