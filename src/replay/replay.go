// Package replay runs a fixed list of statements through an observed connection
package replay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/newrelic/infra-integrations-sdk/v3/log"
	"gopkg.in/yaml.v2"
)

var (
	ErrReadReplayFile  = errors.New("failed to read replay file")
	ErrParseReplayFile = errors.New("failed to parse replay file")
	ErrEmptyQuery      = errors.New("statement has no query")
)

// rowReturningKeywords start statements that are run as queries instead of execs
var rowReturningKeywords = []string{"select", "with", "show", "explain", "describe", "desc"}

// Statement is one entry of the replay file. Bindings are matched to the ?
// placeholders of Query in order.
type Statement struct {
	Query    string        `yaml:"query"`
	Bindings []interface{} `yaml:"bindings"`
}

// Executor runs statements. observer.DB satisfies it.
type Executor interface {
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Summary counts the outcome of a run.
type Summary struct {
	Executed int
	Failed   int
}

// LoadStatements reads and parses the replay file at path.
func LoadStatements(path string) ([]Statement, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadReplayFile, err)
	}
	return ParseStatements(b)
}

// ParseStatements parses a replay document of the form
//
//	statements:
//	  - query: select * from users where id = ?
//	    bindings: [1]
func ParseStatements(b []byte) ([]Statement, error) {
	var c struct {
		Statements []Statement `yaml:"statements"`
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseReplayFile, err)
	}

	for i, s := range c.Statements {
		if strings.TrimSpace(s.Query) == "" {
			return nil, fmt.Errorf("%w: entry %d", ErrEmptyQuery, i+1)
		}
	}
	return c.Statements, nil
}

// Run executes statements in order. A failing statement is logged and does not
// stop the run. Run stops early only when ctx is done.
func Run(ctx context.Context, db Executor, statements []Statement) (Summary, error) {
	var summary Summary
	for _, s := range statements {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if err := runStatement(ctx, db, s); err != nil {
			summary.Failed++
			log.Error("Replay statement '%s' failed: %s", s.Query, err.Error())
			continue
		}
		summary.Executed++
	}
	return summary, nil
}

func runStatement(ctx context.Context, db Executor, s Statement) error {
	if !returnsRows(s.Query) {
		_, err := db.ExecContext(ctx, s.Query, s.Bindings...)
		return err
	}

	rows, err := db.QueryxContext(ctx, s.Query, s.Bindings...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		// results are discarded
	}
	return rows.Err()
}

func returnsRows(query string) bool {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return false
	}
	first := strings.ToLower(fields[0])
	for _, keyword := range rowReturningKeywords {
		if first == keyword {
			return true
		}
	}
	return false
}
