// Package explain fetches MySQL execution plans for inlined statements
package explain

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/newrelic/infra-integrations-sdk/v3/log"

	"github.com/newrelic/nri-sqlguard/src/guard"
	"github.com/newrelic/nri-sqlguard/src/models"
)

// erParseError is the MySQL server error for a syntax error (ER_PARSE_ERROR)
const erParseError = 1064

var (
	// ErrMalformedStatement is returned when the server cannot parse the
	// inlined statement, typically because a string binding contained a quote.
	ErrMalformedStatement = errors.New("inlined statement is not valid SQL")
	ErrScanPlanRow        = errors.New("could not scan plan row")
)

// Fetcher issues EXPLAIN for a statement and binds the result into plan rows
type Fetcher struct {
	db *sqlx.DB
}

// Ensure Fetcher implements guard.PlanFetcher
var _ guard.PlanFetcher = (*Fetcher)(nil)

// NewFetcher returns a Fetcher querying db. Columns the server reports beyond
// the ones models.PlanRow knows are ignored.
func NewFetcher(db *sqlx.DB) *Fetcher {
	return &Fetcher{db: db.Unsafe()}
}

// FetchPlan runs EXPLAIN for inlined. It blocks until the server answers and
// never retries.
func (f *Fetcher) FetchPlan(ctx context.Context, inlined string) ([]models.PlanRow, error) {
	query := PlanQuery(inlined)
	log.Debug("Fetching execution plan: %s", query)

	rows, err := f.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	plan := make([]models.PlanRow, 0)
	for rows.Next() {
		var row models.PlanRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanPlanRow, err)
		}
		plan = append(plan, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return plan, nil
}

// PlanQuery returns the plan request for inlined.
func PlanQuery(inlined string) string {
	return guard.PlanRequestKeyword + " " + inlined
}

func classify(err error) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if mysqlErr.Number == erParseError {
			return fmt.Errorf("%w: %w", ErrMalformedStatement, err)
		}
		return fmt.Errorf("mysql error %d: %w", mysqlErr.Number, err)
	}
	return err
}
