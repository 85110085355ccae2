// Package observer wraps a database handle so that every statement it runs is
// timed and handed to the guard once it has executed.
package observer

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/newrelic/infra-integrations-sdk/v3/log"

	"github.com/newrelic/nri-sqlguard/src/guard"
	"github.com/newrelic/nri-sqlguard/src/models"
)

// Analyzer consumes executed statements. guard.Evaluator satisfies it.
type Analyzer interface {
	Evaluate(ctx context.Context, event models.QueryEvent) (*guard.Report, error)
}

// Ensure guard.Evaluator implements Analyzer
var _ Analyzer = (*guard.Evaluator)(nil)

// Stats counts what the observer has seen since it was created.
type Stats struct {
	Executed int64
	Failed   int64
	Analyzed int64
	Warnings int64
	// AnalysisErrors counts events whose plan could not be fetched
	AnalysisErrors int64
}

// DB runs statements on the wrapped handle and evaluates each successful one
// synchronously before returning to the caller. Evaluation failures are logged
// and never change what the caller receives.
type DB struct {
	db       *sqlx.DB
	analyzer Analyzer

	executed       atomic.Int64
	failed         atomic.Int64
	analyzed       atomic.Int64
	warnings       atomic.Int64
	analysisErrors atomic.Int64
}

// New returns an observing wrapper around db.
func New(db *sqlx.DB, analyzer Analyzer) *DB {
	return &DB{db: db, analyzer: analyzer}
}

// QueryxContext runs query and evaluates it once the server has answered. The
// elapsed time covers execution up to the first result, not row iteration.
// The returned rows still hold their connection while the plan is fetched, so
// the pool needs a second free connection; with SetMaxOpenConns(1) the plan
// fetch blocks until the context is done.
func (o *DB) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	start := time.Now()
	rows, err := o.db.QueryxContext(ctx, query, args...)
	o.observe(ctx, query, args, time.Since(start), err)
	return rows, err
}

// SelectContext runs query and scans all rows into dest.
func (o *DB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()
	err := o.db.SelectContext(ctx, dest, query, args...)
	o.observe(ctx, query, args, time.Since(start), ignoreNoRows(err))
	return err
}

// GetContext runs query and scans a single row into dest.
func (o *DB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()
	err := o.db.GetContext(ctx, dest, query, args...)
	o.observe(ctx, query, args, time.Since(start), ignoreNoRows(err))
	return err
}

// ExecContext runs a statement that returns no rows.
func (o *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := o.db.ExecContext(ctx, query, args...)
	o.observe(ctx, query, args, time.Since(start), err)
	return result, err
}

// Stats returns a snapshot of the counters.
func (o *DB) Stats() Stats {
	return Stats{
		Executed:       o.executed.Load(),
		Failed:         o.failed.Load(),
		Analyzed:       o.analyzed.Load(),
		Warnings:       o.warnings.Load(),
		AnalysisErrors: o.analysisErrors.Load(),
	}
}

func (o *DB) observe(ctx context.Context, query string, args []interface{}, elapsed time.Duration, execErr error) {
	if execErr != nil {
		o.failed.Add(1)
		log.Debug("Statement failed, skipping analysis: %s", execErr.Error())
		return
	}
	o.executed.Add(1)

	report, err := o.analyzer.Evaluate(ctx, models.NewQueryEvent(query, args, elapsed))
	if err != nil {
		o.analysisErrors.Add(1)
		log.Warn("Could not analyze statement '%s': %s", query, err.Error())
		return
	}

	if report != nil && report.Analyzed {
		o.analyzed.Add(1)
		o.warnings.Add(int64(len(report.Warnings())))
	}
}

// A select that matched nothing still ran and has a plan worth checking.
func ignoreNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}
