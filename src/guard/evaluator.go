package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/newrelic/nri-sqlguard/src/models"
)

// ErrPlanFetch wraps every failure to obtain a plan for an eligible statement.
var ErrPlanFetch = errors.New("unable to fetch execution plan")

// PlanFetcher returns the execution plan of an inlined select statement.
type PlanFetcher interface {
	FetchPlan(ctx context.Context, inlined string) ([]models.PlanRow, error)
}

// RowReport holds one plan row and the findings produced for it.
type RowReport struct {
	Row      models.PlanRow
	Findings []Finding
}

// Report summarizes the evaluation of one event. Analyzed is false for
// statements that were not plan-probed.
type Report struct {
	Statement string
	Inlined   string
	Analyzed  bool
	Rows      []RowReport
}

// Evaluator runs the rule set against the plan of each executed select. It keeps
// no state between events, so one Evaluator may serve concurrent callers.
type Evaluator struct {
	fetcher    PlanFetcher
	sink       Sink
	thresholds ThresholdConfig
	inline     InlineOptions
}

// NewEvaluator builds an Evaluator. A nil fetcher turns plan analysis off and
// only baseline records are written.
func NewEvaluator(fetcher PlanFetcher, sink Sink, thresholds ThresholdConfig, opts InlineOptions) *Evaluator {
	return &Evaluator{
		fetcher:    fetcher,
		sink:       sink,
		thresholds: thresholds,
		inline:     opts,
	}
}

// Thresholds returns the limits the evaluator applies.
func (e *Evaluator) Thresholds() ThresholdConfig {
	return e.thresholds
}

// Evaluate processes one event to completion. Plan requests are ignored and
// return a nil report. Every other event produces a baseline record; selects
// are then plan-probed and each plan row is checked against every rule. When
// the plan cannot be fetched the error is returned and nothing beyond the
// baseline record is written.
func (e *Evaluator) Evaluate(ctx context.Context, event models.QueryEvent) (*Report, error) {
	if !IsEligibleForAnalysis(event.Statement) {
		return nil, nil
	}

	report := &Report{
		Statement: event.Statement,
		Inlined:   Inline(event.Statement, event.Bindings, e.inline),
	}
	e.sink.Statement(event)

	if e.fetcher == nil || !IsReadQuery(report.Inlined) {
		return report, nil
	}

	plan, err := e.fetcher.FetchPlan(ctx, report.Inlined)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrPlanFetch, err)
	}

	report.Analyzed = true
	report.Rows = make([]RowReport, 0, len(plan))

	e.sink.ExplainBegin(report.Inlined)
	for _, row := range plan {
		e.sink.PlanRow(row)
		findings := EvaluateRow(RuleInput{Row: row, ElapsedMillis: event.ElapsedMillis}, e.thresholds)
		for i := range findings {
			findings[i].Query = report.Inlined
			e.sink.Finding(findings[i])
		}
		report.Rows = append(report.Rows, RowReport{Row: row, Findings: findings})
	}
	e.sink.ExplainEnd()

	return report, nil
}

// Warnings returns every WARNING finding in the report, in emission order.
func (r *Report) Warnings() []Finding {
	if r == nil {
		return nil
	}
	var warnings []Finding
	for _, row := range r.Rows {
		for _, f := range row.Findings {
			if f.Outcome == Warning {
				warnings = append(warnings, f)
			}
		}
	}
	return warnings
}
