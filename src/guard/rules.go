package guard

import (
	"fmt"
	"strings"

	"github.com/newrelic/nri-sqlguard/src/models"
)

const (
	// DefaultTimeThresholdMillis is the elapsed time at which TIME warns.
	DefaultTimeThresholdMillis = 100.0
	// DefaultKeyLengthThreshold is the chosen key length at which KEY_LEN_VALUE warns.
	DefaultKeyLengthThreshold = 256
	// DefaultRowsThreshold is the estimated row count at which ROWS warns.
	DefaultRowsThreshold = 1000
)

// ThresholdConfig holds the limits the rules compare against. It is built once
// at startup and never modified afterwards.
type ThresholdConfig struct {
	TimeThresholdMillis float64
	KeyLengthThreshold  int64
	RowsThreshold       int64
}

// DefaultThresholdConfig returns the thresholds used when none are configured.
func DefaultThresholdConfig() ThresholdConfig {
	return ThresholdConfig{
		TimeThresholdMillis: DefaultTimeThresholdMillis,
		KeyLengthThreshold:  DefaultKeyLengthThreshold,
		RowsThreshold:       DefaultRowsThreshold,
	}
}

// RuleName identifies one check of the rule set.
type RuleName string

const (
	RuleTime         RuleName = "TIME"
	RulePossibleKeys RuleName = "POSSIBLE_KEYS"
	RuleKey          RuleName = "KEY"
	RuleKeyLen       RuleName = "KEY_LEN"
	RuleKeyLenValue  RuleName = "KEY_LEN_VALUE"
	RuleRows         RuleName = "ROWS"
)

// DisplayName is the rule name as shown in log records.
func (n RuleName) DisplayName() string {
	return strings.ReplaceAll(string(n), "_", " ")
}

// Outcome is the verdict of a rule.
type Outcome string

const (
	Passed  Outcome = "PASSED"
	Warning Outcome = "WARNING"
)

// Finding is the verdict of one rule against one plan row. Label describes the
// comparison that decided it and Value is the input that drove it. Query is the
// inlined statement whose plan was checked; the evaluator fills it in.
type Finding struct {
	Rule    RuleName
	Outcome Outcome
	Table   string
	Query   string
	Label   string
	Value   interface{}
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s", f.Outcome, f.Rule.DisplayName())
}

// ValueString renders the evidence value the way log records show it.
func (f Finding) ValueString() string {
	return formatValue(f.Value)
}

// RuleInput is what a rule looks at: one plan row plus the elapsed time of the
// statement that produced the plan.
type RuleInput struct {
	Row           models.PlanRow
	ElapsedMillis float64
}

// Rule is a pure check over a RuleInput. Rules never fail; NULL columns are
// valid input.
type Rule func(in RuleInput, cfg ThresholdConfig) Finding

// defaultRules is the fixed evaluation order. Every rule runs once per plan row.
var defaultRules = []Rule{
	checkTime,
	checkPossibleKeys,
	checkKey,
	checkKeyLen,
	checkKeyLenValue,
	checkRows,
}

func checkTime(in RuleInput, cfg ThresholdConfig) Finding {
	if in.ElapsedMillis >= cfg.TimeThresholdMillis {
		return newFinding(RuleTime, Warning, in, fmt.Sprintf("time >= %.2f", cfg.TimeThresholdMillis), in.ElapsedMillis)
	}
	return newFinding(RuleTime, Passed, in, fmt.Sprintf("time < %.2f", cfg.TimeThresholdMillis), in.ElapsedMillis)
}

func checkPossibleKeys(in RuleInput, _ ThresholdConfig) Finding {
	if in.Row.PossibleKeys == nil {
		return newFinding(RulePossibleKeys, Warning, in, "possible keys are null", nil)
	}
	return newFinding(RulePossibleKeys, Passed, in, "possible keys exist", *in.Row.PossibleKeys)
}

func checkKey(in RuleInput, _ ThresholdConfig) Finding {
	if in.Row.Key == nil {
		return newFinding(RuleKey, Warning, in, "key is null", nil)
	}
	return newFinding(RuleKey, Passed, in, "key chosen", *in.Row.Key)
}

func checkKeyLen(in RuleInput, _ ThresholdConfig) Finding {
	if in.Row.KeyLen == nil {
		return newFinding(RuleKeyLen, Warning, in, "key len is null", nil)
	}
	return newFinding(RuleKeyLen, Passed, in, "key len is not null", in.Row.KeyLen.Raw)
}

func checkKeyLenValue(in RuleInput, cfg ThresholdConfig) Finding {
	var value interface{}
	if in.Row.KeyLen != nil {
		value = in.Row.KeyLen.Raw
	}
	if in.Row.Key == nil || in.Row.KeyLen == nil || in.Row.KeyLen.Bytes >= cfg.KeyLengthThreshold {
		return newFinding(RuleKeyLenValue, Warning, in, fmt.Sprintf("key len >= %d", cfg.KeyLengthThreshold), value)
	}
	return newFinding(RuleKeyLenValue, Passed, in, fmt.Sprintf("key len < %d", cfg.KeyLengthThreshold), value)
}

// checkRows treats a NULL rows estimate (e.g. a UNION RESULT step) as below
// the threshold.
func checkRows(in RuleInput, cfg ThresholdConfig) Finding {
	if in.Row.Rows != nil && *in.Row.Rows >= cfg.RowsThreshold {
		return newFinding(RuleRows, Warning, in, fmt.Sprintf("rows >= %d", cfg.RowsThreshold), *in.Row.Rows)
	}
	var value interface{}
	if in.Row.Rows != nil {
		value = *in.Row.Rows
	}
	return newFinding(RuleRows, Passed, in, fmt.Sprintf("rows < %d", cfg.RowsThreshold), value)
}

func newFinding(rule RuleName, outcome Outcome, in RuleInput, label string, value interface{}) Finding {
	return Finding{
		Rule:    rule,
		Outcome: outcome,
		Table:   in.Row.TableName(),
		Label:   label,
		Value:   value,
	}
}

// EvaluateRow runs every rule, in order, against one plan row.
func EvaluateRow(in RuleInput, cfg ThresholdConfig) []Finding {
	findings := make([]Finding, 0, len(defaultRules))
	for _, rule := range defaultRules {
		findings = append(findings, rule(in, cfg))
	}
	return findings
}
