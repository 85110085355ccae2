package guard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/newrelic/infra-integrations-sdk/v3/log"
	"github.com/newrelic/nri-sqlguard/src/models"
)

const (
	explainBeginBanner = "=============== EXPLAIN BEGIN ==============="
	explainEndBanner   = "=============== EXPLAIN = END ==============="
)

// Sink receives evaluation records in order: one Statement per event and, for
// analyzed events, ExplainBegin, then per plan row a PlanRow followed by its
// findings, then ExplainEnd.
type Sink interface {
	Statement(event models.QueryEvent)
	ExplainBegin(inlined string)
	PlanRow(row models.PlanRow)
	Finding(finding Finding)
	ExplainEnd()
}

// LogSink writes every record at debug level.
type LogSink struct {
	Logger log.Logger
}

// NewLogSink returns a sink writing to logger.
func NewLogSink(logger log.Logger) *LogSink {
	return &LogSink{Logger: logger}
}

// Ensure LogSink implements Sink
var _ Sink = (*LogSink)(nil)

func (s *LogSink) Statement(event models.QueryEvent) {
	s.Logger.Debugf("%s {bindings: %s, time (ms): %.2f}", event.Statement, formatBindings(event.Bindings), event.ElapsedMillis)
}

func (s *LogSink) ExplainBegin(inlined string) {
	s.Logger.Debugf("")
	s.Logger.Debugf(explainBeginBanner)
	s.Logger.Debugf("SQL {sql: %s}", inlined)
}

func (s *LogSink) PlanRow(row models.PlanRow) {
	s.Logger.Debugf("")
	s.Logger.Debugf("TABLE %s: %s %s", row.KeyName(), row.TableName(), formatAttributes(row.Attributes()))
}

func (s *LogSink) Finding(finding Finding) {
	s.Logger.Debugf("%s {%s: %s}", finding, finding.Label, formatValue(finding.Value))
}

func (s *LogSink) ExplainEnd() {
	s.Logger.Debugf(explainEndBanner)
	s.Logger.Debugf("")
}

// MultiSink forwards each record to every sink in order.
type MultiSink []Sink

// Ensure MultiSink implements Sink
var _ Sink = MultiSink(nil)

func (m MultiSink) Statement(event models.QueryEvent) {
	for _, s := range m {
		s.Statement(event)
	}
}

func (m MultiSink) ExplainBegin(inlined string) {
	for _, s := range m {
		s.ExplainBegin(inlined)
	}
}

func (m MultiSink) PlanRow(row models.PlanRow) {
	for _, s := range m {
		s.PlanRow(row)
	}
}

func (m MultiSink) Finding(finding Finding) {
	for _, s := range m {
		s.Finding(finding)
	}
}

func (m MultiSink) ExplainEnd() {
	for _, s := range m {
		s.ExplainEnd()
	}
}

func formatValue(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return nullLiteral
	case float64:
		return fmt.Sprintf("%.2f", value)
	default:
		return fmt.Sprint(value)
	}
}

func formatBindings(bindings []interface{}) string {
	parts := make([]string, len(bindings))
	for i, b := range bindings {
		parts[i] = formatValue(b)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatAttributes(attrs map[string]interface{}) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, formatValue(attrs[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
