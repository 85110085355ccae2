// Package ingestion turns guard records into metric samples on an integration entity
package ingestion

import (
	"github.com/newrelic/infra-integrations-sdk/v3/data/attribute"
	"github.com/newrelic/infra-integrations-sdk/v3/data/metric"
	"github.com/newrelic/infra-integrations-sdk/v3/integration"
	"github.com/newrelic/infra-integrations-sdk/v3/log"

	"github.com/newrelic/nri-sqlguard/src/guard"
	"github.com/newrelic/nri-sqlguard/src/models"
)

const (
	// QuerySampleEventType holds one sample per observed statement
	QuerySampleEventType = "SQLGuardQuerySample"
	// FindingSampleEventType holds one sample per rule outcome
	FindingSampleEventType = "SQLGuardFindingSample"
)

// EntitySink records guard output as metric sets on an entity. It holds no
// per-event state, so concurrent evaluations may share one sink.
type EntitySink struct {
	entity    *integration.Entity
	host      string
	anonymize bool
}

// Ensure EntitySink implements guard.Sink
var _ guard.Sink = (*EntitySink)(nil)

// NewEntitySink returns a sink writing to entity. host is added to every sample.
// When anonymize is set, literals in every published query are masked.
func NewEntitySink(entity *integration.Entity, host string, anonymize bool) *EntitySink {
	return &EntitySink{entity: entity, host: host, anonymize: anonymize}
}

func (s *EntitySink) Statement(event models.QueryEvent) {
	ms := s.entity.NewMetricSet(QuerySampleEventType, s.commonAttributes()...)
	s.setMetrics(ms, []metricValue{
		{"query", s.queryText(event.Statement), metric.ATTRIBUTE},
		{"elapsedMs", event.ElapsedMillis, metric.GAUGE},
		{"bindingCount", len(event.Bindings), metric.GAUGE},
	})
}

// ExplainBegin adds nothing; the inlined query is carried by each finding.
func (s *EntitySink) ExplainBegin(string) {}

// PlanRow adds nothing; the table is carried by each finding.
func (s *EntitySink) PlanRow(models.PlanRow) {}

func (s *EntitySink) Finding(finding guard.Finding) {
	ms := s.entity.NewMetricSet(FindingSampleEventType, s.commonAttributes()...)
	s.setMetrics(ms, []metricValue{
		{"ruleName", string(finding.Rule), metric.ATTRIBUTE},
		{"outcome", string(finding.Outcome), metric.ATTRIBUTE},
		{"table", finding.Table, metric.ATTRIBUTE},
		{"query", s.queryText(finding.Query), metric.ATTRIBUTE},
		{"label", finding.Label, metric.ATTRIBUTE},
		{"value", finding.ValueString(), metric.ATTRIBUTE},
	})
}

func (s *EntitySink) ExplainEnd() {}

func (s *EntitySink) queryText(query string) string {
	if s.anonymize {
		return AnonymizeQueryText(query)
	}
	return query
}

type metricValue struct {
	name       string
	value      interface{}
	sourceType metric.SourceType
}

func (s *EntitySink) setMetrics(ms *metric.Set, values []metricValue) {
	for _, v := range values {
		if err := ms.SetMetric(v.name, v.value, v.sourceType); err != nil {
			log.Error("Could not set metric '%s' on %s: %s", v.name, ms.Metrics["event_type"], err.Error())
		}
	}
}

func (s *EntitySink) commonAttributes() []attribute.Attribute {
	return []attribute.Attribute{
		{Key: "displayName", Value: s.entity.Metadata.Name},
		{Key: "entityName", Value: s.entity.Metadata.Namespace + ":" + s.entity.Metadata.Name},
		{Key: "host", Value: s.host},
	}
}
