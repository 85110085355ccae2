package models

import "time"

// QueryEvent describes one executed statement as seen by the query-event
// source. It is consumed once and not retained.
type QueryEvent struct {
	Statement     string
	Bindings      []interface{}
	ElapsedMillis float64
}

// NewQueryEvent converts the elapsed duration into fractional milliseconds.
func NewQueryEvent(statement string, bindings []interface{}, elapsed time.Duration) QueryEvent {
	return QueryEvent{
		Statement:     statement,
		Bindings:      bindings,
		ElapsedMillis: float64(elapsed) / float64(time.Millisecond),
	}
}
