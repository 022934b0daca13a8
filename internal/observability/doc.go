// Package observability provides the domain event log, metrics and goal
// deadline alerting for the goal companion. Events are persisted as JSON
// Lines (JSONL) and metrics are derived on demand from the log.
package observability
