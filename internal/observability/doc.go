// Package observability provides the structured logging and Prometheus
// metrics infrastructure shared by the daily and explorer pipelines.
//
// Subpackages:
//   - logging: slog configuration with env-controlled levels
//   - metrics: Prometheus counters for pipeline outcomes
package observability
