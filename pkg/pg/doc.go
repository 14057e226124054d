// Package pg bootstraps the PostgreSQL layer: a pooled pgx/v5 connection
// with startup retry, goose schema migrations routed through the application
// logger, a health check, and helpers for classifying common Postgres errors.
package pg
