// Package pg owns the PostgreSQL connection lifecycle: pool construction
// with startup retries, goose schema migrations, health checking, and
// error-classification helpers shared by the repositories.
package pg
