// Package postgres provides the PostgreSQL implementation of the storage
// interfaces defined in the internal/store package. It handles query
// execution, error code mapping, and schema migrations; the tasks table is
// treated as a document store with field-scoped merge upserts.
package postgres
