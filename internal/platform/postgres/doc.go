// Package postgres provides PostgreSQL implementations of the store
// interfaces. All stores accept a store.DBTX, so the same implementation
// runs against a plain connection pool or inside a caller-managed
// transaction via WithTx.
package postgres
