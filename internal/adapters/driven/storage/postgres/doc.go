// Package postgres provides a PostgreSQL-backed DocumentStore and AuditStore
// built on gorm. It is the server deployment counterpart to the sqlite package.
package postgres
