package postgres

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// appendOnlySQL installs a trigger that rejects UPDATE and DELETE on audit rows.
var appendOnlySQL = []string{
	`CREATE OR REPLACE FUNCTION audit_events_append_only() RETURNS trigger AS $$
	BEGIN
		RAISE EXCEPTION 'audit events are append-only';
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS audit_events_append_only ON audit_events`,
	`CREATE TRIGGER audit_events_append_only
		BEFORE UPDATE OR DELETE ON audit_events
		FOR EACH ROW EXECUTE FUNCTION audit_events_append_only()`,
}

// Store holds the gorm connection shared by the document and audit stores.
type Store struct {
	db *gorm.DB
}

// Open connects to dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	gormLog := gormLogger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already migrated connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the tables and the audit trigger.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&documentRow{}, &chunkRow{}, &auditRow{}); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	for _, stmt := range appendOnlySQL {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("installing audit trigger: %w", err)
		}
	}
	return nil
}

// DB exposes the underlying connection.
func (s *Store) DB() *gorm.DB { return s.db }

// DocumentStore returns the document store view.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{db: s.db}
}

// AuditStore returns the audit store view.
func (s *Store) AuditStore() driven.AuditStore {
	return &auditStore{db: s.db}
}

// Close closes the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
