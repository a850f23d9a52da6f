package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/ontoflow/ontoflow/pkg/handlers"
	"github.com/ontoflow/ontoflow/pkg/ontology"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{cfg: cfg}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	// Open database with SQLite-specific connection parameters
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	// Verify connection and set PRAGMAs
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	// Create migration source from embedded FS
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	// Create database driver
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	// Create migration instance
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// HealthCheck verifies the database connection is alive.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}

// Class operations

// SaveClass inserts a class definition, or replaces its property set when the
// class already exists. The property set is stored as a JSON blob so schema
// changes never require a migration.
func (s *SQLiteStore) SaveClass(ctx context.Context, def *ontology.ClassDefinition) error {
	props, err := json.Marshal(def.Properties)
	if err != nil {
		return fmt.Errorf("failed to marshal class properties: %w", err)
	}

	query := `
		INSERT INTO classes (name, properties, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			properties = excluded.properties,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		def.Name, string(props), def.CreatedAt.UTC(), def.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save class %s: %w", def.Name, err)
	}
	return nil
}

// GetClass retrieves a class definition by name.
func (s *SQLiteStore) GetClass(ctx context.Context, name string) (*ontology.ClassDefinition, error) {
	query := `SELECT name, properties, created_at, updated_at FROM classes WHERE name = ?`

	def, err := scanClass(s.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("class %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get class %s: %w", name, err)
	}
	return def, nil
}

// ListClasses returns all class definitions in definition order.
func (s *SQLiteStore) ListClasses(ctx context.Context) ([]*ontology.ClassDefinition, error) {
	query := `SELECT name, properties, created_at, updated_at FROM classes ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var defs []*ontology.ClassDefinition
	for rows.Next() {
		def, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// Instance operations

// SaveInstance inserts an instance, or replaces its property values when the
// instance already exists.
func (s *SQLiteStore) SaveInstance(ctx context.Context, inst *ontology.Instance) error {
	props, err := json.Marshal(inst.Properties)
	if err != nil {
		return fmt.Errorf("failed to marshal instance properties: %w", err)
	}

	query := `
		INSERT INTO instances (id, class, properties, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			properties = excluded.properties,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		inst.ID, inst.Class, string(props), inst.CreatedAt.UTC(), inst.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save instance %s: %w", inst.ID, err)
	}
	return nil
}

// GetInstance retrieves an instance by its identifier.
func (s *SQLiteStore) GetInstance(ctx context.Context, id string) (*ontology.Instance, error) {
	query := `SELECT id, class, properties, created_at, updated_at FROM instances WHERE id = ?`

	inst, err := scanInstance(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("instance %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instance %s: %w", id, err)
	}
	return inst, nil
}

// ListInstances returns instances in creation order. When className is
// non-empty only instances of that class are returned.
func (s *SQLiteStore) ListInstances(ctx context.Context, className string) ([]*ontology.Instance, error) {
	query := `SELECT id, class, properties, created_at, updated_at FROM instances`
	var args []any
	if className != "" {
		query += ` WHERE class = ?`
		args = append(args, className)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var insts []*ontology.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		insts = append(insts, inst)
	}
	return insts, rows.Err()
}

// DeleteInstance removes an instance by its identifier.
func (s *SQLiteStore) DeleteInstance(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM instances WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete instance %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("instance %s: %w", id, ErrNotFound)
	}
	return nil
}

// Handler operations

// SaveHandler inserts a handler definition, or replaces it when a handler with
// the same name already exists.
func (s *SQLiteStore) SaveHandler(ctx context.Context, def *handlers.Definition) error {
	blob, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal handler definition: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO handlers (name, description, definition, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			definition = excluded.definition,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query, def.Name, def.Description, string(blob), now, now)
	if err != nil {
		return fmt.Errorf("failed to save handler %s: %w", def.Name, err)
	}
	return nil
}

// GetHandler retrieves a handler definition by name.
func (s *SQLiteStore) GetHandler(ctx context.Context, name string) (*handlers.Definition, error) {
	query := `SELECT definition FROM handlers WHERE name = ?`

	var blob string
	err := s.db.QueryRowContext(ctx, query, name).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("handler %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get handler %s: %w", name, err)
	}

	var def handlers.Definition
	if err := json.Unmarshal([]byte(blob), &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal handler %s: %w", name, err)
	}
	return &def, nil
}

// ListHandlers returns all handler definitions in registration order.
func (s *SQLiteStore) ListHandlers(ctx context.Context) ([]*handlers.Definition, error) {
	query := `SELECT definition FROM handlers ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list handlers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var defs []*handlers.Definition
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to scan handler: %w", err)
		}
		var def handlers.Definition
		if err := json.Unmarshal([]byte(blob), &def); err != nil {
			return nil, fmt.Errorf("failed to unmarshal handler: %w", err)
		}
		defs = append(defs, &def)
	}
	return defs, rows.Err()
}

// Audit operations

// AppendAudit writes an entry to the audit log and fills in its assigned ID
// and timestamp.
func (s *SQLiteStore) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_log (action, handler, execution_id, instance_id, class, details, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		entry.Action, entry.Handler, entry.ExecutionID,
		entry.InstanceID, entry.Class, entry.Details, entry.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get audit entry id: %w", err)
	}
	entry.ID = id
	return nil
}

// ListAudit returns audit entries newest first. When action is non-empty only
// entries with that action are returned. A limit of 0 means no limit.
func (s *SQLiteStore) ListAudit(ctx context.Context, action string, limit, offset int) ([]*AuditEntry, error) {
	query := `SELECT id, action, handler, execution_id, instance_id, class, details, timestamp FROM audit_log`
	var args []any
	if action != "" {
		query += ` WHERE action = ?`
		args = append(args, action)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*AuditEntry
	for rows.Next() {
		var entry AuditEntry
		err := rows.Scan(&entry.ID, &entry.Action, &entry.Handler,
			&entry.ExecutionID, &entry.InstanceID, &entry.Class,
			&entry.Details, &entry.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for the shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanClass(row scanner) (*ontology.ClassDefinition, error) {
	var (
		def   ontology.ClassDefinition
		props string
	)
	if err := row.Scan(&def.Name, &props, &def.CreatedAt, &def.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(props), &def.Properties); err != nil {
		return nil, fmt.Errorf("failed to unmarshal class properties: %w", err)
	}
	return &def, nil
}

func scanInstance(row scanner) (*ontology.Instance, error) {
	var (
		inst  ontology.Instance
		props string
	)
	if err := row.Scan(&inst.ID, &inst.Class, &props, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(props), &inst.Properties); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instance properties: %w", err)
	}
	return &inst, nil
}
