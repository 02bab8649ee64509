package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	// DriverCGO is github.com/mattn/go-sqlite3 (requires cgo).
	DriverCGO = "sqlite3"
	// DriverPureGo is modernc.org/sqlite.
	DriverPureGo = "sqlite"
)

// Organization represents a row in the organizations table.
type Organization struct {
	ID        int64  `json:"id"`
	Name      string `json:"org_name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Relationship represents a row in the relationships table: OrganizationID
// is the immediate parent of DaughterID.
type Relationship struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organization_id"`
	DaughterID     int64  `json:"daughter_id"`
	CreatedAt      string `json:"created_at"`
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store wraps the SQLite database holding the organization graph.
//
// A Store handed to a WithTx callback is bound to that transaction; all of
// its methods run inside it.
type Store struct {
	db     *sql.DB
	q      querier
	driver string
	inTx   bool
}

// New opens (or creates) a SQLite database at the given path and applies
// the schema and pending migrations. An empty driver selects the cgo driver
// when available and modernc.org/sqlite otherwise.
func New(dbPath, driver string) (*Store, error) {
	if driver == "" {
		driver = defaultDriver
	}
	if driver != DriverCGO && driver != DriverPureGo {
		return nil, fmt.Errorf("unknown sqlite driver %q", driver)
	}

	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn(driver, dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Create schema
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, q: db, driver: driver}

	// Run pending migrations.
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// dsn builds the connection string for the given driver. Writers take the
// database lock at BEGIN so concurrent upserts queue on busy_timeout instead
// of failing on lock upgrade.
func dsn(driver, path string) string {
	if driver == DriverPureGo {
		return "file:" + path +
			"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(30000)&_txlock=immediate"
	}
	return path + "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000&_txlock=immediate"
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string {
	return s.driver
}

// WithTx runs fn inside a single transaction. The Store passed to fn is
// bound to the transaction. Calling WithTx on an already bound Store runs fn
// in the enclosing transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.inTxFn(ctx, func(tx *sql.Tx) error {
		return fn(&Store{db: s.db, q: tx, driver: s.driver, inTx: true})
	})
}

// --- Organization operations ---

// GetOrCreateOrganization returns the organization with the given name,
// inserting it first if it does not exist. created reports whether this call
// inserted the row.
func (s *Store) GetOrCreateOrganization(ctx context.Context, name string) (org *Organization, created bool, err error) {
	res, err := s.q.ExecContext(ctx,
		"INSERT INTO organizations (org_name) VALUES (?) ON CONFLICT(org_name) DO NOTHING",
		name)
	if err != nil {
		return nil, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	org, err = s.GetOrganizationByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	return org, n > 0, nil
}

// GetOrganizationByName returns the organization with the exact given name.
// Returns sql.ErrNoRows if absent.
func (s *Store) GetOrganizationByName(ctx context.Context, name string) (*Organization, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT id, org_name, created_at, updated_at FROM organizations WHERE org_name = ?", name)
	return scanOrganization(row)
}

// GetOrganization returns the organization with the given ID.
// Returns sql.ErrNoRows if absent.
func (s *Store) GetOrganization(ctx context.Context, id int64) (*Organization, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT id, org_name, created_at, updated_at FROM organizations WHERE id = ?", id)
	return scanOrganization(row)
}

// ListOrganizations returns every organization in creation order.
func (s *Store) ListOrganizations(ctx context.Context) ([]Organization, error) {
	return s.queryOrganizations(ctx,
		"SELECT id, org_name, created_at, updated_at FROM organizations ORDER BY id")
}

// RootOrganizations returns organizations that have no parent, in creation
// order.
func (s *Store) RootOrganizations(ctx context.Context) ([]Organization, error) {
	return s.queryOrganizations(ctx, `
		SELECT o.id, o.org_name, o.created_at, o.updated_at
		FROM organizations o
		WHERE NOT EXISTS (SELECT 1 FROM relationships r WHERE r.daughter_id = o.id)
		ORDER BY o.id`)
}

// Parents returns the immediate parents of the organization, in edge
// creation order.
func (s *Store) Parents(ctx context.Context, orgID int64) ([]Organization, error) {
	return s.queryOrganizations(ctx, `
		SELECT o.id, o.org_name, o.created_at, o.updated_at
		FROM relationships r
		JOIN organizations o ON o.id = r.organization_id
		WHERE r.daughter_id = ?
		ORDER BY r.id`, orgID)
}

// Daughters returns the immediate daughters of the organization, in edge
// creation order.
func (s *Store) Daughters(ctx context.Context, orgID int64) ([]Organization, error) {
	return s.queryOrganizations(ctx, `
		SELECT o.id, o.org_name, o.created_at, o.updated_at
		FROM relationships r
		JOIN organizations o ON o.id = r.daughter_id
		WHERE r.organization_id = ?
		ORDER BY r.id`, orgID)
}

// --- Relationship operations ---

// EdgeExists reports whether an edge links a and b in either direction.
func (s *Store) EdgeExists(ctx context.Context, a, b int64) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM relationships
			WHERE (organization_id = ? AND daughter_id = ?)
			   OR (organization_id = ? AND daughter_id = ?)
		)`, a, b, b, a).Scan(&exists)
	return exists, err
}

// InsertRelationship creates the edge parentID -> daughterID without any
// pair check. Returns the relationship ID.
func (s *Store) InsertRelationship(ctx context.Context, parentID, daughterID int64) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		"INSERT INTO relationships (organization_id, daughter_id) VALUES (?, ?)",
		parentID, daughterID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Reaches reports whether to is reachable from from by following edges
// downwards. An organization always reaches itself.
func (s *Store) Reaches(ctx context.Context, from, to int64) (bool, error) {
	if from == to {
		return true, nil
	}
	var found bool
	err := s.q.QueryRowContext(ctx, `
		WITH RECURSIVE reach(id) AS (
			SELECT daughter_id FROM relationships WHERE organization_id = ?
			UNION
			SELECT r.daughter_id FROM relationships r JOIN reach ON r.organization_id = reach.id
		)
		SELECT EXISTS(SELECT 1 FROM reach WHERE id = ?)`, from, to).Scan(&found)
	return found, err
}

// AllRelationships returns every relationship in creation order.
func (s *Store) AllRelationships(ctx context.Context) ([]Relationship, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, organization_id, daughter_id, created_at FROM relationships ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []Relationship
	for rows.Next() {
		var r Relationship
		if err := rows.Scan(&r.ID, &r.OrganizationID, &r.DaughterID, &r.CreatedAt); err != nil {
			return nil, err
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// DBStats holds row counts for diagnostics.
type DBStats struct {
	Organizations int `json:"organizations"`
	Relationships int `json:"relationships"`
	Roots         int `json:"roots"`
}

// DBStats returns row counts for the organization graph.
func (s *Store) DBStats(ctx context.Context) (*DBStats, error) {
	stats := &DBStats{}
	for _, q := range []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM organizations", &stats.Organizations},
		{"SELECT COUNT(*) FROM relationships", &stats.Relationships},
		{`SELECT COUNT(*) FROM organizations o
		  WHERE NOT EXISTS (SELECT 1 FROM relationships r WHERE r.daughter_id = o.id)`, &stats.Roots},
	} {
		if err := s.q.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting: %w", err)
		}
	}
	return stats, nil
}

// --- helpers ---

func (s *Store) inTxFn(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) queryOrganizations(ctx context.Context, query string, args ...any) ([]Organization, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, *o)
	}
	return orgs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (*Organization, error) {
	var o Organization
	var created, updated sql.NullString
	if err := row.Scan(&o.ID, &o.Name, &created, &updated); err != nil {
		return nil, err
	}
	o.CreatedAt = created.String
	o.UpdatedAt = updated.String
	return &o, nil
}
