// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no C compiler needed, works everywhere Go works.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB      : a connection pool (NOT a single connection!)
//   - sql.Tx      : a transaction
//   - sql.Rows    : multiple result rows (must be closed!)
//
// TIMESTAMPS:
// All timestamps are stored as INTEGER unix nanoseconds in UTC. Comparisons in
// filters (createdAt_lt and friends) are then plain integer comparisons.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/text/cases"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and hands out per-entity stores.
type DB struct {
	conn     *sql.DB
	users    *UserDB
	articles *ArticleDB
}

var registerFuncs sync.Once
var registerErr error

// casefoldFunc is the SQL function used by the icontains operator.
const casefoldFunc = "casefold"

// registerFunctions installs Go-implemented SQL functions. The driver keeps
// them in a process-wide registry, so this must run exactly once.
func registerFunctions() error {
	registerFuncs.Do(func() {
		fold := cases.Fold()
		registerErr = moderncsqlite.RegisterDeterministicScalarFunction(casefoldFunc, 1,
			func(ctx *moderncsqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
				switch v := args[0].(type) {
				case nil:
					return nil, nil
				case string:
					return fold.String(v), nil
				case []byte:
					return fold.String(string(v)), nil
				default:
					return v, nil
				}
			})
	})
	return registerErr
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/needley.db"  → file-based database (persistent)
//   - ":memory:"         → in-memory database (great for tests, lost on close)
//
// ONE CONNECTION:
// The pool is capped at a single connection. SQLite serializes writers anyway,
// PRAGMAs are per-connection, and every ":memory:" connection would otherwise
// be its own empty database.
func New(dbPath string) (*DB, error) {
	if err := registerFunctions(); err != nil {
		return nil, fmt.Errorf("sqlite: registering functions: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent readers while a write is happening.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. ON DELETE CASCADE from users
	// to profiles and articles depends on them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn}
	db.users = &UserDB{conn: conn}
	db.articles = &ArticleDB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Users returns the user/profile store.
func (db *DB) Users() *UserDB { return db.users }

// Articles returns the article store.
func (db *DB) Articles() *ArticleDB { return db.articles }

// Ping reports whether the database is reachable. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER UNIQUE,
			last_login    INTEGER,
			created_at    INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Exactly one profile per user: user_id is UNIQUE.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			nickname   TEXT NOT NULL CHECK (length(nickname) BETWEEN 1 AND 20),
			avatar     TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating profiles table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS articles (
			id         TEXT PRIMARY KEY,
			author_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title      TEXT NOT NULL CHECK (length(title) BETWEEN 1 AND 100),
			content    TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_articles_author_id ON articles(author_id);
		CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating articles table: %w", err)
	}

	// slug came later than the table; ALTER TABLE keeps older files working.
	if err := db.addColumnIfNotExists("articles", "slug", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding slug to articles: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// now is truncated to microseconds so values survive a trip through
// RFC 3339 strings in the API unchanged.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// isConstraint reports whether err is an SQLite constraint violation with
// the given extended result code.
func isConstraint(err error, code int) bool {
	var se *moderncsqlite.Error
	return errors.As(err, &se) && se.Code() == code
}

func isUniqueViolation(err error) bool {
	return isConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE) ||
		isConstraint(err, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY)
}

func isForeignKeyViolation(err error) bool {
	return isConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY)
}
