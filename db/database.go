package db

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"           // registers the "postgres" driver
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver, test use only

	"github.com/ordering-helper/backend/logger"
)

// DatabaseManager owns the process-wide connection pool.
type DatabaseManager struct {
	mu          sync.RWMutex
	db          *sql.DB
	dbType      string
	dsn         string
	maxOpen     int
	maxIdle     int
	maxLifeTime time.Duration
	isConnected bool
}

// DatabaseConfig configures the connection pool.
type DatabaseConfig struct {
	Type        string // postgres, sqlite3
	DSN         string
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

var (
	defaultDbManager *DatabaseManager
	dbOnce           sync.Once
)

// GetDatabaseManager returns the singleton DatabaseManager.
func GetDatabaseManager() *DatabaseManager {
	dbOnce.Do(func() {
		defaultDbManager = &DatabaseManager{
			dbType:      "postgres",
			maxOpen:     25,
			maxIdle:     5,
			maxLifeTime: 5 * time.Minute,
		}
	})
	return defaultDbManager
}

// Init opens the pool and verifies connectivity.
func (dm *DatabaseManager) Init(config DatabaseConfig) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if config.Type != "" {
		dm.dbType = config.Type
	}
	if config.DSN != "" {
		dm.dsn = config.DSN
	}
	if config.MaxOpen > 0 {
		dm.maxOpen = config.MaxOpen
	}
	if config.MaxIdle > 0 {
		dm.maxIdle = config.MaxIdle
	}
	if config.MaxLifetime > 0 {
		dm.maxLifeTime = config.MaxLifetime
	}

	var driver string
	switch dm.dbType {
	case "postgres":
		driver = "postgres"
	case "sqlite3":
		driver = "sqlite3"
	default:
		return fmt.Errorf("unsupported database engine: %s", dm.dbType)
	}

	db, err := sql.Open(driver, dm.dsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(dm.maxOpen)
	db.SetMaxIdleConns(dm.maxIdle)
	db.SetConnMaxLifetime(dm.maxLifeTime)

	if err := db.Ping(); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	dm.db = db
	dm.isConnected = true

	logger.Info("database manager initialized", map[string]interface{}{
		"type":         dm.dbType,
		"max_open":     dm.maxOpen,
		"max_idle":     dm.maxIdle,
		"max_lifetime": dm.maxLifeTime.String(),
	})

	return nil
}

// Engine reports the configured driver name ("postgres" or "sqlite3"); the
// service container logs it at startup.
func (dm *DatabaseManager) Engine() string {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.dbType
}

// GetConnection returns the underlying pool.
func (dm *DatabaseManager) GetConnection() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	return dm.db
}

// Close drains the pool.
func (dm *DatabaseManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.db != nil {
		if err := dm.db.Close(); err != nil {
			return fmt.Errorf("closing database: %w", err)
		}
		dm.isConnected = false
		logger.Info("database connection closed", nil)
	}

	return nil
}

// IsConnected pings the pool.
func (dm *DatabaseManager) IsConnected() bool {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	if !dm.isConnected || dm.db == nil {
		return false
	}

	return dm.db.Ping() == nil
}

// GetHealth reports pool statistics for the /ready endpoint.
func (dm *DatabaseManager) GetHealth() map[string]interface{} {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	if dm.db == nil {
		return map[string]interface{}{"connected": false}
	}

	stats := dm.db.Stats()

	return map[string]interface{}{
		"connected":           dm.isConnected,
		"open_connections":    stats.OpenConnections,
		"in_use":              stats.InUse,
		"idle":                stats.Idle,
		"wait_count":          stats.WaitCount,
		"wait_duration":       stats.WaitDuration.String(),
		"max_idle_closed":     stats.MaxIdleClosed,
		"max_lifetime_closed": stats.MaxLifetimeClosed,
	}
}

// Exec runs a statement with no rows returned.
func (dm *DatabaseManager) Exec(query string, args ...interface{}) (sql.Result, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	if dm.db == nil || !dm.isConnected {
		return nil, fmt.Errorf("database not connected")
	}

	return dm.db.Exec(query, args...)
}

// Query runs a statement returning rows.
func (dm *DatabaseManager) Query(query string, args ...interface{}) (*sql.Rows, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	if dm.db == nil || !dm.isConnected {
		return nil, fmt.Errorf("database not connected")
	}

	return dm.db.Query(query, args...)
}

// QueryRow runs a statement returning a single row.
func (dm *DatabaseManager) QueryRow(query string, args ...interface{}) *sql.Row {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	return dm.db.QueryRow(query, args...)
}

// BeginTx starts a transaction. Every mutating write path in this service
// (Store Resolver, Order Writer, Summary Store) runs inside one.
func (dm *DatabaseManager) BeginTx() (*sql.Tx, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	if dm.db == nil || !dm.isConnected {
		return nil, fmt.Errorf("database not connected")
	}

	return dm.db.Begin()
}

// ExecuteMigration runs a schema script, splitting on statement boundaries.
func (dm *DatabaseManager) ExecuteMigration(script string) error {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	if dm.db == nil || !dm.isConnected {
		return fmt.Errorf("database not connected")
	}

	for _, stmt := range splitStatements(script) {
		stmt = trimStatement(stmt)
		if stmt == "" {
			continue
		}

		if _, err := dm.db.Exec(stmt); err != nil {
			return fmt.Errorf("running migration statement: %w", err)
		}
	}

	return nil
}

// splitStatements divides a script on literal ';' boundaries. This does not
// understand ';' inside string literals or function bodies; migrations in
// this repository are written to avoid that (see db/migration.go).
func splitStatements(script string) []string {
	var statements []string
	var current string

	for _, r := range script {
		if r == ';' {
			statements = append(statements, current)
			current = ""
		} else {
			current += string(r)
		}
	}

	if current != "" {
		statements = append(statements, current)
	}

	return statements
}

func trimStatement(stmt string) string {
	var lines string
	for _, line := range splitLines(stmt) {
		t := trimSpace(line)
		if t != "" && !isCommentLine(t) {
			lines += line + "\n"
		}
	}
	return trimSpace(lines)
}

func splitLines(s string) []string {
	var lines []string
	var cur string
	for _, r := range s {
		if r == '\n' {
			lines = append(lines, cur)
			cur = ""
		} else {
			cur += string(r)
		}
	}
	lines = append(lines, cur)
	return lines
}

func trimSpace(s string) string {
	start := 0
	for start < len(s) && (s[start] == ' ' || s[start] == '\t' || s[start] == '\r' || s[start] == '\n') {
		start++
	}
	end := len(s)
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\r' || s[end-1] == '\n') {
		end--
	}
	return s[start:end]
}

func isCommentLine(line string) bool {
	return len(line) > 1 && line[0] == '-' && line[1] == '-'
}
