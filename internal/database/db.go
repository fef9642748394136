package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB represents the database connection with pooling
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool manages database connection pooling
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

// NewConnectionPool creates a new database connection pool
func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"max_lifetime_seconds": cp.maxLifetime.Seconds(),
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		"max_idle_closed":      stats.MaxIdleClosed,
		"max_lifetime_closed":  stats.MaxLifetimeClosed,
	}
}

// NewDB creates a new database connection with optimized pooling
func NewDB(dataDir string) (*DB, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "task_kpi.db")

	// Configure connection string for better performance
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pool := NewConnectionPool(db, 25, 5, 5*time.Minute)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	// Run migrations
	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize prepared statements
	if err := database.initPreparedStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized with connection pooling",
		"max_open_conns", pool.maxOpenConns,
		"max_idle_conns", pool.maxIdleConns,
		"max_lifetime", pool.maxLifetime)

	return database, nil
}

// migrate creates the necessary tables
func (db *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS departments (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			assigned_deputy_director_id TEXT,
			created_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			role TEXT NOT NULL,
			department_id TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (department_id) REFERENCES departments(id)
		)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			number TEXT,
			title TEXT NOT NULL,
			status TEXT NOT NULL,
			progress REAL NOT NULL DEFAULT 0,
			deadline DATETIME NOT NULL,
			completed_at DATETIME,
			priority TEXT NOT NULL,
			parent_task_id TEXT, -- one level of subtasks only
			created_at DATETIME NOT NULL,
			FOREIGN KEY (parent_task_id) REFERENCES tasks(id)
		)`,

		`CREATE TABLE IF NOT EXISTS assignments (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (task_id) REFERENCES tasks(id),
			FOREIGN KEY (user_id) REFERENCES users(id),
			UNIQUE(task_id, user_id, role)
		)`,

		`CREATE TABLE IF NOT EXISTS evaluations (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			assignment_id TEXT NOT NULL,
			evaluator_id TEXT NOT NULL,
			score REAL NOT NULL,
			comments TEXT,
			evaluated_at DATETIME NOT NULL,
			FOREIGN KEY (task_id) REFERENCES tasks(id),
			FOREIGN KEY (assignment_id) REFERENCES assignments(id),
			UNIQUE(task_id, assignment_id)
		)`,

		`CREATE TABLE IF NOT EXISTS progress_updates (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			content TEXT,
			progress REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (task_id) REFERENCES tasks(id)
		)`,

		`CREATE TABLE IF NOT EXISTS comments (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (task_id) REFERENCES tasks(id)
		)`,

		`CREATE TABLE IF NOT EXISTS attachments (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (task_id) REFERENCES tasks(id)
		)`,

		`CREATE TABLE IF NOT EXISTS task_counters (
			period_key TEXT PRIMARY KEY,
			next_number INTEGER NOT NULL
		)`,

		// Indexes for performance
		`CREATE INDEX IF NOT EXISTS idx_users_department ON users(department_id, role)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_deadline ON tasks(deadline)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_task_id)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_task ON assignments(task_id)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_user ON assignments(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_task ON evaluations(task_id)`,
		`CREATE INDEX IF NOT EXISTS idx_progress_updates_task ON progress_updates(task_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_task ON comments(task_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_attachments_task ON attachments(task_id, created_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// initPreparedStatements initializes frequently used prepared statements
func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		"get_task": `SELECT id, number, title, status, progress, deadline, completed_at, priority, parent_task_id, created_at
			FROM tasks WHERE id = ?`,

		"get_task_assignments": `SELECT id, task_id, user_id, role
			FROM assignments WHERE task_id = ? ORDER BY created_at ASC`,

		"get_user_assignments": `SELECT id, task_id, user_id, role
			FROM assignments WHERE user_id = ? ORDER BY created_at ASC`,

		"get_progress_updates": `SELECT id, task_id, user_id, content, progress, created_at
			FROM progress_updates WHERE task_id = ? ORDER BY created_at ASC`,

		"get_comments": `SELECT id, task_id, user_id, content, created_at
			FROM comments WHERE task_id = ? ORDER BY created_at ASC`,

		"get_attachments": `SELECT id, task_id, user_id, file_name, created_at
			FROM attachments WHERE task_id = ? ORDER BY created_at ASC`,

		"get_evaluation": `SELECT id, task_id, assignment_id, evaluator_id, score, comments, evaluated_at
			FROM evaluations WHERE task_id = ? AND assignment_id = ?`,

		"get_evaluations": `SELECT id, task_id, assignment_id, evaluator_id, score, comments, evaluated_at
			FROM evaluations WHERE task_id = ? ORDER BY evaluated_at ASC`,

		"get_user": `SELECT id, name, role, department_id FROM users WHERE id = ?`,

		"get_department": `SELECT id, name, assigned_deputy_director_id FROM departments WHERE id = ?`,

		"upsert_evaluation": `INSERT INTO evaluations (id, task_id, assignment_id, evaluator_id, score, comments, evaluated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(task_id, assignment_id) DO UPDATE SET
			evaluator_id = excluded.evaluator_id,
			score = excluded.score,
			comments = excluded.comments,
			evaluated_at = excluded.evaluated_at
			WHERE excluded.evaluator_id != evaluations.evaluator_id
			   OR excluded.score != evaluations.score
			   OR excluded.comments IS NOT evaluations.comments`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt

		slog.Debug("Prepared statement initialized", "name", name)
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// GetPoolStats returns database connection pool statistics
func (db *DB) GetPoolStats() map[string]interface{} {
	return db.pool.GetStats()
}

// Close closes the database connection and prepared statements
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	// Close all prepared statements
	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}

	// Clear the map
	db.prepared = make(map[string]*sql.Stmt)

	// Close the database connection
	return db.DB.Close()
}
