// Package project persists projects and announces their creation. Folder
// provisioning subscribes to the creation event; it never decides whether a
// project is saved.
package project

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// FolderStatus tracks whether a project's remote folder is known to exist.
type FolderStatus string

// Folder states.
const (
	FolderPending FolderStatus = "pending"
	FolderReady   FolderStatus = "ready"
	FolderFailed  FolderStatus = "failed"
)

// ErrNotFound is returned when no project has the requested id.
var ErrNotFound = errors.New("project: not found")

// Project is the slice of the project record this service needs. The id is
// also the remote folder name.
type Project struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	Comment         string       `json:"comment,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	FolderStatus    FolderStatus `json:"folder_status"`
	FolderError     string       `json:"folder_error,omitempty"`
	FolderCheckedAt time.Time    `json:"folder_checked_at,omitzero"`
}

// FolderName returns the remote folder name for p.
func (p *Project) FolderName() string {
	return fmt.Sprintf("%d", p.ID)
}

const (
	sqlInsertProject = `INSERT INTO projects (name, comment, created_at) VALUES (?, ?, ?)`
	sqlSelectProject = `SELECT id, name, comment, created_at, folder_status, folder_error, folder_checked_at
		FROM projects`
	sqlUpdateFolder = `UPDATE projects SET folder_status = ?, folder_error = ?, folder_checked_at = ?
		WHERE id = ?`
)

// Store is a SQLite-backed project repository.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for deterministic tests
}

// OpenStore opens the SQLite database at dbPath, runs migrations, and returns
// a ready-to-use store.
func OpenStore(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"+
			"&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("project: opening database %s: %w", dbPath, err)
	}

	// Sole-writer pattern: only one connection writes at a time.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("project store opened", slog.String("db_path", dbPath))

	return &Store{db: db, logger: logger, nowFunc: time.Now}, nil
}

// runMigrations applies all pending schema migrations to the database.
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("project: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("project: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("project: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new project with a pending folder status.
func (s *Store) Create(ctx context.Context, name, comment string) (*Project, error) {
	now := s.nowFunc().UTC().Truncate(time.Second)

	res, err := s.db.ExecContext(ctx, sqlInsertProject, name, comment, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("project: inserting %q: %w", name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("project: reading new id: %w", err)
	}

	s.logger.Info("project saved", slog.Int64("id", id), slog.String("name", name))

	return &Project{ID: id, Name: name, Comment: comment, CreatedAt: now, FolderStatus: FolderPending}, nil
}

// Get returns the project with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (*Project, error) {
	row := s.db.QueryRowContext(ctx, sqlSelectProject+` WHERE id = ?`, id)

	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}

	if err != nil {
		return nil, err
	}

	return p, nil
}

// List returns all projects, newest first.
func (s *Store) List(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx, sqlSelectProject+` ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("project: listing: %w", err)
	}
	defer rows.Close()

	var out []*Project

	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("project: iterating rows: %w", err)
	}

	return out, nil
}

// SetFolderStatus records the outcome of a provisioning attempt.
func (s *Store) SetFolderStatus(ctx context.Context, id int64, status FolderStatus, folderErr string) error {
	res, err := s.db.ExecContext(ctx, sqlUpdateFolder,
		string(status), nullString(folderErr), s.nowFunc().UTC().Unix(), id)
	if err != nil {
		return fmt.Errorf("project: updating folder status of %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("project: updating folder status of %d: %w", id, err)
	}

	if n == 0 {
		return fmt.Errorf("project %d: %w", id, ErrNotFound)
	}

	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(r rowScanner) (*Project, error) {
	var (
		p         Project
		created   int64
		status    string
		folderErr sql.NullString
		checkedAt sql.NullInt64
	)

	if err := r.Scan(&p.ID, &p.Name, &p.Comment, &created, &status, &folderErr, &checkedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("project: scanning row: %w", err)
	}

	p.CreatedAt = time.Unix(created, 0).UTC()
	p.FolderStatus = FolderStatus(status)
	p.FolderError = folderErr.String

	if checkedAt.Valid {
		p.FolderCheckedAt = time.Unix(checkedAt.Int64, 0).UTC()
	}

	return &p, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}

	return sql.NullString{String: s, Valid: true}
}
