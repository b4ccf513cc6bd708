// Package history persists obfuscation runs and their name maps in SQLite so
// obfuscated names from later stack traces can be looked up.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL keep watch-mode reruns from tripping over each other.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores a run and its entries in one transaction and returns the run
// with its ID and timestamp filled in.
func (s *Store) SaveRun(run Run, renames []Rename) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.ProjectKey = projectKeyOrDefault(run.ProjectKey)
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}

	err := s.withRetry("save run", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`
INSERT INTO runs (run_id, project_key, ts_utc, assembly_count, renamed_count, skipped_count, duration_ms, out_path)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			run.ProjectKey,
			run.Timestamp.UTC().Format(time.RFC3339Nano),
			run.Assemblies,
			run.Renamed,
			run.Skipped,
			run.Duration.Milliseconds(),
			run.OutPath,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
		stmt, err := tx.Prepare(`
INSERT INTO renames (run_id, seq, kind, original, new_name, status, reason) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		for i, r := range renames {
			if _, err := stmt.Exec(run.ID, i, r.Kind, r.Original, r.NewName, r.Status, r.Reason); err != nil {
				_ = stmt.Close()
				_ = tx.Rollback()
				return err
			}
		}
		_ = stmt.Close()
		return tx.Commit()
	})
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// Runs lists a project's runs oldest first, optionally bounded by since.
func (s *Store) Runs(projectKey string, since time.Time) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT run_id, project_key, ts_utc, assembly_count, renamed_count, skipped_count, duration_ms, out_path
FROM runs WHERE project_key = ?`
	args := []any{projectKeyOrDefault(projectKey)}
	if !since.IsZero() {
		query += " AND ts_utc >= ?"
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	query += " ORDER BY ts_utc ASC, run_id ASC"

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// Renames returns the entries of one run in the order they were saved.
func (s *Store) Renames(runID string) ([]Rename, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load renames", func() error {
		var qErr error
		rows, qErr = s.db.Query(`
SELECT kind, original, new_name, status, reason FROM renames WHERE run_id = ? ORDER BY seq ASC`, runID)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Rename, 0)
	for rows.Next() {
		var r Rename
		if err := rows.Scan(&r.Kind, &r.Original, &r.NewName, &r.Status, &r.Reason); err != nil {
			return nil, fmt.Errorf("scan rename row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rename rows: %w", err)
	}
	return out, nil
}

// Lookup finds entries whose new name, original key, bare member name or
// type full name equals name, newest run first. Obfuscated names are short
// and collide across runs, so every hit is returned.
func (s *Store) Lookup(projectKey, name string) ([]Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("lookup name must not be empty")
	}

	g := globEscape(name)
	var rows *sql.Rows
	err := s.withRetry("lookup name", func() error {
		var qErr error
		rows, qErr = s.db.Query(`
SELECT r.run_id, r.project_key, r.ts_utc, r.assembly_count, r.renamed_count, r.skipped_count, r.duration_ms, r.out_path,
       n.kind, n.original, n.new_name, n.status, n.reason
FROM renames n JOIN runs r ON r.run_id = n.run_id
WHERE r.project_key = ? AND (
	n.new_name = ? OR n.original = ?
	OR n.original GLOB ? OR n.original GLOB ? OR n.original GLOB ?)
ORDER BY r.ts_utc DESC, n.seq ASC`, projectKeyOrDefault(projectKey), name, name,
			"*::"+g, "*::"+g+"(*", "*]"+g)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Match, 0)
	for rows.Next() {
		var (
			m      Match
			tsRaw  string
			millis int64
		)
		if err := rows.Scan(
			&m.Run.ID, &m.Run.ProjectKey, &tsRaw, &m.Run.Assemblies, &m.Run.Renamed, &m.Run.Skipped, &millis, &m.Run.OutPath,
			&m.Rename.Kind, &m.Rename.Original, &m.Rename.NewName, &m.Rename.Status, &m.Rename.Reason,
		); err != nil {
			return nil, fmt.Errorf("scan lookup row: %w", err)
		}
		if err := fillTimes(&m.Run, tsRaw, millis); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lookup rows: %w", err)
	}
	return out, nil
}

// globEscape quotes GLOB metacharacters so name matches literally.
func globEscape(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '*', '?', '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		run    Run
		tsRaw  string
		millis int64
	)
	if err := rows.Scan(&run.ID, &run.ProjectKey, &tsRaw, &run.Assemblies, &run.Renamed, &run.Skipped, &millis, &run.OutPath); err != nil {
		return Run{}, fmt.Errorf("scan run row: %w", err)
	}
	if err := fillTimes(&run, tsRaw, millis); err != nil {
		return Run{}, err
	}
	return run, nil
}

func fillTimes(run *Run, tsRaw string, millis int64) error {
	ts, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
	}
	run.Timestamp = ts.UTC()
	run.Duration = time.Duration(millis) * time.Millisecond
	return nil
}

func projectKeyOrDefault(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "default"
	}
	return key
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
