// Package state implements the SQLite-backed session state store
// described in spec §4.12 (component C15): variables, cwd, last result,
// mounts, configured MCP servers, history, and checkpoints, all scoped to
// one kernel.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kaishlang/kaish/pkg/kaish/ast"
	"github.com/kaishlang/kaish/pkg/kaish/eval"
)

// Store is a SQLite-backed state store for one kernel. All mutating
// methods are serialized through a single *sql.DB connection, matching
// spec §5's "SQLite connection: serialized through its own lock."
type Store struct {
	db        *sql.DB
	sessionID string
}

// Open opens (creating if absent) the SQLite database at path, applies
// pending schema migrations, and returns a ready Store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	sessionID, err := s.ensureSessionID(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.sessionID = sessionID
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// SessionID returns the session id stored in the meta table, generated
// once on first Open and stable across reopen (spec §4.12 meta table).
func (s *Store) SessionID() string { return s.sessionID }

const schemaVersion = 1

// migrate creates the schema if absent. Hand-rolled versioning (see
// DESIGN.md for why this isn't golang-migrate) — a single idempotent
// CREATE TABLE IF NOT EXISTS pass plus a schema_version row.
func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS variables (
			name TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			small_value TEXT,
			blob_value BLOB,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cwd (id INTEGER PRIMARY KEY CHECK (id = 1), path TEXT NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS last_result (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			code INTEGER NOT NULL,
			ok INTEGER NOT NULL,
			err TEXT,
			stdout TEXT,
			stderr TEXT,
			data_json TEXT,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS mounts (
			path TEXT PRIMARY KEY,
			backend_type TEXT NOT NULL,
			config_json TEXT NOT NULL,
			read_only INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS mcp_servers (
			name TEXT PRIMARY KEY,
			transport_type TEXT NOT NULL,
			config_json TEXT NOT NULL,
			enabled INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL,
			code_hash TEXT NOT NULL,
			result_code INTEGER NOT NULL,
			result_ok INTEGER NOT NULL,
			result_out TEXT,
			result_err TEXT,
			result_data_json TEXT,
			duration_ms INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			summary TEXT,
			up_to_history_id INTEGER NOT NULL,
			variables_snapshot TEXT,
			metadata_json TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
	}
	return s.withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("state: migrate: %w", err)
			}
		}
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_version`).Scan(&count); err != nil {
			return err
		}
		if count == 0 {
			if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version(version) VALUES (?)`, schemaVersion); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

func (s *Store) ensureSessionID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'session_id'`).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("state: read session_id: %w", err)
	}
	id = uuid.NewString()
	err = s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `INSERT INTO meta(key, value) VALUES ('session_id', ?)`, id)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("state: write session_id: %w", err)
	}
	return id, nil
}

// withRetry wraps fn with a short exponential backoff against SQLite's
// transient "database is locked" / SQLITE_BUSY errors (spec §5).
func (s *Store) withRetry(ctx context.Context, fn func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if isBusyError(err) {
			return err // retryable
		}
		return backoff.Permanent(err)
	}, b)
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return contains(msg, "locked") || contains(msg, "busy")
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

const smallValueLimit = 1024

// SetVariable upserts name with v, splitting the encoded form between
// small_value and blob_value at the 1024-byte threshold (spec §4.12).
func (s *Store) SetVariable(ctx context.Context, name string, v ast.Value) error {
	jv, err := eval.ToJSON(v)
	if err != nil {
		return fmt.Errorf("state: encode variable %q: %w", name, err)
	}
	encoded, err := json.Marshal(jv)
	if err != nil {
		return fmt.Errorf("state: encode variable %q: %w", name, err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.withRetry(ctx, func() error {
		if len(encoded) <= smallValueLimit {
			_, err := s.db.ExecContext(ctx, `
				INSERT INTO variables(name, type, small_value, blob_value, updated_at)
				VALUES (?, ?, ?, NULL, ?)
				ON CONFLICT(name) DO UPDATE SET type=excluded.type, small_value=excluded.small_value, blob_value=NULL, updated_at=excluded.updated_at
			`, name, v.Kind.String(), string(encoded), now)
			return err
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO variables(name, type, small_value, blob_value, updated_at)
			VALUES (?, ?, NULL, ?, ?)
			ON CONFLICT(name) DO UPDATE SET type=excluded.type, small_value=NULL, blob_value=excluded.blob_value, updated_at=excluded.updated_at
		`, name, v.Kind.String(), encoded, now)
		return err
	})
}

// GetVariable loads a single variable by name.
func (s *Store) GetVariable(ctx context.Context, name string) (ast.Value, bool, error) {
	var small sql.NullString
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT small_value, blob_value FROM variables WHERE name = ?`, name).Scan(&small, &blob)
	if err == sql.ErrNoRows {
		return ast.Value{}, false, nil
	}
	if err != nil {
		return ast.Value{}, false, fmt.Errorf("state: get variable %q: %w", name, err)
	}
	raw := blob
	if small.Valid {
		raw = []byte(small.String)
	}
	v, err := decodeJSONValue(raw)
	if err != nil {
		return ast.Value{}, false, err
	}
	return v, true, nil
}

// LoadAllVariables returns every stored variable (spec §4.12
// "load_all_variables").
func (s *Store) LoadAllVariables(ctx context.Context) (map[string]ast.Value, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, small_value, blob_value FROM variables`)
	if err != nil {
		return nil, fmt.Errorf("state: load variables: %w", err)
	}
	defer rows.Close()
	out := make(map[string]ast.Value)
	for rows.Next() {
		var name string
		var small sql.NullString
		var blob []byte
		if err := rows.Scan(&name, &small, &blob); err != nil {
			return nil, err
		}
		raw := blob
		if small.Valid {
			raw = []byte(small.String)
		}
		v, err := decodeJSONValue(raw)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, rows.Err()
}

// DeleteVariable removes name, a no-op if absent.
func (s *Store) DeleteVariable(ctx context.Context, name string) error {
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM variables WHERE name = ?`, name)
		return err
	})
}

// ClearVariables deletes every stored variable, used by Kernel.Reset.
func (s *Store) ClearVariables(ctx context.Context) error {
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM variables`)
		return err
	})
}

// SetCwd upserts the single cwd row.
func (s *Store) SetCwd(ctx context.Context, path string) error {
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO cwd(id, path) VALUES (1, ?)
			ON CONFLICT(id) DO UPDATE SET path=excluded.path
		`, path)
		return err
	})
}

// Cwd returns the persisted working directory, "/" if never set.
func (s *Store) Cwd(ctx context.Context) (string, error) {
	var path string
	err := s.db.QueryRowContext(ctx, `SELECT path FROM cwd WHERE id = 1`).Scan(&path)
	if err == sql.ErrNoRows {
		return "/", nil
	}
	if err != nil {
		return "", fmt.Errorf("state: get cwd: %w", err)
	}
	return path, nil
}

// SetLastResult persists the most recent top-level ExecResult
// (spec §4.12: "last_result is updated after every top-level statement").
func (s *Store) SetLastResult(ctx context.Context, code int, ok bool, errMsg, stdout, stderr string, dataJSON *string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO last_result(id, code, ok, err, stdout, stderr, data_json, updated_at)
			VALUES (1, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET code=excluded.code, ok=excluded.ok, err=excluded.err,
				stdout=excluded.stdout, stderr=excluded.stderr, data_json=excluded.data_json, updated_at=excluded.updated_at
		`, code, boolToInt(ok), errMsg, stdout, stderr, dataJSON, now)
		return err
	})
}

// AppendHistory inserts one executed-statement record.
func (s *Store) AppendHistory(ctx context.Context, code, codeHash string, resultCode int, resultOK bool, resultOut, resultErr string, resultDataJSON *string, durationMS int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	var id int64
	err := s.withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO history(code, code_hash, result_code, result_ok, result_out, result_err, result_data_json, duration_ms, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, code, codeHash, resultCode, boolToInt(resultOK), resultOut, resultErr, resultDataJSON, durationMS, now)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// HistoryEntry is one row of the history table.
type HistoryEntry struct {
	ID         int64
	Code       string
	ResultCode int
	ResultOK   bool
	ResultOut  string
	ResultErr  string
	DurationMS int64
	CreatedAt  string
}

// HistorySinceCheckpoint returns every history row after the given
// checkpoint's up_to_history_id (0 means "since the beginning"), spec
// §4.12 "history_since_checkpoint".
func (s *Store) HistorySinceCheckpoint(ctx context.Context, upToHistoryID int64) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, result_code, result_ok, result_out, result_err, duration_ms, created_at
		FROM history WHERE id > ? ORDER BY id ASC
	`, upToHistoryID)
	if err != nil {
		return nil, fmt.Errorf("state: history since checkpoint: %w", err)
	}
	defer rows.Close()
	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var ok int
		if err := rows.Scan(&e.ID, &e.Code, &e.ResultCode, &ok, &e.ResultOut, &e.ResultErr, &e.DurationMS, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ResultOK = ok != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateCheckpoint inserts a checkpoint summarizing history up to
// upToHistoryID, snapshotting variablesJSON verbatim.
func (s *Store) CreateCheckpoint(ctx context.Context, name, summary string, upToHistoryID int64, variablesJSON, metadataJSON string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	var id int64
	err := s.withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO checkpoints(name, summary, up_to_history_id, variables_snapshot, metadata_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, name, summary, upToHistoryID, variablesJSON, metadataJSON, now)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// ExportJSON serializes the session id, the cwd and the persisted
// variables as one JSON document (spec §4.12's "export_json" convenience
// accessor). The last result, history and checkpoints are not included.
func (s *Store) ExportJSON(ctx context.Context) (string, error) {
	vars, err := s.LoadAllVariables(ctx)
	if err != nil {
		return "", err
	}
	cwd, err := s.Cwd(ctx)
	if err != nil {
		return "", err
	}
	literalVars := make(map[string]any, len(vars))
	for k, v := range vars {
		jv, err := eval.ToJSON(v)
		if err != nil {
			return "", err
		}
		literalVars[k] = jv
	}
	doc := map[string]any{
		"session_id": s.sessionID,
		"cwd":        cwd,
		"variables":  literalVars,
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("state: export json: %w", err)
	}
	return string(out), nil
}

// Reset clears variables and cwd, matching Kernel.Reset's state-store
// side of spec §4.13.
func (s *Store) Reset(ctx context.Context) error {
	return s.withRetry(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM variables`); err != nil {
			return err
		}
		_, err := s.db.ExecContext(ctx, `DELETE FROM cwd`)
		return err
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func decodeJSONValue(raw []byte) (ast.Value, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ast.Value{}, fmt.Errorf("state: decode value: %w", err)
	}
	return eval.FromJSON(v)
}
