// Package localdb is the client's durable local storage: a small sqlite
// database holding the known session set, the pending operation queue, and a
// key/value table for the device id, user code, and per-code sync watermarks.
package localdb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/strainix/timetrack/internal/models"
)

const (
	keyDeviceID = "device_id"
	keyUserCode = "user_code"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL,
		start_time INTEGER NOT NULL,
		end_time INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		deleted_at INTEGER
	);`,
	`CREATE TABLE IF NOT EXISTS operations (
		id TEXT PRIMARY KEY,
		op_type TEXT NOT NULL,
		session_id TEXT NOT NULL,
		data TEXT NOT NULL,
		ts INTEGER NOT NULL,
		retries INTEGER NOT NULL DEFAULT 0
	);`,
}

type DB struct {
	db *sql.DB
}

// Open creates or opens the client database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." && !strings.HasPrefix(path, "file::memory:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Single writer: the engine and the UI share one process, and a second
	// connection to an in-memory database would see a different database.
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply local schema: %w", err)
		}
	}
	return &DB{db: db}, nil
}

// OpenMemory opens a throwaway in-memory database, for tests.
func OpenMemory() (*DB, error) {
	return Open("file::memory:")
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) GetValue(key string) (string, bool, error) {
	var v string
	err := d.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (d *DB) SetValue(key, value string) error {
	_, err := d.db.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// DeviceID returns this installation's device id, minting and persisting one
// on first use.
func (d *DB) DeviceID() (string, error) {
	if v, ok, err := d.GetValue(keyDeviceID); err != nil || ok {
		return v, err
	}
	id := uuid.NewString()
	if err := d.SetValue(keyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

func (d *DB) UserCode() (string, error) {
	v, _, err := d.GetValue(keyUserCode)
	return v, err
}

func (d *DB) SetUserCode(code string) error {
	return d.SetValue(keyUserCode, code)
}

// LastSync returns the stored incremental-sync watermark for a user code, or
// zero when the code has never synced.
func (d *DB) LastSync(code string) (int64, error) {
	v, ok, err := d.GetValue("last_sync:" + code)
	if err != nil || !ok {
		return 0, err
	}
	var ts int64
	if _, err := fmt.Sscanf(v, "%d", &ts); err != nil {
		return 0, nil
	}
	return ts, nil
}

func (d *DB) SetLastSync(code string, ts int64) error {
	return d.SetValue("last_sync:"+code, fmt.Sprintf("%d", ts))
}

func (d *DB) LoadSessions() ([]models.Session, error) {
	rows, err := d.db.Query(`
		SELECT id, device_id, start_time, end_time, created_at, updated_at, deleted_at
		FROM sessions
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var (
			s        models.Session
			end, del sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.DeviceID, &s.StartTime, &end, &s.CreatedAt, &s.UpdatedAt, &del); err != nil {
			return nil, err
		}
		if end.Valid {
			v := end.Int64
			s.EndTime = &v
		}
		if del.Valid {
			v := del.Int64
			s.DeletedAt = &v
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (d *DB) PutSession(s models.Session) error {
	_, err := d.db.Exec(`
		INSERT INTO sessions (id, device_id, start_time, end_time, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			device_id = excluded.device_id,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at
	`, s.ID, s.DeviceID, s.StartTime, s.EndTime, s.CreatedAt, s.UpdatedAt, s.DeletedAt)
	return err
}

func (d *DB) DeleteSession(id string) error {
	_, err := d.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// LoadOperations returns the pending queue in enqueue order.
func (d *DB) LoadOperations() ([]models.Operation, error) {
	rows, err := d.db.Query(`
		SELECT id, op_type, session_id, data, ts, retries
		FROM operations
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []models.Operation
	for rows.Next() {
		var (
			op   models.Operation
			data string
		)
		if err := rows.Scan(&op.ID, &op.Type, &op.SessionID, &data, &op.Timestamp, &op.Retries); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &op.Data); err != nil {
			return nil, fmt.Errorf("decode operation %s: %w", op.ID, err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func (d *DB) PutOperation(op models.Operation) error {
	data, err := json.Marshal(op.Data)
	if err != nil {
		return err
	}
	_, err = d.db.Exec(`
		INSERT INTO operations (id, op_type, session_id, data, ts, retries)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET retries = excluded.retries
	`, op.ID, string(op.Type), op.SessionID, string(data), op.Timestamp, op.Retries)
	return err
}

func (d *DB) DeleteOperation(id string) error {
	_, err := d.db.Exec(`DELETE FROM operations WHERE id = ?`, id)
	return err
}
