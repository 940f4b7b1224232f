package repos

import (
	"database/sql"
	"errors"

	"github.com/strainix/timetrack/internal/models"
)

var ErrNotFound = errors.New("not found")

// SessionRepo is the relational storage behind the remote session service.
// All timestamps are epoch milliseconds stored as INTEGER columns.
type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) DB() *sql.DB {
	return r.db
}

func (r *SessionRepo) WithTx(fn func(tx *sql.Tx) error) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *SessionRepo) UserCodeExists(code string) (bool, error) {
	var got string
	err := r.db.QueryRow(`SELECT code FROM user_codes WHERE code = ?`, code).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *SessionRepo) InsertUserCode(code string, now int64) error {
	_, err := r.db.Exec(`
		INSERT INTO user_codes (code, created_at, last_accessed)
		VALUES (?, ?, ?)
	`, code, now, now)
	return err
}

func (r *SessionRepo) TouchUserCode(code string, now int64) error {
	_, err := r.db.Exec(`UPDATE user_codes SET last_accessed = ? WHERE code = ?`, now, code)
	return err
}

// InsertSessionIfAbsentTx creates the session unless a row with its id
// already exists. Queued start operations replay through here, so the insert
// must be a no-op the second time around.
func (r *SessionRepo) InsertSessionIfAbsentTx(tx *sql.Tx, userCode string, s *models.Session) (bool, error) {
	res, err := tx.Exec(`
		INSERT OR IGNORE INTO sessions (id, user_code, device_id, start_time, end_time, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, userCode, s.DeviceID, s.StartTime, s.EndTime, s.CreatedAt, s.UpdatedAt, s.DeletedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LatestOpenTx returns the open session with the greatest start time for a
// user code, or ErrNotFound when none is open. Ties break on created_at and
// then id so the choice is stable across devices.
func (r *SessionRepo) LatestOpenTx(tx *sql.Tx, userCode string) (*models.Session, error) {
	row := tx.QueryRow(`
		SELECT id, device_id, start_time, end_time, created_at, updated_at, deleted_at
		FROM sessions
		WHERE user_code = ? AND end_time IS NULL AND deleted_at IS NULL
		ORDER BY start_time DESC, created_at DESC, id DESC
		LIMIT 1
	`, userCode)
	return scanSession(row)
}

// CloseOpenExceptTx ends every open session other than the survivor. Each is
// closed at the survivor's start time, clamped so a session never ends before
// it began.
func (r *SessionRepo) CloseOpenExceptTx(tx *sql.Tx, userCode, survivorID string, survivorStart, now int64) (int64, error) {
	res, err := tx.Exec(`
		UPDATE sessions
		SET end_time = MAX(start_time, ?), updated_at = ?
		WHERE user_code = ? AND end_time IS NULL AND deleted_at IS NULL AND id <> ?
	`, survivorStart, now, userCode, survivorID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateSessionFields applies a partial update of start/end times. Returns
// false when the session is missing or tombstoned.
func (r *SessionRepo) UpdateSessionFields(userCode, id string, start, end *int64, now int64) (bool, error) {
	set := "updated_at = ?"
	args := []any{now}
	if start != nil {
		set += ", start_time = ?"
		args = append(args, *start)
	}
	if end != nil {
		set += ", end_time = ?"
		args = append(args, *end)
	}
	args = append(args, id, userCode)
	res, err := r.db.Exec(`
		UPDATE sessions SET `+set+`
		WHERE id = ? AND user_code = ? AND deleted_at IS NULL
	`, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SoftDeleteSession tombstones a session. Returns false when it is missing
// or already deleted.
func (r *SessionRepo) SoftDeleteSession(userCode, id string, now int64) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE sessions
		SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND user_code = ? AND deleted_at IS NULL
	`, now, now, id, userCode)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListSessions returns a user's sessions ordered by start time. A full
// listing (since == 0) excludes tombstones; an incremental listing returns
// every row changed after the watermark, tombstones included, so deletions
// propagate to other devices.
func (r *SessionRepo) ListSessions(userCode string, since int64) ([]models.Session, error) {
	query := `
		SELECT id, device_id, start_time, end_time, created_at, updated_at, deleted_at
		FROM sessions
		WHERE user_code = ? AND deleted_at IS NULL
		ORDER BY start_time ASC
	`
	args := []any{userCode}
	if since > 0 {
		query = `
			SELECT id, device_id, start_time, end_time, created_at, updated_at, deleted_at
			FROM sessions
			WHERE user_code = ? AND updated_at > ?
			ORDER BY start_time ASC
		`
		args = append(args, since)
	}
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		s, err := scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepo) GetSession(userCode, id string) (*models.Session, error) {
	row := r.db.QueryRow(`
		SELECT id, device_id, start_time, end_time, created_at, updated_at, deleted_at
		FROM sessions
		WHERE user_code = ? AND id = ?
	`, userCode, id)
	return scanSession(row)
}

func scanSession(row *sql.Row) (*models.Session, error) {
	var (
		s        models.Session
		end, del sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.DeviceID, &s.StartTime, &end, &s.CreatedAt, &s.UpdatedAt, &del); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	applyNullable(&s, end, del)
	return &s, nil
}

func scanSessionRows(rows *sql.Rows) (*models.Session, error) {
	var (
		s        models.Session
		end, del sql.NullInt64
	)
	if err := rows.Scan(&s.ID, &s.DeviceID, &s.StartTime, &end, &s.CreatedAt, &s.UpdatedAt, &del); err != nil {
		return nil, err
	}
	applyNullable(&s, end, del)
	return &s, nil
}

func applyNullable(s *models.Session, end, del sql.NullInt64) {
	if end.Valid {
		v := end.Int64
		s.EndTime = &v
	}
	if del.Valid {
		v := del.Int64
		s.DeletedAt = &v
	}
}
