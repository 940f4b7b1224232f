// Package store holds the locally known session set. It is the source of
// truth while offline; the sync engine reconciles it against the remote
// store through the merge rule in Merge.
package store

import (
	"sort"
	"sync"

	"github.com/strainix/timetrack/internal/localdb"
	"github.com/strainix/timetrack/internal/models"
)

type Store struct {
	mu       sync.Mutex
	db       *localdb.DB
	sessions map[string]models.Session
}

// New loads the persisted session set from the local database.
func New(db *localdb.DB) (*Store, error) {
	loaded, err := db.LoadSessions()
	if err != nil {
		return nil, err
	}
	sessions := make(map[string]models.Session, len(loaded))
	for _, s := range loaded {
		sessions[s.ID] = s
	}
	return &Store{db: db, sessions: sessions}, nil
}

// List returns active sessions (tombstones hidden) ordered by start time.
func (st *Store) List() []models.Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]models.Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		if s.DeletedAt == nil {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}

// Get returns a session by id, tombstoned or not.
func (st *Store) Get(id string) (models.Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Upsert writes a session and persists it synchronously.
func (st *Store) Upsert(s models.Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = s
	return st.db.PutSession(s)
}

// Remove drops a session from the local set entirely. Soft deletion for sync
// purposes goes through Upsert with DeletedAt set; Remove is for purging.
func (st *Store) Remove(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
	return st.db.DeleteSession(id)
}

// FindActive returns the open session, or nil when none. If several are open
// (possible after racing offline edits, before the server reconciles), the
// most recently started one is reported.
func (st *Store) FindActive() *models.Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	var active *models.Session
	for id := range st.sessions {
		s := st.sessions[id]
		if !s.Open() {
			continue
		}
		if active == nil || s.StartTime > active.StartTime {
			active = &s
		}
	}
	return active
}

// Merge applies a set of remote sessions under strict last-write-wins:
// unknown ids are inserted, known ids are replaced only when the incoming
// updatedAt is strictly greater. Ties keep the local copy, which may hold a
// mid-edit change the server has not seen yet. Tombstones are stored rather
// than discarded so the deletion keeps winning future merges. Returns the
// number of sessions applied.
func (st *Store) Merge(incoming []models.Session) (int, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	applied := 0
	for _, in := range incoming {
		local, ok := st.sessions[in.ID]
		if ok && in.UpdatedAt <= local.UpdatedAt {
			continue
		}
		st.sessions[in.ID] = in
		if err := st.db.PutSession(in); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}
