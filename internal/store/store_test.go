package store

import (
	"testing"

	"github.com/strainix/timetrack/internal/localdb"
	"github.com/strainix/timetrack/internal/models"
)

func setupStore(t *testing.T) (*Store, *localdb.DB) {
	t.Helper()
	db, err := localdb.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	st, err := New(db)
	if err != nil {
		t.Fatal(err)
	}
	return st, db
}

func int64p(v int64) *int64 { return &v }

func TestMergeLastWriteWins(t *testing.T) {
	st, _ := setupStore(t)

	local := models.Session{ID: "a", StartTime: 0, UpdatedAt: 100}
	if err := st.Upsert(local); err != nil {
		t.Fatal(err)
	}

	// Older incoming copy loses.
	applied, err := st.Merge([]models.Session{{ID: "a", StartTime: 99, UpdatedAt: 50}})
	if err != nil {
		t.Fatal(err)
	}
	if applied != 0 {
		t.Fatalf("stale incoming must not apply, applied=%d", applied)
	}
	if got, _ := st.Get("a"); got.StartTime != 0 {
		t.Fatalf("local copy was clobbered: %+v", got)
	}

	// Equal updatedAt ties keep the local copy.
	if applied, _ = st.Merge([]models.Session{{ID: "a", StartTime: 99, UpdatedAt: 100}}); applied != 0 {
		t.Fatalf("tie must keep local, applied=%d", applied)
	}

	// Newer incoming copy replaces.
	applied, err = st.Merge([]models.Session{{ID: "a", StartTime: 7, EndTime: int64p(500), UpdatedAt: 150}})
	if err != nil {
		t.Fatal(err)
	}
	if applied != 1 {
		t.Fatalf("newer incoming must apply, applied=%d", applied)
	}
	got, _ := st.Get("a")
	if got.StartTime != 7 || got.EndTime == nil || *got.EndTime != 500 {
		t.Fatalf("merge did not replace: %+v", got)
	}

	// Unknown ids insert.
	if applied, _ = st.Merge([]models.Session{{ID: "b", UpdatedAt: 1}}); applied != 1 {
		t.Fatalf("unknown id must insert, applied=%d", applied)
	}
}

func TestMergeAppliesCrossDeviceEdit(t *testing.T) {
	st, _ := setupStore(t)

	// Device 1 created the session at t=0; device 2 later set endTime=500.
	if err := st.Upsert(models.Session{ID: "s", StartTime: 0, CreatedAt: 0, UpdatedAt: 0}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Merge([]models.Session{{ID: "s", StartTime: 0, EndTime: int64p(500), CreatedAt: 0, UpdatedAt: 600}}); err != nil {
		t.Fatal(err)
	}
	got, _ := st.Get("s")
	if got.EndTime == nil || *got.EndTime != 500 {
		t.Fatalf("device 2's edit was not merged: %+v", got)
	}
}

func TestMergeStoresTombstones(t *testing.T) {
	st, _ := setupStore(t)

	if err := st.Upsert(models.Session{ID: "x", UpdatedAt: 10}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Merge([]models.Session{{ID: "x", UpdatedAt: 20, DeletedAt: int64p(20)}}); err != nil {
		t.Fatal(err)
	}
	if len(st.List()) != 0 {
		t.Fatal("tombstoned session must be hidden from List")
	}
	got, ok := st.Get("x")
	if !ok || got.DeletedAt == nil {
		t.Fatalf("tombstone must be kept for future merges: %+v", got)
	}
}

func TestFindActivePicksMostRecentStart(t *testing.T) {
	st, _ := setupStore(t)

	if st.FindActive() != nil {
		t.Fatal("empty store must have no active session")
	}
	_ = st.Upsert(models.Session{ID: "old", StartTime: 100})
	_ = st.Upsert(models.Session{ID: "new", StartTime: 200})
	_ = st.Upsert(models.Session{ID: "ended", StartTime: 300, EndTime: int64p(400)})
	_ = st.Upsert(models.Session{ID: "gone", StartTime: 500, DeletedAt: int64p(600)})

	active := st.FindActive()
	if active == nil || active.ID != "new" {
		t.Fatalf("expected most recently started open session, got %+v", active)
	}
}

func TestStoreSurvivesReload(t *testing.T) {
	st, db := setupStore(t)

	_ = st.Upsert(models.Session{ID: "p", StartTime: 1, UpdatedAt: 1})
	_ = st.Upsert(models.Session{ID: "q", StartTime: 2, UpdatedAt: 2, DeletedAt: int64p(3)})

	reloaded, err := New(db)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.List()) != 1 {
		t.Fatalf("expected 1 active session after reload, got %d", len(reloaded.List()))
	}
	if _, ok := reloaded.Get("q"); !ok {
		t.Fatal("tombstone lost across reload")
	}
}
