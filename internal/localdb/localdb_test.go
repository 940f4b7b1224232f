package localdb

import (
	"testing"

	"github.com/strainix/timetrack/internal/models"
)

func setupDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDeviceIDIsStable(t *testing.T) {
	db := setupDB(t)
	first, err := db.DeviceID()
	if err != nil {
		t.Fatal(err)
	}
	if first == "" {
		t.Fatal("device id must be minted on first use")
	}
	second, err := db.DeviceID()
	if err != nil {
		t.Fatal(err)
	}
	if second != first {
		t.Fatalf("device id changed: %s vs %s", first, second)
	}
}

func TestLastSyncPerCode(t *testing.T) {
	db := setupDB(t)

	ts, err := db.LastSync("red-cat-1")
	if err != nil {
		t.Fatal(err)
	}
	if ts != 0 {
		t.Fatalf("unknown code must start at watermark 0, got %d", ts)
	}
	if err := db.SetLastSync("red-cat-1", 12345); err != nil {
		t.Fatal(err)
	}
	if ts, _ = db.LastSync("red-cat-1"); ts != 12345 {
		t.Fatalf("expected 12345, got %d", ts)
	}
	if ts, _ = db.LastSync("blue-dog-2"); ts != 0 {
		t.Fatal("watermarks must be scoped per code")
	}
}

func TestOperationsRoundTrip(t *testing.T) {
	db := setupDB(t)
	start := int64(1000)

	op := models.Operation{
		ID:        "op-1",
		Type:      models.OpStartSession,
		SessionID: "sess-1",
		Data:      models.OpData{StartTime: &start},
		Timestamp: 42,
	}
	if err := db.PutOperation(op); err != nil {
		t.Fatal(err)
	}

	ops, err := db.LoadOperations()
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 {
		t.Fatalf("expected 1 operation, got %d", len(ops))
	}
	got := ops[0]
	if got.ID != "op-1" || got.Type != models.OpStartSession || got.SessionID != "sess-1" {
		t.Fatalf("operation mangled: %+v", got)
	}
	if got.Data.StartTime == nil || *got.Data.StartTime != 1000 {
		t.Fatalf("payload mangled: %+v", got.Data)
	}

	got.Retries = 3
	if err := db.PutOperation(got); err != nil {
		t.Fatal(err)
	}
	ops, _ = db.LoadOperations()
	if ops[0].Retries != 3 {
		t.Fatalf("retry bump not persisted: %+v", ops[0])
	}

	if err := db.DeleteOperation("op-1"); err != nil {
		t.Fatal(err)
	}
	if ops, _ = db.LoadOperations(); len(ops) != 0 {
		t.Fatalf("expected empty queue, got %d", len(ops))
	}
}
