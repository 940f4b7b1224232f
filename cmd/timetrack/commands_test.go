package main

import (
	"path/filepath"
	"testing"

	"github.com/strainix/timetrack/internal/localdb"
)

func TestStartRecordsDeviceIDLocally(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("TIMETRACK_CONFIG", filepath.Join(dataDir, "missing.yaml"))
	t.Setenv("TIMETRACK_DATA_DIR", dataDir)
	t.Setenv("TIMETRACK_API_URL", "http://127.0.0.1:1")

	if err := startCmd().Execute(); err != nil {
		t.Fatalf("start: %v", err)
	}

	db, err := localdb.Open(filepath.Join(dataDir, "timetrack.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	deviceID, err := db.DeviceID()
	if err != nil {
		t.Fatal(err)
	}
	sessions, err := db.LoadSessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].DeviceID == "" || sessions[0].DeviceID != deviceID {
		t.Fatalf("local session attributed to %q, want this device's id %q", sessions[0].DeviceID, deviceID)
	}
}
