package models

import (
	"testing"
	"time"
)

func TestSessionOpen(t *testing.T) {
	end := int64(2000)
	del := int64(3000)
	cases := []struct {
		name string
		s    Session
		want bool
	}{
		{"running", Session{StartTime: 1000}, true},
		{"ended", Session{StartTime: 1000, EndTime: &end}, false},
		{"tombstoned", Session{StartTime: 1000, DeletedAt: &del}, false},
	}
	for _, tc := range cases {
		if got := tc.s.Open(); got != tc.want {
			t.Errorf("%s: Open() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSessionDuration(t *testing.T) {
	end := int64(61_000)
	s := Session{StartTime: 1000, EndTime: &end}
	if got := s.Duration(999_999); got != time.Minute {
		t.Errorf("closed duration = %v, want 1m", got)
	}

	open := Session{StartTime: 1000}
	if got := open.Duration(31_000); got != 30*time.Second {
		t.Errorf("open duration = %v, want 30s", got)
	}
	// A clock that ran backwards never yields a negative interval.
	if got := open.Duration(0); got != 0 {
		t.Errorf("backwards clock duration = %v, want 0", got)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0h 0m"},
		{59 * time.Second, "0h 0m"},
		{3*time.Hour + 27*time.Minute, "3h 27m"},
		{25 * time.Hour, "25h 0m"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.d); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	if got := FormatElapsed(1*time.Hour + 2*time.Minute + 3*time.Second); got != "01:02:03" {
		t.Errorf("FormatElapsed = %q, want 01:02:03", got)
	}
	if got := FormatElapsed(0); got != "00:00:00" {
		t.Errorf("FormatElapsed(0) = %q", got)
	}
}

func TestOperationValidate(t *testing.T) {
	start := int64(1000)
	ok := Operation{ID: "op1", Type: OpStartSession, SessionID: "s1", Data: OpData{StartTime: &start}, Timestamp: 1000}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid operation rejected: %v", err)
	}
	bad := ok
	bad.Type = "rename_session"
	if err := bad.Validate(); err == nil {
		t.Error("unknown operation type accepted")
	}
	noSession := ok
	noSession.SessionID = ""
	if err := noSession.Validate(); err == nil {
		t.Error("operation without session id accepted")
	}
}
