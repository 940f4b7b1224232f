package models

import (
	"fmt"
	"time"
)

// Session is a single check-in/check-out interval. All timestamps are epoch
// milliseconds; EndTime is nil while the session is open and DeletedAt marks
// a soft-deleted record that still travels through sync so deletions
// propagate across devices.
type Session struct {
	ID        string `json:"id"`
	DeviceID  string `json:"deviceId"`
	StartTime int64  `json:"startTime"`
	EndTime   *int64 `json:"endTime"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
	DeletedAt *int64 `json:"deletedAt,omitempty"`
}

// Open reports whether the session is active: not ended and not tombstoned.
func (s Session) Open() bool {
	return s.EndTime == nil && s.DeletedAt == nil
}

// Duration returns the elapsed interval, using now for open sessions.
func (s Session) Duration(now int64) time.Duration {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	if end < s.StartTime {
		return 0
	}
	return time.Duration(end-s.StartTime) * time.Millisecond
}

// NowMillis returns the current wall clock as epoch milliseconds, the unit
// used everywhere on the wire and in storage.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// FormatDuration renders a duration as "3h 27m" for session listings.
func FormatDuration(d time.Duration) string {
	minutes := int64(d / time.Minute)
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// FormatElapsed renders a running timer as "HH:MM:SS".
func FormatElapsed(d time.Duration) string {
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
