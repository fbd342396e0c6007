package model

import (
	"testing"
	"time"
)

func TestConnection_IdleBefore(t *testing.T) {
	cutoff := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		lastActivity time.Time
		want         bool
	}{
		{"one hour before cutoff", cutoff.Add(-time.Hour), true},
		{"one microsecond before cutoff", cutoff.Add(-time.Microsecond), true},
		{"exactly at cutoff", cutoff, false},
		{"one microsecond after cutoff", cutoff.Add(time.Microsecond), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Connection{
				ID:           "conn-1",
				UserID:       "user-1",
				LastActivity: tt.lastActivity,
			}
			if got := c.IdleBefore(cutoff); got != tt.want {
				t.Errorf("IdleBefore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConnStatus_Values(t *testing.T) {
	if StatusActive != "active" {
		t.Errorf("StatusActive = %q, want %q", StatusActive, "active")
	}
	if StatusStale != "stale" {
		t.Errorf("StatusStale = %q, want %q", StatusStale, "stale")
	}
	if StatusClosed != "closed" {
		t.Errorf("StatusClosed = %q, want %q", StatusClosed, "closed")
	}
}
