package engine

import (
	"testing"
	"time"

	"github.com/openleague/draftroom/go/internal/models"
)

func overnightDraft(start, end, tz string) *models.Draft {
	return &models.Draft{
		ID:                     1,
		OvernightPauseEnabled:  true,
		OvernightPauseStart:    start,
		OvernightPauseEnd:      end,
		OvernightPauseTimezone: tz,
	}
}

func TestOvernightWindowSameDay(t *testing.T) {
	e := &Engine{defaultTZ: "UTC"}
	d := overnightDraft("00:30", "08:00", "UTC")

	tests := []struct {
		clock string
		want  bool
	}{
		{"00:29", false},
		{"00:30", true},
		{"04:00", true},
		{"07:59", true},
		{"08:00", false},
		{"23:00", false},
	}
	for _, tt := range tests {
		now, _ := time.Parse("2006-01-02 15:04", "2026-08-20 "+tt.clock)
		if got := e.inOvernightWindow(d, now); got != tt.want {
			t.Errorf("at %s: inOvernightWindow = %v, want %v", tt.clock, got, tt.want)
		}
	}
}

func TestOvernightWindowWrapsMidnight(t *testing.T) {
	e := &Engine{defaultTZ: "UTC"}
	d := overnightDraft("23:00", "07:00", "UTC")

	tests := []struct {
		clock string
		want  bool
	}{
		{"22:59", false},
		{"23:00", true},
		{"23:59", true},
		{"00:00", true},
		{"06:59", true},
		{"07:00", false},
		{"12:00", false},
	}
	for _, tt := range tests {
		now, _ := time.Parse("2006-01-02 15:04", "2026-08-20 "+tt.clock)
		if got := e.inOvernightWindow(d, now); got != tt.want {
			t.Errorf("at %s: inOvernightWindow = %v, want %v", tt.clock, got, tt.want)
		}
	}
}

func TestOvernightWindowUsesDraftZone(t *testing.T) {
	e := &Engine{defaultTZ: "UTC"}
	d := overnightDraft("01:00", "07:00", "America/New_York")

	// 05:30 UTC is 01:30 in New York during DST: inside the window.
	now := time.Date(2026, 8, 20, 5, 30, 0, 0, time.UTC)
	if !e.inOvernightWindow(d, now) {
		t.Error("expected 01:30 New York time to be inside the window")
	}

	// 05:30 UTC in winter is 00:30 in New York: outside.
	winter := time.Date(2026, 1, 20, 5, 30, 0, 0, time.UTC)
	if e.inOvernightWindow(d, winter) {
		t.Error("expected 00:30 New York time to be outside the window")
	}
}

func TestOvernightWindowFallsBackToDefaultZone(t *testing.T) {
	e := &Engine{defaultTZ: "America/Chicago"}
	d := overnightDraft("01:00", "06:00", "")

	// 07:00 UTC is 02:00 in Chicago during DST.
	now := time.Date(2026, 8, 20, 7, 0, 0, 0, time.UTC)
	if !e.inOvernightWindow(d, now) {
		t.Error("expected the service default zone to apply")
	}
}

func TestOvernightWindowDisabled(t *testing.T) {
	e := &Engine{defaultTZ: "UTC"}
	d := overnightDraft("00:00", "23:59", "UTC")
	d.OvernightPauseEnabled = false

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	if e.inOvernightWindow(d, now) {
		t.Error("disabled window must never pause ticks")
	}
}

func TestOvernightWindowBadConfigIgnored(t *testing.T) {
	e := &Engine{defaultTZ: "UTC"}
	d := overnightDraft("not-a-time", "07:00", "UTC")

	now := time.Date(2026, 8, 20, 3, 0, 0, 0, time.UTC)
	if e.inOvernightWindow(d, now) {
		t.Error("unparseable window must be ignored")
	}

	d = overnightDraft("23:00", "07:00", "Mars/Olympus")
	// Bad zone falls back to the default; 03:00 UTC is inside 23:00-07:00.
	if !e.inOvernightWindow(d, now) {
		t.Error("unknown zone should fall back to the default zone")
	}
}
