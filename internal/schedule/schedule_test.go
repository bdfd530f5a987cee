package schedule

import (
	"testing"
	"time"
)

func mustLoadLoc(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestIsDatePast(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 3, 10, 11, 0, 0, 0, loc)

	past, err := IsDatePast("2026-03-09", loc, now)
	if err != nil {
		t.Fatalf("IsDatePast error: %v", err)
	}
	if !past {
		t.Fatalf("expected yesterday to be past")
	}

	past, err = IsDatePast("2026-03-10", loc, now)
	if err != nil {
		t.Fatalf("IsDatePast error: %v", err)
	}
	if past {
		t.Fatalf("expected today to be not past")
	}

	if _, err := IsDatePast("10-03-2026", loc, now); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseClockToMinutes(t *testing.T) {
	minutes, err := ParseClockToMinutes("14:30")
	if err != nil {
		t.Fatalf("ParseClockToMinutes error: %v", err)
	}
	if minutes != 870 {
		t.Fatalf("expected 870, got %d", minutes)
	}

	if _, err := ParseClockToMinutes("25:00"); err == nil {
		t.Fatalf("expected error for invalid clock")
	}
}

func TestIsSlotPast(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 3, 10, 11, 0, 0, 0, loc)

	past, err := IsSlotPast("2026-03-10", "09:00", loc, now)
	if err != nil {
		t.Fatalf("IsSlotPast error: %v", err)
	}
	if !past {
		t.Fatalf("expected morning slot to be past")
	}

	past, err = IsSlotPast("2026-03-10", "15:00", loc, now)
	if err != nil {
		t.Fatalf("IsSlotPast error: %v", err)
	}
	if past {
		t.Fatalf("expected afternoon slot to be future")
	}
}
