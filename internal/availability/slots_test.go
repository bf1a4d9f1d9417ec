package availability

import (
	"testing"
	"time"
)

func TestDayWindow(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	win, err := DayWindow(day, "09:00", "17:00")
	if err != nil {
		t.Fatalf("DayWindow failed: %v", err)
	}
	if !win.Start.Equal(day.Add(9 * time.Hour)) {
		t.Fatalf("expected window start 09:00, got %s", win.Start.Format(time.RFC3339))
	}
	if !win.End.Equal(day.Add(17 * time.Hour)) {
		t.Fatalf("expected window end 17:00, got %s", win.End.Format(time.RFC3339))
	}
}

func TestDayWindow_OvernightRollsToNextDay(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	win, err := DayWindow(day, "22:00", "02:00")
	if err != nil {
		t.Fatalf("DayWindow failed: %v", err)
	}
	if !win.End.Equal(day.Add(26 * time.Hour)) {
		t.Fatalf("expected window end 02:00 next day, got %s", win.End.Format(time.RFC3339))
	}
}

func TestDayWindow_RejectsBadClock(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if _, err := DayWindow(day, "9am", "17:00"); err == nil {
		t.Fatal("expected error for malformed opening time")
	}
}

func TestSlots_StepsByDuration(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	win := Interval{Start: day.Add(9 * time.Hour), End: day.Add(12 * time.Hour)}

	slots := Slots(win, time.Hour, nil, day)
	want := []time.Time{
		day.Add(9 * time.Hour),
		day.Add(10 * time.Hour),
		day.Add(11 * time.Hour),
	}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(slots))
	}
	for i := range want {
		if !slots[i].Equal(want[i]) {
			t.Fatalf("slot %d: expected %s, got %s", i, want[i].Format(time.RFC3339), slots[i].Format(time.RFC3339))
		}
	}
}

func TestSlots_SkipsBusyIntervals(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	win := Interval{Start: day.Add(9 * time.Hour), End: day.Add(12 * time.Hour)}
	busy := []Interval{
		{Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour)},
	}

	slots := Slots(win, time.Hour, busy, day)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9*time.Hour)) || !slots[1].Equal(day.Add(11*time.Hour)) {
		t.Fatalf("expected 09:00 and 11:00, got %s and %s",
			slots[0].Format(time.RFC3339), slots[1].Format(time.RFC3339))
	}
}

func TestSlots_BackToBackDoesNotConflict(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	win := Interval{Start: day.Add(9 * time.Hour), End: day.Add(11 * time.Hour)}

	// Busy interval ends exactly when the 10:00 candidate starts.
	busy := []Interval{
		{Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)},
	}
	slots := Slots(win, time.Hour, busy, day)
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(10 * time.Hour)) {
		t.Fatalf("expected 10:00, got %s", slots[0].Format(time.RFC3339))
	}
}

func TestSlots_SkipsPast(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	win := Interval{Start: day.Add(9 * time.Hour), End: day.Add(12 * time.Hour)}

	now := day.Add(10 * time.Hour)
	slots := Slots(win, time.Hour, nil, now)
	// 09:00 is past and 10:00 is not strictly in the future.
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(11 * time.Hour)) {
		t.Fatalf("expected 11:00, got %s", slots[0].Format(time.RFC3339))
	}
}

func TestSlots_Deterministic(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	win := Interval{Start: day.Add(9 * time.Hour), End: day.Add(17 * time.Hour)}
	busy := []Interval{
		{Start: day.Add(10 * time.Hour), End: day.Add(10*time.Hour + 30*time.Minute)},
	}

	first := Slots(win, 30*time.Minute, busy, day)
	second := Slots(win, 30*time.Minute, busy, day)
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Fatalf("slot %d differs: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestSlots_TooLongForWindow(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	win := Interval{Start: day.Add(9 * time.Hour), End: day.Add(9*time.Hour + 30*time.Minute)}

	if slots := Slots(win, time.Hour, nil, day); len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}
