package schedule

import (
	"testing"
	"time"

	"github.com/rendevo/booking-api/internal/domain"
)

var monday = time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC) // a Monday

func at(hour, min int) time.Time {
	return monday.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

func TestSlots_MorningScheduleAllFree(t *testing.T) {
	// Monday 09:00-12:00, 30 minute granularity, 30 minute service.
	intervals := []domain.Interval{{Start: at(9, 0), End: at(12, 0)}}
	slots := Slots(intervals, 30*time.Minute, 30*time.Minute, nil, at(8, 0))

	if len(slots) != 6 {
		t.Fatalf("expected 6 slots, got %d", len(slots))
	}

	wantStarts := []time.Time{at(9, 0), at(9, 30), at(10, 0), at(10, 30), at(11, 0), at(11, 30)}
	for i, s := range slots {
		if !s.Start.Equal(wantStarts[i]) {
			t.Fatalf("slot %d starts at %v, want %v", i, s.Start, wantStarts[i])
		}
		if !s.Available {
			t.Fatalf("slot %d at %v should be available", i, s.Start)
		}
	}
}

func TestSlots_ExistingAppointmentBlocksSlot(t *testing.T) {
	intervals := []domain.Interval{{Start: at(9, 0), End: at(12, 0)}}
	busy := []domain.Interval{{Start: at(10, 0), End: at(10, 30)}}

	slots := Slots(intervals, 30*time.Minute, 30*time.Minute, busy, at(8, 0))

	if len(slots) != 6 {
		t.Fatalf("expected 6 slots, got %d", len(slots))
	}
	for _, s := range slots {
		wantAvailable := !s.Start.Equal(at(10, 0))
		if s.Available != wantAvailable {
			t.Fatalf("slot at %v: available=%v, want %v", s.Start, s.Available, wantAvailable)
		}
	}
}

func TestSlots_NeverOverlapAndStayInsideIntervals(t *testing.T) {
	intervals := []domain.Interval{
		{Start: at(9, 0), End: at(11, 50)},
		{Start: at(14, 0), End: at(17, 15)},
	}
	slots := Slots(intervals, 45*time.Minute, 45*time.Minute, nil, at(8, 0))

	for i := 1; i < len(slots); i++ {
		if slots[i].Start.Before(slots[i-1].End) && slots[i-1].Start.Before(slots[i].End) {
			t.Fatalf("slots %d and %d overlap", i-1, i)
		}
	}

	for _, s := range slots {
		inside := false
		for _, iv := range intervals {
			if !s.Start.Before(iv.Start) && !s.End.After(iv.End) {
				inside = true
				break
			}
		}
		if !inside {
			t.Fatalf("slot %v-%v lies outside every open interval", s.Start, s.End)
		}
	}
}

func TestSlots_TrailingRemainderDropped(t *testing.T) {
	// 09:00-10:50 with 30m granularity leaves a 20m remainder after 3 slots.
	intervals := []domain.Interval{{Start: at(9, 0), End: at(10, 50)}}
	slots := Slots(intervals, 30*time.Minute, 30*time.Minute, nil, at(8, 0))

	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	if !slots[2].End.Equal(at(10, 30)) {
		t.Fatalf("last slot ends at %v, want %v", slots[2].End, at(10, 30))
	}
}

func TestSlots_ServiceLongerThanGranularity(t *testing.T) {
	// 60 minute service on a 30 minute grid: the 11:30 unit cannot fit the
	// service before noon, and a booking at 10:00-11:00 blocks every unit the
	// service span would touch.
	intervals := []domain.Interval{{Start: at(9, 0), End: at(12, 0)}}
	busy := []domain.Interval{{Start: at(10, 0), End: at(11, 0)}}

	slots := Slots(intervals, 30*time.Minute, 60*time.Minute, busy, at(8, 0))

	if len(slots) != 6 {
		t.Fatalf("expected 6 slots, got %d", len(slots))
	}

	wantAvailable := map[string]bool{
		"09:00": true,  // 09:00-10:00 clears the booking
		"09:30": false, // 09:30-10:30 overlaps it
		"10:00": false,
		"10:30": false, // 10:30-11:30 overlaps it
		"11:00": true,  // 11:00-12:00 fits exactly
		"11:30": false, // service would run past close
	}
	for _, s := range slots {
		key := s.Start.Format("15:04")
		if s.Available != wantAvailable[key] {
			t.Fatalf("slot %s: available=%v, want %v", key, s.Available, wantAvailable[key])
		}
	}
}

func TestSlots_PastSlotsUnavailable(t *testing.T) {
	intervals := []domain.Interval{{Start: at(9, 0), End: at(12, 0)}}
	slots := Slots(intervals, 30*time.Minute, 30*time.Minute, nil, at(10, 15))

	for _, s := range slots {
		wantAvailable := !s.Start.Before(at(10, 15))
		if s.Available != wantAvailable {
			t.Fatalf("slot at %v: available=%v, want %v", s.Start, s.Available, wantAvailable)
		}
	}
}

func TestSlots_DegenerateInput(t *testing.T) {
	intervals := []domain.Interval{{Start: at(9, 0), End: at(12, 0)}}

	if got := Slots(intervals, 0, 30*time.Minute, nil, at(8, 0)); got != nil {
		t.Fatalf("expected nil for zero granularity, got %v", got)
	}
	if got := Slots(nil, 30*time.Minute, 30*time.Minute, nil, at(8, 0)); got != nil {
		t.Fatalf("expected nil for no intervals, got %v", got)
	}
}
