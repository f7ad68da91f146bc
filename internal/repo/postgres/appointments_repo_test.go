package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// Two bookings can only race on a free window if their transactions never
// contend on a shared lock. The day buckets are what guarantees contention:
// overlapping windows of one business must always share at least one key.
func TestDayLockKeys_OverlappingWindowsShareAKey(t *testing.T) {
	businessID := uuid.New()
	day := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

	a := dayLockKeys(businessID, day.Add(10*time.Hour), day.Add(10*time.Hour+30*time.Minute))
	b := dayLockKeys(businessID, day.Add(10*time.Hour), day.Add(10*time.Hour+30*time.Minute))

	if len(a) != 1 || len(b) != 1 || a[0] != b[0] {
		t.Fatalf("same window produced different keys: %v vs %v", a, b)
	}
}

func TestDayLockKeys_MidnightSpanCoversBothDays(t *testing.T) {
	businessID := uuid.New()
	start := time.Date(2026, 9, 14, 23, 30, 0, 0, time.UTC)

	keys := dayLockKeys(businessID, start, start.Add(time.Hour))
	if len(keys) != 2 {
		t.Fatalf("keys = %v, want one per touched day", keys)
	}
	if keys[0] != businessID.String()+":2026-09-14" || keys[1] != businessID.String()+":2026-09-15" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestDayLockKeys_EndOnMidnightStaysInOneDay(t *testing.T) {
	businessID := uuid.New()
	start := time.Date(2026, 9, 14, 23, 0, 0, 0, time.UTC)

	// [23:00, 24:00) only touches the 14th; the end instant is exclusive.
	keys := dayLockKeys(businessID, start, start.Add(time.Hour))
	if len(keys) != 1 || keys[0] != businessID.String()+":2026-09-14" {
		t.Fatalf("keys = %v, want just the starting day", keys)
	}
}

func TestDayLockKeys_IndependentBookingsNeverContend(t *testing.T) {
	day := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

	sameBusiness := uuid.New()
	otherBusiness := dayLockKeys(uuid.New(), day.Add(10*time.Hour), day.Add(10*time.Hour+30*time.Minute))
	otherDay := dayLockKeys(sameBusiness, day.AddDate(0, 0, 1).Add(10*time.Hour), day.AddDate(0, 0, 1).Add(10*time.Hour+30*time.Minute))
	base := dayLockKeys(sameBusiness, day.Add(10*time.Hour), day.Add(10*time.Hour+30*time.Minute))

	for _, keys := range [][]string{otherBusiness, otherDay} {
		for _, k := range keys {
			for _, bk := range base {
				if k == bk {
					t.Fatalf("key %q shared across independent bookings", k)
				}
			}
		}
	}
}
