package schedule

import (
	"time"

	"github.com/rendevo/booking-api/internal/domain"
)

// Slots cuts the open intervals into consecutive candidate slots of exactly
// one granularity unit each, dropping any trailing remainder shorter than a
// unit. Slot spans never overlap; availability is judged against the service
// span [slot start, slot start + serviceDuration), so a service longer than
// one unit marks a slot unavailable when the service would not fit before the
// interval closes or would overlap an active appointment.
//
// busy must hold the windows of this business's pending and confirmed
// appointments for the date. now is sampled once by the caller; slots that
// already started are unavailable.
func Slots(intervals []domain.Interval, granularity, serviceDuration time.Duration, busy []domain.Interval, now time.Time) []domain.TimeSlot {
	if granularity <= 0 || serviceDuration <= 0 {
		return nil
	}

	var slots []domain.TimeSlot
	for _, iv := range intervals {
		for start := iv.Start; !start.Add(granularity).After(iv.End); start = start.Add(granularity) {
			serviceEnd := start.Add(serviceDuration)
			available := !start.Before(now) &&
				!serviceEnd.After(iv.End) &&
				!overlapsAny(start, serviceEnd, busy)

			slots = append(slots, domain.TimeSlot{
				Start:     start,
				End:       start.Add(granularity),
				Available: available,
			})
		}
	}
	return slots
}

func overlapsAny(start, end time.Time, busy []domain.Interval) bool {
	for _, b := range busy {
		if domain.Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}
