package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rendevo/booking-api/internal/domain"
)

// DefaultGranularityMinutes applies when an exception opens a date that has
// no weekly entry to take the slot duration from.
const DefaultGranularityMinutes = 30

type ScheduleStore interface {
	GetActiveWeekly(ctx context.Context, businessID uuid.UUID, day time.Weekday) (*domain.WeeklySchedule, error)
	GetException(ctx context.Context, businessID uuid.UUID, date time.Time) (*domain.ScheduleException, error)
}

type HolidayStore interface {
	AnyCovering(ctx context.Context, businessID uuid.UUID, date time.Time) (bool, error)
}

// Resolver turns a business's weekly schedule, dated exceptions and holiday
// ranges into the raw open intervals for one date.
type Resolver struct {
	schedules ScheduleStore
	holidays  HolidayStore
}

func NewResolver(schedules ScheduleStore, holidays HolidayStore) *Resolver {
	return &Resolver{schedules: schedules, holidays: holidays}
}

// OpenIntervals returns the ordered disjoint open spans for the date, along
// with the slot granularity in minutes. An empty slice means the business is
// closed that day. The date must be a civil date at midnight in the business
// timezone.
//
// Precedence: a covering holiday forces the date closed regardless of any
// exception or weekly entry; otherwise an exception is authoritative for its
// date; otherwise the active weekly entry applies.
func (r *Resolver) OpenIntervals(ctx context.Context, businessID uuid.UUID, date time.Time) ([]domain.Interval, int, error) {
	onHoliday, err := r.holidays.AnyCovering(ctx, businessID, date)
	if err != nil {
		return nil, 0, fmt.Errorf("check holidays: %w", err)
	}
	if onHoliday {
		return nil, 0, nil
	}

	weekly, err := r.schedules.GetActiveWeekly(ctx, businessID, date.Weekday())
	if err != nil {
		return nil, 0, fmt.Errorf("load weekly schedule: %w", err)
	}

	granularity := DefaultGranularityMinutes
	if weekly != nil && weekly.SlotDurationMinutes > 0 {
		granularity = weekly.SlotDurationMinutes
	}

	exc, err := r.schedules.GetException(ctx, businessID, date)
	if err != nil {
		return nil, 0, fmt.Errorf("load schedule exception: %w", err)
	}
	if exc != nil {
		if exc.IsClosed {
			return nil, granularity, nil
		}
		return []domain.Interval{minutesInterval(date, exc.StartMinute, exc.EndMinute)}, granularity, nil
	}

	if weekly == nil {
		return nil, granularity, nil
	}
	return []domain.Interval{minutesInterval(date, weekly.StartMinute, weekly.EndMinute)}, granularity, nil
}

// minutesInterval anchors minutes-since-midnight on the wall clock of the
// date's location. Adding a duration to midnight would drift by an hour on
// DST transition days; 09:00 must mean 09:00 local even when the day is 23
// or 25 hours long.
func minutesInterval(date time.Time, startMin, endMin int) domain.Interval {
	y, m, d := date.Date()
	loc := date.Location()
	return domain.Interval{
		Start: time.Date(y, m, d, startMin/60, startMin%60, 0, 0, loc),
		End:   time.Date(y, m, d, endMin/60, endMin%60, 0, 0, loc),
	}
}
