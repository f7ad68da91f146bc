package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinSlotMinutes = 5
	MaxSlotMinutes = 240
)

// WeeklySchedule is one recurring open block for a weekday. At most one
// active entry exists per (business, weekday). Start/end are minutes since
// midnight in the business timezone.
type WeeklySchedule struct {
	ID                  uuid.UUID    `json:"id"`
	BusinessID          uuid.UUID    `json:"business_id"`
	DayOfWeek           time.Weekday `json:"day_of_week"`
	StartMinute         int          `json:"start_minute"`
	EndMinute           int          `json:"end_minute"`
	SlotDurationMinutes int          `json:"slot_duration_minutes"`
	IsActive            bool         `json:"is_active"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

func (s *WeeklySchedule) Validate() error {
	if s.StartMinute < 0 || s.StartMinute >= 24*60 {
		return Invalid("start_minute", "must be within the day")
	}
	if s.EndMinute <= s.StartMinute || s.EndMinute > 24*60 {
		return Invalid("end_minute", "must be after start and within the day")
	}
	if s.SlotDurationMinutes < MinSlotMinutes || s.SlotDurationMinutes > MaxSlotMinutes {
		return Invalid("slot_duration_minutes", "must be between 5 and 240")
	}
	return nil
}

// ScheduleException overrides the weekly entry for one specific date.
// Closed means the whole date is unavailable; otherwise the override
// start/end replace the weekly hours.
type ScheduleException struct {
	ID          uuid.UUID `json:"id"`
	BusinessID  uuid.UUID `json:"business_id"`
	Date        time.Time `json:"date"` // civil date at midnight, business timezone
	IsClosed    bool      `json:"is_closed"`
	StartMinute int       `json:"start_minute,omitempty"`
	EndMinute   int       `json:"end_minute,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (e *ScheduleException) Validate() error {
	if e.IsClosed {
		return nil
	}
	if e.StartMinute < 0 || e.StartMinute >= 24*60 {
		return Invalid("start_minute", "must be within the day")
	}
	if e.EndMinute <= e.StartMinute || e.EndMinute > 24*60 {
		return Invalid("end_minute", "must be after start and within the day")
	}
	return nil
}

// HolidayRange closes a business for every date in [StartDate, EndDate],
// inclusive on both ends. Ranges may overlap each other.
type HolidayRange struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (h *HolidayRange) Validate() error {
	if h.EndDate.Before(h.StartDate) {
		return Invalid("end_date", "must not be before start_date")
	}
	return nil
}

// Covers reports whether the civil date falls inside the range.
func (h *HolidayRange) Covers(date time.Time) bool {
	d := DateOf(date)
	return !d.Before(DateOf(h.StartDate)) && !d.After(DateOf(h.EndDate))
}

// DateOf truncates a time to its civil date, keeping the location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Interval is one contiguous open span within a single date.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TimeSlot is one bookable candidate window derived from business hours.
type TimeSlot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}
