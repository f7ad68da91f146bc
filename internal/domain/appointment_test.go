package domain

import (
	"testing"
	"time"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from AppointmentStatus
		to   AppointmentStatus
		want bool
	}{
		{"pending to confirmed", AppointmentPending, AppointmentConfirmed, true},
		{"pending to cancelled", AppointmentPending, AppointmentCancelled, true},
		{"pending to completed", AppointmentPending, AppointmentCompleted, true},
		{"pending to no_show", AppointmentPending, AppointmentNoShow, false},
		{"confirmed to cancelled", AppointmentConfirmed, AppointmentCancelled, true},
		{"confirmed to completed", AppointmentConfirmed, AppointmentCompleted, true},
		{"confirmed to no_show", AppointmentConfirmed, AppointmentNoShow, true},
		{"confirmed to pending", AppointmentConfirmed, AppointmentPending, false},
		{"cancelled to confirmed", AppointmentCancelled, AppointmentConfirmed, false},
		{"cancelled to cancelled", AppointmentCancelled, AppointmentCancelled, false},
		{"completed to cancelled", AppointmentCompleted, AppointmentCancelled, false},
		{"no_show to confirmed", AppointmentNoShow, AppointmentConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Fatalf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTerminalStates(t *testing.T) {
	terminal := []AppointmentStatus{AppointmentCancelled, AppointmentCompleted, AppointmentNoShow}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
		for _, to := range []AppointmentStatus{AppointmentPending, AppointmentConfirmed, AppointmentCancelled, AppointmentCompleted, AppointmentNoShow} {
			if s.CanTransitionTo(to) {
				t.Fatalf("terminal state %s must not transition to %s", s, to)
			}
		}
	}

	for _, s := range []AppointmentStatus{AppointmentPending, AppointmentConfirmed} {
		if s.Terminal() {
			t.Fatalf("expected %s to be non-terminal", s)
		}
	}
}

func TestLifecycleGuards(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	future := &Appointment{
		Status:          AppointmentPending,
		StartAt:         now.Add(2 * time.Hour),
		DurationMinutes: 30,
	}
	if !future.CanConfirm(now) {
		t.Fatal("expected pending future appointment to be confirmable")
	}
	if future.CanComplete(now) {
		t.Fatal("future appointment must not be completable")
	}

	past := &Appointment{
		Status:          AppointmentConfirmed,
		StartAt:         now.Add(-2 * time.Hour),
		DurationMinutes: 30,
	}
	if !past.CanComplete(now) {
		t.Fatal("expected confirmed past appointment to be completable")
	}
	if !past.CanMarkNoShow(now) {
		t.Fatal("expected confirmed past appointment to allow no-show")
	}
	if past.CanConfirm(now) {
		t.Fatal("confirmed appointment must not confirm again")
	}

	cancelled := &Appointment{Status: AppointmentCancelled}
	if cancelled.CanCancel() {
		t.Fatal("cancelled appointment must not cancel again")
	}
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
	mins := func(m int) time.Time { return base.Add(time.Duration(m) * time.Minute) }

	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd int
		want                       bool
	}{
		{"identical", 0, 30, 0, 30, true},
		{"partial overlap", 0, 30, 15, 45, true},
		{"contained", 0, 60, 15, 30, true},
		{"touching end to start", 0, 30, 30, 60, false},
		{"touching start to end", 30, 60, 0, 30, false},
		{"disjoint", 0, 30, 60, 90, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlaps(mins(tt.aStart), mins(tt.aEnd), mins(tt.bStart), mins(tt.bEnd))
			if got != tt.want {
				t.Fatalf("Overlaps = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenValid(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	a := &Appointment{CancellationToken: "tok", TokenExpiresAt: now.Add(time.Hour)}
	if !a.TokenValid(now) {
		t.Fatal("expected unexpired token to be valid")
	}

	a.TokenExpiresAt = now.Add(-time.Second)
	if a.TokenValid(now) {
		t.Fatal("expected expired token to be invalid")
	}

	b := &Appointment{TokenExpiresAt: now.Add(time.Hour)}
	if b.TokenValid(now) {
		t.Fatal("expected empty token to be invalid")
	}
}
