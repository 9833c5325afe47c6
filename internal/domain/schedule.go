package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// WorkingWindow is one recurring weekly interval during which a practitioner
// accepts bookings. Times are minutes since midnight on the given weekday,
// anchored to UTC.
type WorkingWindow struct {
	bun.BaseModel `bun:"table:working_windows"`

	ID                  uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	PractitionerID      uuid.UUID `bun:"practitioner_id,notnull,type:uuid" json:"practitioner_id"`
	DayOfWeek           int       `bun:"day_of_week,notnull" json:"day_of_week"`
	StartMinute         int       `bun:"start_minute,notnull" json:"start_minute"`
	EndMinute           int       `bun:"end_minute,notnull" json:"end_minute"`
	SlotDurationMinutes int       `bun:"slot_duration_minutes,notnull" json:"slot_duration_minutes"`
	CreatedAt           time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt           time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

func (w *WorkingWindow) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if w.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			w.ID = id
		}
		if w.CreatedAt.IsZero() {
			w.CreatedAt = now
		}
		if w.UpdatedAt.IsZero() {
			w.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		w.UpdatedAt = now
	}
	return nil
}

func (w WorkingWindow) Validate() error {
	if w.PractitionerID == uuid.Nil {
		return errors.New("practitioner_id is required")
	}
	if w.DayOfWeek < 1 || w.DayOfWeek > 7 {
		return errors.New("day_of_week must be between 1 (Monday) and 7 (Sunday)")
	}
	if w.StartMinute < 0 || w.EndMinute > 24*60 {
		return errors.New("window must lie within a single day")
	}
	if w.StartMinute >= w.EndMinute {
		return errors.New("start_time must be before end_time")
	}
	if w.SlotDurationMinutes <= 0 {
		return errors.New("slot_duration must be positive")
	}
	return nil
}

// Slot is an ephemeral bookable interval, derived per query and never persisted.
type Slot struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

// ISOWeekday maps a time to 1=Monday..7=Sunday, independent of locale.
func ISOWeekday(t time.Time) int {
	wd := t.UTC().Weekday()
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

// DayStartUTC truncates t to UTC midnight of its calendar date.
func DayStartUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ExpandWindowSlots walks a working window on the given date in steps of the
// slot duration. A trailing remainder shorter than the duration is dropped,
// never rounded.
func ExpandWindowSlots(w WorkingWindow, date time.Time) []Slot {
	day := DayStartUTC(date)
	step := time.Duration(w.SlotDurationMinutes) * time.Minute
	windowEnd := day.Add(time.Duration(w.EndMinute) * time.Minute)

	var out []Slot
	for t := day.Add(time.Duration(w.StartMinute) * time.Minute); !t.Add(step).After(windowEnd); t = t.Add(step) {
		out = append(out, Slot{Start: t, End: t.Add(step)})
	}
	return out
}

// Overlaps reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect. Shared endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// AvailableSlots derives the bookable slots for one practitioner-day: every
// window for the date's weekday is expanded and any slot overlapping a
// non-cancelled appointment is removed. Output is ordered ascending by start
// time and is a pure function of its inputs.
func AvailableSlots(windows []WorkingWindow, appts []Appointment, date time.Time) []Slot {
	weekday := ISOWeekday(date)

	booked := make([]Slot, 0, len(appts))
	for _, a := range appts {
		if a.Status == AppointmentCancelled {
			continue
		}
		booked = append(booked, Slot{Start: a.StartTime.UTC(), End: a.EndTime.UTC()})
	}

	out := make([]Slot, 0, 16)
	for _, w := range windows {
		if w.DayOfWeek != weekday {
			continue
		}
		for _, s := range ExpandWindowSlots(w, date) {
			free := true
			for _, b := range booked {
				if Overlaps(s.Start, s.End, b.Start, b.End) {
					free = false
					break
				}
			}
			if free {
				out = append(out, s)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || h*60+m > 24*60 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
