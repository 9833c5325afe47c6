package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

var testPractitionerID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func window(day, startMin, endMin, slotMin int) WorkingWindow {
	return WorkingWindow{
		ID:                  uuid.MustParse("00000000-0000-0000-0000-000000000010"),
		PractitionerID:      testPractitionerID,
		DayOfWeek:           day,
		StartMinute:         startMin,
		EndMinute:           endMin,
		SlotDurationMinutes: slotMin,
	}
}

func TestExpandWindowSlots(t *testing.T) {
	// 2026-01-05 is a Monday.
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		window    WorkingWindow
		wantCount int
		wantFirst string
		wantLast  string
	}{
		{
			name:      "even division",
			window:    window(1, 9*60, 12*60, 30),
			wantCount: 6,
			wantFirst: "09:00",
			wantLast:  "11:30",
		},
		{
			name:      "trailing remainder dropped",
			window:    window(1, 9*60, 10*60+50, 30),
			wantCount: 3,
			wantFirst: "09:00",
			wantLast:  "10:00",
		},
		{
			name:      "window shorter than slot",
			window:    window(1, 9*60, 9*60+20, 30),
			wantCount: 0,
		},
		{
			name:      "single exact slot",
			window:    window(1, 9*60, 9*60+45, 45),
			wantCount: 1,
			wantFirst: "09:00",
			wantLast:  "09:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := ExpandWindowSlots(tt.window, monday)
			if len(slots) != tt.wantCount {
				t.Fatalf("len(slots) = %d, want %d", len(slots), tt.wantCount)
			}
			if tt.wantCount == 0 {
				return
			}
			if got := slots[0].Start.Format("15:04"); got != tt.wantFirst {
				t.Errorf("first slot start = %s, want %s", got, tt.wantFirst)
			}
			if got := slots[len(slots)-1].Start.Format("15:04"); got != tt.wantLast {
				t.Errorf("last slot start = %s, want %s", got, tt.wantLast)
			}
			for _, s := range slots {
				if s.End.Sub(s.Start).Truncate(time.Minute) != s.End.Sub(s.Start) {
					t.Errorf("slot duration not whole minutes: %v", s.End.Sub(s.Start))
				}
				if s.End.After(monday.Add(time.Duration(tt.window.EndMinute) * time.Minute)) {
					t.Errorf("slot %v..%v extends past window end", s.Start, s.End)
				}
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2026, 1, 5, h, m, 0, 0, time.UTC)
	}

	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"partial overlap", at(9, 0), at(10, 0), at(9, 30), at(10, 30), true},
		{"containment", at(9, 0), at(11, 0), at(9, 30), at(10, 0), true},
		{"identical", at(9, 0), at(10, 0), at(9, 0), at(10, 0), true},
		{"adjacent end-to-start", at(9, 0), at(10, 0), at(10, 0), at(11, 0), false},
		{"adjacent start-to-end", at(10, 0), at(11, 0), at(9, 0), at(10, 0), false},
		{"disjoint", at(9, 0), at(10, 0), at(13, 0), at(14, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
			// Symmetric.
			if got := Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd); got != tt.want {
				t.Errorf("Overlaps (swapped) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAvailableSlots(t *testing.T) {
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	windows := []WorkingWindow{window(1, 9*60, 11*60, 30)}

	appt := func(startH, startM, endH, endM int, status AppointmentStatus) Appointment {
		return Appointment{
			PractitionerID: testPractitionerID,
			StartTime:      time.Date(2026, 1, 5, startH, startM, 0, 0, time.UTC),
			EndTime:        time.Date(2026, 1, 5, endH, endM, 0, 0, time.UTC),
			Status:         status,
		}
	}

	t.Run("no appointments", func(t *testing.T) {
		slots := AvailableSlots(windows, nil, monday)
		if len(slots) != 4 {
			t.Fatalf("len(slots) = %d, want 4", len(slots))
		}
		for i := 1; i < len(slots); i++ {
			if !slots[i].Start.After(slots[i-1].Start) {
				t.Errorf("slots not ascending at index %d", i)
			}
		}
	})

	t.Run("booked slot removed", func(t *testing.T) {
		slots := AvailableSlots(windows, []Appointment{appt(9, 30, 10, 0, AppointmentConfirmed)}, monday)
		if len(slots) != 3 {
			t.Fatalf("len(slots) = %d, want 3", len(slots))
		}
		for _, s := range slots {
			if s.Start.Hour() == 9 && s.Start.Minute() == 30 {
				t.Errorf("booked 09:30 slot still offered")
			}
		}
	})

	t.Run("misaligned appointment blocks both overlapped slots", func(t *testing.T) {
		slots := AvailableSlots(windows, []Appointment{appt(9, 15, 9, 45, AppointmentConfirmed)}, monday)
		if len(slots) != 2 {
			t.Fatalf("len(slots) = %d, want 2", len(slots))
		}
		if slots[0].Start.Minute() != 0 || slots[0].Start.Hour() != 10 {
			t.Errorf("first free slot = %v, want 10:00", slots[0].Start)
		}
	})

	t.Run("cancelled appointment frees slot", func(t *testing.T) {
		slots := AvailableSlots(windows, []Appointment{appt(9, 30, 10, 0, AppointmentCancelled)}, monday)
		if len(slots) != 4 {
			t.Fatalf("len(slots) = %d, want 4", len(slots))
		}
	})

	t.Run("other weekday windows ignored", func(t *testing.T) {
		tuesdayOnly := []WorkingWindow{window(2, 9*60, 11*60, 30)}
		slots := AvailableSlots(tuesdayOnly, nil, monday)
		if len(slots) != 0 {
			t.Fatalf("len(slots) = %d, want 0", len(slots))
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		appts := []Appointment{appt(10, 0, 10, 30, AppointmentPending)}
		first := AvailableSlots(windows, appts, monday)
		second := AvailableSlots(windows, appts, monday)
		if len(first) != len(second) {
			t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if !first[i].Start.Equal(second[i].Start) || !first[i].End.Equal(second[i].End) {
				t.Errorf("slot %d differs between runs", i)
			}
		}
	})
}

func TestISOWeekday(t *testing.T) {
	tests := []struct {
		date time.Time
		want int
	}{
		{time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC), 1},
		{time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 6},
		{time.Date(2026, 1, 11, 23, 59, 0, 0, time.UTC), 7},
	}
	for _, tt := range tests {
		if got := ISOWeekday(tt.date); got != tt.want {
			t.Errorf("ISOWeekday(%v) = %d, want %d", tt.date, got, tt.want)
		}
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"09:00", 540, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{"24:00", 1440, false},
		{"24:01", 0, true},
		{"9:75", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(540); got != "09:00" {
		t.Errorf("FormatClock(540) = %q, want %q", got, "09:00")
	}
	if got := FormatClock(1439); got != "23:59" {
		t.Errorf("FormatClock(1439) = %q, want %q", got, "23:59")
	}
}

func TestWorkingWindowValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WorkingWindow)
		wantErr bool
	}{
		{"valid", func(w *WorkingWindow) {}, false},
		{"missing practitioner", func(w *WorkingWindow) { w.PractitionerID = uuid.Nil }, true},
		{"day too low", func(w *WorkingWindow) { w.DayOfWeek = 0 }, true},
		{"day too high", func(w *WorkingWindow) { w.DayOfWeek = 8 }, true},
		{"inverted", func(w *WorkingWindow) { w.StartMinute, w.EndMinute = 600, 540 }, true},
		{"zero duration", func(w *WorkingWindow) { w.SlotDurationMinutes = 0 }, true},
		{"past midnight", func(w *WorkingWindow) { w.EndMinute = 1500 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := window(1, 9*60, 17*60, 30)
			tt.mutate(&w)
			err := w.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
