package scheduler

import (
	"testing"
	"time"
)

func TestNextSlot(t *testing.T) {
	interval := 6 * time.Minute

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "mid slot",
			now:  time.UnixMilli(1_000_000),
			want: time.UnixMilli(1_080_000),
		},
		{
			name: "exact boundary moves to next slot",
			now:  time.UnixMilli(1_080_000),
			want: time.UnixMilli(1_440_000),
		},
		{
			name: "one millisecond before boundary",
			now:  time.UnixMilli(1_079_999),
			want: time.UnixMilli(1_080_000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextSlot(tt.now, interval)
			if !got.Equal(tt.want) {
				t.Errorf("NextSlot(%v) = %v, want %v", tt.now.UnixMilli(), got.UnixMilli(), tt.want.UnixMilli())
			}
		})
	}
}

func TestNextSlotProperties(t *testing.T) {
	interval := 6 * time.Minute
	intervalMs := interval.Milliseconds()

	for _, ms := range []int64{0, 1, 359_999, 360_000, 360_001, 1_756_700_000_000} {
		now := time.UnixMilli(ms)
		got := NextSlot(now, interval)

		if !got.After(now) {
			t.Errorf("NextSlot(%d) = %d is not strictly after now", ms, got.UnixMilli())
		}
		if got.UnixMilli()%intervalMs != 0 {
			t.Errorf("NextSlot(%d) = %d is not slot aligned", ms, got.UnixMilli())
		}
		if got.Sub(now) > interval {
			t.Errorf("NextSlot(%d) is more than one interval away", ms)
		}

		// Same slot, same trigger: any time within a slot maps to the same
		// boundary, so repeated rescheduling cannot drift.
		if later := now.Add(time.Millisecond); later.UnixMilli()/intervalMs == ms/intervalMs {
			if !NextSlot(later, interval).Equal(got) {
				t.Errorf("NextSlot is not stable within slot at %d", ms)
			}
		}
	}
}

func TestNextDaily(t *testing.T) {
	loc := time.FixedZone("KST", 9*60*60)
	now := time.Date(2026, 3, 10, 14, 30, 0, 0, loc)

	tests := []struct {
		name   string
		hour   int
		minute int
		want   time.Time
	}{
		{
			name: "later today",
			hour: 21, minute: 0,
			want: time.Date(2026, 3, 10, 21, 0, 0, 0, loc),
		},
		{
			name: "already passed rolls to tomorrow",
			hour: 9, minute: 0,
			want: time.Date(2026, 3, 11, 9, 0, 0, 0, loc),
		},
		{
			name: "exactly now rolls to tomorrow",
			hour: 14, minute: 30,
			want: time.Date(2026, 3, 11, 14, 30, 0, 0, loc),
		},
		{
			name: "one minute ahead stays today",
			hour: 14, minute: 31,
			want: time.Date(2026, 3, 10, 14, 31, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDaily(now, tt.hour, tt.minute)
			if !got.Equal(tt.want) {
				t.Errorf("NextDaily(%d:%02d) = %v, want %v", tt.hour, tt.minute, got, tt.want)
			}
			if got.Location() != loc {
				t.Errorf("NextDaily should stay in the caller's location")
			}
		})
	}
}

func TestAlarmsReplaceAndCancel(t *testing.T) {
	alarms, err := NewAlarms()
	if err != nil {
		t.Fatalf("NewAlarms failed: %v", err)
	}
	defer alarms.Shutdown()

	at := time.Now().Add(time.Hour)
	if err := alarms.ScheduleAt("test", at, func() {}); err != nil {
		t.Fatalf("ScheduleAt failed: %v", err)
	}
	first := alarms.jobs["test"]

	// Re-arming the same name replaces the registration.
	if err := alarms.ScheduleAt("test", at.Add(time.Hour), func() {}); err != nil {
		t.Fatalf("ScheduleAt failed: %v", err)
	}
	if len(alarms.jobs) != 1 {
		t.Fatalf("expected one registration, got %d", len(alarms.jobs))
	}
	if alarms.jobs["test"] == first {
		t.Error("re-arming should create a fresh registration")
	}

	alarms.Cancel("test")
	if len(alarms.jobs) != 0 {
		t.Errorf("cancel should remove the registration, got %d", len(alarms.jobs))
	}

	// Cancelling an unknown name is a no-op.
	alarms.Cancel("missing")
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestRefreshSchedulerArmsNextSlot(t *testing.T) {
	alarms, err := NewAlarms()
	if err != nil {
		t.Fatalf("NewAlarms failed: %v", err)
	}
	defer alarms.Shutdown()

	clock := fixedClock{now: time.Now()}
	s := NewRefreshScheduler(alarms, clock, 6, nil)

	s.ScheduleNext()
	if _, ok := alarms.jobs[refreshAlarmName]; !ok {
		t.Fatal("ScheduleNext should arm the refresh alarm")
	}

	s.Stop()
	if _, ok := alarms.jobs[refreshAlarmName]; ok {
		t.Error("Stop should cancel the refresh alarm")
	}
}
