package forecast

import (
	"errors"
	"testing"
	"time"

	"tsfeed/internal/interval"
)

func TestEstimateCadence(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// 1000 samples spaced 60s apart with one artificial 180s gap; the
	// median must not budge
	timestamps := make([]time.Time, 0, 1000)
	ts := start
	for i := 0; i < 1000; i++ {
		timestamps = append(timestamps, ts)
		if i == 499 {
			ts = ts.Add(180 * time.Second)
		} else {
			ts = ts.Add(60 * time.Second)
		}
	}

	cursor, err := EstimateCadence(timestamps)
	if err != nil {
		t.Fatalf("EstimateCadence failed: %v", err)
	}

	last := timestamps[len(timestamps)-1]
	if !cursor.Last().Equal(last) {
		t.Errorf("cursor base = %v, want true last timestamp %v", cursor.Last(), last)
	}
	if got := cursor.Peek(); !got.Equal(last.Add(60 * time.Second)) {
		t.Errorf("Peek = %v, want last+60s", got)
	}
}

func TestEstimateCadenceUsesTrueLast(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// longer than the sample bound: the delta comes from the first 1000
	// but the base must be the final timestamp of the full input
	timestamps := make([]time.Time, 1500)
	for i := range timestamps {
		timestamps[i] = start.Add(time.Duration(i) * time.Minute)
	}

	cursor, err := EstimateCadence(timestamps)
	if err != nil {
		t.Fatal(err)
	}
	if !cursor.Last().Equal(timestamps[1499]) {
		t.Errorf("cursor base = %v, want %v", cursor.Last(), timestamps[1499])
	}
}

func TestEstimateCadenceErrors(t *testing.T) {
	if _, err := EstimateCadence(nil); !errors.Is(err, ErrPrecondition) {
		t.Errorf("empty input: err = %v, want ErrPrecondition", err)
	}

	single := []time.Time{time.Now()}
	if _, err := EstimateCadence(single); !errors.Is(err, ErrPrecondition) {
		t.Errorf("single timestamp: err = %v, want ErrPrecondition", err)
	}
}

func TestCursorPeekIsPure(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCursor(base, interval.FixedDelta(time.Hour))

	first := c.Peek()
	second := c.Peek()
	if !first.Equal(second) {
		t.Errorf("repeated Peek returned %v then %v", first, second)
	}
	if !c.Last().Equal(base) {
		t.Error("Peek mutated the cursor")
	}
}

func TestCursorReadAdvances(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCursor(base, interval.FixedDelta(time.Hour))

	if got := c.Read(); !got.Equal(base.Add(time.Hour)) {
		t.Errorf("first Read = %v, want base+1h", got)
	}
	if got := c.Read(); !got.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("second Read = %v, want base+2h", got)
	}
}

func TestCursorCopyIndependence(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	original := NewCursor(base, interval.FixedDelta(time.Hour))
	clone := original.Copy()

	original.Read()
	original.Read()

	if !clone.Last().Equal(base) {
		t.Error("advancing the original moved the copy")
	}
	clone.Read()
	if !original.Last().Equal(base.Add(2 * time.Hour)) {
		t.Error("advancing the copy moved the original")
	}
}

func TestCursorSetLatest(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCursor(base, interval.FixedDelta(time.Hour))

	// speculate a few steps, then real data arrives
	c.Read()
	c.Read()

	observed := base.Add(90 * time.Minute)
	c.SetLatest(observed)

	if got := c.Peek(); !got.Equal(observed.Add(time.Hour)) {
		t.Errorf("after rebase Peek = %v, want observed+1h", got)
	}
}

func TestCursorCalendarDelta(t *testing.T) {
	base := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	c := NewCursor(base, interval.MonthsDelta(1))

	// calendar arithmetic, not a fixed duration
	got := c.Read()
	want := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC) // Jan 31 + 1 month normalizes
	if !got.Equal(want) {
		t.Errorf("Jan 31 + 1M = %v, want %v", got, want)
	}
}
