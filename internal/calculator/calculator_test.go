package calculator

import (
	"math"
	"testing"
)

func descending(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = float64(n - i)
	}
	return s
}

func TestMovingAverage_PresenceMatchesLength(t *testing.T) {
	series := descending(100)
	for _, p := range []int{1, 20, 60, 99, 100, 101, 120, 240} {
		got := MovingAverage(series, p)
		if (got == nil) != (len(series) < p) {
			t.Fatalf("period %d: presence mismatch, got %v", p, got)
		}
		if got == nil {
			continue
		}
		sum := 0.0
		for i := 0; i < p; i++ {
			sum += series[i]
		}
		if want := sum / float64(p); math.Abs(*got-want) > 1e-9 {
			t.Errorf("period %d: expected %.4f, got %.4f", p, want, *got)
		}
	}
}

func TestMovingAverage_UsesNewestWindow(t *testing.T) {
	series := []float64{10, 20, 30, 1000}
	got := MovingAverage(series, 3)
	if got == nil || *got != 20 {
		t.Fatalf("expected 20, got %v", got)
	}
}

func TestMovingAverage_InvalidPeriod(t *testing.T) {
	if MovingAverage([]float64{1, 2}, 0) != nil {
		t.Error("expected nil for zero period")
	}
	if MovingAverage(nil, 1) != nil {
		t.Error("expected nil for empty series")
	}
}

func TestRSI_InsufficientData(t *testing.T) {
	if got := RSI(descending(14), PeriodRSI); got != nil {
		t.Errorf("expected nil with 14 values, got %.2f", *got)
	}
	if got := RSI(descending(15), PeriodRSI); got == nil {
		t.Error("expected a value with 15 values")
	}
}

func TestRSI_NewestFirstRising(t *testing.T) {
	// newest-first 100..1 means prices climbed from 1 to 100
	got := RSI(descending(100), PeriodRSI)
	if got == nil || *got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
}

func TestRSI_NewestFirstFalling(t *testing.T) {
	// newest-first 1..100 means prices fell from 100 to 1
	got := RSI(Reverse(descending(100)), PeriodRSI)
	if got == nil || *got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestRSI_FlatSeries(t *testing.T) {
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 5
	}
	got := RSI(flat, PeriodRSI)
	if got == nil || *got != 100 {
		t.Fatalf("expected 100 when avg loss is zero, got %v", got)
	}
}

func TestRSI_Bounded(t *testing.T) {
	series := make([]float64, 200)
	for i := range series {
		series[i] = 100 + 20*math.Sin(float64(i)/3) + float64(i%7)
	}
	for n := PeriodRSI + 1; n <= len(series); n += 5 {
		got := RSI(series[:n], PeriodRSI)
		if got == nil {
			t.Fatalf("n=%d: expected value", n)
		}
		if *got < 0 || *got > 100 {
			t.Errorf("n=%d: RSI out of range: %.4f", n, *got)
		}
	}
}

func TestRSI_KnownValue(t *testing.T) {
	// oldest-first: alternating +2 / -1 for 14 deltas -> gains 14, losses 7
	oldest := []float64{10}
	for i := 0; i < 14; i++ {
		step := 2.0
		if i%2 == 1 {
			step = -1
		}
		oldest = append(oldest, oldest[len(oldest)-1]+step)
	}
	got := RSI(Reverse(oldest), PeriodRSI)
	want := 100 - 100/(1+2.0)
	if got == nil || math.Abs(*got-want) > 1e-9 {
		t.Fatalf("expected %.4f, got %v", want, got)
	}
}

func TestMonthlyProxy(t *testing.T) {
	tests := []struct {
		n       int
		samples int
	}{
		{0, 0},
		{1, 1},
		{30, 1},
		{31, 2},
		{60, 2},
		{61, 3},
		{365, 13},
	}
	for _, tt := range tests {
		daily := descending(tt.n)
		got := MonthlyProxy(daily)
		if len(got) != tt.samples {
			t.Errorf("n=%d: expected %d samples, got %d", tt.n, tt.samples, len(got))
			continue
		}
		for i, v := range got {
			if v != daily[i*MonthlyStride] {
				t.Errorf("n=%d: sample %d = %.0f, want %.0f", tt.n, i, v, daily[i*MonthlyStride])
			}
		}
	}
}

func TestReverse_DoesNotMutate(t *testing.T) {
	in := []float64{1, 2, 3}
	out := Reverse(in)
	if in[0] != 1 || out[0] != 3 || out[2] != 1 {
		t.Errorf("unexpected reverse result: in=%v out=%v", in, out)
	}
}
