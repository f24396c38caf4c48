package slots

import (
	"fmt"
	"math/rand"
	"testing"
	"time"
)

func TestFixedPolicy(t *testing.T) {
	g, err := New(Config{Policy: PolicyFixed, FixedTimes: []string{"06:00", "12:00", "18:00"}}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	got := g.ForDay(date)
	if len(got) != 3 {
		t.Fatalf("expected 3 slots got %d", len(got))
	}
	for i, want := range []string{"06:00", "12:00", "18:00"} {
		if got[i].Start != want {
			t.Fatalf("slot %d: expected %s got %s", i, want, got[i].Start)
		}
	}
}

func TestPeakPolicyDeterministicForSeed(t *testing.T) {
	cfg := Config{Policy: PolicyPeak, PerRouteDay: 10}
	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	a, err := New(cfg, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	b, err := New(cfg, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	sa, sb := a.ForDay(date), b.ForDay(date)
	for i := range sa {
		if sa[i].Start != sb[i].Start {
			t.Fatalf("slot %d differs: %s vs %s", i, sa[i].Start, sb[i].Start)
		}
	}
}

func TestPeakPolicyStaysInBuckets(t *testing.T) {
	g, err := New(Config{Policy: PolicyPeak, PerRouteDay: 200}, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, s := range g.ForDay(time.Now()) {
		var hh, mm int
		if _, err := fmt.Sscanf(s.Start, "%d:%d", &hh, &mm); err != nil {
			t.Fatalf("bad clock %q", s.Start)
		}
		if hh < 5 || hh >= 22 {
			t.Fatalf("start %s outside peak buckets", s.Start)
		}
	}
}

func TestEndTimeRollsOverMidnight(t *testing.T) {
	end, err := EndTime("20:30", 240)
	if err != nil {
		t.Fatalf("end time: %v", err)
	}
	if end != "00:30" {
		t.Fatalf("expected 00:30 got %s", end)
	}
}

func TestEndTimeRejectsNonPositiveDuration(t *testing.T) {
	if _, err := EndTime("10:00", 0); err == nil {
		t.Fatal("expected error for zero duration")
	}
	if _, err := EndTime("10:00", -30); err == nil {
		t.Fatal("expected error for negative duration")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		clock string
		kind  string
		mult  float64
	}{
		{"06:00", "morning", 1.0},
		{"09:00", "morning-peak", 1.2},
		{"12:00", "midday", 1.1},
		{"15:00", "afternoon", 1.0},
		{"18:00", "evening-peak", 1.3},
		{"21:00", "night", 1.5},
		{"02:00", "night", 1.5},
	}
	for _, c := range cases {
		kind, mult := Classify(c.clock)
		if kind != c.kind || mult != c.mult {
			t.Fatalf("%s: expected %s/%.1f got %s/%.1f", c.clock, c.kind, c.mult, kind, mult)
		}
	}
}

func TestConfigValidation(t *testing.T) {
	if _, err := New(Config{Policy: "weird"}, rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("unknown policy accepted")
	}
	if _, err := New(Config{Policy: PolicyFixed, FixedTimes: []string{"25:99"}}, rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("invalid fixed time accepted")
	}
	if _, err := New(Config{Policy: PolicyPeak, Buckets: []Bucket{{Name: "x", StartHour: 9, EndHour: 9}}, PerRouteDay: 1}, rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("empty bucket accepted")
	}
}
