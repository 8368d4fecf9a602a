package engine

import (
	"testing"
	"time"
)

func TestHistoryROCAtHorizon(t *testing.T) {
	h := newHistoryBook(420 * time.Minute)
	t0 := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	h.append(5900, t0, 1000)
	h.append(5900, t0.Add(5*time.Minute), 1300)

	// Reference is the most recent entry at or before now-5m.
	got := h.rocAt(5900, t0.Add(5*time.Minute), 5*time.Minute, 1300)
	if !almostEqual(got, 30) {
		t.Fatalf("5m ROC = %v, want 30", got)
	}
}

func TestHistoryROCNoReference(t *testing.T) {
	h := newHistoryBook(420 * time.Minute)
	t0 := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	h.append(5900, t0, 1000)

	// Only one point, and it is newer than now-4h.
	if got := h.rocAt(5900, t0.Add(time.Minute), 4*time.Hour, 1000); got != 0 {
		t.Fatalf("ROC without reference = %v, want 0", got)
	}
}

func TestHistoryROCZeroReference(t *testing.T) {
	h := newHistoryBook(420 * time.Minute)
	t0 := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	h.append(5900, t0, 0)
	if got := h.rocAt(5900, t0.Add(time.Minute), time.Minute, 500); got != 0 {
		t.Fatalf("ROC against zero reference = %v, want 0", got)
	}
}

func TestHistoryNegativeReference(t *testing.T) {
	h := newHistoryBook(420 * time.Minute)
	t0 := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	h.append(5900, t0, -1000)
	got := h.rocAt(5900, t0.Add(time.Minute), time.Minute, -1500)
	if !almostEqual(got, -50) {
		t.Fatalf("ROC from negative reference = %v, want -50", got)
	}
}

func TestHistoryPrunesExpired(t *testing.T) {
	h := newHistoryBook(10 * time.Minute)
	t0 := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	h.append(5900, t0, 1)
	h.append(5900, t0.Add(5*time.Minute), 2)
	h.append(5900, t0.Add(15*time.Minute), 3)

	if got := h.size(5900); got != 2 {
		t.Fatalf("retained points = %d, want 2 after pruning", got)
	}
	if _, ok := h.firstAtOrAfter(5900, t0); !ok {
		t.Fatal("expected a surviving point at or after t0")
	}
	if v, _ := h.firstAtOrAfter(5900, t0); !almostEqual(v, 2) {
		t.Fatalf("earliest surviving value = %v, want 2", v)
	}
}

func TestHistoryFirstAtOrAfterMissing(t *testing.T) {
	h := newHistoryBook(time.Hour)
	t0 := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	h.append(5900, t0, 1)
	if _, ok := h.firstAtOrAfter(5900, t0.Add(time.Minute)); ok {
		t.Fatal("found a point after the last append")
	}
	if _, ok := h.firstAtOrAfter(9999, t0); ok {
		t.Fatal("found a point for an unseen strike")
	}
}
