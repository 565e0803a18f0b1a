package util

import (
	"testing"
	"time"
)

func TestHoursAndFormat(t *testing.T) {
	if Hours(1.5) != 90*time.Minute {
		t.Fatalf("unexpected duration %v", Hours(1.5))
	}
	if got := FormatHours(72 * time.Hour); got != "72" {
		t.Fatalf("unexpected format %q", got)
	}
	if got := FormatHours(90 * time.Minute); got != "1.5" {
		t.Fatalf("unexpected format %q", got)
	}
}

func TestRound(t *testing.T) {
	if got := Round(10.000049, 4); got != 10.0 {
		t.Fatalf("unexpected round %v", got)
	}
	if got := Round(-2.34567, 2); got != -2.35 {
		t.Fatalf("unexpected round %v", got)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList("a, b", "b,c", " ", "a")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected list %v", got)
	}
}
