package similarity

import (
	"math"
	"testing"
)

func TestScoreIdentical(t *testing.T) {
	for _, s := range []string{"", "a", "hello world", "Ünïcode – Tïtle"} {
		if got := Score(s, s); got != 1.0 {
			t.Fatalf("Score(%q, %q) = %v, want 1.0", s, s, got)
		}
	}
}

func TestScoreSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"artist song", "artist - song"},
		{"", "x"},
		{"abc", "xyz"},
		{"the weeknd blinding lights", "blinding lights"},
	}
	for _, p := range pairs {
		if Score(p[0], p[1]) != Score(p[1], p[0]) {
			t.Fatalf("Score(%q, %q) not symmetric", p[0], p[1])
		}
	}
}

func TestScoreEmptyAgainstNonEmpty(t *testing.T) {
	if got := Score("", "x"); got != 0.0 {
		t.Fatalf("Score(\"\", \"x\") = %v, want 0.0", got)
	}
}

func TestScoreKnownDistances(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"kitten", "sitting", 1.0 - 3.0/7.0},
		{"abcd", "abcf", 0.75},
		{"abc", "xyz", 0.0},
	}
	for _, tt := range tests {
		got := Score(tt.a, tt.b)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("Score(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestScoreRange(t *testing.T) {
	samples := []string{"", "a", "ab", "completely different text", "abba"}
	for _, a := range samples {
		for _, b := range samples {
			got := Score(a, b)
			if got < 0 || got > 1 {
				t.Fatalf("Score(%q, %q) = %v out of [0,1]", a, b, got)
			}
		}
	}
}
