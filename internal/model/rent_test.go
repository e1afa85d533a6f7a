package model

import (
	"math"
	"testing"
)

func TestParseRent(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"$2,800", 2800},
		{"2800/mo", 2800},
		{"2.8k", 2800},
		{"$3,150.50 per month", 3150.5},
		{"call for price", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := ParseRent(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParseRent(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
