package services

import "testing"

func TestFormatQuoteNumber(t *testing.T) {
	tests := []struct {
		name     string
		day      string
		sequence int
		expect   string
	}{
		{"first of the day", "20260831", 1, "EST-20260831-001"},
		{"double digits", "20260831", 42, "EST-20260831-042"},
		{"three digits", "20261231", 120, "EST-20261231-120"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatQuoteNumber(tt.day, tt.sequence); got != tt.expect {
				t.Errorf("formatQuoteNumber(%q, %d) = %q, want %q",
					tt.day, tt.sequence, got, tt.expect)
			}
		})
	}
}
