package services

import "testing"

func TestFormatNTD(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		expect string
	}{
		{"zero", 0, "NT$0"},
		{"small", 360, "NT$360"},
		{"thousands", 4158, "NT$4,158"},
		{"millions", 1234567, "NT$1,234,567"},
		{"fractional kept", 100.2, "NT$100.20"},
		{"whole drops decimals", 2500.00, "NT$2,500"},
		{"negative", -4158, "-NT$4,158"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatNTD(tt.amount); got != tt.expect {
				t.Errorf("FormatNTD(%v) = %q, want %q", tt.amount, got, tt.expect)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(4158); got != "4,158" {
		t.Errorf("FormatAmount(4158) = %q, want 4,158", got)
	}
	if got := FormatAmount(-500); got != "-500" {
		t.Errorf("FormatAmount(-500) = %q, want -500", got)
	}
}

func TestFormatQty(t *testing.T) {
	tests := []struct {
		qty    float64
		expect string
	}{
		{2, "2"},
		{20, "20"},
		{2.5, "2.50"},
		{0, "0"},
	}
	for _, tt := range tests {
		if got := formatQty(tt.qty); got != tt.expect {
			t.Errorf("formatQty(%v) = %q, want %q", tt.qty, got, tt.expect)
		}
	}
}
