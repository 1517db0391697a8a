package format

import "testing"

func TestCurrency(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		expected string
	}{
		{name: "Small amount", amount: 42.5, expected: "$42.50"},
		{name: "Thousands separator", amount: 1234.56, expected: "$1,234.56"},
		{name: "Millions", amount: 1500000, expected: "$1,500,000.00"},
		{name: "Negative", amount: -1234.56, expected: "-$1,234.56"},
		{name: "Zero", amount: 0, expected: "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Currency(tt.amount); got != tt.expected {
				t.Errorf("Currency(%v) = %q, expected %q", tt.amount, got, tt.expected)
			}
		})
	}
}

func TestCompactCurrency(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		expected string
	}{
		{name: "Millions", amount: 1200000, expected: "$1.2M"},
		{name: "Thousands", amount: 850000, expected: "$850K"},
		{name: "Under a thousand", amount: 950, expected: "$950.00"},
		{name: "Negative millions", amount: -2500000, expected: "-$2.5M"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompactCurrency(tt.amount); got != tt.expected {
				t.Errorf("CompactCurrency(%v) = %q, expected %q", tt.amount, got, tt.expected)
			}
		})
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(0.423); got != "42.3%" {
		t.Errorf("Percent(0.423) = %q, expected %q", got, "42.3%")
	}
	if got := Percent(1.0); got != "100.0%" {
		t.Errorf("Percent(1.0) = %q, expected %q", got, "100.0%")
	}
}
