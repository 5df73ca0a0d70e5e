package main

import "testing"

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{52_400, "52K"},
		{28_950_000, "28.95M"},
		{1_250_000_000, "1.25B"},
	}
	for _, tt := range tests {
		if got := formatMoney(tt.in); got != tt.want {
			t.Errorf("formatMoney(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatShares(t *testing.T) {
	got := formatShares(map[string]float64{"2BR": 0.6, "Studio": 0.1, "1BR": 0.3})
	if want := "10% Studio, 30% 1BR, 60% 2BR"; got != want {
		t.Errorf("formatShares = %q, want %q", got, want)
	}
	if formatShares(nil) != "" {
		t.Error("no shares should format empty")
	}
}
