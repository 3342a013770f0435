package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"short", "hello", 10, "hello"},
		{"long", "hello world", 5, "hello..."},
		{"zero", "x", 0, "x"},
		{"negative", "xy", -1, "xy"},
		{"multibyte", "수능특강 문제집", 4, "수능특강..."},
		{"multibyte fits", "수능특강", 4, "수능특강"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.s, tt.maxLen); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}
