package logger

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"empty", "", 10, ""},
		{"control characters", "a\x1b[31mb\x00", 10, "a[31mb"},
		{"truncated", "abcdef", 3, "abc..."},
		{"invalid utf8", "ok\xff", 10, "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeString(tt.in, tt.max); got != tt.want {
				t.Errorf("SanitizeString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestSanitizePathAndError(t *testing.T) {
	t.Parallel()

	long := "/" + strings.Repeat("a", MaxPathLength+10)
	if got := SanitizePath(long); len(got) != MaxPathLength+3 {
		t.Errorf("SanitizePath length = %d", len(got))
	}
	if got := SanitizeError(errors.New("boom\n")); got != "boom\n" {
		t.Errorf("SanitizeError = %q", got)
	}
	if SanitizeError(nil) != "" {
		t.Error("SanitizeError(nil) should be empty")
	}
}

func TestTruncate_RuneBoundary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"héllo", 2, "h..."},
		{"héllo", 3, "hé..."},
		{"⚔️⚔️", 4, "⚔..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
