package shared

import (
	"errors"
	"fmt"
	"testing"
)

func TestFormatDuration(t *testing.T) {
	tc := []struct {
		name    string
		seconds int
		want    string
	}{
		{name: "zero", seconds: 0, want: "0:00"},
		{name: "negative", seconds: -5, want: "0:00"},
		{name: "under a minute", seconds: 42, want: "0:42"},
		{name: "pads seconds", seconds: 185, want: "3:05"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.seconds); got != tt.want {
				t.Errorf("FormatDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := GenerateState()
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty states, got %q and %q", a, b)
	}
}

func TestIsAuthError(t *testing.T) {
	tc := []struct {
		name string
		err  error
		want bool
	}{
		{name: "expired", err: fmt.Errorf("%w: search", ErrTokenExpired), want: true},
		{name: "refresh", err: ErrRefreshFailed, want: true},
		{name: "transport", err: fmt.Errorf("%w: dial", ErrTransport), want: false},
		{name: "unrelated", err: errors.New("boom"), want: false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthError(tt.err); got != tt.want {
				t.Errorf("IsAuthError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarshalJSON(t *testing.T) {
	got, err := MarshalJSON(map[string]int{"a": 1}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "{\n  \"a\": 1\n}" {
		t.Errorf("unexpected output: %s", got)
	}
}
