package shared

import (
	"strings"
	"testing"
)

func TestTitleFromPrompt(t *testing.T) {
	tc := []struct {
		name   string
		prompt string
		want   string
	}{
		{
			name:   "short prompt",
			prompt: "bouncing ball",
			want:   "bouncing ball...",
		},
		{
			name:   "long prompt truncated to five words",
			prompt: "animate a red circle transforming into a square",
			want:   "animate a red circle transforming...",
		},
		{
			name:   "extra whitespace collapsed",
			prompt: "  show   the   pythagorean theorem  ",
			want:   "show the pythagorean theorem...",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := TitleFromPrompt(tt.prompt)
			if got != tt.want {
				t.Errorf("TitleFromPrompt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tc := []struct {
		name    string
		seconds float64
		want    string
	}{
		{name: "sub-minute", seconds: 42.5, want: "42.5s"},
		{name: "exactly a minute", seconds: 60, want: "1m00s"},
		{name: "minutes and seconds", seconds: 125, want: "2m05s"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatDuration(tt.seconds)
			if got != tt.want {
				t.Errorf("FormatDuration(%v) = %v, want %v", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestMarshalJSON(t *testing.T) {
	data := map[string]string{"status": "completed"}

	t.Run("compact", func(t *testing.T) {
		out, err := MarshalJSON(data, false)
		if err != nil {
			t.Fatalf("MarshalJSON() error = %v", err)
		}
		if strings.Contains(string(out), "\n") {
			t.Errorf("compact output should not contain newlines: %q", out)
		}
	})

	t.Run("pretty", func(t *testing.T) {
		out, err := MarshalJSON(data, true)
		if err != nil {
			t.Fatalf("MarshalJSON() error = %v", err)
		}
		if !strings.Contains(string(out), "\n") {
			t.Errorf("pretty output should be indented: %q", out)
		}
	})

	t.Run("unmarshalable value", func(t *testing.T) {
		if _, err := MarshalJSON(make(chan int), false); err == nil {
			t.Error("expected error for unmarshalable value")
		}
	})
}

func TestGenerateID(t *testing.T) {
	a := GenerateID()
	b := GenerateID()

	if a == b {
		t.Error("expected distinct IDs")
	}
	if len(a) != 36 {
		t.Errorf("expected UUID string of length 36, got %d", len(a))
	}
}
