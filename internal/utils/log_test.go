package utils

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{
			name:   "returns empty when limit non-positive",
			input:  "hello world",
			limit:  0,
			expect: "",
		},
		{
			name:   "shorter than limit",
			input:  "hello",
			limit:  10,
			expect: "hello",
		},
		{
			name:   "truncates and adds ellipsis",
			input:  "hello world",
			limit:  5,
			expect: "hello...",
		},
		{
			name:   "trims surrounding whitespace",
			input:  "  spaced  ",
			limit:  5,
			expect: "space...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 600)
	got := Truncate(long, 500)
	if got != strings.Repeat("a", 500)+Ellipsis {
		t.Fatalf("unexpected truncation, length %d", len(got))
	}

	short := strings.Repeat("b", 400)
	if got := Truncate(short, 500); got != short {
		t.Fatalf("expected short input unchanged")
	}

	exact := strings.Repeat("c", 500)
	if got := Truncate(exact, 500); got != exact {
		t.Fatalf("expected input at the limit unchanged")
	}

	if got := Truncate("日本語のテキスト", 3); got != "日本語..." {
		t.Fatalf("expected rune-aware truncation, got %q", got)
	}
}

func TestPreview(t *testing.T) {
	t.Parallel()

	if got := Preview("abcdef", 3); got != "abc" {
		t.Fatalf("unexpected preview %q", got)
	}
	if got := Preview("abc", 10); got != "abc" {
		t.Fatalf("unexpected preview %q", got)
	}
}

func TestWaitForHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Minute); err == nil {
		t.Fatal("expected context error")
	}

	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("expected zero wait to return immediately, got %v", err)
	}
}
