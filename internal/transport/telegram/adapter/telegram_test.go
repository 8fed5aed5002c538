package adapter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"remindbot/pkg/logx"
)

func TestNewRejectsEmptyToken(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Token: "  "}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestSplitText(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		in    string
		limit int
		want  []string
	}{
		{name: "empty", in: "", limit: 10, want: nil},
		{name: "fits", in: "hello", limit: 10, want: []string{"hello"}},
		{name: "exact", in: "0123456789", limit: 10, want: []string{"0123456789"}},
		{name: "hard split", in: "0123456789abc", limit: 10, want: []string{"0123456789", "abc"}},
		{
			name:  "prefers newline",
			in:    "line one\nline two that continues",
			limit: 12,
			want:  []string{"line one", "line two tha", "t continues"},
		},
		{name: "no limit", in: "anything", limit: 0, want: []string{"anything"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := splitText(tt.in, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d chunks %q, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("chunk[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
			for _, c := range got {
				if tt.limit > 0 && utf8.RuneCountInString(c) > tt.limit {
					t.Fatalf("chunk %q exceeds limit %d", c, tt.limit)
				}
			}
		})
	}
}

func TestSplitTextKeepsRunesIntact(t *testing.T) {
	t.Parallel()
	in := strings.Repeat("你", 2000)
	got := splitText(in, 1500)
	if len(got) != 2 {
		t.Fatalf("got %d chunks, want 2", len(got))
	}
	for i, c := range got {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk[%d] is not valid UTF-8", i)
		}
		if n := utf8.RuneCountInString(c); n > 1500 {
			t.Fatalf("chunk[%d] has %d runes, limit 1500", i, n)
		}
	}
	if strings.Join(got, "") != in {
		t.Fatal("chunks lost content")
	}
}

func TestSplitTextReassembles(t *testing.T) {
	t.Parallel()
	in := strings.Repeat("word ", 100)
	got := splitText(in, 32)
	joined := strings.Join(got, "")
	if strings.ReplaceAll(joined, "\n", "") != strings.ReplaceAll(in, "\n", "") {
		t.Fatal("chunks lost content")
	}
}
