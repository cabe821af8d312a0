package reactions

import (
	"testing"

	"showdesk/internal/models"
)

func TestSummarizeDuplicateRowsCountOnce(t *testing.T) {
	raw := []models.Reaction{
		{Emoji: "✅", UserID: "u1"},
		{Emoji: "✅", UserID: "u1"},
	}

	got := Summarize(raw, "u9")
	if len(got) != 1 {
		t.Fatalf("Summarize returned %d entries, want 1", len(got))
	}
	if got[0].Count != 1 {
		t.Fatalf("count = %d, want 1", got[0].Count)
	}
}

func TestSummarizeCurrentUserFlag(t *testing.T) {
	raw := []models.Reaction{{Emoji: "🔥", UserID: "u2"}}

	got := Summarize(raw, "u2")
	if len(got) != 1 || !got[0].ReactedByCurrentUser {
		t.Fatalf("Summarize = %+v, want reactedByCurrentUser=true", got)
	}

	got = Summarize(raw, "u3")
	if len(got) != 1 || got[0].ReactedByCurrentUser {
		t.Fatalf("Summarize = %+v, want reactedByCurrentUser=false", got)
	}
}

func TestSummarizeOrdering(t *testing.T) {
	raw := []models.Reaction{
		{Emoji: "👀", UserID: "u1"},
		{Emoji: "🔥", UserID: "u1"},
		{Emoji: "🔥", UserID: "u2"},
		{Emoji: "✅", UserID: "u3"},
	}

	got := Summarize(raw, "u1")
	want := []string{"🔥", "👀", "✅"}
	if len(got) != len(want) {
		t.Fatalf("Summarize returned %d entries, want %d", len(got), len(want))
	}
	for i, emoji := range want {
		if got[i].Emoji != emoji {
			t.Fatalf("position %d = %q, want %q (ties keep first-seen order)", i, got[i].Emoji, emoji)
		}
	}
}

func TestSummarizeAccountsForEveryRow(t *testing.T) {
	raw := []models.Reaction{
		{Emoji: "✅", UserID: "u1"},
		{Emoji: "✅", UserID: "u2"},
		{Emoji: "🔥", UserID: "u1"},
		{Emoji: "🔥", UserID: "u1"}, // duplicate, collapses
		{Emoji: "👀", UserID: "u3"},
	}

	got := Summarize(raw, "u1")

	total := 0
	for _, s := range got {
		total += s.Count
	}
	if total != 4 {
		t.Fatalf("summed counts = %d, want 4 (every distinct row counted exactly once)", total)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if got := Summarize(nil, "u1"); len(got) != 0 {
		t.Fatalf("Summarize(nil) = %+v, want empty", got)
	}
}
