// Package reactions reduces raw per-user reaction rows into the per-emoji
// aggregates rendered next to a message.
package reactions

import (
	"sort"

	"showdesk/internal/models"
)

// Summarize counts distinct reacting users per emoji. Duplicate (emoji, user)
// rows collapse to one, so a user can never inflate a count. Output is sorted
// by count descending; ties keep first-seen order.
func Summarize(raw []models.Reaction, currentUserID string) []models.ReactionSummary {
	type bucket struct {
		summary models.ReactionSummary
		users   map[string]struct{}
	}

	order := make([]string, 0, len(raw))
	buckets := make(map[string]*bucket, len(raw))

	for _, row := range raw {
		if row.Emoji == "" {
			continue
		}
		b, ok := buckets[row.Emoji]
		if !ok {
			b = &bucket{
				summary: models.ReactionSummary{Emoji: row.Emoji},
				users:   make(map[string]struct{}),
			}
			buckets[row.Emoji] = b
			order = append(order, row.Emoji)
		}
		if _, dup := b.users[row.UserID]; dup {
			continue
		}
		b.users[row.UserID] = struct{}{}
		b.summary.Count++
		if row.UserID == currentUserID {
			b.summary.ReactedByCurrentUser = true
		}
	}

	summaries := make([]models.ReactionSummary, 0, len(order))
	for _, emoji := range order {
		summaries = append(summaries, buckets[emoji].summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Count > summaries[j].Count
	})

	return summaries
}
