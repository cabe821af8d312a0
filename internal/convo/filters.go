package convo

import (
	"strings"

	"showdesk/internal/models"
)

// DefaultUrgencyKeywords mark a plain message as critical for the
// mute-non-critical rule. Matched case-insensitively as substrings.
var DefaultUrgencyKeywords = []string{"urgent", "asap", "emergency", "showstop", "911"}

// Filters are the view-level predicates. They compose as a logical AND; an
// empty query always passes.
type Filters struct {
	Query           string
	AttachmentsOnly bool
	MentionsOnly    bool
	SystemOnly      bool
}

// Apply returns the messages visible under the filters and the conversation
// settings. heldRoleKeys are the roles the current user holds; resolving
// role membership is the caller's concern.
func Apply(messages []models.Message, f Filters, conv models.Conversation, currentUserID string, heldRoleKeys []string) []models.Message {
	query := strings.ToLower(strings.TrimSpace(f.Query))

	visible := make([]models.Message, 0, len(messages))
	for _, m := range messages {
		if query != "" && !matchesQuery(m, query) {
			continue
		}
		if f.AttachmentsOnly && len(m.Attachments) == 0 {
			continue
		}
		if f.MentionsOnly && len(m.Mentions) == 0 {
			continue
		}
		if f.SystemOnly && !m.IsSystem() {
			continue
		}
		if conv.MuteNonCritical && !IsCritical(m, DefaultUrgencyKeywords) && !m.MentionsUser(currentUserID, heldRoleKeys) {
			continue
		}
		visible = append(visible, m)
	}
	return visible
}

func matchesQuery(m models.Message, loweredQuery string) bool {
	return strings.Contains(strings.ToLower(m.BodyText), loweredQuery) ||
		strings.Contains(strings.ToLower(m.AuthorName), loweredQuery) ||
		strings.Contains(strings.ToLower(m.LanguageHint), loweredQuery)
}

// IsCritical reports whether a message bypasses mute-non-critical: critical
// system messages always do, and so does any body containing an urgency
// keyword.
func IsCritical(m models.Message, urgencyKeywords []string) bool {
	if m.Type == models.MessageTypeSystemCritical {
		return true
	}
	body := strings.ToLower(m.BodyText)
	for _, keyword := range urgencyKeywords {
		if keyword != "" && strings.Contains(body, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
