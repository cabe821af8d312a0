// Package mention tokenizes message bodies into user and role mentions.
// Parsing is a pure function of its inputs: no scan position or other state
// survives between calls.
package mention

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"showdesk/internal/models"
)

var tokenRe = regexp.MustCompile(`@([\w.\-]{2,64})`)

// Roster holds the resolution tables for one event: known role keys plus
// staff handles (full display name and first name), all normalized.
type Roster struct {
	roles map[string]string
	users map[string]models.StaffMember
}

// NewRoster precomputes the normalized lookup maps. When two staff members
// normalize to the same handle the first one wins.
func NewRoster(staff []models.StaffMember, roleKeys []string) *Roster {
	r := &Roster{
		roles: make(map[string]string, len(roleKeys)),
		users: make(map[string]models.StaffMember, len(staff)*2),
	}

	for _, key := range roleKeys {
		normalized := normalizeToken(key)
		if normalized == "" {
			continue
		}
		if _, ok := r.roles[normalized]; !ok {
			r.roles[normalized] = key
		}
	}

	for _, member := range staff {
		full := normalizeToken(member.DisplayName)
		if full != "" {
			if _, ok := r.users[full]; !ok {
				r.users[full] = member
			}
		}
		first := normalizeToken(firstName(member.DisplayName))
		if first != "" {
			if _, ok := r.users[first]; !ok {
				r.users[first] = member
			}
		}
	}

	return r
}

// Parse scans text for @tokens and resolves them against the roster. Role
// keys win over staff handles; unresolvable tokens are dropped. A token
// mentioned more than once in the same text is emitted once.
func Parse(text string, roster *Roster) []models.Mention {
	if roster == nil {
		return nil
	}

	matches := tokenRe.FindAllStringSubmatchIndex(text, -1)
	mentions := make([]models.Mention, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))

	for _, match := range matches {
		start := match[0]
		if start > 0 {
			prev, _ := utf8.DecodeLastRuneInString(text[:start])
			if !unicode.IsSpace(prev) {
				continue
			}
		}

		token := text[match[2]:match[3]]
		normalized := normalizeToken(token)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}

		if roleKey, ok := roster.roles[normalized]; ok {
			seen[normalized] = struct{}{}
			mentions = append(mentions, models.Mention{
				Token:            token,
				Type:             models.MentionTypeRole,
				MentionedRoleKey: roleKey,
			})
			continue
		}

		if member, ok := roster.users[normalized]; ok {
			seen[normalized] = struct{}{}
			mentions = append(mentions, models.Mention{
				Token:           token,
				Type:            models.MentionTypeUser,
				MentionedUserID: member.ID,
			})
		}
	}

	return mentions
}

func normalizeToken(token string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(token) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func firstName(displayName string) string {
	fields := strings.Fields(displayName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
