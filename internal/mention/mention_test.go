package mention

import (
	"testing"

	"showdesk/internal/models"
)

func testRoster() *Roster {
	staff := []models.StaffMember{
		{ID: "stf_alex", DisplayName: "Alex Rivera", RoleKeys: []string{"SOUND"}},
		{ID: "stf_sam", DisplayName: "Sam O'Neil"},
		{ID: "stf_alexis", DisplayName: "Alexis Chen"},
	}
	return NewRoster(staff, []string{"FOH", "SOUND", "STAGE"})
}

func TestParseResolution(t *testing.T) {
	roster := testRoster()

	tests := []struct {
		name string
		text string
		want []models.Mention
	}{
		{
			name: "role mention",
			text: "@FOH doors in 5",
			want: []models.Mention{{Token: "FOH", Type: models.MentionTypeRole, MentionedRoleKey: "FOH"}},
		},
		{
			name: "role key case insensitive",
			text: "heads up @foh",
			want: []models.Mention{{Token: "foh", Type: models.MentionTypeRole, MentionedRoleKey: "FOH"}},
		},
		{
			name: "first name user mention",
			text: "@alex check monitor 2",
			want: []models.Mention{{Token: "alex", Type: models.MentionTypeUser, MentionedUserID: "stf_alex"}},
		},
		{
			name: "punctuation stripped before lookup",
			text: "ping @sam.oneil now",
			want: []models.Mention{{Token: "sam.oneil", Type: models.MentionTypeUser, MentionedUserID: "stf_sam"}},
		},
		{
			name: "unknown token dropped",
			text: "@nobody around?",
			want: []models.Mention{},
		},
		{
			name: "mid-word at sign ignored",
			text: "email me at ops@alex please",
			want: []models.Mention{},
		},
		{
			name: "too short token ignored",
			text: "@a check in",
			want: []models.Mention{},
		},
		{
			name: "role wins over user with same token",
			text: "@sound level check",
			want: []models.Mention{{Token: "sound", Type: models.MentionTypeRole, MentionedRoleKey: "SOUND"}},
		},
		{
			name: "duplicate mention emitted once",
			text: "@alex @FOH @alex",
			want: []models.Mention{
				{Token: "alex", Type: models.MentionTypeUser, MentionedUserID: "stf_alex"},
				{Token: "FOH", Type: models.MentionTypeRole, MentionedRoleKey: "FOH"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text, roster)
			if len(got) != len(tt.want) {
				t.Fatalf("Parse(%q) returned %d mentions, want %d: %+v", tt.text, len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Parse(%q)[%d] = %+v, want %+v", tt.text, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseNoStateAcrossCalls(t *testing.T) {
	roster := testRoster()

	first := Parse("@alex", roster)
	if len(first) != 1 {
		t.Fatalf("first parse returned %d mentions, want 1", len(first))
	}

	second := Parse("@FOH @alex", roster)
	if len(second) != 2 {
		t.Fatalf("second parse returned %d mentions, want 2: %+v", len(second), second)
	}
}

func TestParseNilRoster(t *testing.T) {
	if got := Parse("@alex", nil); got != nil {
		t.Fatalf("Parse with nil roster = %+v, want nil", got)
	}
}

func TestNewRosterFirstHandleWins(t *testing.T) {
	staff := []models.StaffMember{
		{ID: "stf_1", DisplayName: "Alex Rivera"},
		{ID: "stf_2", DisplayName: "Alex Stone"},
	}
	roster := NewRoster(staff, nil)

	got := Parse("@alex", roster)
	if len(got) != 1 || got[0].MentionedUserID != "stf_1" {
		t.Fatalf("Parse(@alex) = %+v, want single mention of stf_1", got)
	}
}
