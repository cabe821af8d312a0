package models

// Conversation holds the per-event settings for the during-show channel.
// Defaults (everything off, no pinned commands) apply when the server has no
// stored row for the event.
type Conversation struct {
	EventID           string   `json:"eventId"`
	ShowModeEnabled   bool     `json:"showModeEnabled"`
	MuteNonCritical   bool     `json:"muteNonCritical"`
	PinnedOpsCommands []string `json:"pinnedOpsCommands"`
}

// ConversationPatch carries only the fields a toggle wants to change; nil
// fields are left as stored.
type ConversationPatch struct {
	ShowModeEnabled   *bool     `json:"showModeEnabled,omitempty"`
	MuteNonCritical   *bool     `json:"muteNonCritical,omitempty"`
	PinnedOpsCommands *[]string `json:"pinnedOpsCommands,omitempty"`
}

// Apply returns the conversation with the patch folded in.
func (c Conversation) Apply(patch ConversationPatch) Conversation {
	if patch.ShowModeEnabled != nil {
		c.ShowModeEnabled = *patch.ShowModeEnabled
	}
	if patch.MuteNonCritical != nil {
		c.MuteNonCritical = *patch.MuteNonCritical
	}
	if patch.PinnedOpsCommands != nil {
		c.PinnedOpsCommands = append([]string(nil), (*patch.PinnedOpsCommands)...)
	}
	return c
}
