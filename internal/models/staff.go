package models

import "time"

// StaffMember is a crew member provisioned for the portal. RoleKeys are the
// ops roles the member holds (e.g. FOH, SOUND, STAGE); they double as mention
// targets in the show channel.
type StaffMember struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	Email       string     `json:"email,omitempty"`
	RoleKeys    []string   `json:"roleKeys,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// HoldsRole reports whether the member holds the given role key.
func (s *StaffMember) HoldsRole(key string) bool {
	for _, k := range s.RoleKeys {
		if k == key {
			return true
		}
	}
	return false
}
