package models

// Member is one participant in a group.
//
// MemberID is unique within the group. UserID is set only when the member
// is linked to a registered account; a ghost member represents an offline
// participant identified by name alone and has no UserID.
type Member struct {
	MemberID int    `json:"member_id"`
	UserID   string `json:"user_id,omitempty"`
	Name     string `json:"name"`
	IsGhost  bool   `json:"is_ghost"`
}

// BalanceKey returns the key under which this member appears in a group's
// balance map.
func (m Member) BalanceKey() BalanceKey {
	if m.IsGhost || m.UserID == "" {
		return GhostKey(m.MemberID)
	}
	return UserKey(m.UserID)
}

// Group is a shared-expense group. Currency is fixed at creation; every
// expense in the group is denominated in it.
type Group struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Currency string   `json:"currency"`
	Icon     string   `json:"icon,omitempty"`
	Members  []Member `json:"members,omitempty"`
}

// MemberByUserID returns the group member linked to the given user account,
// or nil if the user is not a member. An empty userID never matches: ghost
// members have no UserID, and resolving "" to one of them would silently
// pick an arbitrary ghost.
func (g *Group) MemberByUserID(userID string) *Member {
	if userID == "" {
		return nil
	}
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return &g.Members[i]
		}
	}
	return nil
}
