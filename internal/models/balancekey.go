package models

import (
	"fmt"
	"strconv"
	"strings"
)

// BalanceKeyKind discriminates the two ways a balance map entry can be keyed.
type BalanceKeyKind int

const (
	// KeyUser keys a balance by the registered user's ID.
	KeyUser BalanceKeyKind = iota
	// KeyGhost keys a balance by the synthetic ghost member ID.
	KeyGhost
)

// BalanceKey identifies one entry in a group balance map. The backend keys
// registered members by user ID and offline members by "ghost_<member_id>";
// this type is the parsed form of that convention.
type BalanceKey struct {
	Kind     BalanceKeyKind
	UserID   string
	MemberID int
}

// UserKey returns the balance key for a registered user.
func UserKey(userID string) BalanceKey {
	return BalanceKey{Kind: KeyUser, UserID: userID}
}

// GhostKey returns the balance key for a ghost member.
func GhostKey(memberID int) BalanceKey {
	return BalanceKey{Kind: KeyGhost, MemberID: memberID}
}

const ghostPrefix = "ghost_"

// ParseBalanceKey parses a raw wire key into a BalanceKey. A key of the
// form "ghost_<n>" with a numeric suffix is a ghost key; anything else is
// treated as a user ID.
func ParseBalanceKey(raw string) (BalanceKey, error) {
	if raw == "" {
		return BalanceKey{}, fmt.Errorf("empty balance key")
	}
	if suffix, ok := strings.CutPrefix(raw, ghostPrefix); ok {
		id, err := strconv.Atoi(suffix)
		if err != nil {
			return BalanceKey{}, fmt.Errorf("malformed ghost balance key %q: %w", raw, err)
		}
		return GhostKey(id), nil
	}
	return UserKey(raw), nil
}

// String renders the key back into its wire form.
func (k BalanceKey) String() string {
	if k.Kind == KeyGhost {
		return ghostPrefix + strconv.Itoa(k.MemberID)
	}
	return k.UserID
}
