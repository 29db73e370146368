package database

import (
	"fmt"
	"strconv"
	"strings"
)

// DirectPrefix is reserved for direct-conversation ids. Room names may
// never begin with it, which keeps the two conversation namespaces
// disjoint.
const DirectPrefix = "dm:"

// DirectConversationID derives the canonical conversation id for a pair
// of users. The lower account id always comes first, so both
// participants map to the same id regardless of who initiates.
func DirectConversationID(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%s%d_%d", DirectPrefix, a, b)
}

// IsDirectConversation reports whether id names a direct conversation
// rather than a room.
func IsDirectConversation(id string) bool {
	return strings.HasPrefix(id, DirectPrefix)
}

// ParseDirectConversationID returns the two participant account ids
// encoded in a direct-conversation id.
func ParseDirectConversationID(id string) (int, int, error) {
	rest, ok := strings.CutPrefix(id, DirectPrefix)
	if !ok {
		return 0, 0, fmt.Errorf("%q is not a direct conversation id", id)
	}

	lo, hi, ok := strings.Cut(rest, "_")
	if !ok {
		return 0, 0, fmt.Errorf("malformed direct conversation id %q", id)
	}

	a, err := strconv.Atoi(lo)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed direct conversation id %q", id)
	}

	b, err := strconv.Atoi(hi)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed direct conversation id %q", id)
	}

	return a, b, nil
}

// ValidateRoomName rejects names that are empty, whitespace-only, or
// that fall inside the direct-conversation namespace.
func ValidateRoomName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidRoomName
	}

	if strings.HasPrefix(name, DirectPrefix) {
		return ErrReservedRoomName
	}

	return nil
}
