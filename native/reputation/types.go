package reputation

import (
	"fmt"
	"strings"

	marketerrors "justfriends/core/errors"
)

// Reaction is a reader's stance on a piece of content.
type Reaction uint8

const (
	// None means the voter has never reacted. It is not a valid vote.
	None Reaction = 0
	// Upvote is encoded as 1 on the wire.
	Upvote Reaction = 1
	// Downvote is encoded as 2 on the wire.
	Downvote Reaction = 2
)

// Valid reports whether r can be submitted as a vote.
func (r Reaction) Valid() bool {
	return r == Upvote || r == Downvote
}

func (r Reaction) String() string {
	switch r {
	case None:
		return "none"
	case Upvote:
		return "upvote"
	case Downvote:
		return "downvote"
	default:
		return fmt.Sprintf("reaction(%d)", uint8(r))
	}
}

// ParseReaction accepts the wire value or the lowercase name.
func ParseReaction(s string) (Reaction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "upvote", "up":
		return Upvote, nil
	case "2", "downvote", "down":
		return Downvote, nil
	default:
		return None, fmt.Errorf("%w: unknown reaction %q", marketerrors.ErrInvalidReaction, s)
	}
}
