package cache

import "fmt"

// Direction is a swipe decision on a job listing, stored as its string value
// in the pending_swipe table.
type Direction string

// known swipe directions
const (
	DirectionLike    Direction = "like"
	DirectionDislike Direction = "dislike"
)

// ParseDirection converts a stored string to a Direction, failing on any
// value outside the known set.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionLike, DirectionDislike:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

func (d Direction) String() string { return string(d) }
