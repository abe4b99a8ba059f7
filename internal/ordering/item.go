// Package ordering computes order keys and bucket placement for drag-and-drop moves.
//
// Everything here is a pure function over snapshots: callers own the mutable board state and
// apply a Result to the single moved item (plus any rebalanced siblings) themselves.
package ordering

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrInvalidMove reports a move request that must not be persisted.
var ErrInvalidMove = errors.New("invalid move")

// Item is the ordering view of one board item.
type Item struct {
	ID          string
	BucketKey   string
	OrderKey    float64
	HasOrderKey bool
	StartDate   *time.Time
	EndDate     *time.Time
	CreatedAt   time.Time
}

// Bucket identifies one ordered container. A zero Start means the bucket has no date semantics.
type Bucket struct {
	Key   string
	Start time.Time
	End   time.Time
}

// Dated reports whether the bucket carries a calendar range.
func (b Bucket) Dated() bool {
	return !b.Start.IsZero()
}

// Side selects where a dropped item lands relative to its reference sibling.
type Side int

// Side values. SideAuto derives the side from the moving item's previous key.
const (
	SideAuto Side = iota
	SideBefore
	SideAfter
)

// String returns the wire name of the side.
func (s Side) String() string {
	switch s {
	case SideBefore:
		return "before"
	case SideAfter:
		return "after"
	default:
		return "auto"
	}
}

// ParseSide maps a wire name onto a Side. Empty input means SideAuto.
func ParseSide(raw string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		return SideAuto, nil
	case "before", "above":
		return SideBefore, nil
	case "after", "below":
		return SideAfter, nil
	default:
		return SideAuto, fmt.Errorf("%w: unknown drop side %q", ErrInvalidMove, raw)
	}
}

// DropTarget is either DropEmpty or DropRelative.
type DropTarget interface {
	isDropTarget()
}

// DropEmpty drops the item on the empty area of a bucket (append).
type DropEmpty struct{}

func (DropEmpty) isDropTarget() {}

// DropRelative drops the item next to a sibling already present in the target bucket.
type DropRelative struct {
	SiblingID string
	Side      Side
}

func (DropRelative) isDropTarget() {}

// Move is one reorder request.
type Move struct {
	Item     Item
	Source   Bucket
	Target   Bucket
	Drop     DropTarget
	Siblings []Item
}

// KeyUpdate assigns a new order key to one item.
type KeyUpdate struct {
	ItemID   string
	OrderKey float64
}

// Result is the placement computed for the moving item.
type Result struct {
	ItemID      string
	BucketKey   string
	OrderKey    float64
	StartDate   *time.Time
	EndDate     *time.Time
	CrossBucket bool
	Changed     bool
	// Rebalanced lists sibling keys rewritten because the gap next to the drop point ran out.
	Rebalanced []KeyUpdate
}

// SortItems orders items by ascending key. Equal keys fall back to creation time and then id so
// iteration stays deterministic. Items without a key sort last.
func SortItems(items []Item) {
	slices.SortStableFunc(items, Compare)
}

// Compare orders two items the way SortItems does.
func Compare(a, b Item) int {
	if a.HasOrderKey != b.HasOrderKey {
		if a.HasOrderKey {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(a.OrderKey, b.OrderKey); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	out := *t
	return &out
}

func equalTimes(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
