package ordering

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Default ordering constants.
const (
	DefaultGap        float64 = 1000
	DefaultSpanDays           = 4
	DefaultMinSpacing float64 = 1
)

// Config tunes key spacing and the default date span for undated items.
type Config struct {
	// Gap is the spacing between appended keys; inserts next to a sibling use at most Gap/2.
	Gap float64
	// DefaultSpanDays is the end-start span given to undated items dropped into a dated bucket.
	DefaultSpanDays int
	// MinSpacing is the smallest half-gap tolerated before the target bucket is rebalanced.
	MinSpacing float64
}

// DefaultConfig returns the default ordering configuration.
func DefaultConfig() Config {
	return Config{
		Gap:             DefaultGap,
		DefaultSpanDays: DefaultSpanDays,
		MinSpacing:      DefaultMinSpacing,
	}
}

// Reorderer computes placements for drag-and-drop moves. It holds no board state.
type Reorderer struct {
	cfg Config
}

// NewReorderer builds a reorderer, filling non-positive config values with defaults.
func NewReorderer(cfg Config) *Reorderer {
	if cfg.Gap <= 0 {
		cfg.Gap = DefaultGap
	}
	if cfg.DefaultSpanDays <= 0 {
		cfg.DefaultSpanDays = DefaultSpanDays
	}
	if cfg.MinSpacing <= 0 {
		cfg.MinSpacing = DefaultMinSpacing
	}
	if cfg.MinSpacing > cfg.Gap/2 {
		cfg.MinSpacing = cfg.Gap / 2
	}
	return &Reorderer{cfg: cfg}
}

// Config returns the effective configuration.
func (r *Reorderer) Config() Config {
	return r.cfg
}

// AppendKey returns the key that places a new item after every keyed sibling.
func (r *Reorderer) AppendKey(siblings []Item) float64 {
	found := false
	var highest float64
	for _, s := range siblings {
		if !s.HasOrderKey {
			continue
		}
		if !found || s.OrderKey > highest {
			highest = s.OrderKey
			found = true
		}
	}
	if !found {
		return r.cfg.Gap
	}
	return highest + r.cfg.Gap
}

// Rebalance spreads items evenly as Gap, 2*Gap, ... in their current order and returns the keys
// that changed.
func (r *Reorderer) Rebalance(items []Item) []KeyUpdate {
	ordered := slices.Clone(items)
	SortItems(ordered)
	updates := make([]KeyUpdate, 0, len(ordered))
	for i, it := range ordered {
		key := r.cfg.Gap * float64(i+1)
		if it.HasOrderKey && it.OrderKey == key {
			continue
		}
		updates = append(updates, KeyUpdate{ItemID: it.ID, OrderKey: key})
	}
	return updates
}

// Reorder computes the new key, bucket and dates for the moving item. Only the moving item is
// affected unless the gap at the drop point is exhausted, in which case Result.Rebalanced carries
// the rewritten sibling keys.
func (r *Reorderer) Reorder(mv Move) (Result, error) {
	item := mv.Item
	if strings.TrimSpace(item.ID) == "" {
		return Result{}, fmt.Errorf("%w: item id is required", ErrInvalidMove)
	}
	target := mv.Target
	if strings.TrimSpace(target.Key) == "" {
		return Result{}, fmt.Errorf("%w: target bucket is required", ErrInvalidMove)
	}
	source := mv.Source
	if source.Key == "" {
		source.Key = item.BucketKey
	}
	if item.BucketKey != source.Key {
		return Result{}, fmt.Errorf("%w: item %s is not in bucket %s", ErrInvalidMove, item.ID, source.Key)
	}

	res := Result{
		ItemID:    item.ID,
		BucketKey: item.BucketKey,
		OrderKey:  item.OrderKey,
		StartDate: cloneTime(item.StartDate),
		EndDate:   cloneTime(item.EndDate),
	}
	crossBucket := target.Key != source.Key
	siblings := siblingsWithout(mv.Siblings, item.ID)

	drop := mv.Drop
	if drop == nil {
		drop = DropEmpty{}
	}
	var p placement
	switch d := drop.(type) {
	case DropEmpty:
		p = placement{pos: len(siblings), appendMode: true}
	case DropRelative:
		if d.SiblingID == item.ID {
			if crossBucket {
				return Result{}, fmt.Errorf("%w: item %s cannot be its own reference in bucket %s", ErrInvalidMove, item.ID, target.Key)
			}
			return res, nil
		}
		idx := slices.IndexFunc(siblings, func(s Item) bool { return s.ID == d.SiblingID })
		if idx < 0 {
			return Result{}, fmt.Errorf("%w: sibling %s is not in bucket %s", ErrInvalidMove, d.SiblingID, target.Key)
		}
		ref := siblings[idx]
		if !item.HasOrderKey || !ref.HasOrderKey {
			p = placement{pos: len(siblings), appendMode: true}
			break
		}
		side := resolveSide(d.Side, item, ref)
		p = placement{pos: idx, side: side}
		if side == SideAfter {
			p.pos = idx + 1
		}
	default:
		return Result{}, fmt.Errorf("%w: unsupported drop target %T", ErrInvalidMove, drop)
	}

	if !crossBucket && item.HasOrderKey && currentIndex(siblings, item) == p.pos {
		// Already in the requested slot.
		return res, nil
	}

	res.OrderKey, res.Rebalanced = r.keyAt(siblings, item, p)
	if crossBucket {
		res.CrossBucket = true
		res.BucketKey = target.Key
		res.StartDate, res.EndDate = r.shiftDates(item, source, target)
	}
	res.Changed = res.CrossBucket ||
		!item.HasOrderKey ||
		res.OrderKey != item.OrderKey ||
		len(res.Rebalanced) > 0 ||
		!equalTimes(res.StartDate, item.StartDate) ||
		!equalTimes(res.EndDate, item.EndDate)
	return res, nil
}

// placement is the index among sorted siblings where the moving item should end up.
type placement struct {
	pos        int
	side       Side
	appendMode bool
}

func (r *Reorderer) keyAt(siblings []Item, item Item, p placement) (float64, []KeyUpdate) {
	if p.appendMode {
		return r.AppendKey(siblings), nil
	}
	half := r.cfg.Gap / 2
	var key float64
	switch p.side {
	case SideBefore:
		upper := siblings[p.pos]
		if p.pos > 0 && siblings[p.pos-1].HasOrderKey {
			half = min(half, (upper.OrderKey-siblings[p.pos-1].OrderKey)/2)
		}
		key = upper.OrderKey - half
	default:
		lower := siblings[p.pos-1]
		if p.pos < len(siblings) && siblings[p.pos].HasOrderKey {
			half = min(half, (siblings[p.pos].OrderKey-lower.OrderKey)/2)
		}
		key = lower.OrderKey + half
	}
	if half < r.cfg.MinSpacing {
		return r.rebalanceAround(siblings, item, p.pos)
	}
	return key, nil
}

// rebalanceAround renumbers the bucket with the moving item inserted at pos.
func (r *Reorderer) rebalanceAround(siblings []Item, item Item, pos int) (float64, []KeyUpdate) {
	ordered := slices.Insert(slices.Clone(siblings), pos, item)
	var key float64
	updates := make([]KeyUpdate, 0, len(siblings))
	for i, it := range ordered {
		next := r.cfg.Gap * float64(i+1)
		if it.ID == item.ID {
			key = next
			continue
		}
		if it.HasOrderKey && it.OrderKey == next {
			continue
		}
		updates = append(updates, KeyUpdate{ItemID: it.ID, OrderKey: next})
	}
	return key, updates
}

// shiftDates moves a dated item by the calendar distance between bucket starts, or gives an
// undated item the default span anchored at the target start.
func (r *Reorderer) shiftDates(item Item, source, target Bucket) (startOut, endOut *time.Time) {
	start, end := cloneTime(item.StartDate), cloneTime(item.EndDate)
	if !target.Dated() {
		return start, end
	}
	if start == nil || end == nil {
		s := civilIn(target.Start)
		e := AddDays(s, r.cfg.DefaultSpanDays)
		return &s, &e
	}
	var delta int
	if source.Dated() {
		delta = CalendarDaysBetween(source.Start, target.Start)
	} else {
		delta = CalendarDaysBetween(*start, target.Start)
	}
	span := end.Sub(*start)
	s := AddDays(*start, delta)
	e := s.Add(span)
	return &s, &e
}

func resolveSide(side Side, item, ref Item) Side {
	if side == SideBefore || side == SideAfter {
		return side
	}
	if item.OrderKey > ref.OrderKey {
		return SideBefore
	}
	return SideAfter
}

// siblingsWithout returns a sorted copy of siblings without the moving item.
func siblingsWithout(siblings []Item, id string) []Item {
	out := make([]Item, 0, len(siblings))
	for _, s := range siblings {
		if s.ID == id {
			continue
		}
		out = append(out, s)
	}
	SortItems(out)
	return out
}

// currentIndex is the slot the item occupies among its sorted siblings.
func currentIndex(siblings []Item, item Item) int {
	n := 0
	for _, s := range siblings {
		if Compare(s, item) < 0 {
			n++
		}
	}
	return n
}

// civilIn truncates t to midnight in its own location.
func civilIn(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
