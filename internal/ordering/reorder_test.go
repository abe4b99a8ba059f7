package ordering

import (
	"errors"
	"slices"
	"testing"
	"time"
)

// date builds a UTC calendar date for fixtures.
func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// keyed builds one keyed fixture item.
func keyed(id, bucket string, key float64) Item {
	return Item{ID: id, BucketKey: bucket, OrderKey: key, HasOrderKey: true}
}

// applyMove returns the bucket contents after applying a result, sorted by key.
func applyMove(siblings []Item, moving Item, res Result) []string {
	items := make([]Item, 0, len(siblings)+1)
	rebalanced := map[string]float64{}
	for _, u := range res.Rebalanced {
		rebalanced[u.ItemID] = u.OrderKey
	}
	for _, s := range siblings {
		if s.ID == moving.ID {
			continue
		}
		if key, ok := rebalanced[s.ID]; ok {
			s.OrderKey = key
		}
		items = append(items, s)
	}
	moving.OrderKey = res.OrderKey
	moving.HasOrderKey = true
	moving.BucketKey = res.BucketKey
	items = append(items, moving)
	SortItems(items)
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

// TestReorderMoveAfterLastSibling verifies the A,B,C -> A,C,B scenario with a half-gap key.
func TestReorderMoveAfterLastSibling(t *testing.T) {
	r := NewReorderer(Config{})
	a, b, c := keyed("A", "W1", 1000), keyed("B", "W1", 2000), keyed("C", "W1", 3000)
	siblings := []Item{a, c}

	res, err := r.Reorder(Move{
		Item:     b,
		Source:   Bucket{Key: "W1"},
		Target:   Bucket{Key: "W1"},
		Drop:     DropRelative{SiblingID: "C", Side: SideAfter},
		Siblings: siblings,
	})
	if err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	if res.OrderKey != 3500 {
		t.Fatalf("order key = %v, want 3500", res.OrderKey)
	}
	if !res.Changed || res.CrossBucket {
		t.Fatalf("unexpected flags changed=%t cross=%t", res.Changed, res.CrossBucket)
	}
	if got := applyMove(siblings, b, res); !slices.Equal(got, []string{"A", "C", "B"}) {
		t.Fatalf("order = %v, want [A C B]", got)
	}
}

// TestReorderAutoSideFollowsPreviousKey verifies the direction derived from the old key.
func TestReorderAutoSideFollowsPreviousKey(t *testing.T) {
	r := NewReorderer(Config{})
	a, b, c := keyed("A", "W1", 1000), keyed("B", "W1", 2000), keyed("C", "W1", 3000)

	down, err := r.Reorder(Move{
		Item:     a,
		Source:   Bucket{Key: "W1"},
		Target:   Bucket{Key: "W1"},
		Drop:     DropRelative{SiblingID: "C"},
		Siblings: []Item{b, c},
	})
	if err != nil {
		t.Fatalf("Reorder(down) error = %v", err)
	}
	if down.OrderKey != 3500 {
		t.Fatalf("downward key = %v, want 3500", down.OrderKey)
	}

	up, err := r.Reorder(Move{
		Item:     c,
		Source:   Bucket{Key: "W1"},
		Target:   Bucket{Key: "W1"},
		Drop:     DropRelative{SiblingID: "A"},
		Siblings: []Item{a, b},
	})
	if err != nil {
		t.Fatalf("Reorder(up) error = %v", err)
	}
	if up.OrderKey != 500 {
		t.Fatalf("upward key = %v, want 500", up.OrderKey)
	}
}

// TestReorderLandsImmediatelyNextToReference verifies the half-gap is narrowed to the neighbour.
func TestReorderLandsImmediatelyNextToReference(t *testing.T) {
	r := NewReorderer(Config{})
	siblings := []Item{keyed("A", "W1", 1000), keyed("B", "W1", 1200), keyed("C", "W1", 1300)}
	moving := keyed("D", "W1", 5000)

	cases := []struct {
		name string
		drop DropRelative
		want []string
	}{
		{name: "after first", drop: DropRelative{SiblingID: "A", Side: SideAfter}, want: []string{"A", "D", "B", "C"}},
		{name: "before last", drop: DropRelative{SiblingID: "C", Side: SideBefore}, want: []string{"A", "B", "D", "C"}},
		{name: "before first", drop: DropRelative{SiblingID: "A", Side: SideBefore}, want: []string{"D", "A", "B", "C"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := r.Reorder(Move{
				Item:     moving,
				Source:   Bucket{Key: "W1"},
				Target:   Bucket{Key: "W1"},
				Drop:     tc.drop,
				Siblings: siblings,
			})
			if err != nil {
				t.Fatalf("Reorder() error = %v", err)
			}
			if got := applyMove(siblings, moving, res); !slices.Equal(got, tc.want) {
				t.Fatalf("order = %v, want %v", got, tc.want)
			}
			if len(res.Rebalanced) != 0 {
				t.Fatalf("unexpected rebalance %#v", res.Rebalanced)
			}
		})
	}
}

// TestReorderDropOnSelfIsNoop verifies dropping an item onto itself changes nothing.
func TestReorderDropOnSelfIsNoop(t *testing.T) {
	r := NewReorderer(Config{})
	b := keyed("B", "W1", 2000)
	res, err := r.Reorder(Move{
		Item:     b,
		Source:   Bucket{Key: "W1"},
		Target:   Bucket{Key: "W1"},
		Drop:     DropRelative{SiblingID: "B", Side: SideBefore},
		Siblings: []Item{keyed("A", "W1", 1000), b},
	})
	if err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	if res.Changed || res.OrderKey != 2000 || res.BucketKey != "W1" {
		t.Fatalf("expected no-op, got %#v", res)
	}
}

// TestReorderOriginalSlotIsNoop verifies dropping back into the current slot changes nothing.
func TestReorderOriginalSlotIsNoop(t *testing.T) {
	r := NewReorderer(Config{})
	a, b, c := keyed("A", "W1", 1000), keyed("B", "W1", 2000), keyed("C", "W1", 3000)
	cases := []DropTarget{
		DropRelative{SiblingID: "A", Side: SideAfter},
		DropRelative{SiblingID: "C", Side: SideBefore},
	}
	for _, drop := range cases {
		res, err := r.Reorder(Move{
			Item:     b,
			Source:   Bucket{Key: "W1"},
			Target:   Bucket{Key: "W1"},
			Drop:     drop,
			Siblings: []Item{a, b, c},
		})
		if err != nil {
			t.Fatalf("Reorder(%#v) error = %v", drop, err)
		}
		if res.Changed || res.OrderKey != 2000 {
			t.Fatalf("Reorder(%#v) = %#v, want no-op", drop, res)
		}
	}

	last, err := r.Reorder(Move{
		Item:     c,
		Source:   Bucket{Key: "W1"},
		Target:   Bucket{Key: "W1"},
		Drop:     DropEmpty{},
		Siblings: []Item{a, b, c},
	})
	if err != nil {
		t.Fatalf("Reorder(append) error = %v", err)
	}
	if last.Changed {
		t.Fatalf("append of last item should be a no-op, got %#v", last)
	}
}

// TestReorderRepeatedMoveIsIdempotent verifies a second identical move has no further effect.
func TestReorderRepeatedMoveIsIdempotent(t *testing.T) {
	r := NewReorderer(Config{})
	a, b, c := keyed("A", "W1", 1000), keyed("B", "W1", 2000), keyed("C", "W1", 3000)
	mv := Move{
		Item:     b,
		Source:   Bucket{Key: "W1"},
		Target:   Bucket{Key: "W1"},
		Drop:     DropRelative{SiblingID: "C", Side: SideAfter},
		Siblings: []Item{a, c},
	}
	first, err := r.Reorder(mv)
	if err != nil {
		t.Fatalf("Reorder(first) error = %v", err)
	}
	mv.Item.OrderKey = first.OrderKey
	second, err := r.Reorder(mv)
	if err != nil {
		t.Fatalf("Reorder(second) error = %v", err)
	}
	if second.Changed || second.OrderKey != first.OrderKey {
		t.Fatalf("second move = %#v, want unchanged key %v", second, first.OrderKey)
	}
}

// TestReorderAppendToEmptyBucket verifies the base key for an empty target bucket.
func TestReorderAppendToEmptyBucket(t *testing.T) {
	r := NewReorderer(Config{})
	for _, prev := range []float64{1, 2000, 987654} {
		res, err := r.Reorder(Move{
			Item:   keyed("X", "todo", prev),
			Source: Bucket{Key: "todo"},
			Target: Bucket{Key: "done"},
			Drop:   DropEmpty{},
		})
		if err != nil {
			t.Fatalf("Reorder() error = %v", err)
		}
		if res.OrderKey != DefaultGap {
			t.Fatalf("order key = %v, want %v", res.OrderKey, DefaultGap)
		}
		if res.BucketKey != "done" || !res.CrossBucket || !res.Changed {
			t.Fatalf("unexpected cross-bucket result %#v", res)
		}
	}
}

// TestReorderAppendAfterMaximum verifies append uses max(sibling keys) + gap.
func TestReorderAppendAfterMaximum(t *testing.T) {
	r := NewReorderer(Config{Gap: 100})
	res, err := r.Reorder(Move{
		Item:     keyed("X", "a", 10),
		Source:   Bucket{Key: "a"},
		Target:   Bucket{Key: "b"},
		Drop:     nil,
		Siblings: []Item{keyed("P", "b", 40), keyed("Q", "b", 700), keyed("R", "b", 5)},
	})
	if err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	if res.OrderKey != 800 {
		t.Fatalf("order key = %v, want 800", res.OrderKey)
	}
}

// TestReorderMissingKeysFallBackToAppend verifies unkeyed items and references append.
func TestReorderMissingKeysFallBackToAppend(t *testing.T) {
	r := NewReorderer(Config{})
	res, err := r.Reorder(Move{
		Item:     Item{ID: "N", BucketKey: "todo"},
		Source:   Bucket{Key: "todo"},
		Target:   Bucket{Key: "todo"},
		Drop:     DropRelative{SiblingID: "A", Side: SideBefore},
		Siblings: []Item{keyed("A", "todo", 1000), keyed("B", "todo", 2000)},
	})
	if err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	if res.OrderKey != 3000 || !res.Changed {
		t.Fatalf("unexpected result %#v, want append key 3000", res)
	}
}

// TestReorderCrossBucketShiftsDates verifies the W1 -> W2 scenario and duration invariance.
func TestReorderCrossBucketShiftsDates(t *testing.T) {
	r := NewReorderer(Config{})
	start, end := date(2024, time.January, 1), date(2024, time.January, 5)
	d := Item{ID: "D", BucketKey: "W1", OrderKey: 1000, HasOrderKey: true, StartDate: &start, EndDate: &end}

	res, err := r.Reorder(Move{
		Item:   d,
		Source: Bucket{Key: "W1", Start: date(2024, time.January, 1), End: date(2024, time.January, 7)},
		Target: Bucket{Key: "W2", Start: date(2024, time.January, 8), End: date(2024, time.January, 14)},
		Drop:   DropEmpty{},
	})
	if err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	if res.StartDate == nil || !res.StartDate.Equal(date(2024, time.January, 8)) {
		t.Fatalf("start = %v, want 2024-01-08", res.StartDate)
	}
	if res.EndDate == nil || !res.EndDate.Equal(date(2024, time.January, 12)) {
		t.Fatalf("end = %v, want 2024-01-12", res.EndDate)
	}
	if got, want := res.EndDate.Sub(*res.StartDate), end.Sub(start); got != want {
		t.Fatalf("duration = %v, want %v", got, want)
	}
	if !start.Equal(date(2024, time.January, 1)) {
		t.Fatal("input start date was mutated")
	}
}

// TestReorderDurationInvariance verifies exact duration preservation across many shapes.
func TestReorderDurationInvariance(t *testing.T) {
	r := NewReorderer(Config{})
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		berlin = time.FixedZone("CET", 3600)
	}
	cases := []struct {
		name       string
		start, end time.Time
		src, dst   time.Time
	}{
		{name: "same day", start: date(2024, 3, 4), end: date(2024, 3, 4), src: date(2024, 3, 4), dst: date(2024, 3, 25)},
		{name: "backwards", start: date(2024, 3, 6), end: date(2024, 3, 20), src: date(2024, 3, 4), dst: date(2024, 2, 5)},
		{name: "with times", start: time.Date(2024, 3, 29, 9, 30, 0, 0, berlin), end: time.Date(2024, 4, 2, 17, 0, 0, 0, berlin), src: date(2024, 3, 25), dst: date(2024, 4, 1)},
		{name: "year boundary", start: date(2024, 12, 30), end: date(2025, 1, 3), src: date(2024, 12, 30), dst: date(2025, 1, 6)},
		{name: "malformed range", start: date(2024, 5, 10), end: date(2024, 5, 7), src: date(2024, 5, 6), dst: date(2024, 5, 13)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end := tc.start, tc.end
			res, err := r.Reorder(Move{
				Item:   Item{ID: "X", BucketKey: "src", OrderKey: 1, HasOrderKey: true, StartDate: &start, EndDate: &end},
				Source: Bucket{Key: "src", Start: tc.src},
				Target: Bucket{Key: "dst", Start: tc.dst},
			})
			if err != nil {
				t.Fatalf("Reorder() error = %v", err)
			}
			if got, want := res.EndDate.Sub(*res.StartDate), tc.end.Sub(tc.start); got != want {
				t.Fatalf("duration = %v, want %v", got, want)
			}
			if got, want := CalendarDaysBetween(tc.start, *res.StartDate), CalendarDaysBetween(tc.src, tc.dst); got != want {
				t.Fatalf("shift = %d days, want %d", got, want)
			}
		})
	}
}

// TestReorderUndatedItemGetsDefaultSpan verifies undated items adopt the target bucket range.
func TestReorderUndatedItemGetsDefaultSpan(t *testing.T) {
	r := NewReorderer(Config{DefaultSpanDays: 2})
	res, err := r.Reorder(Move{
		Item:   keyed("X", "backlog", 1000),
		Source: Bucket{Key: "backlog"},
		Target: Bucket{Key: "2024-W02", Start: date(2024, time.January, 8)},
	})
	if err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	if res.StartDate == nil || !res.StartDate.Equal(date(2024, time.January, 8)) {
		t.Fatalf("start = %v, want 2024-01-08", res.StartDate)
	}
	if res.EndDate == nil || !res.EndDate.Equal(date(2024, time.January, 10)) {
		t.Fatalf("end = %v, want 2024-01-10", res.EndDate)
	}
}

// TestReorderUndatedTargetKeepsDates verifies kanban columns never touch dates.
func TestReorderUndatedTargetKeepsDates(t *testing.T) {
	r := NewReorderer(Config{})
	start, end := date(2024, 1, 1), date(2024, 1, 3)
	res, err := r.Reorder(Move{
		Item:   Item{ID: "X", BucketKey: "todo", OrderKey: 1, HasOrderKey: true, StartDate: &start, EndDate: &end},
		Source: Bucket{Key: "todo"},
		Target: Bucket{Key: "done"},
	})
	if err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	if !res.StartDate.Equal(start) || !res.EndDate.Equal(end) {
		t.Fatalf("dates changed: %v - %v", res.StartDate, res.EndDate)
	}
}

// TestReorderRebalancesExhaustedGap verifies clustered keys trigger a bucket rebalance.
func TestReorderRebalancesExhaustedGap(t *testing.T) {
	r := NewReorderer(Config{})
	siblings := []Item{keyed("A", "W1", 1000), keyed("B", "W1", 1001), keyed("C", "W1", 4000)}
	moving := keyed("D", "W1", 9000)

	res, err := r.Reorder(Move{
		Item:     moving,
		Source:   Bucket{Key: "W1"},
		Target:   Bucket{Key: "W1"},
		Drop:     DropRelative{SiblingID: "B", Side: SideBefore},
		Siblings: siblings,
	})
	if err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	if res.OrderKey != 2000 {
		t.Fatalf("order key = %v, want 2000", res.OrderKey)
	}
	want := []KeyUpdate{{ItemID: "B", OrderKey: 3000}}
	if !slices.Equal(res.Rebalanced, want) {
		t.Fatalf("rebalanced = %#v, want %#v", res.Rebalanced, want)
	}
	if got := applyMove(siblings, moving, res); !slices.Equal(got, []string{"A", "D", "B", "C"}) {
		t.Fatalf("order = %v, want [A D B C]", got)
	}
}

// TestReorderCollidingKeysStayDeterministic verifies ties sort by creation time then id.
func TestReorderCollidingKeysStayDeterministic(t *testing.T) {
	base := date(2024, 1, 1)
	items := []Item{
		{ID: "b", OrderKey: 5, HasOrderKey: true, CreatedAt: base},
		{ID: "c", OrderKey: 5, HasOrderKey: true, CreatedAt: base.Add(-time.Hour)},
		{ID: "a", OrderKey: 5, HasOrderKey: true, CreatedAt: base},
		{ID: "z", OrderKey: 1, HasOrderKey: true, CreatedAt: base},
		{ID: "n"},
	}
	SortItems(items)
	got := make([]string, 0, len(items))
	for _, it := range items {
		got = append(got, it.ID)
	}
	if !slices.Equal(got, []string{"z", "c", "a", "b", "n"}) {
		t.Fatalf("order = %v", got)
	}

	r := NewReorderer(Config{})
	res, err := r.Reorder(Move{
		Item:     keyed("m", "W1", 100),
		Source:   Bucket{Key: "W1"},
		Target:   Bucket{Key: "W1"},
		Drop:     DropRelative{SiblingID: "b", Side: SideBefore},
		Siblings: []Item{keyed("a", "W1", 500), keyed("b", "W1", 500)},
	})
	if err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	if len(res.Rebalanced) == 0 {
		t.Fatal("expected a rebalance for colliding neighbours")
	}
}

// TestReorderInvalidMoves verifies fail-fast validation.
func TestReorderInvalidMoves(t *testing.T) {
	r := NewReorderer(Config{})
	cases := []struct {
		name string
		mv   Move
	}{
		{name: "missing item id", mv: Move{Item: Item{BucketKey: "a"}, Target: Bucket{Key: "a"}}},
		{name: "missing target", mv: Move{Item: keyed("x", "a", 1)}},
		{name: "wrong source", mv: Move{Item: keyed("x", "a", 1), Source: Bucket{Key: "b"}, Target: Bucket{Key: "b"}}},
		{name: "unknown sibling", mv: Move{
			Item:     keyed("x", "a", 1),
			Target:   Bucket{Key: "a"},
			Drop:     DropRelative{SiblingID: "ghost"},
			Siblings: []Item{keyed("y", "a", 2)},
		}},
		{name: "self reference across buckets", mv: Move{
			Item:   keyed("x", "a", 1),
			Target: Bucket{Key: "b"},
			Drop:   DropRelative{SiblingID: "x"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Reorder(tc.mv)
			if !errors.Is(err, ErrInvalidMove) {
				t.Fatalf("Reorder() error = %v, want ErrInvalidMove", err)
			}
		})
	}
}

// TestRebalanceSpreadsKeys verifies the explicit rebalance pass.
func TestRebalanceSpreadsKeys(t *testing.T) {
	r := NewReorderer(Config{Gap: 10})
	updates := r.Rebalance([]Item{keyed("c", "x", 3), keyed("a", "x", 1), keyed("b", "x", 20), {ID: "n"}})
	want := []KeyUpdate{
		{ItemID: "a", OrderKey: 10},
		{ItemID: "c", OrderKey: 20},
		{ItemID: "b", OrderKey: 30},
		{ItemID: "n", OrderKey: 40},
	}
	if !slices.Equal(updates, want) {
		t.Fatalf("Rebalance() = %#v, want %#v", updates, want)
	}
	if again := r.Rebalance([]Item{keyed("a", "x", 10), keyed("b", "x", 20)}); len(again) != 0 {
		t.Fatalf("expected balanced input to need no updates, got %#v", again)
	}
}

// TestParseSide verifies wire-name parsing.
func TestParseSide(t *testing.T) {
	cases := map[string]Side{"": SideAuto, "auto": SideAuto, "Before": SideBefore, "above": SideBefore, "after": SideAfter, " below ": SideAfter}
	for raw, want := range cases {
		got, err := ParseSide(raw)
		if err != nil {
			t.Fatalf("ParseSide(%q) error = %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseSide(%q) = %v, want %v", raw, got, want)
		}
	}
	if _, err := ParseSide("sideways"); err == nil {
		t.Fatal("expected error for unknown side")
	}
}
