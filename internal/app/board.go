package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/hylla/plank/internal/ordering"
)

// BoardPersister stores a placement computed by a Board.
type BoardPersister interface {
	PersistMove(context.Context, ordering.Result) error
}

// Board is an optimistic, in-memory view of one project's ordering. Moves are applied locally
// before they are persisted. A failed write puts each entry it touched back to the last persisted
// value, unless a later move has written that entry since.
type Board struct {
	mu        sync.Mutex
	reorderer *ordering.Reorderer
	persister BoardPersister
	buckets   map[string]ordering.Bucket
	items     map[string]ordering.Item
	// committed holds the last value known to be stored for each item.
	committed map[string]ordering.Item
	// rev is bumped on every local write; seq is the last revision handed out.
	rev map[string]uint64
	seq uint64
}

// boardWrite is one entry a move wrote, tagged with the revision it wrote it at.
type boardWrite struct {
	item ordering.Item
	rev  uint64
}

// NewBoard builds a board over the given buckets and items.
func NewBoard(reorderer *ordering.Reorderer, persister BoardPersister, buckets []ordering.Bucket, items []ordering.Item) *Board {
	if reorderer == nil {
		reorderer = ordering.NewReorderer(ordering.DefaultConfig())
	}
	b := &Board{
		reorderer: reorderer,
		persister: persister,
		buckets:   make(map[string]ordering.Bucket, len(buckets)),
		items:     make(map[string]ordering.Item, len(items)),
		committed: make(map[string]ordering.Item, len(items)),
		rev:       make(map[string]uint64, len(items)),
	}
	for _, bucket := range buckets {
		b.buckets[bucket.Key] = bucket
	}
	for _, item := range items {
		b.items[item.ID] = item
		b.committed[item.ID] = item
	}
	return b
}

// Move places itemID into targetBucket according to drop. The new placement is visible through
// Items immediately; if persisting fails it is rolled back and the error returned.
func (b *Board) Move(ctx context.Context, itemID, targetBucket string, drop ordering.DropTarget) (ordering.Result, error) {
	b.mu.Lock()
	item, ok := b.items[itemID]
	if !ok {
		b.mu.Unlock()
		return ordering.Result{}, fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	target, ok := b.buckets[targetBucket]
	if !ok {
		b.mu.Unlock()
		return ordering.Result{}, fmt.Errorf("%w: %w: %s", ordering.ErrInvalidMove, ErrUnknownBucket, targetBucket)
	}
	source, ok := b.buckets[item.BucketKey]
	if !ok {
		source = ordering.Bucket{Key: item.BucketKey}
	}
	res, err := b.reorderer.Reorder(ordering.Move{
		Item:     item,
		Source:   source,
		Target:   target,
		Drop:     drop,
		Siblings: b.bucketLocked(target.Key),
	})
	if err != nil || !res.Changed {
		b.mu.Unlock()
		return res, err
	}
	writes := b.applyLocked(res)
	b.mu.Unlock()

	if b.persister != nil {
		err = b.persister.PersistMove(ctx, res)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		for _, w := range writes {
			if b.rev[w.item.ID] == w.rev {
				b.items[w.item.ID] = b.committed[w.item.ID]
			}
		}
		return ordering.Result{}, fmt.Errorf("persist move of %s: %w", itemID, err)
	}
	for _, w := range writes {
		b.committed[w.item.ID] = w.item
	}
	return res, nil
}

// Items returns the items of one bucket in display order.
func (b *Board) Items(bucketKey string) []ordering.Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bucketLocked(bucketKey)
}

// Item returns one item by id.
func (b *Board) Item(itemID string) (ordering.Item, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	item, ok := b.items[itemID]
	return item, ok
}

func (b *Board) bucketLocked(bucketKey string) []ordering.Item {
	out := make([]ordering.Item, 0)
	for _, item := range b.items {
		if item.BucketKey == bucketKey {
			out = append(out, item)
		}
	}
	ordering.SortItems(out)
	return out
}

// applyLocked writes res into the board and returns every entry it wrote.
func (b *Board) applyLocked(res ordering.Result) []boardWrite {
	writes := make([]boardWrite, 0, len(res.Rebalanced)+1)
	put := func(item ordering.Item) {
		b.seq++
		b.items[item.ID] = item
		b.rev[item.ID] = b.seq
		writes = append(writes, boardWrite{item: item, rev: b.seq})
	}

	item := b.items[res.ItemID]
	item.BucketKey = res.BucketKey
	item.OrderKey = res.OrderKey
	item.HasOrderKey = true
	item.StartDate = res.StartDate
	item.EndDate = res.EndDate
	put(item)

	for _, update := range res.Rebalanced {
		sibling, ok := b.items[update.ItemID]
		if !ok {
			continue
		}
		sibling.OrderKey = update.OrderKey
		sibling.HasOrderKey = true
		put(sibling)
	}
	return writes
}
