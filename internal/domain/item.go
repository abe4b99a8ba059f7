package domain

import (
	"math"
	"slices"
	"strings"
	"time"
)

// Priority ranks an item.
type Priority string

// Priority values.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Item is one card on a board. BucketKey names the column (kanban) or week (planning) that
// holds it, and OrderKey positions it inside that bucket. A nil OrderKey sorts last.
type Item struct {
	ID          string
	ProjectID   string
	BucketKey   string
	OrderKey    *float64
	Title       string
	Description string
	Priority    Priority
	Labels      []string
	StartDate   *time.Time
	EndDate     *time.Time

	CreatedByActor string
	UpdatedByActor string
	UpdatedByType  ActorType

	CreatedAt  time.Time
	UpdatedAt  time.Time
	ArchivedAt *time.Time
}

// ItemInput holds input values for item construction.
type ItemInput struct {
	ID          string
	ProjectID   string
	BucketKey   string
	OrderKey    *float64
	Title       string
	Description string
	Priority    Priority
	Labels      []string
	StartDate   *time.Time
	EndDate     *time.Time
	ActorID     string
	ActorType   ActorType
}

// NewItem constructs a validated item.
func NewItem(in ItemInput, now time.Time) (Item, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	in.BucketKey = strings.TrimSpace(in.BucketKey)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	if in.ID == "" || in.ProjectID == "" {
		return Item{}, ErrInvalidID
	}
	if in.BucketKey == "" {
		return Item{}, ErrInvalidBucketKey
	}
	if in.Title == "" {
		return Item{}, ErrInvalidTitle
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !slices.Contains(validPriorities, in.Priority) {
		return Item{}, ErrInvalidPriority
	}
	if err := validateOrderKey(in.OrderKey); err != nil {
		return Item{}, err
	}
	start, end, err := normalizeDateRange(in.StartDate, in.EndDate)
	if err != nil {
		return Item{}, err
	}

	return Item{
		ID:          in.ID,
		ProjectID:   in.ProjectID,
		BucketKey:   in.BucketKey,
		OrderKey:    cloneKey(in.OrderKey),
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Labels:      normalizeLabels(in.Labels),
		StartDate:   start,
		EndDate:     end,

		CreatedByActor: strings.TrimSpace(in.ActorID),
		UpdatedByActor: strings.TrimSpace(in.ActorID),
		UpdatedByType:  NormalizeActorType(in.ActorType),

		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// HasOrderKey reports whether the item has been positioned.
func (i Item) HasOrderKey() bool {
	return i.OrderKey != nil
}

// Key returns the order key, or zero when unset.
func (i Item) Key() float64 {
	if i.OrderKey == nil {
		return 0
	}
	return *i.OrderKey
}

// TouchActor records who made the latest change.
func (i *Item) TouchActor(actorID string, actorType ActorType) {
	if actorID = strings.TrimSpace(actorID); actorID != "" {
		i.UpdatedByActor = actorID
	}
	i.UpdatedByType = NormalizeActorType(actorType)
}

// UpdateDetails replaces the descriptive fields of the item.
func (i *Item) UpdateDetails(title, description string, priority Priority, labels []string, now time.Time) error {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return ErrInvalidTitle
	}
	if priority == "" {
		priority = i.Priority
	}
	if !slices.Contains(validPriorities, priority) {
		return ErrInvalidPriority
	}
	i.Title = title
	i.Description = description
	i.Priority = priority
	i.Labels = normalizeLabels(labels)
	i.UpdatedAt = now.UTC()
	return nil
}

// SetDates sets or clears the item's date range. Either both ends are set or neither.
func (i *Item) SetDates(start, end *time.Time, now time.Time) error {
	s, e, err := normalizeDateRange(start, end)
	if err != nil {
		return err
	}
	i.StartDate = s
	i.EndDate = e
	i.UpdatedAt = now.UTC()
	return nil
}

// ApplyPlacement records the outcome of a move. Dates are stored as given; the mover has
// already decided whether they shift.
func (i *Item) ApplyPlacement(bucketKey string, key float64, start, end *time.Time, now time.Time) error {
	bucketKey = strings.TrimSpace(bucketKey)
	if bucketKey == "" {
		return ErrInvalidBucketKey
	}
	if err := validateOrderKey(&key); err != nil {
		return err
	}
	i.BucketKey = bucketKey
	i.OrderKey = &key
	i.StartDate = cloneTime(start)
	i.EndDate = cloneTime(end)
	i.UpdatedAt = now.UTC()
	return nil
}

// Archive archives the item.
func (i *Item) Archive(now time.Time) {
	ts := now.UTC()
	i.ArchivedAt = &ts
	i.UpdatedAt = ts
}

// Restore restores an archived item.
func (i *Item) Restore(now time.Time) {
	i.ArchivedAt = nil
	i.UpdatedAt = now.UTC()
}

func validateOrderKey(key *float64) error {
	if key == nil {
		return nil
	}
	if math.IsNaN(*key) || math.IsInf(*key, 0) {
		return ErrInvalidOrderKey
	}
	return nil
}

func normalizeDateRange(start, end *time.Time) (*time.Time, *time.Time, error) {
	if start == nil && end == nil {
		return nil, nil, nil
	}
	if start == nil || end == nil {
		return nil, nil, ErrInvalidDateRange
	}
	s, e := start.UTC(), end.UTC()
	if e.Before(s) {
		return nil, nil, ErrInvalidDateRange
	}
	return &s, &e, nil
}

func normalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := map[string]struct{}{}
	for _, raw := range labels {
		label := strings.ToLower(strings.TrimSpace(raw))
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	slices.Sort(out)
	return out
}

func cloneKey(k *float64) *float64 {
	if k == nil {
		return nil
	}
	v := *k
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
