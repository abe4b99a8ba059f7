// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrInvalidMove reports a drag-and-drop request that was rejected without persisting anything.
var ErrInvalidMove = errors.New("invalid move")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrUnavailable reports a surface with no backing service.
var ErrUnavailable = errors.New("service unavailable")

// Project is the transport view of one board.
type Project struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Board       string     `json:"board"`
	PlanStart   *time.Time `json:"plan_start,omitempty"`
	PlanEnd     *time.Time `json:"plan_end,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
}

// Bucket is one column or planning week.
type Bucket struct {
	Key   string     `json:"key"`
	Name  string     `json:"name"`
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Item is the transport view of one board item.
type Item struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	BucketKey   string     `json:"bucket_key"`
	OrderKey    *float64   `json:"order_key,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority"`
	Labels      []string   `json:"labels,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
}

// KeyUpdate reports one sibling key rewritten by a rebalance.
type KeyUpdate struct {
	ItemID   string  `json:"item_id"`
	OrderKey float64 `json:"order_key"`
}

// MoveResult reports the outcome of one move.
type MoveResult struct {
	Item       Item        `json:"item"`
	Kind       string      `json:"kind"`
	Rebalanced []KeyUpdate `json:"rebalanced,omitempty"`
}

// RebalanceResult reports the keys one bucket rebalance rewrote.
type RebalanceResult struct {
	ProjectID string      `json:"project_id"`
	BucketKey string      `json:"bucket_key"`
	Updated   []KeyUpdate `json:"updated"`
}

// ChangeEvent is one ledger record.
type ChangeEvent struct {
	ID         int64             `json:"id"`
	ProjectID  string            `json:"project_id"`
	ItemID     string            `json:"item_id,omitempty"`
	Operation  string            `json:"operation"`
	ActorID    string            `json:"actor_id"`
	ActorType  string            `json:"actor_type"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// CreateProjectRequest captures input for a new board.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Board       string `json:"board,omitempty"`
	PlanStart   string `json:"plan_start,omitempty"`
	PlanEnd     string `json:"plan_end,omitempty"`
}

// CreateItemRequest captures input for a new item. Dates are RFC3339 or YYYY-MM-DD.
type CreateItemRequest struct {
	ProjectID   string   `json:"project_id"`
	BucketKey   string   `json:"bucket_key,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	ActorID     string   `json:"actor_id,omitempty"`
	ActorType   string   `json:"actor_type,omitempty"`
}

// MoveItemRequest captures one drag-and-drop request. An empty SiblingID drops onto the bucket.
type MoveItemRequest struct {
	ItemID    string `json:"item_id"`
	ToBucket  string `json:"to_bucket,omitempty"`
	SiblingID string `json:"sibling_id,omitempty"`
	Side      string `json:"side,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
	ActorType string `json:"actor_type,omitempty"`
}

// BoardService is the surface both transports expose.
type BoardService interface {
	ListProjects(ctx context.Context, includeArchived bool) ([]Project, error)
	CreateProject(ctx context.Context, in CreateProjectRequest) (Project, error)
	ListBuckets(ctx context.Context, projectID string) ([]Bucket, error)
	ListItems(ctx context.Context, projectID, bucketKey string) ([]Item, error)
	CreateItem(ctx context.Context, in CreateItemRequest) (Item, error)
	MoveItem(ctx context.Context, in MoveItemRequest) (MoveResult, error)
	RebalanceBucket(ctx context.Context, projectID, bucketKey string) (RebalanceResult, error)
	DeleteItem(ctx context.Context, itemID, mode string) error
	ListChangeEvents(ctx context.Context, projectID string, limit int) ([]ChangeEvent, error)
}
