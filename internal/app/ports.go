package app

import (
	"context"

	"github.com/hylla/plank/internal/domain"
)

// OrderKeyUpdate assigns a new order key to one persisted item.
type OrderKeyUpdate struct {
	ItemID   string
	OrderKey float64
}

// Repository represents repository data used by this package.
type Repository interface {
	CreateProject(context.Context, domain.Project) error
	UpdateProject(context.Context, domain.Project) error
	GetProject(context.Context, string) (domain.Project, error)
	ListProjects(context.Context, bool) ([]domain.Project, error)

	CreateColumn(context.Context, domain.Column) error
	UpdateColumn(context.Context, domain.Column) error
	ListColumns(context.Context, string, bool) ([]domain.Column, error)

	CreateItem(context.Context, domain.Item) error
	UpdateItem(context.Context, domain.Item) error
	GetItem(context.Context, string) (domain.Item, error)
	ListItems(context.Context, string, bool) ([]domain.Item, error)
	DeleteItem(context.Context, string) error

	// MoveItem stores the moved item and any rebalanced sibling keys atomically.
	MoveItem(context.Context, domain.Item, []OrderKeyUpdate) error
	// ApplyOrderKeys rewrites keys inside one bucket atomically.
	ApplyOrderKeys(context.Context, string, string, []OrderKeyUpdate) error

	ListProjectChangeEvents(context.Context, string, int) ([]domain.ChangeEvent, error)
}
