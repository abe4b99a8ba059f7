package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/plank/internal/app"
	"github.com/hylla/plank/internal/domain"
	"github.com/hylla/plank/internal/ordering"
)

// defaultServeActor attributes writes that arrive without an actor id.
const defaultServeActor = "plank-serve"

// AppServiceAdapter maps transport contracts onto app.Service.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// ListProjects lists boards.
func (a *AppServiceAdapter) ListProjects(ctx context.Context, includeArchived bool) ([]Project, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	projects, err := a.service.ListProjects(ctx, includeArchived)
	if err != nil {
		return nil, mapAppError("list projects", err)
	}
	out := make([]Project, 0, len(projects))
	for _, project := range projects {
		out = append(out, mapProject(project))
	}
	return out, nil
}

// CreateProject creates one kanban or planning board.
func (a *AppServiceAdapter) CreateProject(ctx context.Context, in CreateProjectRequest) (Project, error) {
	if err := a.ready(); err != nil {
		return Project{}, err
	}
	board, err := domain.ParseBoardKind(in.Board)
	if err != nil {
		return Project{}, fmt.Errorf("create project: %w", errors.Join(ErrInvalidRequest, err))
	}
	start, err := parseDate("plan_start", in.PlanStart)
	if err != nil {
		return Project{}, err
	}
	end, err := parseDate("plan_end", in.PlanEnd)
	if err != nil {
		return Project{}, err
	}
	project, err := a.service.CreateProject(ctx, app.CreateProjectInput{
		Name:        in.Name,
		Description: in.Description,
		Board:       board,
		PlanStart:   start,
		PlanEnd:     end,
	})
	if err != nil {
		return Project{}, mapAppError("create project", err)
	}
	return mapProject(project), nil
}

// ListBuckets lists the columns or weeks of one board.
func (a *AppServiceAdapter) ListBuckets(ctx context.Context, projectID string) ([]Bucket, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	if err := requireID("project_id", projectID); err != nil {
		return nil, err
	}
	buckets, err := a.service.ListBuckets(ctx, projectID)
	if err != nil {
		return nil, mapAppError("list buckets", err)
	}
	out := make([]Bucket, 0, len(buckets))
	for _, bucket := range buckets {
		out = append(out, mapBucket(bucket))
	}
	return out, nil
}

// ListItems lists active items of a board, optionally limited to one bucket.
func (a *AppServiceAdapter) ListItems(ctx context.Context, projectID, bucketKey string) ([]Item, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	if err := requireID("project_id", projectID); err != nil {
		return nil, err
	}
	var (
		items []domain.Item
		err   error
	)
	if strings.TrimSpace(bucketKey) == "" {
		items, err = a.service.ListItems(ctx, projectID, false)
	} else {
		items, err = a.service.ListBucketItems(ctx, projectID, bucketKey)
	}
	if err != nil {
		return nil, mapAppError("list items", err)
	}
	return mapItems(items), nil
}

// CreateItem appends a new item to a bucket.
func (a *AppServiceAdapter) CreateItem(ctx context.Context, in CreateItemRequest) (Item, error) {
	if err := a.ready(); err != nil {
		return Item{}, err
	}
	if err := requireID("project_id", in.ProjectID); err != nil {
		return Item{}, err
	}
	start, err := parseDateTime("start_date", in.StartDate)
	if err != nil {
		return Item{}, err
	}
	end, err := parseDateTime("end_date", in.EndDate)
	if err != nil {
		return Item{}, err
	}
	item, err := a.service.CreateItem(ctx, app.CreateItemInput{
		ProjectID:   in.ProjectID,
		BucketKey:   in.BucketKey,
		Title:       in.Title,
		Description: in.Description,
		Priority:    domain.Priority(strings.ToLower(strings.TrimSpace(in.Priority))),
		Labels:      in.Labels,
		StartDate:   start,
		EndDate:     end,
		ActorID:     actorOrDefault(in.ActorID),
		ActorType:   domain.ActorType(in.ActorType),
	})
	if err != nil {
		return Item{}, mapAppError("create item", err)
	}
	return mapItem(item), nil
}

// MoveItem applies one drag-and-drop request.
func (a *AppServiceAdapter) MoveItem(ctx context.Context, in MoveItemRequest) (MoveResult, error) {
	if err := a.ready(); err != nil {
		return MoveResult{}, err
	}
	if err := requireID("item_id", in.ItemID); err != nil {
		return MoveResult{}, err
	}
	side, err := ordering.ParseSide(in.Side)
	if err != nil {
		return MoveResult{}, mapAppError("move item", err)
	}
	res, err := a.service.MoveItem(ctx, app.MoveItemInput{
		ItemID:    in.ItemID,
		ToBucket:  in.ToBucket,
		SiblingID: in.SiblingID,
		Side:      side,
		ActorID:   actorOrDefault(in.ActorID),
		ActorType: domain.ActorType(in.ActorType),
	})
	if err != nil {
		return MoveResult{}, mapAppError("move item", err)
	}
	out := MoveResult{
		Item: mapItem(res.Item),
		Kind: string(res.Kind()),
	}
	for _, update := range res.Placement.Rebalanced {
		out.Rebalanced = append(out.Rebalanced, KeyUpdate{ItemID: update.ItemID, OrderKey: update.OrderKey})
	}
	return out, nil
}

// RebalanceBucket respaces the keys of one bucket.
func (a *AppServiceAdapter) RebalanceBucket(ctx context.Context, projectID, bucketKey string) (RebalanceResult, error) {
	if err := a.ready(); err != nil {
		return RebalanceResult{}, err
	}
	if err := requireID("project_id", projectID); err != nil {
		return RebalanceResult{}, err
	}
	updates, err := a.service.RebalanceBucket(ctx, projectID, bucketKey)
	if err != nil {
		return RebalanceResult{}, mapAppError("rebalance bucket", err)
	}
	out := RebalanceResult{
		ProjectID: strings.TrimSpace(projectID),
		BucketKey: strings.TrimSpace(bucketKey),
		Updated:   make([]KeyUpdate, 0, len(updates)),
	}
	for _, update := range updates {
		out.Updated = append(out.Updated, KeyUpdate{ItemID: update.ItemID, OrderKey: update.OrderKey})
	}
	return out, nil
}

// DeleteItem archives or hard-deletes one item. An empty mode uses the configured default.
func (a *AppServiceAdapter) DeleteItem(ctx context.Context, itemID, mode string) error {
	if err := a.ready(); err != nil {
		return err
	}
	if err := requireID("item_id", itemID); err != nil {
		return err
	}
	mode = strings.ToLower(strings.TrimSpace(mode))
	if err := a.service.DeleteItem(ctx, itemID, app.DeleteMode(mode)); err != nil {
		return mapAppError("delete item", err)
	}
	return nil
}

// ListChangeEvents lists recent ledger records of a board, newest first.
func (a *AppServiceAdapter) ListChangeEvents(ctx context.Context, projectID string, limit int) ([]ChangeEvent, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	events, err := a.service.ListProjectChangeEvents(ctx, projectID, limit)
	if err != nil {
		return nil, mapAppError("list change events", err)
	}
	out := make([]ChangeEvent, 0, len(events))
	for _, event := range events {
		out = append(out, ChangeEvent{
			ID:         event.ID,
			ProjectID:  event.ProjectID,
			ItemID:     event.ItemID,
			Operation:  string(event.Operation),
			ActorID:    event.ActorID,
			ActorType:  string(event.ActorType),
			Metadata:   event.Metadata,
			OccurredAt: event.OccurredAt,
		})
	}
	return out, nil
}

func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil {
		return fmt.Errorf("app service adapter is not configured: %w", ErrUnavailable)
	}
	return nil
}

// mapAppError attaches one transport category to an app or domain error.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ordering.ErrInvalidMove):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidMove, err))
	case errors.Is(err, app.ErrNotFound), errors.Is(err, app.ErrUnknownBucket):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidPosition),
		errors.Is(err, domain.ErrInvalidWIPLimit),
		errors.Is(err, domain.ErrInvalidBucketKey),
		errors.Is(err, domain.ErrInvalidBoardKind),
		errors.Is(err, domain.ErrInvalidPlanRange),
		errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, domain.ErrInvalidOrderKey),
		errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, app.ErrInvalidDeleteMode):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}

func requireID(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required: %w", field, ErrInvalidRequest)
	}
	return nil
}

func actorOrDefault(actorID string) string {
	if actorID = strings.TrimSpace(actorID); actorID != "" {
		return actorID
	}
	return defaultServeActor
}

// parseDate accepts YYYY-MM-DD or RFC3339 and keeps only the calendar day.
func parseDate(field, raw string) (*time.Time, error) {
	t, err := parseDateTime(field, raw)
	if err != nil || t == nil {
		return t, err
	}
	day := domain.DateOnly(*t)
	return &day, nil
}

// parseDateTime accepts YYYY-MM-DD or RFC3339. Empty input yields nil.
func parseDateTime(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be YYYY-MM-DD or RFC3339: %w", field, ErrInvalidRequest)
	}
	return &t, nil
}

func mapProject(p domain.Project) Project {
	return Project{
		ID:          p.ID,
		Slug:        p.Slug,
		Name:        p.Name,
		Description: p.Description,
		Board:       string(p.Board),
		PlanStart:   p.PlanStart,
		PlanEnd:     p.PlanEnd,
		CreatedAt:   p.CreatedAt,
		ArchivedAt:  p.ArchivedAt,
	}
}

func mapBucket(b domain.Bucket) Bucket {
	out := Bucket{Key: b.Key, Name: b.Name}
	if b.Dated() {
		start, end := b.Start, b.End
		out.Start = &start
		out.End = &end
	}
	return out
}

func mapItems(items []domain.Item) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		out = append(out, mapItem(item))
	}
	return out
}

func mapItem(it domain.Item) Item {
	return Item{
		ID:          it.ID,
		ProjectID:   it.ProjectID,
		BucketKey:   it.BucketKey,
		OrderKey:    it.OrderKey,
		Title:       it.Title,
		Description: it.Description,
		Priority:    string(it.Priority),
		Labels:      it.Labels,
		StartDate:   it.StartDate,
		EndDate:     it.EndDate,
		UpdatedAt:   it.UpdatedAt,
		ArchivedAt:  it.ArchivedAt,
	}
}
