package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hylla/plank/internal/domain"
	"github.com/hylla/plank/internal/ordering"
)

// DeleteMode represents a selectable mode.
type DeleteMode string

// DeleteModeArchive and related constants define package defaults.
const (
	DeleteModeArchive DeleteMode = "archive"
	DeleteModeHard    DeleteMode = "hard"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	DefaultDeleteMode        DeleteMode
	StateTemplates           []StateTemplate
	AutoCreateProjectColumns bool
	Ordering                 ordering.Config
}

// StateTemplate represents state template data used by this package.
type StateTemplate struct {
	ID       string
	Name     string
	WIPLimit int
	Position int
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service represents service data used by this package.
type Service struct {
	repo              Repository
	idGen             IDGenerator
	clock             Clock
	reorderer         *ordering.Reorderer
	defaultDeleteMode DeleteMode
	stateTemplates    []StateTemplate
	autoProjectCols   bool
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.DefaultDeleteMode == "" {
		cfg.DefaultDeleteMode = DeleteModeArchive
	}
	templates := sanitizeStateTemplates(cfg.StateTemplates)
	if len(templates) == 0 {
		templates = defaultStateTemplates()
	}

	return &Service{
		repo:              repo,
		idGen:             idGen,
		clock:             clock,
		reorderer:         ordering.NewReorderer(cfg.Ordering),
		defaultDeleteMode: cfg.DefaultDeleteMode,
		stateTemplates:    templates,
		autoProjectCols:   cfg.AutoCreateProjectColumns,
	}
}

// Reorderer returns the reorderer shared by service moves and loaded boards.
func (s *Service) Reorderer() *ordering.Reorderer {
	return s.reorderer
}

// EnsureDefaultProject ensures default project.
func (s *Service) EnsureDefaultProject(ctx context.Context) (domain.Project, error) {
	projects, err := s.repo.ListProjects(ctx, false)
	if err != nil {
		return domain.Project{}, err
	}
	if len(projects) > 0 {
		return projects[0], nil
	}

	now := s.clock()
	project, err := domain.NewProject(domain.ProjectInput{
		ID:          s.idGen(),
		Name:        "Inbox",
		Description: "Default project",
	}, now)
	if err != nil {
		return domain.Project{}, err
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	if err := s.createDefaultColumns(ctx, project.ID, now); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// CreateProjectInput holds input values for create project operations.
type CreateProjectInput struct {
	Name        string
	Description string
	Board       domain.BoardKind
	PlanStart   *time.Time
	PlanEnd     *time.Time
}

// CreateProject creates a project. Kanban projects receive the configured default columns when
// auto-creation is enabled.
func (s *Service) CreateProject(ctx context.Context, in CreateProjectInput) (domain.Project, error) {
	now := s.clock()
	project, err := domain.NewProject(domain.ProjectInput{
		ID:          s.idGen(),
		Name:        in.Name,
		Description: in.Description,
		Board:       in.Board,
		PlanStart:   in.PlanStart,
		PlanEnd:     in.PlanEnd,
	}, now)
	if err != nil {
		return domain.Project{}, err
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	if s.autoProjectCols && project.Board == domain.BoardKindKanban {
		if err := s.createDefaultColumns(ctx, project.ID, now); err != nil {
			return domain.Project{}, err
		}
	}
	return project, nil
}

// GetProject returns project.
func (s *Service) GetProject(ctx context.Context, projectID string) (domain.Project, error) {
	return s.repo.GetProject(ctx, strings.TrimSpace(projectID))
}

// ListProjects lists projects.
func (s *Service) ListProjects(ctx context.Context, includeArchived bool) ([]domain.Project, error) {
	return s.repo.ListProjects(ctx, includeArchived)
}

// UpdateProject edits a board's name, description, or plan range. Narrowing a planning board's
// range hides the weeks that fall outside it; their items keep their keys.
func (s *Service) UpdateProject(ctx context.Context, projectID string, patch domain.ProjectPatch) (domain.Project, error) {
	return s.changeProject(ctx, projectID, func(p *domain.Project, now time.Time) error {
		return p.Apply(patch, now)
	})
}

// ArchiveProject hides a board from default listings.
func (s *Service) ArchiveProject(ctx context.Context, projectID string) (domain.Project, error) {
	return s.changeProject(ctx, projectID, func(p *domain.Project, now time.Time) error {
		p.Archive(now)
		return nil
	})
}

// RestoreProject un-archives a board.
func (s *Service) RestoreProject(ctx context.Context, projectID string) (domain.Project, error) {
	return s.changeProject(ctx, projectID, func(p *domain.Project, now time.Time) error {
		p.Restore(now)
		return nil
	})
}

func (s *Service) changeProject(ctx context.Context, projectID string, change func(*domain.Project, time.Time) error) (domain.Project, error) {
	project, err := s.repo.GetProject(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return domain.Project{}, err
	}
	if err := change(&project, s.clock()); err != nil {
		return domain.Project{}, err
	}
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// CreateColumn creates column.
func (s *Service) CreateColumn(ctx context.Context, projectID, name string, position, wipLimit int) (domain.Column, error) {
	project, err := s.repo.GetProject(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return domain.Column{}, err
	}
	if project.Board != domain.BoardKindKanban {
		return domain.Column{}, fmt.Errorf("%w: planning boards are bucketed by week", domain.ErrInvalidBoardKind)
	}
	column, err := domain.NewColumn(s.idGen(), project.ID, name, position, wipLimit, s.clock())
	if err != nil {
		return domain.Column{}, err
	}
	if err := s.repo.CreateColumn(ctx, column); err != nil {
		return domain.Column{}, err
	}
	return column, nil
}

// ListColumns lists columns.
func (s *Service) ListColumns(ctx context.Context, projectID string, includeArchived bool) ([]domain.Column, error) {
	columns, err := s.repo.ListColumns(ctx, projectID, includeArchived)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(columns, func(a, b domain.Column) int {
		if a.Position == b.Position {
			return strings.Compare(a.ID, b.ID)
		}
		return a.Position - b.Position
	})
	return columns, nil
}

// UpdateColumn renames, repositions, or re-limits one kanban column.
func (s *Service) UpdateColumn(ctx context.Context, projectID, column string, patch domain.ColumnPatch) (domain.Column, error) {
	c, err := s.findColumn(ctx, projectID, column)
	if err != nil {
		return domain.Column{}, err
	}
	if err := c.Apply(patch, s.clock()); err != nil {
		return domain.Column{}, err
	}
	if err := s.repo.UpdateColumn(ctx, c); err != nil {
		return domain.Column{}, err
	}
	return c, nil
}

// ArchiveColumn hides a column and, with it, the bucket its items sit in. Restoring the column
// brings the items back at their old keys.
func (s *Service) ArchiveColumn(ctx context.Context, projectID, column string) (domain.Column, error) {
	c, err := s.findColumn(ctx, projectID, column)
	if err != nil {
		return domain.Column{}, err
	}
	c.Archive(s.clock())
	if err := s.repo.UpdateColumn(ctx, c); err != nil {
		return domain.Column{}, err
	}
	return c, nil
}

// RestoreColumn un-archives a column.
func (s *Service) RestoreColumn(ctx context.Context, projectID, column string) (domain.Column, error) {
	c, err := s.findColumn(ctx, projectID, column)
	if err != nil {
		return domain.Column{}, err
	}
	c.Restore(s.clock())
	if err := s.repo.UpdateColumn(ctx, c); err != nil {
		return domain.Column{}, err
	}
	return c, nil
}

// findColumn matches a column, archived or not, by id or case-insensitive name.
func (s *Service) findColumn(ctx context.Context, projectID, ref string) (domain.Column, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Column{}, domain.ErrInvalidID
	}
	columns, err := s.ListColumns(ctx, strings.TrimSpace(projectID), true)
	if err != nil {
		return domain.Column{}, err
	}
	for _, c := range columns {
		if c.ID == ref {
			return c, nil
		}
	}
	for _, c := range columns {
		if strings.EqualFold(c.Name, ref) {
			return c, nil
		}
	}
	return domain.Column{}, fmt.Errorf("column %q: %w", ref, ErrNotFound)
}

// ListBuckets returns the ordered buckets of a project: its columns on a kanban board, or one ISO
// week per bucket across the plan range on a planning board.
func (s *Service) ListBuckets(ctx context.Context, projectID string) ([]domain.Bucket, error) {
	project, err := s.repo.GetProject(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return nil, err
	}
	return s.bucketsFor(ctx, project)
}

func (s *Service) bucketsFor(ctx context.Context, project domain.Project) ([]domain.Bucket, error) {
	if project.Board == domain.BoardKindPlanning {
		if project.PlanStart == nil || project.PlanEnd == nil {
			return nil, domain.ErrInvalidPlanRange
		}
		return domain.WeekBuckets(*project.PlanStart, *project.PlanEnd), nil
	}
	columns, err := s.ListColumns(ctx, project.ID, false)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Bucket, 0, len(columns))
	for _, column := range columns {
		out = append(out, column.Bucket())
	}
	return out, nil
}

// CreateItemInput holds input values for create item operations.
type CreateItemInput struct {
	ProjectID   string
	BucketKey   string
	Title       string
	Description string
	Priority    domain.Priority
	Labels      []string
	StartDate   *time.Time
	EndDate     *time.Time
	ActorID     string
	ActorType   domain.ActorType
}

// CreateItem appends a new item to a bucket. Items created without dates in a dated bucket start on
// the bucket's first day and span the configured default number of days.
func (s *Service) CreateItem(ctx context.Context, in CreateItemInput) (domain.Item, error) {
	project, err := s.repo.GetProject(ctx, strings.TrimSpace(in.ProjectID))
	if err != nil {
		return domain.Item{}, err
	}
	buckets, err := s.bucketsFor(ctx, project)
	if err != nil {
		return domain.Item{}, err
	}
	bucketKey := strings.TrimSpace(in.BucketKey)
	if bucketKey == "" && project.Board == domain.BoardKindPlanning && in.StartDate != nil {
		bucketKey = domain.WeekKey(*in.StartDate)
	}
	bucket, err := resolveBucket(buckets, bucketKey)
	if err != nil {
		return domain.Item{}, err
	}

	start, end := in.StartDate, in.EndDate
	if bucket.Dated() && start == nil && end == nil {
		s0 := bucket.Start
		e0 := ordering.AddDays(s0, s.reorderer.Config().DefaultSpanDays)
		start, end = &s0, &e0
	}

	siblings, err := s.bucketItems(ctx, project.ID, bucket.Key)
	if err != nil {
		return domain.Item{}, err
	}
	key := s.reorderer.AppendKey(toOrderingItems(siblings))

	item, err := domain.NewItem(domain.ItemInput{
		ID:          s.idGen(),
		ProjectID:   project.ID,
		BucketKey:   bucket.Key,
		OrderKey:    &key,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Labels:      in.Labels,
		StartDate:   start,
		EndDate:     end,
		ActorID:     in.ActorID,
		ActorType:   in.ActorType,
	}, s.clock())
	if err != nil {
		return domain.Item{}, err
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

// GetItem returns item.
func (s *Service) GetItem(ctx context.Context, itemID string) (domain.Item, error) {
	return s.repo.GetItem(ctx, strings.TrimSpace(itemID))
}

// ListItems lists project items grouped by bucket in board order, each bucket in key order.
func (s *Service) ListItems(ctx context.Context, projectID string, includeArchived bool) ([]domain.Item, error) {
	project, err := s.repo.GetProject(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return nil, err
	}
	buckets, err := s.bucketsFor(ctx, project)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, project.ID, includeArchived)
	if err != nil {
		return nil, err
	}
	rank := make(map[string]int, len(buckets))
	for idx, bucket := range buckets {
		rank[bucket.Key] = idx
	}
	bucketRank := func(key string) int {
		if idx, ok := rank[key]; ok {
			return idx
		}
		return len(buckets)
	}
	slices.SortStableFunc(items, func(a, b domain.Item) int {
		if ra, rb := bucketRank(a.BucketKey), bucketRank(b.BucketKey); ra != rb {
			return ra - rb
		}
		if a.BucketKey != b.BucketKey {
			return strings.Compare(a.BucketKey, b.BucketKey)
		}
		return ordering.Compare(toOrderingItem(a), toOrderingItem(b))
	})
	return items, nil
}

// ListBucketItems lists the active items of one bucket in key order.
func (s *Service) ListBucketItems(ctx context.Context, projectID, bucketKey string) ([]domain.Item, error) {
	project, err := s.repo.GetProject(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return nil, err
	}
	buckets, err := s.bucketsFor(ctx, project)
	if err != nil {
		return nil, err
	}
	bucket, err := resolveBucket(buckets, bucketKey)
	if err != nil {
		return nil, err
	}
	return s.bucketItems(ctx, project.ID, bucket.Key)
}

// UpdateItemInput holds input values for update item operations. Empty fields keep their
// current value; ClearDates removes the date range.
type UpdateItemInput struct {
	ItemID      string
	Title       string
	Description *string
	Priority    domain.Priority
	Labels      []string
	StartDate   *time.Time
	EndDate     *time.Time
	ClearDates  bool
	ActorID     string
	ActorType   domain.ActorType
}

// UpdateItem updates descriptive fields and dates. Placement only changes through MoveItem.
func (s *Service) UpdateItem(ctx context.Context, in UpdateItemInput) (domain.Item, error) {
	item, err := s.repo.GetItem(ctx, strings.TrimSpace(in.ItemID))
	if err != nil {
		return domain.Item{}, err
	}
	now := s.clock()
	title := item.Title
	if strings.TrimSpace(in.Title) != "" {
		title = in.Title
	}
	description := item.Description
	if in.Description != nil {
		description = *in.Description
	}
	labels := item.Labels
	if in.Labels != nil {
		labels = in.Labels
	}
	if err := item.UpdateDetails(title, description, in.Priority, labels, now); err != nil {
		return domain.Item{}, err
	}
	switch {
	case in.ClearDates:
		if err := item.SetDates(nil, nil, now); err != nil {
			return domain.Item{}, err
		}
	case in.StartDate != nil || in.EndDate != nil:
		start, end := in.StartDate, in.EndDate
		if start == nil {
			start = item.StartDate
		}
		if end == nil {
			end = item.EndDate
		}
		if err := item.SetDates(start, end, now); err != nil {
			return domain.Item{}, err
		}
	}
	item.TouchActor(in.ActorID, in.ActorType)
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

// RestoreItem restores an archived item. It keeps its old key and bucket.
func (s *Service) RestoreItem(ctx context.Context, itemID string) (domain.Item, error) {
	item, err := s.repo.GetItem(ctx, strings.TrimSpace(itemID))
	if err != nil {
		return domain.Item{}, err
	}
	item.Restore(s.clock())
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

// DeleteItem archives or removes an item. Remaining siblings keep their keys.
func (s *Service) DeleteItem(ctx context.Context, itemID string, mode DeleteMode) error {
	if mode == "" {
		mode = s.defaultDeleteMode
	}

	switch mode {
	case DeleteModeArchive:
		item, err := s.repo.GetItem(ctx, strings.TrimSpace(itemID))
		if err != nil {
			return err
		}
		item.Archive(s.clock())
		return s.repo.UpdateItem(ctx, item)
	case DeleteModeHard:
		return s.repo.DeleteItem(ctx, strings.TrimSpace(itemID))
	default:
		return ErrInvalidDeleteMode
	}
}

// MoveItemInput describes one drag-and-drop request. An empty ToBucket keeps the current bucket
// and an empty SiblingID drops onto the bucket itself (append).
type MoveItemInput struct {
	ItemID    string
	ToBucket  string
	SiblingID string
	Side      ordering.Side
	ActorID   string
	ActorType domain.ActorType
}

// MoveKind classifies a completed move.
type MoveKind string

// MoveKind values.
const (
	MoveKindNoop        MoveKind = "noop"
	MoveKindSameBucket  MoveKind = "same_bucket"
	MoveKindCrossBucket MoveKind = "cross_bucket"
)

// MoveItemResult is the stored item after a move plus the computed placement.
type MoveItemResult struct {
	Item      domain.Item
	Placement ordering.Result
}

// Kind classifies the move.
func (r MoveItemResult) Kind() MoveKind {
	switch {
	case !r.Placement.Changed:
		return MoveKindNoop
	case r.Placement.CrossBucket:
		return MoveKindCrossBucket
	default:
		return MoveKindSameBucket
	}
}

// MoveItem reorders an item and persists the outcome. Invalid moves return an error wrapping
// ordering.ErrInvalidMove and leave storage untouched; no-op moves write nothing.
func (s *Service) MoveItem(ctx context.Context, in MoveItemInput) (MoveItemResult, error) {
	item, err := s.repo.GetItem(ctx, strings.TrimSpace(in.ItemID))
	if err != nil {
		return MoveItemResult{}, err
	}
	if item.ArchivedAt != nil {
		return MoveItemResult{}, fmt.Errorf("%w: item %s is archived", ordering.ErrInvalidMove, item.ID)
	}
	project, err := s.repo.GetProject(ctx, item.ProjectID)
	if err != nil {
		return MoveItemResult{}, err
	}
	buckets, err := s.bucketsFor(ctx, project)
	if err != nil {
		return MoveItemResult{}, err
	}
	source, err := resolveBucket(buckets, item.BucketKey)
	if err != nil {
		// The source column may have been archived since; the move can still leave it.
		source = domain.Bucket{Key: item.BucketKey}
	}
	target := source
	if key := strings.TrimSpace(in.ToBucket); key != "" {
		target, err = resolveBucket(buckets, key)
		if err != nil {
			return MoveItemResult{}, fmt.Errorf("%w: %w", ordering.ErrInvalidMove, err)
		}
	}
	siblings, err := s.bucketItems(ctx, project.ID, target.Key)
	if err != nil {
		return MoveItemResult{}, err
	}

	var drop ordering.DropTarget = ordering.DropEmpty{}
	if sibling := strings.TrimSpace(in.SiblingID); sibling != "" {
		drop = ordering.DropRelative{SiblingID: sibling, Side: in.Side}
	}
	res, err := s.reorderer.Reorder(ordering.Move{
		Item:     toOrderingItem(item),
		Source:   toOrderingBucket(source),
		Target:   toOrderingBucket(target),
		Drop:     drop,
		Siblings: toOrderingItems(siblings),
	})
	if err != nil {
		return MoveItemResult{}, err
	}
	if !res.Changed {
		return MoveItemResult{Item: item, Placement: res}, nil
	}
	item, err = s.storePlacement(ctx, item, res, in.ActorID, in.ActorType)
	if err != nil {
		return MoveItemResult{}, err
	}
	return MoveItemResult{Item: item, Placement: res}, nil
}

// PersistMove stores a placement computed elsewhere, such as by a Board.
func (s *Service) PersistMove(ctx context.Context, res ordering.Result) error {
	if !res.Changed {
		return nil
	}
	item, err := s.repo.GetItem(ctx, res.ItemID)
	if err != nil {
		return err
	}
	_, err = s.storePlacement(ctx, item, res, "", domain.ActorTypeUser)
	return err
}

func (s *Service) storePlacement(ctx context.Context, item domain.Item, res ordering.Result, actorID string, actorType domain.ActorType) (domain.Item, error) {
	if err := item.ApplyPlacement(res.BucketKey, res.OrderKey, res.StartDate, res.EndDate, s.clock()); err != nil {
		return domain.Item{}, err
	}
	item.TouchActor(actorID, actorType)
	if err := s.repo.MoveItem(ctx, item, toKeyUpdates(res.Rebalanced)); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

// RebalanceBucket respaces every active key in a bucket to multiples of the configured gap,
// keeping the current order, and returns the keys it rewrote.
func (s *Service) RebalanceBucket(ctx context.Context, projectID, bucketKey string) ([]OrderKeyUpdate, error) {
	project, err := s.repo.GetProject(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return nil, err
	}
	buckets, err := s.bucketsFor(ctx, project)
	if err != nil {
		return nil, err
	}
	bucket, err := resolveBucket(buckets, bucketKey)
	if err != nil {
		return nil, err
	}
	items, err := s.bucketItems(ctx, project.ID, bucket.Key)
	if err != nil {
		return nil, err
	}
	updates := toKeyUpdates(s.reorderer.Rebalance(toOrderingItems(items)))
	if len(updates) == 0 {
		return updates, nil
	}
	if err := s.repo.ApplyOrderKeys(ctx, project.ID, bucket.Key, updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// LoadBoard loads the active items of a project into an optimistic Board backed by this service.
func (s *Service) LoadBoard(ctx context.Context, projectID string) (*Board, error) {
	project, err := s.repo.GetProject(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return nil, err
	}
	buckets, err := s.bucketsFor(ctx, project)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, project.ID, false)
	if err != nil {
		return nil, err
	}
	obuckets := make([]ordering.Bucket, 0, len(buckets))
	for _, bucket := range buckets {
		obuckets = append(obuckets, toOrderingBucket(bucket))
	}
	return NewBoard(s.reorderer, s, obuckets, toOrderingItems(items)), nil
}

// ListProjectChangeEvents lists recent change events for a project.
func (s *Service) ListProjectChangeEvents(ctx context.Context, projectID string, limit int) ([]domain.ChangeEvent, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, domain.ErrInvalidID
	}
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListProjectChangeEvents(ctx, projectID, limit)
}

// bucketItems returns the active items of one bucket in key order.
func (s *Service) bucketItems(ctx context.Context, projectID, bucketKey string) ([]domain.Item, error) {
	items, err := s.repo.ListItems(ctx, projectID, false)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if item.BucketKey == bucketKey {
			out = append(out, item)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Item) int {
		return ordering.Compare(toOrderingItem(a), toOrderingItem(b))
	})
	return out, nil
}

// resolveBucket finds a bucket by key, or by case-insensitive name so columns can be addressed
// the way they are displayed. An empty key selects the first bucket.
func resolveBucket(buckets []domain.Bucket, key string) (domain.Bucket, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		if len(buckets) == 0 {
			return domain.Bucket{}, fmt.Errorf("%w: board has no buckets", ErrUnknownBucket)
		}
		return buckets[0], nil
	}
	for _, bucket := range buckets {
		if bucket.Key == key {
			return bucket, nil
		}
	}
	for _, bucket := range buckets {
		if strings.EqualFold(bucket.Key, key) || strings.EqualFold(bucket.Name, key) {
			return bucket, nil
		}
	}
	return domain.Bucket{}, fmt.Errorf("%w: %s", ErrUnknownBucket, key)
}

func toOrderingItem(item domain.Item) ordering.Item {
	return ordering.Item{
		ID:          item.ID,
		BucketKey:   item.BucketKey,
		OrderKey:    item.Key(),
		HasOrderKey: item.HasOrderKey(),
		StartDate:   item.StartDate,
		EndDate:     item.EndDate,
		CreatedAt:   item.CreatedAt,
	}
}

func toOrderingItems(items []domain.Item) []ordering.Item {
	out := make([]ordering.Item, 0, len(items))
	for _, item := range items {
		out = append(out, toOrderingItem(item))
	}
	return out
}

func toOrderingBucket(bucket domain.Bucket) ordering.Bucket {
	return ordering.Bucket{Key: bucket.Key, Start: bucket.Start, End: bucket.End}
}

func toKeyUpdates(in []ordering.KeyUpdate) []OrderKeyUpdate {
	out := make([]OrderKeyUpdate, 0, len(in))
	for _, update := range in {
		out = append(out, OrderKeyUpdate{ItemID: update.ItemID, OrderKey: update.OrderKey})
	}
	return out
}

// createDefaultColumns creates default columns.
func (s *Service) createDefaultColumns(ctx context.Context, projectID string, now time.Time) error {
	for idx, state := range s.stateTemplates {
		position := state.Position
		if position < 0 {
			position = idx
		}
		column, err := domain.NewColumn(s.idGen(), projectID, state.Name, position, state.WIPLimit, now)
		if err != nil {
			return fmt.Errorf("create default column %q: %w", state.Name, err)
		}
		if err := s.repo.CreateColumn(ctx, column); err != nil {
			return fmt.Errorf("persist default column %q: %w", state.Name, err)
		}
	}
	return nil
}

// defaultStateTemplates returns default state templates.
func defaultStateTemplates() []StateTemplate {
	return []StateTemplate{
		{ID: "todo", Name: "To Do", WIPLimit: 0, Position: 0},
		{ID: "progress", Name: "In Progress", WIPLimit: 0, Position: 1},
		{ID: "done", Name: "Done", WIPLimit: 0, Position: 2},
	}
}

// sanitizeStateTemplates trims, dedupes and orders configured states.
func sanitizeStateTemplates(in []StateTemplate) []StateTemplate {
	if len(in) == 0 {
		return nil
	}
	out := make([]StateTemplate, 0, len(in))
	seen := map[string]struct{}{}
	for idx, state := range in {
		state.Name = strings.TrimSpace(state.Name)
		state.ID = strings.TrimSpace(strings.ToLower(state.ID))
		if state.Name == "" {
			continue
		}
		if state.ID == "" {
			state.ID = normalizeStateID(state.Name)
		}
		dedupeID := strings.ReplaceAll(state.ID, "-", "")
		if _, ok := seen[dedupeID]; ok {
			continue
		}
		seen[dedupeID] = struct{}{}
		if state.Position < 0 {
			state.Position = idx
		}
		if state.WIPLimit < 0 {
			state.WIPLimit = 0
		}
		out = append(out, state)
	}
	slices.SortFunc(out, func(a, b StateTemplate) int {
		if a.Position == b.Position {
			return strings.Compare(a.ID, b.ID)
		}
		return a.Position - b.Position
	})
	return out
}

// normalizeStateID normalizes state id.
func normalizeStateID(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return ""
	}
	var b strings.Builder
	lastDash := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
			lastDash = false
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	normalized := strings.Trim(b.String(), "-")
	switch normalized {
	case "to-do", "todo":
		return "todo"
	case "in-progress", "progress", "doing":
		return "progress"
	case "done", "complete", "completed":
		return "done"
	default:
		return normalized
	}
}
