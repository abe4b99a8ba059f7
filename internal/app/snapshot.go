package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/hylla/plank/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "plank.snapshot.v1"

// Snapshot is a portable copy of every board, encodable as JSON or YAML.
type Snapshot struct {
	Version    string            `json:"version" yaml:"version"`
	ExportedAt time.Time         `json:"exported_at" yaml:"exported_at"`
	Projects   []SnapshotProject `json:"projects" yaml:"projects"`
	Columns    []SnapshotColumn  `json:"columns" yaml:"columns"`
	Items      []SnapshotItem    `json:"items" yaml:"items"`
}

// SnapshotProject represents snapshot project data used by this package.
type SnapshotProject struct {
	ID          string           `json:"id" yaml:"id"`
	Slug        string           `json:"slug" yaml:"slug"`
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description" yaml:"description"`
	Board       domain.BoardKind `json:"board" yaml:"board"`
	PlanStart   *time.Time       `json:"plan_start,omitempty" yaml:"plan_start,omitempty"`
	PlanEnd     *time.Time       `json:"plan_end,omitempty" yaml:"plan_end,omitempty"`
	CreatedAt   time.Time        `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" yaml:"updated_at"`
	ArchivedAt  *time.Time       `json:"archived_at,omitempty" yaml:"archived_at,omitempty"`
}

// SnapshotColumn represents snapshot column data used by this package.
type SnapshotColumn struct {
	ID         string     `json:"id" yaml:"id"`
	ProjectID  string     `json:"project_id" yaml:"project_id"`
	Name       string     `json:"name" yaml:"name"`
	WIPLimit   int        `json:"wip_limit" yaml:"wip_limit"`
	Position   int        `json:"position" yaml:"position"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" yaml:"updated_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty" yaml:"archived_at,omitempty"`
}

// SnapshotItem represents one board item. A missing order_key is preserved and sorts last.
type SnapshotItem struct {
	ID             string           `json:"id" yaml:"id"`
	ProjectID      string           `json:"project_id" yaml:"project_id"`
	BucketKey      string           `json:"bucket_key" yaml:"bucket_key"`
	OrderKey       *float64         `json:"order_key,omitempty" yaml:"order_key,omitempty"`
	Title          string           `json:"title" yaml:"title"`
	Description    string           `json:"description" yaml:"description"`
	Priority       domain.Priority  `json:"priority" yaml:"priority"`
	Labels         []string         `json:"labels" yaml:"labels"`
	StartDate      *time.Time       `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate        *time.Time       `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	CreatedByActor string           `json:"created_by_actor" yaml:"created_by_actor"`
	UpdatedByActor string           `json:"updated_by_actor" yaml:"updated_by_actor"`
	UpdatedByType  domain.ActorType `json:"updated_by_type" yaml:"updated_by_type"`
	CreatedAt      time.Time        `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" yaml:"updated_at"`
	ArchivedAt     *time.Time       `json:"archived_at,omitempty" yaml:"archived_at,omitempty"`
}

// ExportSnapshot handles export snapshot.
func (s *Service) ExportSnapshot(ctx context.Context, includeArchived bool) (Snapshot, error) {
	projects, err := s.repo.ListProjects(ctx, includeArchived)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Projects:   make([]SnapshotProject, 0, len(projects)),
		Columns:    make([]SnapshotColumn, 0),
		Items:      make([]SnapshotItem, 0),
	}
	for _, project := range projects {
		snap.Projects = append(snap.Projects, snapshotProjectFromDomain(project))

		columns, listErr := s.repo.ListColumns(ctx, project.ID, includeArchived)
		if listErr != nil {
			return Snapshot{}, listErr
		}
		for _, column := range columns {
			snap.Columns = append(snap.Columns, snapshotColumnFromDomain(column))
		}

		items, listErr := s.repo.ListItems(ctx, project.ID, includeArchived)
		if listErr != nil {
			return Snapshot{}, listErr
		}
		for _, item := range items {
			snap.Items = append(snap.Items, snapshotItemFromDomain(item))
		}
	}

	snap.sort()
	return snap, nil
}

// ImportSnapshot upserts every record of a validated snapshot. Keys are imported as-is.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	snap.sort()

	for _, project := range snap.Projects {
		if err := s.upsertProject(ctx, project.toDomain()); err != nil {
			return err
		}
	}

	existingColumnsByProject := map[string]map[string]struct{}{}
	for _, project := range snap.Projects {
		columns, err := s.repo.ListColumns(ctx, project.ID, true)
		if err != nil {
			return err
		}
		byID := map[string]struct{}{}
		for _, column := range columns {
			byID[column.ID] = struct{}{}
		}
		existingColumnsByProject[project.ID] = byID
	}

	for _, column := range snap.Columns {
		dc := column.toDomain()
		if _, ok := existingColumnsByProject[dc.ProjectID][dc.ID]; ok {
			if err := s.repo.UpdateColumn(ctx, dc); err != nil {
				return err
			}
			continue
		}
		if err := s.repo.CreateColumn(ctx, dc); err != nil {
			return err
		}
		existingColumnsByProject[dc.ProjectID][dc.ID] = struct{}{}
	}

	for _, item := range snap.Items {
		di := item.toDomain()
		if _, err := s.repo.GetItem(ctx, di.ID); err == nil {
			if err := s.repo.UpdateItem(ctx, di); err != nil {
				return err
			}
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := s.repo.CreateItem(ctx, di); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks references and required fields before anything is written.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %q", s.Version)
	}

	projects := map[string]SnapshotProject{}
	for i, p := range s.Projects {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("projects[%d].id is required", i)
		}
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("projects[%d].name is required", i)
		}
		if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
			return fmt.Errorf("projects[%d] timestamps are required", i)
		}
		board, err := domain.ParseBoardKind(string(p.Board))
		if err != nil {
			return fmt.Errorf("projects[%d].board must be kanban|planning", i)
		}
		if board == domain.BoardKindPlanning && (p.PlanStart == nil || p.PlanEnd == nil || p.PlanEnd.Before(*p.PlanStart)) {
			return fmt.Errorf("projects[%d] planning boards need a valid plan range", i)
		}
		if _, exists := projects[p.ID]; exists {
			return fmt.Errorf("duplicate project id: %q", p.ID)
		}
		s.Projects[i].Board = board
		projects[p.ID] = s.Projects[i]
	}

	columnIDs := map[string]string{}
	for i, c := range s.Columns {
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("columns[%d].id is required", i)
		}
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("columns[%d].name is required", i)
		}
		if c.Position < 0 {
			return fmt.Errorf("columns[%d].position must be >= 0", i)
		}
		if c.WIPLimit < 0 {
			return fmt.Errorf("columns[%d].wip_limit must be >= 0", i)
		}
		if c.CreatedAt.IsZero() || c.UpdatedAt.IsZero() {
			return fmt.Errorf("columns[%d] timestamps are required", i)
		}
		if _, ok := projects[c.ProjectID]; !ok {
			return fmt.Errorf("columns[%d] references unknown project_id %q", i, c.ProjectID)
		}
		if _, exists := columnIDs[c.ID]; exists {
			return fmt.Errorf("duplicate column id: %q", c.ID)
		}
		columnIDs[c.ID] = c.ProjectID
	}

	itemIDs := map[string]struct{}{}
	for i, it := range s.Items {
		if strings.TrimSpace(it.ID) == "" {
			return fmt.Errorf("items[%d].id is required", i)
		}
		if strings.TrimSpace(it.Title) == "" {
			return fmt.Errorf("items[%d].title is required", i)
		}
		if it.CreatedAt.IsZero() || it.UpdatedAt.IsZero() {
			return fmt.Errorf("items[%d] timestamps are required", i)
		}
		project, ok := projects[it.ProjectID]
		if !ok {
			return fmt.Errorf("items[%d] references unknown project_id %q", i, it.ProjectID)
		}
		switch project.Board {
		case domain.BoardKindPlanning:
			if _, err := domain.ParseWeekKey(it.BucketKey); err != nil {
				return fmt.Errorf("items[%d].bucket_key must be a YYYY-Www week: %w", i, err)
			}
		default:
			if owner, ok := columnIDs[it.BucketKey]; !ok || owner != it.ProjectID {
				return fmt.Errorf("items[%d] references unknown column %q", i, it.BucketKey)
			}
		}
		if it.OrderKey != nil && (math.IsNaN(*it.OrderKey) || math.IsInf(*it.OrderKey, 0)) {
			return fmt.Errorf("items[%d].order_key must be finite", i)
		}
		if (it.StartDate == nil) != (it.EndDate == nil) {
			return fmt.Errorf("items[%d] needs both start_date and end_date or neither", i)
		}
		if _, exists := itemIDs[it.ID]; exists {
			return fmt.Errorf("duplicate item id: %q", it.ID)
		}
		itemIDs[it.ID] = struct{}{}
	}
	return nil
}

// upsertProject handles upsert project.
func (s *Service) upsertProject(ctx context.Context, p domain.Project) error {
	if _, err := s.repo.GetProject(ctx, p.ID); err == nil {
		return s.repo.UpdateProject(ctx, p)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.repo.CreateProject(ctx, p)
}

// sort orders records so exports are stable and imports create parents first.
func (s *Snapshot) sort() {
	sort.Slice(s.Projects, func(i, j int) bool {
		return s.Projects[i].ID < s.Projects[j].ID
	})
	sort.Slice(s.Columns, func(i, j int) bool {
		a := s.Columns[i]
		b := s.Columns[j]
		if a.ProjectID == b.ProjectID {
			if a.Position == b.Position {
				return a.ID < b.ID
			}
			return a.Position < b.Position
		}
		return a.ProjectID < b.ProjectID
	})
	sort.SliceStable(s.Items, func(i, j int) bool {
		a := s.Items[i]
		b := s.Items[j]
		if a.ProjectID != b.ProjectID {
			return a.ProjectID < b.ProjectID
		}
		if a.BucketKey != b.BucketKey {
			return a.BucketKey < b.BucketKey
		}
		if (a.OrderKey == nil) != (b.OrderKey == nil) {
			return a.OrderKey != nil
		}
		if a.OrderKey != nil && *a.OrderKey != *b.OrderKey {
			return *a.OrderKey < *b.OrderKey
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func snapshotProjectFromDomain(p domain.Project) SnapshotProject {
	return SnapshotProject{
		ID:          p.ID,
		Slug:        p.Slug,
		Name:        p.Name,
		Description: p.Description,
		Board:       p.Board,
		PlanStart:   copyDatePtr(p.PlanStart),
		PlanEnd:     copyDatePtr(p.PlanEnd),
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
		ArchivedAt:  copyTimePtr(p.ArchivedAt),
	}
}

func snapshotColumnFromDomain(c domain.Column) SnapshotColumn {
	return SnapshotColumn{
		ID:         c.ID,
		ProjectID:  c.ProjectID,
		Name:       c.Name,
		WIPLimit:   c.WIPLimit,
		Position:   c.Position,
		CreatedAt:  c.CreatedAt.UTC(),
		UpdatedAt:  c.UpdatedAt.UTC(),
		ArchivedAt: copyTimePtr(c.ArchivedAt),
	}
}

func snapshotItemFromDomain(i domain.Item) SnapshotItem {
	var key *float64
	if i.OrderKey != nil {
		v := *i.OrderKey
		key = &v
	}
	return SnapshotItem{
		ID:             i.ID,
		ProjectID:      i.ProjectID,
		BucketKey:      i.BucketKey,
		OrderKey:       key,
		Title:          i.Title,
		Description:    i.Description,
		Priority:       i.Priority,
		Labels:         append([]string(nil), i.Labels...),
		StartDate:      copyExactTimePtr(i.StartDate),
		EndDate:        copyExactTimePtr(i.EndDate),
		CreatedByActor: i.CreatedByActor,
		UpdatedByActor: i.UpdatedByActor,
		UpdatedByType:  i.UpdatedByType,
		CreatedAt:      i.CreatedAt.UTC(),
		UpdatedAt:      i.UpdatedAt.UTC(),
		ArchivedAt:     copyTimePtr(i.ArchivedAt),
	}
}

func (p SnapshotProject) toDomain() domain.Project {
	slug := strings.TrimSpace(p.Slug)
	if slug == "" {
		slug = fallbackSlug(p.Name)
	}
	board, err := domain.ParseBoardKind(string(p.Board))
	if err != nil {
		board = domain.BoardKindKanban
	}
	return domain.Project{
		ID:          strings.TrimSpace(p.ID),
		Slug:        slug,
		Name:        strings.TrimSpace(p.Name),
		Description: strings.TrimSpace(p.Description),
		Board:       board,
		PlanStart:   copyDatePtr(p.PlanStart),
		PlanEnd:     copyDatePtr(p.PlanEnd),
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
		ArchivedAt:  copyTimePtr(p.ArchivedAt),
	}
}

func (c SnapshotColumn) toDomain() domain.Column {
	return domain.Column{
		ID:         strings.TrimSpace(c.ID),
		ProjectID:  strings.TrimSpace(c.ProjectID),
		Name:       strings.TrimSpace(c.Name),
		WIPLimit:   c.WIPLimit,
		Position:   c.Position,
		CreatedAt:  c.CreatedAt.UTC(),
		UpdatedAt:  c.UpdatedAt.UTC(),
		ArchivedAt: copyTimePtr(c.ArchivedAt),
	}
}

func (i SnapshotItem) toDomain() domain.Item {
	priority := i.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	var key *float64
	if i.OrderKey != nil {
		v := *i.OrderKey
		key = &v
	}
	return domain.Item{
		ID:             strings.TrimSpace(i.ID),
		ProjectID:      strings.TrimSpace(i.ProjectID),
		BucketKey:      strings.TrimSpace(i.BucketKey),
		OrderKey:       key,
		Title:          strings.TrimSpace(i.Title),
		Description:    strings.TrimSpace(i.Description),
		Priority:       priority,
		Labels:         append([]string(nil), i.Labels...),
		StartDate:      copyExactTimePtr(i.StartDate),
		EndDate:        copyExactTimePtr(i.EndDate),
		CreatedByActor: strings.TrimSpace(i.CreatedByActor),
		UpdatedByActor: strings.TrimSpace(i.UpdatedByActor),
		UpdatedByType:  domain.NormalizeActorType(i.UpdatedByType),
		CreatedAt:      i.CreatedAt.UTC(),
		UpdatedAt:      i.UpdatedAt.UTC(),
		ArchivedAt:     copyTimePtr(i.ArchivedAt),
	}
}

// fallbackSlug provides fallback slug.
func fallbackSlug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	return strings.Trim(name, "-")
}

// copyTimePtr copies an audit timestamp at second precision.
func copyTimePtr(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	t := in.UTC().Truncate(time.Second)
	return &t
}

// copyExactTimePtr copies an item date without truncation so spans survive a round trip.
func copyExactTimePtr(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	t := in.UTC()
	return &t
}

func copyDatePtr(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	t := domain.DateOnly(*in)
	return &t
}
