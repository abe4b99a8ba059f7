package domain

import (
	"strings"
	"time"
)

// BoardKind selects how a project's items are bucketed.
type BoardKind string

// BoardKind values.
const (
	// BoardKindKanban buckets items into user-defined columns without dates.
	BoardKindKanban BoardKind = "kanban"
	// BoardKindPlanning buckets items into calendar weeks across the project plan range.
	BoardKindPlanning BoardKind = "planning"
)

// ParseBoardKind normalizes a board kind name; empty input means kanban.
func ParseBoardKind(raw string) (BoardKind, error) {
	switch BoardKind(strings.ToLower(strings.TrimSpace(raw))) {
	case "", BoardKindKanban:
		return BoardKindKanban, nil
	case BoardKindPlanning:
		return BoardKindPlanning, nil
	default:
		return "", ErrInvalidBoardKind
	}
}

// Project represents one board.
type Project struct {
	ID          string
	Slug        string
	Name        string
	Description string
	Board       BoardKind
	PlanStart   *time.Time
	PlanEnd     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ArchivedAt  *time.Time
}

// ProjectInput holds input values for project construction.
type ProjectInput struct {
	ID          string
	Name        string
	Description string
	Board       BoardKind
	PlanStart   *time.Time
	PlanEnd     *time.Time
}

// NewProject constructs a validated project. Planning boards need a plan range.
func NewProject(in ProjectInput, now time.Time) (Project, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	if in.ID == "" {
		return Project{}, ErrInvalidID
	}
	if in.Name == "" {
		return Project{}, ErrInvalidName
	}
	board, err := ParseBoardKind(string(in.Board))
	if err != nil {
		return Project{}, err
	}

	p := Project{
		ID:          in.ID,
		Slug:        normalizeSlug(in.Name),
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		Board:       board,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if board == BoardKindPlanning || in.PlanStart != nil || in.PlanEnd != nil {
		if err := p.SetPlanRange(in.PlanStart, in.PlanEnd, now); err != nil {
			return Project{}, err
		}
	}
	return p, nil
}

// ProjectPatch lists the project fields an edit changes. Nil fields keep their value; the plan
// range is replaced only when both ends are set.
type ProjectPatch struct {
	Name        *string
	Description *string
	PlanStart   *time.Time
	PlanEnd     *time.Time
}

// Apply validates every set field before changing any of them. A new name refreshes the slug.
func (p *Project) Apply(patch ProjectPatch, now time.Time) error {
	next := *p
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return ErrInvalidName
		}
		next.Name = name
		next.Slug = normalizeSlug(name)
	}
	if patch.Description != nil {
		next.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.PlanStart != nil || patch.PlanEnd != nil {
		if err := next.SetPlanRange(patch.PlanStart, patch.PlanEnd, now); err != nil {
			return err
		}
	}
	next.UpdatedAt = now.UTC()
	*p = next
	return nil
}

// SetPlanRange sets the calendar range a planning board spans. Both ends are date-only.
func (p *Project) SetPlanRange(start, end *time.Time, now time.Time) error {
	if start == nil || end == nil {
		return ErrInvalidPlanRange
	}
	s, e := DateOnly(*start), DateOnly(*end)
	if e.Before(s) {
		return ErrInvalidPlanRange
	}
	p.PlanStart = &s
	p.PlanEnd = &e
	p.UpdatedAt = now.UTC()
	return nil
}

// Archive archives the project.
func (p *Project) Archive(now time.Time) {
	ts := now.UTC()
	p.ArchivedAt = &ts
	p.UpdatedAt = ts
}

// Restore restores an archived project.
func (p *Project) Restore(now time.Time) {
	p.ArchivedAt = nil
	p.UpdatedAt = now.UTC()
}

// normalizeSlug normalizes slug.
func normalizeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	var b strings.Builder
	prevDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
			prevDash = false
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
