package domain

import (
	"strings"
	"time"
)

// Column is one Kanban bucket. Its ID doubles as the bucket key of the items it holds.
type Column struct {
	ID         string
	ProjectID  string
	Name       string
	WIPLimit   int
	Position   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ArchivedAt *time.Time
}

// ColumnPatch lists the column fields an edit changes. Nil fields keep their value.
type ColumnPatch struct {
	Name     *string
	Position *int
	WIPLimit *int
}

// NewColumn validates and stamps a column. A zero wipLimit means unlimited.
func NewColumn(id, projectID, name string, position, wipLimit int, now time.Time) (Column, error) {
	id, projectID = strings.TrimSpace(id), strings.TrimSpace(projectID)
	if id == "" || projectID == "" {
		return Column{}, ErrInvalidID
	}
	c := Column{ID: id, ProjectID: projectID, CreatedAt: now.UTC()}
	if err := c.Apply(ColumnPatch{Name: &name, Position: &position, WIPLimit: &wipLimit}, now); err != nil {
		return Column{}, err
	}
	return c, nil
}

// Apply validates every set field before changing any of them.
func (c *Column) Apply(p ColumnPatch, now time.Time) error {
	next := *c
	if p.Name != nil {
		next.Name = strings.TrimSpace(*p.Name)
		if next.Name == "" {
			return ErrInvalidName
		}
	}
	if p.Position != nil {
		if *p.Position < 0 {
			return ErrInvalidPosition
		}
		next.Position = *p.Position
	}
	if p.WIPLimit != nil {
		if *p.WIPLimit < 0 {
			return ErrInvalidWIPLimit
		}
		next.WIPLimit = *p.WIPLimit
	}
	next.UpdatedAt = now.UTC()
	*c = next
	return nil
}

// Archive hides the column from the board. Its items keep their bucket key and order key.
func (c *Column) Archive(now time.Time) {
	ts := now.UTC()
	c.ArchivedAt = &ts
	c.UpdatedAt = ts
}

func (c *Column) Restore(now time.Time) {
	c.ArchivedAt = nil
	c.UpdatedAt = now.UTC()
}

// Bucket returns the column as a board bucket.
func (c Column) Bucket() Bucket {
	return Bucket{Key: c.ID, Name: c.Name}
}
