package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hylla/plank/internal/app"
	"github.com/hylla/plank/internal/domain"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// defaultActorID is recorded when a change carries no actor.
const defaultActorID = "plank-user"

// connPragmas apply to every pooled connection, so foreign keys and the lock wait hold no matter
// which connection a statement lands on. The CLI and a running server may share one file.
var connPragmas = []string{"foreign_keys(1)", "busy_timeout(5000)"}

var memoryDBSeq atomic.Int64

// Repository stores boards, items, and their change log in one sqlite database.
type Repository struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies migrations.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	return openDSN("file:"+path, nil)
}

// OpenInMemory opens a private in-memory database. Each call gets its own store.
func OpenInMemory() (*Repository, error) {
	name := fmt.Sprintf("file:plank-mem-%d", memoryDBSeq.Add(1))
	return openDSN(name, url.Values{"mode": {"memory"}, "cache": {"shared"}})
}

func openDSN(base string, params url.Values) (*Repository, error) {
	if params == nil {
		params = url.Values{}
	}
	for _, pragma := range connPragmas {
		params.Add("_pragma", pragma)
	}
	db, err := sql.Open(driverName, base+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// schema is idempotent so migrate runs on every open.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		board_kind TEXT NOT NULL DEFAULT 'kanban',
		plan_start TEXT,
		plan_end TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		archived_at TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS board_columns (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		name TEXT NOT NULL,
		wip_limit INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		archived_at TEXT,
		FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
	);`,
	// bucket_key is a column id on kanban boards and an ISO week on planning boards,
	// so it carries no foreign key.
	`CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		bucket_key TEXT NOT NULL,
		order_key REAL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL,
		labels_json TEXT NOT NULL DEFAULT '[]',
		start_date TEXT,
		end_date TEXT,
		created_by_actor TEXT NOT NULL DEFAULT 'plank-user',
		updated_by_actor TEXT NOT NULL DEFAULT 'plank-user',
		updated_by_type TEXT NOT NULL DEFAULT 'user',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		archived_at TEXT,
		FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS change_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL,
		item_id TEXT NOT NULL DEFAULT '',
		operation TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_type TEXT NOT NULL,
		metadata_json TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL,
		FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_board_columns_project_position ON board_columns(project_id, position);`,
	`CREATE INDEX IF NOT EXISTS idx_items_project_bucket_order ON items(project_id, bucket_key, order_key);`,
	`CREATE INDEX IF NOT EXISTS idx_change_events_project_created_at ON change_events(project_id, created_at DESC, id DESC);`,
}

// projectUpgrades adds the board columns to projects tables created before boards had kinds.
var projectUpgrades = []struct{ column, ddl string }{
	{"board_kind", `ALTER TABLE projects ADD COLUMN board_kind TEXT NOT NULL DEFAULT 'kanban'`},
	{"plan_start", `ALTER TABLE projects ADD COLUMN plan_start TEXT`},
	{"plan_end", `ALTER TABLE projects ADD COLUMN plan_end TEXT`},
}

func (r *Repository) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	existing, err := r.tableColumns(ctx, "projects")
	if err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	for _, up := range projectUpgrades {
		if _, ok := existing[up.column]; ok {
			continue
		}
		if _, err := r.db.ExecContext(ctx, up.ddl); err != nil {
			return fmt.Errorf("migrate sqlite: add projects.%s: %w", up.column, err)
		}
	}
	return nil
}

func (r *Repository) tableColumns(ctx context.Context, table string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]struct{}{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = struct{}{}
	}
	return out, rows.Err()
}

const projectColumns = `id, slug, name, description, board_kind, plan_start, plan_end, created_at, updated_at, archived_at`

// CreateProject creates project.
func (r *Repository) CreateProject(ctx context.Context, p domain.Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects(`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Slug, p.Name, p.Description, string(p.Board), nullableTS(p.PlanStart), nullableTS(p.PlanEnd), ts(p.CreatedAt), ts(p.UpdatedAt), nullableTS(p.ArchivedAt))
	return err
}

// UpdateProject updates state for the requested operation.
func (r *Repository) UpdateProject(ctx context.Context, p domain.Project) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects
		SET slug = ?, name = ?, description = ?, board_kind = ?, plan_start = ?, plan_end = ?, updated_at = ?, archived_at = ?
		WHERE id = ?
	`, p.Slug, p.Name, p.Description, string(p.Board), nullableTS(p.PlanStart), nullableTS(p.PlanEnd), ts(p.UpdatedAt), nullableTS(p.ArchivedAt), p.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetProject returns project.
func (r *Repository) GetProject(ctx context.Context, id string) (domain.Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// ListProjects lists projects.
func (r *Repository) ListProjects(ctx context.Context, includeArchived bool) ([]domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	if !includeArchived {
		query += ` WHERE archived_at IS NULL`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const columnColumns = `id, project_id, name, wip_limit, position, created_at, updated_at, archived_at`

func (r *Repository) CreateColumn(ctx context.Context, c domain.Column) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO board_columns(`+columnColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.ProjectID, c.Name, c.WIPLimit, c.Position, ts(c.CreatedAt), ts(c.UpdatedAt), nullableTS(c.ArchivedAt))
	return err
}

// UpdateColumn writes every mutable column field, archive state included.
func (r *Repository) UpdateColumn(ctx context.Context, c domain.Column) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE board_columns
		SET name = ?, wip_limit = ?, position = ?, updated_at = ?, archived_at = ?
		WHERE id = ?
	`, c.Name, c.WIPLimit, c.Position, ts(c.UpdatedAt), nullableTS(c.ArchivedAt), c.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// ListColumns returns a project's columns by position; archived ones only when asked.
func (r *Repository) ListColumns(ctx context.Context, projectID string, includeArchived bool) ([]domain.Column, error) {
	query := `SELECT ` + columnColumns + ` FROM board_columns WHERE project_id = ?`
	if !includeArchived {
		query += ` AND archived_at IS NULL`
	}
	rows, err := r.db.QueryContext(ctx, query+` ORDER BY position ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Column{}
	for rows.Next() {
		c, err := scanColumn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const itemColumns = `
	id, project_id, bucket_key, order_key, title, description, priority, labels_json, start_date, end_date,
	created_by_actor, updated_by_actor, updated_by_type, created_at, updated_at, archived_at`

// CreateItem inserts an item and records a create event.
func (r *Repository) CreateItem(ctx context.Context, it domain.Item) error {
	labelsJSON, err := json.Marshal(it.Labels)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO items(`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		it.ID,
		it.ProjectID,
		it.BucketKey,
		nullableKey(it.OrderKey),
		it.Title,
		it.Description,
		string(it.Priority),
		string(labelsJSON),
		nullableTS(it.StartDate),
		nullableTS(it.EndDate),
		chooseActorID(it.CreatedByActor),
		chooseActorID(it.UpdatedByActor, it.CreatedByActor),
		string(domain.NormalizeActorType(it.UpdatedByType)),
		ts(it.CreatedAt),
		ts(it.UpdatedAt),
		nullableTS(it.ArchivedAt),
	)
	if err != nil {
		return err
	}

	err = insertChangeEvent(ctx, tx, domain.ChangeEvent{
		ProjectID: it.ProjectID,
		ItemID:    it.ID,
		Operation: domain.ChangeOperationCreate,
		ActorID:   chooseActorID(it.CreatedByActor),
		ActorType: it.UpdatedByType,
		Metadata: map[string]string{
			"bucket_key": it.BucketKey,
			"order_key":  formatKey(it.OrderKey),
			"title":      it.Title,
		},
		OccurredAt: it.CreatedAt,
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// UpdateItem stores an item and records an update, archive, restore or move event depending on
// what changed.
func (r *Repository) UpdateItem(ctx context.Context, it domain.Item) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	prev, err := getItemByID(ctx, tx, it.ID)
	if err != nil {
		return err
	}
	if err = writeItem(ctx, tx, it); err != nil {
		return err
	}

	op, metadata := classifyItemTransition(prev, it)
	err = insertChangeEvent(ctx, tx, domain.ChangeEvent{
		ProjectID:  it.ProjectID,
		ItemID:     it.ID,
		Operation:  op,
		ActorID:    chooseActorID(it.UpdatedByActor, prev.UpdatedByActor),
		ActorType:  it.UpdatedByType,
		Metadata:   metadata,
		OccurredAt: it.UpdatedAt,
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// MoveItem stores a moved item together with any rebalanced sibling keys in one transaction.
func (r *Repository) MoveItem(ctx context.Context, it domain.Item, rebalanced []app.OrderKeyUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	prev, err := getItemByID(ctx, tx, it.ID)
	if err != nil {
		return err
	}
	if err = writeItem(ctx, tx, it); err != nil {
		return err
	}
	if err = applyKeys(ctx, tx, it.ProjectID, rebalanced); err != nil {
		return err
	}

	metadata := map[string]string{
		"from_bucket": prev.BucketKey,
		"to_bucket":   it.BucketKey,
		"from_key":    formatKey(prev.OrderKey),
		"to_key":      formatKey(it.OrderKey),
	}
	if len(rebalanced) > 0 {
		metadata["rebalanced"] = strconv.Itoa(len(rebalanced))
	}
	if !equalNullableTimes(prev.StartDate, it.StartDate) {
		metadata["from_start"] = formatNullTS(prev.StartDate)
		metadata["to_start"] = formatNullTS(it.StartDate)
	}
	err = insertChangeEvent(ctx, tx, domain.ChangeEvent{
		ProjectID:  it.ProjectID,
		ItemID:     it.ID,
		Operation:  domain.ChangeOperationMove,
		ActorID:    chooseActorID(it.UpdatedByActor, prev.UpdatedByActor),
		ActorType:  it.UpdatedByType,
		Metadata:   metadata,
		OccurredAt: it.UpdatedAt,
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// ApplyOrderKeys rewrites keys of one bucket atomically and records a rebalance event.
func (r *Repository) ApplyOrderKeys(ctx context.Context, projectID, bucketKey string, updates []app.OrderKeyUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = applyKeys(ctx, tx, projectID, updates); err != nil {
		return err
	}
	err = insertChangeEvent(ctx, tx, domain.ChangeEvent{
		ProjectID: projectID,
		Operation: domain.ChangeOperationRebalance,
		ActorType: domain.ActorTypeSystem,
		Metadata: map[string]string{
			"bucket_key": bucketKey,
			"updated":    strconv.Itoa(len(updates)),
		},
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// GetItem returns item.
func (r *Repository) GetItem(ctx context.Context, id string) (domain.Item, error) {
	return getItemByID(ctx, r.db, id)
}

// ListItems lists a project's items ordered by bucket and key; unkeyed items sort last.
func (r *Repository) ListItems(ctx context.Context, projectID string, includeArchived bool) ([]domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE project_id = ?`
	if !includeArchived {
		query += ` AND archived_at IS NULL`
	}
	query += ` ORDER BY bucket_key ASC, order_key IS NULL, order_key ASC, created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// DeleteItem removes an item. Siblings keep their keys.
func (r *Repository) DeleteItem(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	item, err := getItemByID(ctx, tx, id)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		return err
	}

	err = insertChangeEvent(ctx, tx, domain.ChangeEvent{
		ProjectID: item.ProjectID,
		ItemID:    item.ID,
		Operation: domain.ChangeOperationDelete,
		ActorID:   chooseActorID(item.UpdatedByActor, item.CreatedByActor),
		ActorType: item.UpdatedByType,
		Metadata: map[string]string{
			"bucket_key": item.BucketKey,
			"order_key":  formatKey(item.OrderKey),
			"title":      item.Title,
		},
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// ListProjectChangeEvents lists recent project events for activity-log consumption.
func (r *Repository) ListProjectChangeEvents(ctx context.Context, projectID string, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, item_id, operation, actor_id, actor_type, metadata_json, created_at
		FROM change_events
		WHERE project_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChangeEvent, 0)
	for rows.Next() {
		var (
			event       domain.ChangeEvent
			opRaw       string
			actorType   string
			metadataRaw string
			createdRaw  string
		)
		if err := rows.Scan(&event.ID, &event.ProjectID, &event.ItemID, &opRaw, &event.ActorID, &actorType, &metadataRaw, &createdRaw); err != nil {
			return nil, err
		}
		event.Operation = normalizeChangeOperation(opRaw)
		event.ActorType = domain.NormalizeActorType(domain.ActorType(strings.ToLower(strings.TrimSpace(actorType))))
		event.OccurredAt = parseTS(createdRaw)
		if strings.TrimSpace(metadataRaw) == "" {
			metadataRaw = "{}"
		}
		if err := json.Unmarshal([]byte(metadataRaw), &event.Metadata); err != nil {
			return nil, fmt.Errorf("decode change_events.metadata_json: %w", err)
		}
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// queryRower represents a query-only DB contract used by DB and Tx implementations.
type queryRower interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// execerContext represents a write-only DB contract used by DB and Tx implementations.
type execerContext interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

func getItemByID(ctx context.Context, q queryRower, id string) (domain.Item, error) {
	row := q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	return scanItem(row)
}

func writeItem(ctx context.Context, execer execerContext, it domain.Item) error {
	labelsJSON, err := json.Marshal(it.Labels)
	if err != nil {
		return err
	}
	res, err := execer.ExecContext(ctx, `
		UPDATE items
		SET bucket_key = ?, order_key = ?, title = ?, description = ?, priority = ?, labels_json = ?, start_date = ?, end_date = ?,
		    updated_by_actor = ?, updated_by_type = ?, updated_at = ?, archived_at = ?
		WHERE id = ?
	`,
		it.BucketKey,
		nullableKey(it.OrderKey),
		it.Title,
		it.Description,
		string(it.Priority),
		string(labelsJSON),
		nullableTS(it.StartDate),
		nullableTS(it.EndDate),
		chooseActorID(it.UpdatedByActor, it.CreatedByActor),
		string(domain.NormalizeActorType(it.UpdatedByType)),
		ts(it.UpdatedAt),
		nullableTS(it.ArchivedAt),
		it.ID,
	)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// applyKeys writes each key update, failing if any item is missing from the project.
func applyKeys(ctx context.Context, execer execerContext, projectID string, updates []app.OrderKeyUpdate) error {
	for _, update := range updates {
		res, err := execer.ExecContext(ctx, `UPDATE items SET order_key = ? WHERE id = ? AND project_id = ?`, update.OrderKey, update.ItemID, projectID)
		if err != nil {
			return fmt.Errorf("update order key of %s: %w", update.ItemID, err)
		}
		if err := translateNoRows(res); err != nil {
			return fmt.Errorf("update order key of %s: %w", update.ItemID, err)
		}
	}
	return nil
}

// insertChangeEvent inserts a change-event ledger record.
func insertChangeEvent(ctx context.Context, execer execerContext, event domain.ChangeEvent) error {
	metadataJSON, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("encode change event metadata: %w", err)
	}
	_, err = execer.ExecContext(ctx, `
		INSERT INTO change_events(project_id, item_id, operation, actor_id, actor_type, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		event.ProjectID,
		event.ItemID,
		string(event.Operation),
		chooseActorID(event.ActorID),
		string(domain.NormalizeActorType(event.ActorType)),
		string(metadataJSON),
		ts(normalizeEventTS(event.OccurredAt)),
	)
	if err != nil {
		return fmt.Errorf("insert change event: %w", err)
	}
	return nil
}

// classifyItemTransition derives the operation category and metadata for an item update.
func classifyItemTransition(prev, next domain.Item) (domain.ChangeOperation, map[string]string) {
	if prev.ArchivedAt == nil && next.ArchivedAt != nil {
		return domain.ChangeOperationArchive, map[string]string{"bucket_key": next.BucketKey}
	}
	if prev.ArchivedAt != nil && next.ArchivedAt == nil {
		return domain.ChangeOperationRestore, map[string]string{"bucket_key": next.BucketKey}
	}
	if prev.BucketKey != next.BucketKey || !equalKeys(prev.OrderKey, next.OrderKey) {
		return domain.ChangeOperationMove, map[string]string{
			"from_bucket": prev.BucketKey,
			"to_bucket":   next.BucketKey,
			"from_key":    formatKey(prev.OrderKey),
			"to_key":      formatKey(next.OrderKey),
		}
	}
	fields := changedItemFields(prev, next)
	metadata := map[string]string{}
	if len(fields) > 0 {
		metadata["changed_fields"] = strings.Join(fields, ",")
	}
	return domain.ChangeOperationUpdate, metadata
}

// changedItemFields identifies a deterministic set of meaningful changes for metadata.
func changedItemFields(prev, next domain.Item) []string {
	changed := make([]string, 0)
	if prev.Title != next.Title {
		changed = append(changed, "title")
	}
	if prev.Description != next.Description {
		changed = append(changed, "description")
	}
	if prev.Priority != next.Priority {
		changed = append(changed, "priority")
	}
	if !equalStringSlices(prev.Labels, next.Labels) {
		changed = append(changed, "labels")
	}
	if !equalNullableTimes(prev.StartDate, next.StartDate) {
		changed = append(changed, "start_date")
	}
	if !equalNullableTimes(prev.EndDate, next.EndDate) {
		changed = append(changed, "end_date")
	}
	return changed
}

// equalStringSlices compares string slices by value and order.
func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// equalNullableTimes compares nullable timestamps using UTC normalization.
func equalNullableTimes(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UTC().Equal(b.UTC())
}

func equalKeys(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// chooseActorID returns the first non-empty actor id or the default local actor.
func chooseActorID(candidates ...string) string {
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate != "" {
			return candidate
		}
	}
	return defaultActorID
}

// normalizeChangeOperation canonicalizes persisted operation values.
func normalizeChangeOperation(raw string) domain.ChangeOperation {
	switch op := domain.ChangeOperation(strings.TrimSpace(strings.ToLower(raw))); op {
	case domain.ChangeOperationCreate,
		domain.ChangeOperationUpdate,
		domain.ChangeOperationMove,
		domain.ChangeOperationRebalance,
		domain.ChangeOperationArchive,
		domain.ChangeOperationRestore,
		domain.ChangeOperationDelete:
		return op
	default:
		return domain.ChangeOperationUpdate
	}
}

// normalizeEventTS ensures event timestamps are always populated and UTC-normalized.
func normalizeEventTS(in time.Time) time.Time {
	if in.IsZero() {
		return time.Now().UTC()
	}
	return in.UTC()
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (domain.Project, error) {
	var (
		p          domain.Project
		board      string
		planStart  sql.NullString
		planEnd    sql.NullString
		createdRaw string
		updatedRaw string
		archived   sql.NullString
	)
	if err := s.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &board, &planStart, &planEnd, &createdRaw, &updatedRaw, &archived); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Project{}, app.ErrNotFound
		}
		return domain.Project{}, err
	}
	kind, err := domain.ParseBoardKind(board)
	if err != nil {
		return domain.Project{}, fmt.Errorf("decode project board_kind %q: %w", board, err)
	}
	p.Board = kind
	p.PlanStart = parseNullTS(planStart)
	p.PlanEnd = parseNullTS(planEnd)
	p.CreatedAt = parseTS(createdRaw)
	p.UpdatedAt = parseTS(updatedRaw)
	p.ArchivedAt = parseNullTS(archived)
	return p, nil
}

func scanColumn(s scanner) (domain.Column, error) {
	var (
		c                domain.Column
		created, updated string
		archived         sql.NullString
	)
	if err := s.Scan(&c.ID, &c.ProjectID, &c.Name, &c.WIPLimit, &c.Position, &created, &updated, &archived); err != nil {
		return domain.Column{}, err
	}
	c.CreatedAt = parseTS(created)
	c.UpdatedAt = parseTS(updated)
	c.ArchivedAt = parseNullTS(archived)
	return c, nil
}

func scanItem(s scanner) (domain.Item, error) {
	var (
		it          domain.Item
		orderKey    sql.NullFloat64
		priority    string
		labelsRaw   string
		startRaw    sql.NullString
		endRaw      sql.NullString
		updatedType string
		createdRaw  string
		updatedRaw  string
		archivedRaw sql.NullString
	)
	if err := s.Scan(
		&it.ID,
		&it.ProjectID,
		&it.BucketKey,
		&orderKey,
		&it.Title,
		&it.Description,
		&priority,
		&labelsRaw,
		&startRaw,
		&endRaw,
		&it.CreatedByActor,
		&it.UpdatedByActor,
		&updatedType,
		&createdRaw,
		&updatedRaw,
		&archivedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, app.ErrNotFound
		}
		return domain.Item{}, err
	}
	if orderKey.Valid {
		key := orderKey.Float64
		it.OrderKey = &key
	}
	it.Priority = domain.Priority(priority)
	it.UpdatedByType = domain.NormalizeActorType(domain.ActorType(updatedType))
	it.StartDate = parseNullTS(startRaw)
	it.EndDate = parseNullTS(endRaw)
	it.CreatedAt = parseTS(createdRaw)
	it.UpdatedAt = parseTS(updatedRaw)
	it.ArchivedAt = parseNullTS(archivedRaw)
	if strings.TrimSpace(labelsRaw) == "" {
		labelsRaw = "[]"
	}
	if err := json.Unmarshal([]byte(labelsRaw), &it.Labels); err != nil {
		return domain.Item{}, fmt.Errorf("decode labels_json: %w", err)
	}
	return it, nil
}

// translateNoRows handles translate no rows.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// nullableTS handles nullable ts.
func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatNullTS(t *time.Time) string {
	if t == nil {
		return ""
	}
	return ts(*t)
}

func nullableKey(k *float64) any {
	if k == nil {
		return nil
	}
	return *k
}

func formatKey(k *float64) string {
	if k == nil {
		return ""
	}
	return strconv.FormatFloat(*k, 'f', -1, 64)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// parseNullTS parses input into a normalized form.
func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	ts := parseTS(v.String)
	return &ts
}
