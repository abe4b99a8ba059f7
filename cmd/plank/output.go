package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	servercommon "github.com/hylla/plank/internal/adapters/server/common"
	"github.com/hylla/plank/internal/app"
	"github.com/hylla/plank/internal/domain"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json output: %w", err)
	}
	return nil
}

func newTable(w io.Writer, header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(header)
	return tw
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func renderProjects(w io.Writer, projects []servercommon.Project) {
	tw := newTable(w, table.Row{"ID", "Slug", "Name", "Board", "Plan"})
	for _, p := range projects {
		plan := ""
		if p.PlanStart != nil && p.PlanEnd != nil {
			plan = formatDate(p.PlanStart) + " .. " + formatDate(p.PlanEnd)
		}
		tw.AppendRow(table.Row{p.ID, p.Slug, p.Name, p.Board, plan})
	}
	tw.Render()
}

func renderColumns(w io.Writer, columns []domain.Column) {
	tw := newTable(w, table.Row{"ID", "Name", "Position", "WIP"})
	for _, c := range columns {
		wip := ""
		if c.WIPLimit > 0 {
			wip = fmt.Sprint(c.WIPLimit)
		}
		tw.AppendRow(table.Row{c.ID, c.Name, c.Position, wip})
	}
	tw.Render()
}

func renderBuckets(w io.Writer, buckets []servercommon.Bucket) {
	tw := newTable(w, table.Row{"Key", "Name", "Start", "End"})
	for _, b := range buckets {
		tw.AppendRow(table.Row{b.Key, b.Name, formatDate(b.Start), formatDate(b.End)})
	}
	tw.Render()
}

func renderItems(w io.Writer, items []servercommon.Item) {
	tw := newTable(w, table.Row{"Bucket", "Key", "ID", "Title", "Priority", "Start", "End"})
	for _, it := range items {
		tw.AppendRow(table.Row{it.BucketKey, formatKey(it.OrderKey), it.ID, it.Title, it.Priority, formatDate(it.StartDate), formatDate(it.EndDate)})
	}
	tw.Render()
}

func renderKeyUpdates(w io.Writer, updates []servercommon.KeyUpdate) {
	tw := newTable(w, table.Row{"Item", "New key"})
	for _, u := range updates {
		key := u.OrderKey
		tw.AppendRow(table.Row{u.ItemID, formatKey(&key)})
	}
	tw.SetCaption("%d key(s) rewritten", len(updates))
	tw.Render()
}

// renderBoard prints one table per bucket using the board's in-memory ordering.
func renderBoard(w io.Writer, buckets []domain.Bucket, board *app.Board, titles map[string]string) {
	for _, bucket := range buckets {
		tw := newTable(w, table.Row{"#", "Key", "ID", "Title", "Start", "End"})
		title := bucket.Name
		if bucket.Dated() {
			title = fmt.Sprintf("%s (%s .. %s)", bucket.Name, bucket.Start.Format(time.DateOnly), bucket.End.Format(time.DateOnly))
		}
		tw.SetTitle(title)
		for idx, item := range board.Items(bucket.Key) {
			key := "-"
			if item.HasOrderKey {
				k := item.OrderKey
				key = formatKey(&k)
			}
			tw.AppendRow(table.Row{idx + 1, key, item.ID, titles[item.ID], formatDate(item.StartDate), formatDate(item.EndDate)})
		}
		tw.Render()
	}
}

func renderEvents(w io.Writer, events []servercommon.ChangeEvent) {
	tw := newTable(w, table.Row{"ID", "When", "Operation", "Item", "Actor", "Details"})
	for _, ev := range events {
		keys := make([]string, 0, len(ev.Metadata))
		for key := range ev.Metadata {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		details := make([]string, 0, len(keys))
		for _, key := range keys {
			details = append(details, key+"="+ev.Metadata[key])
		}
		tw.AppendRow(table.Row{ev.ID, ev.OccurredAt.Format(time.RFC3339), ev.Operation, ev.ItemID, ev.ActorType + ":" + ev.ActorID, strings.Join(details, " ")})
	}
	tw.Render()
}
