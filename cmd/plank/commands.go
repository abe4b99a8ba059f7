package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	servercommon "github.com/hylla/plank/internal/adapters/server/common"
	"github.com/hylla/plank/internal/app"
	"github.com/hylla/plank/internal/domain"
	"github.com/hylla/plank/internal/ordering"
)

// newProjectCmd groups board-level commands.
func newProjectCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create, edit, and list boards",
	}

	var (
		req      servercommon.CreateProjectRequest
		asJSON   bool
		archived bool
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a kanban or planning board",
		Example: `  plank project create --name Launch
  plank project create --name Q3 --board planning --plan-start 2026-07-06 --plan-end 2026-09-27`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, "project create", func(ctx context.Context, rt *cliRuntime) error {
				project, err := rt.board.CreateProject(ctx, req)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), project)
				}
				renderProjects(cmd.OutOrStdout(), []servercommon.Project{project})
				return nil
			})
		},
	}
	create.Flags().StringVar(&req.Name, "name", "", "board name")
	create.Flags().StringVar(&req.Description, "description", "", "board description")
	create.Flags().StringVar(&req.Board, "board", string(domain.BoardKindKanban), "board kind: kanban or planning")
	create.Flags().StringVar(&req.PlanStart, "plan-start", "", "first planned day (YYYY-MM-DD, planning boards)")
	create.Flags().StringVar(&req.PlanEnd, "plan-end", "", "last planned day (YYYY-MM-DD, planning boards)")
	create.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	_ = create.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List boards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, "project list", func(ctx context.Context, rt *cliRuntime) error {
				projects, err := rt.board.ListProjects(ctx, archived)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), projects)
				}
				renderProjects(cmd.OutOrStdout(), projects)
				return nil
			})
		},
	}
	list.Flags().BoolVar(&archived, "archived", false, "include archived boards")
	list.Flags().BoolVar(&asJSON, "json", false, "output JSON")

	cmd.AddCommand(create, list, newProjectEditCmd(opts), newProjectArchiveCmd(opts, false), newProjectArchiveCmd(opts, true))
	return cmd
}

func newProjectEditCmd(opts *rootOptions) *cobra.Command {
	var (
		name        string
		description string
		planStart   string
		planEnd     string
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:     "edit <project-id>",
		Short:   "Rename a board or change its plan range",
		Example: `  plank project edit 3c1d --plan-start 2026-07-06 --plan-end 2026-10-25`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch domain.ProjectPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			var err error
			if patch.PlanStart, err = parseDateFlag("plan-start", planStart); err != nil {
				return err
			}
			if patch.PlanEnd, err = parseDateFlag("plan-end", planEnd); err != nil {
				return err
			}
			return withRuntime(cmd, opts, "project edit", func(ctx context.Context, rt *cliRuntime) error {
				project, err := rt.svc.UpdateProject(ctx, args[0], patch)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), project)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "updated project %s (%s)\n", project.Name, project.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new board name")
	cmd.Flags().StringVar(&description, "description", "", "new board description")
	cmd.Flags().StringVar(&planStart, "plan-start", "", "first planned day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&planEnd, "plan-end", "", "last planned day (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	cmd.MarkFlagsRequiredTogether("plan-start", "plan-end")
	return cmd
}

// newProjectArchiveCmd builds "project archive" or, with restore set, "project restore".
func newProjectArchiveCmd(opts *rootOptions, restore bool) *cobra.Command {
	use, short, verb := "archive", "Hide a board from listings", "archived"
	if restore {
		use, short, verb = "restore", "Bring back an archived board", "restored"
	}
	return &cobra.Command{
		Use:   use + " <project-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, "project "+use, func(ctx context.Context, rt *cliRuntime) error {
				apply := rt.svc.ArchiveProject
				if restore {
					apply = rt.svc.RestoreProject
				}
				project, err := apply(ctx, args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s project %s (%s)\n", verb, project.Name, project.ID)
				return nil
			})
		},
	}
}

// newColumnCmd manages the columns of kanban boards.
func newColumnCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "column",
		Short: "Manage kanban columns",
	}

	var (
		projectID string
		name      string
		position  int
		wipLimit  int
		archived  bool
		asJSON    bool
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Add a column to a kanban board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, "column create", func(ctx context.Context, rt *cliRuntime) error {
				if position < 0 {
					existing, err := rt.svc.ListColumns(ctx, projectID, true)
					if err != nil {
						return err
					}
					position = len(existing)
				}
				column, err := rt.svc.CreateColumn(ctx, projectID, name, position, wipLimit)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), column)
				}
				renderColumns(cmd.OutOrStdout(), []domain.Column{column})
				return nil
			})
		},
	}
	create.Flags().StringVar(&projectID, "project", "", "board id")
	create.Flags().StringVar(&name, "name", "", "column name")
	create.Flags().IntVar(&position, "position", -1, "column position (appends when negative)")
	create.Flags().IntVar(&wipLimit, "wip-limit", 0, "work-in-progress limit (0 disables)")
	create.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	_ = create.MarkFlagRequired("project")
	_ = create.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the columns of a kanban board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, "column list", func(ctx context.Context, rt *cliRuntime) error {
				columns, err := rt.svc.ListColumns(ctx, projectID, archived)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), columns)
				}
				renderColumns(cmd.OutOrStdout(), columns)
				return nil
			})
		},
	}
	list.Flags().StringVar(&projectID, "project", "", "board id")
	list.Flags().BoolVar(&archived, "archived", false, "include archived columns")
	list.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	_ = list.MarkFlagRequired("project")

	cmd.AddCommand(create, list, newColumnEditCmd(opts), newColumnArchiveCmd(opts, false), newColumnArchiveCmd(opts, true))
	return cmd
}

func newColumnEditCmd(opts *rootOptions) *cobra.Command {
	var (
		projectID string
		name      string
		position  int
		wipLimit  int
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "edit <column>",
		Short: "Rename, reposition, or re-limit a column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch domain.ColumnPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("position") {
				patch.Position = &position
			}
			if cmd.Flags().Changed("wip-limit") {
				patch.WIPLimit = &wipLimit
			}
			return withRuntime(cmd, opts, "column edit", func(ctx context.Context, rt *cliRuntime) error {
				column, err := rt.svc.UpdateColumn(ctx, projectID, args[0], patch)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), column)
				}
				renderColumns(cmd.OutOrStdout(), []domain.Column{column})
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "board id")
	cmd.Flags().StringVar(&name, "name", "", "new column name")
	cmd.Flags().IntVar(&position, "position", 0, "new column position")
	cmd.Flags().IntVar(&wipLimit, "wip-limit", 0, "new work-in-progress limit (0 disables)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

// newColumnArchiveCmd builds "column archive" or, with restore set, "column restore".
func newColumnArchiveCmd(opts *rootOptions, restore bool) *cobra.Command {
	var projectID string
	use, short, verb := "archive", "Hide a column and the items in it", "archived"
	if restore {
		use, short, verb = "restore", "Bring back an archived column with its items", "restored"
	}
	cmd := &cobra.Command{
		Use:   use + " <column>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, "column "+use, func(ctx context.Context, rt *cliRuntime) error {
				apply := rt.svc.ArchiveColumn
				if restore {
					apply = rt.svc.RestoreColumn
				}
				column, err := apply(ctx, projectID, args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s column %s (%s)\n", verb, column.Name, column.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "board id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

// newBucketCmd lists buckets and rebalances their keys.
func newBucketCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bucket",
		Short: "Inspect buckets and respace their order keys",
	}

	var (
		projectID string
		bucketKey string
		asJSON    bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List the buckets of a board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, "bucket list", func(ctx context.Context, rt *cliRuntime) error {
				buckets, err := rt.board.ListBuckets(ctx, projectID)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), buckets)
				}
				renderBuckets(cmd.OutOrStdout(), buckets)
				return nil
			})
		},
	}
	list.Flags().StringVar(&projectID, "project", "", "board id")
	list.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	_ = list.MarkFlagRequired("project")

	rebalance := &cobra.Command{
		Use:   "rebalance",
		Short: "Respace every key in a bucket to whole multiples of the gap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, "bucket rebalance", func(ctx context.Context, rt *cliRuntime) error {
				res, err := rt.board.RebalanceBucket(ctx, projectID, bucketKey)
				if err != nil {
					return err
				}
				rt.logger.Info("bucket rebalanced", "project_id", res.ProjectID, "bucket", res.BucketKey, "updated", len(res.Updated))
				if asJSON {
					return printJSON(cmd.OutOrStdout(), res)
				}
				renderKeyUpdates(cmd.OutOrStdout(), res.Updated)
				return nil
			})
		},
	}
	rebalance.Flags().StringVar(&projectID, "project", "", "board id")
	rebalance.Flags().StringVar(&bucketKey, "bucket", "", "column id or week key")
	rebalance.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	_ = rebalance.MarkFlagRequired("project")
	_ = rebalance.MarkFlagRequired("bucket")

	cmd.AddCommand(list, rebalance)
	return cmd
}

// newItemCmd adds, lists, moves, and removes items.
func newItemCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manage board items",
	}
	cmd.AddCommand(
		newItemAddCmd(opts),
		newItemListCmd(opts),
		newItemEditCmd(opts),
		newItemMoveCmd(opts),
		newItemRemoveCmd(opts),
		newItemRestoreCmd(opts),
	)
	return cmd
}

func newItemAddCmd(opts *rootOptions) *cobra.Command {
	var (
		req    servercommon.CreateItemRequest
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append an item to a bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, "item add", func(ctx context.Context, rt *cliRuntime) error {
				if req.ProjectID == "" {
					project, err := rt.svc.EnsureDefaultProject(ctx)
					if err != nil {
						return err
					}
					rt.logger.Debug("using default board", "project_id", project.ID)
					req.ProjectID = project.ID
				}
				req.ActorID = cliActorID
				req.ActorType = string(domain.ActorTypeUser)
				item, err := rt.board.CreateItem(ctx, req)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), item)
				}
				renderItems(cmd.OutOrStdout(), []servercommon.Item{item})
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.ProjectID, "project", "", "board id (defaults to the first board, created on demand)")
	cmd.Flags().StringVar(&req.BucketKey, "bucket", "", "column id or week key (defaults to the first bucket)")
	cmd.Flags().StringVar(&req.Title, "title", "", "item title")
	cmd.Flags().StringVar(&req.Description, "description", "", "item description")
	cmd.Flags().StringVar(&req.Priority, "priority", "", "low, medium, or high")
	cmd.Flags().StringArrayVar(&req.Labels, "label", nil, "label (repeatable)")
	cmd.Flags().StringVar(&req.StartDate, "start", "", "start date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&req.EndDate, "end", "", "end date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newItemListCmd(opts *rootOptions) *cobra.Command {
	var (
		projectID string
		bucketKey string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items in key order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, "item list", func(ctx context.Context, rt *cliRuntime) error {
				items, err := rt.board.ListItems(ctx, projectID, bucketKey)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), items)
				}
				renderItems(cmd.OutOrStdout(), items)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "board id")
	cmd.Flags().StringVar(&bucketKey, "bucket", "", "limit to one column id or week key")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newItemEditCmd(opts *rootOptions) *cobra.Command {
	var (
		title       string
		description string
		priority    string
		labels      []string
		start       string
		end         string
		clearDates  bool
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "edit <item-id>",
		Short: "Change an item's details or dates without moving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := app.UpdateItemInput{
				ItemID:     args[0],
				Title:      title,
				Priority:   domain.Priority(priority),
				ClearDates: clearDates,
				ActorID:    cliActorID,
				ActorType:  domain.ActorTypeUser,
			}
			if cmd.Flags().Changed("description") {
				in.Description = &description
			}
			if cmd.Flags().Changed("label") {
				in.Labels = labels
			}
			var err error
			if in.StartDate, err = parseDateFlag("start", start); err != nil {
				return err
			}
			if in.EndDate, err = parseDateFlag("end", end); err != nil {
				return err
			}
			return withRuntime(cmd, opts, "item edit", func(ctx context.Context, rt *cliRuntime) error {
				item, err := rt.svc.UpdateItem(ctx, in)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), item)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", item.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium, or high")
	cmd.Flags().StringArrayVar(&labels, "label", nil, "replacement label (repeatable)")
	cmd.Flags().StringVar(&start, "start", "", "new start date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&end, "end", "", "new end date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().BoolVar(&clearDates, "clear-dates", false, "remove the item's dates")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	cmd.MarkFlagsMutuallyExclusive("clear-dates", "start")
	cmd.MarkFlagsMutuallyExclusive("clear-dates", "end")
	return cmd
}

func newItemMoveCmd(opts *rootOptions) *cobra.Command {
	var (
		toBucket string
		before   string
		after    string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "move <item-id>",
		Short: "Drop an item next to a sibling or at the end of a bucket",
		Example: `  plank item move 5f1c --before 9a2e
  plank item move 5f1c --to progress
  plank item move 5f1c --to 2026-W28 --after 77b0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := servercommon.MoveItemRequest{
				ItemID:    args[0],
				ToBucket:  toBucket,
				ActorID:   cliActorID,
				ActorType: string(domain.ActorTypeUser),
			}
			switch {
			case before != "":
				req.SiblingID, req.Side = before, "before"
			case after != "":
				req.SiblingID, req.Side = after, "after"
			}
			return withRuntime(cmd, opts, "item move", func(ctx context.Context, rt *cliRuntime) error {
				res, err := rt.board.MoveItem(ctx, req)
				if err != nil {
					return err
				}
				rt.logger.Info("item moved", "item_id", res.Item.ID, "kind", res.Kind, "bucket", res.Item.BucketKey, "rebalanced", len(res.Rebalanced))
				if asJSON {
					return printJSON(cmd.OutOrStdout(), res)
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "%s: %s -> %s at %s\n", res.Kind, res.Item.ID, res.Item.BucketKey, formatKey(res.Item.OrderKey))
				if len(res.Rebalanced) > 0 {
					renderKeyUpdates(out, res.Rebalanced)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&toBucket, "to", "", "target column id or week key (defaults to the current bucket)")
	cmd.Flags().StringVar(&before, "before", "", "sibling id to drop above")
	cmd.Flags().StringVar(&after, "after", "", "sibling id to drop below")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	cmd.MarkFlagsMutuallyExclusive("before", "after")
	return cmd
}

func newItemRemoveCmd(opts *rootOptions) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:     "rm <item-id>",
		Aliases: []string{"delete"},
		Short:   "Archive or hard-delete an item",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, "item rm", func(ctx context.Context, rt *cliRuntime) error {
				if err := rt.board.DeleteItem(ctx, args[0], mode); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "archive or hard (defaults to delete.default_mode)")
	return cmd
}

func newItemRestoreCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <item-id>",
		Short: "Bring back an archived item at its old position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, "item restore", func(ctx context.Context, rt *cliRuntime) error {
				item, err := rt.svc.RestoreItem(ctx, args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "restored %s in %s at %s\n", item.ID, item.BucketKey, formatKey(item.OrderKey))
				return nil
			})
		},
	}
}

// newBoardCmd renders a whole board bucket by bucket, optionally after dragging one item.
func newBoardCmd(opts *rootOptions) *cobra.Command {
	var (
		projectID string
		moveID    string
		toBucket  string
		before    string
		after     string
	)
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show every bucket of a board in key order",
		Example: `  plank board --project 3c1d
  plank board --project 3c1d --move 5f1c --to done --before 9a2e`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, "board", func(ctx context.Context, rt *cliRuntime) error {
				buckets, err := rt.svc.ListBuckets(ctx, projectID)
				if err != nil {
					return err
				}
				board, err := rt.svc.LoadBoard(ctx, projectID)
				if err != nil {
					return err
				}
				if moveID != "" {
					if err := dragOnBoard(ctx, board, buckets, moveID, toBucket, before, after); err != nil {
						return err
					}
					rt.logger.Info("item dragged", "item_id", moveID, "bucket", toBucket)
				}
				items, err := rt.board.ListItems(ctx, projectID, "")
				if err != nil {
					return err
				}
				titles := make(map[string]string, len(items))
				for _, item := range items {
					titles[item.ID] = item.Title
				}
				renderBoard(cmd.OutOrStdout(), buckets, board, titles)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "board id")
	cmd.Flags().StringVar(&moveID, "move", "", "item id to drag before rendering")
	cmd.Flags().StringVar(&toBucket, "to", "", "bucket key or name to drop into (defaults to the current bucket)")
	cmd.Flags().StringVar(&before, "before", "", "sibling id to drop above")
	cmd.Flags().StringVar(&after, "after", "", "sibling id to drop below")
	cmd.MarkFlagsMutuallyExclusive("before", "after")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

// dragOnBoard applies one drop through the optimistic board; a failed save leaves the board as it was.
func dragOnBoard(ctx context.Context, board *app.Board, buckets []domain.Bucket, itemID, to, before, after string) error {
	item, ok := board.Item(itemID)
	if !ok {
		return fmt.Errorf("item %s: %w", itemID, app.ErrNotFound)
	}
	target := item.BucketKey
	if ref := strings.TrimSpace(to); ref != "" {
		target = ref
		for _, bucket := range buckets {
			if bucket.Key == ref || strings.EqualFold(bucket.Name, ref) {
				target = bucket.Key
				break
			}
		}
	}
	var drop ordering.DropTarget = ordering.DropEmpty{}
	switch {
	case before != "":
		drop = ordering.DropRelative{SiblingID: before, Side: ordering.SideBefore}
	case after != "":
		drop = ordering.DropRelative{SiblingID: after, Side: ordering.SideAfter}
	}
	_, err := board.Move(ctx, itemID, target, drop)
	return err
}

// newLogCmd lists the change ledger of a board.
func newLogCmd(opts *rootOptions) *cobra.Command {
	var (
		projectID string
		limit     int
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent changes to a board, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, "log", func(ctx context.Context, rt *cliRuntime) error {
				events, err := rt.board.ListChangeEvents(ctx, projectID, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), events)
				}
				renderEvents(cmd.OutOrStdout(), events)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "board id")
	cmd.Flags().IntVar(&limit, "limit", 25, "maximum events to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

// parseDateFlag accepts RFC3339 timestamps or plain dates.
func parseDateFlag(name, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid --%s %q: want YYYY-MM-DD or RFC3339", name, raw)
}

func formatKey(key *float64) string {
	if key == nil {
		return "-"
	}
	return strconv.FormatFloat(*key, 'f', -1, 64)
}
