package mcpapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/hylla/plank/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// defaultToolActorType attributes MCP writes to agents unless told otherwise.
const defaultToolActorType = "agent"

// registerProjectTools registers project, bucket, and change-feed reads plus project creation.
func registerProjectTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"plank.list_projects",
			mcp.WithDescription("List boards."),
			mcp.WithBoolean("include_archived", mcp.Description("Include archived boards")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rows, err := board.ListProjects(ctx, req.GetBool("include_archived", false))
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_projects", map[string]any{"projects": rows})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"plank.create_project",
			mcp.WithDescription("Create one kanban or planning board."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Board name")),
			mcp.WithString("description", mcp.Description("Board description")),
			mcp.WithString("board", mcp.Description("kanban or planning"), mcp.Enum("kanban", "planning")),
			mcp.WithString("plan_start", mcp.Description("Planning range start (YYYY-MM-DD)")),
			mcp.WithString("plan_end", mcp.Description("Planning range end (YYYY-MM-DD)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args common.CreateProjectRequest
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.Name) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "name" not found`), nil
			}
			project, err := board.CreateProject(ctx, args)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("create_project", project)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"plank.list_buckets",
			mcp.WithDescription("List the columns or planning weeks of one board in display order."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := req.RequireString("project_id")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			rows, err := board.ListBuckets(ctx, projectID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_buckets", map[string]any{"buckets": rows})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"plank.list_change_events",
			mcp.WithDescription("List recent change events for one board, newest first."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
			mcp.WithNumber("limit", mcp.Description("Maximum rows to return")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := req.RequireString("project_id")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			rows, err := board.ListChangeEvents(ctx, projectID, req.GetInt("limit", 25))
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_change_events", map[string]any{"events": rows})
		},
	)
}

// registerItemTools registers item list/create/delete tools.
func registerItemTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"plank.list_items",
			mcp.WithDescription("List active items of a board in bucket and key order."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
			mcp.WithString("bucket", mcp.Description("Optional bucket key or column name")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := req.RequireString("project_id")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			rows, err := board.ListItems(ctx, projectID, req.GetString("bucket", ""))
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_items", map[string]any{"items": rows})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"plank.create_item",
			mcp.WithDescription("Append a new item to a bucket."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
			mcp.WithString("title", mcp.Required(), mcp.Description("Item title")),
			mcp.WithString("bucket_key", mcp.Description("Bucket key or column name; defaults to the first bucket or the start week")),
			mcp.WithString("description", mcp.Description("Item description")),
			mcp.WithString("priority", mcp.Description("low|medium|high"), mcp.Enum("low", "medium", "high")),
			mcp.WithArray("labels", mcp.Description("Optional labels"), mcp.WithStringItems()),
			mcp.WithString("start_date", mcp.Description("Start (YYYY-MM-DD or RFC3339)")),
			mcp.WithString("end_date", mcp.Description("End (YYYY-MM-DD or RFC3339)")),
			mcp.WithString("actor_id", mcp.Description("Acting agent id")),
			mcp.WithString("actor_type", mcp.Description("user|agent|system"), mcp.Enum("user", "agent", "system")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args common.CreateItemRequest
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.ProjectID) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "project_id" not found`), nil
			}
			if strings.TrimSpace(args.Title) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "title" not found`), nil
			}
			if strings.TrimSpace(args.ActorType) == "" {
				args.ActorType = defaultToolActorType
			}
			item, err := board.CreateItem(ctx, args)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("create_item", item)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"plank.delete_item",
			mcp.WithDescription("Archive or hard-delete one item. Siblings keep their keys."),
			mcp.WithString("item_id", mcp.Required(), mcp.Description("Item identifier")),
			mcp.WithString("mode", mcp.Description("archive|hard"), mcp.Enum("archive", "hard")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			itemID, err := req.RequireString("item_id")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			if err := board.DeleteItem(ctx, itemID, req.GetString("mode", "")); err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("delete_item", map[string]any{"item_id": itemID, "deleted": true})
		},
	)
}

// registerOrderingTools registers the drag-and-drop and rebalance tools.
func registerOrderingTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"plank.move_item",
			mcp.WithDescription("Move an item relative to a sibling or onto a bucket. Repeating a move is a no-op."),
			mcp.WithString("item_id", mcp.Required(), mcp.Description("Item to move")),
			mcp.WithString("to_bucket", mcp.Description("Target bucket key or column name; defaults to the current bucket")),
			mcp.WithString("sibling_id", mcp.Description("Reference item in the target bucket; empty appends")),
			mcp.WithString("side", mcp.Description("Side of the sibling to drop on"), mcp.Enum("before", "after", "auto")),
			mcp.WithString("actor_id", mcp.Description("Acting agent id")),
			mcp.WithString("actor_type", mcp.Description("user|agent|system"), mcp.Enum("user", "agent", "system")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args common.MoveItemRequest
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.ItemID) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "item_id" not found`), nil
			}
			if strings.TrimSpace(args.ActorType) == "" {
				args.ActorType = defaultToolActorType
			}
			res, err := board.MoveItem(ctx, args)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("move_item", res)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"plank.rebalance_bucket",
			mcp.WithDescription("Respace the order keys of one bucket, keeping the current order."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
			mcp.WithString("bucket_key", mcp.Required(), mcp.Description("Bucket key or column name")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := req.RequireString("project_id")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			bucketKey, err := req.RequireString("bucket_key")
			if err != nil {
				return invalidRequestToolResult(err), nil
			}
			res, err := board.RebalanceBucket(ctx, projectID, bucketKey)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("rebalance_bucket", res)
		},
	)
}

func jsonResult(tool string, payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}
