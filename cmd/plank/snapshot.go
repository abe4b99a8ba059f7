package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hylla/plank/internal/app"
)

// snapshotFormat resolves the encoding from an explicit flag or the file extension.
func snapshotFormat(flagValue, path string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(flagValue))
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = "yaml"
		default:
			format = "json"
		}
	}
	switch format {
	case "json", "yaml":
		return format, nil
	default:
		return "", fmt.Errorf("unsupported snapshot format %q (want json or yaml)", flagValue)
	}
}

func encodeSnapshot(snap app.Snapshot, format string) ([]byte, error) {
	if format == "yaml" {
		encoded, err := yaml.Marshal(snap)
		if err != nil {
			return nil, fmt.Errorf("encode snapshot yaml: %w", err)
		}
		return encoded, nil
	}
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot json: %w", err)
	}
	return append(encoded, '\n'), nil
}

func decodeSnapshot(content []byte, format string) (app.Snapshot, error) {
	var snap app.Snapshot
	if format == "yaml" {
		if err := yaml.Unmarshal(content, &snap); err != nil {
			return app.Snapshot{}, fmt.Errorf("decode snapshot yaml: %w", err)
		}
		return snap, nil
	}
	if err := json.Unmarshal(content, &snap); err != nil {
		return app.Snapshot{}, fmt.Errorf("decode snapshot json: %w", err)
	}
	return snap, nil
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		outPath         string
		format          string
		includeArchived bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every board to a JSON or YAML snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := snapshotFormat(format, outPath)
			if err != nil {
				return err
			}
			return withRuntime(cmd, opts, "export", func(ctx context.Context, rt *cliRuntime) error {
				snap, err := rt.svc.ExportSnapshot(ctx, includeArchived)
				if err != nil {
					return fmt.Errorf("export snapshot: %w", err)
				}
				encoded, err := encodeSnapshot(snap, resolved)
				if err != nil {
					return err
				}
				if outPath == "-" {
					if _, err := cmd.OutOrStdout().Write(encoded); err != nil {
						return fmt.Errorf("write snapshot to stdout: %w", err)
					}
					return nil
				}
				if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
					return fmt.Errorf("create export output dir: %w", err)
				}
				if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
					return fmt.Errorf("write export file: %w", err)
				}
				rt.logger.Info("snapshot written", "path", outPath, "format", resolved, "projects", len(snap.Projects), "items", len(snap.Items))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (defaults from the file extension, else json)")
	cmd.Flags().BoolVar(&includeArchived, "include-archived", true, "include archived boards, columns, and items")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var (
		inPath string
		format string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upsert boards from a JSON or YAML snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := snapshotFormat(format, inPath)
			if err != nil {
				return err
			}
			content, err := os.ReadFile(inPath)
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			snap, err := decodeSnapshot(content, resolved)
			if err != nil {
				return err
			}
			return withRuntime(cmd, opts, "import", func(ctx context.Context, rt *cliRuntime) error {
				if err := rt.svc.ImportSnapshot(ctx, snap); err != nil {
					return fmt.Errorf("import snapshot: %w", err)
				}
				rt.logger.Info("snapshot imported", "path", inPath, "projects", len(snap.Projects), "items", len(snap.Items))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot file")
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (defaults from the file extension, else json)")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
