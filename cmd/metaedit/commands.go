package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/anne-tanne/metadata-change-app/internal/api"
)

// printOutput writes v in the format chosen with --output
func printOutput(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// parseAssignments turns Section:Field=value arguments into a metadata map
func parseAssignments(args []string) (map[string]any, error) {
	md := make(map[string]any)
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected Section:Field=value, got %q", arg)
		}
		section, field, ok := strings.Cut(key, ":")
		if !ok || section == "" || strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("expected Section:Field=value, got %q", arg)
		}
		fields, _ := md[section].(map[string]any)
		if fields == nil {
			fields = make(map[string]any)
			md[section] = fields
		}
		fields[field] = value
	}
	return md, nil
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = cfg.Server.Addr
			}
			return api.New(a.svc, addr, cfg.Server.MaxBodyMB).Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address (default server.addr)")
	return cmd
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan [folder]",
		Short: "List the images of a folder with their metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			scan, err := a.svc.ScanFolder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), output, scan)
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [image]",
		Short: "Show metadata, suggestions and recommendations for an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			view, err := a.svc.GetMetadataAndSuggestions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), output, view)
		},
	}
}

func setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [image] [Section:Field=value]...",
		Short: "Write metadata fields and learn from them",
		Example: `  metaedit set photo.jpg EXIF:Artist="Jane Doe" IPTC:City=Paris
  metaedit set photo.jpg Custom:Title=Harbour`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.svc.UpdateMetadata(cmd.Context(), args[0], md)
			if err := printOutput(cmd.OutOrStdout(), output, res); err != nil {
				return err
			}
			if !res.Success {
				if res.Err != nil {
					return res.Err
				}
				return fmt.Errorf("%s", res.Error)
			}
			return nil
		},
	}
}

func suggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest [field]",
		Short: "Show learned values for a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			return printOutput(cmd.OutOrStdout(), output, a.svc.SuggestionsForField(cmd.Context(), args[0]))
		},
	}
}

func popularCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "popular",
		Short: "Show the most used values across fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			return printOutput(cmd.OutOrStdout(), output, a.svc.PopularValues(cmd.Context(), limit))
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of values to show")
	return cmd
}

func recentCmd() *cobra.Command {
	var days, limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show recently used values",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			return printOutput(cmd.OutOrStdout(), output, a.svc.RecentValues(cmd.Context(), days, limit))
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 7, "look back this many days")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of values to show")
	return cmd
}

func foldersCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "folders",
		Short: "List recently scanned folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			return printOutput(cmd.OutOrStdout(), output, a.svc.RecentFolders(cmd.Context(), limit))
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of folders to show")
	return cmd
}

func purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete learned values unused for learning.retention_days",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.svc.PurgeStale(cmd.Context())
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), output, map[string]int64{"removed": n})
		},
	}
}

func exportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export [image]...",
		Short: "Export the metadata of several images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			exp, err := a.svc.ExportMetadata(cmd.Context(), args, format)
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), output, exp)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "export format")
	return cmd
}
