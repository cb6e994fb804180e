package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/anne-tanne/metadata-change-app/internal/codec"
	"github.com/anne-tanne/metadata-change-app/internal/config"
	"github.com/anne-tanne/metadata-change-app/internal/editor"
	"github.com/anne-tanne/metadata-change-app/internal/store"
)

const version = "1.0.0"

var (
	cfgFile string
	dbPath  string
	output  string
	cfg     *config.Config
)

func main() {
	rootCmd := newRootCmd()

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "metaedit",
		Short: "Image metadata editor with learned suggestions",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				loaded.Database.Path = dbPath
			}

			logger, err := loaded.Log.NewLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			cfg = loaded
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides database.path)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(setCmd())
	rootCmd.AddCommand(suggestCmd())
	rootCmd.AddCommand(popularCmd())
	rootCmd.AddCommand(recentCmd())
	rootCmd.AddCommand(foldersCmd())
	rootCmd.AddCommand(purgeCmd())
	rootCmd.AddCommand(exportCmd())

	return rootCmd
}

// app holds the opened collaborators of one command run
type app struct {
	svc   *editor.Service
	store *store.Store
	codec codec.Codec
}

func (a *app) Close() {
	if err := a.codec.Close(); err != nil {
		slog.Warn("Closing codec failed", "err", err)
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("Closing database failed", "err", err)
	}
}

func openApp() (*app, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	s, err := store.New(cfg.Database.Path, store.Options{Timeout: cfg.Database.Timeout})
	if err != nil {
		return nil, err
	}

	c, err := codec.Open(codec.Options{
		Kind: cfg.Codec.Kind,
		ExifTool: codec.ExifToolOptions{
			BinaryPath:      cfg.Codec.ExifToolPath,
			BackupOriginals: cfg.Codec.BackupOriginals,
		},
	})
	if err != nil {
		s.Close()
		return nil, err
	}

	svc := editor.New(s, c, editor.Options{
		Formats:       cfg.Formats,
		RejectInvalid: cfg.Editor.RejectInvalid,
		BatchWorkers:  cfg.Learning.BatchWorkers,
		RetentionDays: cfg.Learning.RetentionDays,
	})
	return &app{svc: svc, store: s, codec: c}, nil
}
