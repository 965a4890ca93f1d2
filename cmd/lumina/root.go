package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/luminahq/lumina/internal/config"
	"github.com/luminahq/lumina/internal/storage"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	settings config.Settings
	dataDir  string
	logLevel string
	logger   *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "lumina",
		Short: "Lumina is a workbench for building and sending HTTP requests",
		Long: heredoc.Doc(`
			Lumina keeps HTTP requests in projects made of folders, environments
			and variables. Run "lumina serve" to start the JSON API, or use the
			other commands to work with project files on disk.

			Settings are read from settings.toml or settings.json in the config
			directory ($LUMINA_CONFIG_DIR, $XDG_CONFIG_HOME/lumina or
			~/.config/lumina). A .env file in the working directory is loaded
			first, so telemetry variables such as LUMINA_OTEL_ENDPOINT can live
			there.
		`),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	cmd.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "directory holding project files (default from settings)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newServeCmd(a),
		newProjectsCmd(a),
		newRunCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newEnvCmd(a),
		newVersionCmd(),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	settings, _, err := config.LoadSettings()
	if err != nil {
		return err
	}
	if strings.TrimSpace(a.dataDir) != "" {
		settings.DataDir = a.dataDir
	}
	a.settings = settings
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: parseLevel(a.logLevel),
	}))
	return nil
}

func (a *app) dir() *storage.Dir {
	return storage.NewDir(a.settings.DataDir, storage.WithLogger(a.logger))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
