package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luminahq/lumina/internal/config"
	"github.com/luminahq/lumina/internal/httpclient"
	"github.com/luminahq/lumina/internal/server"
	"github.com/luminahq/lumina/internal/share"
	"github.com/luminahq/lumina/internal/storage"
	"github.com/luminahq/lumina/internal/telemetry"
	"github.com/luminahq/lumina/internal/workspace"
)

const (
	shutdownTimeout  = 5 * time.Second
	shareCleanupTick = time.Hour
	historyDirName   = "history"
)

type serveFlags struct {
	addr     string
	memory   bool
	shared   bool
	shareDB  string
	noShares bool
	timeout  time.Duration
	insecure bool
}

func newServeCmd(a *app) *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := f.apply(cmd, a.settings)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			lis, err := net.Listen("tcp", s.ListenAddr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", s.ListenAddr, err)
			}
			return serve(ctx, lis, s, serveMode{memory: f.memory, shares: !f.noShares}, a.logger)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", envOr("LUMINA_ADDR", ""), "listen address (default from settings)")
	cmd.Flags().BoolVar(&f.memory, "memory", false, "keep projects in memory only")
	cmd.Flags().BoolVar(&f.shared, "shared-workspace", false, "let every session use the same workspace (always on unless --memory)")
	cmd.Flags().StringVar(&f.shareDB, "share-db", "", "sqlite file for shared projects (default from settings)")
	cmd.Flags().BoolVar(&f.noShares, "no-shares", false, "disable the share routes")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "outgoing request timeout (default from settings)")
	cmd.Flags().BoolVar(&f.insecure, "insecure", false, "skip TLS certificate verification for outgoing requests")
	return cmd
}

func (f serveFlags) apply(cmd *cobra.Command, s config.Settings) config.Settings {
	if f.addr != "" {
		s.ListenAddr = f.addr
	}
	if cmd.Flags().Changed("shared-workspace") {
		s.SharedWorkspace = f.shared
	}
	if f.shareDB != "" {
		s.ShareDB = f.shareDB
	}
	if f.timeout > 0 {
		s.RequestTimeout = config.Duration(f.timeout)
	}
	if cmd.Flags().Changed("insecure") {
		s.InsecureSkipVerify = f.insecure
	}
	return s
}

type serveMode struct {
	memory bool
	shares bool
}

// registryOptions builds the workspace options for mode. With storage on,
// every session works in the default workspace: that is the only one loaded
// from and saved to disk, and its history lives next to the project files.
func registryOptions(s config.Settings, mode serveMode) workspace.Options {
	opts := workspace.Options{
		ShareDefault: s.SharedWorkspace || !mode.memory,
		HistoryLimit: s.HistoryLimit,
		HTTP: httpclient.Options{
			Timeout:            s.RequestTimeout.Std(),
			FollowRedirects:    true,
			InsecureSkipVerify: s.InsecureSkipVerify,
		},
	}
	if !mode.memory {
		opts.HistoryDir = filepath.Join(s.DataDir, historyDirName)
	}
	return opts
}

// serve runs the API on lis until ctx is cancelled, then drains the server,
// flushes projects to disk and stops telemetry.
func serve(ctx context.Context, lis net.Listener, s config.Settings, mode serveMode, logger *slog.Logger) error {
	instr, err := telemetry.New(telemetry.ConfigFromEnv(os.Getenv))
	if err != nil {
		logger.Warn("telemetry init failed", "err", err)
		instr = telemetry.Noop()
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := instr.Shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown", "err", err)
		}
	}()

	regOpts := registryOptions(s, mode)
	regOpts.Telemetry = instr
	regOpts.Logger = logger
	reg := workspace.NewRegistry(regOpts)

	var dir *storage.Dir
	if !mode.memory {
		dir = storage.NewDir(s.DataDir, storage.WithLogger(logger))
		projects, err := dir.LoadAll()
		if err != nil {
			return err
		}
		reg.Preload(projects...)
		logger.Info("projects loaded", "count", len(projects), "dir", dir.Path())
	}

	var shares *share.Store
	if mode.shares {
		path := s.ShareDB
		if mode.memory {
			path = ""
		}
		shares, err = share.Open(ctx, path)
		if err != nil {
			return err
		}
		defer shares.Close()
	}

	opts := server.Options{
		Registry:       reg,
		Shares:         shares,
		Logger:         logger,
		AllowedOrigins: s.AllowedOrigins,
		CookieName:     s.SessionCookie,
	}
	if dir != nil {
		opts.Files = dir
	}
	srv := &http.Server{
		Handler:           server.New(opts).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", lis.Addr().String(), "memory", mode.memory, "shared_workspace", regOpts.ShareDefault)
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if dir != nil {
		g.Go(func() error {
			return dir.Autosave(gctx, s.AutosaveInterval.Std(), reg.DefaultProjects)
		})
	}
	if shares != nil {
		g.Go(func() error {
			cleanupShares(gctx, shares, shareCleanupTick, logger)
			return nil
		})
	}
	return g.Wait()
}

func cleanupShares(ctx context.Context, store *share.Store, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Cleanup(ctx)
			if err != nil {
				logger.Warn("share cleanup failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Debug("expired shares removed", "count", n)
			}
		}
	}
}
