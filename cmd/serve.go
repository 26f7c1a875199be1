package cmd

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"thoreinstein.com/intake/pkg/config"
	"thoreinstein.com/intake/pkg/notify"
	"thoreinstein.com/intake/pkg/report"
	"thoreinstein.com/intake/pkg/tools"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	WebSocketAddr string
	DryRun        bool
}

var serveOptions ServeOptions

// serveCmd serves the intake tools to a dialogue agent over stdio.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the intake tools for one conversation",
	Long: `Serve the report intake tools over stdio for a single conversation.

The dialogue agent saves fields with save_report_field, reads back the
summary from generate_summary, and files the ticket with confirm_report and
submit_report once the client agrees. Messages for the client's screen go to
the configured display channels and, with --ws, to websocket subscribers.

Examples:
  intake serve                       # Serve on stdin/stdout
  intake serve --ws 127.0.0.1:8765   # Also broadcast to display clients
  intake serve --dry-run             # File into memory instead of a tracker`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runServe(ctx, serveOptions, cfg, os.Stdin, os.Stdout, slog.Default())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveOptions.WebSocketAddr, "ws", "", "Address for the websocket display hub (defaults to notify.websocket.addr)")
	serveCmd.Flags().BoolVar(&serveOptions.DryRun, "dry-run", false, "Keep filed reports in memory instead of a tracker")
}

func runServe(ctx context.Context, opts ServeOptions, cfg *config.Config, in io.Reader, out io.Writer, logger *slog.Logger) error {
	// stdin and stdout carry the protocol, so the device flow cannot prompt.
	trk, err := newTracker(ctx, cfg, opts.DryRun, nil, logger)
	if err != nil {
		return err
	}

	var extra []notify.Notifier
	addr := opts.WebSocketAddr
	if addr == "" {
		addr = cfg.Notify.WebSocket.Addr
	}

	var hubServer *http.Server
	if addr != "" {
		hub := notify.NewHub(logger)
		defer hub.Close()
		extra = append(extra, hub)

		hubServer = newHubServer(addr, cfg.Notify.WebSocket.Path, hub)
		go func() {
			logger.Info("display hub listening", "addr", addr, "path", hubPath(cfg.Notify.WebSocket.Path))
			if err := hubServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("display hub stopped", "error", err)
			}
		}()
	}

	notifier, err := newNotifier(&cfg.Notify, logger, extra...)
	if err != nil {
		return err
	}

	session := report.NewSession(trk, sessionOptions(cfg, logger, notifier)...)
	defer session.Close()

	logger.Debug("serving intake session", "session", session.ID(), "tracker", trk.Name())

	srv := tools.NewServer(session, "intake", Version)
	serveErr := srv.ServeStdio(ctx, in, out)

	if hubServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hubServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("display hub shutdown failed", "error", err)
		}
	}

	// A closed stdin or an interrupt ends the conversation normally.
	if serveErr == nil || errors.Is(serveErr, context.Canceled) || errors.Is(serveErr, io.EOF) {
		return nil
	}
	return serveErr
}

func newHubServer(addr, path string, hub http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(hubPath(path), hub)
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func hubPath(path string) string {
	if path == "" {
		return "/display"
	}
	return path
}
