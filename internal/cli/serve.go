package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/shoplist/internal/api"
)

// shutdownGrace bounds how long in-flight requests get after a signal.
const shutdownGrace = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen         string
	RequestTimeout time.Duration

	// ready, when set, receives the bound address once the server listens
	// (for testing).
	ready chan<- string
	// wrap, when set, wraps the API handler (for testing).
	wrap func(http.Handler) http.Handler
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web app and JSON API",
		Long: `Serve the shopping list web app and its JSON API.

The database is created if it doesn't exist, and a first list is created if
there are no lists at all. The server stops gracefully on SIGINT or SIGTERM.

Example:
  shoplist serve
  shoplist serve --listen 127.0.0.1:8080 --db ./shoplist.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Listen, "listen", "l", "", "address to listen on (overrides config)")
	cmd.Flags().DurationVar(&opts.RequestTimeout, "request-timeout", 10*time.Second, "per-request deadline (0 disables)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	s, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if opts.Listen != "" {
		s.cfg.Listen = opts.Listen
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			s.logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	listID, created, err := s.lists.Bootstrap(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to prepare the first list", err)
	}
	if created {
		s.logger.Info("created first list", "list_id", listID)
	}

	srv := api.New(s.store, s.lists,
		api.WithLogger(s.logger),
		api.WithRequestTimeout(opts.RequestTimeout),
	)
	handler := srv.Handler()
	if opts.wrap != nil {
		handler = opts.wrap(handler)
	}
	// Request contexts outlive the signal so in-flight requests can finish
	// during the shutdown grace period.
	baseCtx := context.WithoutCancel(ctx)
	httpSrv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	s.logger.Info("server starting", "addr", ln.Addr().String(), "driver", s.cfg.Database.Driver)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", ln.Addr())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	if opts.ready != nil {
		opts.ready <- ln.Addr().String()
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- httpSrv.Serve(ln) }()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownGrace)
		defer stop()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return WrapExitError(ExitFailure, "shutdown error", err)
		}
	}

	s.logger.Info("server stopped gracefully")
	return nil
}
