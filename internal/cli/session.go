package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/shoplist/internal/config"
	"github.com/roach88/shoplist/internal/lifecycle"
	"github.com/roach88/shoplist/internal/store"
)

// session is everything a command needs: resolved config, a logger, an open
// store and the lifecycle manager over it.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	lists  *lifecycle.Manager
	out    *OutputFormatter

	closers []io.Closer
}

// loadConfig resolves the configuration: file and environment first, then
// the global flags on top.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Driver != "" {
		cfg.Database.Driver = o.Driver
	}
	if o.DSN != "" {
		cfg.Database.DSN = o.DSN
		if cfg.Database.Driver == "sqlite3" {
			cfg.Database.DSN = config.ExpandPath(o.DSN)
		}
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// openSession loads config, sets up logging and opens the store.
// The caller must call close.
func (o *RootOptions) openSession(cmd *cobra.Command) (*session, error) {
	out := &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}

	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, out: out}
	s.logger, err = s.newLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to set up logging", err)
	}

	s.logger.Debug("opening database", "driver", cfg.Database.Driver)
	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN,
		store.WithTimeout(cfg.Database.Timeout),
		store.WithLogger(s.logger),
	)
	if err != nil {
		s.close()
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	s.store = st
	s.closers = append([]io.Closer{st}, s.closers...)
	s.lists = lifecycle.New(st, s.logger)
	return s, nil
}

// newLogger builds the slog logger described by the log config. Logs go to
// w unless a log file is configured.
func (s *session) newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.cfg.Log.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	if s.cfg.Log.File != "" {
		f, err := os.OpenFile(s.cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		s.closers = append(s.closers, f)
		w = f
	}

	hopts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(s.cfg.Log.Format, "json") {
		h = slog.NewJSONHandler(w, hopts)
	} else {
		h = slog.NewTextHandler(w, hopts)
	}
	return slog.New(h), nil
}

func (s *session) close() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil && s.logger != nil {
			s.logger.Error("error closing", "error", err)
		}
	}
	s.closers = nil
}

// activeList returns the active list id, or a not-found failure when there is
// no list yet.
func (s *session) activeList(cmd *cobra.Command) (string, error) {
	id, ok, err := s.store.ActiveListID(cmd.Context())
	if err != nil {
		return "", s.out.Fail("failed to find the active list", err)
	}
	if !ok {
		return "", s.out.Fail("no active list", errNoActiveList)
	}
	return id, nil
}
