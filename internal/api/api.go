// Package api serves the shopping list over HTTP: a JSON API under /api and
// server-rendered HTML views.
package api

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/roach88/shoplist/internal/lifecycle"
	"github.com/roach88/shoplist/internal/shop"
)

//go:embed templates/*.html static/*
var assets embed.FS

// Store is the subset of store.Store the handlers use directly.
type Store interface {
	AddItem(ctx context.Context, listID string, in shop.ItemInput) (string, error)
	RemoveItem(ctx context.Context, listID, itemID string) error
	SetRecurring(ctx context.Context, itemID string, recurring bool) error
	SearchItems(ctx context.Context, prefix string) ([]shop.Item, error)
	CurrentList(ctx context.Context) (*shop.CurrentList, error)
	Lists(ctx context.Context) ([]shop.List, error)
}

// Lifecycle is the subset of lifecycle.Manager the handlers use.
type Lifecycle interface {
	CreateList(ctx context.Context) (*lifecycle.RolloverResult, error)
	RetireList(ctx context.Context, listID string) (*lifecycle.RolloverResult, error)
	RemoveList(ctx context.Context, listID string) (*lifecycle.RolloverResult, error)
}

// Server wires the HTTP handlers together.
type Server struct {
	store   Store
	lists   Lifecycle
	logger  *slog.Logger
	timeout time.Duration
	views   *template.Template
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRequestTimeout bounds each request's context. Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// New creates a Server.
func New(store Store, lists Lifecycle, opts ...Option) *Server {
	s := &Server{
		store:   store,
		lists:   lists,
		logger:  slog.Default(),
		timeout: 10 * time.Second,
		views:   template.Must(template.New("").Funcs(viewFuncs).ParseFS(assets, "templates/*.html")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the fully assembled http.Handler with all routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return Chain(
		Logging(s.logger),
		Recover(s.logger),
		Timeout(s.timeout),
	)(mux)
}

// RegisterRoutes registers every route on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// lists
	mux.HandleFunc("GET /api/lists/add", s.createList)
	mux.HandleFunc("POST /api/lists/retire", s.retireList)
	mux.HandleFunc("POST /api/lists/remove", s.removeList)
	mux.HandleFunc("GET /api/lists/current", s.currentList)

	// items
	mux.HandleFunc("POST /api/items/add", s.addItem)
	mux.HandleFunc("POST /api/items/remove", s.removeItem)
	mux.HandleFunc("POST /api/items/recurring", s.setRecurring)
	mux.HandleFunc("POST /api/items/search", s.searchItems)

	// views
	mux.HandleFunc("GET /{$}", s.home)
	mux.HandleFunc("GET /lists", s.history)
	static, _ := fs.Sub(assets, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
}
