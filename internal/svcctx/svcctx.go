// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with handlers.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/examkit/examkit/internal/config"
	"github.com/examkit/examkit/internal/home"
	"github.com/examkit/examkit/internal/imagestore"
	"github.com/examkit/examkit/internal/store"
	"github.com/examkit/examkit/internal/worker"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Store    *store.Store
	Images   *imagestore.Store
	Registry *worker.Registry
	Config   *config.Manager
	Logger   *slog.Logger
	Home     *home.Dir

	// Base is the server's run context. Work that must outlive a single
	// HTTP request (worker goroutines) derives from it.
	Base context.Context
}

// BaseContext returns the server's run context, or Background if unset.
func (s *Services) BaseContext() context.Context {
	if s.Base != nil {
		return s.Base
	}
	return context.Background()
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// StoreFrom extracts the exam store from context.
func StoreFrom(ctx context.Context) *store.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// ImagesFrom extracts the image store from context.
func ImagesFrom(ctx context.Context) *imagestore.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Images
	}
	return nil
}

// RegistryFrom extracts the worker registry from context.
func RegistryFrom(ctx context.Context) *worker.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
