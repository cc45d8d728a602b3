// Package loader provides the image load primitives measured by the profiler.
package loader

import (
	"context"
	"time"

	chromedpexecutor "github.com/dkorittki/imgprof/internal/pkg/executor/browser"
	"github.com/dkorittki/imgprof/pkg/profiler/config"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidLoaderType indicates an unknown loader type in the configuration.
	ErrInvalidLoaderType = errors.New("invalid loader type")

	// ErrNoLoader indicates a context which was not prepared by a loader.
	ErrNoLoader = errors.New("not a loader context")

	// ErrBadStatus indicates a non 2xx response to an image request.
	ErrBadStatus = errors.New("unexpected response status")

	// ErrImageFailed indicates that the browser reported the image as not loadable.
	ErrImageFailed = errors.New("image failed to load")
)

type contextKey struct{}

// A Loader attempts to fetch and decode one image resource per call to Load.
// Load either returns nil on success or an error on permanent failure.
// It never retries.
type Loader interface {
	// WithContext binds loader resources to the lifetime of ctx and
	// returns a context to pass into Load.
	WithContext(ctx context.Context) context.Context

	// Load fetches and decodes the image at url.
	Load(ctx context.Context, url string) error
}

// A TimedLoader measures the load duration inside the primitive itself.
// Callers prefer LoadTimed over timing Load from the outside.
type TimedLoader interface {
	Loader
	LoadTimed(ctx context.Context, url string) (time.Duration, error)
}

// LoadError wraps the cause of a failed load.
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string {
	return "cannot load " + e.URL + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// FromContext extracts the loader instance from ctx.
func FromContext(ctx context.Context) Loader {
	v, _ := ctx.Value(contextKey{}).(Loader)
	return v
}

// New returns the loader selected by cfg.
func New(cfg *config.ProfilerConfig) (Loader, error) {
	switch cfg.Loader {
	case config.LoaderHTTP:
		return NewHTTPLoader(cfg.Protocol, cfg.Timeout, cfg.UserAgent)
	case config.LoaderChrome:
		return NewChromeLoader(chromedpexecutor.New(), cfg.ChromePath, cfg.Timeout), nil
	case config.LoaderFake:
		return NewFakeLoader(FakeDelay), nil
	}

	return nil, ErrInvalidLoaderType
}
