// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bundlekit/bundlekit/pkg/descriptor"
	"github.com/bundlekit/bundlekit/pkg/parser"
	"github.com/bundlekit/bundlekit/pkg/plugin"
	"github.com/bundlekit/bundlekit/pkg/resolver"
	"github.com/bundlekit/bundlekit/pkg/snapshot"
)

// ErrCacheWrite is the sentinel error wrapped by CacheWriteError.
var ErrCacheWrite = errors.New("failed to write bundle cache")

type (
	// SnapshotStore reads and writes snapshot files.
	SnapshotStore interface {
		Load(ctx context.Context, path string) (*snapshot.Snapshot, error)
		Save(ctx context.Context, path string, s *snapshot.Snapshot) error
	}

	// Result is a loaded resolution and where it came from.
	Result struct {
		Resolution *resolver.Resolution
		FromCache  bool
	}

	// CacheWriteError is returned when a fresh resolution cannot be cached.
	CacheWriteError struct {
		Path string
		Err  error
	}

	// Loader resolves the descriptors provided by a plugin registry.
	Loader struct {
		registry    *plugin.Registry
		parser      parser.Parser
		newResolver func() *resolver.Resolver
		store       SnapshotStore
	}

	// Option configures a Loader.
	Option func(*Loader)

	fileStore struct{}
)

func (e *CacheWriteError) Error() string {
	return fmt.Sprintf("failed to write bundle cache %s: %v", e.Path, e.Err)
}

// Unwrap returns both ErrCacheWrite and the underlying error.
func (e *CacheWriteError) Unwrap() []error { return []error{ErrCacheWrite, e.Err} }

// New creates a Loader for the bundle providers of registry. p parses the
// resources the providers name.
func New(registry *plugin.Registry, p parser.Parser, opts ...Option) *Loader {
	l := &Loader{
		registry:    registry,
		parser:      p,
		newResolver: func() *resolver.Resolver { return resolver.New() },
		store:       fileStore{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WithResolverFactory sets how the resolver for a pass is created.
func WithResolverFactory(factory func() *resolver.Resolver) Option {
	return func(l *Loader) {
		if factory != nil {
			l.newResolver = factory
		}
	}
}

// WithSnapshotStore replaces the file based snapshot store.
func WithSnapshotStore(store SnapshotStore) Option {
	return func(l *Loader) {
		if store != nil {
			l.store = store
		}
	}
}

// Load returns the ordered bundles for env. With a cache file, a usable
// snapshot for env is returned as is. A missing, empty, unreadable or
// mismatching snapshot is a cache miss; on a miss the result is resolved
// from the plugins and written to cacheFile. An empty cacheFile disables
// caching.
func (l *Loader) Load(ctx context.Context, env descriptor.Environment, cacheFile string) (*Result, error) {
	if cacheFile != "" {
		if res, ok := l.fromCache(ctx, env, cacheFile); ok {
			return &Result{Resolution: res, FromCache: true}, nil
		}
	}
	return l.Refresh(ctx, env, cacheFile)
}

// Refresh resolves from the plugins, ignoring any existing cache, and writes
// the result to cacheFile unless it is empty. When only the write fails, the
// result is returned along with a *CacheWriteError.
func (l *Loader) Refresh(ctx context.Context, env descriptor.Environment, cacheFile string) (*Result, error) {
	res, err := l.fromPlugins(ctx, env)
	if err != nil {
		return nil, err
	}

	if cacheFile != "" {
		if err := l.store.Save(ctx, cacheFile, snapshot.FromResolution(env, res)); err != nil {
			return &Result{Resolution: res}, &CacheWriteError{Path: cacheFile, Err: err}
		}
		slog.Debug("bundle cache written", "file", cacheFile, "bundles", res.Len())
	}

	return &Result{Resolution: res}, nil
}

func (l *Loader) fromCache(ctx context.Context, env descriptor.Environment, cacheFile string) (*resolver.Resolution, bool) {
	snap, err := l.store.Load(ctx, cacheFile)
	if err != nil {
		slog.Debug("bundle cache miss", "file", cacheFile, "error", err)
		return nil, false
	}
	if snap.Environment != env {
		slog.Debug("bundle cache miss", "file", cacheFile, "reason", "environment mismatch", "cached", snap.Environment)
		return nil, false
	}
	if len(snap.Bundles) == 0 {
		slog.Debug("bundle cache miss", "file", cacheFile, "reason", "empty")
		return nil, false
	}

	res, err := snap.Resolution()
	if err != nil {
		slog.Debug("bundle cache miss", "file", cacheFile, "error", err)
		return nil, false
	}

	slog.Debug("bundle cache hit", "file", cacheFile, "bundles", res.Len())
	return res, true
}

func (l *Loader) fromPlugins(ctx context.Context, env descriptor.Environment) (*resolver.Resolution, error) {
	r := l.newResolver()

	for _, provider := range l.registry.BundleProviders(false) {
		ds, err := provider.BundleConfigs(ctx, l.parser)
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", provider.Name(), err)
		}
		for _, d := range ds {
			r.Add(d)
		}
	}

	return r.Resolve(env)
}

func (fileStore) Load(ctx context.Context, path string) (*snapshot.Snapshot, error) {
	return snapshot.Load(ctx, path)
}

func (fileStore) Save(ctx context.Context, path string, s *snapshot.Snapshot) error {
	return s.Save(ctx, path)
}
