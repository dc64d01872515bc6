package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/robertlancer/supershare/internal/drive"
	"github.com/robertlancer/supershare/internal/google"
	"github.com/robertlancer/supershare/internal/instrumentation"
	"github.com/robertlancer/supershare/internal/viewer"
)

// ServerContext holds the shared dependencies of the viewer server: the
// credential factory, the viewer lookup configuration, and the shutdown
// state. It is explicitly constructed and injected rather than being
// process-global so tests can run isolated instances.
type ServerContext struct {
	ctx          context.Context
	cancel       context.CancelFunc
	factory      *google.Factory
	viewerConfig viewer.Config
	metrics      *instrumentation.Metrics
	mu           sync.RWMutex
	shutdown     bool
}

// NewServerContext creates a new server context.
func NewServerContext(ctx context.Context, factory *google.Factory, viewerConfig viewer.Config, metrics *instrumentation.Metrics) (*ServerContext, error) {
	if factory == nil {
		return nil, fmt.Errorf("credential factory is required")
	}
	if viewerConfig.FolderID == "" {
		return nil, fmt.Errorf("folder ID is required")
	}
	if viewerConfig.Account == "" {
		return nil, fmt.Errorf("impersonation account is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}

	return &ServerContext{
		ctx:          shutdownCtx,
		cancel:       cancel,
		factory:      factory,
		viewerConfig: viewerConfig,
		metrics:      metrics,
	}, nil
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Factory returns the credential factory.
func (sc *ServerContext) Factory() *google.Factory {
	return sc.factory
}

// ViewerConfig returns the viewer lookup configuration.
func (sc *ServerContext) ViewerConfig() viewer.Config {
	return sc.viewerConfig
}

// Metrics returns the metrics recorder.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// DriveForAccount returns a Drive client impersonating the given account,
// backed by the factory's client cache. Implements viewer.ClientSource.
func (sc *ServerContext) DriveForAccount(ctx context.Context, account string) (viewer.Files, error) {
	return drive.NewClientForAccount(ctx, sc.factory, account, sc.metrics)
}

// IsShutdown returns whether the server context has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. Safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
