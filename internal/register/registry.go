package register

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
)

// StoreFactory returns the session store for a register.
type StoreFactory func(registerID string) SessionStore

// RegistryConfig wires the collaborators shared by every register.
type RegistryConfig struct {
	Catalog             catalog.Source
	Stores              StoreFactory
	Resolver            BarcodeResolver
	Recorder            SaleRecorder
	Observer            Observer
	Logger              *slog.Logger
	RestoreStockOnClear bool
}

// Registry lazily builds one Engine per register id.
type Registry struct {
	cfg     RegistryConfig
	mu      sync.Mutex
	engines map[string]*Engine
	loads   singleflight.Group
}

// NewRegistry constructs a Registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Stores == nil {
		cfg.Stores = func(string) SessionStore { return NewMemoryStore() }
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.NewSeedSource()
	}
	return &Registry{cfg: cfg, engines: make(map[string]*Engine)}
}

// Engine returns the engine for registerID, loading catalog and session on
// first use. Concurrent first calls for one id share a single load; loads for
// other ids and lookups of loaded engines do not wait on it.
func (r *Registry) Engine(ctx context.Context, registerID string) (*Engine, error) {
	if e, ok := r.lookup(registerID); ok {
		return e, nil
	}
	// The load outlives a caller that gives up so waiting callers still get it.
	loadCtx := context.WithoutCancel(ctx)
	ch := r.loads.DoChan(registerID, func() (any, error) {
		if e, ok := r.lookup(registerID); ok {
			return e, nil
		}
		e, err := r.build(loadCtx, registerID)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		if existing, ok := r.engines[registerID]; ok {
			return existing, nil
		}
		r.engines[registerID] = e
		return e, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Engine), nil
	}
}

func (r *Registry) lookup(registerID string) (*Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.engines[registerID]
	return e, ok
}

func (r *Registry) build(ctx context.Context, registerID string) (*Engine, error) {
	products, err := r.cfg.Catalog.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("register: load products: %w", err)
	}
	categories, err := r.cfg.Catalog.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("register: load categories: %w", err)
	}
	customers, err := r.cfg.Catalog.Customers(ctx)
	if err != nil {
		return nil, fmt.Errorf("register: load customers: %w", err)
	}
	return NewEngine(ctx, Config{
		RegisterID:          registerID,
		Products:            products,
		Categories:          categories,
		Customers:           customers,
		Store:               r.cfg.Stores(registerID),
		Resolver:            r.cfg.Resolver,
		Recorder:            r.cfg.Recorder,
		Observer:            r.cfg.Observer,
		Logger:              r.cfg.Logger,
		RestoreStockOnClear: r.cfg.RestoreStockOnClear,
	})
}

// IDs returns the ids of the registers loaded so far.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
