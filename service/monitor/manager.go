package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/brojonat/copywatch/service/dex"
)

// Manager owns one Monitor per watched wallet. All monitors share the chain
// source, the DEX registry, and the sink set; each gets its own ledger and
// polling goroutine.
type Manager struct {
	source   ChainSource
	registry *dex.Registry
	sinks    []SignalSink
	opts     Options
	logger   *slog.Logger

	mu       sync.Mutex
	monitors map[string]*Monitor
}

// NewManager creates a Manager. The sinks are attached to every monitor it
// creates.
func NewManager(source ChainSource, registry *dex.Registry, sinks []SignalSink, opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logger
	}
	return &Manager{
		source:   source,
		registry: registry,
		sinks:    sinks,
		opts:     opts,
		logger:   logger,
		monitors: make(map[string]*Monitor),
	}
}

// Watch starts a monitor for the wallet. Watching an already-watched wallet
// is an error.
func (mgr *Manager) Watch(ctx context.Context, wallet string) error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if _, ok := mgr.monitors[wallet]; ok {
		return fmt.Errorf("wallet %s is already being watched", wallet)
	}

	mon := New(wallet, mgr.source, mgr.registry, mgr.opts)
	for _, sink := range mgr.sinks {
		mon.AddSink(sink)
	}
	if err := mon.Start(ctx); err != nil {
		return fmt.Errorf("failed to start monitor for %s: %w", wallet, err)
	}

	mgr.monitors[wallet] = mon
	mgr.logger.Info("watching wallet", "wallet", wallet, "total", len(mgr.monitors))
	return nil
}

// Unwatch stops and removes the wallet's monitor. Unwatching an unknown
// wallet is a no-op.
func (mgr *Manager) Unwatch(wallet string) {
	mgr.mu.Lock()
	mon, ok := mgr.monitors[wallet]
	if ok {
		delete(mgr.monitors, wallet)
	}
	mgr.mu.Unlock()

	if !ok {
		return
	}
	mon.Stop()
	mgr.logger.Info("stopped watching wallet", "wallet", wallet)
}

// IsWatching reports whether the wallet has an active monitor.
func (mgr *Manager) IsWatching(wallet string) bool {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	_, ok := mgr.monitors[wallet]
	return ok
}

// Addresses returns the currently watched wallets.
func (mgr *Manager) Addresses() []string {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	out := make([]string, 0, len(mgr.monitors))
	for wallet := range mgr.monitors {
		out = append(out, wallet)
	}
	return out
}

// StopAll stops every monitor. Used during shutdown.
func (mgr *Manager) StopAll() {
	mgr.mu.Lock()
	monitors := make([]*Monitor, 0, len(mgr.monitors))
	for _, mon := range mgr.monitors {
		monitors = append(monitors, mon)
	}
	mgr.monitors = make(map[string]*Monitor)
	mgr.mu.Unlock()

	for _, mon := range monitors {
		mon.Stop()
	}
}
