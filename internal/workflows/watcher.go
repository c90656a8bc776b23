package workflows

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/metrics"
	"github.com/feral-file/ff-marketplace/internal/wallet"
)

const DEFAULT_REFRESH_INTERVAL = 30 * time.Second

// Watcher defines a long-running ownership refresh loop
type Watcher interface {
	// Start runs a listing immediately and then every refresh interval.
	// This is a blocking call that runs until the context is canceled or Stop is called.
	Start(ctx context.Context) error

	// Stop stops the refresh loop and waits for it to exit
	Stop(ctx context.Context) error

	// Name returns the watcher's name for logging and identification
	Name() string
}

// SnapshotHandler receives the result of every refresh cycle
type SnapshotHandler func(ctx context.Context, tokens []domain.Token, err error)

// WatcherConfig holds ownership watcher configuration
type WatcherConfig struct {
	Address         string
	RefreshInterval time.Duration
	CycleTimeout    time.Duration // Bounds one refresh; an expired cycle delivers the error
}

type ownershipWatcher struct {
	config     WatcherConfig
	lister     OwnershipLister
	provider   wallet.Provider
	onSnapshot SnapshotHandler
	metrics    *metrics.Metrics
	started    atomic.Bool
	running    atomic.Bool
	stopChan   chan struct{}
	stoppedCh  chan struct{}
}

// NewWatcher creates an ownership watcher for one address.
// A watcher is single-use: Start returns an error once it has run.
func NewWatcher(
	config WatcherConfig,
	lister OwnershipLister,
	provider wallet.Provider,
	onSnapshot SnapshotHandler,
	m *metrics.Metrics,
) Watcher {
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = DEFAULT_REFRESH_INTERVAL
	}
	if config.CycleTimeout <= 0 {
		config.CycleTimeout = DEFAULT_OWNERSHIP_TIMEOUT
	}

	return &ownershipWatcher{
		config:     config,
		lister:     lister,
		provider:   provider,
		onSnapshot: onSnapshot,
		metrics:    m,
		stopChan:   make(chan struct{}),
		stoppedCh:  make(chan struct{}),
	}
}

// Name returns the watcher's name
func (w *ownershipWatcher) Name() string {
	return "ownership-watcher"
}

// Start runs a listing immediately and then every refresh interval
func (w *ownershipWatcher) Start(ctx context.Context) error {
	if w.running.Load() {
		return fmt.Errorf("watcher already running")
	}
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watcher already started once")
	}
	w.running.Store(true)
	defer func() {
		w.running.Store(false)
		close(w.stoppedCh) // Signal that we've stopped
	}()

	w.metrics.WatcherStarted()
	defer w.metrics.WatcherStopped()

	logger.InfoCtx(ctx, "Starting ownership watcher",
		zap.String("address", w.config.Address),
		zap.Duration("refresh_interval", w.config.RefreshInterval))

	ticker := time.NewTicker(w.config.RefreshInterval)
	defer ticker.Stop()

	for {
		w.runCycle(ctx)

		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Ownership watcher stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-w.stopChan:
			logger.InfoCtx(ctx, "Ownership watcher stop requested")
			return nil
		case <-ticker.C:
		}
	}
}

// runCycle lists the owned tokens with a fresh signer and hands the result to the snapshot handler
func (w *ownershipWatcher) runCycle(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, w.config.CycleTimeout)
	defer cancel()

	signer, err := w.provider.Signer(cycleCtx)
	if err != nil {
		w.deliver(ctx, nil, err)
		return
	}

	tokens, err := w.lister.ListOwnedTokens(cycleCtx, signer, w.config.Address)
	w.deliver(ctx, tokens, err)
}

// deliver passes a snapshot on unless the watcher is shutting down
func (w *ownershipWatcher) deliver(ctx context.Context, tokens []domain.Token, err error) {
	if ctx.Err() != nil {
		return
	}
	select {
	case <-w.stopChan:
		return
	default:
	}

	if err != nil {
		logger.WarnCtx(ctx, "Ownership refresh failed", zap.Error(err))
	}
	if w.onSnapshot != nil {
		w.onSnapshot(ctx, tokens, err)
	}
}

// Stop gracefully stops the watcher with timeout support
func (w *ownershipWatcher) Stop(ctx context.Context) error {
	if !w.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping ownership watcher")

	// Signal stop to the main loop
	close(w.stopChan)

	// Wait for main loop to exit, but respect context cancellation
	select {
	case <-w.stoppedCh:
		logger.InfoCtx(ctx, "Ownership watcher stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Ownership watcher stop interrupted by context timeout")
		return ctx.Err()
	}
}
