package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brojonat/copywatch/service/dex"
	"github.com/brojonat/copywatch/service/metrics"
	"github.com/brojonat/copywatch/service/solana"
)

const (
	// DefaultPollInterval is the fixed cadence between poll ticks. Polling
	// is deliberately not adaptive; the fixed interval is also the only
	// backoff after transient failures.
	DefaultPollInterval = 5 * time.Second

	// DefaultPageLimit bounds how many signature references one tick lists.
	DefaultPageLimit = 10
)

// ErrAlreadyRunning is returned by Start when the monitor is running.
var ErrAlreadyRunning = errors.New("monitor already running")

// ChainSource is the ledger-query interface the monitor consumes. The
// concrete implementation is service/solana.Client; tests substitute fakes.
type ChainSource interface {
	// ListRecentSignatures returns up to limit signature references for the
	// wallet, newest first. A non-empty until anchors the listing so
	// already-processed windows are not refetched.
	ListRecentSignatures(ctx context.Context, wallet string, limit int, until string) ([]solana.SignatureRef, error)

	// GetParsedTransaction returns the decoded transaction, or nil when it
	// is unavailable.
	GetParsedTransaction(ctx context.Context, signature string) (*solana.ParsedTransaction, error)
}

// state is the monitor's lifecycle state. The two-state machine with a
// guarded transition replaces a boolean-plus-timer scheduler: exactly one
// polling goroutine exists while running, so ticks can never overlap.
type state int

const (
	stateStopped state = iota
	stateRunning
)

// Options tune a Monitor. Zero values fall back to defaults.
type Options struct {
	PollInterval time.Duration
	PageLimit    int
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

// Monitor maintains continuous watch over one wallet without a push
// subscription: it polls for recent signatures on a fixed interval, runs new
// transactions through swap extraction, and delivers resulting signals to its
// registered sinks in chronological order.
type Monitor struct {
	wallet   string
	source   ChainSource
	registry *dex.Registry
	ledger   *Ledger
	interval time.Duration
	limit    int
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu     sync.Mutex
	st     state
	cancel context.CancelFunc
	done   chan struct{}
	sinks  []SignalSink

	// anchor is the most recent fully-processed signature. Empty before the
	// first poll.
	anchor string

	// ready flips true after the first successful poll.
	ready atomic.Bool
}

// New creates a Monitor for one wallet. Sinks are registered with AddSink
// before Start.
func New(wallet string, source ChainSource, registry *dex.Registry, opts Options) *Monitor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PageLimit <= 0 {
		opts.PageLimit = DefaultPageLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Monitor{
		wallet:   wallet,
		source:   source,
		registry: registry,
		ledger:   NewLedger(),
		interval: opts.PollInterval,
		limit:    opts.PageLimit,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Wallet returns the watched address.
func (m *Monitor) Wallet() string {
	return m.wallet
}

// AddSink registers a sink. Must be called before Start.
func (m *Monitor) AddSink(s SignalSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, s)
}

// Start transitions the monitor to running and begins polling: one immediate
// poll, then a fixed-interval tick. Starting a running monitor returns
// ErrAlreadyRunning.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.st == stateRunning {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.st = stateRunning
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	m.logger.Info("monitor starting",
		"wallet", m.wallet,
		"interval", m.interval,
		"page_limit", m.limit,
	)

	go func() {
		defer close(done)
		m.poll(loopCtx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				m.markStopped(done)
				return
			case <-ticker.C:
				m.poll(loopCtx)
			}
		}
	}()

	return nil
}

// Stop halts polling. Safe to call when already stopped. In-flight fetches
// from the current tick are cancelled via context; Stop returns once the
// polling goroutine has exited.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.st != stateRunning {
		m.mu.Unlock()
		return
	}
	m.st = stateStopped
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	cancel()
	<-done
	m.ready.Store(false)
	m.logger.Info("monitor stopped", "wallet", m.wallet)
}

// markStopped transitions to stopped when the polling goroutine exits because
// the parent context was cancelled rather than through Stop, so IsRunning and
// IsReady never report a dead monitor as live. The done guard keeps a stale
// goroutine from clobbering a newer run's state.
func (m *Monitor) markStopped(done chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.st != stateRunning || m.done != done {
		return
	}
	m.st = stateStopped
	m.cancel = nil
	m.done = nil
	m.ready.Store(false)
	m.logger.Info("monitor stopped", "wallet", m.wallet, "reason", "context cancelled")
}

// IsRunning reports whether the monitor is actively polling.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st == stateRunning
}

// IsReady reports whether the monitor is running and has completed at least
// one successful poll.
func (m *Monitor) IsReady() bool {
	return m.IsRunning() && m.ready.Load()
}

// poll performs one tick: list recent signatures, process the unseen ones
// oldest-to-newest, emit signals, and advance the anchor. Any fetch error
// logs and aborts the tick early; the next tick retries on the fixed cadence.
func (m *Monitor) poll(ctx context.Context) {
	start := time.Now()

	refs, err := m.source.ListRecentSignatures(ctx, m.wallet, m.limit, m.anchor)
	if err != nil {
		m.logger.WarnContext(ctx, "failed to list signatures, will retry next tick",
			"wallet", m.wallet,
			"error", err,
		)
		m.metrics.RecordPollError(m.wallet, "list")
		return
	}

	m.markConnected()

	if len(refs) == 0 {
		m.metrics.RecordPoll(m.wallet, time.Since(start).Seconds())
		return
	}

	// The source returns newest-first; process oldest-to-newest so emitted
	// signals preserve chronological order.
	for i := len(refs) - 1; i >= 0; i-- {
		ref := refs[i]

		if m.ledger.Has(ref.Signature) {
			m.logger.DebugContext(ctx, "skipping already processed signature",
				"wallet", m.wallet,
				"signature", ref.Signature,
			)
			m.metrics.RecordDedupSkip(m.wallet)
			continue
		}

		if err := m.process(ctx, ref); err != nil {
			m.logger.WarnContext(ctx, "failed to fetch transaction, will retry next tick",
				"wallet", m.wallet,
				"signature", ref.Signature,
				"error", err,
			)
			m.metrics.RecordPollError(m.wallet, "fetch")
			return
		}

		// Processed (swap or not), never refetch.
		m.ledger.Add(ref.Signature)
		m.anchor = ref.Signature
	}

	m.metrics.RecordPoll(m.wallet, time.Since(start).Seconds())
}

// process fetches one transaction, runs extraction, and delivers any
// resulting signals. Returns an error only for transient fetch failures;
// unavailable or malformed transactions count as "not a swap".
func (m *Monitor) process(ctx context.Context, ref solana.SignatureRef) error {
	tx, err := m.source.GetParsedTransaction(ctx, ref.Signature)
	if err != nil {
		return err
	}
	if tx == nil {
		m.metrics.RecordTransactionProcessed(m.wallet, "unavailable")
		return nil
	}

	signals := ExtractSwaps(tx, m.wallet, m.registry)
	if len(signals) == 0 {
		m.metrics.RecordTransactionProcessed(m.wallet, "no_swap")
		return nil
	}
	m.metrics.RecordTransactionProcessed(m.wallet, "swap")

	for i := range signals {
		m.emit(ctx, &signals[i])
	}
	return nil
}

// emit delivers one signal to every sink in registration order. Sink errors
// are logged and do not stop delivery.
func (m *Monitor) emit(ctx context.Context, sig *Signal) {
	m.logger.InfoContext(ctx, "swap detected",
		"wallet", sig.Wallet,
		"direction", string(sig.Direction),
		"mint", sig.Mint,
		"token_amount", sig.TokenAmount,
		"sol_amount", sig.SolAmount,
		"dex", sig.DexName,
		"signature", sig.Signature,
	)
	m.metrics.RecordSignalEmitted(sig.Wallet, string(sig.Direction))

	m.mu.Lock()
	sinks := make([]SignalSink, len(m.sinks))
	copy(sinks, m.sinks)
	m.mu.Unlock()

	for _, sink := range sinks {
		if err := sink.PublishSignal(ctx, sig); err != nil {
			m.logger.ErrorContext(ctx, "sink failed to accept signal",
				"wallet", sig.Wallet,
				"signature", sig.Signature,
				"error", err,
			)
		}
	}
}

// markConnected emits the connected event exactly once per Start.
func (m *Monitor) markConnected() {
	if !m.ready.CompareAndSwap(false, true) {
		return
	}
	m.logger.Info("monitor connected", "wallet", m.wallet)

	m.mu.Lock()
	sinks := make([]SignalSink, len(m.sinks))
	copy(sinks, m.sinks)
	m.mu.Unlock()

	for _, sink := range sinks {
		if notifier, ok := sink.(ConnectedNotifier); ok {
			notifier.MonitorConnected(m.wallet)
		}
	}
}
