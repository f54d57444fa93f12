package reconciler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	availabilityerrors "fieldslots/internal/availability/errors"
	"fieldslots/internal/availability/feed"
	"fieldslots/internal/availability/fetcher"
	"fieldslots/internal/availability/grid"
	"fieldslots/internal/availability/validator"
	"fieldslots/pkg/logger"
	"fieldslots/pkg/metrics"
)

type Reason string

const (
	ReasonScopeChanged Reason = "scope_changed"
	ReasonSnapshot     Reason = "snapshot"
	ReasonLive         Reason = "live"
)

const (
	discardOtherScope = "other_scope"
	discardStaleScope = "stale_scope"
	discardMalformed  = "malformed"
	discardSuperseded = "superseded_by_live"
	discardFetchError = "fetch_error"
	discardOutOfOrder = "out_of_order"
)

type Change struct {
	Grid   *grid.Grid
	Reason Reason
}

// Stamp identifies when a snapshot request was issued. A result is applied
// only if its scope generation is still current and no live update landed
// after Seq.
type Stamp struct {
	Scope      grid.Scope
	Generation uint64
	Seq        uint64
}

type Options struct {
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
	Location        *time.Location
	Candidates      []int
	NewTicker       TickerFactory
}

// Reconciler owns the availability grid for one scope at a time and merges
// snapshot and live results into it.
type Reconciler struct {
	fetcher   fetcher.Fetcher
	feed      feed.Feed
	builder   *grid.Builder
	validator *validator.PayloadValidator
	opts      Options
	metrics   *metrics.Metrics
	log       *logger.Logger

	current atomic.Pointer[grid.Grid]

	// scopeMu serialises SetScope, RefreshNow and Close.
	scopeMu sync.Mutex

	mu          sync.Mutex
	scope       grid.Scope
	hasScope    bool
	generation  uint64
	seq         uint64
	lastLiveSeq uint64
	scopeCtx    context.Context
	scopeCancel context.CancelFunc
	tickerDone  chan struct{}
	listeners   map[uint64]func(Change)
	nextID      uint64
	closed      bool

	// notifyMu serialises listener delivery; lastNotified is the highest grid
	// version delivered so far.
	notifyMu     sync.Mutex
	lastNotified uint64

	unsubscribe      func()
	disposeReconnect func()
	wg               sync.WaitGroup
}

func New(
	f fetcher.Fetcher,
	fd feed.Feed,
	v *validator.PayloadValidator,
	opts Options,
	m *metrics.Metrics,
	log *logger.Logger,
) *Reconciler {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 30 * time.Second
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewRealTicker
	}

	r := &Reconciler{
		fetcher:   f,
		feed:      fd,
		builder:   grid.NewBuilder(opts.Location, opts.Candidates),
		validator: v,
		opts:      opts,
		metrics:   m,
		log:       log,
		listeners: make(map[uint64]func(Change)),
	}
	r.current.Store(grid.Empty(grid.Scope{}, 0, opts.Candidates))

	r.unsubscribe = fd.Subscribe(r.OnLiveUpdate)
	r.disposeReconnect = fd.OnReconnect(r.rejoin)
	return r
}

// Grid returns the current grid. It is never nil and never mutated.
func (r *Reconciler) Grid() *grid.Grid {
	return r.current.Load()
}

func (r *Reconciler) Scope() (grid.Scope, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scope, r.hasScope
}

// SetScope switches to a new (branch, date). Setting the current scope again
// is a no-op.
func (r *Reconciler) SetScope(ctx context.Context, branchID int64, date string) error {
	next := grid.Scope{BranchID: branchID, Date: date}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %v", availabilityerrors.ErrInvalidScope, err)
	}

	r.scopeMu.Lock()
	defer r.scopeMu.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return fmt.Errorf("%w: reconciler closed", availabilityerrors.ErrNoScope)
	}
	if r.hasScope && r.scope == next {
		r.mu.Unlock()
		return nil
	}

	prev, hadPrev := r.scope, r.hasScope
	stopTicker := r.teardownLocked()

	r.scope = next
	r.hasScope = true
	r.generation++
	r.seq++
	r.scopeCtx, r.scopeCancel = context.WithCancel(context.Background())
	empty := grid.Empty(next, r.seq, r.opts.Candidates)
	r.current.Store(empty)
	stamp := r.stampLocked()
	scopeCtx := r.scopeCtx
	r.mu.Unlock()

	stopTicker()

	if hadPrev {
		r.feed.LeaveRoom(ctx, prev.BranchID, prev.Date)
	}
	r.invalidate(ctx, next)
	r.notify(Change{Grid: empty, Reason: ReasonScopeChanged})

	r.feed.JoinRoom(ctx, next.BranchID, next.Date)
	r.startFetch(scopeCtx, stamp)
	r.startTicker(scopeCtx, next)

	r.log.Info("Availability scope changed",
		"branch_id", next.BranchID,
		"date", next.Date,
		"previous_branch_id", prev.BranchID,
		"previous_date", prev.Date,
	)
	return nil
}

// OnSnapshotFetched installs a fetched snapshot unless the scope moved on or
// a live update was applied after the request was issued.
func (r *Reconciler) OnSnapshotFetched(stamp Stamp, snap *fetcher.Snapshot) bool {
	booked := snap.BookedHours(r.builder)

	r.mu.Lock()
	if r.closed || !r.hasScope || stamp.Generation != r.generation {
		r.mu.Unlock()
		r.metrics.DiscardedUpdates.WithLabelValues(discardStaleScope).Inc()
		return false
	}
	if r.lastLiveSeq > stamp.Seq {
		r.mu.Unlock()
		r.metrics.DiscardedUpdates.WithLabelValues(discardSuperseded).Inc()
		r.log.Debug("Discarding snapshot superseded by live update", "issued_seq", stamp.Seq, "live_seq", r.lastLiveSeq)
		return false
	}
	r.seq++
	g := grid.New(r.scope, r.seq, snap.Source, r.opts.Candidates, booked)
	r.current.Store(g)
	r.mu.Unlock()

	r.metrics.GridReplacements.WithLabelValues(string(snap.Source)).Inc()
	r.notify(Change{Grid: g, Reason: ReasonSnapshot})
	return true
}

// OnLiveUpdate handles one feed frame. Frames for other scopes and malformed
// payloads are dropped; otherwise the grid is replaced whole.
func (r *Reconciler) OnLiveUpdate(frame feed.Frame) {
	r.mu.Lock()
	scope, hasScope, generation := r.scope, r.hasScope, r.generation
	r.mu.Unlock()

	if !hasScope || frame.Room != scope.Room() || !scope.MatchesBranch(frame.BranchID) {
		r.metrics.DiscardedUpdates.WithLabelValues(discardOtherScope).Inc()
		return
	}

	update, err := r.validator.DecodeLiveUpdate(frame.Payload)
	if err != nil {
		r.metrics.DiscardedUpdates.WithLabelValues(discardMalformed).Inc()
		r.log.Warn("Discarding malformed live update", "room", frame.Room, "error", err)
		return
	}

	var booked map[int64][]int
	switch update.Kind {
	case validator.UpdateBuckets:
		booked = r.builder.FromBuckets(update.Buckets)
	default:
		booked = r.builder.FromAvailable(update.Available)
	}

	r.mu.Lock()
	if r.closed || r.generation != generation {
		r.mu.Unlock()
		r.metrics.DiscardedUpdates.WithLabelValues(discardStaleScope).Inc()
		return
	}
	r.seq++
	r.lastLiveSeq = r.seq
	g := grid.New(r.scope, r.seq, grid.SourceLive, r.opts.Candidates, booked)
	r.current.Store(g)
	r.mu.Unlock()

	r.metrics.GridReplacements.WithLabelValues(string(grid.SourceLive)).Inc()
	r.notify(Change{Grid: g, Reason: ReasonLive})
}

// RefreshNow drops the cached snapshot, asks the feed for a push and fetches
// over REST as well; whichever lands last wins, subject to the stamp guard.
func (r *Reconciler) RefreshNow(ctx context.Context) error {
	r.scopeMu.Lock()
	defer r.scopeMu.Unlock()

	r.mu.Lock()
	if r.closed || !r.hasScope {
		r.mu.Unlock()
		return availabilityerrors.ErrNoScope
	}
	scope := r.scope
	stamp := r.stampLocked()
	scopeCtx := r.scopeCtx
	r.mu.Unlock()

	r.metrics.RefreshRequests.Inc()
	r.invalidate(ctx, scope)
	r.feed.RequestUpdate(ctx, scope.Date, scope.BranchID)
	r.startFetch(scopeCtx, stamp)
	return nil
}

// OnChange registers fn for grid replacements and returns its disposer.
// Listeners run one change at a time in ascending version order; a change
// older than one already delivered is dropped. Listeners must not call
// SetScope, RefreshNow or Close.
func (r *Reconciler) OnChange(fn func(Change)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, id)
			r.mu.Unlock()
		})
	}
}

// Close leaves the room, stops the ticker and waits for in-flight fetches.
func (r *Reconciler) Close() error {
	r.scopeMu.Lock()
	defer r.scopeMu.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	scope, hasScope := r.scope, r.hasScope
	stopTicker := r.teardownLocked()
	r.mu.Unlock()

	stopTicker()
	if hasScope {
		r.feed.LeaveRoom(context.Background(), scope.BranchID, scope.Date)
	}
	r.unsubscribe()
	r.disposeReconnect()
	r.wg.Wait()
	return nil
}

// teardownLocked cancels the current scope context and returns a func that
// waits for the ticker goroutine. Call the func without holding mu.
func (r *Reconciler) teardownLocked() func() {
	if r.scopeCancel != nil {
		r.scopeCancel()
	}
	done := r.tickerDone
	r.tickerDone = nil
	return func() {
		if done != nil {
			<-done
		}
	}
}

func (r *Reconciler) stampLocked() Stamp {
	return Stamp{Scope: r.scope, Generation: r.generation, Seq: r.seq}
}

func (r *Reconciler) startFetch(ctx context.Context, stamp Stamp) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.fetchAndApply(ctx, stamp)
	}()
}

func (r *Reconciler) fetchAndApply(ctx context.Context, stamp Stamp) {
	fctx, cancel := context.WithTimeout(ctx, r.opts.FetchTimeout)
	defer cancel()

	snap, err := r.fetcher.Fetch(fctx, stamp.Scope.BranchID, stamp.Scope.Date)
	if err != nil {
		r.metrics.DiscardedUpdates.WithLabelValues(discardFetchError).Inc()
		r.log.Debug("Snapshot fetch abandoned",
			"branch_id", stamp.Scope.BranchID,
			"date", stamp.Scope.Date,
			"error", err,
		)
		return
	}
	r.OnSnapshotFetched(stamp, snap)
}

func (r *Reconciler) startTicker(ctx context.Context, scope grid.Scope) {
	t := r.opts.NewTicker(r.opts.RefreshInterval)
	done := make(chan struct{})

	r.mu.Lock()
	r.tickerDone = done
	r.mu.Unlock()

	go func() {
		defer close(done)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C():
				r.tick(ctx, scope)
			}
		}
	}()
}

// tick asks the feed for a push, or polls over REST while the feed is down.
func (r *Reconciler) tick(ctx context.Context, scope grid.Scope) {
	if r.feed.Connected() {
		r.feed.RequestUpdate(ctx, scope.Date, scope.BranchID)
		return
	}

	r.mu.Lock()
	if r.closed || r.scope != scope || ctx.Err() != nil {
		r.mu.Unlock()
		return
	}
	stamp := r.stampLocked()
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		r.fetchAndApply(ctx, stamp)
	}()
}

func (r *Reconciler) rejoin() {
	r.mu.Lock()
	scope, ok := r.scope, r.hasScope && !r.closed
	r.mu.Unlock()

	if !ok {
		return
	}
	r.log.Info("Rejoining live feed room after reconnect", "branch_id", scope.BranchID, "date", scope.Date)
	r.feed.JoinRoom(context.Background(), scope.BranchID, scope.Date)
}

func (r *Reconciler) invalidate(ctx context.Context, scope grid.Scope) {
	inv, ok := r.fetcher.(fetcher.Invalidator)
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx, scope.BranchID, scope.Date); err != nil {
		r.log.Warn("Failed to invalidate snapshot cache", "branch_id", scope.BranchID, "date", scope.Date, "error", err)
	}
}

func (r *Reconciler) notify(change Change) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	v := change.Grid.Version()
	if v <= r.lastNotified {
		r.metrics.DiscardedUpdates.WithLabelValues(discardOutOfOrder).Inc()
		r.log.Debug("Skipping out-of-order grid change", "version", v, "delivered", r.lastNotified)
		return
	}
	r.lastNotified = v

	r.mu.Lock()
	ids := make([]uint64, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, r.listeners[id])
	}
	r.mu.Unlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.log.Error("Grid change listener panicked", "panic", p)
				}
			}()
			fn(change)
		}()
	}
}
