package feed

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	availabilityerrors "fieldslots/internal/availability/errors"
	"fieldslots/pkg/logger"
	"fieldslots/pkg/metrics"
)

type membership struct {
	room     string
	branchID int64
}

// Client implements Feed over any Transport. Connection errors are logged and
// recovered by a bounded reconnect loop; subscribers never see them.
type Client struct {
	transport Transport
	opts      Options
	metrics   *metrics.Metrics
	log       *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	dialMu sync.Mutex

	mu           sync.Mutex
	session      Session
	rooms        map[membership]struct{}
	subs         map[uint64]func(Frame)
	reconnectFns map[uint64]func()
	nextID       uint64
	reconnecting bool
	closed       bool
	wg           sync.WaitGroup
}

func NewClient(transport Transport, opts Options, m *metrics.Metrics, log *logger.Logger) *Client {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 2 * time.Second
	}
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = 5
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		transport:    transport,
		opts:         opts,
		metrics:      m,
		log:          log,
		ctx:          ctx,
		cancel:       cancel,
		rooms:        make(map[membership]struct{}),
		subs:         make(map[uint64]func(Frame)),
		reconnectFns: make(map[uint64]func()),
	}
}

// Connect dials once if not already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.dialMu.Lock()
	defer c.dialMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("%w: client closed", availabilityerrors.ErrFeedNotConnected)
	}
	if c.session != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	sess, err := c.transport.Dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", availabilityerrors.ErrFeedNotConnected, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = sess.Close()
		return fmt.Errorf("%w: client closed", availabilityerrors.ErrFeedNotConnected)
	}
	c.session = sess
	c.wg.Add(1)
	c.mu.Unlock()

	go c.pump(sess)

	c.log.Info("Live feed connected")
	return nil
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// JoinRoom connects lazily, records membership, announces it and asks for a
// fresh push.
func (c *Client) JoinRoom(ctx context.Context, branchID int64, date string) {
	if err := c.Connect(ctx); err != nil {
		c.log.Warn("Live feed unavailable, joining after reconnect", "date", date, "branch_id", branchID, "error", err)
		c.scheduleReconnect()
		return
	}

	c.mu.Lock()
	c.rooms[membership{room: date, branchID: branchID}] = struct{}{}
	c.mu.Unlock()

	c.emit(ctx, Event{
		Name:     EventJoinRoom,
		Room:     date,
		BranchID: branchID,
		Payload:  roomPayload{Room: date, BranchID: branchID},
	})
	c.RequestUpdate(ctx, date, branchID)
}

func (c *Client) LeaveRoom(ctx context.Context, branchID int64, date string) {
	c.mu.Lock()
	delete(c.rooms, membership{room: date, branchID: branchID})
	connected := c.session != nil
	c.mu.Unlock()

	if !connected {
		return
	}
	c.emit(ctx, Event{
		Name:     EventLeaveRoom,
		Room:     date,
		BranchID: branchID,
		Payload:  roomPayload{Room: date, BranchID: branchID},
	})
}

// RequestUpdate is a no-op while disconnected.
func (c *Client) RequestUpdate(ctx context.Context, date string, branchID int64) {
	if !c.Connected() {
		return
	}
	c.emit(ctx, Event{
		Name:     EventRequestUpdate,
		Room:     date,
		BranchID: branchID,
		Payload:  updateRequestPayload{Date: date, BranchID: branchID},
	})
}

func (c *Client) Send(ctx context.Context, ev Event) error {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()

	if sess == nil {
		return availabilityerrors.ErrFeedNotConnected
	}
	return sess.Send(ctx, ev)
}

func (c *Client) emit(ctx context.Context, ev Event) {
	if err := c.Send(ctx, ev); err != nil {
		c.log.Warn("Failed to send live feed event", "event", ev.Name, "room", ev.Room, "error", err)
	}
}

func (c *Client) Subscribe(fn func(Frame)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func (c *Client) OnReconnect(fn func()) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.reconnectFns[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.reconnectFns, id)
			c.mu.Unlock()
		})
	}
}

// Disconnect closes the connection for good and stops reconnecting.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sess := c.session
	c.session = nil
	c.rooms = make(map[membership]struct{})
	c.mu.Unlock()

	c.cancel()

	var err error
	if sess != nil {
		err = sess.Close()
	}
	c.wg.Wait()
	c.log.Info("Live feed disconnected")
	return err
}

func (c *Client) pump(sess Session) {
	defer c.wg.Done()

	frames := sess.Frames()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-sess.Done():
			c.handleDrop(sess)
			return
		case frame, ok := <-frames:
			if !ok {
				c.handleDrop(sess)
				return
			}
			c.dispatch(frame)
		}
	}
}

func (c *Client) dispatch(frame Frame) {
	if frame.Event != EventAvailabilityUpdate {
		c.metrics.FeedFrames.WithLabelValues("ignored").Inc()
		return
	}

	c.mu.Lock()
	joined := c.joinedLocked(frame)
	handlers := c.sortedSubsLocked()
	c.mu.Unlock()

	if !joined {
		c.metrics.FeedFrames.WithLabelValues("not_joined").Inc()
		return
	}

	c.metrics.FeedFrames.WithLabelValues("dispatched").Inc()
	for _, fn := range handlers {
		c.safeCall(func() { fn(frame) })
	}
}

// joinedLocked matches on room; a zero branch on either side is a wildcard.
func (c *Client) joinedLocked(frame Frame) bool {
	for m := range c.rooms {
		if m.room != frame.Room {
			continue
		}
		if m.branchID == 0 || frame.BranchID == 0 || m.branchID == frame.BranchID {
			return true
		}
	}
	return false
}

func (c *Client) sortedSubsLocked() []func(Frame) {
	ids := make([]uint64, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]func(Frame), 0, len(ids))
	for _, id := range ids {
		out = append(out, c.subs[id])
	}
	return out
}

func (c *Client) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Live feed listener panicked", "panic", r)
		}
	}()
	fn()
}

// handleDrop forgets the session and its rooms, then starts reconnecting.
func (c *Client) handleDrop(sess Session) {
	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.rooms = make(map[membership]struct{})
	c.mu.Unlock()

	_ = sess.Close()
	c.log.Warn("Live feed connection dropped")
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.closed || c.reconnecting {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.wg.Add(1)
	c.mu.Unlock()

	go c.reconnectLoop()
}

func (c *Client) reconnectLoop() {
	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	for attempt := 1; attempt <= c.opts.MaxReconnectAttempts; attempt++ {
		select {
		case <-c.ctx.Done():
			return
		case <-time.After(c.opts.ReconnectDelay):
		}

		if err := c.Connect(c.ctx); err != nil {
			c.metrics.FeedReconnects.WithLabelValues(metrics.StatusFailure).Inc()
			c.log.Warn("Live feed reconnect failed",
				"attempt", attempt,
				"max_attempts", c.opts.MaxReconnectAttempts,
				"error", err,
			)
			continue
		}

		c.metrics.FeedReconnects.WithLabelValues(metrics.StatusSuccess).Inc()
		c.notifyReconnect()
		return
	}

	c.log.Error("Live feed reconnect attempts exhausted", "attempts", c.opts.MaxReconnectAttempts)
}

func (c *Client) notifyReconnect() {
	c.mu.Lock()
	ids := make([]uint64, 0, len(c.reconnectFns))
	for id := range c.reconnectFns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.reconnectFns[id])
	}
	c.mu.Unlock()

	for _, fn := range fns {
		c.safeCall(fn)
	}
}
