package peekcursor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowguru/foundationdb/internal/knobs"
	"github.com/flowguru/foundationdb/internal/peekrpc"
	"github.com/flowguru/foundationdb/internal/wire"
	"github.com/flowguru/foundationdb/pkg/id"
	"github.com/flowguru/foundationdb/pkg/log"
)

// ServerPeekCursor wraps a single live TLog endpoint with latency tracking,
// connection-reset policy, and endpoint-change handling. It supports a
// serial mode (one outstanding request at a time, the default) and an
// optional parallel pipelining mode.
type ServerPeekCursor struct {
	teamID      wire.StorageTeamID
	client      peekrpc.PeekClient
	endpointSrc EndpointSource
	monitor     FailureMonitor
	knobs       knobs.Knobs
	logger      log.Logger
	genSrc      *id.GenerationSource
	generation  id.Generation

	reportEmptyVersion bool
	parallel           bool

	messageVersion uint64
	nextBegin      uint64
	haveEnd        bool
	end            uint64

	deser     *wire.Deserializer
	head      wire.VSM
	headValid bool

	statsWindowStart time.Time
	slowCount        int
	fastCount        int
	lastResetAt      time.Time
	resets           int
}

var _ Cursor = (*ServerPeekCursor)(nil)

// ServerPeekCursorOption configures a ServerPeekCursor at construction.
type ServerPeekCursorOption func(*ServerPeekCursor)

// WithServerReportEmptyVersion controls whether MessageEmptyVersion records
// are visible to the consumer.
func WithServerReportEmptyVersion(report bool) ServerPeekCursorOption {
	return func(c *ServerPeekCursor) { c.reportEmptyVersion = report }
}

// WithServerLogger overrides the default no-op logger.
func WithServerLogger(l log.Logger) ServerPeekCursorOption {
	return func(c *ServerPeekCursor) { c.logger = l }
}

// WithFailureMonitor overrides the default always-available monitor.
func WithFailureMonitor(m FailureMonitor) ServerPeekCursorOption {
	return func(c *ServerPeekCursor) { c.monitor = m }
}

// WithParallel enables pipelined mode with up to knobs.ParallelGetMoreRequests
// outstanding requests.
func WithParallel(enabled bool) ServerPeekCursorOption {
	return func(c *ServerPeekCursor) { c.parallel = enabled }
}

// NewServerPeekCursor constructs a ServerPeekCursor over teamID, starting
// at beginVersion, talking to whatever endpointSrc currently reports.
func NewServerPeekCursor(teamID wire.StorageTeamID, endpointSrc EndpointSource, client peekrpc.PeekClient, beginVersion uint64, k knobs.Knobs, opts ...ServerPeekCursorOption) *ServerPeekCursor {
	c := &ServerPeekCursor{
		teamID:           teamID,
		client:           client,
		endpointSrc:      endpointSrc,
		monitor:          NewAlwaysAvailableMonitor(),
		knobs:            k,
		logger:           log.NewLogger(log.WithOutput(log.NewNullOutput())),
		genSrc:           id.NewGenerationSource(),
		messageVersion:   beginVersion,
		nextBegin:        beginVersion,
		deser:            wire.NewDeserializer(nil),
		statsWindowStart: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.generation = c.genSrc.Next()
	return c
}

// Resets reports how many times the slow-peer policy has fired for this
// cursor. Each firing is counted and logged as a warning; the PeekClient's
// connection itself is not closed or re-dialed. Exposed for tests and
// operational introspection.
func (c *ServerPeekCursor) Resets() int { return c.resets }

// HasRemaining reports whether a visible VSM is buffered.
func (c *ServerPeekCursor) HasRemaining() bool {
	if c.headValid {
		return true
	}
	for c.deser.HasNext() {
		v := c.deser.Next()
		if c.reportEmptyVersion || v.Message.Type != wire.MessageEmptyVersion {
			c.head = v
			c.headValid = true
			return true
		}
	}
	return false
}

// Get returns the head VSM without advancing.
func (c *ServerPeekCursor) Get() (wire.VSM, bool) {
	if !c.HasRemaining() {
		return wire.VSM{}, false
	}
	return c.head, true
}

// Next advances past the head VSM. Precondition: HasRemaining().
func (c *ServerPeekCursor) Next() { c.headValid = false }

// Reset is a no-op for ServerPeekCursor beyond clearing the local iterator
// position back to the start of the currently buffered data — unlike
// StorageTeamPeekCursor, the pipelined cursor has no single "last reply" to
// rewind to since a fetch may have merged several replies.
func (c *ServerPeekCursor) Reset() {
	c.deser.Rewind()
	c.headValid = false
}

// OnFailed blocks until the failure monitor reports the current endpoint as
// unavailable.
func (c *ServerPeekCursor) OnFailed(ctx context.Context) error {
	select {
	case <-c.monitor.OnStateEqual(c.endpointSrc.Current(), false):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RemoteMoreAvailable issues one round of remote fetch: a single request in
// serial mode, or up to knobs.ParallelGetMoreRequests speculative requests
// in parallel mode.
func (c *ServerPeekCursor) RemoteMoreAvailable(ctx context.Context) (bool, error) {
	if c.haveEnd {
		return false, peekrpc.ErrEndOfStream
	}
	if err := c.handleEndpointChange(ctx); err != nil {
		return false, err
	}
	if c.parallel {
		return c.remoteMoreAvailableParallel(ctx)
	}
	return c.remoteMoreAvailableSerial(ctx)
}

func (c *ServerPeekCursor) remoteMoreAvailableSerial(ctx context.Context) (bool, error) {
	reply, elapsed, err := c.peekOnce(ctx, c.nextBegin)
	if err != nil {
		return c.handleRemoteError(err)
	}
	c.observeLatency(elapsed, len(reply.Data))

	d := wire.NewDeserializer(reply.Data)
	if d.Empty() {
		return false, nil
	}
	c.deser = d
	c.messageVersion = reply.EndVersion - 1
	c.nextBegin = reply.EndVersion
	c.headValid = false
	return true, nil
}

// remoteMoreAvailableParallel dispatches up to ParallelGetMoreRequests
// concurrent requests, each guessing its BeginVersion assuming exactly one
// version advances per reply (a simplifying density assumption this
// pipelining mode accepts in exchange for overlap). Replies are applied in
// request order; if an earlier-applied reply advanced messageVersion by
// more than the guess assumed, a later reply's guessed BeginVersion is now
// stale: that reply and every reply after it are dropped, the replies
// already applied are kept, and the next round resumes from the new
// nextBegin. ErrOperationObsolete is returned only when the first reply's
// BeginVersion does not match.
func (c *ServerPeekCursor) remoteMoreAvailableParallel(ctx context.Context) (bool, error) {
	depth := c.knobs.ParallelGetMoreRequests
	if depth <= 0 {
		depth = 1
	}

	type slot struct {
		reply   *peekrpc.PeekReply
		elapsed time.Duration
		err     error
	}
	slots := make([]slot, depth)
	done := make(chan struct{}, depth)
	for i := 0; i < depth; i++ {
		guessBegin := c.nextBegin + uint64(i)
		go func(i int, begin uint64) {
			reply, elapsed, err := c.peekOnce(ctx, begin)
			slots[i] = slot{reply: reply, elapsed: elapsed, err: err}
			done <- struct{}{}
		}(i, guessBegin)
	}
	for i := 0; i < depth; i++ {
		<-done
	}

	var combined []byte
	appliedAny := false
	expectedBegin := c.nextBegin
	for i := 0; i < depth; i++ {
		s := slots[i]
		if s.err != nil {
			if errors.Is(s.err, peekrpc.ErrEndOfStream) {
				c.haveEnd = true
				c.end = c.messageVersion
				break
			}
			if appliedAny {
				break
			}
			return c.handleRemoteError(s.err)
		}
		if s.reply.BeginVersion != expectedBegin {
			if !appliedAny {
				return false, peekrpc.ErrOperationObsolete
			}
			break
		}
		c.observeLatency(s.elapsed, len(s.reply.Data))
		if len(s.reply.Data) == 0 {
			break
		}
		combined = append(combined, s.reply.Data...)
		expectedBegin = s.reply.EndVersion
		appliedAny = true
	}

	if !appliedAny {
		if c.haveEnd {
			return false, peekrpc.ErrEndOfStream
		}
		return false, nil
	}

	c.deser = wire.NewDeserializer(combined)
	c.messageVersion = expectedBegin - 1
	c.nextBegin = expectedBegin
	c.headValid = false
	return true, nil
}

func (c *ServerPeekCursor) peekOnce(ctx context.Context, beginVersion uint64) (*peekrpc.PeekReply, time.Duration, error) {
	req := &peekrpc.PeekRequest{
		DebugID:      uuid.New(),
		TeamID:       c.teamID,
		BeginVersion: beginVersion,
		EndVersion:   peekrpc.EndVersionUnbounded,
	}
	start := time.Now()
	reply, err := c.client.Peek(ctx, req)
	return reply, time.Since(start), err
}

func (c *ServerPeekCursor) handleRemoteError(err error) (bool, error) {
	switch {
	case errors.Is(err, peekrpc.ErrEndOfStream):
		c.haveEnd = true
		c.end = c.messageVersion
		return false, peekrpc.ErrEndOfStream
	case errors.Is(err, peekrpc.ErrTimeout), errors.Is(err, peekrpc.ErrOperationObsolete):
		return false, nil
	default:
		return false, err
	}
}

// observeLatency classifies one reply's round-trip time as slow, fast, or
// unknown (too small to be meaningful), and checks whether the current
// sampling window has elapsed — if so, evaluates the slow-peer threshold
// and resets the window regardless of the outcome.
func (c *ServerPeekCursor) observeLatency(elapsed time.Duration, replySize int) {
	sizeCounts := replySize >= c.knobs.DesiredTotalBytes || c.knobs.PeekCountSmallMessages
	if sizeCounts {
		if elapsed > c.knobs.PeekMaxLatency {
			c.slowCount++
		} else {
			c.fastCount++
		}
	}

	if time.Since(c.statsWindowStart) < c.knobs.PeekStatsInterval {
		return
	}

	total := c.slowCount + c.fastCount
	if total > 0 {
		ratio := float64(c.slowCount) / float64(total)
		if c.slowCount >= c.knobs.PeekStatsSlowAmount && ratio >= c.knobs.PeekStatsSlowRatio {
			c.maybeResetConnection()
		}
	}

	c.statsWindowStart = time.Now()
	c.slowCount = 0
	c.fastCount = 0
}

func (c *ServerPeekCursor) maybeResetConnection() {
	if !c.lastResetAt.IsZero() && time.Since(c.lastResetAt) < c.knobs.PeekResetInterval {
		return
	}
	c.lastResetAt = time.Now()
	c.resets++
	c.logger.Warn("serverpeek.connection_reset_slow_peek",
		log.Str("team", string(c.teamID)),
		log.Str("endpoint", c.endpointSrc.Current()),
		log.Int("slow", c.slowCount),
		log.Int("fast", c.fastCount),
	)
}

// handleEndpointChange is polled at the top of every RemoteMoreAvailable
// round. If the EndpointSource has announced a new endpoint since the last
// round, it rotates the cursor's generation. No requests are in flight
// between rounds, so there is no pipeline left to discard; the next round
// resumes from nextBegin exactly as it would have against the old endpoint,
// so no version is skipped or re-requested.
func (c *ServerPeekCursor) handleEndpointChange(ctx context.Context) error {
	select {
	case newEndpoint, ok := <-c.endpointSrc.Changes():
		if !ok {
			return nil
		}
		c.generation = c.genSrc.Next()
		c.logger.Debug("serverpeek.endpoint_changed",
			log.Str("team", string(c.teamID)),
			log.Str("endpoint", newEndpoint),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Generation returns the cursor's current endpoint-change generation, for
// diagnostics and for correlating requests issued against the same
// endpoint identity.
func (c *ServerPeekCursor) Generation() id.Generation { return c.generation }

func (c *ServerPeekCursor) String() string {
	return fmt.Sprintf("ServerPeekCursor{team=%s, messageVersion=%d, parallel=%v}", c.teamID, c.messageVersion, c.parallel)
}
