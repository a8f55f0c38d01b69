package group

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/zeebo/xxh3"

	"github.com/cavemanloverboy/balancer/internal/kvutil"
	"github.com/cavemanloverboy/balancer/internal/logging"
	"github.com/cavemanloverboy/balancer/internal/rankclaim"
	"github.com/cavemanloverboy/balancer/types"
)

// Collective op names, used both as subject tokens and inbox key prefixes.
const (
	opGather    = "gather"
	opScatter   = "scatter"
	opBroadcast = "bcast"
	opRelease   = "release"
	opHello     = "hello"
)

// helloInterval paces presence announcements while the group assembles.
const helloInterval = 100 * time.Millisecond

// envelope frames every collective payload on the wire.
//
// Gen lines collectives up across members: the N-th collective on every rank
// shares one generation, so a straggler's message can never be mistaken for
// a later operation's. Sum is the xxh3 checksum of the group identity; a
// member configured with a different name or size produces a different Sum
// and is rejected on first contact.
type envelope struct {
	Rank int    `json:"rank"`
	Gen  uint64 `json:"gen"`
	Sum  uint64 `json:"sum"`
	Data []byte `json:"data,omitempty"`
}

// NATS is a process group whose members are separate processes coordinating
// over a NATS server.
//
// Collectives ride core NATS subjects under
// "{prefix}.{name}.{op}.{generation}[.{rank}]". Core NATS retains nothing,
// so members subscribe to the subjects addressed to them at join time and
// both join paths block until every rank has exchanged a presence message;
// no collective payload can be published before its receiver is listening,
// however skewed the process start times are. Incoming envelopes are parked
// in a concurrent inbox map until the blocked collective call consumes them.
//
// A NATS group is a process-wide handle: join once, share it across any
// number of sequential Balancer instances, close it at process exit.
type NATS struct {
	conn    *nats.Conn
	cfg     Config
	rank    int
	sum     uint64
	gen     atomic.Uint64
	closed  atomic.Bool
	inbox   *xsync.Map[string, *envelope]
	notify  chan struct{}
	subs    []*nats.Subscription
	claimer *rankclaim.Claimer
	logger  types.Logger

	// Presence tracking for the join handshake.
	helloMu   sync.Mutex
	helloSeen map[int]bool
	helloCh   chan struct{}
	mismatch  atomic.Bool
}

var _ types.ProcessGroup = (*NATS)(nil)

// JoinNATS joins a group, claiming the lowest free rank from the group's
// JetStream KV bucket, and blocks until all cfg.Size ranks have joined.
//
// Use this when the launcher starts identical processes with no rank
// assignment of its own. The claimed rank is leased and renewed in the
// background; Close releases it.
//
// Parameters:
//   - ctx: Context bounding the join (claim + group assembly)
//   - conn: NATS connection (shared, not closed by the group)
//   - cfg: Group configuration (Name and Size are required)
//   - logger: Logger for diagnostics (nil for none)
//
// Returns:
//   - *NATS: Joined group handle with a claimed rank
//   - error: Validation failure, types.ErrGroupFull, or join timeout
func JoinNATS(ctx context.Context, conn *nats.Conn, cfg Config, logger types.Logger) (*NATS, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	joinCtx, cancel := context.WithTimeout(ctx, cfg.JoinTimeout)
	defer cancel()

	kv, err := kvutil.EnsureBucket(joinCtx, js, jetstream.KeyValueConfig{
		Bucket: cfg.RankBucket,
		TTL:    cfg.RankTTL,
	})
	if err != nil {
		return nil, err
	}

	claimer := rankclaim.New(kv, cfg.Size, cfg.RankTTL, logger)
	rank, err := claimer.Claim(joinCtx)
	if err != nil {
		return nil, err
	}

	g, err := newNATS(conn, cfg, rank, claimer, logger)
	if err != nil {
		releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer releaseCancel()
		_ = claimer.Release(releaseCtx)

		return nil, err
	}

	// Collectives are only safe once every rank is present.
	if err := claimer.WaitForGroup(joinCtx); err != nil {
		_ = g.Close()
		return nil, err
	}

	// A claim can land before the claimant's subscriptions do; the presence
	// handshake closes that gap before any collective is allowed.
	if err := g.awaitGroup(joinCtx); err != nil {
		_ = g.Close()
		return nil, err
	}

	logger.Info("joined process group", "group", cfg.Name, "rank", rank, "size", cfg.Size)

	return g, nil
}

// JoinNATSWithRank joins a group with an externally assigned rank, for
// launchers (batch schedulers, container orchestrators) that already hand
// each process a unique index. No KV bucket is touched; instead the join
// blocks until a presence message has been exchanged with every rank, so
// members may start with arbitrary skew and no collective payload can be
// published before its receiver is subscribed.
//
// Parameters:
//   - ctx: Context bounding the join (capped by cfg.JoinTimeout)
//   - conn: NATS connection (shared, not closed by the group)
//   - cfg: Group configuration (Name and Size are required)
//   - rank: This process's rank in [0, cfg.Size)
//   - logger: Logger for diagnostics (nil for none)
//
// Returns:
//   - *NATS: Joined group handle
//   - error: Validation failure, types.ErrInvalidRank, types.ErrGroupMismatch,
//     or join timeout
func JoinNATSWithRank(ctx context.Context, conn *nats.Conn, cfg Config, rank int, logger types.Logger) (*NATS, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rank < 0 || rank >= cfg.Size {
		return nil, fmt.Errorf("%w: rank %d with size %d", types.ErrInvalidRank, rank, cfg.Size)
	}

	g, err := newNATS(conn, cfg, rank, nil, logger)
	if err != nil {
		return nil, err
	}

	joinCtx, cancel := context.WithTimeout(ctx, cfg.JoinTimeout)
	defer cancel()

	if err := g.awaitGroup(joinCtx); err != nil {
		_ = g.Close()
		return nil, err
	}

	logger.Info("joined process group", "group", cfg.Name, "rank", rank, "size", cfg.Size)

	return g, nil
}

// newNATS wires up subscriptions for the member's role and returns the
// handle. Subscribing happens here, before any collective, so payloads can
// never be published before their receiver is listening.
func newNATS(conn *nats.Conn, cfg Config, rank int, claimer *rankclaim.Claimer, logger types.Logger) (*NATS, error) {
	g := &NATS{
		conn:      conn,
		cfg:       cfg,
		rank:      rank,
		sum:       groupSum(cfg.Name, cfg.Size),
		inbox:     xsync.NewMap[string, *envelope](),
		notify:    make(chan struct{}, 1),
		claimer:   claimer,
		logger:    logger,
		helloSeen: map[int]bool{rank: true},
		helloCh:   make(chan struct{}, 1),
	}

	helloSub, err := conn.Subscribe(g.subject(opHello), g.deliverHello)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", g.subject(opHello), err)
	}
	g.subs = append(g.subs, helloSub)

	var subjects []string
	if rank == 0 {
		// The coordinator only ever receives gather contributions.
		subjects = []string{g.subject(opGather, ">")}
	} else {
		subjects = []string{
			g.subject(opRelease, ">"),
			g.subject(opBroadcast, ">"),
			g.subject(opScatter, "*", strconv.Itoa(rank)),
		}
	}

	for _, subj := range subjects {
		sub, err := conn.Subscribe(subj, g.deliver)
		if err != nil {
			g.unsubscribe()
			return nil, fmt.Errorf("subscribe %s: %w", subj, err)
		}
		g.subs = append(g.subs, sub)
	}

	if err := conn.Flush(); err != nil {
		g.unsubscribe()
		return nil, fmt.Errorf("flush subscriptions: %w", err)
	}

	return g, nil
}

// Rank returns this member's rank.
func (g *NATS) Rank() int {
	return g.rank
}

// Size returns the group size.
func (g *NATS) Size() int {
	return g.cfg.Size
}

// Gather implements the gather-to-coordinator collective. See
// types.ProcessGroup for the contract.
func (g *NATS) Gather(ctx context.Context, payload []byte) ([][]byte, error) {
	if g.closed.Load() {
		return nil, types.ErrGroupClosed
	}

	gen := g.gen.Add(1)

	if g.rank != 0 {
		if err := g.publish(g.subject(opGather, genToken(gen)), gen, payload); err != nil {
			return nil, err
		}

		// Rendezvous: wait for the coordinator's release before returning.
		if _, err := g.await(ctx, inboxKey(opRelease, gen, -1)); err != nil {
			return nil, fmt.Errorf("gather release: %w", err)
		}

		return nil, nil
	}

	bufs := make([][]byte, g.cfg.Size)
	bufs[0] = payload
	for r := 1; r < g.cfg.Size; r++ {
		env, err := g.await(ctx, inboxKey(opGather, gen, r))
		if err != nil {
			return nil, fmt.Errorf("gather from rank %d: %w", r, err)
		}
		bufs[r] = env.Data
	}

	if err := g.publish(g.subject(opRelease, genToken(gen)), gen, nil); err != nil {
		return nil, err
	}

	return bufs, nil
}

// Scatter implements the scatter collective. See types.ProcessGroup for the
// contract.
func (g *NATS) Scatter(ctx context.Context, payloads [][]byte) ([]byte, error) {
	if g.closed.Load() {
		return nil, types.ErrGroupClosed
	}

	gen := g.gen.Add(1)

	if g.rank != 0 {
		if payloads != nil {
			return nil, fmt.Errorf("%w: non-coordinator passed payloads", types.ErrScatterPayloadCount)
		}

		env, err := g.await(ctx, inboxKey(opScatter, gen, -1))
		if err != nil {
			return nil, fmt.Errorf("scatter to rank %d: %w", g.rank, err)
		}

		return env.Data, nil
	}

	if len(payloads) != g.cfg.Size {
		return nil, fmt.Errorf("%w: got %d payloads for size %d",
			types.ErrScatterPayloadCount, len(payloads), g.cfg.Size)
	}

	for r := 1; r < g.cfg.Size; r++ {
		subj := g.subject(opScatter, genToken(gen), strconv.Itoa(r))
		if err := g.publish(subj, gen, payloads[r]); err != nil {
			return nil, err
		}
	}

	return payloads[0], nil
}

// Broadcast implements the broadcast collective. See types.ProcessGroup for
// the contract.
func (g *NATS) Broadcast(ctx context.Context, payload []byte) ([]byte, error) {
	if g.closed.Load() {
		return nil, types.ErrGroupClosed
	}

	gen := g.gen.Add(1)

	if g.rank != 0 {
		env, err := g.await(ctx, inboxKey(opBroadcast, gen, -1))
		if err != nil {
			return nil, fmt.Errorf("broadcast: %w", err)
		}

		return env.Data, nil
	}

	if err := g.publish(g.subject(opBroadcast, genToken(gen)), gen, payload); err != nil {
		return nil, err
	}

	return payload, nil
}

// Barrier blocks until every member has reached it. Implemented as an empty
// gather, which already has rendezvous semantics.
func (g *NATS) Barrier(ctx context.Context) error {
	_, err := g.Gather(ctx, nil)
	return err
}

// Close tears the member down: subscriptions are drained and, for claimed
// ranks, the rank lease is released. The NATS connection itself is owned by
// the caller and left open.
//
// Returns:
//   - error: Rank release failure; unsubscribe errors are ignored
func (g *NATS) Close() error {
	if !g.closed.CompareAndSwap(false, true) {
		return nil
	}

	g.unsubscribe()

	if g.claimer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.claimer.Release(ctx); err != nil {
			return fmt.Errorf("release rank: %w", err)
		}
	}

	return nil
}

// deliver parks an incoming envelope in the inbox and wakes any waiter.
// Runs on the NATS delivery goroutine; it must not block.
func (g *NATS) deliver(msg *nats.Msg) {
	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		g.logger.Warn("dropping malformed collective message", "subject", msg.Subject, "error", err)
		return
	}

	g.inbox.Store(inboxKeyFromSubject(msg.Subject, &env), &env)

	select {
	case g.notify <- struct{}{}:
	default:
	}
}

// deliverHello records a presence announcement. A fresh rank gets an
// immediate answer, so a member whose earlier announcements predate our
// subscription still learns about us before it gives up announcing.
func (g *NATS) deliverHello(msg *nats.Msg) {
	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		g.logger.Warn("dropping malformed presence message", "subject", msg.Subject, "error", err)
		return
	}

	if env.Sum != g.sum {
		if g.mismatch.CompareAndSwap(false, true) {
			g.logger.Warn("presence message carries foreign group identity", "rank", env.Rank)
			// Answer once so the conflicting member detects the mismatch too
			// instead of waiting out its join timeout.
			if err := g.publishHello(); err != nil {
				g.logger.Warn("presence answer failed", "error", err)
			}
		}
		select {
		case g.helloCh <- struct{}{}:
		default:
		}
		return
	}

	if env.Rank == g.rank {
		return
	}

	g.helloMu.Lock()
	fresh := !g.helloSeen[env.Rank]
	g.helloSeen[env.Rank] = true
	g.helloMu.Unlock()

	if fresh {
		if err := g.publishHello(); err != nil {
			g.logger.Warn("presence answer failed", "error", err)
		}
	}

	select {
	case g.helloCh <- struct{}{}:
	default:
	}
}

// awaitGroup announces this member and blocks until presence messages have
// been exchanged with every rank. Collectives carry no retention, so a
// payload published before its receiver subscribed would be lost; completing
// this handshake on every member rules that out.
func (g *NATS) awaitGroup(ctx context.Context) error {
	ticker := time.NewTicker(helloInterval)
	defer ticker.Stop()

	for {
		if g.mismatch.Load() {
			return fmt.Errorf("%w: presence message with foreign group identity",
				types.ErrGroupMismatch)
		}

		g.helloMu.Lock()
		present := len(g.helloSeen)
		g.helloMu.Unlock()
		if present >= g.cfg.Size {
			return nil
		}

		if err := g.publishHello(); err != nil {
			return err
		}
		if err := g.conn.Flush(); err != nil {
			return fmt.Errorf("flush presence message: %w", err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("group incomplete (%d/%d ranks present): %w",
				present, g.cfg.Size, ctx.Err())
		case <-ticker.C:
		case <-g.helloCh:
		}
	}
}

func (g *NATS) publishHello() error {
	raw, err := json.Marshal(envelope{Rank: g.rank, Sum: g.sum})
	if err != nil {
		return fmt.Errorf("encode presence message: %w", err)
	}
	if err := g.conn.Publish(g.subject(opHello), raw); err != nil {
		return fmt.Errorf("publish presence message: %w", err)
	}

	return nil
}

// await blocks until the envelope for key arrives, the collective timeout
// fires, or ctx is cancelled. Group identity is verified at consumption.
func (g *NATS) await(ctx context.Context, key string) (*envelope, error) {
	timer := time.NewTimer(g.cfg.CollectiveTimeout)
	defer timer.Stop()

	for {
		if env, ok := g.inbox.LoadAndDelete(key); ok {
			if env.Sum != g.sum {
				return nil, fmt.Errorf("%w: message %s from rank %d carries foreign group identity",
					types.ErrGroupMismatch, key, env.Rank)
			}

			return env, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, fmt.Errorf("%w: waiting for %s after %s",
				types.ErrCollectiveTimeout, key, g.cfg.CollectiveTimeout)
		case <-g.notify:
			// Re-check the inbox.
		}
	}
}

// publish sends an envelope and flushes so the payload is on the wire before
// the collective blocks.
func (g *NATS) publish(subject string, gen uint64, data []byte) error {
	env := envelope{Rank: g.rank, Gen: gen, Sum: g.sum, Data: data}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	if err := g.conn.Publish(subject, raw); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	return g.conn.Flush()
}

func (g *NATS) unsubscribe() {
	for _, sub := range g.subs {
		_ = sub.Unsubscribe()
	}
	g.subs = nil
}

// subject builds "{prefix}.{name}.{op}[.{tokens...}]".
func (g *NATS) subject(op string, tokens ...string) string {
	s := g.cfg.SubjectPrefix + "." + g.cfg.Name + "." + op
	for _, tok := range tokens {
		s += "." + tok
	}

	return s
}

// inboxKey names the slot a waiter watches: "{op}.{gen}" for messages with a
// single sender per generation, "{op}.{gen}.{rank}" when the coordinator
// collects from every rank.
func inboxKey(op string, gen uint64, rank int) string {
	if rank < 0 {
		return op + "." + genToken(gen)
	}

	return op + "." + genToken(gen) + "." + strconv.Itoa(rank)
}

// inboxKeyFromSubject recovers the inbox key for an incoming message. Only
// gather is fan-in, so only gather keys carry the sender rank.
func inboxKeyFromSubject(subject string, env *envelope) string {
	op := opFromSubject(subject)
	if op == opGather {
		return inboxKey(op, env.Gen, env.Rank)
	}

	return inboxKey(op, env.Gen, -1)
}

// opFromSubject extracts the op token from "{prefix}.{name}.{op}...".
// Prefix and name contain no dots by construction.
func opFromSubject(subject string) string {
	start := 0
	for dots := 0; start < len(subject); start++ {
		if subject[start] == '.' {
			dots++
			if dots == 2 {
				start++
				break
			}
		}
	}

	end := start
	for end < len(subject) && subject[end] != '.' {
		end++
	}

	return subject[start:end]
}

func genToken(gen uint64) string {
	return strconv.FormatUint(gen, 10)
}

// groupSum checksums the group identity carried by every envelope.
func groupSum(name string, size int) uint64 {
	return xxh3.HashString(name + "|" + strconv.Itoa(size))
}
