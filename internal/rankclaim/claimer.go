// Package rankclaim assigns each joining process a unique rank in [0, size)
// by racing atomic creates against a NATS JetStream KeyValue bucket.
//
// Claims carry a TTL lease renewed in the background, so a crashed process
// eventually frees its rank for a replacement. This is the bootstrap path
// for groups whose launcher does not hand out ranks itself.
package rankclaim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/cavemanloverboy/balancer/internal/logging"
	"github.com/cavemanloverboy/balancer/types"
)

// Errors returned by the claimer.
var (
	ErrNotClaimed = errors.New("rank not claimed")
)

// Claimer claims and leases one rank from a fixed-size pool.
type Claimer struct {
	kv   jetstream.KeyValue
	size int
	ttl  time.Duration

	rank   int
	stopCh chan struct{}
	doneCh chan struct{}

	logger types.Logger
}

// New creates a rank claimer over the given KV bucket.
//
// Parameters:
//   - kv: KV bucket holding rank claims (TTL should match ttl)
//   - size: Group size, the number of claimable ranks
//   - ttl: Lease duration for a claim
//   - logger: Logger for diagnostics (nil for none)
//
// Returns:
//   - *Claimer: New claimer, no rank claimed yet
func New(kv jetstream.KeyValue, size int, ttl time.Duration, logger types.Logger) *Claimer {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Claimer{
		kv:     kv,
		size:   size,
		ttl:    ttl,
		rank:   -1,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		logger: logger,
	}
}

// Claim atomically claims the lowest free rank and starts lease renewal.
//
// Each candidate rank is tried with a KV create, which succeeds for exactly
// one process. A pool with every rank taken yields types.ErrGroupFull.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - int: The claimed rank in [0, size)
//   - error: types.ErrGroupFull, context error, or KV failure
func (c *Claimer) Claim(ctx context.Context) (int, error) {
	for rank := 0; rank < c.size; rank++ {
		select {
		case <-ctx.Done():
			return -1, ctx.Err()
		default:
		}

		key := rankKey(rank)
		_, err := c.kv.Create(ctx, key, []byte(time.Now().UTC().Format(time.RFC3339)))
		if err == nil {
			c.rank = rank
			c.logger.Debug("rank claimed", "rank", rank, "key", key)
			go c.renewLoop()

			return rank, nil
		}

		if !errors.Is(err, jetstream.ErrKeyExists) {
			return -1, fmt.Errorf("claim rank %d: %w", rank, err)
		}
		// Taken, try the next one.
	}

	return -1, types.ErrGroupFull
}

// Rank returns the claimed rank, or -1 if none is claimed.
func (c *Claimer) Rank() int {
	return c.rank
}

// WaitForGroup blocks until all size ranks are claimed, polling the bucket.
// It is the join barrier: collectives are only safe once the group is whole.
//
// Parameters:
//   - ctx: Context carrying the join deadline
//
// Returns:
//   - error: Context cancellation/deadline, or KV failure
func (c *Claimer) WaitForGroup(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		claimed, err := c.countClaims(ctx)
		if err != nil {
			return err
		}
		if claimed >= c.size {
			return nil
		}

		c.logger.Debug("waiting for group members", "claimed", claimed, "size", c.size)

		select {
		case <-ctx.Done():
			return fmt.Errorf("group incomplete (%d/%d ranks claimed): %w", claimed, c.size, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Release stops renewal and frees the claimed rank.
//
// Parameters:
//   - ctx: Context for the KV delete
//
// Returns:
//   - error: ErrNotClaimed or KV failure
func (c *Claimer) Release(ctx context.Context) error {
	if c.rank < 0 {
		return ErrNotClaimed
	}

	close(c.stopCh)
	select {
	case <-c.doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	key := rankKey(c.rank)
	c.rank = -1
	if err := c.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}

	return nil
}

// renewLoop refreshes the lease at a third of the TTL until released.
func (c *Claimer) renewLoop() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.ttl/3)
			_, err := c.kv.Put(ctx, rankKey(c.rank), []byte(time.Now().UTC().Format(time.RFC3339)))
			cancel()
			if err != nil {
				c.logger.Warn("rank lease renewal failed", "rank", c.rank, "error", err)
			}
		}
	}
}

// countClaims returns how many ranks are currently claimed.
func (c *Claimer) countClaims(ctx context.Context) (int, error) {
	lister, err := c.kv.ListKeys(ctx)
	if err != nil {
		// An empty bucket reports "no keys found"; that is zero claims.
		if isNoKeys(err) {
			return 0, nil
		}

		return 0, fmt.Errorf("list rank claims: %w", err)
	}

	count := 0
	for range lister.Keys() {
		count++
	}

	return count, nil
}

func isNoKeys(err error) bool {
	return errors.Is(err, jetstream.ErrNoKeysFound)
}

func rankKey(rank int) string {
	return fmt.Sprintf("rank-%d", rank)
}
