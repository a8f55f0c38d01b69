package rankclaim

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	"github.com/cavemanloverboy/balancer/internal/kvutil"
	btesting "github.com/cavemanloverboy/balancer/testing"
	"github.com/cavemanloverboy/balancer/types"
)

func newTestBucket(t *testing.T, name string) jetstream.KeyValue {
	t.Helper()

	_, nc := btesting.StartEmbeddedNATS(t)
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	kv, err := kvutil.EnsureBucket(context.Background(), js, jetstream.KeyValueConfig{
		Bucket: name,
		TTL:    10 * time.Second,
	})
	require.NoError(t, err)

	return kv
}

func TestClaimAssignsDistinctRanks(t *testing.T) {
	t.Parallel()

	kv := newTestBucket(t, "ranks-distinct")
	ctx := context.Background()

	const size = 3
	seen := make(map[int]bool, size)
	claimers := make([]*Claimer, size)

	for i := range size {
		c := New(kv, size, 10*time.Second, nil)
		rank, err := c.Claim(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, rank, 0)
		require.Less(t, rank, size)
		require.False(t, seen[rank], "rank %d claimed twice", rank)
		seen[rank] = true
		claimers[i] = c
	}

	// Pool exhausted.
	extra := New(kv, size, 10*time.Second, nil)
	_, err := extra.Claim(ctx)
	require.ErrorIs(t, err, types.ErrGroupFull)

	for _, c := range claimers {
		require.NoError(t, c.Release(ctx))
	}
}

func TestWaitForGroup(t *testing.T) {
	t.Parallel()

	kv := newTestBucket(t, "ranks-wait")
	ctx := context.Background()

	const size = 2
	first := New(kv, size, 10*time.Second, nil)
	_, err := first.Claim(ctx)
	require.NoError(t, err)

	// Group incomplete: WaitForGroup should time out.
	shortCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	require.Error(t, first.WaitForGroup(shortCtx))

	// Second member arrives; both waits succeed.
	second := New(kv, size, 10*time.Second, nil)
	_, err = second.Claim(ctx)
	require.NoError(t, err)

	waitCtx, cancelWait := context.WithTimeout(ctx, 5*time.Second)
	defer cancelWait()
	require.NoError(t, first.WaitForGroup(waitCtx))
	require.NoError(t, second.WaitForGroup(waitCtx))
}

func TestReleaseFreesRank(t *testing.T) {
	t.Parallel()

	kv := newTestBucket(t, "ranks-release")
	ctx := context.Background()

	c := New(kv, 1, 10*time.Second, nil)
	rank, err := c.Claim(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, rank)

	require.NoError(t, c.Release(ctx))
	require.Equal(t, -1, c.Rank())

	// Rank is claimable again after release.
	again := New(kv, 1, 10*time.Second, nil)
	rank, err = again.Claim(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, rank)

	require.ErrorIs(t, c.Release(ctx), ErrNotClaimed)
}
