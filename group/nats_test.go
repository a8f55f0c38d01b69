package group

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	btesting "github.com/cavemanloverboy/balancer/testing"
	"github.com/cavemanloverboy/balancer/types"
)

// joinTestGroup joins size members to one embedded server, each over its own
// connection, using KV rank claiming. Members are closed via t.Cleanup.
func joinTestGroup(t *testing.T, name string, size int) []*NATS {
	t.Helper()

	ns, _ := btesting.StartEmbeddedNATS(t)
	conns := btesting.ConnectN(t, ns, size)

	cfg := Config{
		Name:              name,
		Size:              size,
		JoinTimeout:       10 * time.Second,
		CollectiveTimeout: 10 * time.Second,
	}

	members := make([]*NATS, size)
	var wg sync.WaitGroup
	errs := make([]error, size)
	for i := range size {
		wg.Add(1)
		go func() {
			defer wg.Done()
			members[i], errs[i] = JoinNATS(context.Background(), conns[i], cfg, nil)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "member %d join", i)
	}

	t.Cleanup(func() {
		for _, m := range members {
			_ = m.Close()
		}
	})

	return members
}

// byRank reorders joined members so index r holds the member with rank r.
func byRank(t *testing.T, members []*NATS) []*NATS {
	t.Helper()

	ordered := make([]*NATS, len(members))
	for _, m := range members {
		require.Nil(t, ordered[m.Rank()], "duplicate rank %d", m.Rank())
		ordered[m.Rank()] = m
	}

	return ordered
}

func runNATSMembers(t *testing.T, members []*NATS, fn func(g *NATS) error) {
	t.Helper()

	errs := make([]error, len(members))
	var wg sync.WaitGroup
	for i, g := range members {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = fn(g)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "member %d", i)
	}
}

func TestJoinNATSClaimsDistinctRanks(t *testing.T) {
	t.Parallel()

	members := joinTestGroup(t, "join-distinct", 3)
	ordered := byRank(t, members)

	for r, m := range ordered {
		require.Equal(t, r, m.Rank())
		require.Equal(t, 3, m.Size())
	}
}

func TestNATSGatherRankOrder(t *testing.T) {
	t.Parallel()

	members := joinTestGroup(t, "gather-order", 3)

	var mu sync.Mutex
	results := make(map[int][][]byte)

	runNATSMembers(t, members, func(g *NATS) error {
		payload := []byte(fmt.Sprintf("payload-%d", g.Rank()))
		bufs, err := g.Gather(context.Background(), payload)
		if err != nil {
			return err
		}
		mu.Lock()
		results[g.Rank()] = bufs
		mu.Unlock()

		return nil
	})

	require.Len(t, results[0], 3)
	for r := range 3 {
		require.Equal(t, []byte(fmt.Sprintf("payload-%d", r)), results[0][r])
	}
	for r := 1; r < 3; r++ {
		require.Nil(t, results[r])
	}
}

func TestNATSRepeatedCollectives(t *testing.T) {
	t.Parallel()

	members := joinTestGroup(t, "repeat", 2)

	runNATSMembers(t, members, func(g *NATS) error {
		ctx := context.Background()
		for round := 0; round < 3; round++ {
			if _, err := g.Gather(ctx, []byte{byte(g.Rank()), byte(round)}); err != nil {
				return fmt.Errorf("round %d gather: %w", round, err)
			}
			if err := g.Barrier(ctx); err != nil {
				return fmt.Errorf("round %d barrier: %w", round, err)
			}
		}

		return nil
	})
}

func TestNATSScatterAndBroadcast(t *testing.T) {
	t.Parallel()

	members := joinTestGroup(t, "scatter-bcast", 3)

	var mu sync.Mutex
	scattered := make(map[int][]byte)
	broadcasted := make(map[int][]byte)

	runNATSMembers(t, members, func(g *NATS) error {
		ctx := context.Background()

		var payloads [][]byte
		if g.Rank() == 0 {
			payloads = [][]byte{[]byte("for-0"), []byte("for-1"), []byte("for-2")}
		}
		buf, err := g.Scatter(ctx, payloads)
		if err != nil {
			return err
		}

		var bcast []byte
		if g.Rank() == 0 {
			bcast = []byte("to-everyone")
		}
		got, err := g.Broadcast(ctx, bcast)
		if err != nil {
			return err
		}

		mu.Lock()
		scattered[g.Rank()] = buf
		broadcasted[g.Rank()] = got
		mu.Unlock()

		return nil
	})

	for r := range 3 {
		require.Equal(t, []byte(fmt.Sprintf("for-%d", r)), scattered[r])
		require.Equal(t, []byte("to-everyone"), broadcasted[r])
	}
}

// joinExplicit joins one member per connection with explicit ranks, all
// concurrently since the join blocks until the whole group is present.
func joinExplicit(t *testing.T, conns []*nats.Conn, cfg Config) []*NATS {
	t.Helper()

	members := make([]*NATS, len(conns))
	errs := make([]error, len(conns))
	var wg sync.WaitGroup
	for i := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			members[i], errs[i] = JoinNATSWithRank(context.Background(), conns[i], cfg, i, nil)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "member %d join", i)
	}

	t.Cleanup(func() {
		for _, m := range members {
			_ = m.Close()
		}
	})

	return members
}

func TestNATSExplicitRankJoin(t *testing.T) {
	t.Parallel()

	ns, _ := btesting.StartEmbeddedNATS(t)
	conns := btesting.ConnectN(t, ns, 2)

	cfg := Config{Name: "explicit", Size: 2, CollectiveTimeout: 10 * time.Second}
	members := joinExplicit(t, conns, cfg)

	runNATSMembers(t, members, func(g *NATS) error {
		return g.Barrier(context.Background())
	})

	_, err := JoinNATSWithRank(context.Background(), conns[0], cfg, 2, nil)
	require.ErrorIs(t, err, types.ErrInvalidRank)
}

func TestNATSStaggeredExplicitJoin(t *testing.T) {
	t.Parallel()

	ns, _ := btesting.StartEmbeddedNATS(t)
	conns := btesting.ConnectN(t, ns, 2)

	cfg := Config{Name: "staggered", Size: 2, CollectiveTimeout: 10 * time.Second}

	// Rank 1 joins and enters the collective well before rank 0 exists. The
	// join must hold it at the presence handshake so its gather contribution
	// cannot be published into the void.
	var wg sync.WaitGroup
	var lateErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		g1, err := JoinNATSWithRank(context.Background(), conns[1], cfg, 1, nil)
		if err != nil {
			lateErr = err
			return
		}
		defer g1.Close()
		_, lateErr = g1.Gather(context.Background(), []byte("early-starter"))
	}()

	time.Sleep(500 * time.Millisecond)

	g0, err := JoinNATSWithRank(context.Background(), conns[0], cfg, 0, nil)
	require.NoError(t, err)
	defer g0.Close()

	bufs, err := g0.Gather(context.Background(), []byte("late-coordinator"))
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("late-coordinator"), []byte("early-starter")}, bufs)

	wg.Wait()
	require.NoError(t, lateErr)
}

func TestNATSGroupMismatchDetectedAtJoin(t *testing.T) {
	t.Parallel()

	ns, _ := btesting.StartEmbeddedNATS(t)
	conns := btesting.ConnectN(t, ns, 2)

	// Rank 1 believes the group has a different size: same subjects, but a
	// different identity checksum. Both members must refuse to assemble.
	good := Config{Name: "mismatch", Size: 2, JoinTimeout: 5 * time.Second}
	bad := Config{Name: "mismatch", Size: 3, JoinTimeout: 5 * time.Second}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		g, err := JoinNATSWithRank(context.Background(), conns[0], good, 0, nil)
		if err == nil {
			_ = g.Close()
		}
		errs[0] = err
	}()
	go func() {
		defer wg.Done()
		g, err := JoinNATSWithRank(context.Background(), conns[1], bad, 1, nil)
		if err == nil {
			_ = g.Close()
		}
		errs[1] = err
	}()
	wg.Wait()

	require.ErrorIs(t, errs[0], types.ErrGroupMismatch)
	require.ErrorIs(t, errs[1], types.ErrGroupMismatch)
}

func TestNATSCollectiveTimeout(t *testing.T) {
	t.Parallel()

	ns, _ := btesting.StartEmbeddedNATS(t)
	conns := btesting.ConnectN(t, ns, 2)

	cfg := Config{Name: "timeout", Size: 2, CollectiveTimeout: 300 * time.Millisecond}
	members := joinExplicit(t, conns, cfg)

	// Rank 1 joined but never calls the collective: the gather must fail
	// rather than hang forever.
	_, err := members[0].Gather(context.Background(), []byte("alone"))
	require.ErrorIs(t, err, types.ErrCollectiveTimeout)
}

func TestNATSClosedGroupRejectsCollectives(t *testing.T) {
	t.Parallel()

	ns, _ := btesting.StartEmbeddedNATS(t)
	conns := btesting.ConnectN(t, ns, 1)

	cfg := Config{Name: "closed", Size: 1, CollectiveTimeout: time.Second}
	g, err := JoinNATSWithRank(context.Background(), conns[0], cfg, 0, nil)
	require.NoError(t, err)

	require.NoError(t, g.Close())
	require.NoError(t, g.Close()) // idempotent

	_, err = g.Gather(context.Background(), nil)
	require.ErrorIs(t, err, types.ErrGroupClosed)
}
