package group

import (
	"context"
	"fmt"

	"github.com/cavemanloverboy/balancer/types"
)

// Local is an in-process process group: its members live in one process and
// exchange collective payloads over channels.
//
// Local serves two purposes. With size 1 it is the zero-dependency group for
// single-process runs, where every collective degenerates to a copy. With
// size N it is a faithful multi-rank harness: gather really blocks every
// member until the coordinator has all payloads, so the uniform-call
// contract (and its deadlock failure mode) can be tested under `go test`
// with one goroutine per rank.
//
// Each member handle is used by one logical computation at a time, matching
// the one-collective-at-a-time contract of ProcessGroup.
type Local struct {
	rank int
	st   *localState
}

var _ types.ProcessGroup = (*Local)(nil)

type localMsg struct {
	rank    int
	payload []byte
}

// localState is the shared wiring between all members of one local group.
type localState struct {
	size int

	// Non-roots push gather contributions here; the root drains it.
	gatherCh chan localMsg

	// Root signals gather completion to each non-root.
	releaseCh []chan struct{}

	// Root pushes broadcast and scatter payloads, one channel per rank.
	bcastCh   []chan []byte
	scatterCh []chan []byte
}

// NewLocal creates an in-process group of the given size and returns one
// member handle per rank, indexed by rank.
//
// Parameters:
//   - size: Number of members (>= 1)
//
// Returns:
//   - []*Local: size member handles; handle r has rank r
//   - error: types.ErrInvalidGroupSize if size < 1
func NewLocal(size int) ([]*Local, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", types.ErrInvalidGroupSize, size)
	}

	st := &localState{
		size:      size,
		gatherCh:  make(chan localMsg, size),
		releaseCh: make([]chan struct{}, size),
		bcastCh:   make([]chan []byte, size),
		scatterCh: make([]chan []byte, size),
	}
	for r := range size {
		st.releaseCh[r] = make(chan struct{}, 1)
		st.bcastCh[r] = make(chan []byte, 1)
		st.scatterCh[r] = make(chan []byte, 1)
	}

	members := make([]*Local, size)
	for r := range size {
		members[r] = &Local{rank: r, st: st}
	}

	return members, nil
}

// Rank returns this member's rank.
func (g *Local) Rank() int {
	return g.rank
}

// Size returns the group size.
func (g *Local) Size() int {
	return g.st.size
}

// Gather implements the gather-to-coordinator collective. See
// types.ProcessGroup for the contract.
func (g *Local) Gather(ctx context.Context, payload []byte) ([][]byte, error) {
	if g.rank != 0 {
		select {
		case g.st.gatherCh <- localMsg{rank: g.rank, payload: payload}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		// Block until the coordinator has everything: gather is a rendezvous.
		select {
		case <-g.st.releaseCh[g.rank]:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	bufs := make([][]byte, g.st.size)
	bufs[0] = payload
	for received := 1; received < g.st.size; received++ {
		select {
		case msg := <-g.st.gatherCh:
			bufs[msg.rank] = msg.payload
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	for r := 1; r < g.st.size; r++ {
		select {
		case g.st.releaseCh[r] <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return bufs, nil
}

// Scatter implements the scatter collective. See types.ProcessGroup for the
// contract.
func (g *Local) Scatter(ctx context.Context, payloads [][]byte) ([]byte, error) {
	if g.rank != 0 {
		if payloads != nil {
			return nil, fmt.Errorf("%w: non-coordinator passed payloads", types.ErrScatterPayloadCount)
		}

		select {
		case buf := <-g.st.scatterCh[g.rank]:
			return buf, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if len(payloads) != g.st.size {
		return nil, fmt.Errorf("%w: got %d payloads for size %d",
			types.ErrScatterPayloadCount, len(payloads), g.st.size)
	}

	for r := 1; r < g.st.size; r++ {
		select {
		case g.st.scatterCh[r] <- payloads[r]:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return payloads[0], nil
}

// Broadcast implements the broadcast collective. See types.ProcessGroup for
// the contract.
func (g *Local) Broadcast(ctx context.Context, payload []byte) ([]byte, error) {
	if g.rank != 0 {
		select {
		case buf := <-g.st.bcastCh[g.rank]:
			return buf, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	for r := 1; r < g.st.size; r++ {
		select {
		case g.st.bcastCh[r] <- payload:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return payload, nil
}

// Barrier blocks until every member has reached it. Implemented as an empty
// gather, which already has rendezvous semantics.
func (g *Local) Barrier(ctx context.Context) error {
	_, err := g.Gather(ctx, nil)
	return err
}
