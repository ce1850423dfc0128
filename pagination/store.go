// Package pagination tracks per-sender inline query offsets across a pool of
// worker processes. Workers never touch the state directly: a single
// Coordinator owns it and serves three commands (inline.get, inline.update,
// inline.purge) over a request/response socket protocol, and every worker
// reaches it through a Client. Offsets are not persisted: a restart starts
// every session from zero, which callers recover from via the empty-offset
// purge.
package pagination

import (
	"context"
	"sync"
)

// Store is the pagination state interface: a mapping from sender id to the
// integer offset of the next page. Get returns 0 for unknown senders.
// Implementations must serialize calls for the same sender; different
// senders need no coordination.
type Store interface {
	Get(ctx context.Context, sender int64) (int, error)
	Update(ctx context.Context, sender int64, offset int) error
	Purge(ctx context.Context, sender int64) error
}

const shardCount = 16

// Memory is the in-process Store. It backs the Coordinator and stands in
// for the full protocol in tests. Locking is striped by sender so distinct
// senders proceed concurrently while each sender stays single-writer.
type Memory struct {
	shards [shardCount]shard
}

type shard struct {
	mu      sync.Mutex
	offsets map[int64]int
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	m := &Memory{}
	for i := range m.shards {
		m.shards[i].offsets = make(map[int64]int)
	}
	return m
}

func (m *Memory) shard(sender int64) *shard {
	return &m.shards[uint64(sender)%shardCount]
}

// Get returns the sender's current offset, 0 when absent.
func (m *Memory) Get(_ context.Context, sender int64) (int, error) {
	s := m.shard(sender)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offsets[sender], nil
}

// Update sets the sender's offset. Last write wins.
func (m *Memory) Update(_ context.Context, sender int64, offset int) error {
	s := m.shard(sender)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offsets[sender] = offset
	return nil
}

// Purge resets the sender's offset to zero.
func (m *Memory) Purge(_ context.Context, sender int64) error {
	s := m.shard(sender)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.offsets, sender)
	return nil
}
