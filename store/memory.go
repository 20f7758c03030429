package store

import (
	"context"
	"sync"

	"github.com/moneytrackio/conseil/tezos"
)

// Memory is an in-memory Reader+Sink fake used by tests across this
// module (chainsync, fork). It is not a candidate for production use —
// the real relational store lives outside this codebase (spec §1).
type Memory struct {
	mu          sync.Mutex
	blocks      map[tezos.BlockHash]storedEntry
	maxLevel    int
	latest      tezos.Option[StoredBlock]
	writeCalls  []tezos.BlockFetchingResults
}

type storedEntry struct {
	level       int
	invalidated bool
}

// NewMemory constructs an empty store.
func NewMemory() *Memory {
	return &Memory{
		blocks:   make(map[tezos.BlockHash]storedEntry),
		maxLevel: MaxLevelSentinel,
		latest:   tezos.None[StoredBlock](),
	}
}

// Seed registers a block as already indexed, optionally invalidated,
// and updates the max-level/latest-block bookkeeping if it's the new
// top.
func (m *Memory) Seed(hash tezos.BlockHash, level int, invalidated bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[hash] = storedEntry{level: level, invalidated: invalidated}
	if level > m.maxLevel {
		m.maxLevel = level
		m.latest = tezos.Some(StoredBlock{Hash: hash, Level: level})
	}
}

func (m *Memory) FetchMaxLevel(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxLevel, nil
}

func (m *Memory) FetchLatestBlock(ctx context.Context) (tezos.Option[StoredBlock], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest, nil
}

func (m *Memory) BlockExists(ctx context.Context, hash tezos.BlockHash) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blocks[hash]
	return ok, nil
}

func (m *Memory) BlockIsInInvalidatedState(ctx context.Context, hash tezos.BlockHash) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.blocks[hash]
	return ok && e.invalidated, nil
}

func (m *Memory) Write(ctx context.Context, results tezos.BlockFetchingResults) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeCalls = append(m.writeCalls, results)
	for _, r := range results {
		b := r.Action.Block()
		switch r.Action.(type) {
		case tezos.RevalidateBlock:
			e := m.blocks[b.Data.Hash]
			e.invalidated = false
			e.level = b.Data.Level
			m.blocks[b.Data.Hash] = e
		default:
			m.blocks[b.Data.Hash] = storedEntry{level: b.Data.Level, invalidated: false}
		}
		if b.Data.Level > m.maxLevel {
			m.maxLevel = b.Data.Level
			m.latest = tezos.Some(StoredBlock{Hash: b.Data.Hash, Level: b.Data.Level})
		}
	}
	return nil
}

// WriteCalls returns every batch passed to Write, for test assertions.
func (m *Memory) WriteCalls() []tezos.BlockFetchingResults {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tezos.BlockFetchingResults(nil), m.writeCalls...)
}
