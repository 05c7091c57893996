package index

import (
	"context"
	"sort"
	"sync"

	"f1-rag-go/internal/model"
)

type memoryEntry struct {
	id       string
	vector   []float32
	metadata model.ChunkMetadata
}

// MemoryIndex 是进程内的向量索引，读多写少，用读写锁保护。
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	entries   []memoryEntry
	positions map[string]int
}

// NewMemoryIndex 创建一个空的内存索引。
func NewMemoryIndex(dim int) *MemoryIndex {
	return &MemoryIndex{
		dimension: dim,
		positions: make(map[string]int),
	}
}

func (m *MemoryIndex) Dimension() int {
	return m.dimension
}

func (m *MemoryIndex) Upsert(_ context.Context, entries []model.IndexEntry) (int, error) {
	if err := validateEntries(entries, m.dimension); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		stored := memoryEntry{id: e.ID, vector: Normalize(e.Vector), metadata: e.Metadata}
		if pos, ok := m.positions[e.ID]; ok {
			m.entries[pos] = stored
			continue
		}
		m.positions[e.ID] = len(m.entries)
		m.entries = append(m.entries, stored)
	}
	return len(entries), nil
}

func (m *MemoryIndex) Search(_ context.Context, query []float32, k int) ([]model.SearchHit, error) {
	if err := validateQuery(query, k, m.dimension); err != nil {
		return nil, err
	}
	q := Normalize(query)

	m.mu.RLock()
	hits := make([]model.SearchHit, len(m.entries))
	for i, e := range m.entries {
		hits[i] = model.SearchHit{ID: e.id, Score: dot(q, e.vector), Metadata: e.metadata}
	}
	m.mu.RUnlock()

	// 同分时保持写入顺序
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *MemoryIndex) Stats(_ context.Context) model.IndexStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return model.IndexStats{TotalDocuments: len(m.entries), Dimension: m.dimension}
}

var _ VectorIndex = (*MemoryIndex)(nil)
