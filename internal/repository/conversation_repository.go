// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"sync"

	"f1-rag-go/internal/model"
)

// DefaultMaxTurns 是每个会话保留的最大轮数。
const DefaultMaxTurns = 20

// ConversationRepository 定义了对话历史记录的操作接口。
type ConversationRepository interface {
	// Append 追加一轮对话，会话不存在时自动创建。
	Append(ctx context.Context, conversationID string, turn model.ConversationTurn) error
	// History 按时间顺序返回会话记录，未知会话返回空切片。
	History(ctx context.Context, conversationID string) ([]model.ConversationTurn, error)
}

// EvictionPolicy 决定会话超出容量时保留哪些轮次。
type EvictionPolicy interface {
	Trim(turns []model.ConversationTurn) []model.ConversationTurn
}

// FIFOEviction 只保留最近的 MaxTurns 轮。
type FIFOEviction struct {
	MaxTurns int
}

func (p FIFOEviction) Trim(turns []model.ConversationTurn) []model.ConversationTurn {
	limit := p.MaxTurns
	if limit <= 0 {
		limit = DefaultMaxTurns
	}
	if len(turns) <= limit {
		return turns
	}
	kept := make([]model.ConversationTurn, limit)
	copy(kept, turns[len(turns)-limit:])
	return kept
}

type conversationRecord struct {
	mu    sync.Mutex
	turns []model.ConversationTurn
}

// memoryConversationRepository 把所有会话放在一个数组里，通过 ID 到下标的映射访问。
// 外层读写锁只保护映射，每条记录自带互斥锁，同一会话的追加串行执行。
type memoryConversationRepository struct {
	mu      sync.RWMutex
	records []*conversationRecord
	slots   map[string]int
	policy  EvictionPolicy
}

// NewMemoryConversationRepository 创建进程内的会话存储，policy 为 nil 时使用 20 轮 FIFO。
func NewMemoryConversationRepository(policy EvictionPolicy) ConversationRepository {
	if policy == nil {
		policy = FIFOEviction{MaxTurns: DefaultMaxTurns}
	}
	return &memoryConversationRepository{
		slots:  make(map[string]int),
		policy: policy,
	}
}

func (r *memoryConversationRepository) lookup(conversationID string) *conversationRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if slot, ok := r.slots[conversationID]; ok {
		return r.records[slot]
	}
	return nil
}

func (r *memoryConversationRepository) getOrCreate(conversationID string) *conversationRecord {
	if rec := r.lookup(conversationID); rec != nil {
		return rec
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok := r.slots[conversationID]; ok {
		return r.records[slot]
	}
	rec := &conversationRecord{}
	r.slots[conversationID] = len(r.records)
	r.records = append(r.records, rec)
	return rec
}

func (r *memoryConversationRepository) Append(_ context.Context, conversationID string, turn model.ConversationTurn) error {
	rec := r.getOrCreate(conversationID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.turns = r.policy.Trim(append(rec.turns, turn))
	return nil
}

func (r *memoryConversationRepository) History(_ context.Context, conversationID string) ([]model.ConversationTurn, error) {
	rec := r.lookup(conversationID)
	if rec == nil {
		return []model.ConversationTurn{}, nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]model.ConversationTurn, len(rec.turns))
	copy(out, rec.turns)
	return out, nil
}
