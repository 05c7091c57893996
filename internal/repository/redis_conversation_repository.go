package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"f1-rag-go/internal/model"

	"github.com/go-redis/redis/v8"
)

type redisConversationRepository struct {
	redisClient *redis.Client
	maxTurns    int
	ttl         time.Duration
}

// NewRedisConversationRepository 创建基于 Redis 列表的会话存储。
// 每个会话对应一个 list，追加、裁剪和续期在同一个 MULTI/EXEC 中完成。
func NewRedisConversationRepository(redisClient *redis.Client, maxTurns int, ttl time.Duration) ConversationRepository {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &redisConversationRepository{redisClient: redisClient, maxTurns: maxTurns, ttl: ttl}
}

func conversationKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s", conversationID)
}

func (r *redisConversationRepository) Append(ctx context.Context, conversationID string, turn model.ConversationTurn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation turn: %w", err)
	}
	key := conversationKey(conversationID)
	_, err = r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, int64(-r.maxTurns), -1)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append conversation turn: %w", err)
	}
	return nil
}

func (r *redisConversationRepository) History(ctx context.Context, conversationID string) ([]model.ConversationTurn, error) {
	items, err := r.redisClient.LRange(ctx, conversationKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}
	turns := make([]model.ConversationTurn, 0, len(items))
	for _, item := range items {
		var turn model.ConversationTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conversation turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}
