// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"f1-rag-go/internal/config"
	"f1-rag-go/pkg/log"
	"f1-rag-go/pkg/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// MaxAttempts 是同一个任务最多处理的次数，达到后提交 offset 不再重试。
const MaxAttempts = 3

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.IngestionTask) error
}

// Producer 把导入任务写入 Kafka。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: &kafka.Writer{
		Addr:     kafka.TCP(brokers(cfg)...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}}
}

// ProduceIngestionTask 发送一个导入任务到 Kafka，任务 ID 作为消息 key。
func (p *Producer) ProduceIngestionTask(ctx context.Context, task tasks.IngestionTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.TaskID),
		Value: taskBytes,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func brokers(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// messageReader 是 *kafka.Reader 中消费者用到的部分。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer 从 Kafka 拉取导入任务并同步处理。
type Consumer struct {
	reader    messageReader
	processor TaskProcessor
	rdb       *redis.Client
	backoff   time.Duration

	mu       sync.Mutex
	attempts map[string]int
}

// NewConsumer 创建消费者。rdb 为 nil 时失败次数只记在进程内。
func NewConsumer(cfg config.KafkaConfig, processor TaskProcessor, rdb *redis.Client) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(r, processor, rdb)
}

func newConsumer(r messageReader, processor TaskProcessor, rdb *redis.Client) *Consumer {
	return &Consumer{
		reader:    r,
		processor: processor,
		rdb:       rdb,
		backoff:   2 * time.Second,
		attempts:  make(map[string]int),
	}
}

// Run 阻塞地消费消息，直到 ctx 被取消或读取出错。
func (c *Consumer) Run(ctx context.Context) error {
	log.Info("Kafka 消费者已启动")
	defer func() {
		if err := c.reader.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("从 Kafka 读取消息失败: %w", err)
		}
		log.Infof("收到 Kafka 消息: offset %d", m.Offset)
		if err := c.handle(ctx, m); err != nil {
			return err
		}
	}
}

// handle 处理单条消息，成功或失败次数达到上限后提交 offset。
// 只有 ctx 取消时返回错误，此时 offset 不提交。
func (c *Consumer) handle(ctx context.Context, m kafka.Message) error {
	var task tasks.IngestionTask
	if err := json.Unmarshal(m.Value, &task); err != nil {
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		// 消息格式错误，直接提交，避免阻塞队列
		c.commit(ctx, m)
		return nil
	}

	for {
		log.Infof("开始处理导入任务: TaskID=%s, Source=%s, Location=%s", task.TaskID, task.Source, task.Location)
		err := c.processor.Process(ctx, task)
		if err == nil {
			log.Infof("导入任务处理成功: TaskID=%s", task.TaskID)
			c.resetAttempts(ctx, task.TaskID)
			c.commit(ctx, m)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		attempts := c.incrAttempts(ctx, task.TaskID)
		log.Errorf("处理导入任务失败: TaskID=%s, attempts=%d, Error: %v", task.TaskID, attempts, err)
		if attempts >= MaxAttempts {
			log.Errorf("导入任务多次失败(>=%d)，提交 offset 终止重试: TaskID=%s", MaxAttempts, task.TaskID)
			c.resetAttempts(ctx, task.TaskID)
			c.commit(ctx, m)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff):
		}
	}
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}

func attemptsKey(taskID string) string {
	return fmt.Sprintf("kafka:attempts:%s", taskID)
}

// incrAttempts 优先使用 Redis 计数，使重启后的重试次数延续；Redis 异常时退回进程内计数。
func (c *Consumer) incrAttempts(ctx context.Context, taskID string) int {
	if c.rdb != nil {
		n, err := c.rdb.Incr(ctx, attemptsKey(taskID)).Result()
		if err == nil {
			_ = c.rdb.Expire(ctx, attemptsKey(taskID), 24*time.Hour).Err()
			return int(n)
		}
		log.Warn("Redis 失败计数不可用, 使用进程内计数", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts[taskID]++
	return c.attempts[taskID]
}

func (c *Consumer) resetAttempts(ctx context.Context, taskID string) {
	if c.rdb != nil {
		_ = c.rdb.Del(ctx, attemptsKey(taskID)).Err()
	}
	c.mu.Lock()
	delete(c.attempts, taskID)
	c.mu.Unlock()
}
