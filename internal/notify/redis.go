package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	apperrors "crossmind/internal/errors"
)

// RedisConfig 描述 Redis 通知队列的连接参数。
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Queue    string
}

// RedisPublisher 使用 Redis list 发布结算通知，消费端通过 BRPOP 读取。
type RedisPublisher struct {
	client *redis.Client
	queue  string
}

var _ Publisher = (*RedisPublisher)(nil)

// NewRedisPublisher 创建 Redis 通知发布器。
func NewRedisPublisher(cfg RedisConfig) (*RedisPublisher, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	queue := cfg.Queue
	if queue == "" {
		queue = "crossmind:settlements"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return &RedisPublisher{client: client, queue: queue}, nil
}

// PublishSettlement 将通知序列化后投递到 Redis。
func (p *RedisPublisher) PublishSettlement(ctx context.Context, settlement Settlement) error {
	payload, err := json.Marshal(settlement)
	if err != nil {
		return fmt.Errorf("序列化结算通知失败: %w", err)
	}
	if err := p.client.LPush(ctx, p.queue, payload).Err(); err != nil {
		return apperrors.Wrap(apperrors.CodePublishFailure, err, "Redis 发布通知失败")
	}
	return nil
}

// Close 关闭 Redis 连接。
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
