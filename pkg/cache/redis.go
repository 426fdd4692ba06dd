package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RemoteTier 远端缓存层接口
// ok 为 false 表示未命中；err 非空表示远端故障，调用方按未命中处理
type RemoteTier interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisTier 基于 Redis 的远端缓存层
type RedisTier struct {
	client *redis.Client
	prefix string
}

// RedisOptions Redis 连接选项
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix 键前缀，用于和同实例上的其他业务隔离
	Prefix string
}

// NewRedisTier 创建 Redis 远端缓存层
func NewRedisTier(opts RedisOptions) *RedisTier {
	if opts.Prefix == "" {
		opts.Prefix = "pagetr:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	return &RedisTier{
		client: client,
		prefix: opts.Prefix,
	}
}

// NewRedisTierFromClient 用现有客户端创建远端缓存层，便于测试注入
func NewRedisTierFromClient(client *redis.Client, prefix string) *RedisTier {
	if prefix == "" {
		prefix = "pagetr:"
	}
	return &RedisTier{client: client, prefix: prefix}
}

// Get 查询远端缓存
func (t *RedisTier) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := t.client.Get(ctx, t.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// Set 写入远端缓存
func (t *RedisTier) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return t.client.Set(ctx, t.prefix+key, value, ttl).Err()
}

// Close 关闭底层连接
func (t *RedisTier) Close() error {
	return t.client.Close()
}
