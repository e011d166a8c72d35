package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// oddsKeyPrefix redis键模式: game:odds:<game_key>
const oddsKeyPrefix = "game:odds:"

// connectTimeout 启动时验证redis连接的超时
const connectTimeout = 5 * time.Second

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// InitRedisStore 连接网络KV存储
// 值在ttl后自动过期,与sqlite后端的无限保留不同
func InitRedisStore(address, password string, db int, ttl time.Duration) (OddsStore, error) {
	if address == "" {
		return nil, errors.New("redis地址不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis连接失败: %w", err)
	}
	return &redisStore{client: client, ttl: ttl}, nil
}

func (s *redisStore) GetPrevious(ctx context.Context, gameKey string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, oddsKeyPrefix+gameKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("读取上一轮快照失败: %w", err)
	}
	return val, true, nil
}

func (s *redisStore) Store(ctx context.Context, gameKey string, odds []byte) error {
	if err := s.client.Set(ctx, oddsKeyPrefix+gameKey, odds, s.ttl).Err(); err != nil {
		return fmt.Errorf("写入快照失败: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
