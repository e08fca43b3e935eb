package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// redisTableSetKey 记录所有已创建逻辑表名的集合键
const redisTableSetKey = "kvstore:tables"

// RedisKVStore 基于Redis的键值存储。
// 逻辑表映射为键前缀 <table>:<key>，TTL由Redis原生管理。
type RedisKVStore struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisKVStore 基于已有Redis客户端创建键值存储
func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{
		client: client,
		ctx:    context.Background(),
	}
}

func (s *RedisKVStore) entryKey(table, key string) string {
	return table + ":" + key
}

// Exists 检查逻辑表是否存在
func (s *RedisKVStore) Exists(table string) (bool, error) {
	return s.client.SIsMember(s.ctx, redisTableSetKey, table).Result()
}

// Create 登记逻辑表
func (s *RedisKVStore) Create(table string) error {
	return s.client.SAdd(s.ctx, redisTableSetKey, table).Err()
}

// Get 读取键值
func (s *RedisKVStore) Get(table, key string) ([]byte, error) {
	val, err := s.client.Get(s.ctx, s.entryKey(table, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return val, nil
}

// Set 写入键值，ttl为0表示永不过期
func (s *RedisKVStore) Set(table, key string, value []byte, ttl time.Duration) error {
	if err := s.Create(table); err != nil {
		return err
	}
	return s.client.Set(s.ctx, s.entryKey(table, key), value, ttl).Err()
}

// Delete 删除键值对
func (s *RedisKVStore) Delete(table, key string) error {
	return s.client.Del(s.ctx, s.entryKey(table, key)).Err()
}

// ListTables 列出所有逻辑表名
func (s *RedisKVStore) ListTables() ([]string, error) {
	return s.client.SMembers(s.ctx, redisTableSetKey).Result()
}

// Close 关闭Redis连接
func (s *RedisKVStore) Close() error {
	return s.client.Close()
}
