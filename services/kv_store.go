package services

import (
	"errors"
	"time"
)

// ErrKeyNotFound 表或键不存在、或值已过期
var ErrKeyNotFound = errors.New("键不存在")

// InterfaceKVStore 按表+键寻址的持久化键值存储。
// 值为JSON字节串；ttl为0表示永不过期，过期条目按不存在处理。
type InterfaceKVStore interface {
	Exists(table string) (bool, error)
	Create(table string) error
	Get(table, key string) ([]byte, error)
	Set(table, key string, value []byte, ttl time.Duration) error
	Delete(table, key string) error
	ListTables() ([]string, error)
	Close() error
}
