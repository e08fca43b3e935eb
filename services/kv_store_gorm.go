package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/huanxin996/looking-http-service/config"
)

// KVEntry 键值表行结构，与各逻辑表共用同一schema
type KVEntry struct {
	Key        string   `gorm:"column:key;primaryKey;size:191"`
	Value      string   `gorm:"column:value;type:text;not null"`
	ExpireTime *float64 `gorm:"column:expire_time"`
	LastUpdate float64  `gorm:"column:last_update;not null"`
}

// GormKVStore 基于GORM的键值存储，每个逻辑表对应一张数据库表。
// 支持SQLite与MySQL两种方言。
type GormKVStore struct {
	db    *gorm.DB
	clock InterfaceClock

	mu          sync.Mutex // 保护表创建与已知表缓存
	knownTables map[string]bool
}

// NewGormKVStore 根据配置的存储驱动建立数据库连接
func NewGormKVStore(cfg *config.Config, clock InterfaceClock) (*GormKVStore, error) {
	var dialector gorm.Dialector
	switch cfg.StoreDriver {
	case "mysql":
		dialector = mysql.Open(cfg.GetDSN())
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("创建数据目录失败: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("不支持的存储驱动: %s", cfg.StoreDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	config.Info("键值存储初始化完成 - 驱动: %s", cfg.StoreDriver)
	return &GormKVStore{
		db:          db,
		clock:       clock,
		knownTables: make(map[string]bool),
	}, nil
}

// Exists 检查逻辑表是否存在
func (s *GormKVStore) Exists(table string) (bool, error) {
	s.mu.Lock()
	if s.knownTables[table] {
		s.mu.Unlock()
		return true, nil
	}
	s.mu.Unlock()
	return s.db.Migrator().HasTable(table), nil
}

// Create 创建逻辑表，表已存在时为no-op
func (s *GormKVStore) Create(table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.knownTables[table] {
		return nil
	}
	if !s.db.Migrator().HasTable(table) {
		if err := s.db.Table(table).AutoMigrate(&KVEntry{}); err != nil {
			return fmt.Errorf("创建表 %s 失败: %w", table, err)
		}
	}
	s.knownTables[table] = true
	return nil
}

// Get 读取键值，过期条目惰性删除并视为不存在
func (s *GormKVStore) Get(table, key string) ([]byte, error) {
	exists, err := s.Exists(table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrKeyNotFound
	}

	var entry KVEntry
	if err := s.db.Table(table).Where("`key` = ?", key).Take(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}

	if entry.ExpireTime != nil && EpochSeconds(s.clock.Now()) > *entry.ExpireTime {
		if err := s.Delete(table, key); err != nil {
			config.Warning("删除过期键失败: %s/%s: %v", table, key, err)
		}
		return nil, ErrKeyNotFound
	}
	return []byte(entry.Value), nil
}

// Set 写入键值，ttl为0表示永不过期
func (s *GormKVStore) Set(table, key string, value []byte, ttl time.Duration) error {
	if err := s.Create(table); err != nil {
		return err
	}

	now := EpochSeconds(s.clock.Now())
	entry := KVEntry{
		Key:        key,
		Value:      string(value),
		LastUpdate: now,
	}
	if ttl > 0 {
		expire := now + ttl.Seconds()
		entry.ExpireTime = &expire
	}

	return s.db.Table(table).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&entry).Error
}

// Delete 删除键值对
func (s *GormKVStore) Delete(table, key string) error {
	exists, err := s.Exists(table)
	if err != nil || !exists {
		return err
	}
	return s.db.Table(table).Where("`key` = ?", key).Delete(&KVEntry{}).Error
}

// ListTables 列出所有逻辑表名
func (s *GormKVStore) ListTables() ([]string, error) {
	return s.db.Migrator().GetTables()
}

// Close 关闭底层数据库连接
func (s *GormKVStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
