package localstore

import (
	"errors"
	"sync"

	"focusflow/internal/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrBackendQuota is returned by a Backend whose own capacity would be exceeded.
var ErrBackendQuota = errors.New("backend quota exceeded")

// Backend is a string key/value store with a size limit, the shape of a
// browser's localStorage.
type Backend interface {
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// MemoryBackend keeps items in a map. Capacity is the maximum total of key
// and value bytes; zero means unlimited.
type MemoryBackend struct {
	Capacity int

	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryBackend(capacity int) *MemoryBackend {
	return &MemoryBackend{Capacity: capacity, items: make(map[string]string)}
}

func (m *MemoryBackend) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *MemoryBackend) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Capacity > 0 {
		used := 0
		for k, v := range m.items {
			if k != key {
				used += len(k) + len(v)
			}
		}
		if used+len(key)+len(value) > m.Capacity {
			return ErrBackendQuota
		}
	}
	m.items[key] = value
	return nil
}

func (m *MemoryBackend) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

type kvItem struct {
	Key   string `gorm:"column:name;primaryKey"`
	Value string `gorm:"type:text;not null"`
}

func (kvItem) TableName() string {
	return "kv_items"
}

// SQLiteBackend persists items in a single-table SQLite file.
type SQLiteBackend struct {
	db       *gorm.DB
	capacity int
}

// OpenSQLite opens the key/value file at path with the default 5 MiB capacity.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	db, err := database.Open(path, logger.Silent)
	if err != nil {
		return nil, err
	}
	return NewSQLiteBackend(db, StorageLimit)
}

// NewSQLiteBackend wraps an open database. capacity <= 0 means unlimited.
func NewSQLiteBackend(db *gorm.DB, capacity int) (*SQLiteBackend, error) {
	if err := db.AutoMigrate(&kvItem{}); err != nil {
		return nil, err
	}
	return &SQLiteBackend{db: db, capacity: capacity}, nil
}

func (b *SQLiteBackend) GetItem(key string) (string, bool, error) {
	var item kvItem
	err := b.db.Where("name = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return item.Value, true, nil
}

func (b *SQLiteBackend) SetItem(key, value string) error {
	return b.db.Transaction(func(tx *gorm.DB) error {
		if b.capacity > 0 {
			var used int64
			err := tx.Model(&kvItem{}).
				Where("name <> ?", key).
				Select("COALESCE(SUM(LENGTH(CAST(name AS BLOB)) + LENGTH(CAST(value AS BLOB))), 0)").
				Scan(&used).Error
			if err != nil {
				return err
			}
			if used+int64(len(key)+len(value)) > int64(b.capacity) {
				return ErrBackendQuota
			}
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&kvItem{Key: key, Value: value}).Error
	})
}

func (b *SQLiteBackend) RemoveItem(key string) error {
	return b.db.Where("name = ?", key).Delete(&kvItem{}).Error
}

// Close releases the database file.
func (b *SQLiteBackend) Close() error {
	return database.Close(b.db)
}
