// Package cache memoizes translation responses so that re-translating an
// unchanged document does not hit the remote service again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
)

// Cache 缓存接口
type Cache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
	Clear() error
}

// cacheEntry 缓存条目
type cacheEntry struct {
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

func (e cacheEntry) expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(e.Timestamp) > ttl
}

// MemoryCache 内存缓存实现
type MemoryCache struct {
	data  map[string]cacheEntry
	ttl   time.Duration
	mutex sync.Mutex
	now   func() time.Time
}

// NewMemoryCache 创建内存缓存，ttl 为 0 表示永不过期
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		data: make(map[string]cacheEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Get 获取缓存
func (c *MemoryCache) Get(key string) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.data[key]
	if !exists {
		return "", false
	}
	if entry.expired(c.ttl, c.now()) {
		delete(c.data, key)
		return "", false
	}
	return entry.Value, true
}

// Set 设置缓存
func (c *MemoryCache) Set(key string, value string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cacheEntry{Value: value, Timestamp: c.now()}
	return nil
}

// Clear 清除所有缓存
func (c *MemoryCache) Clear() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]cacheEntry)
	return nil
}

// Len 条目数量
func (c *MemoryCache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.data)
}

// FileCache 文件缓存，内存作为一级缓存
type FileCache struct {
	basePath string
	ttl      time.Duration
	memory   *MemoryCache
	now      func() time.Time
}

// NewFileCache 创建文件缓存
func NewFileCache(basePath string, ttl time.Duration) (*FileCache, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileCache{
		basePath: basePath,
		ttl:      ttl,
		memory:   NewMemoryCache(ttl),
		now:      time.Now,
	}, nil
}

func (c *FileCache) filePath(key string) string {
	return filepath.Join(c.basePath, key+".cache")
}

// Get 先查内存，再查文件；过期文件会被删除
func (c *FileCache) Get(key string) (string, bool) {
	if value, ok := c.memory.Get(key); ok {
		return value, true
	}

	path := c.filePath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", false
	}
	if entry.expired(c.ttl, c.now()) {
		_ = os.Remove(path)
		return "", false
	}

	_ = c.memory.Set(key, entry.Value)
	return entry.Value, true
}

// Set 同时写入内存与文件
func (c *FileCache) Set(key string, value string) error {
	if err := c.memory.Set(key, value); err != nil {
		return err
	}

	data, err := json.Marshal(cacheEntry{Value: value, Timestamp: c.now()})
	if err != nil {
		return err
	}
	return os.WriteFile(c.filePath(key), data, 0o644)
}

// Clear 删除目录下全部 .cache 文件
func (c *FileCache) Clear() error {
	_ = c.memory.Clear()

	files, err := filepath.Glob(filepath.Join(c.basePath, "*.cache"))
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// New 根据配置创建缓存；dir 为空时使用内存缓存
func New(dir string, ttl time.Duration) (Cache, error) {
	if dir == "" {
		return NewMemoryCache(ttl), nil
	}
	return NewFileCache(dir, ttl)
}

// Key 由后端名称、语言对与内容生成缓存键
func Key(translator string, req *providers.Request) string {
	keyData := fmt.Sprintf("translator:%s|src:%s|tgt:%s|text:%s",
		translator, req.FromLang, req.ToLang, req.Content)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(keyData)))
}

// Observer 接收命中统计，可为空
type Observer interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// Translator 带缓存的翻译后端
type Translator struct {
	next     providers.Translator
	cache    Cache
	observer Observer
}

var _ providers.Translator = (*Translator)(nil)

// Wrap 用缓存包装翻译后端
func Wrap(next providers.Translator, c Cache, observer Observer) *Translator {
	return &Translator{next: next, cache: c, observer: observer}
}

// Translate 命中时直接返回；只缓存成功的结果
func (t *Translator) Translate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	key := Key(t.next.Name(), req)
	if value, ok := t.cache.Get(key); ok {
		if t.observer != nil {
			t.observer.RecordCacheHit()
		}
		return &providers.Response{TranslatedContent: value, Cached: true}, nil
	}
	if t.observer != nil {
		t.observer.RecordCacheMiss()
	}

	resp, err := t.next.Translate(ctx, req)
	if err != nil {
		return nil, err
	}
	// 写缓存失败不影响翻译结果
	_ = t.cache.Set(key, resp.TranslatedContent)
	return resp, nil
}

func (t *Translator) Name() string {
	return t.next.Name()
}
