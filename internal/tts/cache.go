package tts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/iabetor/podvoice/internal/logger"
)

const cacheIndexFile = "cache_index.json"

// CacheEntry 缓存索引中的一条记录。
type CacheEntry struct {
	Provider string    `json:"provider"`
	Voice    string    `json:"voice"`
	Text     string    `json:"text"`
	Size     int64     `json:"size"`
	CachedAt time.Time `json:"cached_at"`
	LastUsed time.Time `json:"last_used"`
}

// Cache 在本地磁盘缓存合成服务返回的原始音频，重复生成同一脚本时不再请求服务。
// 总大小超过上限时淘汰最久未使用的条目。nil 或禁用的 Cache 上的操作都是空操作。
type Cache struct {
	mu      sync.Mutex
	dir     string
	maxSize int64 // 字节，0 表示禁用
	index   map[string]*CacheEntry
}

// NewCache 创建合成缓存。maxSizeMB 为 0 时缓存被禁用。
func NewCache(dir string, maxSizeMB int64) (*Cache, error) {
	c := &Cache{dir: dir, index: make(map[string]*CacheEntry)}
	if maxSizeMB <= 0 {
		return c, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("[cache] 创建缓存目录失败: %w", err)
	}
	c.maxSize = maxSizeMB * 1024 * 1024

	if err := c.loadIndex(); err != nil {
		logger.Warnf("[cache] 加载缓存索引失败（将使用空索引）: %v", err)
	}
	// 移除本地文件不存在的条目
	c.validateIndex()
	return c, nil
}

// CacheKey 由决定合成结果的全部参数计算缓存键。
func CacheKey(provider, voice string, speed float64, codec, text string) string {
	h := sha256.New()
	for _, part := range []string{provider, voice, strconv.FormatFloat(speed, 'f', 2, 64), codec, text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// Enabled 返回缓存是否启用。
func (c *Cache) Enabled() bool {
	return c != nil && c.maxSize > 0
}

// Get 返回缓存的音频。
func (c *Cache) Get(key string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index[key]
	if !ok {
		return nil, false
	}
	data, err := os.ReadFile(c.filePath(key))
	if err != nil {
		delete(c.index, key)
		return nil, false
	}
	entry.LastUsed = time.Now()
	return data, true
}

// Put 写入一条缓存并在超出上限时淘汰旧条目。
func (c *Cache) Put(key string, entry CacheEntry, data []byte) error {
	if !c.Enabled() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	tmp := c.filePath(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("[cache] 写入缓存文件失败: %w", err)
	}
	if err := os.Rename(tmp, c.filePath(key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("[cache] 写入缓存文件失败: %w", err)
	}

	now := time.Now()
	entry.Size = int64(len(data))
	entry.CachedAt = now
	entry.LastUsed = now
	c.index[key] = &entry

	c.evictLocked()
	if err := c.saveIndexLocked(); err != nil {
		return fmt.Errorf("[cache] 保存缓存索引失败: %w", err)
	}
	return nil
}

// Len 返回缓存条目数。
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// Flush 持久化索引中的最近使用时间。
func (c *Cache) Flush() error {
	if !c.Enabled() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveIndexLocked()
}

func (c *Cache) filePath(key string) string {
	return filepath.Join(c.dir, key+".audio")
}

func (c *Cache) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(c.dir, cacheIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &c.index)
}

// saveIndexLocked 持久化缓存索引（调用方需持有锁）。
func (c *Cache) saveIndexLocked() error {
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, cacheIndexFile), data, 0644)
}

func (c *Cache) validateIndex() {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.index {
		if _, err := os.Stat(c.filePath(key)); err != nil {
			delete(c.index, key)
			removed++
		}
	}
	if removed > 0 {
		logger.Infof("[cache] 索引校验：移除 %d 个无效条目", removed)
		c.saveIndexLocked()
	}
	logger.Debugf("[cache] 缓存已加载: %d 条, 目录 %s", len(c.index), c.dir)
}

// evictLocked 总大小超限时按最近使用时间从旧到新淘汰（调用方需持有锁）。
func (c *Cache) evictLocked() {
	var total int64
	keys := make([]string, 0, len(c.index))
	for k, e := range c.index {
		total += e.Size
		keys = append(keys, k)
	}
	if total <= c.maxSize {
		return
	}

	sort.Slice(keys, func(i, j int) bool {
		return c.index[keys[i]].LastUsed.Before(c.index[keys[j]].LastUsed)
	})
	for _, k := range keys {
		if total <= c.maxSize {
			break
		}
		if err := os.Remove(c.filePath(k)); err != nil && !os.IsNotExist(err) {
			logger.Warnf("[cache] 删除缓存文件失败: %s: %v", k, err)
			continue
		}
		total -= c.index[k].Size
		logger.Debugf("[cache] LRU 淘汰: %s (%s)", k, c.index[k].Voice)
		delete(c.index, k)
	}
}
