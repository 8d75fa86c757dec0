package cache

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"portfolio-enhancer/internal/domain"
)

// FileCache 实现了 port.Cache 接口
// 一个 key 一个 JSON 文件，文件名自带版本串；失效只靠版本串不匹配。
// 所有 IO 失败一律吞掉：缓存只是省网络调用，不是正确性前提
type FileCache struct {
	dir     string
	version string
	nowFunc func() time.Time
}

// NewFileCache 创建缓存实例并确保目录存在
// 目录创建失败也不报错——后续读写全部退化为未命中/空操作
func NewFileCache(dir, version string) *FileCache {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("⚠️ 创建缓存目录 %s 失败: %v，本轮缓存不可用", dir, err)
	}
	return &FileCache{
		dir:     dir,
		version: version,
		nowFunc: time.Now, // 便于测试注入当前时间
	}
}

// entryPath 缓存文件路径：<仓库名>-<版本串>.json
func (c *FileCache) entryPath(repoName string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s-%s.json", repoName, c.version))
}

// skillsPath 聚合技能清单文件路径
func (c *FileCache) skillsPath() string {
	return filepath.Join(c.dir, fmt.Sprintf("skills-%s.json", c.version))
}

// Get 读取缓存条目，未命中或任何读取/解析失败都返回 (nil, false)
func (c *FileCache) Get(repoName string) (*domain.CacheEntry, bool) {
	raw, err := os.ReadFile(c.entryPath(repoName))
	if err != nil {
		return nil, false
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

// Put 写入缓存条目，失败只记日志
func (c *FileCache) Put(repoName string, entry *domain.CacheEntry) {
	if entry == nil {
		return
	}
	entry.RepoName = repoName
	entry.Version = c.version
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = c.nowFunc()
	}
	sort.Strings(entry.Skills)

	raw, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		log.Printf("⚠️ 序列化缓存条目 %s 失败: %v", repoName, err)
		return
	}
	if err := os.WriteFile(c.entryPath(repoName), raw, 0o644); err != nil {
		log.Printf("⚠️ 写入缓存条目 %s 失败: %v", repoName, err)
	}
}

// EvictStale 删除所有文件名里不含当前版本串的缓存文件
// 每轮流水线开始时调用一次；删除失败同样只记日志
func (c *FileCache) EvictStale() {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if strings.Contains(e.Name(), c.version) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			log.Printf("⚠️ 删除过期缓存 %s 失败: %v", e.Name(), err)
		}
	}
}

// LoadSkills 读取上一轮留下的聚合技能清单，读不到就返回空
func (c *FileCache) LoadSkills() []string {
	raw, err := os.ReadFile(c.skillsPath())
	if err != nil {
		return nil
	}

	var skills []string
	if err := json.Unmarshal(raw, &skills); err != nil {
		return nil
	}
	return skills
}

// SaveSkills 持久化聚合技能清单 (写入前排序)
func (c *FileCache) SaveSkills(skills []string) {
	sorted := make([]string, len(skills))
	copy(sorted, skills)
	sort.Strings(sorted)

	raw, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(c.skillsPath(), raw, 0o644); err != nil {
		log.Printf("⚠️ 写入聚合技能清单失败: %v", err)
	}
}
