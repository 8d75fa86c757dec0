package domain

import (
	"sort"
	"time"
)

// RepoData 代表一个待展示项目的元数据快照
// 由 GitHub 四个子接口拼装而成，单次运行内不可变
type RepoData struct {
	// 基础信息 (来自 GitHub /repos/{owner}/{repo})
	Name        string `json:"name"`        // 例如 "Sentiment-Analysis"
	Description string `json:"description"` // GitHub 上的一句话描述
	Language    string `json:"language"`    // 主语言
	Stars       int    `json:"stars"`
	Forks       int    `json:"forks"`
	Updated     string `json:"updated"` // 展示用日期字符串，例如 "2026-08-30"

	// 语言字节数分布 (来自 /languages)，key 保留原始大小写
	Languages map[string]int `json:"languages"`

	// 主题标签 (topics)，保持 GitHub 返回顺序
	Topics []string `json:"topics"`

	// README 正文 (base64 解码后截断到前 1000 字符)
	Readme string `json:"readme"`

	// 仓库根目录文件/目录名 (来自 /contents)，用于探测 Dockerfile 之类的证据
	Contents []string `json:"contents"`
}

// SkillSet 技术标签集合，成员唯一、内部无序
type SkillSet map[string]struct{}

// NewSkillSet 从若干标签构造集合
func NewSkillSet(labels ...string) SkillSet {
	s := make(SkillSet, len(labels))
	for _, l := range labels {
		s.Add(l)
	}
	return s
}

// Add 加入一个标签，空字符串直接忽略
func (s SkillSet) Add(label string) {
	if label == "" {
		return
	}
	s[label] = struct{}{}
}

// Has 判断标签是否已存在
func (s SkillSet) Has(label string) bool {
	_, ok := s[label]
	return ok
}

// Union 并入另一个集合 (就地修改)
func (s SkillSet) Union(other SkillSet) {
	for label := range other {
		s[label] = struct{}{}
	}
}

// Sorted 输出排序去重后的标签列表
// 所有对外序列化/展示都走这里，保证结果稳定
func (s SkillSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for label := range s {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// CacheEntry 磁盘缓存条目，按 (仓库名, 版本串) 定位
// CreatedAt 仅作记录，不参与过期判断——失效只靠版本串不匹配
type CacheEntry struct {
	RepoName    string    `json:"repo_name"`
	Version     string    `json:"version"`
	Description string    `json:"description"`
	Skills      []string  `json:"skills"` // 写入前已排序
	StatsHTML   string    `json:"stats_html"`
	CreatedAt   time.Time `json:"created_at"`
}
