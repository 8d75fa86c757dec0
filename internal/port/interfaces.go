package port

import (
	"context"

	"portfolio-enhancer/internal/domain"
)

// Fetcher (采集员): 负责从 GitHub 拉取单个仓库的完整元数据
// 元数据、语言分布、README、根目录列表四个子调用各自降级，互不拖累
type Fetcher interface {
	// 比如：FetchRepoData(ctx, "irenicsunshine", "Sentiment-Analysis")
	FetchRepoData(ctx context.Context, owner, repo string) (*domain.RepoData, error)
}

// Detector (鉴定师): 根据元数据识别技术栈标签
// 纯函数，同样输入永远给出同样的集合
type Detector interface {
	Detect(record *domain.RepoData) domain.SkillSet
}

// TextGenerator (文案后端): 一次生成式调用，输入 prompt 输出一段文本
// HuggingFace 和 Gemini 两个后端实现同一个口子
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Describer (撰稿人): 组装项目描述
// 优先走 AI 后端，失败就退回确定性模板，所以永远不返回错误
type Describer interface {
	Describe(ctx context.Context, record *domain.RepoData, skills []string) string
}

// Cache (仓库管理员): 版本化的磁盘缓存
// 所有 IO 失败都吞掉——缓存只是加速，不是正确性前提
type Cache interface {
	// 命中返回条目，未命中或读取失败返回 (nil, false)
	Get(repoName string) (*domain.CacheEntry, bool)

	// 写入条目，失败静默忽略
	Put(repoName string, entry *domain.CacheEntry)

	// 删除所有版本串不匹配的旧缓存文件，每轮开始时调用一次
	EvictStale()

	// 聚合技能清单的读写
	LoadSkills() []string
	SaveSkills(skills []string)
}

// Document (排版员): 对作品集 HTML 的投影式读写
type Document interface {
	// FindCard 按仓库名定位项目卡片，找不到返回 false
	FindCard(repoName string) (Card, bool)

	// 现有技能网格/标签列表里已经出现过的标签
	ExistingGridSkills() []string
	ExistingTagSkills() []string

	// ReplaceSkillsGrid 整体重建技能网格 (旧条目全部丢弃)
	ReplaceSkillsGrid(labels []string)

	// Save 序列化写回磁盘，每轮只调用一次
	Save(path string) error
}

// Card 一张项目卡片的可变区域
type Card interface {
	// 描述元素当前的文本 (卡片内第一个 p)
	DescriptionText() string
	SetDescription(text string)

	// 统计区域不存在时自动创建
	SetStatsHTML(html string)

	// AppendTags 按发现顺序追加标签，大小写不敏感去重；没有标签容器则跳过
	AppendTags(labels []string)
}
