package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"portfolio-enhancer/internal/adapter/describe"
	"portfolio-enhancer/internal/adapter/page"
	"portfolio-enhancer/internal/domain"
	"portfolio-enhancer/internal/port"
)

// EnhanceService 处理页面增强逻辑
// 每个仓库走 缓存命中 | 抓取 → 识别 → 撰稿 → 写卡片 的状态机，
// 单个仓库失败只降级自己的卡片，不拖垮整轮
type EnhanceService struct {
	fetcher   port.Fetcher
	detector  port.Detector
	describer port.Describer
	cache     port.Cache
	doc       port.Document
	repoDelay time.Duration
}

// NewEnhanceService 创建新的增强服务
func NewEnhanceService(
	fetcher port.Fetcher,
	detector port.Detector,
	describer port.Describer,
	cache port.Cache,
	doc port.Document,
) *EnhanceService {
	return &EnhanceService{
		fetcher:   fetcher,
		detector:  detector,
		describer: describer,
		cache:     cache,
		doc:       doc,
		repoDelay: time.Second, // 仓库之间的默认节流间隔
	}
}

// SetRepoDelay 设置仓库之间的节流间隔
func (s *EnhanceService) SetRepoDelay(d time.Duration) {
	if d >= 0 {
		s.repoDelay = d
	}
}

// ExecuteEnhanceCycle 执行一轮页面增强
// repoPaths 形如 "owner/name"，按配置顺序严格串行处理；
// 全部仓库到达终态后重建技能网格并一次性写回 htmlPath
func (s *EnhanceService) ExecuteEnhanceCycle(ctx context.Context, repoPaths []string, htmlPath string) error {
	fmt.Println("🚀 [增强模式] 开始刷新作品集页面...")

	// 1. 清掉旧版本缓存，载入上一轮的聚合技能
	s.cache.EvictStale()

	// 技能累加器显式穿过整个循环，不靠包级可变状态
	skills := domain.NewSkillSet(s.cache.LoadSkills()...)

	processed := 0
	for _, repoPath := range repoPaths {
		// 检查context是否已超时或取消
		select {
		case <-ctx.Done():
			fmt.Println("⏰ 执行时间过长，提前结束剩余项目")
			goto finish
		default:
		}

		owner, name, ok := splitRepoPath(repoPath)
		if !ok {
			log.Printf("❌ 仓库路径 %q 不是 owner/name 格式，跳过", repoPath)
			continue
		}

		card, found := s.doc.FindCard(name)
		if !found {
			log.Printf("⚠️ 页面里找不到 %s 对应的卡片，跳过", name)
			continue
		}

		// 2. 缓存命中：直接套用缓存的描述/统计，零网络调用
		// 缓存里存的已经是定稿，不走同文判定，重复运行不会来回改动页面
		if entry, hit := s.cache.Get(name); hit {
			fmt.Printf("⚡ %s 命中缓存\n", name)
			if desc := strings.TrimSpace(entry.Description); desc != "" {
				card.SetDescription(desc)
			} else {
				s.degradeCard(card)
			}
			card.SetStatsHTML(entry.StatsHTML)
			skills.Union(domain.NewSkillSet(entry.Skills...))
			processed++
			continue
		}

		// 3. 缓存未命中：抓取 → 识别 → 撰稿 → 写卡片
		fmt.Printf("📥 正在抓取 %s ...\n", repoPath)
		record, err := s.fetcher.FetchRepoData(ctx, owner, name)
		if err != nil {
			log.Printf("❌ 抓取 %s 失败: %v，卡片降级为原始描述", repoPath, err)
			s.degradeCard(card)
			continue
		}

		detected := s.detector.Detect(record)
		sorted := detected.Sorted()

		desc := s.describer.Describe(ctx, record, sorted)
		stats := page.StatsFragment(record.Stars, record.Forks, record.Language, record.Updated)

		s.applyDescription(card, desc)
		card.SetStatsHTML(stats)

		// 标签插入顺序：topics 在前，识别出的技能在后
		tags := make([]string, 0, len(record.Topics)+len(sorted))
		tags = append(tags, record.Topics...)
		tags = append(tags, sorted...)
		card.AppendTags(tags)

		s.cache.Put(name, &domain.CacheEntry{
			Description: desc,
			Skills:      sorted,
			StatsHTML:   stats,
		})
		skills.Union(detected)
		processed++
		fmt.Printf("✅ %s 增强完成 (识别出 %d 项技能)\n", name, len(sorted))

		// 仓库之间节流，避免触发 API 限制
		s.sleepBetween(ctx)
	}

finish:
	// 4. 网格 = 现有网格 ∪ 所有标签列表 ∪ 本轮累计，排序去重后整体重建
	skills.Union(domain.NewSkillSet(s.doc.ExistingGridSkills()...))
	skills.Union(domain.NewSkillSet(s.doc.ExistingTagSkills()...))
	final := skills.Sorted()
	s.doc.ReplaceSkillsGrid(final)
	s.cache.SaveSkills(final)

	if err := s.doc.Save(htmlPath); err != nil {
		return err
	}

	fmt.Printf("🎉 本轮增强完成，共处理 %d 个项目，技能网格 %d 项\n", processed, len(final))
	return nil
}

// applyDescription 写入新描述
// 新文案为空或与原文完全一致时，只在原文后面补一句收尾，不整体替换
func (s *EnhanceService) applyDescription(card port.Card, desc string) {
	original := card.DescriptionText()
	trimmed := strings.TrimSpace(desc)
	if trimmed == "" || trimmed == original {
		s.degradeCard(card)
		return
	}
	card.SetDescription(trimmed)
}

// degradeCard 降级路径：保留原始描述，追加一句通用收尾，保证非空
func (s *EnhanceService) degradeCard(card port.Card) {
	original := card.DescriptionText()
	if original == "" {
		card.SetDescription(describe.GenericSentence)
		return
	}
	if !strings.Contains(original, describe.GenericSentence) {
		card.SetDescription(original + " " + describe.GenericSentence)
	}
}

// sleepBetween 仓库之间的节流停顿，context 取消时提前返回
func (s *EnhanceService) sleepBetween(ctx context.Context) {
	if s.repoDelay <= 0 {
		return
	}
	timer := time.NewTimer(s.repoDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// splitRepoPath 拆出 "owner/name"
func splitRepoPath(repoPath string) (owner, name string, ok bool) {
	parts := strings.Split(strings.Trim(repoPath, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
