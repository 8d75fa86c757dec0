package page

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"os"
	"strings"

	"portfolio-enhancer/internal/common"
	"portfolio-enhancer/internal/port"

	"github.com/PuerkitoBio/goquery"
)

// 选择器契约：卡片、描述、统计、标签、技能网格的 class 约定
// 这些 class 由页面模板保证存在 (统计区域除外，缺了会现建)
const (
	cardSelector  = ".project-card"
	linkSelector  = `a[href*="github.com"]`
	statsSelector = ".repo-stats"
	tagsSelector  = ".project-tags"
	gridSelector  = ".skills-grid"
	itemSelector  = ".skill-item"
)

// HTMLDocument 实现了 port.Document 接口，内部是 goquery 文档模型
type HTMLDocument struct {
	doc     *goquery.Document
	doctype bool // 原文件是否带 <!DOCTYPE>，写回时补上
}

// Load 从磁盘读入作品集页面
func Load(path string) (*HTMLDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDocument, "读取页面失败", err)
	}
	d, err := Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	d.doctype = strings.HasPrefix(strings.ToLower(strings.TrimSpace(string(raw))), "<!doctype")
	return d, nil
}

// Parse 从任意 reader 构建文档 (测试用这个入口)
func Parse(r io.Reader) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDocument, "解析页面失败", err)
	}
	return &HTMLDocument{doc: doc}, nil
}

// FindCard 按仓库名定位项目卡片
// 匹配规则：第一张 GitHub 链接 href 里含有仓库名的卡片 (子串匹配)。
// 已知局限：仓库名互为前缀时可能选错卡片，保持与页面既有链接的约定一致
func (d *HTMLDocument) FindCard(repoName string) (port.Card, bool) {
	var found *goquery.Selection
	d.doc.Find(cardSelector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		href, ok := card.Find(linkSelector).First().Attr("href")
		if ok && strings.Contains(href, repoName) {
			found = card
			return false
		}
		return true
	})
	if found == nil {
		return nil, false
	}
	return &projectCard{sel: found}, true
}

// ExistingGridSkills 现有技能网格里的标签
func (d *HTMLDocument) ExistingGridSkills() []string {
	var labels []string
	d.doc.Find(gridSelector).Find(itemSelector).Each(func(_ int, item *goquery.Selection) {
		if text := strings.TrimSpace(item.Text()); text != "" {
			labels = append(labels, text)
		}
	})
	return labels
}

// ExistingTagSkills 所有项目标签列表里出现过的标签
func (d *HTMLDocument) ExistingTagSkills() []string {
	var labels []string
	d.doc.Find(tagsSelector).Children().Each(func(_ int, tag *goquery.Selection) {
		if text := strings.TrimSpace(tag.Text()); text != "" {
			labels = append(labels, text)
		}
	})
	return labels
}

// ReplaceSkillsGrid 整体重建技能网格：旧条目全部丢弃，按传入顺序重排
func (d *HTMLDocument) ReplaceSkillsGrid(labels []string) {
	grid := d.doc.Find(gridSelector).First()
	if grid.Length() == 0 {
		return
	}
	grid.Empty()
	for _, label := range labels {
		grid.AppendHtml(fmt.Sprintf(`<div class="skill-item">%s</div>`, html.EscapeString(label)))
	}
}

// Save 序列化写回磁盘
func (d *HTMLDocument) Save(path string) error {
	out, err := d.doc.Html()
	if err != nil {
		return common.WrapError(common.ErrCodeDocument, "序列化页面失败", err)
	}
	if d.doctype {
		out = "<!DOCTYPE html>\n" + out
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return common.WrapError(common.ErrCodeDocument, "写回页面失败", err)
	}
	return nil
}

// projectCard 一张卡片的可变投影
type projectCard struct {
	sel *goquery.Selection
}

// DescriptionText 卡片内第一个 p 的当前文本
func (c *projectCard) DescriptionText() string {
	return strings.TrimSpace(c.sel.Find("p").First().Text())
}

// SetDescription 覆写描述文本
func (c *projectCard) SetDescription(text string) {
	c.sel.Find("p").First().SetText(text)
}

// SetStatsHTML 填充统计区域，不存在时紧跟描述元素创建一个
func (c *projectCard) SetStatsHTML(fragment string) {
	stats := c.sel.Find(statsSelector).First()
	if stats.Length() == 0 {
		desc := c.sel.Find("p").First()
		if desc.Length() == 0 {
			return
		}
		desc.AfterHtml(`<div class="repo-stats"></div>`)
		stats = c.sel.Find(statsSelector).First()
	}
	stats.SetHtml(fragment)
}

// AppendTags 追加标签，大小写不敏感去重；页面没有标签容器就什么都不做
func (c *projectCard) AppendTags(labels []string) {
	tags := c.sel.Find(tagsSelector).First()
	if tags.Length() == 0 {
		return
	}

	existing := map[string]bool{}
	tags.Children().Each(func(_ int, tag *goquery.Selection) {
		existing[strings.ToLower(strings.TrimSpace(tag.Text()))] = true
	})

	for _, label := range labels {
		key := strings.ToLower(strings.TrimSpace(label))
		if key == "" || existing[key] {
			continue
		}
		existing[key] = true
		tags.AppendHtml(fmt.Sprintf(`<span class="project-tag">%s</span>`, html.EscapeString(label)))
	}
}

// StatsFragment 渲染卡片统计区域的 HTML 片段 (星标/分叉/语言/更新时间)
func StatsFragment(stars, forks int, language, updated string) string {
	return fmt.Sprintf(`<span><i class="fas fa-star" style="color: #ffd700;"></i> %d</span>
<span><i class="fas fa-code-branch" style="color: #28a745;"></i> %d</span>
<span><i class="fas fa-code" style="color: #007bff;"></i> %s</span>
<span><i class="fas fa-clock" style="color: #6c757d;"></i> %s</span>`,
		stars, forks, html.EscapeString(language), html.EscapeString(updated))
}
