package describe

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"unicode/utf8"

	"portfolio-enhancer/internal/domain"
	"portfolio-enhancer/internal/port"
)

const (
	// prompt 里给 AI 看的 README 片段可以长一点
	promptSnippetLimit = 300
	// 模板兜底里的片段短一些，避免描述过长
	fallbackSnippetLimit = 150
	// "Built with X, Y, Z" 最多列 3 个
	maxBuiltWith = 3
)

// GenericSentence 万能收尾句，也是卡片降级时追加的那一句
const GenericSentence = "This project reflects a focus on clean, maintainable code and modern development practices."

// 清洗正则的先后顺序有讲究：先删图片再删链接，否则会留下孤立的括号碎片；
// 符号清理要在空白折叠之前，否则折叠结果又被打散
var (
	imagePattern  = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	linkPattern   = regexp.MustCompile(`\[[^\]]*\]\([^)]+\)`)
	symbolPattern = regexp.MustCompile("[#*`>]")
	spacePattern  = regexp.MustCompile(`\s+`)
)

// CleanSnippet 把 README 清洗成一段纯文本片段
// limit > 0 时按字符数截断并补省略号，不会把多字节符号切成半个；
// 对已经干净的短文本是幂等的
func CleanSnippet(readme string, limit int) string {
	s := imagePattern.ReplaceAllString(readme, "")
	s = linkPattern.ReplaceAllString(s, "")
	s = symbolPattern.ReplaceAllString(s, " ")
	s = spacePattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if limit > 0 && utf8.RuneCountInString(s) > limit {
		s = strings.TrimSpace(string([]rune(s)[:limit])) + "..."
	}
	return s
}

// Composer 实现了 port.Describer 接口
// backend 为 nil 时直接走模板兜底 (比如没配 token)
type Composer struct {
	backend port.TextGenerator
}

// NewComposer 创建撰稿人实例
func NewComposer(backend port.TextGenerator) *Composer {
	return &Composer{backend: backend}
}

// Describe 组装项目描述：优先 AI 后端，失败或返回空就退回模板
// 永远不返回错误——最差也有确定性模板可用
func (c *Composer) Describe(ctx context.Context, record *domain.RepoData, skills []string) string {
	if c.backend != nil {
		text, err := c.backend.Generate(ctx, buildPrompt(record, skills))
		if err != nil {
			log.Printf("⚠️ AI 生成 %s 描述失败: %v，改用模板兜底", record.Name, err)
		} else if trimmed := strings.TrimSpace(text); trimmed != "" {
			return trimmed
		}
	}
	return Fallback(record, skills)
}

// buildPrompt 构造给生成后端的提示词
func buildPrompt(record *domain.RepoData, skills []string) string {
	return fmt.Sprintf(`Write a detailed, professional, and engaging summary for a developer portfolio project.
Project name: %s
GitHub description: %s
Technologies: %s
README snippet: %s
Highlight the project's purpose, features, and technical depth.`,
		record.Name,
		record.Description,
		strings.Join(skills, ", "),
		CleanSnippet(record.Readme, promptSnippetLimit))
}

// Fallback 确定性模板：描述 + README 片段 + Built with 子句 + 场景收尾句
func Fallback(record *domain.RepoData, skills []string) string {
	var b strings.Builder

	if record.Description != "" {
		b.WriteString(record.Description)
		b.WriteString(" ")
	}

	if record.Readme != "" {
		snippet := CleanSnippet(record.Readme, fallbackSnippetLimit)
		if snippet != "" && !strings.Contains(b.String(), snippet) {
			b.WriteString(snippet)
			b.WriteString(" ")
		}
	}

	if len(skills) > 0 {
		n := len(skills)
		if n > maxBuiltWith {
			n = maxBuiltWith
		}
		b.WriteString("Built with ")
		b.WriteString(strings.Join(skills[:n], ", "))
		b.WriteString(". ")
	}

	b.WriteString(categorySentence(record.Name, skills))
	return strings.TrimSpace(b.String())
}

// 分类收尾句的判定词表，按优先级排列，首个命中即止
var categoryChecks = []struct {
	terms    []string
	sentence string
}{
	{
		terms:    []string{"pytorch", "tensorflow", "gan", "cnn", "nlp", "transformers", "deep learning", "machine learning", "computer vision", "nltk", "rag"},
		sentence: "This project demonstrates hands-on machine learning engineering, from data preparation to model training and evaluation.",
	},
	{
		terms:    []string{"react", "next.js", "vue", "vite", "html", "css", "frontend"},
		sentence: "This project showcases modern web development with attention to responsive design and user experience.",
	},
	{
		terms:    []string{"docker", "kubernetes", "ci/cd", "terraform", "devops"},
		sentence: "This project highlights DevOps practices including containerization and automated workflows.",
	},
	{
		terms:    []string{"api", "flask", "django", "fastapi", "node.js", "graphql", "backend"},
		sentence: "This project demonstrates backend engineering with well-structured APIs and robust data handling.",
	},
	{
		terms:    []string{"numpy", "pandas", "scikit-learn", "jupyter", "data"},
		sentence: "This project applies data science techniques to extract insight from real-world datasets.",
	},
}

// categorySentence 按 (技能 + 项目名) 的小写串挑一句收尾
func categorySentence(name string, skills []string) string {
	haystack := strings.ToLower(strings.Join(skills, " ") + " " + name)
	for _, check := range categoryChecks {
		for _, term := range check.terms {
			if strings.Contains(haystack, term) {
				return check.sentence
			}
		}
	}
	return GenericSentence
}
