package animation

import (
	"bytes"
	"embed"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"portfolio-enhancer/internal/common"
)

// Category 动画类别，决定点击技能标签时播放哪套 DOM 动画
type Category string

const (
	CategoryCoding      Category = "coding"
	CategoryWeb         Category = "web"
	CategoryTerminal    Category = "terminal"
	CategoryAI          Category = "ai"
	CategoryDataScience Category = "datascience"
)

// categoryTable 技能标签到动画类别的固定映射
// 没收录的标签一律落到 coding
var categoryTable = map[string]Category{
	// 编程语言
	"Python":     CategoryCoding,
	"JavaScript": CategoryCoding,
	"TypeScript": CategoryCoding,
	"Go":         CategoryCoding,
	"HTML":       CategoryWeb,
	"CSS":        CategoryWeb,
	"SCSS":       CategoryWeb,
	"Shell":      CategoryTerminal,
	"CLI":        CategoryTerminal,

	// AI / ML
	"PyTorch":         CategoryAI,
	"TensorFlow":      CategoryAI,
	"RAG":             CategoryAI,
	"NLP":             CategoryAI,
	"NLTK":            CategoryAI,
	"Transformers":    CategoryAI,
	"GAN":             CategoryAI,
	"Deep Learning":   CategoryAI,
	"Computer Vision": CategoryAI,
	"CNN":             CategoryAI,

	// Web 开发
	"React":   CategoryWeb,
	"Next.js": CategoryWeb,
	"Node.js": CategoryWeb,
	"Vite":    CategoryWeb,
	"API":     CategoryWeb,
	"GraphQL": CategoryWeb,

	// 数据科学
	"NumPy":        CategoryDataScience,
	"OpenCV":       CategoryDataScience,
	"Scikit-learn": CategoryDataScience,
	"Pandas":       CategoryDataScience,

	// 工具和平台
	"Git":          CategoryTerminal,
	"Docker":       CategoryTerminal,
	"Kubernetes":   CategoryTerminal,
	"Odoo":         CategoryTerminal,
	"Flask":        CategoryTerminal,
	"Streamlit":    CategoryTerminal,
	"Telegram Bot": CategoryTerminal,
	"Pytest":       CategoryTerminal,
	"ERP":          CategoryTerminal,
}

// CategoryFor 查动画类别：先精确匹配，再大小写不敏感匹配，最后兜底 coding
func CategoryFor(skill string) Category {
	if c, ok := categoryTable[skill]; ok {
		return c
	}
	lower := strings.ToLower(skill)
	for label, c := range categoryTable {
		if strings.ToLower(label) == lower {
			return c
		}
	}
	return CategoryCoding
}

//go:embed skill-animations.js.tmpl
var templateFS embed.FS

type tableEntry struct {
	Label    string
	Category Category
}

// Script 渲染浏览器端的技能动画脚本，映射表直接嵌进 JS
func Script() ([]byte, error) {
	tmpl, err := template.ParseFS(templateFS, "skill-animations.js.tmpl")
	if err != nil {
		return nil, common.WrapError(common.ErrCodeInternal, "解析动画脚本模板失败", err)
	}

	entries := make([]tableEntry, 0, len(categoryTable))
	for label, c := range categoryTable {
		entries = append(entries, tableEntry{Label: label, Category: c})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Label < entries[j].Label })

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Entries []tableEntry }{entries}); err != nil {
		return nil, common.WrapError(common.ErrCodeInternal, "渲染动画脚本失败", err)
	}
	return buf.Bytes(), nil
}

// WriteScript 生成脚本并写到指定路径
func WriteScript(path string) error {
	script, err := Script()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return common.WrapError(common.ErrCodeInternal, "创建脚本目录失败", err)
	}
	if err := os.WriteFile(path, script, 0o644); err != nil {
		return common.WrapError(common.ErrCodeInternal, "写入动画脚本失败", err)
	}
	return nil
}
