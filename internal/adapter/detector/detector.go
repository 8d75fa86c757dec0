package detector

import (
	"strings"

	"portfolio-enhancer/internal/domain"
)

// keywordRule 一条识别规则：标签 + 一组小写关键词
// 任意一个关键词在任一 haystack 里命中就算数，剩下的关键词跳过
type keywordRule struct {
	Label    string
	Keywords []string
}

// keywordTable 固定识别表，按类别排列
// 注意：个别关键词故意偏宽 ("next"、"api" 会在普通英文里误命中)，
// 这是从原始表继承下来的已知误报，改窄会丢标签，保持原样
var keywordTable = []keywordRule{
	// AI / ML
	{Label: "PyTorch", Keywords: []string{"pytorch", "torch"}},
	{Label: "TensorFlow", Keywords: []string{"tensorflow", "keras"}},
	{Label: "Transformers", Keywords: []string{"transformers", "hugging face", "huggingface", "bert"}},
	{Label: "NLP", Keywords: []string{"nlp", "natural language"}},
	{Label: "NLTK", Keywords: []string{"nltk"}},
	{Label: "GAN", Keywords: []string{"gan", "pix2pix"}},
	{Label: "CNN", Keywords: []string{"cnn", "convolutional"}},
	{Label: "Computer Vision", Keywords: []string{"computer vision", "image classification"}},
	{Label: "Deep Learning", Keywords: []string{"deep learning", "neural network"}},
	{Label: "RAG", Keywords: []string{"rag", "retrieval-augmented"}},

	// 数据科学
	{Label: "NumPy", Keywords: []string{"numpy"}},
	{Label: "Pandas", Keywords: []string{"pandas"}},
	{Label: "Scikit-learn", Keywords: []string{"scikit-learn", "sklearn"}},
	{Label: "OpenCV", Keywords: []string{"opencv", "cv2"}},

	// Web / 后端
	{Label: "Flask", Keywords: []string{"flask"}},
	{Label: "Django", Keywords: []string{"django"}},
	{Label: "FastAPI", Keywords: []string{"fastapi"}},
	{Label: "Streamlit", Keywords: []string{"streamlit"}},
	{Label: "React", Keywords: []string{"react"}},
	{Label: "Next.js", Keywords: []string{"next.js", "nextjs", "next"}},
	{Label: "Node.js", Keywords: []string{"node.js", "nodejs", "express"}},
	{Label: "Vite", Keywords: []string{"vite"}},
	{Label: "GraphQL", Keywords: []string{"graphql"}},
	{Label: "API", Keywords: []string{"api", "rest"}},

	// DevOps / 工具
	{Label: "Docker", Keywords: []string{"docker", "dockerfile", "docker-compose"}},
	{Label: "Kubernetes", Keywords: []string{"kubernetes", "k8s"}},
	{Label: "CI/CD", Keywords: []string{"github actions", "ci/cd"}},
	{Label: "PostgreSQL", Keywords: []string{"postgres", "postgresql"}},
	{Label: "SQLite", Keywords: []string{"sqlite"}},

	// 其他
	{Label: "Odoo", Keywords: []string{"odoo"}},
	{Label: "ERP", Keywords: []string{"erp"}},
	{Label: "Telegram Bot", Keywords: []string{"telegram"}},
	{Label: "Pytest", Keywords: []string{"pytest"}},
}

// RepoDetector 实现了 port.Detector 接口
type RepoDetector struct{}

// NewRepoDetector 创建新的识别器实例
func NewRepoDetector() *RepoDetector {
	return &RepoDetector{}
}

// Detect 从元数据快照识别技术标签
// 纯函数：同样的 record 永远给出同样的集合
func (d *RepoDetector) Detect(record *domain.RepoData) domain.SkillSet {
	skills := domain.NewSkillSet()

	// 1. 声明过的语言直接算数，大小写保持 GitHub 原样
	for lang := range record.Languages {
		skills.Add(lang)
	}

	// 2. 两个 haystack：正文 (README + 描述 + 仓库名) 和根目录文件名
	text := strings.ToLower(record.Readme + " " + record.Description + " " + record.Name)
	files := strings.ToLower(strings.Join(record.Contents, " "))

	// 3. 过一遍识别表，单个标签首个关键词命中即止
	for _, rule := range keywordTable {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) || strings.Contains(files, kw) {
				skills.Add(rule.Label)
				break
			}
		}
	}

	return skills
}
