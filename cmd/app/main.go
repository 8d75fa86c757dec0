package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"portfolio-enhancer/internal/adapter/animation"
	"portfolio-enhancer/internal/adapter/cache"
	"portfolio-enhancer/internal/adapter/describe"
	"portfolio-enhancer/internal/adapter/detector"
	"portfolio-enhancer/internal/adapter/gemini"
	"portfolio-enhancer/internal/adapter/github"
	"portfolio-enhancer/internal/adapter/huggingface"
	"portfolio-enhancer/internal/adapter/page"
	"portfolio-enhancer/internal/port"
	"portfolio-enhancer/internal/service"

	"github.com/joho/godotenv"
)

// defaultRepos 作品集追踪的固定仓库清单，按页面展示顺序排列
var defaultRepos = []string{
	"irenicsunshine/Beyond-the-window",
	"irenicsunshine/Sentiment-Analysis",
	"irenicsunshine/Multi-Class-Image-Classifier-using-PyTorch-CNNs",
	"irenicsunshine/Odoo",
	"irenicsunshine/DataNexus",
	"irenicsunshine/Image-Colorization-using-Pix2Pix-GAN",
}

func main() {
	// 1. 定义命令行参数
	mode := flag.String("mode", "enhance", "运行模式: enhance (增强页面) 或 detect (只看技能识别结果)")
	htmlPath := flag.String("html", "index.html", "作品集页面路径")
	cacheDir := flag.String("cache", ".cache", "缓存目录")
	version := flag.String("version", "v1", "缓存格式版本串，改了就全量刷新")
	scriptPath := flag.String("script", "js/skill-animations.js", "技能动画脚本输出路径")
	repoList := flag.String("repos", "", "逗号分隔的 owner/name 清单，留空用内置清单")
	delay := flag.Int("delay", 1, "仓库之间的节流间隔（秒）")
	flag.Parse()

	// 2. 加载 .env (不存在就算了，环境变量照常生效)
	if err := godotenv.Load(); err == nil {
		fmt.Println("📦 已加载 .env 配置")
	}

	githubToken := os.Getenv("GITHUB_TOKEN")
	if githubToken == "" {
		log.Println("⚠️ 未配置 GITHUB_TOKEN，将匿名访问 GitHub (限制 60次/小时)")
	}

	repos := defaultRepos
	if *repoList != "" {
		repos = splitList(*repoList)
	}

	// 3. 初始化组件
	fetcher := github.NewFetcher(githubToken)
	repoDetector := detector.NewRepoDetector()
	describer := describe.NewComposer(buildTextBackend())

	// 为整轮增强设置超时时间(10分钟)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// 4. 根据模式分流
	switch *mode {
	case "enhance":
		runEnhance(ctx, fetcher, repoDetector, describer, repos, *htmlPath, *cacheDir, *version, *scriptPath, *delay)
	case "detect":
		runDetect(ctx, fetcher, repoDetector, repos)
	default:
		fmt.Println("❌ 未知模式，请使用 -mode=enhance 或 -mode=detect")
	}
}

// buildTextBackend 挑选生成后端：Gemini 优先，其次 HTTP 推理接口，都没配就返回 nil (纯模板兜底)
func buildTextBackend() port.TextGenerator {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		backend, err := gemini.NewGenerator(context.Background(), key)
		if err != nil {
			log.Printf("⚠️ Gemini 初始化失败: %v，尝试其他后端", err)
		} else {
			fmt.Println("🤖 使用 Gemini 生成项目描述")
			return backend
		}
	}
	if token := os.Getenv("HF_TOKEN"); token != "" {
		fmt.Println("🤖 使用推理接口生成项目描述")
		return huggingface.NewClient(os.Getenv("HF_MODEL_URL"), token)
	}
	log.Println("⚠️ 未配置任何生成后端，项目描述全部走模板兜底")
	return nil
}

// --- 增强模式逻辑 ---
func runEnhance(
	ctx context.Context,
	fetcher port.Fetcher,
	repoDetector port.Detector,
	describer port.Describer,
	repos []string,
	htmlPath, cacheDir, version, scriptPath string,
	delay int,
) {
	doc, err := page.Load(htmlPath)
	if err != nil {
		log.Fatalf("❌ 页面加载失败: %v", err)
	}

	fileCache := cache.NewFileCache(cacheDir, version)

	enhanceService := service.NewEnhanceService(fetcher, repoDetector, describer, fileCache, doc)
	enhanceService.SetRepoDelay(time.Duration(delay) * time.Second)

	if err := enhanceService.ExecuteEnhanceCycle(ctx, repos, htmlPath); err != nil {
		log.Fatalf("❌ 增强周期失败: %v", err)
	}

	// 重新生成浏览器端的技能动画脚本
	if err := animation.WriteScript(scriptPath); err != nil {
		log.Printf("⚠️ 生成技能动画脚本失败: %v", err)
	} else {
		fmt.Printf("✨ 技能动画脚本已写入 %s\n", scriptPath)
	}
}

// --- 识别模式逻辑 ---
// 只抓取并打印每个仓库识别出的技能，不碰页面，方便调关键词表
func runDetect(ctx context.Context, fetcher port.Fetcher, repoDetector port.Detector, repos []string) {
	for _, repoPath := range repos {
		parts := strings.SplitN(repoPath, "/", 2)
		if len(parts) != 2 {
			fmt.Printf("❌ 跳过非法路径 %q\n", repoPath)
			continue
		}

		record, err := fetcher.FetchRepoData(ctx, parts[0], parts[1])
		if err != nil {
			log.Printf("❌ 抓取 %s 失败: %v", repoPath, err)
			continue
		}

		skills := repoDetector.Detect(record).Sorted()
		fmt.Printf("🔍 %s → %s\n", repoPath, strings.Join(skills, ", "))
	}
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
