package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"portfolio-enhancer/internal/adapter/describe"
	"portfolio-enhancer/internal/adapter/detector"
	"portfolio-enhancer/internal/adapter/github"
)

func main() {
	// 获取环境变量
	githubToken := os.Getenv("GITHUB_TOKEN")

	repoPath := "irenicsunshine/Sentiment-Analysis"
	if len(os.Args) > 1 {
		repoPath = os.Args[1]
	}
	parts := strings.SplitN(repoPath, "/", 2)
	if len(parts) != 2 {
		log.Fatalf("❌ 请用 owner/name 格式，例如: debug irenicsunshine/DataNexus")
	}

	ctx := context.Background()

	// 初始化组件
	fetcher := github.NewFetcher(githubToken)
	repoDetector := detector.NewRepoDetector()

	fmt.Printf("🔍 调试模式：抓取并分析 %s\n", repoPath)

	// 1. 抓取元数据快照
	record, err := fetcher.FetchRepoData(ctx, parts[0], parts[1])
	if err != nil {
		log.Fatalf("❌ 抓取失败: %v", err)
	}

	fmt.Printf("  名称: %s\n", record.Name)
	fmt.Printf("  描述: %s\n", record.Description)
	fmt.Printf("  主语言: %s | ⭐ %d | 🍴 %d | 更新于 %s\n", record.Language, record.Stars, record.Forks, record.Updated)
	fmt.Printf("  语言分布: %v\n", record.Languages)
	fmt.Printf("  Topics: %v\n", record.Topics)
	fmt.Printf("  根目录: %v\n", record.Contents)
	fmt.Printf("  README 长度: %d 字符\n", len(record.Readme))

	// 2. 技能识别
	skills := repoDetector.Detect(record).Sorted()
	fmt.Printf("  识别技能: %s\n", strings.Join(skills, ", "))

	// 3. 模板兜底描述 (不调 AI，调试时省 token)
	fmt.Println("  模板描述:")
	fmt.Printf("    %s\n", describe.Fallback(record, skills))
}
