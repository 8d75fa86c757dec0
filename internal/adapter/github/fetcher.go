package github

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
	"unicode/utf8"

	"portfolio-enhancer/internal/common"
	"portfolio-enhancer/internal/domain"

	"github.com/google/go-github/v53/github"
	"golang.org/x/oauth2"
)

const (
	maxAttempts = 3
	// 403 按限流处理，退避拉长到 5s × 尝试次数
	rateLimitBackoff = 5 * time.Second
	// 其他非 2xx 用 2s × 尝试次数的小退避
	transportBackoff = 2 * time.Second
	// 子调用之间固定停 300ms，避免触发滥用限流
	paceDelay = 300 * time.Millisecond
	// README 解码后只保留前 1000 字符
	readmeLimit = 1000
)

// Fetcher 实现了 port.Fetcher 接口
// 节流和退避间隔都放在实例上，方便测试归零
type Fetcher struct {
	client        *github.Client
	pace          time.Duration
	rateLimitWait time.Duration
	transportWait time.Duration
}

// NewFetcher 初始化 GitHub 客户端
// token: GitHub Personal Access Token (如果是空字符串，就是匿名访问，限制 60次/小时)
func NewFetcher(token string) *Fetcher {
	var client *github.Client

	if token == "" {
		client = github.NewClient(nil)
	} else {
		ctx := context.Background()
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc := oauth2.NewClient(ctx, ts)
		client = github.NewClient(tc)
	}

	return &Fetcher{
		client:        client,
		pace:          paceDelay,
		rateLimitWait: rateLimitBackoff,
		transportWait: transportBackoff,
	}
}

// FetchRepoData 拉取单个仓库的完整元数据快照
// 核心元数据失败整体报错；语言/README/目录三个子调用各自降级为空值
func (f *Fetcher) FetchRepoData(ctx context.Context, owner, repo string) (*domain.RepoData, error) {
	core, err := f.getRepo(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	record := &domain.RepoData{
		Name:        core.GetName(),
		Description: core.GetDescription(),
		Language:    core.GetLanguage(),
		Stars:       core.GetStargazersCount(),
		Forks:       core.GetForksCount(),
		Topics:      core.Topics,
		Languages:   map[string]int{},
	}
	if !core.GetUpdatedAt().Time.IsZero() {
		record.Updated = core.GetUpdatedAt().Time.Format("2006-01-02")
	}

	f.sleep(ctx)
	if langs, err := f.getLanguages(ctx, owner, repo); err != nil {
		log.Printf("⚠️ 获取 %s/%s 语言分布失败: %v，降级为空", owner, repo, err)
	} else {
		record.Languages = langs
	}

	f.sleep(ctx)
	if readme, err := f.getReadme(ctx, owner, repo); err != nil {
		log.Printf("⚠️ 获取 %s/%s README 失败: %v，降级为空", owner, repo, err)
	} else {
		record.Readme = readme
	}

	f.sleep(ctx)
	if names, err := f.getContents(ctx, owner, repo); err != nil {
		log.Printf("⚠️ 获取 %s/%s 根目录列表失败: %v，降级为空", owner, repo, err)
	} else {
		record.Contents = names
	}

	return record, nil
}

// getRepo 拉取核心元数据 (带重试)
func (f *Fetcher) getRepo(ctx context.Context, owner, repo string) (*github.Repository, error) {
	var core *github.Repository
	err := f.doCall(ctx, func() error {
		var apiErr error
		core, _, apiErr = f.client.Repositories.Get(ctx, owner, repo)
		return apiErr
	})
	if err != nil {
		return nil, classify(fmt.Sprintf("获取仓库 %s/%s 元数据失败", owner, repo), err)
	}
	return core, nil
}

// getLanguages 拉取语言字节数分布
func (f *Fetcher) getLanguages(ctx context.Context, owner, repo string) (map[string]int, error) {
	var langs map[string]int
	err := f.doCall(ctx, func() error {
		var apiErr error
		langs, _, apiErr = f.client.Repositories.ListLanguages(ctx, owner, repo)
		return apiErr
	})
	if err != nil {
		return nil, classify("获取语言分布失败", err)
	}
	return langs, nil
}

// getReadme 拉取 README 并解码截断
// GitHub 返回的是 base64 内容，go-github 的 GetContent 会帮我们解码
func (f *Fetcher) getReadme(ctx context.Context, owner, repo string) (string, error) {
	var content *github.RepositoryContent
	err := f.doCall(ctx, func() error {
		var apiErr error
		content, _, apiErr = f.client.Repositories.GetReadme(ctx, owner, repo, nil)
		return apiErr
	})
	if err != nil {
		return "", classify("获取 README 失败", err)
	}

	text, err := content.GetContent()
	if err != nil {
		return "", common.WrapError(common.ErrCodeGitHubAPI, "README 解码失败", err)
	}
	// 按字符数截断，避免把多字节符号切出乱码
	if utf8.RuneCountInString(text) > readmeLimit {
		text = string([]rune(text)[:readmeLimit])
	}
	return text, nil
}

// getContents 拉取仓库根目录的文件/目录名列表
func (f *Fetcher) getContents(ctx context.Context, owner, repo string) ([]string, error) {
	var entries []*github.RepositoryContent
	err := f.doCall(ctx, func() error {
		var apiErr error
		_, entries, _, apiErr = f.client.Repositories.GetContents(ctx, owner, repo, "", nil)
		return apiErr
	})
	if err != nil {
		return nil, classify("获取根目录列表失败", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if name := e.GetName(); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// doCall 统一的重试包装：404 不重试，403 按限流拉长退避
func (f *Fetcher) doCall(ctx context.Context, call func() error) error {
	return common.Do(ctx, func() error {
		err := call()
		if err == nil {
			return nil
		}
		if isNotFound(err) {
			// 404 重试也不会有结果，直接终止
			return common.Permanent(common.WrapError(common.ErrCodeNotFound, "资源不存在", err))
		}
		if rlErr := rateLimitReset(err); rlErr != "" {
			log.Printf("⚠️ 触发 GitHub 限流，限额重置时间: %s", rlErr)
		}
		return err
	},
		common.WithMaxAttempts(maxAttempts),
		common.WithBackoff(func(attempt int, err error) time.Duration {
			if isRateLimited(err) {
				return f.rateLimitWait * time.Duration(attempt)
			}
			return f.transportWait * time.Duration(attempt)
		}),
	)
}

// sleep 子调用之间的节流停顿，context 取消时提前返回
func (f *Fetcher) sleep(ctx context.Context) {
	if f.pace <= 0 {
		return
	}
	timer := time.NewTimer(f.pace)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// classify 把重试后仍然失败的错误归入统一错误码
func classify(message string, err error) error {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if isRateLimited(err) {
		return common.WrapError(common.ErrCodeRateLimited, message, err)
	}
	return common.WrapError(common.ErrCodeGitHubAPI, message, err)
}

// isNotFound 判断是否为 HTTP 404
func isNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) &&
		ghErr.Response != nil &&
		ghErr.Response.StatusCode == http.StatusNotFound
}

// isRateLimited 判断是否为 HTTP 403 / 限流
func isRateLimited(err error) bool {
	var rlErr *github.RateLimitError
	var abErr *github.AbuseRateLimitError
	if errors.As(err, &rlErr) || errors.As(err, &abErr) {
		return true
	}
	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) &&
		ghErr.Response != nil &&
		ghErr.Response.StatusCode == http.StatusForbidden
}

// rateLimitReset 提取限流重置时间 (仅用于日志)
func rateLimitReset(err error) string {
	var rlErr *github.RateLimitError
	if errors.As(err, &rlErr) && !rlErr.Rate.Reset.Time.IsZero() {
		return rlErr.Rate.Reset.Time.Format(time.RFC3339)
	}
	return ""
}
