package gemini

import (
	"context"
	"strings"

	"portfolio-enhancer/internal/common"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Generator 实现了 port.TextGenerator 接口
// 备选生成后端：配置了 GEMINI_API_KEY 时替代 HTTP 推理接口
type Generator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGenerator 初始化 Gemini 客户端
func NewGenerator(ctx context.Context, apiKey string) (*Generator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel("gemini-2.5-flash-lite")

	return &Generator{
		client: client,
		model:  model,
	}, nil
}

// Generate 提交 prompt 并取回生成的描述文本
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", common.WrapError(common.ErrCodeAIProcessing, "AI 调用失败", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", common.NewError(common.ErrCodeAIProcessing, "AI 返回内容为空")
	}

	part := resp.Candidates[0].Content.Parts[0]
	text, ok := part.(genai.Text)
	if !ok {
		return "", common.NewError(common.ErrCodeAIProcessing, "AI 返回格式错误")
	}

	return cleanReply(string(text)), nil
}

// cleanReply 去掉 AI 偶尔包在正文外面的 Markdown 代码块标记
func cleanReply(raw string) string {
	out := strings.TrimSpace(raw)
	out = strings.TrimPrefix(out, "```text")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}
