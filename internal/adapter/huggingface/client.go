package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"portfolio-enhancer/internal/common"
)

// DefaultEndpoint 默认的推理接口地址
const DefaultEndpoint = "https://api-inference.huggingface.co/models/microsoft/BioGPT-Large"

const maxNewTokens = 120

// Client 实现了 port.TextGenerator 接口
// 协议：POST {"inputs": ..., "parameters": {"max_new_tokens": ...}}
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewClient 创建推理接口客户端
// endpoint 为空时使用默认模型地址；token 为空时匿名调用 (大概率被拒，届时走兜底)
func NewClient(endpoint, token string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if token == "" {
		log.Println("⚠️ 警告: 生成接口 token 为空，AI 描述大概率不可用，将依赖模板兜底")
	}
	return &Client{
		endpoint:   endpoint,
		token:      token,
		httpClient: &http.Client{},
	}
}

type generateRequest struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
}

type parameters struct {
	MaxNewTokens int `json:"max_new_tokens"`
}

// generateResult 接口返回的单个结果对象
// 两个字段名都可能出现，generated_text 优先
type generateResult struct {
	GeneratedText string `json:"generated_text"`
	SummaryText   string `json:"summary_text"`
}

// Generate 提交 prompt 并取回生成文本 (带重试机制)
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Inputs:     prompt,
		Parameters: parameters{MaxNewTokens: maxNewTokens},
	})
	if err != nil {
		return "", common.WrapError(common.ErrCodeAIProcessing, "构造请求体失败", err)
	}

	var raw []byte
	err = common.Do(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if reqErr != nil {
			return common.Permanent(reqErr)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, postErr := c.httpClient.Do(req)
		if postErr != nil {
			return postErr
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("生成接口报错: 状态码 %d", resp.StatusCode)
		}

		raw, postErr = io.ReadAll(resp.Body)
		return postErr
	},
		common.WithMaxAttempts(3),
		common.WithBackoff(common.LinearBackoff(500*time.Millisecond)),
	)
	if err != nil {
		return "", common.WrapError(common.ErrCodeAIProcessing, "调用生成接口失败", err)
	}

	return parseReply(raw)
}

// parseReply 解析返回体：可能是结果数组，也可能是单个对象
func parseReply(raw []byte) (string, error) {
	var list []generateResult
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return "", common.NewError(common.ErrCodeAIProcessing, "生成接口返回空数组")
		}
		return pickText(list[0])
	}

	var single generateResult
	if err := json.Unmarshal(raw, &single); err == nil {
		return pickText(single)
	}

	return "", common.NewError(common.ErrCodeAIProcessing, "无法解析生成接口返回: "+string(raw))
}

// pickText 取出结果文本，generated_text 优先于 summary_text
func pickText(r generateResult) (string, error) {
	text := strings.TrimSpace(r.GeneratedText)
	if text == "" {
		text = strings.TrimSpace(r.SummaryText)
	}
	if text == "" {
		return "", common.NewError(common.ErrCodeAIProcessing, "生成接口返回内容为空")
	}
	return text, nil
}
