package huggingface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate_ArrayReply(t *testing.T) {
	var gotBody generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		_, _ = w.Write([]byte(`[{"generated_text": "A polished project summary."}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")
	text, err := client.Generate(context.Background(), "my prompt")

	assert.NoError(t, err)
	assert.Equal(t, "A polished project summary.", text)
	assert.Equal(t, "my prompt", gotBody.Inputs)
	assert.Equal(t, maxNewTokens, gotBody.Parameters.MaxNewTokens)
}

func TestGenerate_SingleObjectReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"summary_text": "Summarized."}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")
	text, err := client.Generate(context.Background(), "prompt")

	assert.NoError(t, err)
	assert.Equal(t, "Summarized.", text)
}

func TestGenerate_ServerErrorRetriesThenFails(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")
	_, err := client.Generate(context.Background(), "prompt")

	// 重试 3 次后失败，错误不会panic，由上层退回模板
	assert.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGenerate_AnonymousRequestHasNoAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"generated_text": "ok"}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	text, err := client.Generate(context.Background(), "prompt")

	assert.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectError bool
		expected    string
	}{
		{
			name:     "数组形式，generated_text 优先",
			input:    `[{"generated_text": "primary", "summary_text": "secondary"}]`,
			expected: "primary",
		},
		{
			name:     "generated_text 为空时退到 summary_text",
			input:    `[{"generated_text": "", "summary_text": "secondary"}]`,
			expected: "secondary",
		},
		{
			name:     "单对象形式",
			input:    `{"generated_text": "single"}`,
			expected: "single",
		},
		{
			name:        "空数组",
			input:       `[]`,
			expectError: true,
		},
		{
			name:        "两个字段都是空白",
			input:       `[{"generated_text": "   ", "summary_text": ""}]`,
			expectError: true,
		},
		{
			name:        "不是 JSON",
			input:       `<html>rate limited</html>`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := parseReply([]byte(tt.input))
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, text)
			}
		})
	}
}

func TestNewClient_DefaultEndpoint(t *testing.T) {
	client := NewClient("", "token")
	assert.Equal(t, DefaultEndpoint, client.endpoint)
}
