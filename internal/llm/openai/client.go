package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"crossmind/internal/llm"
	"crossmind/internal/reasoning"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModelName = "gpt-4-turbo-preview"
	defaultTimeout   = 60 * time.Second
)

// Config 描述了调用 OpenAI Chat Completions API 所需的信息。
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client 通过 HTTP 调用 OpenAI 做意图解析的神经后备。
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

var _ llm.Parser = (*Client)(nil)

// ValidAPIKey 判断 API Key 是否可用。占位符（含 "your"）、
// 长度不足或前缀不符的 Key 一律视为未配置。
func ValidAPIKey(key string) bool {
	key = strings.TrimSpace(key)
	return strings.HasPrefix(key, "sk-") &&
		len(key) > 20 &&
		!strings.Contains(strings.ToLower(key), "your")
}

// NewClient 根据配置创建 OpenAI 客户端。
func NewClient(cfg Config) (*Client, error) {
	if !ValidAPIKey(cfg.APIKey) {
		return nil, errors.New("OpenAI API Key 缺失或为占位符")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModelName
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// ParseIntent 调用 OpenAI 从自然语言中解析交易意图。
func (c *Client) ParseIntent(ctx context.Context, message string) (*reasoning.Intent, error) {
	payload, err := c.buildPayload(message)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("构建 OpenAI 请求失败: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("请求 OpenAI 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("OpenAI 返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("解析 OpenAI 响应失败: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, errors.New("OpenAI 响应中没有有效的 choices")
	}

	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return nil, errors.New("OpenAI 响应内容为空")
	}

	return decodeIntent(content, message)
}

// jsonObjectPattern 用于从模型的自由文本回复中截取 JSON 对象。
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

func decodeIntent(content, message string) (*reasoning.Intent, error) {
	var structured struct {
		Action     string   `json:"action"`
		FromChain  string   `json:"from_chain"`
		ToChain    string   `json:"to_chain"`
		FromToken  string   `json:"from_token"`
		ToToken    string   `json:"to_token"`
		Amount     *float64 `json:"amount"`
		Confidence float64  `json:"confidence"`
	}

	if err := json.Unmarshal([]byte(content), &structured); err != nil {
		// 模型偶尔会在 JSON 外包裹解释性文字，截取花括号部分重试。
		extracted := jsonObjectPattern.FindString(content)
		if extracted == "" {
			return nil, fmt.Errorf("OpenAI 回复不是合法的 JSON: %s", truncate(content))
		}
		if err := json.Unmarshal([]byte(extracted), &structured); err != nil {
			return nil, fmt.Errorf("解析 OpenAI 意图 JSON 失败: %w", err)
		}
	}

	return &reasoning.Intent{
		Status:     reasoning.StatusSuccess,
		Action:     reasoning.Action(strings.ToLower(strings.TrimSpace(structured.Action))),
		FromChain:  structured.FromChain,
		ToChain:    structured.ToChain,
		FromToken:  structured.FromToken,
		ToToken:    structured.ToToken,
		Amount:     structured.Amount,
		Confidence: structured.Confidence,
		Engine:     reasoning.EngineNeural,
		RawMessage: message,
		CreatedAt:  time.Now().Unix(),
	}, nil
}

func (c *Client) buildPayload(message string) ([]byte, error) {
	type chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	body := map[string]any{
		"model": c.model,
		"messages": []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: message},
		},
		"temperature": 0.7,
		"max_tokens":  500,
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("序列化 OpenAI 请求失败: %w", err)
	}
	return encoded, nil
}

func truncate(s string) string {
	if len(s) > 160 {
		return s[:160] + "..."
	}
	return s
}

const systemPrompt = `You are an expert cryptocurrency trading assistant.
Your job is to parse user messages about cross-chain trading and extract the intent.

Analyze the user message and extract:
- action: "bridge" (transfer same token to different chain), "swap" (exchange tokens on same chain), or "bridge_and_swap" (bridge + swap)
- from_chain: source blockchain (ethereum, polygon, arbitrum, base, optimism)
- from_token: source token (ETH, USDC, USDT, WETH)
- to_chain: destination blockchain (only required for bridge/bridge_and_swap)
- to_token: destination token (only required for swap/bridge_and_swap)
- amount: numeric amount to trade

Supported chains: ethereum, polygon, arbitrum, base, optimism
Supported tokens: ETH, USDC, USDT, WETH

Examples:
- "send 100 USDC from ethereum to polygon" → bridge
- "swap 50 USDC for USDT on polygon" → swap
- "bridge 100 USDC from eth to polygon and convert to USDT" → bridge_and_swap
- "move 0.1 ETH to base" → bridge

Return a JSON object with the extracted fields. If a field is missing, set it to null.
Always include confidence (0-1) indicating how confident you are in the parsing.`
