package market

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "crossmind/internal/errors"
)

const (
	defaultHermesURL = "https://hermes.pyth.network"
	defaultTimeout   = 10 * time.Second
)

// feedIDs 是 Pyth Hermes API 使用的行情源 ID（不带 0x 前缀）。
var feedIDs = map[string]string{
	"BTC/USD":   "e62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43",
	"ETH/USD":   "ff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace",
	"USDC/USD":  "eaa020c61cc479712813461ce153894a96a6c00b21ed0cfc2798d1f9a9e9c94a",
	"USDT/USD":  "2b89b9dc8fdf9f34709a5b106b472f0f39bb6ca9ce04b0d151d927e70ca34de6",
	"SOL/USD":   "ef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d",
	"MATIC/USD": "5de33a9112c5b465546021b6b2d3a4c0ecc7b25c9f32976b745d20ba8fe822ea",
	"ARB/USD":   "3fa4252848f28f69666d5604d2e3cb0d3d713c0ef282074d6f87d6310d92078a",
	"WETH/USD":  "ff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace",
}

// Price 是一条换算后的行情数据。
type Price struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Confidence    float64 `json:"confidence"`
	ConfidencePct float64 `json:"confidence_pct"`
	PublishTime   int64   `json:"timestamp"`
}

// PythClient 通过 Pyth Hermes API 获取实时行情。
type PythClient struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
}

// PythOption 定义可选的 PythClient 配置。
type PythOption func(*PythClient)

// WithHermesURL 覆盖 Hermes API 地址。
func WithHermesURL(baseURL string) PythOption {
	return func(c *PythClient) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithCache 为行情查询附加缓存。
func WithCache(cache Cache) PythOption {
	return func(c *PythClient) {
		c.cache = cache
	}
}

// WithTimeout 覆盖 HTTP 超时。
func WithTimeout(timeout time.Duration) PythOption {
	return func(c *PythClient) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewPythClient 创建 Pyth 行情客户端。
func NewPythClient(opts ...PythOption) *PythClient {
	c := &PythClient{
		baseURL:    defaultHermesURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Symbols 返回已支持的行情对列表。
func Symbols() []string {
	symbols := make([]string, 0, len(feedIDs))
	for symbol := range feedIDs {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// FetchPrice 获取单个行情对的当前价格。命中缓存时不发起网络请求。
func (c *PythClient) FetchPrice(ctx context.Context, symbol string) (*Price, error) {
	symbol = normalizeSymbol(symbol)

	feedID, ok := feedIDs[symbol]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound,
			fmt.Sprintf("不支持的行情对: %s", symbol))
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, symbol); ok {
			return cached, nil
		}
	}

	endpoint := fmt.Sprintf("%s/v2/updates/price/latest?%s", c.baseURL, url.Values{
		"ids[]":  {feedID},
		"parsed": {"true"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("构建 Hermes 请求失败: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeRPCFailure, err, "请求 Pyth Hermes 失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.New(apperrors.CodeRPCFailure,
			fmt.Sprintf("Pyth Hermes 返回错误状态 %d", resp.StatusCode))
	}

	var decoded struct {
		Parsed []struct {
			Price struct {
				Price string `json:"price"`
				Conf  string `json:"conf"`
				Expo  int    `json:"expo"`
			} `json:"price"`
			PublishTime int64 `json:"publish_time"`
		} `json:"parsed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("解析 Hermes 响应失败: %w", err)
	}
	if len(decoded.Parsed) == 0 {
		return nil, apperrors.New(apperrors.CodeNotFound,
			fmt.Sprintf("Hermes 未返回 %s 的行情", symbol))
	}

	raw := decoded.Parsed[0]
	priceRaw, err := strconv.ParseFloat(raw.Price.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("解析价格数值失败: %w", err)
	}
	confRaw, err := strconv.ParseFloat(raw.Price.Conf, 64)
	if err != nil {
		return nil, fmt.Errorf("解析置信区间失败: %w", err)
	}

	multiplier := math.Pow10(raw.Price.Expo)
	price := priceRaw * multiplier
	confidence := confRaw * multiplier

	confidencePct := 0.0
	if price > 0 {
		confidencePct = confidence / price * 100
	}

	result := &Price{
		Symbol:        symbol,
		Price:         price,
		Confidence:    confidence,
		ConfidencePct: confidencePct,
		PublishTime:   raw.PublishTime,
	}

	if c.cache != nil {
		c.cache.Set(ctx, symbol, result)
	}
	return result, nil
}

func normalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !strings.Contains(symbol, "/") {
		symbol += "/USD"
	}
	return symbol
}
