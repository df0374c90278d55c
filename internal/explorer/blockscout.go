package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "crossmind/internal/errors"
)

const defaultTimeout = 10 * time.Second

// networkAPIs 是各链 Blockscout 风格浏览器的 API 地址。
var networkAPIs = map[string]string{
	// 主网
	"ethereum": "https://eth.blockscout.com/api",
	"polygon":  "https://polygon.blockscout.com/api",
	"base":     "https://base.blockscout.com/api",
	"arbitrum": "https://arbitrum.blockscout.com/api",
	"optimism": "https://optimism.blockscout.com/api",
	// 测试网
	"sepolia":          "https://eth-sepolia.blockscout.com/api",
	"polygon-amoy":     "https://amoy.polygonscan.com/api",
	"arbitrum-sepolia": "https://sepolia.arbiscan.io/api",
	"base-sepolia":     "https://base-sepolia.blockscout.com/api",
	"optimism-sepolia": "https://sepolia-optimism.etherscan.io/api",
}

// requiredConfirmations 是各链确认交易需要的区块数。
var requiredConfirmations = map[string]int{
	"ethereum": 12,
	"polygon":  128,
	"base":     64,
	"arbitrum": 64,
	"optimism": 64,

	"sepolia":          6,
	"polygon-amoy":     6,
	"arbitrum-sepolia": 6,
	"base-sepolia":     6,
	"optimism-sepolia": 6,
}

// Transaction 是一条格式化后的链上交易。
type Transaction struct {
	TxHash      string `json:"tx_hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Status      string `json:"status"`
	BlockNumber int64  `json:"block_number"`
	Timestamp   int64  `json:"timestamp"`
	Value       string `json:"value"`
	GasUsed     string `json:"gas_used"`
	GasPrice    string `json:"gas_price"`
	Network     string `json:"network"`
}

// Balance 是一个地址的原生代币余额。
type Balance struct {
	Address    string  `json:"address"`
	BalanceWei string  `json:"balance_wei"`
	BalanceETH float64 `json:"balance_eth"`
	Network    string  `json:"network"`
}

// BridgeProgress 是跨链桥接交易的追踪结果。
type BridgeProgress struct {
	SourceTx      string `json:"source_tx"`
	SourceStatus  string `json:"source_status"`
	SourceChain   string `json:"source_chain"`
	SourceBlock   int64  `json:"source_block"`
	DestChain     string `json:"dest_chain"`
	DestTx        string `json:"dest_tx,omitempty"`
	DestStatus    string `json:"dest_status"`
	OverallStatus string `json:"overall_status"`
	Progress      int    `json:"progress"`
	ETAMinutes    int    `json:"estimated_time_remaining_minutes"`
}

// Client 通过 Blockscout 浏览器 API 追踪多链交易。
type Client struct {
	apiKey     string
	httpClient *http.Client
	overrides  map[string]string
}

// Option 定义可选的 Client 配置。
type Option func(*Client)

// WithAPIKey 设置浏览器 API Key。
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithNetworkURL 覆盖指定网络的 API 地址，主要用于测试。
func WithNetworkURL(network, apiURL string) Option {
	return func(c *Client) {
		c.overrides[strings.ToLower(network)] = strings.TrimRight(apiURL, "/")
	}
}

// WithTimeout 覆盖 HTTP 超时。
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient 创建浏览器客户端。
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		overrides:  make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Client) apiURL(network string) (string, error) {
	network = strings.ToLower(network)
	if override, ok := c.overrides[network]; ok {
		return override, nil
	}
	apiURL, ok := networkAPIs[network]
	if !ok {
		return "", apperrors.New(apperrors.CodeNotFound,
			fmt.Sprintf("不支持的网络: %s", network))
	}
	return apiURL, nil
}

func (c *Client) get(ctx context.Context, network string, params url.Values, result any) error {
	apiURL, err := c.apiURL(network)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("构建浏览器请求失败: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRPCFailure, err, "请求区块浏览器失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.New(apperrors.CodeRPCFailure,
			fmt.Sprintf("区块浏览器返回错误状态 %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("解析浏览器响应失败: %w", err)
	}
	return nil
}

type rawTransaction struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Status      string `json:"status"`
	IsError     string `json:"isError"`
	BlockNumber string `json:"blockNumber"`
	TimeStamp   string `json:"timeStamp"`
	Value       string `json:"value"`
	Gas         string `json:"gas"`
	GasPrice    string `json:"gasPrice"`
}

func formatTransaction(raw rawTransaction, network string) Transaction {
	status := "pending"
	if raw.Status == "0" {
		status = "failed"
	} else if raw.IsError == "0" && raw.BlockNumber != "" {
		status = "success"
	}

	blockNumber, _ := strconv.ParseInt(raw.BlockNumber, 10, 64)
	timestamp, _ := strconv.ParseInt(raw.TimeStamp, 10, 64)

	value := raw.Value
	if value == "" {
		value = "0"
	}

	return Transaction{
		TxHash:      raw.Hash,
		From:        raw.From,
		To:          raw.To,
		Status:      status,
		BlockNumber: blockNumber,
		Timestamp:   timestamp,
		Value:       value,
		GasUsed:     raw.Gas,
		GasPrice:    raw.GasPrice,
		Network:     network,
	}
}

// Transaction 查询一条交易的详情。
func (c *Client) Transaction(ctx context.Context, txHash, network string) (*Transaction, error) {
	var decoded struct {
		Result *rawTransaction `json:"result"`
	}
	params := url.Values{
		"module": {"transaction"},
		"action": {"gettxinfo"},
		"txhash": {txHash},
	}
	if err := c.get(ctx, network, params, &decoded); err != nil {
		return nil, err
	}
	if decoded.Result == nil {
		return nil, apperrors.New(apperrors.CodeNotFound,
			fmt.Sprintf("交易 %s 在 %s 上不存在", txHash, network))
	}
	tx := formatTransaction(*decoded.Result, network)
	return &tx, nil
}

// Balance 查询一个地址的原生代币余额。
func (c *Client) Balance(ctx context.Context, address, network string) (*Balance, error) {
	var decoded struct {
		Result string `json:"result"`
	}
	params := url.Values{
		"module":  {"account"},
		"action":  {"balance"},
		"address": {address},
	}
	if err := c.get(ctx, network, params, &decoded); err != nil {
		return nil, err
	}

	wei, ok := new(big.Int).SetString(decoded.Result, 10)
	if !ok {
		return nil, apperrors.New(apperrors.CodeDecode,
			fmt.Sprintf("余额数值不合法: %s", decoded.Result))
	}

	eth, _ := new(big.Float).Quo(
		new(big.Float).SetInt(wei),
		big.NewFloat(1e18),
	).Float64()

	return &Balance{
		Address:    address,
		BalanceWei: wei.String(),
		BalanceETH: eth,
		Network:    network,
	}, nil
}

// History 查询一个地址最近的交易，按时间倒序。
func (c *Client) History(ctx context.Context, address, network string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	var decoded struct {
		Result []rawTransaction `json:"result"`
	}
	params := url.Values{
		"module":  {"account"},
		"action":  {"txlist"},
		"address": {address},
		"offset":  {strconv.Itoa(limit)},
		"sort":    {"desc"},
	}
	if err := c.get(ctx, network, params, &decoded); err != nil {
		return nil, err
	}

	if len(decoded.Result) > limit {
		decoded.Result = decoded.Result[:limit]
	}
	transactions := make([]Transaction, 0, len(decoded.Result))
	for _, raw := range decoded.Result {
		transactions = append(transactions, formatTransaction(raw, network))
	}
	return transactions, nil
}

// TrackBridge 追踪一笔桥接交易的整体进度。
// 目的链交易定位尚未实现，进度只反映源链状态。
func (c *Client) TrackBridge(ctx context.Context, txHash, fromChain, toChain string) (*BridgeProgress, error) {
	sourceTx, err := c.Transaction(ctx, txHash, fromChain)
	if err != nil {
		return nil, err
	}

	progress := &BridgeProgress{
		SourceTx:      txHash,
		SourceStatus:  sourceTx.Status,
		SourceChain:   fromChain,
		SourceBlock:   sourceTx.BlockNumber,
		DestChain:     toChain,
		DestStatus:    "pending",
		OverallStatus: "pending",
		Progress:      10,
	}

	switch sourceTx.Status {
	case "failed":
		progress.OverallStatus = "failed"
		progress.Progress = 0
	case "success":
		progress.OverallStatus = "bridging"
		progress.Progress = 50
		progress.ETAMinutes = 3
	}
	return progress, nil
}

// RequiredConfirmations 返回指定网络的确认区块数要求。
func RequiredConfirmations(network string) int {
	if confirmations, ok := requiredConfirmations[strings.ToLower(network)]; ok {
		return confirmations
	}
	return 12
}
