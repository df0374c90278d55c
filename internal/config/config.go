package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Config 描述了 CrossMind 在启动阶段需要加载的核心配置。
type Config struct {
	Server    ServerConfig    `json:"server"`
	Logging   LoggingConfig   `json:"logging"`
	Chains    ChainsConfig    `json:"chains"`
	LLM       LLMConfig       `json:"llm"`
	Relayer   RelayerConfig   `json:"relayer"`
	Market    MarketConfig    `json:"market"`
	Notify    NotifyConfig    `json:"notify"`
	Explorer  ExplorerConfig  `json:"explorer"`
	Reasoning ReasoningConfig `json:"reasoning"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address        string `json:"address"`
	MetricsAddress string `json:"metrics_address"`
}

// LoggingConfig 控制日志输出方式。
type LoggingConfig struct {
	Level       string   `json:"level"`
	Format      string   `json:"format"`
	OutputPaths []string `json:"output_paths"`
	AuditPath   string   `json:"audit_path"`
}

// ChainsConfig 指定链注册表的环境与可选的 YAML 覆盖文件。
type ChainsConfig struct {
	Environment string `json:"environment"`
	ConfigPath  string `json:"config_path"`
}

// LLMConfig 用于配置神经解析回退的调用方式。
type LLMConfig struct {
	APIKey         string `json:"api_key"`
	APIKeyEnv      string `json:"api_key_env"`
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Timeout 返回神经回退调用的超时时间。
func (c LLMConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RelayerConfig 描述桥接中继器监听的链与合约。
type RelayerConfig struct {
	SourceChain       string `json:"source_chain"`
	DestChain         string `json:"dest_chain"`
	BridgeContract    string `json:"bridge_contract"`
	LookbackBlocks    uint64 `json:"lookback_blocks"`
	RPCTimeoutSeconds int    `json:"rpc_timeout_seconds"`
}

// RPCTimeout 返回链上 RPC 调用的超时时间。
func (c RelayerConfig) RPCTimeout() time.Duration {
	if c.RPCTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.RPCTimeoutSeconds) * time.Second
}

// MarketConfig 描述价格源与缓存后端。
type MarketConfig struct {
	Network         string      `json:"network"`
	CacheDriver     string      `json:"cache_driver"`
	CacheTTLSeconds int         `json:"cache_ttl_seconds"`
	Redis           RedisConfig `json:"redis"`
}

// NotifyConfig 描述结算通知的投递后端。
type NotifyConfig struct {
	Driver   string         `json:"driver"`
	Queue    string         `json:"queue"`
	Redis    RedisConfig    `json:"redis"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq"`
}

// RedisConfig 统一描述 Redis 连接参数。
type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// RabbitMQConfig 描述 RabbitMQ 连接参数。
type RabbitMQConfig struct {
	URL        string `json:"url"`
	Durable    bool   `json:"durable"`
	AutoDelete bool   `json:"auto_delete"`
}

// ExplorerConfig 描述浏览器 API 的访问参数。
type ExplorerConfig struct {
	EtherscanAPIKey string `json:"etherscan_api_key"`
}

// ReasoningConfig 控制符号推理引擎的运行参数。
type ReasoningConfig struct {
	HistoryLimit int `json:"history_limit"`
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	return &cfg, nil
}

// Default 返回一份无需配置文件即可启动的配置。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(".")
	return cfg
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Chains.Environment == "" {
		c.Chains.Environment = "testnet"
	}
	if c.Chains.ConfigPath != "" && !filepath.IsAbs(c.Chains.ConfigPath) {
		c.Chains.ConfigPath = filepath.Join(baseDir, c.Chains.ConfigPath)
	}

	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}

	if c.Relayer.SourceChain == "" {
		c.Relayer.SourceChain = "sepolia"
	}
	if c.Relayer.DestChain == "" {
		c.Relayer.DestChain = "polygon-amoy"
	}
	if c.Relayer.BridgeContract == "" {
		c.Relayer.BridgeContract = "0x054fd961708D8E2B9c10a63F6157c74458889F0a"
	}
	if c.Relayer.LookbackBlocks == 0 {
		c.Relayer.LookbackBlocks = 100
	}

	if c.Market.Network == "" {
		c.Market.Network = "testnet"
	}
	if c.Market.CacheDriver == "" {
		c.Market.CacheDriver = "memory"
	}
	if c.Market.CacheTTLSeconds <= 0 {
		c.Market.CacheTTLSeconds = 60
	}

	if c.Notify.Driver == "" {
		c.Notify.Driver = "memory"
	}
	if c.Notify.Queue == "" {
		c.Notify.Queue = "crossmind:settlements"
	}

	if c.Reasoning.HistoryLimit <= 0 {
		c.Reasoning.HistoryLimit = 100
	}
}
