package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"crossmind/internal/api"
	"crossmind/internal/chains"
	"crossmind/internal/config"
	"crossmind/internal/explorer"
	"crossmind/internal/llm"
	"crossmind/internal/llm/openai"
	"crossmind/internal/market"
	"crossmind/internal/notify"
	"crossmind/internal/observability/alerting"
	"crossmind/internal/parser"
	"crossmind/internal/reasoning"
	"crossmind/internal/relayer"
	"crossmind/internal/web3/ethereum"
	"crossmind/pkg/logger"
)

// main 是 CrossMind 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("crossmindd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("CROSSMIND_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "crossmind.json")
	}

	var cfg *config.Config
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled: cfg.Logging.AuditPath != "",
			Path:    cfg.Logging.AuditPath,
		},
	}); err != nil {
		return err
	}
	mainLog := logger.Named("crossmindd")

	registry, err := chains.NewRegistry(chains.Environment(cfg.Chains.Environment), cfg.Chains.ConfigPath)
	if err != nil {
		return err
	}

	// 符号推理引擎与神经后备共同组成混合解析器。
	reasoner := reasoning.NewReasoner(reasoning.WithHistoryLimit(cfg.Reasoning.HistoryLimit))
	neural := createNeuralParser(cfg)
	hybrid := parser.NewHybrid(reasoner, neural)
	if neural == nil {
		mainLog.Warn("神经后备未启用，置信度不足的解析将返回符号结果")
	}

	sourceChain, ok := registry.Chain(cfg.Relayer.SourceChain)
	if !ok {
		return fmt.Errorf("未知的中继源链: %s", cfg.Relayer.SourceChain)
	}

	reader, err := ethereum.NewClient(ctx, ethereum.Config{
		Name:   cfg.Relayer.SourceChain,
		RPCURL: sourceChain.RPCURL,
	})
	if err != nil {
		return err
	}
	defer reader.Close()

	publisher, err := createPublisher(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			mainLog.Warn("关闭结算通知通道失败", "error", err)
		}
	}()

	poller := relayer.NewPoller(reader, relayer.NewStore(), relayer.SimulatedCompleter{}, publisher, relayer.Config{
		SourceChain:    cfg.Relayer.SourceChain,
		DestChain:      cfg.Relayer.DestChain,
		BridgeContract: common.HexToAddress(cfg.Relayer.BridgeContract),
		EventTopic:     relayer.BridgeInitiatedTopic,
		LookbackBlocks: cfg.Relayer.LookbackBlocks,
		RPCTimeout:     cfg.Relayer.RPCTimeout(),
	})

	cache, err := createMarketCache(cfg)
	if err != nil {
		return err
	}
	prices := market.NewPythClient(market.WithCache(cache))

	alerts := alerting.NewFanout(alerting.LogNotifier{})

	server := api.NewServer(cfg.Server.Address, hybrid, poller,
		api.WithMarket(prices),
		api.WithExplorer(explorer.NewClient(explorer.WithAPIKey(cfg.Explorer.EtherscanAPIKey))),
		api.WithAlerts(alerts),
	)

	mainLog.Info("CrossMind 启动",
		"address", cfg.Server.Address,
		"environment", registry.Environment(),
		"source_chain", cfg.Relayer.SourceChain,
		"dest_chain", cfg.Relayer.DestChain,
		"neural_fallback", hybrid.FallbackAvailable(),
	)

	return server.Start(ctx)
}

// createNeuralParser 在 API Key 合法时构建 OpenAI 后备解析器，否则返回 nil。
func createNeuralParser(cfg *config.Config) llm.Parser {
	key := cfg.LLM.APIKey
	if key == "" && cfg.LLM.APIKeyEnv != "" {
		key = os.Getenv(cfg.LLM.APIKeyEnv)
	}
	if !openai.ValidAPIKey(key) {
		return nil
	}

	client, err := openai.NewClient(openai.Config{
		APIKey:  key,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout(),
	})
	if err != nil {
		logger.Named("crossmindd").Warn("初始化神经后备失败", "error", err)
		return nil
	}
	return client
}

func createPublisher(cfg *config.Config) (notify.Publisher, error) {
	switch cfg.Notify.Driver {
	case "", "memory":
		return notify.NewMemoryPublisher(1024), nil
	case "redis":
		return notify.NewRedisPublisher(notify.RedisConfig{
			Address:  cfg.Notify.Redis.Address,
			Password: cfg.Notify.Redis.Password,
			DB:       cfg.Notify.Redis.DB,
			Queue:    cfg.Notify.Queue,
		})
	case "rabbitmq":
		return notify.NewRabbitMQPublisher(notify.RabbitMQConfig{
			URL:        cfg.Notify.RabbitMQ.URL,
			Queue:      cfg.Notify.Queue,
			Durable:    cfg.Notify.RabbitMQ.Durable,
			AutoDelete: cfg.Notify.RabbitMQ.AutoDelete,
		})
	default:
		return nil, fmt.Errorf("未知的通知驱动: %s", cfg.Notify.Driver)
	}
}

func createMarketCache(cfg *config.Config) (market.Cache, error) {
	ttl := time.Duration(cfg.Market.CacheTTLSeconds) * time.Second
	switch cfg.Market.CacheDriver {
	case "", "memory":
		return market.NewMemoryCache(ttl), nil
	case "redis":
		return market.NewRedisCache(market.RedisCacheConfig{
			Address:  cfg.Market.Redis.Address,
			Password: cfg.Market.Redis.Password,
			DB:       cfg.Market.Redis.DB,
			TTL:      ttl,
		})
	default:
		return nil, fmt.Errorf("未知的行情缓存驱动: %s", cfg.Market.CacheDriver)
	}
}
