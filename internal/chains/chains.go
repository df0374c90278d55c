package chains

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment 区分主网与测试网环境。
type Environment string

const (
	EnvMainnet Environment = "mainnet"
	EnvTestnet Environment = "testnet"
)

// Config 描述单条链的接入信息。
type Config struct {
	Name        string `yaml:"name"`
	ChainID     int64  `yaml:"chain_id"`
	RPCURL      string `yaml:"rpc_url"`
	RPCEnv      string `yaml:"rpc_env,omitempty"`
	ExplorerURL string `yaml:"explorer_url"`
}

// Definitions 对应 configs/chains.yaml 的文件结构。
type Definitions struct {
	Mainnet map[string]Config `yaml:"mainnet"`
	Testnet map[string]Config `yaml:"testnet"`
}

// Registry 管理主网与测试网的链配置。
type Registry struct {
	env     Environment
	mainnet map[string]Config
	testnet map[string]Config
}

// testnetAliases 将主网链名映射到对应的测试网链名。
var testnetAliases = map[string]string{
	"ethereum": "sepolia",
	"polygon":  "polygon-amoy",
	"arbitrum": "arbitrum-sepolia",
	"base":     "base-sepolia",
	"optimism": "optimism-sepolia",
}

// defaultDefinitions 内置了可直接使用的公共端点，YAML 文件可以覆盖。
func defaultDefinitions() Definitions {
	return Definitions{
		Mainnet: map[string]Config{
			"ethereum": {Name: "Ethereum", ChainID: 1, RPCURL: "https://eth.llamarpc.com", ExplorerURL: "https://etherscan.io"},
			"polygon":  {Name: "Polygon", ChainID: 137, RPCURL: "https://polygon.llamarpc.com", ExplorerURL: "https://polygonscan.com"},
			"arbitrum": {Name: "Arbitrum One", ChainID: 42161, RPCURL: "https://arb1.arbitrum.io/rpc", ExplorerURL: "https://arbiscan.io"},
			"base":     {Name: "Base", ChainID: 8453, RPCURL: "https://base.llamarpc.com", ExplorerURL: "https://basescan.org"},
			"optimism": {Name: "Optimism", ChainID: 10, RPCURL: "https://mainnet.optimism.io", ExplorerURL: "https://optimistic.etherscan.io"},
		},
		Testnet: map[string]Config{
			"sepolia":          {Name: "Sepolia", ChainID: 11155111, RPCURL: "https://eth-sepolia.g.alchemy.com/v2/demo", RPCEnv: "SEPOLIA_RPC_URL", ExplorerURL: "https://sepolia.etherscan.io"},
			"polygon-amoy":     {Name: "Polygon Amoy", ChainID: 80002, RPCURL: "https://rpc-amoy.polygon.technology/", RPCEnv: "POLYGON_AMOY_RPC_URL", ExplorerURL: "https://amoy.polygonscan.com"},
			"arbitrum-sepolia": {Name: "Arbitrum Sepolia", ChainID: 421614, RPCURL: "https://sepolia-rpc.arbitrum.io/rpc", RPCEnv: "ARBITRUM_SEPOLIA_RPC_URL", ExplorerURL: "https://sepolia-explorer.arbitrum.io"},
			"base-sepolia":     {Name: "Base Sepolia", ChainID: 84532, RPCURL: "https://sepolia.base.org", RPCEnv: "BASE_SEPOLIA_RPC_URL", ExplorerURL: "https://sepolia.basescan.org"},
			"optimism-sepolia": {Name: "Optimism Sepolia", ChainID: 11155420, RPCURL: "https://sepolia.optimism.io", RPCEnv: "OPTIMISM_SEPOLIA_RPC_URL", ExplorerURL: "https://sepolia-optimism.etherscan.io"},
		},
	}
}

// NewRegistry 构建链配置注册表。path 为空时仅使用内置默认值。
func NewRegistry(env Environment, path string) (*Registry, error) {
	if env != EnvMainnet && env != EnvTestnet {
		env = EnvTestnet
	}

	defs := defaultDefinitions()
	if strings.TrimSpace(path) != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取链配置失败: %w", err)
		}
		var overrides Definitions
		if err := yaml.Unmarshal(content, &overrides); err != nil {
			return nil, fmt.Errorf("解析链配置失败: %w", err)
		}
		for key, cfg := range overrides.Mainnet {
			defs.Mainnet[strings.ToLower(key)] = cfg
		}
		for key, cfg := range overrides.Testnet {
			defs.Testnet[strings.ToLower(key)] = cfg
		}
	}

	applyEnvOverrides(defs.Mainnet)
	applyEnvOverrides(defs.Testnet)

	return &Registry{env: env, mainnet: defs.Mainnet, testnet: defs.Testnet}, nil
}

func applyEnvOverrides(set map[string]Config) {
	for key, cfg := range set {
		if cfg.RPCEnv == "" {
			continue
		}
		if value := strings.TrimSpace(os.Getenv(cfg.RPCEnv)); value != "" {
			cfg.RPCURL = value
			set[key] = cfg
		}
	}
}

// Environment 返回当前激活的环境。
func (r *Registry) Environment() Environment {
	if r == nil {
		return EnvTestnet
	}
	return r.env
}

// Chain 按名称返回当前环境下的链配置。
func (r *Registry) Chain(name string) (Config, bool) {
	if r == nil {
		return Config{}, false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if r.env == EnvMainnet {
		cfg, ok := r.mainnet[name]
		return cfg, ok
	}
	cfg, ok := r.testnet[name]
	return cfg, ok
}

// Names 返回当前环境下已注册的链名称集合。
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	set := r.testnet
	if r.env == EnvMainnet {
		set = r.mainnet
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	return names
}

// ToTestnet 将主网链名翻译为对应的测试网链名。未知名称原样返回。
func ToTestnet(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := testnetAliases[name]; ok {
		return alias
	}
	return name
}

// IsSupported 判断链名（别名转换后）是否属于受支持的测试网集合。
func IsSupported(name string) bool {
	name = ToTestnet(name)
	defs := defaultDefinitions()
	if _, ok := defs.Testnet[name]; ok {
		return true
	}
	_, ok := defs.Mainnet[name]
	return ok
}
