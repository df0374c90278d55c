package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crossmind.json")
	content := `{"server":{"address":":9090"},"chains":{"config_path":"chains.yaml"}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Server.Address != ":9090" {
		t.Fatalf("期望监听地址 :9090，实际为 %s", cfg.Server.Address)
	}
	if cfg.Chains.Environment != "testnet" {
		t.Fatalf("期望默认环境 testnet，实际为 %s", cfg.Chains.Environment)
	}
	if cfg.Relayer.SourceChain != "sepolia" || cfg.Relayer.DestChain != "polygon-amoy" {
		t.Fatalf("中继链默认值不正确: %s -> %s", cfg.Relayer.SourceChain, cfg.Relayer.DestChain)
	}
	if cfg.Relayer.LookbackBlocks != 100 {
		t.Fatalf("期望默认回看 100 个区块，实际为 %d", cfg.Relayer.LookbackBlocks)
	}
	if cfg.Notify.Driver != "memory" {
		t.Fatalf("期望默认通知驱动 memory，实际为 %s", cfg.Notify.Driver)
	}
	if want := filepath.Join(dir, "chains.yaml"); cfg.Chains.ConfigPath != want {
		t.Fatalf("期望链配置路径 %s，实际为 %s", want, cfg.Chains.ConfigPath)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("期望读取不存在的文件时报错")
	}
}

func TestDefaultUsableWithoutFile(t *testing.T) {
	cfg := Default()
	if cfg.Server.Address == "" {
		t.Fatal("默认配置必须包含监听地址")
	}
	if cfg.Relayer.BridgeContract == "" {
		t.Fatal("默认配置必须包含桥合约地址")
	}
	if cfg.Relayer.RPCTimeout() <= 0 {
		t.Fatal("默认 RPC 超时必须为正值")
	}
}
