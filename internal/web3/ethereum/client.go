package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"crossmind/internal/web3"

	gethcore "github.com/ethereum/go-ethereum"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// Config describes how to construct an EVM compatible client.
type Config struct {
	Name   string
	RPCURL string
}

// Client implements the web3.Client interface for EVM compatible chains.
type Client struct {
	name      string
	rpcClient *gethrpc.Client
	eth       *ethclient.Client
	chainID   *big.Int
	mu        sync.Mutex
}

var _ web3.Client = (*Client)(nil)

// NewClient dials the configured RPC endpoint and returns a ready-to-use client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("未配置以太坊 RPC 地址")
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接以太坊节点失败: %w", err)
	}

	return &Client{
		name:      cfg.Name,
		rpcClient: rpcClient,
		eth:       ethclient.NewClient(rpcClient),
	}, nil
}

// Close releases network connections held by the client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.eth != nil {
		c.eth.Close()
		c.eth = nil
	}
	c.rpcClient = nil
}

// BlockNumber returns the latest block height of the connected chain.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	eth := c.client()
	if eth == nil {
		return 0, errors.New("以太坊客户端已关闭")
	}
	number, err := eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("查询最新区块失败: %w", err)
	}
	return number, nil
}

// FilterLogs queries historical logs in the given block range.
func (c *Client) FilterLogs(ctx context.Context, query gethcore.FilterQuery) ([]coretypes.Log, error) {
	eth := c.client()
	if eth == nil {
		return nil, errors.New("以太坊客户端已关闭")
	}
	logs, err := eth.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询链上日志失败: %w", err)
	}
	return logs, nil
}

// FetchChainSnapshot collects chain ID and latest block height for reporting.
func (c *Client) FetchChainSnapshot(ctx context.Context) (web3.ChainSnapshot, error) {
	eth := c.client()
	if eth == nil {
		return web3.ChainSnapshot{}, errors.New("以太坊客户端已关闭")
	}

	chainID, err := c.resolveChainID(ctx, eth)
	if err != nil {
		return web3.ChainSnapshot{}, err
	}

	number, err := eth.BlockNumber(ctx)
	if err != nil {
		return web3.ChainSnapshot{}, fmt.Errorf("查询最新区块失败: %w", err)
	}

	return web3.ChainSnapshot{
		Name:        c.name,
		ChainID:     chainID.String(),
		BlockNumber: fmt.Sprintf("%d", number),
	}, nil
}

func (c *Client) client() *ethclient.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eth
}

func (c *Client) resolveChainID(ctx context.Context, eth *ethclient.Client) (*big.Int, error) {
	c.mu.Lock()
	cached := c.chainID
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询链 ID 失败: %w", err)
	}

	c.mu.Lock()
	c.chainID = chainID
	c.mu.Unlock()
	return chainID, nil
}
