package web3

import (
	"context"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainSnapshot represents summarized network metadata for UI/reporting.
type ChainSnapshot struct {
	Name        string
	ChainID     string
	BlockNumber string
}

// ChainReader defines the read-only interface the settlement relayer needs
// from a chain endpoint, so polling logic stays independent of the RPC
// implementation and can be tested against fakes.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, query gethcore.FilterQuery) ([]types.Log, error)
}

// Client extends ChainReader with lifecycle and reporting methods that any
// chain implementation must provide.
type Client interface {
	ChainReader
	FetchChainSnapshot(ctx context.Context) (ChainSnapshot, error)
	Close()
}
