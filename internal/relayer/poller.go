package relayer

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"time"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	apperrors "crossmind/internal/errors"
	"crossmind/internal/notify"
	"crossmind/internal/web3"
	"crossmind/pkg/logger"
)

// defaultLookbackBlocks 是首次轮询时向后回溯的区块数。
const defaultLookbackBlocks = 100

// defaultRPCTimeout 是单次链上调用的超时上限。
const defaultRPCTimeout = 10 * time.Second

// PollResult 汇总一次轮询的处理结果。
type PollResult struct {
	CurrentBlock uint64 `json:"current_block"`
	FromBlock    uint64 `json:"from_block"`
	EventsFound  int    `json:"events_found"`
	NewBridges   int    `json:"new_bridges"`
	Completed    int    `json:"completed"`
}

// Config 描述轮询器的运行参数。
type Config struct {
	SourceChain    string
	DestChain      string
	BridgeContract common.Address
	EventTopic     common.Hash
	LookbackBlocks uint64
	RPCTimeout     time.Duration
}

// Poller 扫描源链上的桥接发起事件并驱动结算。
// 区块游标仅在整批日志处理完成后前移，崩溃后重扫同一区间，
// 由状态存储的哈希去重保证幂等。
type Poller struct {
	reader    web3.ChainReader
	store     *Store
	completer Completer
	publisher notify.Publisher
	cfg       Config
	log       *slog.Logger

	// mu 串行化轮询，避免并发调用竞争游标。
	mu        sync.Mutex
	cursor    uint64
	cursorSet bool
}

// NewPoller 构造事件轮询器。publisher 可以为 nil。
func NewPoller(reader web3.ChainReader, store *Store, completer Completer, publisher notify.Publisher, cfg Config) *Poller {
	if cfg.BridgeContract == (common.Address{}) {
		cfg.BridgeContract = DefaultBridgeContract
	}
	if cfg.EventTopic == (common.Hash{}) {
		cfg.EventTopic = BridgeInitiatedTopic
	}
	if cfg.LookbackBlocks == 0 {
		cfg.LookbackBlocks = defaultLookbackBlocks
	}
	if cfg.RPCTimeout <= 0 {
		cfg.RPCTimeout = defaultRPCTimeout
	}
	return &Poller{
		reader:    reader,
		store:     store,
		completer: completer,
		publisher: publisher,
		cfg:       cfg,
		log:       logger.Named("relayer"),
	}
}

// Store 返回底层桥接状态存储。
func (p *Poller) Store() *Store {
	return p.store
}

// Cursor 返回当前游标。首次轮询前 ok 为 false。
func (p *Poller) Cursor() (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor, p.cursorSet
}

// PollOnce 执行一次事件扫描。任何 RPC 失败都保留既有游标，
// 返回可重试错误，下次轮询重扫同一区间。
func (p *Poller) PollOnce(ctx context.Context) (PollResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rpcCtx, cancel := context.WithTimeout(ctx, p.cfg.RPCTimeout)
	current, err := p.reader.BlockNumber(rpcCtx)
	cancel()
	if err != nil {
		return PollResult{CurrentBlock: p.cursor}, apperrors.Wrap(
			apperrors.CodeRPCFailure, err, "查询源链最新区块失败")
	}

	if !p.cursorSet {
		if current > p.cfg.LookbackBlocks {
			p.cursor = current - p.cfg.LookbackBlocks
		} else {
			p.cursor = 0
		}
		p.cursorSet = true
		p.log.Info("初始化区块游标",
			slog.String("chain", p.cfg.SourceChain),
			slog.Uint64("from", p.cursor),
		)
	}

	query := gethcore.FilterQuery{
		FromBlock: new(big.Int).SetUint64(p.cursor),
		ToBlock:   new(big.Int).SetUint64(current),
		Addresses: []common.Address{p.cfg.BridgeContract},
		Topics:    [][]common.Hash{{p.cfg.EventTopic}},
	}

	rpcCtx, cancel = context.WithTimeout(ctx, p.cfg.RPCTimeout)
	logs, err := p.reader.FilterLogs(rpcCtx, query)
	cancel()
	if err != nil {
		return PollResult{CurrentBlock: p.cursor, FromBlock: p.cursor}, apperrors.Wrap(
			apperrors.CodeRPCFailure, err, "查询桥接事件日志失败")
	}

	result := PollResult{
		CurrentBlock: current,
		FromBlock:    p.cursor,
		EventsFound:  len(logs),
	}

	for _, raw := range logs {
		event, decodeErr := DecodeBridgeEvent(raw)
		if decodeErr != nil {
			// 格式不符的日志跳过，不中断整批扫描。
			p.log.Warn("桥接事件解码失败",
				slog.String("tx", raw.TxHash.Hex()),
				slog.Any("error", decodeErr),
			)
			continue
		}

		if p.store.RecordInitiated(event) {
			result.NewBridges++
			p.log.Info("发现新的桥接交易",
				slog.String("tx", event.TxHash),
				slog.Float64("amount", event.AmountDecimal),
				slog.String("recipient", event.Recipient),
			)
		}

		if p.store.Status(event.TxHash).Status == StateCompleted {
			continue
		}
		if p.completeOne(ctx, event) {
			result.Completed++
		}
	}

	// 整批处理完成后才前移游标，保证至少一次的处理语义。
	p.cursor = current
	return result, nil
}

func (p *Poller) completeOne(ctx context.Context, event *BridgeEvent) bool {
	completionHash, err := p.completer.CompleteBridge(ctx, event)
	if err != nil {
		p.log.Error("桥接结算失败",
			slog.String("tx", event.TxHash),
			slog.Any("error", err),
		)
		return false
	}

	recorded, fresh := p.store.Complete(event.TxHash, completionHash)
	if !fresh {
		return false
	}

	p.log.Info("桥接结算完成",
		slog.String("src_tx", event.TxHash),
		slog.String("completion_tx", recorded),
	)

	if p.publisher != nil {
		settlement := notify.Settlement{
			SourceTxHash:     event.TxHash,
			CompletionTxHash: recorded,
			Token:            event.Token,
			Recipient:        event.Recipient,
			AmountDecimal:    event.AmountDecimal,
			CompletedAt:      time.Now().Unix(),
		}
		if err := p.publisher.PublishSettlement(ctx, settlement); err != nil {
			// 通知失败不回滚结算状态。
			p.log.Warn("结算通知发布失败", slog.Any("error", err))
		}
	}
	return true
}
