package relayer

import (
	"context"
	"errors"
	"math/big"
	"testing"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"

	"crossmind/internal/notify"
)

func bridgeLog(txHash common.Hash, amount *big.Int, block uint64) coretypes.Log {
	return coretypes.Log{
		TxHash:      txHash,
		BlockNumber: block,
		Topics: []common.Hash{
			BridgeInitiatedTopic,
			common.HexToHash("0x0000000000000000000000001c7D4B196Cb0C7B01d743Fbc6116a902379C7238"),
			common.HexToHash("0x000000000000000000000000a0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"),
		},
		Data: common.LeftPadBytes(amount.Bytes(), 32),
	}
}

func TestDecodeBridgeEvent(t *testing.T) {
	txHash := common.HexToHash("0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef")
	event, err := DecodeBridgeEvent(bridgeLog(txHash, big.NewInt(100000000), 42))
	if err != nil {
		t.Fatalf("解码失败: %v", err)
	}
	if event.AmountRaw.Int64() != 100000000 {
		t.Fatalf("原始金额错误: %s", event.AmountRaw)
	}
	if event.AmountDecimal != 100.0 {
		t.Fatalf("换算金额错误: %f", event.AmountDecimal)
	}
	if event.Token != "0x1c7d4b196cb0c7b01d743fbc6116a902379c7238" {
		t.Fatalf("代币地址错误: %s", event.Token)
	}
	if event.Recipient != "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48" {
		t.Fatalf("接收人地址错误: %s", event.Recipient)
	}
	if event.BlockNumber != 42 {
		t.Fatalf("区块号错误: %d", event.BlockNumber)
	}
}

func TestDecodeBridgeEventRejectsMalformed(t *testing.T) {
	valid := bridgeLog(common.HexToHash("0x01"), big.NewInt(1), 1)

	twoTopics := valid
	twoTopics.Topics = valid.Topics[:2]
	if _, err := DecodeBridgeEvent(twoTopics); err == nil {
		t.Fatal("两个 topic 的日志应被拒绝")
	}

	shortData := valid
	shortData.Data = []byte{0x01, 0x02}
	if _, err := DecodeBridgeEvent(shortData); err == nil {
		t.Fatal("data 不足 32 字节应被拒绝")
	}
}

func TestStoreIdempotent(t *testing.T) {
	store := NewStore()
	event := &BridgeEvent{TxHash: "0xAbC", AmountRaw: big.NewInt(1), AmountDecimal: 0.000001}

	if !store.RecordInitiated(event) {
		t.Fatal("首次登记应成功")
	}
	if store.RecordInitiated(event) {
		t.Fatal("重复登记应返回 false")
	}
	// 哈希大小写不敏感。
	if store.RecordInitiated(&BridgeEvent{TxHash: "0xabc", AmountRaw: big.NewInt(1)}) {
		t.Fatal("大小写不同的同一哈希应视为重复")
	}

	if status := store.Status("0xABC"); status.Status != StateInitiated {
		t.Fatalf("状态错误: %s", status.Status)
	}
}

func TestStoreCompleteRetrySafe(t *testing.T) {
	store := NewStore()
	store.RecordInitiated(&BridgeEvent{TxHash: "0xaaa", AmountRaw: big.NewInt(5)})

	hash, fresh := store.Complete("0xaaa", "0xcompletion1")
	if !fresh || hash != "0xcompletion1" {
		t.Fatalf("首次完成结果错误: %s %v", hash, fresh)
	}

	hash, fresh = store.Complete("0xaaa", "0xcompletion2")
	if fresh {
		t.Fatal("重复完成不应视为新完成")
	}
	if hash != "0xcompletion1" {
		t.Fatalf("重复完成应返回既有完成哈希: %s", hash)
	}

	if status := store.Status("0xaaa"); status.Status != StateCompleted {
		t.Fatalf("状态错误: %s", status.Status)
	}

	if _, fresh := store.Complete("0xbbb", "0xzzz"); fresh {
		t.Fatal("未登记的哈希不应完成")
	}
}

func TestStoreStatusUnknown(t *testing.T) {
	if status := NewStore().Status("0xdeadbeef"); status.Status != StateUnknown {
		t.Fatalf("未知哈希状态错误: %s", status.Status)
	}
}

func TestSimulatedCompleter(t *testing.T) {
	event := &BridgeEvent{TxHash: "0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef"}
	hash, err := SimulatedCompleter{}.CompleteBridge(context.Background(), event)
	if err != nil {
		t.Fatalf("推导完成哈希失败: %v", err)
	}
	want := "0x123456amoybridge1234567890abcdef1234567890abcdef12345678"
	if hash != want {
		t.Fatalf("完成哈希错误: got %s want %s", hash, want)
	}

	again, err := SimulatedCompleter{}.CompleteBridge(context.Background(), event)
	if err != nil || again != hash {
		t.Fatalf("完成哈希应确定: %s %v", again, err)
	}
}

type fakeReader struct {
	block    uint64
	blockErr error
	logs     []coretypes.Log
	logsErr  error

	lastQuery gethcore.FilterQuery
}

func (f *fakeReader) BlockNumber(ctx context.Context) (uint64, error) {
	return f.block, f.blockErr
}

func (f *fakeReader) FilterLogs(ctx context.Context, query gethcore.FilterQuery) ([]coretypes.Log, error) {
	f.lastQuery = query
	return f.logs, f.logsErr
}

func TestPollOnceCursorInitialization(t *testing.T) {
	reader := &fakeReader{block: 5000}
	poller := NewPoller(reader, NewStore(), SimulatedCompleter{}, nil, Config{})

	result, err := poller.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("轮询失败: %v", err)
	}
	if result.FromBlock != 4900 {
		t.Fatalf("首次轮询应回溯 100 区块: %d", result.FromBlock)
	}
	if cursor, ok := poller.Cursor(); !ok || cursor != 5000 {
		t.Fatalf("批次完成后游标应前移: %d %v", cursor, ok)
	}
}

func TestPollOnceCursorBoundedAtZero(t *testing.T) {
	reader := &fakeReader{block: 40}
	poller := NewPoller(reader, NewStore(), SimulatedCompleter{}, nil, Config{})

	result, err := poller.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("轮询失败: %v", err)
	}
	if result.FromBlock != 0 {
		t.Fatalf("低区块高度时游标应截断为 0: %d", result.FromBlock)
	}
}

func TestPollOnceKeepsCursorOnRPCError(t *testing.T) {
	reader := &fakeReader{block: 5000}
	poller := NewPoller(reader, NewStore(), SimulatedCompleter{}, nil, Config{})

	if _, err := poller.PollOnce(context.Background()); err != nil {
		t.Fatalf("首次轮询失败: %v", err)
	}

	reader.logsErr = errors.New("connection reset")
	reader.block = 6000
	if _, err := poller.PollOnce(context.Background()); err == nil {
		t.Fatal("RPC 失败应返回错误")
	}
	if cursor, _ := poller.Cursor(); cursor != 5000 {
		t.Fatalf("RPC 失败不应前移游标: %d", cursor)
	}
}

func TestPollOnceSettlesBridge(t *testing.T) {
	txHash := common.HexToHash("0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef")
	reader := &fakeReader{
		block: 5000,
		logs:  []coretypes.Log{bridgeLog(txHash, big.NewInt(100000000), 4950)},
	}
	publisher := notify.NewMemoryPublisher(4)
	poller := NewPoller(reader, NewStore(), SimulatedCompleter{}, publisher, Config{})

	result, err := poller.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("轮询失败: %v", err)
	}
	if result.NewBridges != 1 || result.Completed != 1 {
		t.Fatalf("处理结果错误: %+v", result)
	}

	status := poller.Store().Status(txHash.Hex())
	if status.Status != StateCompleted {
		t.Fatalf("桥接应已完成: %s", status.Status)
	}
	if status.Data.AmountDecimal != 100.0 {
		t.Fatalf("金额错误: %f", status.Data.AmountDecimal)
	}

	select {
	case settlement := <-publisher.Settlements():
		if settlement.CompletionTxHash != status.Data.CompletionTxHash {
			t.Fatalf("通知内容错误: %+v", settlement)
		}
	default:
		t.Fatal("未收到结算通知")
	}

	// 重扫同一区间不应产生重复结算。
	result, err = poller.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("重扫失败: %v", err)
	}
	if result.NewBridges != 0 || result.Completed != 0 {
		t.Fatalf("重扫不应重复处理: %+v", result)
	}
}

func TestPollOnceSkipsMalformedLog(t *testing.T) {
	good := bridgeLog(common.HexToHash("0xaa"), big.NewInt(7000000), 4951)
	bad := coretypes.Log{
		TxHash: common.HexToHash("0xbb"),
		Topics: []common.Hash{BridgeInitiatedTopic},
		Data:   []byte{0x01},
	}
	reader := &fakeReader{block: 5000, logs: []coretypes.Log{bad, good}}
	poller := NewPoller(reader, NewStore(), SimulatedCompleter{}, nil, Config{})

	result, err := poller.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("坏日志不应中断轮询: %v", err)
	}
	if result.EventsFound != 2 || result.NewBridges != 1 {
		t.Fatalf("处理结果错误: %+v", result)
	}
}

func TestPollOnceFilterQueryShape(t *testing.T) {
	reader := &fakeReader{block: 5000}
	poller := NewPoller(reader, NewStore(), SimulatedCompleter{}, nil, Config{})

	if _, err := poller.PollOnce(context.Background()); err != nil {
		t.Fatalf("轮询失败: %v", err)
	}

	query := reader.lastQuery
	if len(query.Addresses) != 1 || query.Addresses[0] != DefaultBridgeContract {
		t.Fatalf("合约过滤条件错误: %v", query.Addresses)
	}
	if len(query.Topics) != 1 || query.Topics[0][0] != BridgeInitiatedTopic {
		t.Fatalf("事件主题过滤条件错误: %v", query.Topics)
	}
}
