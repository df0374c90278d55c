package relayer

import (
	"context"
	"fmt"

	apperrors "crossmind/internal/errors"
)

// Completer 在目的链上完成一笔桥接，返回完成交易哈希。
type Completer interface {
	CompleteBridge(ctx context.Context, event *BridgeEvent) (string, error)
}

// SimulatedCompleter 不提交真实交易，而是从源哈希推导一个
// 确定性的完成哈希。真实的目的链结算（提交并确认交易）
// 尚未实现，这里只覆盖演示链路。
type SimulatedCompleter struct{}

var _ Completer = (*SimulatedCompleter)(nil)

// CompleteBridge 推导确定性的完成交易哈希。
func (SimulatedCompleter) CompleteBridge(_ context.Context, event *BridgeEvent) (string, error) {
	src := normalizeHash(event.TxHash)
	if len(src) < 58 {
		return "", apperrors.New(apperrors.CodeInvalidArgument,
			fmt.Sprintf("源交易哈希长度不足: %d", len(src)))
	}
	return "0x" + src[2:8] + "amoybridge" + src[18:58], nil
}
