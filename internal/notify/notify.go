package notify

import (
	"context"
)

// Settlement 是一次跨链结算完成后对外广播的通知。
type Settlement struct {
	SourceTxHash     string  `json:"source_tx_hash"`
	CompletionTxHash string  `json:"completion_tx_hash"`
	Token            string  `json:"token"`
	Recipient        string  `json:"recipient"`
	AmountDecimal    float64 `json:"amount_decimal"`
	CompletedAt      int64   `json:"completed_at"`
}

// Publisher 定义结算通知的统一发布接口。
type Publisher interface {
	PublishSettlement(ctx context.Context, settlement Settlement) error
	Close() error
}
