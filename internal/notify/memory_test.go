package notify

import (
	"context"
	"testing"
)

func TestMemoryPublisher(t *testing.T) {
	p := NewMemoryPublisher(2)
	defer p.Close()

	settlement := Settlement{
		SourceTxHash:     "0xabc",
		CompletionTxHash: "0xdef",
		Recipient:        "0x123",
		AmountDecimal:    100.0,
	}
	if err := p.PublishSettlement(context.Background(), settlement); err != nil {
		t.Fatalf("发布失败: %v", err)
	}

	select {
	case got := <-p.Settlements():
		if got.SourceTxHash != "0xabc" || got.AmountDecimal != 100.0 {
			t.Fatalf("通知内容错误: %+v", got)
		}
	default:
		t.Fatal("未收到通知")
	}
}

func TestMemoryPublisherDropsOldestWhenFull(t *testing.T) {
	p := NewMemoryPublisher(1)
	defer p.Close()

	ctx := context.Background()
	if err := p.PublishSettlement(ctx, Settlement{SourceTxHash: "0x1"}); err != nil {
		t.Fatalf("发布失败: %v", err)
	}
	if err := p.PublishSettlement(ctx, Settlement{SourceTxHash: "0x2"}); err != nil {
		t.Fatalf("缓冲区满时发布不应失败: %v", err)
	}

	got := <-p.Settlements()
	if got.SourceTxHash != "0x2" {
		t.Fatalf("应保留最新通知: %s", got.SourceTxHash)
	}
}

func TestMemoryPublisherClosed(t *testing.T) {
	p := NewMemoryPublisher(1)
	_ = p.Close()
	if err := p.PublishSettlement(context.Background(), Settlement{}); err == nil {
		t.Fatal("关闭后发布应返回错误")
	}
}
