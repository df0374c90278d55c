package notify

import (
	"context"
	"errors"
	"sync"
)

// MemoryPublisher 将通知写入内存缓冲区，主要用于测试和单机部署。
type MemoryPublisher struct {
	ch     chan Settlement
	mu     sync.Mutex
	closed bool
}

var _ Publisher = (*MemoryPublisher)(nil)

// NewMemoryPublisher 创建一个内存通知发布器。
func NewMemoryPublisher(size int) *MemoryPublisher {
	if size <= 0 {
		size = 64
	}
	return &MemoryPublisher{ch: make(chan Settlement, size)}
}

// PublishSettlement 将通知写入缓冲区。缓冲区满时丢弃最旧的一条。
func (p *MemoryPublisher) PublishSettlement(ctx context.Context, settlement Settlement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("通知队列已关闭")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.ch <- settlement:
		return nil
	default:
	}

	select {
	case <-p.ch:
	default:
	}
	p.ch <- settlement
	return nil
}

// Settlements 返回接收通知的只读通道。
func (p *MemoryPublisher) Settlements() <-chan Settlement {
	return p.ch
}

// Close 关闭内存发布器。
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		close(p.ch)
		p.closed = true
	}
	p.mu.Unlock()
	return nil
}
