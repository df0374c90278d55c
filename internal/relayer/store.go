package relayer

import (
	"math/big"
	"strings"
	"sync"
	"time"
)

// State 标识一笔桥接交易在状态机中的位置。
type State string

const (
	StateUnknown   State = "unknown"
	StateInitiated State = "initiated"
	StateCompleted State = "completed"
)

// Record 保存一笔桥接交易的全部已知信息。
type Record struct {
	Token            string   `json:"token,omitempty"`
	Recipient        string   `json:"recipient,omitempty"`
	AmountRaw        *big.Int `json:"amount_raw,omitempty"`
	AmountDecimal    float64  `json:"amount_decimal,omitempty"`
	BlockNumber      uint64   `json:"block_number,omitempty"`
	InitiatedAt      int64    `json:"initiated_at,omitempty"`
	CompletionTxHash string   `json:"completion_tx_hash,omitempty"`
	CompletedAt      int64    `json:"completed_at,omitempty"`
}

// BridgeStatus 是按哈希查询的对外结果。
type BridgeStatus struct {
	Status State  `json:"status"`
	Data   Record `json:"data"`
}

// Store 是进程内的桥接状态存储，按源交易哈希去重。
// 日志批次可能被重复扫描，所有写入操作都必须幂等。
type Store struct {
	mu        sync.Mutex
	initiated map[string]Record
	completed map[string]Record
}

// NewStore 创建空的桥接状态存储。
func NewStore() *Store {
	return &Store{
		initiated: make(map[string]Record),
		completed: make(map[string]Record),
	}
}

// RecordInitiated 登记一条桥接发起事件。
// 重复登记同一哈希返回 false，且不覆盖已有记录。
func (s *Store) RecordInitiated(event *BridgeEvent) bool {
	hash := normalizeHash(event.TxHash)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.initiated[hash]; ok {
		return false
	}
	if _, ok := s.completed[hash]; ok {
		return false
	}

	s.initiated[hash] = Record{
		Token:         event.Token,
		Recipient:     event.Recipient,
		AmountRaw:     event.AmountRaw,
		AmountDecimal: event.AmountDecimal,
		BlockNumber:   event.BlockNumber,
		InitiatedAt:   time.Now().Unix(),
	}
	return true
}

// Complete 将一笔已发起的桥接标记为完成。
// 已完成的哈希重复调用直接返回既有完成哈希，保证重试安全。
func (s *Store) Complete(srcTxHash, completionTxHash string) (string, bool) {
	hash := normalizeHash(srcTxHash)

	s.mu.Lock()
	defer s.mu.Unlock()

	if done, ok := s.completed[hash]; ok {
		return done.CompletionTxHash, false
	}

	record, ok := s.initiated[hash]
	if !ok {
		return "", false
	}

	record.CompletionTxHash = completionTxHash
	record.CompletedAt = time.Now().Unix()
	s.completed[hash] = record
	return completionTxHash, true
}

// Status 返回指定源交易哈希的桥接状态。
func (s *Store) Status(srcTxHash string) BridgeStatus {
	hash := normalizeHash(srcTxHash)

	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.completed[hash]; ok {
		return BridgeStatus{Status: StateCompleted, Data: record}
	}
	if record, ok := s.initiated[hash]; ok {
		return BridgeStatus{Status: StateInitiated, Data: record}
	}
	return BridgeStatus{Status: StateUnknown}
}

// Counts 返回已发起与已完成的桥接数量，用于统计上报。
func (s *Store) Counts() (initiated, completed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.initiated), len(s.completed)
}

// Pending 返回已发起但尚未完成的源交易哈希列表。
func (s *Store) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []string
	for hash := range s.initiated {
		if _, done := s.completed[hash]; !done {
			pending = append(pending, hash)
		}
	}
	return pending
}

func normalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}
