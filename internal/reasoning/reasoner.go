package reasoning

import (
	"log/slog"
	"sync"
	"time"

	"crossmind/pkg/logger"
)

// defaultHistoryLimit 是解析历史保留的默认窗口大小。
const defaultHistoryLimit = 100

// balanceCheckConfidence 是余额查询短路路径的固定置信度。
const balanceCheckConfidence = 0.95

// HistoryEntry 记录一次推理的摘要，用于诊断。
type HistoryEntry struct {
	Message    string  `json:"message"`
	Action     Action  `json:"action,omitempty"`
	Confidence float64 `json:"confidence"`
	Timestamp  int64   `json:"timestamp"`
}

// Stats 汇总推理引擎的运行统计。
type Stats struct {
	TotalConcepts int `json:"total_concepts"`
	TotalRules    int `json:"total_rules"`
	HistoryCount  int `json:"history_count"`
	CacheSize     int `json:"cache_size"`
}

// Reasoner 是符号推理引擎：概念抽取 → 实体映射 → 规则推理 → 置信度评分。
// 知识库只读共享；解析历史为有界窗口，由互斥锁保护。
type Reasoner struct {
	kb    *KnowledgeBase
	limit int

	mu      sync.Mutex
	history []HistoryEntry
}

// Option 定义可选的 Reasoner 配置。
type Option func(*Reasoner)

// WithHistoryLimit 设置解析历史窗口大小。
func WithHistoryLimit(limit int) Option {
	return func(r *Reasoner) {
		if limit > 0 {
			r.limit = limit
		}
	}
}

// NewReasoner 构造符号推理引擎。
func NewReasoner(opts ...Option) *Reasoner {
	r := &Reasoner{
		kb:    NewKnowledgeBase(),
		limit: defaultHistoryLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// KnowledgeBase 返回底层知识库。
func (r *Reasoner) KnowledgeBase() *KnowledgeBase {
	return r.kb
}

// ReasonAboutIntent 从自然语言消息中提取结构化交易意图。
// 每次调用产出全新的 Intent，返回后不再修改。
func (r *Reasoner) ReasonAboutIntent(message string) *Intent {
	now := time.Now().Unix()

	// 余额查询优先短路，不进入概念抽取管线。
	if IsBalanceCheckRequest(message) {
		intent := &Intent{
			Status:     StatusSuccess,
			Action:     ActionBalanceCheck,
			Confidence: balanceCheckConfidence,
			Engine:     EngineSymbolic,
			RawMessage: message,
			CreatedAt:  now,
		}
		r.record(intent)
		return intent
	}

	concepts := r.kb.Extract(message)
	slots := MapEntities(concepts, message)
	inferences := r.kb.Infer(concepts)

	intent := &Intent{
		Status:     StatusSuccess,
		Action:     slots.Action,
		FromChain:  slots.FromChain,
		ToChain:    slots.ToChain,
		FromToken:  slots.FromToken,
		ToToken:    slots.ToToken,
		Amount:     slots.Amount,
		Engine:     EngineSymbolic,
		RawMessage: message,
		CreatedAt:  now,
		Trace: &Trace{
			Concepts:       concepts,
			MappedEntities: slots,
			Inferences:     inferences,
		},
	}

	// 未显式给出动作时采用置信度最高的规则后件。
	if intent.Action == "" && len(inferences) > 0 {
		best := inferences[0]
		for _, inference := range inferences[1:] {
			if inference.Confidence > best.Confidence {
				best = inference
			}
		}
		intent.Action = Action(best.Consequent)
		intent.InferredAction = true
	}

	intent.Confidence = Score(slots, inferences)

	logger.Named("reasoning").Debug("符号推理完成",
		slog.String("action", string(intent.Action)),
		slog.Float64("confidence", intent.Confidence),
		slog.Int("concepts", len(concepts)),
	)

	r.record(intent)
	return intent
}

// Score 计算一次推理的启发式置信度，结果落在 [0,1]。
// 基础分 0.5，动作 +0.2，来源链与代币齐备 +0.15，
// 任一目的槽位 +0.15；有规则命中时与规则置信度均值再取平均。
func Score(slots EntitySlots, inferences []Inference) float64 {
	confidence := 0.5

	if slots.Action != "" {
		confidence += 0.2
	}
	if slots.FromChain != "" && slots.FromToken != "" {
		confidence += 0.15
	}
	if slots.ToChain != "" || slots.ToToken != "" {
		confidence += 0.15
	}

	if len(inferences) > 0 {
		sum := 0.0
		for _, inference := range inferences {
			sum += inference.Confidence
		}
		confidence = (confidence + sum/float64(len(inferences))) / 2
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// record 将推理摘要追加到有界历史窗口。
func (r *Reasoner) record(intent *Intent) {
	entry := HistoryEntry{
		Message:    intent.RawMessage,
		Action:     intent.Action,
		Confidence: intent.Confidence,
		Timestamp:  intent.CreatedAt,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, entry)
	if len(r.history) > r.limit {
		r.history = r.history[len(r.history)-r.limit:]
	}
}

// History 返回最近 limit 条推理摘要。
func (r *Reasoner) History(limit int) []HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 || limit > len(r.history) {
		limit = len(r.history)
	}
	entries := make([]HistoryEntry, limit)
	copy(entries, r.history[len(r.history)-limit:])
	return entries
}

// Stats 返回推理引擎的统计信息。
func (r *Reasoner) Stats() Stats {
	r.mu.Lock()
	historyCount := len(r.history)
	r.mu.Unlock()

	return Stats{
		TotalConcepts: len(r.kb.order),
		TotalRules:    len(r.kb.rules),
		HistoryCount:  historyCount,
		CacheSize:     r.kb.CacheSize(),
	}
}
