package parser

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "crossmind/internal/errors"
	"crossmind/internal/llm"
	"crossmind/internal/reasoning"
	"crossmind/pkg/logger"
)

// fallbackThreshold 是触发神经后备的符号置信度阈值。
const fallbackThreshold = 0.7

// defaultHistoryLimit 是解析历史保留的默认窗口大小。
const defaultHistoryLimit = 100

// HistoryEntry 记录一次解析使用的引擎与置信度。
type HistoryEntry struct {
	Message    string  `json:"message"`
	Engine     string  `json:"engine"`
	Confidence float64 `json:"confidence"`
	Timestamp  int64   `json:"timestamp"`
}

// Stats 汇总混合解析器的运行统计。
type Stats struct {
	Symbolic          reasoning.Stats `json:"symbolic"`
	ParseCount        int             `json:"parse_count"`
	SymbolicCount     int             `json:"symbolic_count"`
	FallbackCount     int             `json:"fallback_count"`
	FallbackAvailable bool            `json:"fallback_available"`
}

// Hybrid 是混合意图解析器：符号推理为主，神经解析为后备。
// 仲裁规则：符号置信度达到阈值或后备不可用时直接采用符号结果，
// 否则调用神经解析并在结果上附带符号初判。
type Hybrid struct {
	reasoner *reasoning.Reasoner
	neural   llm.Parser
	limit    int
	log      *slog.Logger

	mu            sync.Mutex
	history       []HistoryEntry
	symbolicCount int
	fallbackCount int
}

// Option 定义可选的 Hybrid 配置。
type Option func(*Hybrid)

// WithHistoryLimit 设置解析历史窗口大小。
func WithHistoryLimit(limit int) Option {
	return func(h *Hybrid) {
		if limit > 0 {
			h.limit = limit
		}
	}
}

// NewHybrid 构造混合解析器。neural 为 nil 时仅使用符号推理。
func NewHybrid(reasoner *reasoning.Reasoner, neural llm.Parser, opts ...Option) *Hybrid {
	h := &Hybrid{
		reasoner: reasoner,
		neural:   neural,
		limit:    defaultHistoryLimit,
		log:      logger.Named("parser"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Parse 解析一条自然语言消息并返回结构化意图。
// 任何路径都返回非 nil 的 Intent；解析失败时 Status 为 error。
func (h *Hybrid) Parse(ctx context.Context, message string) *reasoning.Intent {
	symbolic := h.reasoner.ReasonAboutIntent(message)

	if symbolic.Confidence >= fallbackThreshold || h.neural == nil {
		h.record(message, "symbolic", symbolic.Confidence, false)
		return symbolic
	}

	h.log.Warn("符号置信度不足，切换到神经后备",
		slog.Float64("confidence", symbolic.Confidence),
	)

	neural, err := h.neural.ParseIntent(ctx, message)
	if err != nil {
		wrapped := apperrors.Wrap(apperrors.CodeFallbackFailure, err, "神经后备解析失败")
		h.log.Error("神经后备解析失败", slog.Any("error", wrapped))
		failed := &reasoning.Intent{
			Status:             reasoning.StatusError,
			Error:              wrapped.Error(),
			Engine:             reasoning.EngineNeural,
			FallbackUsed:       true,
			RawMessage:         message,
			Preliminary:        symbolic,
			SymbolicConfidence: symbolic.Confidence,
			CreatedAt:          time.Now().Unix(),
		}
		h.record(message, "neural_fallback", 0, true)
		return failed
	}

	neural.FallbackUsed = true
	neural.Preliminary = symbolic
	neural.SymbolicConfidence = symbolic.Confidence

	h.record(message, "neural_fallback", neural.Confidence, true)
	return neural
}

// Validate 校验意图是否可以继续执行。
func (h *Hybrid) Validate(intent *reasoning.Intent) (bool, string) {
	return reasoning.Validate(intent)
}

// FallbackAvailable 报告神经后备是否已配置。
func (h *Hybrid) FallbackAvailable() bool {
	return h.neural != nil
}

func (h *Hybrid) record(message, engine string, confidence float64, fallback bool) {
	entry := HistoryEntry{
		Message:    message,
		Engine:     engine,
		Confidence: confidence,
		Timestamp:  time.Now().Unix(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append(h.history, entry)
	if len(h.history) > h.limit {
		h.history = h.history[len(h.history)-h.limit:]
	}
	if fallback {
		h.fallbackCount++
	} else {
		h.symbolicCount++
	}
}

// History 返回最近 limit 条解析记录。
func (h *Hybrid) History(limit int) []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit <= 0 || limit > len(h.history) {
		limit = len(h.history)
	}
	entries := make([]HistoryEntry, limit)
	copy(entries, h.history[len(h.history)-limit:])
	return entries
}

// Stats 返回混合解析器的统计信息。
func (h *Hybrid) Stats() Stats {
	h.mu.Lock()
	parseCount := len(h.history)
	symbolicCount := h.symbolicCount
	fallbackCount := h.fallbackCount
	h.mu.Unlock()

	return Stats{
		Symbolic:          h.reasoner.Stats(),
		ParseCount:        parseCount,
		SymbolicCount:     symbolicCount,
		FallbackCount:     fallbackCount,
		FallbackAvailable: h.neural != nil,
	}
}
