package parser

import (
	"context"
	"errors"
	"testing"

	"crossmind/internal/reasoning"
)

type stubParser struct {
	intent *reasoning.Intent
	err    error
	calls  int
}

func (s *stubParser) ParseIntent(ctx context.Context, message string) (*reasoning.Intent, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	intent := *s.intent
	intent.RawMessage = message
	return &intent, nil
}

func TestParseSymbolicWinsAboveThreshold(t *testing.T) {
	stub := &stubParser{intent: &reasoning.Intent{Status: reasoning.StatusSuccess}}
	h := NewHybrid(reasoning.NewReasoner(), stub)

	intent := h.Parse(context.Background(), "Bridge 100 USDC from Ethereum to Polygon")
	if intent.Engine != reasoning.EngineSymbolic {
		t.Fatalf("高置信度应采用符号结果: %s", intent.Engine)
	}
	if intent.FallbackUsed {
		t.Fatal("不应标记后备")
	}
	if stub.calls != 0 {
		t.Fatalf("不应调用神经后备: %d", stub.calls)
	}
}

func TestParseFallsBackBelowThreshold(t *testing.T) {
	stub := &stubParser{
		intent: &reasoning.Intent{
			Status:     reasoning.StatusSuccess,
			Action:     reasoning.ActionBridge,
			Confidence: 0.9,
			Engine:     reasoning.EngineNeural,
		},
	}
	h := NewHybrid(reasoning.NewReasoner(), stub)

	// 无动作、无完整槽位的消息，符号置信度低于 0.7。
	intent := h.Parse(context.Background(), "do something with my crypto please")
	if stub.calls != 1 {
		t.Fatalf("应调用神经后备一次: %d", stub.calls)
	}
	if !intent.FallbackUsed {
		t.Fatal("应标记后备")
	}
	if intent.Preliminary == nil {
		t.Fatal("后备结果应附带符号初判")
	}
	if intent.Preliminary.Engine != reasoning.EngineSymbolic {
		t.Fatalf("初判引擎标记错误: %s", intent.Preliminary.Engine)
	}
	if intent.SymbolicConfidence >= 0.7 {
		t.Fatalf("记录的符号置信度异常: %.2f", intent.SymbolicConfidence)
	}
}

func TestParseNoFallbackConfigured(t *testing.T) {
	h := NewHybrid(reasoning.NewReasoner(), nil)

	intent := h.Parse(context.Background(), "do something with my crypto please")
	if intent.Engine != reasoning.EngineSymbolic {
		t.Fatalf("无后备时应返回符号结果: %s", intent.Engine)
	}
	if intent.FallbackUsed {
		t.Fatal("无后备时不应标记后备")
	}
	if intent.Status != reasoning.StatusSuccess {
		t.Fatalf("低置信度结果仍应为 success: %s", intent.Status)
	}
}

func TestParseFallbackFailure(t *testing.T) {
	stub := &stubParser{err: errors.New("connection refused")}
	h := NewHybrid(reasoning.NewReasoner(), stub)

	intent := h.Parse(context.Background(), "do something with my crypto please")
	if intent.Status != reasoning.StatusError {
		t.Fatalf("后备失败应返回 error 状态: %s", intent.Status)
	}
	if intent.Error == "" {
		t.Fatal("error 状态必须携带错误描述")
	}
	if intent.Preliminary == nil {
		t.Fatal("失败结果仍应附带符号初判")
	}

	if ok, reason := h.Validate(intent); ok {
		t.Fatalf("error 状态的意图不应通过校验: %s", reason)
	}
}

func TestStatsCountsEngines(t *testing.T) {
	stub := &stubParser{
		intent: &reasoning.Intent{Status: reasoning.StatusSuccess, Confidence: 0.9, Engine: reasoning.EngineNeural},
	}
	h := NewHybrid(reasoning.NewReasoner(), stub, WithHistoryLimit(10))

	h.Parse(context.Background(), "Bridge 100 USDC from Ethereum to Polygon")
	h.Parse(context.Background(), "do something with my crypto please")

	stats := h.Stats()
	if stats.ParseCount != 2 || stats.SymbolicCount != 1 || stats.FallbackCount != 1 {
		t.Fatalf("统计信息错误: %+v", stats)
	}
	if !stats.FallbackAvailable {
		t.Fatal("后备可用性标记错误")
	}

	entries := h.History(1)
	if len(entries) != 1 || entries[0].Engine != "neural_fallback" {
		t.Fatalf("历史记录错误: %+v", entries)
	}
}
