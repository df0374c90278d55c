package reasoning

// Engine 标识产生意图的推理引擎。
type Engine string

const (
	EngineSymbolic Engine = "symbolic"
	EngineNeural   Engine = "neural"
)

// Action 表示从自然语言中识别出的交易动作。
type Action string

const (
	ActionBridge        Action = "bridge"
	ActionSwap          Action = "swap"
	ActionBridgeAndSwap Action = "bridge_and_swap"
	ActionBalanceCheck  Action = "balance_check"
)

// KnownActions 列出验证器接受的动作集合。
var KnownActions = []Action{ActionBridge, ActionSwap, ActionBridgeAndSwap, ActionBalanceCheck}

// Status 标识一次解析的整体结果。
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// EntitySlots 保存实体映射阶段填充的语义槽位。
type EntitySlots struct {
	Action    Action   `json:"action,omitempty"`
	FromChain string   `json:"from_chain,omitempty"`
	ToChain   string   `json:"to_chain,omitempty"`
	FromToken string   `json:"from_token,omitempty"`
	ToToken   string   `json:"to_token,omitempty"`
	Amount    *float64 `json:"amount,omitempty"`
}

// Trace 记录符号推理的中间结果，便于观测与调试。
type Trace struct {
	Concepts       []string    `json:"concepts"`
	MappedEntities EntitySlots `json:"mapped_entities"`
	Inferences     []Inference `json:"inferences"`
}

// Intent 是一次解析请求产出的结构化交易意图。返回后不再修改。
type Intent struct {
	Status             Status   `json:"status"`
	Action             Action   `json:"action,omitempty"`
	FromChain          string   `json:"from_chain,omitempty"`
	ToChain            string   `json:"to_chain,omitempty"`
	FromToken          string   `json:"from_token,omitempty"`
	ToToken            string   `json:"to_token,omitempty"`
	Amount             *float64 `json:"amount,omitempty"`
	Confidence         float64  `json:"confidence"`
	Engine             Engine   `json:"reasoning_engine"`
	FallbackUsed       bool     `json:"fallback_used"`
	InferredAction     bool     `json:"inferred_action,omitempty"`
	RawMessage         string   `json:"raw_message"`
	Error              string   `json:"error,omitempty"`
	Preliminary        *Intent  `json:"preliminary_result,omitempty"`
	SymbolicConfidence float64  `json:"symbolic_confidence,omitempty"`
	Trace              *Trace   `json:"reasoning_trace,omitempty"`
	CreatedAt          int64    `json:"created_at"`
}

// Float 返回 float64 指针，便于填充可选的金额槽位。
func Float(v float64) *float64 {
	return &v
}
