package reasoning

import (
	"sync"
)

// Concept 是知识库中的一个原子概念（动作、链、代币或交易条件）。
type Concept struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// Rule 是一条前件→后件的推理规则。
type Rule struct {
	Name       string   `json:"name"`
	Antecedent []string `json:"antecedent"`
	Consequent string   `json:"consequent"`
	Confidence float64  `json:"confidence"`
}

// Inference 描述一条规则命中的结果。
type Inference struct {
	Rule       string  `json:"rule"`
	Consequent string  `json:"consequent"`
	Confidence float64 `json:"confidence"`
}

// KnowledgeBase 保存交易领域的概念词表与推理规则。
// 构造完成后只读，可被任意多个请求并发查询。
type KnowledgeBase struct {
	concepts map[string]Concept
	order    []string
	rules    []Rule

	cacheMu sync.RWMutex
	cache   map[string]Concept
}

// NewKnowledgeBase 用内置的交易概念与规则构建知识库。
func NewKnowledgeBase() *KnowledgeBase {
	kb := &KnowledgeBase{
		concepts: make(map[string]Concept),
		cache:    make(map[string]Concept),
	}

	seed := []Concept{
		// 动作
		{Name: "bridge", Description: "Bridge tokens between chains", Confidence: 0.95},
		{Name: "swap", Description: "Swap tokens on same chain", Confidence: 0.95},
		{Name: "bridge_and_swap", Description: "Bridge and swap atomically", Confidence: 0.90},
		{Name: "balance_check", Description: "Check wallet token balances", Confidence: 0.95},
		{Name: "balance", Description: "Check wallet balance", Confidence: 0.95},
		{Name: "check", Description: "Perform a check operation", Confidence: 0.90},

		// 链
		{Name: "ethereum", Description: "Ethereum mainnet", Confidence: 0.98},
		{Name: "polygon", Description: "Polygon network", Confidence: 0.98},
		{Name: "arbitrum", Description: "Arbitrum One", Confidence: 0.98},
		{Name: "base", Description: "Base network", Confidence: 0.98},
		{Name: "optimism", Description: "Optimism network", Confidence: 0.98},

		// 代币
		{Name: "USDC", Description: "USD Coin stablecoin", Confidence: 0.99},
		{Name: "USDT", Description: "Tether stablecoin", Confidence: 0.99},
		{Name: "ETH", Description: "Ethereum token", Confidence: 0.99},
		{Name: "WETH", Description: "Wrapped Ethereum", Confidence: 0.99},

		// 交易条件
		{Name: "low_slippage", Description: "Trading with low slippage", Confidence: 0.85},
		{Name: "high_volume", Description: "Trading with high volume", Confidence: 0.85},
		{Name: "best_rate", Description: "Finding best rate", Confidence: 0.90},
	}
	for _, concept := range seed {
		kb.concepts[concept.Name] = concept
		kb.order = append(kb.order, concept.Name)
	}

	kb.rules = []Rule{
		{
			Name:       "bridge_rule",
			Antecedent: []string{"source_chain", "dest_chain", "token", "amount"},
			Consequent: "bridge_action",
			Confidence: 0.95,
		},
		{
			Name:       "swap_rule",
			Antecedent: []string{"chain", "from_token", "to_token", "amount"},
			Consequent: "swap_action",
			Confidence: 0.95,
		},
		{
			Name:       "arbitrage_rule",
			Antecedent: []string{"price_diff", "volume", "liquidity"},
			Consequent: "arbitrage_opportunity",
			Confidence: 0.80,
		},
	}

	return kb
}

// Lookup 按名称查询概念。结果经过只读缓存，不影响返回值。
func (kb *KnowledgeBase) Lookup(name string) (Concept, bool) {
	kb.cacheMu.RLock()
	cached, ok := kb.cache[name]
	kb.cacheMu.RUnlock()
	if ok {
		return cached, true
	}

	concept, ok := kb.concepts[name]
	if !ok {
		return Concept{}, false
	}

	kb.cacheMu.Lock()
	kb.cache[name] = concept
	kb.cacheMu.Unlock()
	return concept, true
}

// ConceptNames 按词表顺序返回全部概念名称。
func (kb *KnowledgeBase) ConceptNames() []string {
	names := make([]string, len(kb.order))
	copy(names, kb.order)
	return names
}

// Rules 返回全部推理规则。
func (kb *KnowledgeBase) Rules() []Rule {
	rules := make([]Rule, len(kb.rules))
	copy(rules, kb.rules)
	return rules
}

// Infer 对给定的概念集合做单轮规则评估。规则之间相互独立，不做前向链推理。
func (kb *KnowledgeBase) Infer(present []string) []Inference {
	set := make(map[string]struct{}, len(present))
	for _, name := range present {
		set[name] = struct{}{}
	}

	var inferences []Inference
	for _, rule := range kb.rules {
		satisfied := true
		for _, premise := range rule.Antecedent {
			if _, ok := set[premise]; !ok {
				satisfied = false
				break
			}
		}
		if satisfied {
			inferences = append(inferences, Inference{
				Rule:       rule.Name,
				Consequent: rule.Consequent,
				Confidence: rule.Confidence,
			})
		}
	}
	return inferences
}

// CacheSize 返回查询缓存当前的条目数，仅用于统计。
func (kb *KnowledgeBase) CacheSize() int {
	kb.cacheMu.RLock()
	defer kb.cacheMu.RUnlock()
	return len(kb.cache)
}
