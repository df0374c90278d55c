package reasoning

import (
	"regexp"
	"strconv"
	"strings"

	"crossmind/internal/chains"
)

var (
	actionConcepts = map[string]Action{
		"bridge":          ActionBridge,
		"swap":            ActionSwap,
		"bridge_and_swap": ActionBridgeAndSwap,
		"balance_check":   ActionBalanceCheck,
	}

	chainConcepts = map[string]struct{}{
		"ethereum": {},
		"polygon":  {},
		"arbitrum": {},
		"base":     {},
		"optimism": {},
	}

	tokenConcepts = map[string]struct{}{
		"ETH":  {},
		"USDC": {},
		"USDT": {},
		"WETH": {},
	}

	// 金额匹配，如 "100 USDC"、"0.5 ETH"，单位可省略。
	amountPattern = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(USDC|USDT|ETH|WETH|wei|ether|gwei)?`)
)

// MapEntities 将抽取出的概念按优先级填入语义槽位。
// 动作槽位后出现者覆盖先出现者；链与代币按出现顺序
// 先填 from 槽再填 to 槽；链名在入槽前统一翻译为测试网名称。
func MapEntities(concepts []string, raw string) EntitySlots {
	var slots EntitySlots

	for _, concept := range concepts {
		lower := strings.ToLower(concept)

		if action, ok := actionConcepts[lower]; ok {
			slots.Action = action
			continue
		}
		if _, ok := chainConcepts[lower]; ok {
			testnet := chains.ToTestnet(lower)
			if slots.FromChain == "" {
				slots.FromChain = testnet
			} else {
				slots.ToChain = testnet
			}
			continue
		}
		if _, ok := tokenConcepts[concept]; ok {
			if slots.FromToken == "" {
				slots.FromToken = concept
			} else {
				slots.ToToken = concept
			}
		}
	}

	if raw != "" {
		if match := amountPattern.FindStringSubmatch(raw); match != nil {
			if amount, err := strconv.ParseFloat(match[1], 64); err == nil {
				slots.Amount = &amount
			}
		}
	}

	// 跨链的 swap 实际上是 bridge_and_swap。
	if slots.Action == ActionSwap && slots.FromChain != "" && slots.ToChain != "" && slots.FromChain != slots.ToChain {
		slots.Action = ActionBridgeAndSwap
	}

	return slots
}

var (
	balanceKeywords = []string{"check", "show", "what", "how much", "view", "see", "display"}
	balanceTargets  = []string{"balance", "balances", "funds", "assets", "holdings", "tokens"}
)

// IsBalanceCheckRequest 判断消息是否为余额查询。
// 需要同时命中一个查询动词与一个余额目标词。
func IsBalanceCheckRequest(message string) bool {
	lower := strings.ToLower(message)

	hasKeyword := false
	for _, keyword := range balanceKeywords {
		if strings.Contains(lower, keyword) {
			hasKeyword = true
			break
		}
	}
	if !hasKeyword {
		return false
	}

	for _, target := range balanceTargets {
		if strings.Contains(lower, target) {
			return true
		}
	}
	return false
}
