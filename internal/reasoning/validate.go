package reasoning

import (
	"strings"

	"crossmind/internal/chains"
)

// Validate 校验意图是否可以继续执行。
// 余额查询不携带代币与金额槽位，跳过链/代币/金额检查。
// 链名在成员检查前统一翻译为测试网名称，主网与测试网写法都接受。
// 返回首个未通过的校验项描述，全部通过时 reason 为空。
func Validate(intent *Intent) (bool, string) {
	if intent == nil {
		return false, "missing intent"
	}
	if intent.Status != StatusSuccess {
		if intent.Error != "" {
			return false, intent.Error
		}
		return false, "intent parsing failed"
	}
	known := false
	for _, action := range KnownActions {
		if intent.Action == action {
			known = true
			break
		}
	}
	if !known {
		return false, "missing or invalid action"
	}
	if intent.Action == ActionBalanceCheck {
		return true, ""
	}
	if intent.FromChain == "" {
		return false, "missing source chain"
	}
	if !chains.IsSupported(intent.FromChain) {
		return false, "unsupported source chain: " + intent.FromChain
	}
	if intent.FromToken == "" {
		return false, "missing source token"
	}
	if !supportedToken(intent.FromToken) {
		return false, "unsupported source token: " + intent.FromToken
	}
	if intent.Amount == nil || *intent.Amount <= 0 {
		return false, "missing or invalid amount"
	}
	if intent.Action == ActionBridge || intent.Action == ActionBridgeAndSwap {
		if intent.ToChain == "" {
			return false, "missing destination chain"
		}
		if !chains.IsSupported(intent.ToChain) {
			return false, "unsupported destination chain: " + intent.ToChain
		}
	}
	if intent.Action == ActionSwap || intent.Action == ActionBridgeAndSwap {
		if intent.ToToken == "" {
			return false, "missing destination token"
		}
		if !supportedToken(intent.ToToken) {
			return false, "unsupported destination token: " + intent.ToToken
		}
	}
	return true, ""
}

func supportedToken(token string) bool {
	_, ok := tokenConcepts[strings.ToUpper(token)]
	return ok
}
