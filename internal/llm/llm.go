package llm

import (
	"context"

	"crossmind/internal/reasoning"
)

// Parser 定义了神经网络意图解析的统一接口。
// 实现方返回的意图必须标记 Engine 为 neural。
type Parser interface {
	ParseIntent(ctx context.Context, message string) (*reasoning.Intent, error)
}
