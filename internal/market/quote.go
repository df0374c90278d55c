package market

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	apperrors "crossmind/internal/errors"
)

// defaultPriceImpact 是 DEX 兑换的默认价格冲击估计（百分比）。
// 未接入池子深度数据前使用固定值。
const defaultPriceImpact = 0.1

// Quote 是一次兑换询价的结果。
type Quote struct {
	QuoteID       string  `json:"quote_id"`
	FromToken     string  `json:"from_token"`
	ToToken       string  `json:"to_token"`
	InputAmount   float64 `json:"input_amount"`
	OutputAmount  float64 `json:"output_amount"`
	ExchangeRate  float64 `json:"exchange_rate"`
	PriceImpact   float64 `json:"price_impact"`
	ConfidencePct float64 `json:"confidence_pct"`
	FromPrice     float64 `json:"from_price"`
	ToPrice       float64 `json:"to_price"`
	CreatedAt     int64   `json:"created_at"`
}

// SwapQuote 根据两个代币的美元行情计算兑换率与产出数量。
func (c *PythClient) SwapQuote(ctx context.Context, fromToken, toToken string, amount float64) (*Quote, error) {
	if amount <= 0 {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "询价数量必须大于 0")
	}

	fromPrice, err := c.FetchPrice(ctx, fromToken)
	if err != nil {
		return nil, fmt.Errorf("获取 %s 行情失败: %w", fromToken, err)
	}
	toPrice, err := c.FetchPrice(ctx, toToken)
	if err != nil {
		return nil, fmt.Errorf("获取 %s 行情失败: %w", toToken, err)
	}
	if toPrice.Price <= 0 {
		return nil, apperrors.New(apperrors.CodeInvalidArgument,
			fmt.Sprintf("%s 行情价格异常", toToken))
	}

	exchangeRate := fromPrice.Price / toPrice.Price
	outputAmount := amount * exchangeRate
	confidencePct := math.Min(fromPrice.ConfidencePct, toPrice.ConfidencePct)

	return &Quote{
		QuoteID:       uuid.NewString(),
		FromToken:     fromToken,
		ToToken:       toToken,
		InputAmount:   amount,
		OutputAmount:  outputAmount,
		ExchangeRate:  exchangeRate,
		PriceImpact:   defaultPriceImpact,
		ConfidencePct: confidencePct,
		FromPrice:     fromPrice.Price,
		ToPrice:       toPrice.Price,
		CreatedAt:     time.Now().Unix(),
	}, nil
}
