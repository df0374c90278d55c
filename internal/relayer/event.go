package relayer

import (
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"

	apperrors "crossmind/internal/errors"
)

// BridgeInitiatedTopic 是 BridgeInitiated(address,address,uint256,uint256,bytes32)
// 事件签名的 keccak256 哈希。
var BridgeInitiatedTopic = common.HexToHash("0xabd91d4c62fd6ad5c32be58d9c32f1f73c80b6c0625da77d0d999625b8c7e7f6")

// DefaultBridgeContract 是 Sepolia 测试网上的 Avail 桥合约地址。
var DefaultBridgeContract = common.HexToAddress("0x054fd961708D8E2B9c10a63F6157c74458889F0a")

// usdcDecimals 固定按 USDC 的 6 位小数换算金额。
// 这是当前桥接流程的已知限制，不支持其他代币精度。
const usdcDecimals = 6

// BridgeEvent 是一条解码后的桥接发起事件。
type BridgeEvent struct {
	TxHash        string   `json:"tx_hash"`
	BlockNumber   uint64   `json:"block_number"`
	Token         string   `json:"token"`
	Recipient     string   `json:"recipient"`
	AmountRaw     *big.Int `json:"amount_raw"`
	AmountDecimal float64  `json:"amount_decimal"`
}

// DecodeBridgeEvent 按固定布局解码一条桥接发起日志：
// topics[1] 低 20 字节为代币地址，topics[2] 低 20 字节为接收人地址，
// data 的前 32 字节为大端金额。格式不符时返回解码错误，由调用方跳过。
func DecodeBridgeEvent(log coretypes.Log) (*BridgeEvent, error) {
	if len(log.Topics) < 3 {
		return nil, apperrors.New(apperrors.CodeDecode, "桥接事件 topics 数量不足")
	}
	if len(log.Data) < 32 {
		return nil, apperrors.New(apperrors.CodeDecode, "桥接事件 data 不足 32 字节")
	}

	token := common.BytesToAddress(log.Topics[1].Bytes()[12:])
	recipient := common.BytesToAddress(log.Topics[2].Bytes()[12:])

	amount := new(big.Int).SetBytes(log.Data[:32])
	decimal, _ := new(big.Float).Quo(
		new(big.Float).SetInt(amount),
		big.NewFloat(math.Pow10(usdcDecimals)),
	).Float64()

	return &BridgeEvent{
		TxHash:        strings.ToLower(log.TxHash.Hex()),
		BlockNumber:   log.BlockNumber,
		Token:         strings.ToLower(token.Hex()),
		Recipient:     strings.ToLower(recipient.Hex()),
		AmountRaw:     amount,
		AmountDecimal: decimal,
	}, nil
}
