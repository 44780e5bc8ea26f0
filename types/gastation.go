package types

import (
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// GasPriceQuote is the JSON rendering of an estimated gas price, all values in integer wei.
type GasPriceQuote struct {
	// Legacy (pre EIP-1559) gas price.
	GasPrice *hexutil.Big `json:"gasPrice"`
	// The estimated base fee per gas of the pending block.
	BaseFeePerGas *hexutil.Big `json:"baseFeePerGas,omitempty"`
	// The maximum suggested total fee per gas to pay, including both the base fee and the priority fee.
	MaxFeePerGas *hexutil.Big `json:"maxFeePerGas,omitempty"`
	// The maximum suggested priority fee per gas to pay to have transactions included in a block.
	MaxPriorityFeePerGas *hexutil.Big `json:"maxPriorityFeePerGas,omitempty"`
	// The gas price expected to be paid under the current base fee.
	EffectiveGasPrice *hexutil.Big `json:"effectiveGasPrice"`
}

// Quote rounds the estimated gas price up to integer wei.
func (p EstimatedGasPrice) Quote() *GasPriceQuote {
	quote := &GasPriceQuote{
		GasPrice:          weiToHexBig(p.Legacy),
		EffectiveGasPrice: weiToHexBig(p.EffectiveGasPrice()),
	}

	if p.EIP1559 != nil {
		quote.BaseFeePerGas = weiToHexBig(p.EIP1559.BaseFeePerGas)
		quote.MaxFeePerGas = weiToHexBig(p.EIP1559.MaxFeePerGas)
		quote.MaxPriorityFeePerGas = weiToHexBig(p.EIP1559.MaxPriorityFeePerGas)
	}

	return quote
}

func weiToHexBig(wei float64) *hexutil.Big {
	if math.IsNaN(wei) || math.IsInf(wei, 0) || wei <= 0 {
		return (*hexutil.Big)(big.NewInt(0))
	}

	v, _ := new(big.Float).SetFloat64(math.Ceil(wei)).Int(nil)
	return (*hexutil.Big)(v)
}
