package types

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// GweiToWei converts an amount denominated in gwei into wei.
func GweiToWei(gwei float64) float64 {
	return gwei * 1e9
}

// WeiToGwei converts an amount denominated in wei into gwei.
func WeiToGwei(wei float64) float64 {
	return wei / 1e9
}

// GasPrice1559 holds EIP-1559 gas fees in wei.
type GasPrice1559 struct {
	// Estimated base fee for the pending block.
	BaseFeePerGas float64 `json:"baseFeePerGas"`
	// Maximum gas price willing to pay for the transaction.
	MaxFeePerGas float64 `json:"maxFeePerGas"`
	// Priority fee used to incentivize miners to include the transaction.
	MaxPriorityFeePerGas float64 `json:"maxPriorityFeePerGas"`
}

// EffectiveGasPrice estimates the effective gas price under the current base fee.
//
// Note, the price actually paid by a mined transaction could differ since the base fee
// may change between estimation and inclusion.
func (p GasPrice1559) EffectiveGasPrice() float64 {
	return math.Min(p.MaxFeePerGas, p.MaxPriorityFeePerGas+p.BaseFeePerGas)
}

// IsValid checks the fees against the rules of EIP-1559:
// max fee >= max priority fee and max fee >= base fee.
func (p GasPrice1559) IsValid() bool {
	return p.MaxFeePerGas >= p.MaxPriorityFeePerGas && p.MaxFeePerGas >= p.BaseFeePerGas
}

// Validate returns an error if the fees are not valid.
func (p GasPrice1559) Validate() error {
	if !p.IsValid() {
		return errors.Errorf("invalid gas price values: %v", p)
	}

	return nil
}

// Bump multiplies both the max fee and the max priority fee by factor.
func (p GasPrice1559) Bump(factor float64) GasPrice1559 {
	p.MaxFeePerGas *= factor
	p.MaxPriorityFeePerGas *= factor
	return p
}

// BumpCap multiplies only the max fee by factor.
func (p GasPrice1559) BumpCap(factor float64) GasPrice1559 {
	p.MaxFeePerGas *= factor
	return p
}

// Ceil rounds both max fields up to integers.
func (p GasPrice1559) Ceil() GasPrice1559 {
	p.MaxFeePerGas = math.Ceil(p.MaxFeePerGas)
	p.MaxPriorityFeePerGas = math.Ceil(p.MaxPriorityFeePerGas)
	return p
}

// LimitCap clamps the max fee to cap, and the max priority fee to the clamped max fee.
func (p GasPrice1559) LimitCap(cap float64) GasPrice1559 {
	p.MaxFeePerGas = math.Min(p.MaxFeePerGas, cap)
	p.MaxPriorityFeePerGas = math.Min(p.MaxPriorityFeePerGas, p.MaxFeePerGas)
	return p
}

func (p GasPrice1559) String() string {
	return fmt.Sprintf(
		"{baseFee: %v, maxFee: %v, maxPriorityFee: %v}",
		p.BaseFeePerGas, p.MaxFeePerGas, p.MaxPriorityFeePerGas,
	)
}

// EstimatedGasPrice is a gas price quote in wei. The legacy price is always set, while
// the EIP-1559 fees are only available if the source supports them.
type EstimatedGasPrice struct {
	Legacy  float64       `json:"legacy"`
	EIP1559 *GasPrice1559 `json:"eip1559,omitempty"`
}

// Cap returns the maximum gas price a transaction would pay.
func (p EstimatedGasPrice) Cap() float64 {
	if p.EIP1559 != nil {
		return p.EIP1559.MaxFeePerGas
	}

	return p.Legacy
}

// Tip returns the part of the gas price offered to the block producer.
func (p EstimatedGasPrice) Tip() float64 {
	if p.EIP1559 != nil {
		return p.EIP1559.MaxPriorityFeePerGas
	}

	return p.Legacy
}

// EffectiveGasPrice returns the gas price a transaction is expected to pay.
func (p EstimatedGasPrice) EffectiveGasPrice() float64 {
	if p.EIP1559 != nil {
		return p.EIP1559.EffectiveGasPrice()
	}

	return p.Legacy
}

// Validate checks the EIP-1559 fees if present. Legacy only prices are always valid.
func (p EstimatedGasPrice) Validate() error {
	if p.EIP1559 != nil {
		return p.EIP1559.Validate()
	}

	return nil
}

func (p EstimatedGasPrice) Bump(factor float64) EstimatedGasPrice {
	return p.mapEIP1559(func(g GasPrice1559) GasPrice1559 { return g.Bump(factor) }, func(v float64) float64 {
		return v * factor
	})
}

func (p EstimatedGasPrice) Ceil() EstimatedGasPrice {
	return p.mapEIP1559(GasPrice1559.Ceil, math.Ceil)
}

func (p EstimatedGasPrice) LimitCap(cap float64) EstimatedGasPrice {
	return p.mapEIP1559(func(g GasPrice1559) GasPrice1559 { return g.LimitCap(cap) }, func(v float64) float64 {
		return math.Min(v, cap)
	})
}

// mapEIP1559 applies the operations componentwise, never mutating the receiver.
func (p EstimatedGasPrice) mapEIP1559(op1559 func(GasPrice1559) GasPrice1559, opLegacy func(float64) float64) EstimatedGasPrice {
	res := EstimatedGasPrice{Legacy: opLegacy(p.Legacy)}
	if p.EIP1559 != nil {
		v := op1559(*p.EIP1559)
		res.EIP1559 = &v
	}

	return res
}

func (p EstimatedGasPrice) String() string {
	if p.EIP1559 == nil {
		return fmt.Sprintf("{legacy: %v}", p.Legacy)
	}

	return fmt.Sprintf("{legacy: %v, eip1559: %v}", p.Legacy, *p.EIP1559)
}
