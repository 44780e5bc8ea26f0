package types

import (
	"math/big"

	"github.com/pkg/errors"
)

// FeeHistory is the result of `eth_feeHistory`.
//
// BaseFeePerGas has one more entry than GasUsedRatio, the last one being the base fee
// of the block after the newest block of the range. Reward is only set when reward
// percentiles were requested, one row per block.
type FeeHistory struct {
	OldestBlock   uint64
	BaseFeePerGas []*big.Int
	GasUsedRatio  []float64
	Reward        [][]*big.Int
}

// Validate checks the structural invariant between base fees and gas used ratios.
func (h *FeeHistory) Validate() error {
	if len(h.BaseFeePerGas) != len(h.GasUsedRatio)+1 {
		return errors.Errorf(
			"base fee count %v mismatches gas used ratio count %v",
			len(h.BaseFeePerGas), len(h.GasUsedRatio),
		)
	}

	if h.Reward != nil && len(h.Reward) > len(h.GasUsedRatio) {
		return errors.Errorf(
			"reward count %v exceeds block count %v", len(h.Reward), len(h.GasUsedRatio),
		)
	}

	return nil
}

// BaseFees returns the base fees as floats in wei.
func (h *FeeHistory) BaseFees() []float64 {
	return bigsToFloats(h.BaseFeePerGas)
}

func bigsToFloats(vals []*big.Int) []float64 {
	res := make([]float64, len(vals))
	for i, v := range vals {
		if v != nil {
			res[i], _ = new(big.Float).SetInt(v).Float64()
		}
	}

	return res
}

// Rewards returns the reward percentiles of block i as floats in wei.
func (h *FeeHistory) Rewards(i int) []float64 {
	if i < 0 || i >= len(h.Reward) {
		return nil
	}

	return bigsToFloats(h.Reward[i])
}
