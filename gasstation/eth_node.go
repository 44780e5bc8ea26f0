package gasstation

import (
	"context"
	"math/big"
	"time"

	"github.com/Conflux-Chain/gas-estimation/types"
	"github.com/Conflux-Chain/gas-estimation/util/metrics"
)

// GasPricer returns the legacy gas price suggested by a node.
type GasPricer interface {
	GasPrice(ctx context.Context) (*big.Int, error)
}

// NodeClient is the node RPC used to estimate gas price.
type NodeClient interface {
	GasPricer

	// FeeHistory returns the fee history of blockCount blocks up to newestBlock, which
	// is a block tag or a hex encoded block number.
	FeeHistory(
		ctx context.Context, blockCount uint64, newestBlock string, rewardPercentiles []float64,
	) (*types.FeeHistory, error)
}

// EthNode estimates legacy gas price with `eth_gasPrice` of a node, without caching.
type EthNode struct {
	client GasPricer
}

func NewEthNode(client GasPricer) *EthNode {
	return &EthNode{client: client}
}

func (n *EthNode) EstimateWithLimits(
	ctx context.Context, gasLimit float64, timeLimit time.Duration,
) (price types.EstimatedGasPrice, err error) {
	defer func() {
		metrics.Registry.Estimator.Update("node", err)
	}()

	gasPrice, err := n.client.GasPrice(ctx)
	if err != nil {
		return types.EstimatedGasPrice{}, newError(KindUpstream, err, "failed to get node gas price")
	}

	legacy, _ := new(big.Float).SetInt(gasPrice).Float64()
	return types.EstimatedGasPrice{Legacy: legacy}, nil
}
