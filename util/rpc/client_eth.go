package rpc

import (
	"context"
	"math/big"
	"time"

	"github.com/Conflux-Chain/gas-estimation/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	providers "github.com/openweb3/go-rpc-provider/provider_wrapper"
	"github.com/openweb3/web3go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type ethClientOption struct {
	baseClientOption
	providers.Option
}

func (o *ethClientOption) SetRetryCount(retry int) {
	o.RetryCount = retry
}

func (o *ethClientOption) SetRetryInterval(retryInterval time.Duration) {
	o.RetryInterval = retryInterval
}

func (o *ethClientOption) SetRequestTimeout(reqTimeout time.Duration) {
	o.RequestTimeout = reqTimeout
}

func (o *ethClientOption) SetMaxConnsPerHost(maxConns int) {
	o.MaxConnectionPerHost = maxConns
}

// EthClient exposes the fee related RPCs of an Ethereum compatible node.
type EthClient struct {
	w3c *web3go.Client
	url string
}

func MustNewEthClientFromViper(options ...ClientOption) *EthClient {
	return MustNewEthClient(ethClientCfg.Http, options...)
}

func MustNewEthClient(url string, options ...ClientOption) *EthClient {
	eth, err := NewEthClient(url, options...)
	if err != nil {
		logrus.WithField("url", url).WithError(err).Fatal("Failed to create ETH client")
	}

	return eth
}

func NewEthClient(url string, options ...ClientOption) (*EthClient, error) {
	if len(url) == 0 {
		return nil, errors.New("node url not configured")
	}

	opt := ethClientOption{
		baseClientOption: baseClientOption{hookFlags: MiddlewareHookAll},
		Option: providers.Option{
			RetryCount:           ethClientCfg.Retry,
			RetryInterval:        ethClientCfg.RetryInterval,
			RequestTimeout:       ethClientCfg.RequestTimeout,
			MaxConnectionPerHost: ethClientCfg.MaxConnsPerHost,
		},
	}

	for _, o := range options {
		o(&opt)
	}

	w3c, err := web3go.NewClientWithOption(url, web3go.ClientOption{Option: opt.Option})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to dial node")
	}

	if opt.hookFlags != MiddlewareHookNone {
		mp := providers.NewMiddlewarableProvider(w3c.Provider())
		HookMiddlewares(mp, url, opt.hookFlags)
		w3c.SetProvider(mp)
	}

	return &EthClient{w3c: w3c, url: url}, nil
}

// GasPrice calls `eth_gasPrice`.
func (c *EthClient) GasPrice(ctx context.Context) (*big.Int, error) {
	var price hexutil.Big
	if err := c.w3c.Provider().CallContext(ctx, &price, "eth_gasPrice"); err != nil {
		return nil, err
	}

	return price.ToInt(), nil
}

type rpcFeeHistory struct {
	OldestBlock   hexutil.Uint64   `json:"oldestBlock"`
	BaseFeePerGas []*hexutil.Big   `json:"baseFeePerGas"`
	GasUsedRatio  []float64        `json:"gasUsedRatio"`
	Reward        [][]*hexutil.Big `json:"reward,omitempty"`
}

// FeeHistory calls `eth_feeHistory` for blockCount blocks up to newestBlock, which is
// either a block tag such as "latest" or a hex encoded block number.
func (c *EthClient) FeeHistory(
	ctx context.Context, blockCount uint64, newestBlock string, rewardPercentiles []float64,
) (*types.FeeHistory, error) {
	if rewardPercentiles == nil {
		rewardPercentiles = []float64{}
	}

	var raw rpcFeeHistory
	err := c.w3c.Provider().CallContext(
		ctx, &raw, "eth_feeHistory", hexutil.Uint64(blockCount), newestBlock, rewardPercentiles,
	)
	if err != nil {
		return nil, err
	}

	history := &types.FeeHistory{
		OldestBlock:   uint64(raw.OldestBlock),
		BaseFeePerGas: hexBigsToInts(raw.BaseFeePerGas),
		GasUsedRatio:  raw.GasUsedRatio,
	}

	if raw.Reward != nil {
		history.Reward = make([][]*big.Int, len(raw.Reward))
		for i, r := range raw.Reward {
			history.Reward[i] = hexBigsToInts(r)
		}
	}

	return history, nil
}

func (c *EthClient) URL() string {
	return c.url
}

func (c *EthClient) Close() {
	c.w3c.Provider().Close()
}

func hexBigsToInts(vals []*hexutil.Big) []*big.Int {
	res := make([]*big.Int, len(vals))
	for i, v := range vals {
		if v != nil {
			res[i] = v.ToInt()
		} else {
			res[i] = new(big.Int)
		}
	}

	return res
}
