package gasstation

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/Conflux-Chain/gas-estimation/types"
	"github.com/Conflux-Chain/gas-estimation/util"
	"github.com/Conflux-Chain/gas-estimation/util/metrics"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Gas price estimation with https://www.blocknative.com/gas-estimator
const BlockNativeURL = "https://api.blocknative.com/gasprices/blockprices"

// confidence of 100% is expected to be mined within one block time
const blockNativeBaseTime = 15.0

// Transport fetches JSON documents over HTTP.
type Transport interface {
	GetJSON(ctx context.Context, url string, headers map[string]string, out interface{}) error
}

// BlockNativeAuthHeader returns the request headers to authenticate with apiKey.
func BlockNativeAuthHeader(apiKey string) map[string]string {
	return map[string]string{"Authorization": apiKey}
}

// jsonNumber decodes a JSON number, which the vendor sometimes quotes as a string.
type jsonNumber float64

func (n *jsonNumber) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}

	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return errors.WithMessagef(err, "invalid number %q", data)
	}

	*n = jsonNumber(v)
	return nil
}

// MarshalJSON keeps the numbers unquoted on output.
func (n jsonNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(n))
}

type BlockNativeEstimatedPrice struct {
	Confidence           jsonNumber `json:"confidence"`
	Price                jsonNumber `json:"price"`
	MaxPriorityFeePerGas jsonNumber `json:"maxPriorityFeePerGas"`
	MaxFeePerGas         jsonNumber `json:"maxFeePerGas"`
}

type BlockNativeBlockPrice struct {
	BlockNumber     jsonNumber                  `json:"blockNumber"`
	BaseFeePerGas   jsonNumber                  `json:"baseFeePerGas"`
	EstimatedPrices []BlockNativeEstimatedPrice `json:"estimatedPrices"`
}

// BlockNativeResponse is the response of the block prices API, all prices in gwei.
type BlockNativeResponse struct {
	Unit        string                  `json:"unit"`
	BlockPrices []BlockNativeBlockPrice `json:"blockPrices"`
}

// blockNativeAnchor is an estimated price in wei, anchored at the time it is expected
// to be mined within.
type blockNativeAnchor struct {
	seconds     float64
	price       float64
	maxFee      float64
	maxPriority float64
}

type blockNativePrices struct {
	baseFee float64
	anchors []blockNativeAnchor
}

// parseBlockNativeResponse converts the next block prices of resp into wei anchors
// ordered by time.
func parseBlockNativeResponse(resp *BlockNativeResponse) (blockNativePrices, error) {
	if len(resp.BlockPrices) == 0 {
		return blockNativePrices{}, newError(KindDecode, nil, "no block prices from blocknative")
	}

	block := resp.BlockPrices[0]

	estimates := make([]BlockNativeEstimatedPrice, 0, len(block.EstimatedPrices))
	for _, v := range block.EstimatedPrices {
		if v.Confidence > 0 {
			estimates = append(estimates, v)
		}
	}

	if len(estimates) < 2 {
		return blockNativePrices{}, newError(
			KindDecode, nil, "expected at least 2 estimated prices from blocknative, got %v", len(estimates),
		)
	}

	// vendor order not guaranteed
	sort.SliceStable(estimates, func(i, j int) bool {
		return estimates[i].Confidence > estimates[j].Confidence
	})

	prices := blockNativePrices{
		baseFee: types.GweiToWei(float64(block.BaseFeePerGas)),
		anchors: make([]blockNativeAnchor, len(estimates)),
	}

	for i, v := range estimates {
		prices.anchors[i] = blockNativeAnchor{
			seconds:     blockNativeBaseTime / (float64(v.Confidence) / 100),
			price:       types.GweiToWei(float64(v.Price)),
			maxFee:      types.GweiToWei(float64(v.MaxFeePerGas)),
			maxPriority: types.GweiToWei(float64(v.MaxPriorityFeePerGas)),
		}
	}

	return prices, nil
}

func (p blockNativePrices) estimate(timeLimit time.Duration) (types.EstimatedGasPrice, error) {
	var pricePts, maxFeePts, maxPriorityPts []util.Point
	for _, v := range p.anchors {
		pricePts = append(pricePts, util.Point{X: v.seconds, Y: v.price})
		maxFeePts = append(maxFeePts, util.Point{X: v.seconds, Y: v.maxFee})
		maxPriorityPts = append(maxPriorityPts, util.Point{X: v.seconds, Y: v.maxPriority})
	}

	x := timeLimit.Seconds()
	legacy, err := util.Interpolate(x, pricePts)
	if err != nil {
		return types.EstimatedGasPrice{}, newError(KindInvalidInput, err, "failed to interpolate price")
	}

	maxFee, err := util.Interpolate(x, maxFeePts)
	if err != nil {
		return types.EstimatedGasPrice{}, newError(KindInvalidInput, err, "failed to interpolate max fee")
	}

	maxPriority, err := util.Interpolate(x, maxPriorityPts)
	if err != nil {
		return types.EstimatedGasPrice{}, newError(KindInvalidInput, err, "failed to interpolate max priority fee")
	}

	return types.EstimatedGasPrice{
		Legacy: legacy,
		EIP1559: &types.GasPrice1559{
			BaseFeePerGas:        p.baseFee,
			MaxFeePerGas:         maxFee,
			MaxPriorityFeePerGas: maxPriority,
		},
	}, nil
}

type blockNativeOptions struct {
	url       string
	refresher []RefresherOption
}

type BlockNativeOption func(opts *blockNativeOptions)

func WithBlockNativeURL(url string) BlockNativeOption {
	return func(opts *blockNativeOptions) {
		opts.url = url
	}
}

func WithBlockNativeRefresher(options ...RefresherOption) BlockNativeOption {
	return func(opts *blockNativeOptions) {
		opts.refresher = append(opts.refresher, options...)
	}
}

// WithBlockNativeConfig applies the url and refresh settings of config.
func WithBlockNativeConfig(config BlockNativeConfig) BlockNativeOption {
	return func(opts *blockNativeOptions) {
		if len(config.URL) > 0 {
			opts.url = config.URL
		}

		opts.refresher = append(opts.refresher, WithInterval(config.Interval), WithValidity(config.Validity))
	}
}

// BlockNative estimates gas price from the block prices polled from BlockNative.
type BlockNative struct {
	refresher *Refresher[blockNativePrices]
}

// NewBlockNative creates a BlockNative estimator, which fails unless the first poll succeeds.
func NewBlockNative(
	ctx context.Context, transport Transport, headers map[string]string, options ...BlockNativeOption,
) (*BlockNative, error) {
	opts := blockNativeOptions{
		url:       BlockNativeURL,
		refresher: []RefresherOption{WithInterval(10 * time.Second)},
	}

	for _, o := range options {
		o(&opts)
	}

	fetch := func(ctx context.Context) (blockNativePrices, error) {
		var resp BlockNativeResponse
		if err := transport.GetJSON(ctx, opts.url, headers, &resp); err != nil {
			return blockNativePrices{}, newError(KindUpstream, err, "failed to get blocknative gas price")
		}

		prices, err := parseBlockNativeResponse(&resp)
		if err == nil && logrus.IsLevelEnabled(logrus.DebugLevel) {
			logrus.WithFields(logrus.Fields{
				"baseFee": prices.baseFee,
				"anchors": len(prices.anchors),
			}).Debug("BlockNative gas prices updated")
		}

		return prices, err
	}

	refresher, err := NewRefresher(ctx, "blocknative", fetch, opts.refresher...)
	if err != nil {
		return nil, err
	}

	return &BlockNative{refresher: refresher}, nil
}

func (b *BlockNative) EstimateWithLimits(
	ctx context.Context, gasLimit float64, timeLimit time.Duration,
) (price types.EstimatedGasPrice, err error) {
	defer func() {
		metrics.Registry.Estimator.Update("blocknative", err)
	}()

	resp, err := b.refresher.Load()
	if err != nil {
		return types.EstimatedGasPrice{}, err
	}

	return resp.Data.estimate(timeLimit)
}

func (b *BlockNative) Close() error {
	b.refresher.Close()
	return nil
}
