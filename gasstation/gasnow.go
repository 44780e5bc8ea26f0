package gasstation

import (
	"context"
	"time"

	"github.com/Conflux-Chain/gas-estimation/types"
	"github.com/Conflux-Chain/gas-estimation/util"
	"github.com/Conflux-Chain/gas-estimation/util/metrics"
	"github.com/sirupsen/logrus"
)

// Gas price estimation with https://www.gasnow.org/
const GasNowURL = "https://www.gasnow.org/api/v3/gas/price"

// Time horizons of the GasNow price tiers.
const (
	GasNowRapid    = 15 * time.Second
	GasNowFast     = 60 * time.Second
	GasNowStandard = 300 * time.Second
	GasNowSlow     = 600 * time.Second
)

// GasNowData holds the gas price of each tier in wei.
type GasNowData struct {
	Rapid    float64 `json:"rapid"`
	Fast     float64 `json:"fast"`
	Standard float64 `json:"standard"`
	Slow     float64 `json:"slow"`
}

type GasNowResponse struct {
	Code uint32     `json:"code"`
	Data GasNowData `json:"data"`
}

// EstimateGasNow interpolates a legacy gas price between the tiers of data.
func EstimateGasNow(timeLimit time.Duration, data GasNowData) (types.EstimatedGasPrice, error) {
	points := []util.Point{
		{X: GasNowRapid.Seconds(), Y: data.Rapid},
		{X: GasNowFast.Seconds(), Y: data.Fast},
		{X: GasNowStandard.Seconds(), Y: data.Standard},
		{X: GasNowSlow.Seconds(), Y: data.Slow},
	}

	legacy, err := util.Interpolate(timeLimit.Seconds(), points)
	if err != nil {
		return types.EstimatedGasPrice{}, newError(KindInvalidInput, err, "failed to interpolate gasnow tiers")
	}

	return types.EstimatedGasPrice{Legacy: legacy}, nil
}

// GasNowStation queries GasNow on demand, never more than once per rate limit.
//
// The outcome of a request is cached for the rate limit even if it failed, so that
// an erroring API is not hammered by callers.
type GasNowStation struct {
	transport Transport
	url       string
	cache     *expiryCache[GasNowResponse]
	now       func() time.Time
}

func NewGasNowStation(transport Transport, config ...GasNowConfig) *GasNowStation {
	cfg := NewGasNowConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	return &GasNowStation{
		transport: transport,
		url:       cfg.URL,
		cache:     newExpiryCache[GasNowResponse](cfg.RateLimit),
		now:       time.Now,
	}
}

func (s *GasNowStation) gasPrice(ctx context.Context) (GasNowResponse, error) {
	resp, cached, err := s.cache.getOrUpdateAt(s.now(), func() (resp GasNowResponse, err error) {
		err = s.transport.GetJSON(ctx, s.url, nil, &resp)
		return resp, err
	})

	if err != nil {
		if cached {
			return resp, newError(
				KindUpstream, err, "previous gasnow response was error and cache has not yet expired",
			)
		}

		return resp, newError(KindUpstream, err, "failed to get gasnow gas price")
	}

	if !cached {
		logrus.WithField("data", resp.Data).Debug("GasNow gas prices updated")
	}

	return resp, nil
}

func (s *GasNowStation) EstimateWithLimits(
	ctx context.Context, gasLimit float64, timeLimit time.Duration,
) (price types.EstimatedGasPrice, err error) {
	defer func() {
		metrics.Registry.Estimator.Update("gasnow", err)
	}()

	resp, err := s.gasPrice(ctx)
	if err != nil {
		return types.EstimatedGasPrice{}, err
	}

	return EstimateGasNow(timeLimit, resp.Data)
}
