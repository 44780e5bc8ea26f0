package util

import (
	"context"
	"strings"
	"sync"

	"github.com/Conflux-Chain/gas-estimation/gasstation"
	"github.com/Conflux-Chain/gas-estimation/util/rpc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// EstimatorContext holds the clients and gas price sources configured under the
// `gasStation` key.
type EstimatorContext struct {
	Config gasstation.Config

	Eth  *rpc.EthClient
	Http *rpc.JsonClient

	// set if `native` is configured
	Native *gasstation.NativeEstimator
	// sources composed in configured priority
	Priority *gasstation.Priority
}

func MustInitEstimatorContext(ctx context.Context) *EstimatorContext {
	ec, err := NewEstimatorContext(ctx, gasstation.MustNewConfigFromViper())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to init gas price estimators")
	}

	return ec
}

// NewEstimatorContext creates all configured sources concurrently, which fails if any
// source fails to get its first estimate.
func NewEstimatorContext(ctx context.Context, config gasstation.Config) (*EstimatorContext, error) {
	if len(config.Priority) == 0 {
		return nil, errors.New("no gas price source configured")
	}

	ec := &EstimatorContext{Config: config}

	for _, name := range config.Priority {
		switch strings.ToLower(name) {
		case "native", "node":
			if ec.Eth == nil {
				eth, err := rpc.NewEthClient(rpc.EthNodeURL())
				if err != nil {
					return nil, errors.WithMessage(err, "failed to create node client")
				}

				ec.Eth = eth
			}
		case "blocknative", "gasnow":
			if ec.Http == nil {
				ec.Http = rpc.NewJsonClientFromViper()
			}
		case "gasnow-ws":
		default:
			ec.Close()
			return nil, errors.Errorf("unknown gas price source %v", name)
		}
	}

	var (
		mu      sync.Mutex
		sources = make([]gasstation.Estimator, len(config.Priority))
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range config.Priority {
		name := strings.ToLower(name)

		g.Go(func() error {
			source, err := ec.newSource(gctx, name)
			if err != nil {
				return errors.WithMessagef(err, "failed to create gas price source %v", name)
			}

			mu.Lock()
			defer mu.Unlock()

			sources[i] = source
			if native, ok := source.(*gasstation.NativeEstimator); ok {
				ec.Native = native
			}

			logrus.WithField("source", name).Info("Gas price source ready")
			return nil
		})
	}

	err := g.Wait()
	ec.Priority = gasstation.NewPriority(compact(sources)...)

	if err != nil {
		ec.Close()
		return nil, err
	}

	return ec, nil
}

func (ec *EstimatorContext) newSource(ctx context.Context, name string) (gasstation.Estimator, error) {
	config := ec.Config

	switch name {
	case "native":
		return gasstation.NewNativeEstimator(ctx, ec.Eth, config.Native)
	case "node":
		return gasstation.NewEthNode(ec.Eth), nil
	case "blocknative":
		headers := gasstation.BlockNativeAuthHeader(config.BlockNative.ApiKey)
		return gasstation.NewBlockNative(
			ctx, ec.Http, headers, gasstation.WithBlockNativeConfig(config.BlockNative),
		)
	case "gasnow":
		return gasstation.NewGasNowStation(ec.Http, config.GasNow), nil
	default: // gasnow-ws
		ws := gasstation.NewGasNowWebSocket(
			config.GasNow.MaxUpdateAge,
			gasstation.WithGasNowURL(config.GasNow.WebSocketURL),
			gasstation.WithReconnectInterval(config.GasNow.ReconnectInterval),
		)

		waitCtx, cancel := context.WithTimeout(ctx, config.GasNow.MaxUpdateAge)
		defer cancel()

		// keep the feed anyway, which reports not ready until the first update
		if err := ws.WaitForFirstUpdate(waitCtx); err != nil {
			logrus.WithError(err).Warn("No GasNow websocket update received yet")
		}

		return ws, nil
	}
}

func (ec *EstimatorContext) Close() {
	if ec.Priority != nil {
		if err := ec.Priority.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close gas price sources")
		}
	}

	if ec.Eth != nil {
		ec.Eth.Close()
	}
}

func compact(sources []gasstation.Estimator) []gasstation.Estimator {
	var res []gasstation.Estimator
	for _, s := range sources {
		if s != nil {
			res = append(res, s)
		}
	}

	return res
}
