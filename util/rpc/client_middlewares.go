package rpc

import (
	"context"
	"strings"
	"time"

	"github.com/Conflux-Chain/gas-estimation/util/metrics"
	providers "github.com/openweb3/go-rpc-provider/provider_wrapper"
	"github.com/sirupsen/logrus"
)

func Url2NodeName(url string) string {
	nodeName := strings.ToLower(url)
	nodeName = strings.TrimPrefix(nodeName, "http://")
	nodeName = strings.TrimPrefix(nodeName, "https://")
	nodeName = strings.TrimPrefix(nodeName, "ws://")
	nodeName = strings.TrimPrefix(nodeName, "wss://")
	return strings.TrimPrefix(nodeName, "/")
}

// MiddlewareHookFlag represents the type for middleware hook flags.
type MiddlewareHookFlag int

const (
	// MiddlewareHookNone represents no middleware hooks enabled.
	MiddlewareHookNone MiddlewareHookFlag = 0

	// MiddlewareHookAll enables all middleware hooks.
	MiddlewareHookAll MiddlewareHookFlag = ^MiddlewareHookFlag(0)

	// MiddlewareHookLog enables logging middleware hook.
	MiddlewareHookLog MiddlewareHookFlag = 1 << iota

	// MiddlewareHookMetrics enables metrics middleware hook.
	MiddlewareHookMetrics
)

func HookMiddlewares(provider *providers.MiddlewarableProvider, url string, flags ...MiddlewareHookFlag) {
	nodeName := Url2NodeName(url)

	flag := MiddlewareHookAll
	if len(flags) > 0 {
		flag = flags[0]
	}

	if flag&MiddlewareHookLog != 0 {
		provider.HookCallContext(middlewareLog(nodeName))
	}

	if flag&MiddlewareHookMetrics != 0 {
		provider.HookCallContext(middlewareMetrics(nodeName))
	}
}

func middlewareMetrics(fullnode string) providers.CallContextMiddleware {
	return func(handler providers.CallContextFunc) providers.CallContextFunc {
		return func(ctx context.Context, result interface{}, method string, args ...interface{}) error {
			start := time.Now()

			err := handler(ctx, result, method, args...)
			metrics.Registry.Client.Update(fullnode, method, err, start)

			return err
		}
	}
}

func middlewareLog(fullnode string) providers.CallContextMiddleware {
	return func(handler providers.CallContextFunc) providers.CallContextFunc {
		return func(ctx context.Context, result interface{}, method string, args ...interface{}) error {
			if !logrus.IsLevelEnabled(logrus.DebugLevel) {
				return handler(ctx, result, method, args...)
			}

			logger := logrus.WithFields(logrus.Fields{
				"fullnode": fullnode,
				"method":   method,
				"args":     args,
			})

			logger.Debug("RPC enter")

			start := time.Now()
			err := handler(ctx, result, method, args...)
			logger = logger.WithField("elapsed", time.Since(start))

			if err != nil {
				logger = logger.WithError(err)
			} else if logrus.IsLevelEnabled(logrus.TraceLevel) {
				logger = logger.WithField("result", result)
			}

			logger.Debug("RPC leave")

			return err
		}
	}
}
