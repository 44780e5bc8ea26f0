package rpc

import (
	"time"

	"github.com/Conflux-Chain/go-conflux-util/viper"
	"github.com/mcuadros/go-defaults"
)

var (
	ethClientCfg  clientConfig
	httpClientCfg httpConfig
)

type clientConfig struct {
	Http            string
	Retry           int           `default:"3"`
	RetryInterval   time.Duration `default:"1s"`
	RequestTimeout  time.Duration `default:"3s"`
	MaxConnsPerHost int           `default:"1024"`
}

// httpConfig configures the client used to poll gas price vendor APIs.
type httpConfig struct {
	RequestTimeout  time.Duration `default:"5s"`
	MaxConnsPerHost int           `default:"16"`
	// responses within the TTL are shared between callers of the same url
	CacheTTL  time.Duration `default:"1s"`
	CacheSize int           `default:"64"`
}

type ClientOptioner interface {
	SetRetryCount(retry int)
	SetRetryInterval(retryInterval time.Duration)
	SetRequestTimeout(reqTimeout time.Duration)
	SetMaxConnsPerHost(maxConns int)
	SetHookFlags(flags MiddlewareHookFlag)
}

type baseClientOption struct {
	hookFlags MiddlewareHookFlag
}

func (o *baseClientOption) SetHookFlags(flags MiddlewareHookFlag) {
	o.hookFlags = flags
}

type ClientOption func(opt ClientOptioner)

func WithClientRetryCount(retry int) ClientOption {
	return func(opt ClientOptioner) {
		opt.SetRetryCount(retry)
	}
}

func WithClientRequestTimeout(reqTimeout time.Duration) ClientOption {
	return func(opt ClientOptioner) {
		opt.SetRequestTimeout(reqTimeout)
	}
}

func WithClientRetryInterval(retryInterval time.Duration) ClientOption {
	return func(opt ClientOptioner) {
		opt.SetRetryInterval(retryInterval)
	}
}

func WithClientMaxConnsPerHost(maxConns int) ClientOption {
	return func(opt ClientOptioner) {
		opt.SetMaxConnsPerHost(maxConns)
	}
}

func WithClientHookFlags(flags MiddlewareHookFlag) ClientOption {
	return func(opt ClientOptioner) {
		opt.SetHookFlags(flags)
	}
}

// EthNodeURL returns the configured node url.
func EthNodeURL() string {
	return ethClientCfg.Http
}

func init() {
	defaults.SetDefaults(&ethClientCfg)
	defaults.SetDefaults(&httpClientCfg)
}

func MustInit() {
	viper.MustUnmarshalKey("eth", &ethClientCfg)
	viper.MustUnmarshalKey("http", &httpClientCfg)
}
