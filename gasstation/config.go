package gasstation

import (
	"time"

	"github.com/Conflux-Chain/go-conflux-util/viper"
	"github.com/mcuadros/go-defaults"
)

// Config is the gas station configuration loaded from the `gasStation` key.
type Config struct {
	// Names of the estimators to try in order, among `native`, `node`, `blocknative`,
	// `gasnow` and `gasnow-ws`.
	Priority    []string
	Native      NativeConfig
	BlockNative BlockNativeConfig
	GasNow      GasNowConfig
}

type NativeConfig struct {
	// sampled percentile range of exponentially weighted base fee history
	SampleMinPercentile float64 `default:"10"`
	SampleMaxPercentile float64 `default:"30"`
	// effective reward percentiles requested from each individual block
	MaxRewardPercentile int `default:"20"`
	// economical and urgent priority fee percentiles selected from the sorted rewards
	MinBlockPercentile float64 `default:"30"`
	MaxBlockPercentile float64 `default:"60"`
	// highest time factor of the suggestions, must be a power of 2
	MaxTimeFactor float64 `default:"128"`
	// extra priority fee offered in case of expected base fee rise
	ExtraPriorityFeeRatio float64 `default:"0.25"`
	ExtraPriorityFeeBoost float64 `default:"1559"`
	// priority fee offered when there are no recent transactions
	FallbackPriorityFee float64 `default:"2000000000"`
	BumpCapCoefficient  float64 `default:"2"`
	// number of blocks of base fee history
	FeeHistoryBlocks uint64 `default:"300"`
	// number of non-full blocks to sample rewards from
	RewardBlocks int `default:"5"`

	RefreshInterval time.Duration `default:"5s"`
	Validity        time.Duration `default:"60s"`
	TimePerBlock    time.Duration `default:"15s"`
}

func NewNativeConfig() NativeConfig {
	var cfg NativeConfig
	defaults.SetDefaults(&cfg)
	return cfg
}

type BlockNativeConfig struct {
	URL      string        `default:"https://api.blocknative.com/gasprices/blockprices"`
	ApiKey   string
	Interval time.Duration `default:"10s"`
	Validity time.Duration `default:"60s"`
}

func NewBlockNativeConfig() BlockNativeConfig {
	var cfg BlockNativeConfig
	defaults.SetDefaults(&cfg)
	return cfg
}

type GasNowConfig struct {
	URL          string `default:"https://www.gasnow.org/api/v3/gas/price"`
	WebSocketURL string `default:"wss://etherchain.org/api/gasnow"`
	// minimum interval between two HTTP requests
	RateLimit time.Duration `default:"15s"`
	// max age of the last WebSocket update, also used as connect and read timeout
	MaxUpdateAge      time.Duration `default:"60s"`
	ReconnectInterval time.Duration `default:"15s"`
}

func NewGasNowConfig() GasNowConfig {
	var cfg GasNowConfig
	defaults.SetDefaults(&cfg)
	return cfg
}

func NewConfig() Config {
	return Config{
		Priority:    []string{"native", "node"},
		Native:      NewNativeConfig(),
		BlockNative: NewBlockNativeConfig(),
		GasNow:      NewGasNowConfig(),
	}
}

func MustNewConfigFromViper() Config {
	cfg := NewConfig()
	viper.MustUnmarshalKey("gasStation", &cfg)
	return cfg
}
