package config

import (
	"github.com/Conflux-Chain/gas-estimation/util/pprof"
	rpcutil "github.com/Conflux-Chain/gas-estimation/util/rpc"
	"github.com/Conflux-Chain/go-conflux-util/config"
)

// Read system environment variables prefixed with "GASEST".
// eg., `GASEST_ETH_HTTP` will override "eth.http" config item from the config file.
const viperEnvPrefix = "gasest"

func Init() {
	// init utilities eg., viper, alert, metrics and logging
	config.MustInit(viperEnvPrefix)

	pprof.MustInit()

	// init node and vendor clients
	rpcutil.MustInit()
}
