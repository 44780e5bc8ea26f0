package pprof

import (
	"net"
	"net/http"
	_ "net/http/pprof"

	"github.com/Conflux-Chain/go-conflux-util/viper"
	"github.com/sirupsen/logrus"
)

type config struct {
	Enabled  bool
	Endpoint string `default:"127.0.0.1:6060"`
}

// MustInit serves runtime profiling data if enabled, which helps to inspect the
// background refreshers of a long running watch.
func MustInit() {
	var cfg config
	viper.MustUnmarshalKey("pprof", &cfg)

	if !cfg.Enabled {
		return
	}

	l, err := net.Listen("tcp", cfg.Endpoint)
	if err != nil {
		logrus.WithError(err).WithField("endpoint", cfg.Endpoint).Fatal("Failed to listen pprof endpoint")
	}

	logrus.WithField("endpoint", cfg.Endpoint).Info("Serving pprof")

	go func() {
		defer l.Close()

		if err := http.Serve(l, nil); err != nil {
			logrus.WithError(err).Warn("Pprof server terminated")
		}
	}()
}
