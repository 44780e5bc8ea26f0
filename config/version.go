package config

import (
	"runtime"

	"github.com/sirupsen/logrus"
)

// Injected with -ldflags at build time.
var (
	Version   string
	GitCommit string
	BuildDate string
)

func DumpVersionInfo() {
	logrus.WithFields(logrus.Fields{
		"version":   Version,
		"gitCommit": GitCommit,
		"buildDate": BuildDate,
		"goVersion": runtime.Version(),
		"os":        runtime.GOOS,
		"arch":      runtime.GOARCH,
	}).Info("gas-estimation")
}
