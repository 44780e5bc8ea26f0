package metrics

import (
	"fmt"

	"github.com/ethereum/go-ethereum/metrics"
)

// DefaultRegistry is the geth default registry, which go-conflux-util reports to
// InfluxDB once metrics are enabled in config.
var DefaultRegistry = metrics.DefaultRegistry

func GetOrRegisterCounter(nameFormat string, nameArgs ...interface{}) metrics.Counter {
	name := fmt.Sprintf(nameFormat, nameArgs...)
	return metrics.GetOrRegisterCounter(name, DefaultRegistry)
}

func GetOrRegisterGauge(nameFormat string, nameArgs ...interface{}) metrics.Gauge {
	name := fmt.Sprintf(nameFormat, nameArgs...)
	return metrics.GetOrRegisterGauge(name, DefaultRegistry)
}

func GetOrRegisterGaugeFloat64(nameFormat string, nameArgs ...interface{}) metrics.GaugeFloat64 {
	name := fmt.Sprintf(nameFormat, nameArgs...)
	return metrics.GetOrRegisterGaugeFloat64(name, DefaultRegistry)
}

func NewHistogram() metrics.Histogram {
	return metrics.NewHistogram(metrics.NewExpDecaySample(1024, 0.015))
}

func GetOrRegisterHistogram(nameFormat string, nameArgs ...interface{}) metrics.Histogram {
	name := fmt.Sprintf(nameFormat, nameArgs...)
	return DefaultRegistry.GetOrRegister(name, NewHistogram).(metrics.Histogram)
}

func GetOrRegisterTimer(nameFormat string, nameArgs ...interface{}) metrics.Timer {
	name := fmt.Sprintf(nameFormat, nameArgs...)
	return metrics.GetOrRegisterTimer(name, DefaultRegistry)
}
