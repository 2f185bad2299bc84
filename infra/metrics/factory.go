package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/studyplan/core/factory"
	coremetrics "github.com/kilianp07/studyplan/core/metrics"
)

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})

	// The listen address in the prometheus conf is read by the command layer
	// for StartPromServer; the sink itself only registers collectors.
	_ = coremetrics.RegisterMetricsSink("prometheus", func(map[string]any) (coremetrics.MetricsSink, error) {
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c struct {
			URL    string `json:"url"`
			Token  string `json:"token"`
			Org    string `json:"org"`
			Bucket string `json:"bucket"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	})
}

// PromAddr returns the listen address of the first prometheus sink that
// sets one, or "" when none does.
func PromAddr(cfgs []factory.ModuleConfig) string {
	for _, c := range cfgs {
		if c.Type != "prometheus" {
			continue
		}
		var pc struct {
			Addr string `json:"addr"`
		}
		if err := factory.Decode(c.Conf, &pc); err == nil && pc.Addr != "" {
			return pc.Addr
		}
	}
	return ""
}
