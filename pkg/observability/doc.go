/*
Package observability turns engine lifecycle events into Prometheus metrics
and structured log lines.

Both are plain domain.LifecycleHooks and compose with Merge:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := metrics.Hooks().Merge(observability.LogHooks(logger))
	eng, _ := holon.New("./flows", holon.WithLifecycleHooks(hooks))
*/
package observability
