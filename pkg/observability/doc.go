/*
Package observability turns engine lifecycle events into Prometheus metrics
and structured log records.

Both helpers return a domain.LifecycleHooks value; combine them with Merge and
pass the result to the engine:

	m := observability.NewMetrics(observability.WithRegisterer(reg))
	hooks := m.Hooks().Merge(observability.LogHooks(logger))
	eng := coach.New(coach.WithLifecycleHooks(hooks))
*/
package observability
