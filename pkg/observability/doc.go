/*
Package observability turns engine lifecycle hooks into Prometheus metrics
and structured log lines.

Both helpers return domain.LifecycleHooks, so they compose with
synthex.WithLifecycleHooks and with each other via LifecycleHooks.Merge.
*/
package observability
