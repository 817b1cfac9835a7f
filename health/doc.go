// Package health reports whether the cache service can do its job.
//
// A Checker inspects one dependency and returns a Result with a Status:
// Healthy, Degraded (serving, but cache hits are unlikely or the store is
// being bypassed) or Unhealthy. An Aggregator runs every registered
// checker concurrently under a deadline and folds the results into a
// Report.
//
// # Checkers
//
//   - StoreChecker: round-trips a probe key through a cache.Store and
//     reports a tripped circuit breaker as degraded.
//   - EpochChecker: reports an unpublished or mismatched classifier epoch as
//     degraded, since every suggestion read would then miss.
//   - PingChecker: wraps anything with a Ping method, such as the document
//     database.
//
// # HTTP
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewStoreChecker("cache", store))
//	agg.Register(health.NewEpochChecker(epoch, store))
//	health.RegisterHandlers(mux, agg)
//
// /healthz always answers 200, /readyz answers 503 when any check is
// unhealthy, and /health returns the full Report as JSON.
package health
