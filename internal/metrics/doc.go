/*
Package metrics exports cache engine and remote store metrics to Prometheus.

A Collector implements types.MetricsCollector and is handed to the engine with
cache.WithMetrics. It tracks:

  - rangecache_cache_requests_total{tier,result}: lookups served (hit) or not
    served (miss) by the write and read cache tiers
  - rangecache_cache_request_bytes_total{tier,result}: bytes behind those lookups
  - rangecache_cache_evictions_total{tier}: items dropped by the governor
  - rangecache_cache_size_bytes{tier}: current occupancy per tier
  - rangecache_remote_operations_total{operation,status} and the matching
    duration and size histograms for fetch, flush and truncate

Usage:

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled:   true,
		Port:      9100,
		Path:      "/metrics",
		Namespace: "rangecache",
	})
	if err != nil {
		return err
	}
	engine, err := cache.New(cfg, cache.WithMetrics(collector))

Start binds the configured port and serves Path plus a /health endpoint;
Handler returns the same mux for embedding in another server.
*/
package metrics
