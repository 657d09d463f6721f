/*
Package adapter assembles a working rangecache instance from configuration.

	┌─────────────────────────────────────────────┐
	│          CLI / embedding program            │
	└─────────────────────────────────────────────┘
	                      │ Open · Stat · Stop
	┌─────────────────────────────────────────────┐
	│                  Adapter                    │
	│  URI resolution · lifecycle · wiring        │
	└─────────────────────────────────────────────┘
	        │            │            │
	┌───────┴─────┐ ┌────┴─────┐ ┌────┴────────┐
	│   Backend   │ │  Engine  │ │  Metrics    │
	│ s3 / memory │ │ (cache)  │ │ (Prometheus)│
	└─────────────┘ └──────────┘ └─────────────┘

# Storage URIs

	s3://bucket[/prefix]   Amazon S3 or a compatible endpoint (storage.s3 section)
	mem://name[/prefix]    process-wide in-memory store, shared by name

File paths given to Open and Stat are joined below the prefix.

# Lifecycle

New parses the URI and validates the configuration without side effects.
Start builds, in order, the logger, the metrics collector (serving HTTP when
monitoring.metrics.enabled is set), the retryer, the store circuit breaker
(network.circuit_breaker), the backend and the cache engine. Stop
flushes every dirty view through the engine, stops the metrics server and
closes the log file; all failures are reported together.

# Usage

	cfg, err := config.Load("rangecache.yaml")
	a, err := adapter.New(ctx, "s3://my-bucket/data", cfg)
	if err := a.Start(ctx); err != nil { ... }
	defer a.Stop(ctx)

	f, err := a.Open(ctx, "logs/app.log", os.O_RDWR|os.O_APPEND)
	f.Write([]byte("entry\n"))
	f.Close()

Open creates a fresh cache view per handle; handles on the same path share
the read cache and see each other's writes once flushed.
*/
package adapter
