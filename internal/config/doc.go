/*
Package config loads and validates rangecache configuration.

Settings are layered with increasing precedence:

	defaults (NewDefault)
	  -> YAML file (LoadFromFile)
	    -> environment (LoadFromEnv, RANGECACHE_*)

Load applies all three and validates the result.

# Sections

	global:
	  log_level: INFO          # DEBUG, INFO, WARN, ERROR
	  log_format: text         # text or json
	  log_file: ""             # empty logs to stderr, otherwise rotated by lumberjack
	  metrics_port: 9100
	cache:
	  total_size: 512MiB       # read plus write cache bound
	  write_size: 128MiB       # dirty data bound, at most total_size
	  min_fetch_size: 1MiB     # smallest remote read on a miss
	storage:
	  uri: s3://bucket/prefix  # or mem://name
	  s3:
	    region: us-west-2
	    endpoint: ""
	    force_path_style: false
	network:
	  timeouts:
	    read: 30s
	    write: 5m
	  retry:
	    max_attempts: 3
	    base_delay: 100ms
	    max_delay: 5s
	monitoring:
	  metrics:
	    enabled: false
	    path: /metrics
	    namespace: rangecache

Sizes accept any unit understood by go-humanize ("64KiB", "2GB", "1048576").

# Conversions

The configuration converts into the types consumed by other packages:
EngineConfig for cache.New, RetryConfig for retry.New, MetricsConfig for
metrics.NewCollector and LoggerConfig for utils.NewStructuredLogger.
*/
package config
