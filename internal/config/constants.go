package config

// Environment variables that override config.json.
const (
	EnvConfigDir    = "RONEXPORT_CONFIG_DIR"
	EnvHost         = "RONEXPORT_HOST"
	EnvOutputDir    = "RONEXPORT_OUTPUT_DIR"
	EnvRetries      = "RONEXPORT_RETRIES"
	EnvTimeout      = "RONEXPORT_TIMEOUT"
	EnvSkipSelf     = "RONEXPORT_SKIP_SELF"
	EnvAPIKey       = "RONEXPORT_API_KEY"
	EnvOtelEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Keys accepted by Config.Set, in display order.
var Keys = []string{"host", "output_dir", "retries", "timeout", "skip_self", "otel_endpoint"}
