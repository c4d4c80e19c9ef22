package config

// Config holds all ronexport configuration.
type Config struct {
	Host         string `json:"host"`
	OutputDir    string `json:"output_dir"`
	Retries      int    `json:"retries"`
	Timeout      int    `json:"timeout"` // seconds
	SkipSelf     bool   `json:"skip_self"`
	OtelEndpoint string `json:"otel_endpoint,omitempty"`

	// internal: config dir path used for Save()
	configDir string
}
