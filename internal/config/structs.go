//nolint:lll
package config

// Config represents the complete configuration for checkcode.
// It covers every command (generate, scan, batch, serve) and is loaded from
// configuration files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Render   RenderConfig   `mapstructure:"render" yaml:"render" json:"render"`
	Registry RegistryConfig `mapstructure:"registry" yaml:"registry" json:"registry"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	Scan  ScanConfig  `mapstructure:"scan" yaml:"scan" json:"scan"`
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
}

// RenderConfig contains generation pipeline settings.
type RenderConfig struct {
	Size            int     `mapstructure:"size" yaml:"size" json:"size"`
	ErrorCorrection string  `mapstructure:"error_correction" yaml:"error_correction" json:"error_correction"`
	LogoRatio       float64 `mapstructure:"logo_ratio" yaml:"logo_ratio" json:"logo_ratio"`
	LogoPolicy      string  `mapstructure:"logo_policy" yaml:"logo_policy" json:"logo_policy"`
	VerifyOutput    bool    `mapstructure:"verify_output" yaml:"verify_output" json:"verify_output"`
	Background      string  `mapstructure:"background" yaml:"background" json:"background"`
}

// RegistryConfig selects the registry backend.
type RegistryConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend" json:"backend"`
	Path       string `mapstructure:"path" yaml:"path" json:"path"`
	DSN        string `mapstructure:"dsn" yaml:"dsn" json:"dsn"`
	URL        string `mapstructure:"url" yaml:"url" json:"url"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	// CacheTTL is the lookup cache lifetime in seconds; 0 disables the cache.
	CacheTTL int `mapstructure:"cache_ttl" yaml:"cache_ttl" json:"cache_ttl"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int  `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int  `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// ScanConfig contains decoder settings.
type ScanConfig struct {
	TryHarder   bool `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
	QuietZone   int  `mapstructure:"quiet_zone" yaml:"quiet_zone" json:"quiet_zone"`
	FrameBuffer int  `mapstructure:"frame_buffer" yaml:"frame_buffer" json:"frame_buffer"`
}

// BatchConfig contains batch verification settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}
