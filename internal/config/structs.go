//nolint:lll
package config

// Config represents the complete configuration for ctcbeam. It covers every
// command (decode, batch, serve, bench) and is loaded from configuration
// files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Alphabet source
	Alphabet AlphabetConfig `mapstructure:"alphabet" yaml:"alphabet" json:"alphabet"`

	// Decoder configuration
	Decoder DecoderConfig `mapstructure:"decoder" yaml:"decoder" json:"decoder"`

	// Optional acoustic model producing the matrices
	Model ModelConfig `mapstructure:"model" yaml:"model" json:"model"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Rate limiting for the server
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// Benchmark workload
	Bench BenchConfig `mapstructure:"bench" yaml:"bench" json:"bench"`

	// GPU configuration
	GPU GPUConfig `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
}

// AlphabetConfig selects the alphabet. Inline wins over dictionary files.
type AlphabetConfig struct {
	Inline    string `mapstructure:"inline" yaml:"inline" json:"inline"`
	DictPaths string `mapstructure:"dict_paths" yaml:"dict_paths" json:"dict_paths"`
	Blank     string `mapstructure:"blank" yaml:"blank" json:"blank"`
}

// DecoderConfig contains beam search and post-processing settings.
type DecoderConfig struct {
	BeamSize      int     `mapstructure:"beam_size" yaml:"beam_size" json:"beam_size"`
	BlankCutoff   float32 `mapstructure:"blank_cutoff" yaml:"blank_cutoff" json:"blank_cutoff"`
	LabelCutoff   float32 `mapstructure:"label_cutoff" yaml:"label_cutoff" json:"label_cutoff"`
	Normalize     string  `mapstructure:"normalize" yaml:"normalize" json:"normalize"`
	TopK          int     `mapstructure:"top_k" yaml:"top_k" json:"top_k"`
	CompareGreedy bool    `mapstructure:"compare_greedy" yaml:"compare_greedy" json:"compare_greedy"`
	CleanText     bool    `mapstructure:"clean_text" yaml:"clean_text" json:"clean_text"`
	UnicodeForm   string  `mapstructure:"unicode_form" yaml:"unicode_form" json:"unicode_form"`
	Workers       int     `mapstructure:"workers" yaml:"workers" json:"workers"`
}

// ModelConfig points at an ONNX acoustic model.
type ModelConfig struct {
	Path       string `mapstructure:"path" yaml:"path" json:"path"`
	NumThreads int    `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	// Dir is searched for model and dictionary names that are not paths
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format  string `mapstructure:"format" yaml:"format" json:"format"`
	File    string `mapstructure:"file" yaml:"file" json:"file"`
	Heatmap string `mapstructure:"heatmap" yaml:"heatmap" json:"heatmap"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	MaxBatch        int    `mapstructure:"max_batch" yaml:"max_batch" json:"max_batch"`
	MaxBeamSize     int    `mapstructure:"max_beam_size" yaml:"max_beam_size" json:"max_beam_size"`
	MaxAlphabetSize int    `mapstructure:"max_alphabet_size" yaml:"max_alphabet_size" json:"max_alphabet_size"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// RateLimitConfig contains per-client request limits and daily quotas.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int64 `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
}

// BenchConfig describes the synthetic benchmark workload.
type BenchConfig struct {
	BeamSizes  []int   `mapstructure:"beam_sizes" yaml:"beam_sizes" json:"beam_sizes"`
	Timesteps  int     `mapstructure:"timesteps" yaml:"timesteps" json:"timesteps"`
	Classes    int     `mapstructure:"classes" yaml:"classes" json:"classes"`
	Matrices   int     `mapstructure:"matrices" yaml:"matrices" json:"matrices"`
	Iterations int     `mapstructure:"iterations" yaml:"iterations" json:"iterations"`
	Peak       float32 `mapstructure:"peak" yaml:"peak" json:"peak"`
	Seed       int64   `mapstructure:"seed" yaml:"seed" json:"seed"`
}

// GPUConfig contains GPU acceleration settings for the acoustic model.
type GPUConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Device      int    `mapstructure:"device" yaml:"device" json:"device"`
	MemoryLimit string `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit"`
}
