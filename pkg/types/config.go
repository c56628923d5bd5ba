package types

import "time"

// HTTPConfig holds shared HTTP settings for talking to the inference server.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Generation calls on large
	// models are slow; the default is 120s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "bookgen/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// LLMConfig holds settings for the text-generation backend.
type LLMConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIURL is the base URL of the inference server (default
	// "http://localhost:11434"). The generate endpoint is derived from it.
	APIURL string `json:"api_url" yaml:"api_url"`

	// Model is the model identifier passed to the server (e.g. "gemma2:27b").
	Model string `json:"model" yaml:"model"`

	// APIKey is an optional bearer token for authenticated servers.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed generation
	// calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RetryDelay is the base delay between retry attempts (default 5s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay"`

	// Temperature controls sampling randomness (default 0.75).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// TopP controls nucleus sampling (default 0.9).
	TopP float64 `json:"top_p" yaml:"top_p"`

	// NumCtx is the context window size requested from the server
	// (default 8000).
	NumCtx int `json:"num_ctx" yaml:"num_ctx"`
}

// GenerationConfig holds settings for the book assembly stage.
type GenerationConfig struct {
	// OutputDir is the directory for the generated book. Empty means a
	// timestamped directory derived from the topic.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Chapters is the number of chapters to generate (default 5).
	Chapters int `json:"chapters" yaml:"chapters"`

	// SectionDelay is the pause between consecutive section generation
	// calls, to keep a local server responsive (default 1s).
	SectionDelay time.Duration `json:"section_delay" yaml:"section_delay"`
}

// LibraryConfig holds settings for the generated-book library index.
type LibraryConfig struct {
	// LibraryDir is the base directory for the library (contains index/).
	LibraryDir string `json:"library_dir" yaml:"library_dir"`

	// MaxResults is the default maximum number of search results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	LLM        LLMConfig        `json:"llm" yaml:"llm"`
	Generation GenerationConfig `json:"generation" yaml:"generation"`
	Library    LibraryConfig    `json:"library" yaml:"library"`
}
