package model

import "time"

// Config is the complete clausecheck configuration
type Config struct {
	Converter   ConverterConfig   `json:"converter" yaml:"converter"`
	Retrieval   RetrievalConfig   `json:"retrieval" yaml:"retrieval"`
	LLM         LLMConfig         `json:"llm" yaml:"llm"`
	Cache       CacheConfig       `json:"cache" yaml:"cache"`
	Critics     CriticsConfig     `json:"critics" yaml:"critics"`
	Concurrency ConcurrencyConfig `json:"concurrency" yaml:"concurrency"`
	Output      OutputConfig      `json:"output" yaml:"output"`
}

// ConverterConfig configures the document conversion service client
type ConverterConfig struct {
	BaseURL      string        `json:"base_url" yaml:"base_url"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`
	MaxBodyBytes int64         `json:"max_body_bytes" yaml:"max_body_bytes"`
	MaxRetries   int           `json:"max_retries" yaml:"max_retries"`
	HTTPProxy    string        `json:"http_proxy,omitempty" yaml:"http_proxy,omitempty"`
	HTTPSProxy   string        `json:"https_proxy,omitempty" yaml:"https_proxy,omitempty"`
	NoProxy      string        `json:"no_proxy,omitempty" yaml:"no_proxy,omitempty"`
}

// RetrievalConfig configures candidate selection
type RetrievalConfig struct {
	TopK          int     `json:"top_k" yaml:"top_k"`
	Window        int     `json:"window" yaml:"window"`
	K1            float64 `json:"k1" yaml:"k1"`
	B             float64 `json:"b" yaml:"b"`
	HybridAlpha   float64 `json:"hybrid_alpha" yaml:"hybrid_alpha"`
	UseEmbeddings bool    `json:"use_embeddings" yaml:"use_embeddings"`
	// EmbeddingURL overrides the embedding endpoint; empty means the
	// LLM provider's default endpoint.
	EmbeddingURL   string `json:"embedding_url,omitempty" yaml:"embedding_url,omitempty"`
	EmbeddingModel string `json:"embedding_model,omitempty" yaml:"embedding_model,omitempty"`
}

// LLMConfig configures the model judge
type LLMConfig struct {
	Provider       string  `json:"provider" yaml:"provider"`
	Model          string  `json:"model" yaml:"model"`
	APIKey         string  `json:"-" yaml:"-"`
	BaseURL        string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Timeout        int     `json:"timeout" yaml:"timeout"`
	MaxTokens      int     `json:"max_tokens" yaml:"max_tokens"`
	MaxRetries     int     `json:"max_retries" yaml:"max_retries"`
	Temperature    float64 `json:"temperature" yaml:"temperature"`
	RatePerSecond  float64 `json:"rate_per_second" yaml:"rate_per_second"`
	HTTPProxy      string  `json:"http_proxy,omitempty" yaml:"http_proxy,omitempty"`
	HTTPSProxy     string  `json:"https_proxy,omitempty" yaml:"https_proxy,omitempty"`
	NoProxy        string  `json:"no_proxy,omitempty" yaml:"no_proxy,omitempty"`
}

// CacheConfig configures the embedding cache
type CacheConfig struct {
	Enabled   bool          `json:"enabled" yaml:"enabled"`
	Dir       string        `json:"dir" yaml:"dir"`
	MemoryTTL time.Duration `json:"memory_ttl" yaml:"memory_ttl"`
	DiskTTL   time.Duration `json:"disk_ttl" yaml:"disk_ttl"`
}

// CriticsConfig configures the quality-gate stages
type CriticsConfig struct {
	Enabled    bool `json:"enabled" yaml:"enabled"`
	MaxReruns  int  `json:"max_reruns" yaml:"max_reruns"`
	StrictMode bool `json:"strict_mode" yaml:"strict_mode"`
}

// ConcurrencyConfig configures batch processing
type ConcurrencyConfig struct {
	BatchWorkers int `json:"batch_workers" yaml:"batch_workers"`
}

// OutputConfig configures report rendering
type OutputConfig struct {
	Verbose       bool `json:"verbose" yaml:"verbose"`
	IncludeFooter bool `json:"include_footer" yaml:"include_footer"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Converter: ConverterConfig{
			Timeout:      2 * time.Minute,
			MaxBodyBytes: 20_000_000,
			MaxRetries:   3,
		},
		Retrieval: RetrievalConfig{
			TopK:        8,
			Window:      1,
			K1:          1.5,
			B:           0.75,
			HybridAlpha: 0.5,
		},
		LLM: LLMConfig{
			Provider:      "",
			Timeout:       60,
			MaxTokens:     1500,
			MaxRetries:    3,
			Temperature:   0.1,
			RatePerSecond: 2,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "data/indexes",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Critics: CriticsConfig{
			Enabled:    true,
			MaxReruns:  2,
			StrictMode: true,
		},
		Concurrency: ConcurrencyConfig{
			BatchWorkers: 4,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}
