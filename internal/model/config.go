package model

import "time"

// Config is the complete backcheck configuration.
// Field tags serve both viper (mapstructure) and `config show` (yaml).
type Config struct {
	Chunking  ChunkingConfig  `yaml:"chunking" mapstructure:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Semantic  SemanticConfig  `yaml:"semantic" mapstructure:"semantic"`
	Judge     JudgeConfig     `yaml:"judge" mapstructure:"judge"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// ChunkingConfig controls sentence-bounded windowing
type ChunkingConfig struct {
	SizeWords    int `yaml:"size_words" mapstructure:"size_words"`
	OverlapWords int `yaml:"overlap_words" mapstructure:"overlap_words"`
}

// EmbeddingConfig selects the text-embedding service
type EmbeddingConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // hash, openai, ollama
	Model     string `yaml:"model,omitempty" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Dimension int    `yaml:"dimension" mapstructure:"dimension"`
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
}

// FilterPolicy decides what happens to evidence that never names the character
type FilterPolicy string

const (
	FilterStrict FilterPolicy = "strict" // drop non-mentioning evidence
	FilterBoost  FilterPolicy = "boost"  // keep all, boost mentions
	FilterOff    FilterPolicy = "off"
)

// QualityWeights are the linear weights of the evidence quality score
type QualityWeights struct {
	Similarity     float64 `yaml:"similarity" mapstructure:"similarity"`
	EntityOverlap  float64 `yaml:"entity_overlap" mapstructure:"entity_overlap"`
	ContentDensity float64 `yaml:"content_density" mapstructure:"content_density"`
	Position       float64 `yaml:"position" mapstructure:"position"`
}

// RetrievalConfig controls multi-query evidence retrieval
type RetrievalConfig struct {
	TopK            int            `yaml:"top_k" mapstructure:"top_k"`
	CandidateFactor int            `yaml:"candidate_factor" mapstructure:"candidate_factor"`
	CharacterFilter FilterPolicy   `yaml:"character_filter" mapstructure:"character_filter"`
	CharacterBoost  float64        `yaml:"character_boost" mapstructure:"character_boost"`
	CausalRerank    bool           `yaml:"causal_rerank" mapstructure:"causal_rerank"`
	Weights         QualityWeights `yaml:"weights" mapstructure:"weights"`
}

// SemanticConfig tunes contradiction detection
type SemanticConfig struct {
	LexiconPath           string  `yaml:"lexicon_path,omitempty" mapstructure:"lexicon_path"`
	NegationMinSimilarity float64 `yaml:"negation_min_similarity" mapstructure:"negation_min_similarity"`
	AntonymMinSimilarity  float64 `yaml:"antonym_min_similarity" mapstructure:"antonym_min_similarity"`
	NegationWindow        int     `yaml:"negation_window" mapstructure:"negation_window"`
}

// JudgeConfig holds heuristic thresholds and the LLM-path policy
type JudgeConfig struct {
	Mode                string  `yaml:"mode" mapstructure:"mode"` // auto, heuristic, llm
	HighQuality         float64 `yaml:"high_quality" mapstructure:"high_quality"`
	VeryHighQuality     float64 `yaml:"very_high_quality" mapstructure:"very_high_quality"`
	StrongSimilarity    float64 `yaml:"strong_similarity" mapstructure:"strong_similarity"`
	StrongRatio         float64 `yaml:"strong_ratio" mapstructure:"strong_ratio"`
	ModerateSimilarity  float64 `yaml:"moderate_similarity" mapstructure:"moderate_similarity"`
	ModerateRatio       float64 `yaml:"moderate_ratio" mapstructure:"moderate_ratio"`
	WeakSimilarity      float64 `yaml:"weak_similarity" mapstructure:"weak_similarity"`
	LowSimilarity       float64 `yaml:"low_similarity" mapstructure:"low_similarity"`
	MaxEvidenceInPrompt int     `yaml:"max_evidence_in_prompt" mapstructure:"max_evidence_in_prompt"`
	MaxRetries          int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// LLMConfig selects the text-completion service
type LLMConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (heuristic only)
	Model             string  `yaml:"model,omitempty" mapstructure:"model"`
	APIKey            string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout           int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// HTTPConfig configures novel downloads
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRedirects  int           `yaml:"max_redirects" mapstructure:"max_redirects"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the embedding and fetch caches
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// BatchConfig configures multi-case evaluation
type BatchConfig struct {
	Workers           int  `yaml:"workers" mapstructure:"workers"`
	CheckpointEvery   int  `yaml:"checkpoint_every" mapstructure:"checkpoint_every"`
	IncludeConfidence bool `yaml:"include_confidence" mapstructure:"include_confidence"`
}

// StoreConfig points at the run-history database
type StoreConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig configures slog output
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file,omitempty" mapstructure:"file"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() Config {
	return Config{
		Chunking: ChunkingConfig{
			SizeWords:    1000,
			OverlapWords: 200,
		},
		Embedding: EmbeddingConfig{
			Provider:  "hash",
			Dimension: 384,
			BatchSize: 64,
			Timeout:   60,
		},
		Retrieval: RetrievalConfig{
			TopK:            10,
			CandidateFactor: 2,
			CharacterFilter: FilterStrict,
			CharacterBoost:  0.10,
			Weights:         DefaultQualityWeights(),
		},
		Semantic: SemanticConfig{
			NegationMinSimilarity: 0.65,
			AntonymMinSimilarity:  0.45,
			NegationWindow:        2,
		},
		Judge: DefaultJudgeConfig(),
		LLM: LLMConfig{
			Timeout:           60,
			MaxTokens:         1000,
			RequestsPerSecond: 2,
			Burst:             1,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "backcheck/0.1 (+https://github.com/ppiankov/backcheck)",
			MaxBodyBytes:  32 << 20,
			MaxRedirects:  5,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".backcheck/cache",
			MemoryTTL: time.Hour,
			DiskTTL:   30 * 24 * time.Hour,
		},
		Batch: BatchConfig{
			Workers:         4,
			CheckpointEvery: 5,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    ".backcheck/runs.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Redacted returns a copy of c without credentials, safe to persist
func (c Config) Redacted() Config {
	if c.Embedding.APIKey != "" {
		c.Embedding.APIKey = "***"
	}
	if c.LLM.APIKey != "" {
		c.LLM.APIKey = "***"
	}
	return c
}

// DefaultQualityWeights returns the 0.70/0.15/0.05/0.10 quality weighting
func DefaultQualityWeights() QualityWeights {
	return QualityWeights{
		Similarity:     0.70,
		EntityOverlap:  0.15,
		ContentDensity: 0.05,
		Position:       0.10,
	}
}

// DefaultJudgeConfig returns the heuristic decision-table thresholds
func DefaultJudgeConfig() JudgeConfig {
	return JudgeConfig{
		Mode:                "auto",
		HighQuality:         0.65,
		VeryHighQuality:     0.75,
		StrongSimilarity:    0.70,
		StrongRatio:         0.65,
		ModerateSimilarity:  0.65,
		ModerateRatio:       0.55,
		WeakSimilarity:      0.60,
		LowSimilarity:       0.35,
		MaxEvidenceInPrompt: 10,
		MaxRetries:          1,
	}
}
