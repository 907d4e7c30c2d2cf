package file

import (
	"os"
	"path/filepath"
	"time"

	"github.com/lifedex/lifedex/internal/core/domain"
)

// AppConfig is the typed view of the lifedex config file. Every field has a
// working default so a missing or empty config.toml yields a usable local
// setup (minus the AI-backed digesters, which need endpoints and keys).
type AppConfig struct {
	// RootDir is the data directory holding inbox/, archive/ and the
	// metadata database. Defaults to ~/.lifedex/data.
	RootDir string

	Worker domain.WorkerConfig

	Search SearchConfig

	HAID HAIDConfig

	OpenAI OpenAIConfig

	Qdrant QdrantConfig

	Meilisearch MeilisearchConfig
}

// SearchConfig holds hybrid search tuning.
type SearchConfig struct {
	Limit          int
	KeywordWeight  float64
	SemanticWeight float64
}

// HAIDConfig points at the self-hosted inference server.
type HAIDConfig struct {
	BaseURL           string
	APIKey            string
	RequestsPerSecond float64
	Burst             int
}

// OpenAIConfig configures the completion and embedding services. BaseURL
// may point at any OpenAI-compatible server.
type OpenAIConfig struct {
	BaseURL             string
	APIKey              string
	CompletionModel     string
	EmbeddingModel      string
	EmbeddingDimensions int
}

// QdrantConfig locates the vector index.
type QdrantConfig struct {
	URL        string
	Collection string
}

// MeilisearchConfig locates the keyword index.
type MeilisearchConfig struct {
	Host   string
	APIKey string
	Index  string
}

// LoadAppConfig reads config.toml via the store and fills in defaults for
// anything unset.
func LoadAppConfig(store *ConfigStore) AppConfig {
	cfg := AppConfig{
		Worker: domain.DefaultWorkerConfig(),
		Search: SearchConfig{
			Limit:          20,
			KeywordWeight:  0.5,
			SemanticWeight: 0.5,
		},
		OpenAI: OpenAIConfig{
			CompletionModel: "gpt-4o-mini",
			EmbeddingModel:  "text-embedding-3-small",
		},
	}

	if home, err := os.UserHomeDir(); err == nil {
		cfg.RootDir = filepath.Join(home, ".lifedex", "data")
	}

	if v := store.GetString("root_dir"); v != "" {
		cfg.RootDir = v
	}

	applyDuration(store, "worker.poll_interval", &cfg.Worker.PollInterval)
	applyDuration(store, "worker.idle_sleep", &cfg.Worker.IdleSleep)
	applyDuration(store, "worker.backoff_base", &cfg.Worker.BackoffBase)
	applyDuration(store, "worker.backoff_cap", &cfg.Worker.BackoffCap)
	applyDuration(store, "worker.stale_digest_after", &cfg.Worker.StaleDigestAfter)
	applyDuration(store, "worker.stale_lock_after", &cfg.Worker.StaleLockAfter)
	applyDuration(store, "worker.startup_delay", &cfg.Worker.StartupDelay)
	applyDuration(store, "worker.shutdown_grace", &cfg.Worker.ShutdownGrace)

	if v := store.GetInt("search.limit"); v > 0 {
		cfg.Search.Limit = v
	}
	if v := store.GetFloat("search.keyword_weight"); v > 0 {
		cfg.Search.KeywordWeight = v
	}
	if v := store.GetFloat("search.semantic_weight"); v > 0 {
		cfg.Search.SemanticWeight = v
	}

	cfg.HAID.BaseURL = store.GetString("haid.base_url")
	cfg.HAID.APIKey = store.GetString("haid.api_key")
	cfg.HAID.RequestsPerSecond = store.GetFloat("haid.requests_per_second")
	cfg.HAID.Burst = store.GetInt("haid.burst")

	cfg.OpenAI.BaseURL = store.GetString("openai.base_url")
	cfg.OpenAI.APIKey = store.GetString("openai.api_key")
	if v := store.GetString("openai.completion_model"); v != "" {
		cfg.OpenAI.CompletionModel = v
	}
	if v := store.GetString("openai.embedding_model"); v != "" {
		cfg.OpenAI.EmbeddingModel = v
	}
	cfg.OpenAI.EmbeddingDimensions = store.GetInt("openai.embedding_dimensions")

	cfg.Qdrant.URL = store.GetString("qdrant.url")
	cfg.Qdrant.Collection = store.GetString("qdrant.collection")

	cfg.Meilisearch.Host = store.GetString("meilisearch.host")
	cfg.Meilisearch.APIKey = store.GetString("meilisearch.api_key")
	cfg.Meilisearch.Index = store.GetString("meilisearch.index")

	return cfg
}

// applyDuration parses a duration string like "30s" or "10m" into dst,
// leaving the default in place when the key is absent or malformed.
func applyDuration(store *ConfigStore, key string, dst *time.Duration) {
	raw := store.GetString(key)
	if raw == "" {
		return
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return
	}
	*dst = d
}
