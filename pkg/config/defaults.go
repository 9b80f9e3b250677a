package config

const (
	defaultBudgetMax             = 8000
	defaultL1Threshold           = 10
	defaultHierarchicalThreshold = 0.5
	defaultSpeaker               = "user"
	defaultMaxIngestChars        = 16384

	defaultAPIListen       = ":8084"
	defaultClientAPITarget = "http://localhost:8084"

	defaultSummarizerProvider = "ollama"
	defaultSummarizerTarget   = "http://localhost:11434"
	defaultSummarizerModel    = "llama3.2"

	defaultRecallProvider = "none"

	defaultVectorProvider = "sqlitevec"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "embeddinggemma"
	defaultEmbeddingDimensions = 768

	defaultPersistenceProvider = "none"
	defaultEventStreamProvider = "none"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Engine: EngineConfig{
			BudgetMax:             defaultBudgetMax,
			L1Threshold:           defaultL1Threshold,
			HierarchicalThreshold: defaultHierarchicalThreshold,
			Speaker:               defaultSpeaker,
			MaxIngestChars:        defaultMaxIngestChars,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Summarizer: SummarizerConfig{
			Provider: defaultSummarizerProvider,
			Target:   defaultSummarizerTarget,
			Model:    defaultSummarizerModel,
		},
		Recall: RecallConfig{
			Provider: defaultRecallProvider,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Persistence: PersistenceConfig{
			Provider: defaultPersistenceProvider,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
		},
	}
}
