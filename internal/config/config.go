package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound indicates that the configuration file does not exist.
var ErrNotFound = errors.New("config not found")

// DirName is the per-user directory holding config and logs.
const DirName = ".humble-doc-cli"

// Supported providers.
const (
	ProviderOpenAI     = "openai"
	ProviderOllama     = "ollama"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

// Tier selects between the higher-quality and the faster model.
type Tier string

const (
	// TierQuality favours output quality over speed and price.
	TierQuality Tier = "quality"
	// TierFast favours speed and price.
	TierFast Tier = "fast"
)

// Model represents a configured LLM model entry.
type Model struct {
	Name      string `json:"name"`
	Provider  string `json:"provider"`
	APIKey    string `json:"apiKey,omitempty"`
	APIKeyEnv string `json:"apiKeyEnv,omitempty"`
	BaseURL   string `json:"baseUrl,omitempty"`
	Tier      Tier   `json:"tier,omitempty"`
	Active    bool   `json:"active,omitempty"`
}

// ResolvedAPIKey returns the inline key, falling back to the environment.
func (m Model) ResolvedAPIKey() string {
	if key := strings.TrimSpace(m.APIKey); key != "" {
		return key
	}
	env := strings.TrimSpace(m.APIKeyEnv)
	if env == "" {
		env = defaultAPIKeyEnv[strings.ToLower(m.Provider)]
	}
	if env == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(env))
}

var defaultAPIKeyEnv = map[string]string{
	ProviderOpenAI:     "OPENAI_API_KEY",
	ProviderGemini:     "GEMINI_API_KEY",
	ProviderOpenRouter: "OPENROUTER_API_KEY",
}

// Generation holds the token budgets and sampling parameters. Temperature
// and TopP are pointers so that an explicit 0 survives WithDefaults and Save.
// VocabularyDir, when set, holds local BPE rank files for offline use.
type Generation struct {
	Encoding          string   `json:"encoding,omitempty"`
	ChunkTokens       int      `json:"chunkTokens,omitempty"`
	GenerateMaxTokens int      `json:"generateMaxTokens,omitempty"`
	EditMaxTokens     int      `json:"editMaxTokens,omitempty"`
	SummaryMaxTokens  int      `json:"summaryMaxTokens,omitempty"`
	MergeMaxTokens    int      `json:"mergeMaxTokens,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	TopP              *float64 `json:"topP,omitempty"`
	TimeoutSeconds    int      `json:"timeoutSeconds,omitempty"`
	VocabularyDir     string   `json:"vocabularyDir,omitempty"`
}

// Default generation settings.
const (
	DefaultEncoding          = "cl100k_base"
	DefaultChunkTokens       = 8000
	DefaultGenerateMaxTokens = 2000
	DefaultEditMaxTokens     = 2000
	DefaultSummaryMaxTokens  = 1000
	DefaultTemperature       = 0.4
	DefaultTopP              = 0.95
)

// WithDefaults fills unset fields. The merge budget follows the generation
// budget unless set explicitly.
func (g Generation) WithDefaults() Generation {
	if strings.TrimSpace(g.Encoding) == "" {
		g.Encoding = DefaultEncoding
	}
	if g.ChunkTokens <= 0 {
		g.ChunkTokens = DefaultChunkTokens
	}
	if g.GenerateMaxTokens <= 0 {
		g.GenerateMaxTokens = DefaultGenerateMaxTokens
	}
	if g.EditMaxTokens <= 0 {
		g.EditMaxTokens = DefaultEditMaxTokens
	}
	if g.SummaryMaxTokens <= 0 {
		g.SummaryMaxTokens = DefaultSummaryMaxTokens
	}
	if g.MergeMaxTokens <= 0 {
		g.MergeMaxTokens = g.GenerateMaxTokens
	}
	if g.Temperature == nil {
		g.Temperature = Float(DefaultTemperature)
	}
	if g.TopP == nil {
		g.TopP = Float(DefaultTopP)
	}
	return g
}

// Sampling returns the temperature and topP to send, falling back to the
// defaults for unset values.
func (g Generation) Sampling() (temperature, topP float64) {
	temperature, topP = DefaultTemperature, DefaultTopP
	if g.Temperature != nil {
		temperature = *g.Temperature
	}
	if g.TopP != nil {
		topP = *g.TopP
	}
	return temperature, topP
}

// Float returns a pointer to v for the optional sampling fields.
func Float(v float64) *float64 {
	return &v
}

// Config captures CLI configuration.
type Config struct {
	LogLevel   string     `json:"logLevel,omitempty"`
	Language   string     `json:"language,omitempty"`
	Models     []Model    `json:"models,omitempty"`
	Generation Generation `json:"generation,omitempty"`
}

// DefaultConfig is used when no configuration file exists yet.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Language: "ko",
		Models: []Model{
			{Name: "gpt-4o", Provider: ProviderOpenAI, Tier: TierQuality, Active: true},
			{Name: "gpt-4o-mini", Provider: ProviderOpenAI, Tier: TierFast},
		},
		Generation: Generation{}.WithDefaults(),
	}
}

// FindModel locates a model by name.
func (c Config) FindModel(name string) (Model, bool) {
	for _, m := range c.Models {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

// ActiveModel returns the active model configuration if present.
func (c Config) ActiveModel() (Model, bool) {
	for _, m := range c.Models {
		if m.Active {
			return m, true
		}
	}
	return Model{}, false
}

// ActiveModelName returns the name of the active model, or empty string.
func (c Config) ActiveModelName() string {
	if m, ok := c.ActiveModel(); ok {
		return m.Name
	}
	return ""
}

// ModelForTier returns the first model of the given tier. An empty tier
// resolves to the active model.
func (c Config) ModelForTier(tier Tier) (Model, bool) {
	if tier == "" {
		return c.ActiveModel()
	}
	for _, m := range c.Models {
		if m.Tier == tier {
			return m, true
		}
	}
	return Model{}, false
}

// Validate ensures configuration integrity.
func (c Config) Validate() error {
	activeCount := 0
	for _, m := range c.Models {
		if m.Active {
			activeCount++
		}
		if strings.TrimSpace(m.Name) == "" {
			return errors.New("model entry without name")
		}
		if _, ok := validProviders[strings.ToLower(m.Provider)]; !ok {
			return fmt.Errorf("model %q: invalid provider %q", m.Name, m.Provider)
		}
		if m.Tier != "" && m.Tier != TierQuality && m.Tier != TierFast {
			return fmt.Errorf("model %q: invalid tier %q", m.Name, m.Tier)
		}
	}
	if activeCount > 1 {
		return errors.New("multiple models marked as active")
	}
	if strings.TrimSpace(c.LogLevel) != "" {
		if _, ok := validLogLevels[strings.ToLower(strings.TrimSpace(c.LogLevel))]; !ok {
			return fmt.Errorf("invalid logLevel %q", c.LogLevel)
		}
	}

	g := c.Generation
	if g.ChunkTokens < 0 || g.GenerateMaxTokens < 0 || g.EditMaxTokens < 0 || g.SummaryMaxTokens < 0 || g.MergeMaxTokens < 0 {
		return errors.New("generation token budgets must not be negative")
	}
	if t := g.Temperature; t != nil && (*t < 0 || *t > 1) {
		return fmt.Errorf("invalid temperature %v", *t)
	}
	if p := g.TopP; p != nil && (*p < 0 || *p > 1) {
		return fmt.Errorf("invalid topP %v", *p)
	}
	return nil
}

// Store abstracts configuration persistence.
type Store interface {
	Load() (Config, error)
	Save(Config) error
}

// FileStore implements Store backed by the user's home directory.
type FileStore struct {
	home string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore rooted at home.
func NewFileStore(home string) *FileStore {
	return &FileStore{home: home}
}

// Path returns the location of the configuration file.
func (f *FileStore) Path() string {
	return filepath.Join(f.home, DirName, "config.json")
}

// Load reads configuration from disk.
func (f *FileStore) Load() (Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.Path())
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, ErrNotFound
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes configuration to disk.
func (f *FileStore) Save(cfg Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := cfg.Validate(); err != nil {
		return err
	}

	path := f.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadOrDefault returns the stored configuration, or DefaultConfig when none
// has been written yet.
func LoadOrDefault(store Store) (Config, error) {
	cfg, err := store.Load()
	if errors.Is(err, ErrNotFound) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, err
	}
	cfg.Generation = cfg.Generation.WithDefaults()
	return cfg, nil
}

var _ Store = (*FileStore)(nil)

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

var validProviders = map[string]struct{}{
	ProviderOpenAI:     {},
	ProviderOllama:     {},
	ProviderGemini:     {},
	ProviderOpenRouter: {},
}
