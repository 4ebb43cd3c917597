package config_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gamzabox/humble-doc-cli/internal/config"
)

func TestFileStoreLoadReadsConfigFromDefaultPath(t *testing.T) {
	home := t.TempDir()
	configDir := filepath.Join(home, ".humble-doc-cli")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to prepare config directory: %v", err)
	}

	cfgPath := filepath.Join(configDir, "config.json")
	input := config.Config{
		LogLevel: "debug",
		Language: "en",
		Models: []config.Model{
			{Name: "gpt-4o", Provider: "openai", APIKey: "sk-xxx", Tier: config.TierQuality, Active: true},
			{Name: "llama3", Provider: "ollama", BaseURL: "http://localhost:11434", Tier: config.TierFast},
		},
		Generation: config.Generation{ChunkTokens: 4000},
	}
	raw, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal fixture: %v", err)
	}
	if err := os.WriteFile(cfgPath, raw, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	store := config.NewFileStore(home)
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got.LogLevel != input.LogLevel {
		t.Fatalf("unexpected log level: %s", got.LogLevel)
	}
	if len(got.Models) != len(input.Models) {
		t.Fatalf("unexpected models size: %d", len(got.Models))
	}
	active, ok := got.ActiveModel()
	if !ok {
		t.Fatalf("expected active model to be present")
	}
	if active.Name != "gpt-4o" {
		t.Fatalf("unexpected active model: %+v", active)
	}
	fast, ok := got.ModelForTier(config.TierFast)
	if !ok || fast.Name != "llama3" {
		t.Fatalf("unexpected fast tier model: %+v", fast)
	}
	if got.Generation.ChunkTokens != 4000 {
		t.Fatalf("unexpected chunk tokens: %d", got.Generation.ChunkTokens)
	}
}

func TestFileStoreLoadReportsMissingFile(t *testing.T) {
	store := config.NewFileStore(t.TempDir())
	if _, err := store.Load(); !errors.Is(err, config.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadOrDefaultFallsBackToDefaults(t *testing.T) {
	store := config.NewFileStore(t.TempDir())
	cfg, err := config.LoadOrDefault(store)
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.ActiveModelName() != "gpt-4o" {
		t.Fatalf("unexpected default active model: %q", cfg.ActiveModelName())
	}
	if cfg.Generation.ChunkTokens != config.DefaultChunkTokens {
		t.Fatalf("unexpected default chunk tokens: %d", cfg.Generation.ChunkTokens)
	}
}

func TestFileStoreSavePersistsConfig(t *testing.T) {
	home := t.TempDir()
	store := config.NewFileStore(home)

	cfg := config.Config{
		LogLevel: "warn",
		Models: []config.Model{
			{Name: "gpt-4o", Provider: "openai", APIKey: "sk-xxx"},
			{Name: "llama3", Provider: "ollama", BaseURL: "http://localhost:11434", Active: true},
		},
	}

	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("failed to read persisted config: %v", err)
	}
	var got config.Config
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("failed to unmarshal persisted config: %v", err)
	}
	if len(got.Models) != len(cfg.Models) {
		t.Fatalf("unexpected model count in persisted config: %d", len(got.Models))
	}
	if got.LogLevel != cfg.LogLevel {
		t.Fatalf("unexpected log level in persisted config: %s", got.LogLevel)
	}
	active, ok := got.ActiveModel()
	if !ok {
		t.Fatalf("expected active model in persisted config")
	}
	if active.Name != "llama3" {
		t.Fatalf("unexpected active model after save: %s", active.Name)
	}
}

func TestGenerationWithDefaults(t *testing.T) {
	g := config.Generation{}.WithDefaults()
	if g.ChunkTokens != 8000 || g.GenerateMaxTokens != 2000 || g.EditMaxTokens != 2000 {
		t.Fatalf("unexpected defaults: %+v", g)
	}
	if g.SummaryMaxTokens != 1000 || g.MergeMaxTokens != 2000 {
		t.Fatalf("unexpected summary budgets: %+v", g)
	}
	if temperature, topP := g.Sampling(); temperature != 0.4 || topP != 0.95 {
		t.Fatalf("unexpected sampling defaults: %v %v", temperature, topP)
	}

	custom := config.Generation{GenerateMaxTokens: 3000}.WithDefaults()
	if custom.MergeMaxTokens != 3000 {
		t.Fatalf("merge budget should follow the generation budget, got %d", custom.MergeMaxTokens)
	}
}

func TestModelResolvedAPIKeyFallsBackToEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("CUSTOM_KEY", "sk-custom")

	if got := (config.Model{Provider: "openai"}).ResolvedAPIKey(); got != "sk-env" {
		t.Fatalf("expected provider default env key, got %q", got)
	}
	if got := (config.Model{Provider: "openai", APIKeyEnv: "CUSTOM_KEY"}).ResolvedAPIKey(); got != "sk-custom" {
		t.Fatalf("expected custom env key, got %q", got)
	}
	if got := (config.Model{Provider: "openai", APIKey: "sk-inline"}).ResolvedAPIKey(); got != "sk-inline" {
		t.Fatalf("expected inline key, got %q", got)
	}
	if got := (config.Model{Provider: "ollama"}).ResolvedAPIKey(); got != "" {
		t.Fatalf("expected no key for ollama, got %q", got)
	}
}

func TestConfigValidateRejectsInvalidLogLevel(t *testing.T) {
	cfg := config.Config{
		LogLevel: "verbose",
		Models: []config.Model{
			{Name: "model", Provider: "openai", Active: true},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for invalid log level")
	}
}

func TestConfigValidateRejectsUnknownProviderAndTier(t *testing.T) {
	if err := (config.Config{Models: []config.Model{{Name: "m", Provider: "bard"}}}).Validate(); err == nil {
		t.Fatalf("expected validation error for unknown provider")
	}
	if err := (config.Config{Models: []config.Model{{Name: "m", Provider: "openai", Tier: "premium"}}}).Validate(); err == nil {
		t.Fatalf("expected validation error for unknown tier")
	}
}

func TestGenerationKeepsExplicitZeroSampling(t *testing.T) {
	home := t.TempDir()
	configDir := filepath.Join(home, config.DirName)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to prepare config directory: %v", err)
	}
	raw := []byte(`{"generation":{"temperature":0,"topP":0.5}}`)
	if err := os.WriteFile(filepath.Join(configDir, "config.json"), raw, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	store := config.NewFileStore(home)
	cfg, err := config.LoadOrDefault(store)
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if temperature, topP := cfg.Generation.Sampling(); temperature != 0 || topP != 0.5 {
		t.Fatalf("expected temperature 0 and topP 0.5, got %v %v", temperature, topP)
	}

	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	saved, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("failed to read saved config: %v", err)
	}
	var reloaded config.Config
	if err := json.Unmarshal(saved, &reloaded); err != nil {
		t.Fatalf("failed to parse saved config: %v", err)
	}
	if reloaded.Generation.Temperature == nil || *reloaded.Generation.Temperature != 0 {
		t.Fatalf("explicit temperature 0 was not saved: %s", saved)
	}

	unset := config.Generation{}.WithDefaults()
	if temperature, _ := unset.Sampling(); temperature != config.DefaultTemperature {
		t.Fatalf("unset temperature should default to %v, got %v", config.DefaultTemperature, temperature)
	}
}

func TestConfigValidateRejectsSamplingOutOfRange(t *testing.T) {
	if err := (config.Config{Generation: config.Generation{Temperature: config.Float(1.5)}}).Validate(); err == nil {
		t.Fatalf("expected validation error for temperature above 1")
	}
	if err := (config.Config{Generation: config.Generation{TopP: config.Float(-0.1)}}).Validate(); err == nil {
		t.Fatalf("expected validation error for negative topP")
	}
}

func TestConfigValidateRejectsMultipleActiveModels(t *testing.T) {
	cfg := config.Config{
		Models: []config.Model{
			{Name: "model-a", Provider: "openai", Active: true},
			{Name: "model-b", Provider: "ollama", Active: true},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error when multiple models are active")
	}
}
