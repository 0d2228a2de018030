package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// WriteDefault serializes the default configuration to path as YAML. Used by
// `kg init` to scaffold a starter config.yaml; fails if the file exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return eris.Errorf("config: %s already exists", path)
	}

	cfg := Config{
		LLM: LLMConfig{
			Backend:   "anthropic",
			Anthropic: AnthropicConfig{Model: "claude-sonnet-4-5-20250929"},
			Local: LocalConfig{
				BaseURL:           "http://localhost:1234/v1",
				Model:             "local-model",
				RequestsPerSecond: 2.0,
				TimeoutSecs:       120,
			},
		},
		Extraction: ExtractionConfig{
			DomainsRoot:     "domains",
			DefaultDomain:   "default",
			Mode:            "open",
			MaxDisconnected: 3,
			MaxIterations:   2,
			Temperature:     0.0,
			MaxTokens:       4096,
		},
		Store:  StoreConfig{Path: "kg.db"},
		Batch:  BatchConfig{MaxConcurrentRecords: 4},
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info", Format: "json"},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return eris.Wrap(err, "config: marshal defaults")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "config: write file")
	}
	return nil
}
