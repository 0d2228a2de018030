package main

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/FabioYanezRomero/kg-constructor/internal/config"
	"github.com/FabioYanezRomero/kg-constructor/internal/domain"
	"github.com/FabioYanezRomero/kg-constructor/internal/model"
	"github.com/FabioYanezRomero/kg-constructor/internal/pipeline"
	"github.com/FabioYanezRomero/kg-constructor/internal/store"
	"github.com/FabioYanezRomero/kg-constructor/pkg/llm"
	anthropicllm "github.com/FabioYanezRomero/kg-constructor/pkg/llm/anthropic"
	locallm "github.com/FabioYanezRomero/kg-constructor/pkg/llm/local"
)

// initClient builds the LM backend named in config.
func initClient(cfg *config.Config) (llm.Client, error) {
	switch cfg.LLM.Backend {
	case "anthropic":
		if cfg.LLM.Anthropic.Key == "" {
			return nil, eris.New("llm.anthropic.key is not configured (set KG_LLM_ANTHROPIC_KEY)")
		}
		return anthropicllm.New(cfg.LLM.Anthropic.Key, anthropicllm.WithModel(cfg.LLM.Anthropic.Model)), nil
	case "local":
		return locallm.New(
			locallm.WithBaseURL(cfg.LLM.Local.BaseURL),
			locallm.WithModel(cfg.LLM.Local.Model),
			locallm.WithRateLimit(cfg.LLM.Local.RequestsPerSecond),
			locallm.WithTimeout(time.Duration(cfg.LLM.Local.TimeoutSecs)*time.Second),
		), nil
	default:
		return nil, eris.Errorf("unknown llm backend %q", cfg.LLM.Backend)
	}
}

// initPipeline wires the client and domain registry into a pipeline.
func initPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	client, err := initClient(cfg)
	if err != nil {
		return nil, err
	}
	registry := domain.NewRegistry(cfg.Extraction.DomainsRoot)
	return pipeline.New(client, registry), nil
}

// initStore opens the SQLite run store.
func initStore(cfg *config.Config) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

// defaultOptions maps config to pipeline options. Flag overrides are not
// applied here; the extract command applies them with applyFlagOverrides.
func defaultOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		Domain:          cfg.Extraction.DefaultDomain,
		Mode:            model.ExtractionMode(cfg.Extraction.Mode),
		MaxDisconnected: cfg.Extraction.MaxDisconnected,
		MaxIterations:   cfg.Extraction.MaxIterations,
		Temperature:     cfg.Extraction.Temperature,
		MaxTokens:       cfg.Extraction.MaxTokens,
	}
}
