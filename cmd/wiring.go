package main

import (
	"context"
	"fmt"

	"jobscout/internal/config"
	"jobscout/internal/core/mapper"
	"jobscout/internal/core/match"
	"jobscout/internal/core/pipeline"
	"jobscout/internal/platform/browser"
	"jobscout/internal/platform/eino"
	rds "jobscout/internal/platform/redis"
	"jobscout/prompts"
)

// newOrchestrator wires the pipeline from configuration. A nil redis
// service disables the careers cache.
func newOrchestrator(ctx context.Context, cfg config.Config, redisSvc *rds.Service) (*pipeline.Orchestrator, error) {
	llm, err := eino.NewService(ctx, eino.Config{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.GeminiAPIKey,
		Model:    cfg.DefaultLLMModel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize completion service: %w", err)
	}

	policy, err := match.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}

	bcfg := browser.DefaultConfig()
	bcfg.Strategy = browser.Strategy(cfg.BrowserStrategy)
	bcfg.DefaultTimeout = cfg.NavigationTimeout

	o := pipeline.NewOrchestrator(llm, prompts.New(), browser.NewLauncher(bcfg), policy, pipeline.OptionsFromLimits(cfg.Limits())).
		WithStaticAnchors(mapper.NewMapService(browser.ProfileFor(bcfg.Strategy).UserAgent))
	if redisSvc != nil {
		o.WithCareersCache(pipeline.NewCareersCache(redisSvc))
	}
	return o, nil
}
