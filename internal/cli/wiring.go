package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/soyeahso/certagent/internal/agent"
	"github.com/soyeahso/certagent/internal/badge"
	"github.com/soyeahso/certagent/internal/config"
	"github.com/soyeahso/certagent/internal/llm"
	"github.com/soyeahso/certagent/internal/points"
	"github.com/soyeahso/certagent/internal/store"
	"github.com/soyeahso/certagent/internal/tools"
)

// loadConfig reads and validates the config file at paths.Config.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	if issues := config.Validate(&cfg); len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return cfg, fmt.Errorf("config validation failed with %d issue(s)", len(issues))
	}
	return cfg, nil
}

func openStore(cfg config.Config) (*store.DB, error) {
	return store.Open(paths.DBPath(cfg), log)
}

func newCertificationStore(db *store.DB) *store.CertificationStore {
	return store.NewCertificationStore(db)
}

// openCertifications opens the lookup store and makes sure it is seeded.
func openCertifications(ctx context.Context, cfg config.Config) (*store.DB, *store.CertificationStore, error) {
	db, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	certs := newCertificationStore(db)
	if _, err := certs.Initialize(ctx, cfg.Certifications.Seed); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, certs, nil
}

func newResolver(certs *store.CertificationStore) *points.Resolver {
	return points.NewResolver(certs, log)
}

func newExtractor(cfg config.Config) *badge.Extractor {
	b := cfg.Browser
	launcher := badge.NewRodLauncher(b.Bin, b.IsHeadless(), b.Flags, log)
	return badge.NewExtractor(badge.Config{
		WaitTimeout: time.Duration(b.WaitTimeoutSeconds) * time.Second,
		Selectors: badge.Selectors{
			Header: b.Selectors.Header,
			Issuer: b.Selectors.Issuer,
			Holder: b.Selectors.Holder,
			Dates:  b.Selectors.Dates,
		},
	}, launcher, log)
}

// newRunner assembles the agent with both tools registered.
func newRunner(cfg config.Config, creds config.Credentials, resolver tools.PointsResolver, extractor tools.BadgeExtractor) *agent.Runner {
	toolReg := agent.NewToolRegistry()
	tools.Register(toolReg, resolver, extractor, log)

	sessions := agent.NewMemorySessionStore()
	sessions.MaxHistory = cfg.Agent.MaxHistory

	return agent.NewRunner(
		agent.RunnerConfig{
			AgentID:           cfg.Agent.ID,
			AgentName:         cfg.Agent.Name,
			Model:             cfg.LLM.Model,
			Fallbacks:         cfg.LLM.Fallbacks,
			MaxTokens:         cfg.LLM.MaxTokens,
			Temperature:       cfg.LLM.Temperature,
			ExtraPrompt:       cfg.Agent.ExtraPrompt,
			MaxToolIterations: cfg.Agent.MaxToolIterations,
		},
		llm.NewRegistryFromConfig(cfg.LLM, creds, log),
		sessions,
		toolReg,
		log,
	)
}
