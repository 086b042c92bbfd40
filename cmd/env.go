package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Deep-Context-AI/vera-platform-sub000/internal/judge"
	"github.com/Deep-Context-AI/vera-platform-sub000/internal/orchestrator"
	"github.com/Deep-Context-AI/vera-platform-sub000/internal/pseudonym"
	"github.com/Deep-Context-AI/vera-platform-sub000/internal/store"
	"github.com/Deep-Context-AI/vera-platform-sub000/internal/verify"
	anthropicpkg "github.com/Deep-Context-AI/vera-platform-sub000/pkg/anthropic"
	"github.com/Deep-Context-AI/vera-platform-sub000/pkg/presidio"
	"github.com/Deep-Context-AI/vera-platform-sub000/pkg/registry"
)

// env bundles the initialized collaborators a command needs.
type env struct {
	Store        store.Store
	Orchestrator *orchestrator.Orchestrator
}

func (e *env) Close() {
	_ = e.Store.Close()
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "vera.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("no database_url configured (VERA_STORE_DATABASE_URL)")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv builds the full verification environment: store, pseudonymization
// engine, detector, judge, registry clients and the orchestrator.
func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	engine, err := pseudonym.New(cfg.Pseudonym.Seed)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init pseudonymization engine (VERA_PSEUDONYM_SEED)")
	}

	anthropicClient, err := anthropicpkg.NewClient(cfg.Anthropic.Key)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init anthropic client (VERA_ANTHROPIC_KEY)")
	}

	detector := presidio.NewClient(
		presidio.WithBaseURL(cfg.Presidio.BaseURL),
		presidio.WithLanguage(cfg.Presidio.Language),
		presidio.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Presidio.TimeoutSecs) * time.Second,
		}),
	)

	steps := verify.NewRegistry(verify.Deps{
		Judge:    judge.New(anthropicClient, cfg.Anthropic),
		Engine:   engine,
		Detector: detector,

		NPI:       registry.NewNPI(),
		DEA:       registry.NewDEA(),
		OIG:       registry.NewOIG(),
		ABMS:      registry.NewABMS(),
		DCA:       registry.NewDCA(),
		Education: registry.NewEducation(),
	})

	return &env{
		Store:        st,
		Orchestrator: orchestrator.New(st, steps, cfg.Orchestrator),
	}, nil
}
