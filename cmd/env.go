package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rankward/siteaudit/internal/pipeline"
	"github.com/rankward/siteaudit/internal/store"
	"github.com/rankward/siteaudit/pkg/dataforseo"
	"github.com/rankward/siteaudit/pkg/pagespeed"
)

// auditEnv holds the initialized store, clients, and pipeline shared by the
// audit, audits, and serve commands.
type auditEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *auditEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "siteaudit.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv validates config for the mode, opens the store, and wires the
// provider clients into a pipeline. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*auditEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	var dfsOpts []dataforseo.Option
	if cfg.DataForSEO.BaseURL != "" {
		dfsOpts = append(dfsOpts, dataforseo.WithBaseURL(cfg.DataForSEO.BaseURL))
	}
	dfs := dataforseo.NewClient(cfg.DataForSEO.Login, cfg.DataForSEO.Password, dfsOpts...)

	// PageSpeed is optional field-data enrichment; with no key the pipeline
	// relies on Lighthouse alone.
	var psi pagespeed.Client
	if cfg.PageSpeed.Key != "" {
		var psiOpts []pagespeed.Option
		if cfg.PageSpeed.BaseURL != "" {
			psiOpts = append(psiOpts, pagespeed.WithBaseURL(cfg.PageSpeed.BaseURL))
		}
		psi = pagespeed.NewClient(cfg.PageSpeed.Key, psiOpts...)
	} else {
		zap.L().Debug("SITEAUDIT_PAGESPEED_KEY not set, field data collection disabled")
	}

	return &auditEnv{
		Store:    st,
		Pipeline: pipeline.New(cfg, st, dfs, psi),
	}, nil
}
