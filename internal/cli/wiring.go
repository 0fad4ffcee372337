package cli

import (
	"context"
	"fmt"
	"time"

	"escape-trail/internal/app"
	"escape-trail/internal/catalog"
	"escape-trail/internal/config"
	"escape-trail/internal/engine"
	"escape-trail/internal/hint"
	"escape-trail/internal/infra/memory"
	pgloader "escape-trail/internal/infra/postgres"
	infraredis "escape-trail/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// backends holds the optional external connections.
type backends struct {
	redis *redis.Client
	pool  *pgxpool.Pool
}

func connectBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.close()
			return nil, err
		}
		b.pool = pool
	}
	return b, nil
}

func (b *backends) close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

// localCatalogs returns the built-in catalog plus the configured file, if any.
func localCatalogs(cfg config.Config) ([]*catalog.Catalog, error) {
	cats := []*catalog.Catalog{catalog.MustBuiltin()}
	if cfg.Catalog.Path != "" {
		cat, err := catalog.LoadFile(cfg.Catalog.Path)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", cfg.Catalog.Path, err)
		}
		cats = append(cats, cat)
	}
	return cats, nil
}

func buildCatalogRepository(cfg config.Config, b *backends) (app.CatalogRepository, error) {
	cats, err := localCatalogs(cfg)
	if err != nil {
		return nil, err
	}
	var loader memory.CatalogLoader = memory.NewStaticCatalogLoader(cats...)
	if b.pool != nil {
		loader = fallbackLoader{primary: pgloader.NewCatalogLoader(b.pool), secondary: loader}
	}

	ttl := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	if b.redis != nil {
		return infraredis.NewCatalogRepository(b.redis, loader, ttl), nil
	}
	return memory.NewCatalogRepository(loader, ttl), nil
}

// fallbackLoader prefers the database and falls back to local catalogs.
type fallbackLoader struct {
	primary   memory.CatalogLoader
	secondary memory.CatalogLoader
}

func (l fallbackLoader) LoadCatalog(ctx context.Context, catalogID string) (*catalog.Catalog, error) {
	cat, err := l.primary.LoadCatalog(ctx, catalogID)
	if err == nil {
		return cat, nil
	}
	if local, lerr := l.secondary.LoadCatalog(ctx, catalogID); lerr == nil {
		log.Debug().Err(err).Str("catalog", catalogID).Msg("using local catalog")
		return local, nil
	}
	return nil, err
}

func buildHintService(ctx context.Context, cfg config.Config, b *backends) (*hint.Service, error) {
	var provider hint.Provider = hint.Disabled
	if cfg.Hint.Enabled && cfg.Hint.APIKey != "" {
		gemini, err := hint.NewGeminiProvider(ctx, cfg.Hint.APIKey, cfg.Hint.Model)
		if err != nil {
			return nil, err
		}
		provider = gemini
	} else {
		log.Info().Msg("hints disabled, players will see the fallback text")
	}

	opts := []hint.Option{
		hint.WithTimeout(config.TTLDuration(cfg.Hint.Timeout, 10*time.Second)),
		hint.WithPersona(cfg.Hint.Persona),
	}
	if cfg.Hint.Temperature > 0 {
		opts = append(opts, hint.WithTemperature(cfg.Hint.Temperature))
	}
	if cfg.Hint.Fallback != "" {
		opts = append(opts, hint.WithFallback(cfg.Hint.Fallback))
	}
	cacheTTL := config.TTLDuration(cfg.Hint.CacheTTL, time.Hour)
	if b.redis != nil {
		opts = append(opts, hint.WithCache(infraredis.NewHintCache(b.redis), cacheTTL))
	} else {
		opts = append(opts, hint.WithCache(memory.NewHintCache(), cacheTTL))
	}
	return hint.NewService(provider, opts...), nil
}

func gameRules(cfg config.Config) engine.Rules {
	rules := engine.DefaultRules()
	if cfg.Game.Reward > 0 {
		rules.Reward = cfg.Game.Reward
	}
	if cfg.Game.Penalty >= 0 {
		rules.Penalty = cfg.Game.Penalty
	}
	rules.AdvanceDelay = config.TTLDuration(cfg.Game.AdvanceDelay, engine.DefaultAdvanceDelay)
	rules.NoticeDuration = config.TTLDuration(cfg.Game.NoticeDuration, engine.DefaultNoticeDuration)
	return rules
}

func buildGameService(sessions app.SessionRepository, catalogs app.CatalogRepository, hints app.HintService, cfg config.Config) *app.GameService {
	return app.NewGameService(sessions, catalogs, hints,
		app.WithRules(gameRules(cfg)),
		app.WithTickInterval(config.TTLDuration(cfg.Game.TickInterval, time.Second)),
	)
}
