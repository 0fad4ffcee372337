package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"escape-trail/internal/app"
	"escape-trail/internal/catalog"
	"escape-trail/internal/domain"
	"escape-trail/internal/hint"
	pgstore "escape-trail/internal/infra/postgres"
	pgmigrations "escape-trail/internal/infra/postgres/migrations"
	infraredis "escape-trail/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestTrailEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedCatalog(t, ctx, pgURL, catalog.MustBuiltin())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgstore.NewCatalogLoader(pool)
	if _, err := loader.LoadCatalog(ctx, "atlantis"); err == nil {
		t.Fatalf("expected missing catalog error")
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	catalogRepo := infraredis.NewCatalogRepository(redisClient, loader, 5*time.Minute)
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	hints := hint.NewService(hint.Disabled, hint.WithCache(infraredis.NewHintCache(redisClient), time.Minute))
	service := app.NewGameService(sessionStore, catalogRepo, hints, app.WithTickInterval(0))

	snap, err := service.Start(ctx, catalog.BuiltinID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer service.End(ctx, snap.SessionID)

	if _, err := service.Edit(ctx, snap.SessionID, domain.SetText{Text: "66"}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if _, _, err := service.Submit(ctx, snap.SessionID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := service.Edit(ctx, snap.SessionID, domain.SetText{Text: "67"}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	out, _, err := service.Submit(ctx, snap.SessionID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !out.Correct || out.Score != 250 || out.ErrorCount != 1 {
		t.Fatalf("expected correct answer after one error, got %+v", out)
	}

	after, applied, err := service.RequestHint(ctx, snap.SessionID)
	if err != nil || applied || after.HintLoading {
		t.Fatalf("expected hint request to be ignored while transitioning, got applied=%v err=%v", applied, err)
	}

	next, err := service.Advance(ctx, snap.SessionID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if next.State.ActiveIndex != 1 || next.Puzzle.Variant != domain.VariantOddOneOut {
		t.Fatalf("expected second puzzle, got %+v", next.State)
	}
	hinted, applied, err := service.RequestHint(ctx, snap.SessionID)
	if err != nil || !applied || hinted.Hint != hint.FallbackText {
		t.Fatalf("expected fallback hint, got %q applied=%v err=%v", hinted.Hint, applied, err)
	}
	live, err := sessionStore.Live(ctx)
	if err != nil || live != 1 {
		t.Fatalf("expected one live session, got %d (%v)", live, err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trail", "POSTGRES_PASSWORD": "trailpass", "POSTGRES_DB": "traildb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trail:trailpass@%s:%s/traildb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedCatalog(t *testing.T, ctx context.Context, dsn string, cat *catalog.Catalog) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := pgstore.NewCatalogStore(db)
	if err := store.Save(ctx, cat); err != nil {
		t.Fatalf("save catalog: %v", err)
	}
	// Saving twice exercises the upsert path.
	if err := store.Save(ctx, cat); err != nil {
		t.Fatalf("resave catalog: %v", err)
	}
	ids, err := store.IDs(ctx)
	if err != nil || len(ids) != 1 || ids[0] != cat.ID() {
		t.Fatalf("unexpected stored ids %v (%v)", ids, err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
