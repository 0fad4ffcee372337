package app_test

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"testing"
	"time"

	"escape-trail/internal/app"
	"escape-trail/internal/catalog"
	"escape-trail/internal/domain"
	"escape-trail/internal/infra/memory"
)

func TestStartAndSolveFirstPuzzle(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	snap, err := service.Start(ctx, catalog.BuiltinID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if snap.SessionID == "" || snap.Puzzle.ID != 1 || snap.DraftVariant != domain.VariantArithmetic {
		t.Fatalf("unexpected initial snapshot %+v", snap)
	}
	if !snap.TimingActive || snap.Elapsed != "0:00" {
		t.Fatalf("expected running clock at 0:00, got %v %s", snap.TimingActive, snap.Elapsed)
	}

	if _, err := service.Edit(ctx, snap.SessionID, domain.SetText{Text: " 67"}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	out, after, err := service.Submit(ctx, snap.SessionID)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !out.Correct || after.State.Score != 250 || after.State.Phase != domain.PhaseTransitioning {
		t.Fatalf("expected solved first puzzle, got %+v %+v", out, after.State)
	}

	next, err := service.Advance(ctx, snap.SessionID)
	if err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if next.Puzzle.ID != 2 || next.DraftVariant != domain.VariantOddOneOut {
		t.Fatalf("expected odd one out next, got %+v", next.Puzzle)
	}
	if next.Map[0].Status != domain.MapSolved || next.Map[1].Status != domain.MapCurrent {
		t.Fatalf("unexpected map %+v", next.Map)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	snap, _ := service.Start(ctx, catalog.BuiltinID)

	ch, cancel, err := service.Subscribe(ctx, snap.SessionID)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	<-ch // initial snapshot

	if _, err := service.Edit(ctx, snap.SessionID, domain.SetText{Text: "12"}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	update := <-ch
	if d, ok := update.Draft.(*domain.ArithmeticDraft); !ok || d.Text != "12" {
		t.Fatalf("expected draft update, got %+v", update.Draft)
	}
}

func TestUnknownSessionAndCatalog(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	if _, err := service.Start(ctx, "atlantis"); !errors.Is(err, domain.ErrCatalogNotFound) {
		t.Fatalf("expected catalog error, got %v", err)
	}
	if _, _, err := service.Submit(ctx, "missing"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}
	if _, _, err := service.RequestHint(ctx, "missing"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}
}

func TestFaultsDoNotEndSession(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	snap, _ := service.Start(ctx, catalog.BuiltinID)

	if _, err := service.Navigate(ctx, snap.SessionID, 2); !errors.Is(err, domain.ErrInvalidNavigation) {
		t.Fatalf("expected navigation error, got %v", err)
	}
	if _, err := service.Edit(ctx, snap.SessionID, domain.Move{Index: 0, Direction: domain.DirectionDown}); !errors.Is(err, domain.ErrVariantMismatch) {
		t.Fatalf("expected variant mismatch, got %v", err)
	}
	if _, err := service.Snapshot(ctx, snap.SessionID); err != nil {
		t.Fatalf("session should survive faults: %v", err)
	}
}

func TestHintShownForCurrentDraft(t *testing.T) {
	ctx := context.Background()
	service, hints := newTestService(t)
	snap, _ := service.Start(ctx, catalog.BuiltinID)
	close(hints.release)

	after, applied, err := service.RequestHint(ctx, snap.SessionID)
	if err != nil {
		t.Fatalf("hint failed: %v", err)
	}
	if !applied || after.Hint != "indizio 1" || after.HintLoading {
		t.Fatalf("expected hint applied, got %+v", after)
	}

	// Moving to a fresh draft clears the displayed hint.
	cleared, _ := service.Navigate(ctx, snap.SessionID, 0)
	if cleared.Hint != "" {
		t.Fatalf("expected hint cleared on reset, got %q", cleared.Hint)
	}
}

func TestStaleHintIsDiscarded(t *testing.T) {
	ctx := context.Background()
	service, hints := newTestService(t)
	snap, _ := service.Start(ctx, catalog.BuiltinID)

	type result struct {
		snap    app.Snapshot
		applied bool
	}
	done := make(chan result, 1)
	go func() {
		s, applied, _ := service.RequestHint(ctx, snap.SessionID)
		done <- result{s, applied}
	}()
	<-hints.started

	loading, _ := service.Snapshot(ctx, snap.SessionID)
	if !loading.HintLoading {
		t.Fatalf("expected hint loading while outstanding")
	}

	// The player re-enters the puzzle, which resets the draft before the hint lands.
	if _, err := service.Navigate(ctx, snap.SessionID, 0); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	close(hints.release)

	res := <-done
	if res.applied || res.snap.Hint != "" {
		t.Fatalf("stale hint applied: %+v", res)
	}
	final, _ := service.Snapshot(ctx, snap.SessionID)
	if final.Hint != "" || final.HintLoading {
		t.Fatalf("expected no hint shown, got %+v", final)
	}
}

func TestConcurrentHintRequestIsSuppressed(t *testing.T) {
	ctx := context.Background()
	service, hints := newTestService(t)
	snap, _ := service.Start(ctx, catalog.BuiltinID)

	done := make(chan bool, 1)
	go func() {
		_, applied, _ := service.RequestHint(ctx, snap.SessionID)
		done <- applied
	}()
	<-hints.started

	second, applied, err := service.RequestHint(ctx, snap.SessionID)
	if err != nil || applied || !second.HintLoading {
		t.Fatalf("expected suppressed request, got applied=%v err=%v", applied, err)
	}
	close(hints.release)
	if !<-done {
		t.Fatalf("expected first request applied")
	}
	if n := hints.count(); n != 1 {
		t.Fatalf("expected one hint call, got %d", n)
	}
}

func TestClockTicksWhileTimingActive(t *testing.T) {
	ctx := context.Background()
	sessions := memory.NewSessionStore()
	catalogs := memory.NewCatalogRepository(memory.NewStaticCatalogLoader(catalog.MustBuiltin()), time.Minute)
	service := app.NewGameService(sessions, catalogs, newBlockingHints(), app.WithTickInterval(5*time.Millisecond))

	snap, _ := service.Start(ctx, catalog.BuiltinID)
	defer service.End(ctx, snap.SessionID)

	deadline := time.Now().Add(2 * time.Second)
	for {
		cur, _ := service.Snapshot(ctx, snap.SessionID)
		if cur.State.ElapsedSeconds >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("clock did not tick, elapsed=%d", cur.State.ElapsedSeconds)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEndClosesSubscriptions(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	snap, _ := service.Start(ctx, catalog.BuiltinID)
	ch, cancel, _ := service.Subscribe(ctx, snap.SessionID)
	defer cancel()
	<-ch

	service.End(ctx, snap.SessionID)
	for range ch {
	}
	if _, err := service.Snapshot(ctx, snap.SessionID); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session gone, got %v", err)
	}
}

func TestSubscribeRacingEnd(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	for i := 0; i < 200; i++ {
		snap, err := service.Start(ctx, catalog.BuiltinID)
		if err != nil {
			t.Fatalf("start failed: %v", err)
		}
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch, cancel, err := service.Subscribe(ctx, snap.SessionID)
			if err != nil {
				return
			}
			defer cancel()
			for range ch {
			}
		}()
		go func() {
			defer wg.Done()
			service.End(ctx, snap.SessionID)
		}()
		wg.Wait()
	}
}

type blockingHints struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	mu      sync.Mutex
	calls   int
}

func newBlockingHints() *blockingHints {
	return &blockingHints{started: make(chan struct{}), release: make(chan struct{})}
}

func (h *blockingHints) Hint(_ context.Context, _ string, p domain.Puzzle) string {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	h.once.Do(func() { close(h.started) })
	<-h.release
	return "indizio " + strconv.Itoa(p.ID)
}

func (h *blockingHints) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func newTestService(t *testing.T) (*app.GameService, *blockingHints) {
	t.Helper()
	sessions := memory.NewSessionStore()
	catalogs := memory.NewCatalogRepository(memory.NewStaticCatalogLoader(catalog.MustBuiltin()), 5*time.Minute)
	hints := newBlockingHints()
	service := app.NewGameService(sessions, catalogs, hints,
		app.WithTickInterval(0),
		app.WithRandSource(func() *rand.Rand { return rand.New(rand.NewSource(1)) }),
	)
	return service, hints
}
