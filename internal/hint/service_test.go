package hint

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"escape-trail/internal/catalog"
	"escape-trail/internal/domain"
)

type stubProvider struct {
	text  string
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (p *stubProvider) Generate(ctx context.Context, prompt string, _ float32) (string, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return p.text, p.err
}

type mapCache struct {
	mu    sync.Mutex
	items map[string]string
}

func (c *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key, text string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = text
	return nil
}

func TestPromptCarriesPuzzleAndSolution(t *testing.T) {
	cat := catalog.MustBuiltin()
	first, _ := cat.Get(0)
	prompt := BuildPrompt(NewRequest(catalog.BuiltinID, first, "", DefaultTemperature))
	for _, want := range []string{DefaultPersona, `"I Segreti del Mercato"`, "Macellum (Mercato)", `La risposta corretta è "67".`} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q: %s", want, prompt)
		}
	}

	odd, _ := cat.Get(1)
	if got := NewRequest(catalog.BuiltinID, odd, "", 0).Solution; got != `"pomo"` {
		t.Fatalf("odd one out solution rendered as %s", got)
	}
	ordering, _ := cat.Get(2)
	if got := NewRequest(catalog.BuiltinID, ordering, "", 0).Solution; !strings.HasPrefix(got, `["Costruzione`) {
		t.Fatalf("ordering solution rendered as %s", got)
	}
}

func TestServiceReturnsProviderText(t *testing.T) {
	p := &stubProvider{text: "  Cerca dove si vende il grano.  "}
	svc := NewService(p)
	got := svc.Hint(context.Background(), catalog.BuiltinID, puzzleAt(t, 0))
	if got != "Cerca dove si vende il grano." {
		t.Fatalf("unexpected hint %q", got)
	}
}

func TestServiceFallsBackOnFailure(t *testing.T) {
	svc := NewService(&stubProvider{err: errors.New("quota exceeded")})
	if got := svc.Hint(context.Background(), catalog.BuiltinID, puzzleAt(t, 0)); got != FallbackText {
		t.Fatalf("expected fallback, got %q", got)
	}

	disabled := NewService(nil, WithFallback("niente"))
	if got := disabled.Hint(context.Background(), catalog.BuiltinID, puzzleAt(t, 1)); got != "niente" {
		t.Fatalf("expected configured fallback, got %q", got)
	}
}

func TestServiceDefaultTextOnEmptyAnswer(t *testing.T) {
	svc := NewService(&stubProvider{text: "   "})
	if got := svc.Hint(context.Background(), catalog.BuiltinID, puzzleAt(t, 0)); got != DefaultText {
		t.Fatalf("expected default text, got %q", got)
	}
}

func TestServiceTimesOut(t *testing.T) {
	svc := NewService(&stubProvider{text: "late", delay: time.Second}, WithTimeout(20*time.Millisecond))
	start := time.Now()
	got := svc.Hint(context.Background(), catalog.BuiltinID, puzzleAt(t, 0))
	if got != FallbackText {
		t.Fatalf("expected fallback after timeout, got %q", got)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("timeout not enforced")
	}
}

func TestServiceDeduplicatesConcurrentRequests(t *testing.T) {
	p := &stubProvider{text: "uno", delay: 100 * time.Millisecond}
	svc := NewService(p)
	puzzle := puzzleAt(t, 2)

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Hint(context.Background(), catalog.BuiltinID, puzzle)
		}(i)
	}
	wg.Wait()

	if n := p.calls.Load(); n != 1 {
		t.Fatalf("expected one provider call, got %d", n)
	}
	for _, r := range results {
		if r != "uno" {
			t.Fatalf("unexpected result %q", r)
		}
	}
}

func TestServiceUsesCache(t *testing.T) {
	p := &stubProvider{text: "dal cielo"}
	cache := &mapCache{items: map[string]string{}}
	svc := NewService(p, WithCache(cache, time.Minute))
	puzzle := puzzleAt(t, 3)

	_ = svc.Hint(context.Background(), catalog.BuiltinID, puzzle)
	got := svc.Hint(context.Background(), catalog.BuiltinID, puzzle)
	if got != "dal cielo" || p.calls.Load() != 1 {
		t.Fatalf("expected cached hint, got %q after %d calls", got, p.calls.Load())
	}

	failing := &stubProvider{err: errors.New("boom")}
	svc = NewService(failing, WithCache(cache, time.Minute))
	other := puzzleAt(t, 0)
	_ = svc.Hint(context.Background(), catalog.BuiltinID, other)
	if _, ok, _ := cache.Get(context.Background(), NewRequest(catalog.BuiltinID, other, DefaultPersona, 0).Key()); ok {
		t.Fatalf("fallback text must not be cached")
	}
}

func TestCachedHintFollowsPuzzleContent(t *testing.T) {
	p := &stubProvider{text: "primo"}
	cache := &mapCache{items: map[string]string{}}
	svc := NewService(p, WithCache(cache, time.Minute))
	original := puzzleAt(t, 0)

	if got := svc.Hint(context.Background(), catalog.BuiltinID, original); got != "primo" {
		t.Fatalf("unexpected hint %q", got)
	}

	revised := original
	revised.Solution.Total = "99"
	p.text = "secondo"
	if got := svc.Hint(context.Background(), catalog.BuiltinID, revised); got != "secondo" {
		t.Fatalf("revised solution served a stale hint %q", got)
	}
	if got := svc.Hint(context.Background(), "roma-bis", original); got != "secondo" {
		t.Fatalf("another catalog served a cached hint %q", got)
	}
	if n := p.calls.Load(); n != 3 {
		t.Fatalf("expected three provider calls, got %d", n)
	}
	if got := svc.Hint(context.Background(), catalog.BuiltinID, original); got != "primo" {
		t.Fatalf("expected original cached hint, got %q", got)
	}

	a := NewRequest(catalog.BuiltinID, original, "", 0).Key()
	if a == NewRequest(catalog.BuiltinID, revised, "", 0).Key() || a == NewRequest(catalog.BuiltinID, original, "Sei un gladiatore.", 0).Key() {
		t.Fatalf("key ignores puzzle content or persona")
	}
}

func puzzleAt(t *testing.T, index int) domain.Puzzle {
	t.Helper()
	p, err := catalog.MustBuiltin().Get(index)
	if err != nil {
		t.Fatalf("get %d: %v", index, err)
	}
	return p
}
