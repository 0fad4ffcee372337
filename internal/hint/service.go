package hint

import (
	"context"
	"strings"
	"time"

	"escape-trail/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Cache stores generated hints so repeated requests skip the provider.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, text string, ttl time.Duration) error
}

// Service turns puzzles into hint text. It never fails: provider errors yield
// the fallback text and empty answers the default text.
type Service struct {
	provider    Provider
	cache       Cache
	cacheTTL    time.Duration
	timeout     time.Duration
	persona     string
	temperature float32
	fallback    string
	logger      zerolog.Logger
	sf          singleflight.Group
}

type Option func(*Service)

func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func WithPersona(persona string) Option {
	return func(s *Service) { s.persona = persona }
}

func WithTemperature(t float32) Option {
	return func(s *Service) { s.temperature = t }
}

func WithFallback(text string) Option {
	return func(s *Service) { s.fallback = text }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(provider Provider, opts ...Option) *Service {
	if provider == nil {
		provider = Disabled
	}
	s := &Service{
		provider:    provider,
		timeout:     10 * time.Second,
		persona:     DefaultPersona,
		temperature: DefaultTemperature,
		fallback:    FallbackText,
		logger:      log.With().Str("component", "hint").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hint returns a hint for puzzle p of catalog catalogID. Concurrent calls for
// the same puzzle content share one provider request.
func (s *Service) Hint(ctx context.Context, catalogID string, p domain.Puzzle) string {
	req := NewRequest(catalogID, p, s.persona, s.temperature)
	v, _, _ := s.sf.Do(req.Key(), func() (interface{}, error) {
		return s.generate(ctx, req), nil
	})
	return v.(string)
}

func (s *Service) generate(ctx context.Context, req Request) string {
	key := req.Key()
	if s.cache != nil {
		text, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn().Err(err).Str("catalog", req.CatalogID).Int("puzzle", req.PuzzleID).Msg("hint cache read failed")
		} else if ok {
			return text
		}
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.provider.Generate(callCtx, BuildPrompt(req), req.Temperature)
	if err != nil {
		s.logger.Warn().Err(err).Int("puzzle", req.PuzzleID).Msg("hint unavailable, using fallback")
		return s.fallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return DefaultText
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, text, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Int("puzzle", req.PuzzleID).Msg("hint cache write failed")
		}
	}
	return text
}
