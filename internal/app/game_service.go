package app

import (
	"context"
	"math/rand"
	"time"

	"escape-trail/internal/catalog"
	"escape-trail/internal/domain"
	"escape-trail/internal/engine"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// CatalogRepository loads puzzle catalogs (from cache/backing store).
type CatalogRepository interface {
	GetCatalog(ctx context.Context, catalogID string) (*catalog.Catalog, error)
}

// HintService produces hint text for a puzzle. It never fails.
type HintService interface {
	Hint(ctx context.Context, catalogID string, p domain.Puzzle) string
}

// GameService contains the trail use cases.
type GameService struct {
	sessions     SessionRepository
	catalogs     CatalogRepository
	hints        HintService
	rules        engine.Rules
	tickInterval time.Duration
	newRand      func() *rand.Rand
	logger       zerolog.Logger
}

type Option func(*GameService)

func WithRules(r engine.Rules) Option {
	return func(s *GameService) { s.rules = r }
}

// WithTickInterval sets how often the session clock ticks; zero disables it.
func WithTickInterval(d time.Duration) Option {
	return func(s *GameService) { s.tickInterval = d }
}

// WithRandSource makes shuffles reproducible, mainly for tests.
func WithRandSource(fn func() *rand.Rand) Option {
	return func(s *GameService) { s.newRand = fn }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *GameService) { s.logger = l }
}

func NewGameService(sessions SessionRepository, catalogs CatalogRepository, hints HintService, opts ...Option) *GameService {
	s := &GameService{
		sessions:     sessions,
		catalogs:     catalogs,
		hints:        hints,
		rules:        engine.DefaultRules(),
		tickInterval: time.Second,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		logger: log.With().Str("component", "game").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a new session on the first puzzle of the catalog.
func (s *GameService) Start(ctx context.Context, catalogID string) (Snapshot, error) {
	cat, err := s.catalogs.GetCatalog(ctx, catalogID)
	if err != nil {
		return Snapshot{}, err
	}

	session := NewSession(uuid.NewString(), cat, engine.WithRules(s.rules), engine.WithRand(s.newRand()))
	session.startClock(s.tickInterval)
	s.sessions.Put(session)

	s.logger.Info().Str("session", session.ID()).Str("catalog", cat.ID()).Msg("session started")
	return session.Snapshot(), nil
}

func (s *GameService) Snapshot(_ context.Context, sessionID string) (Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Edit applies a draft edit to the active puzzle.
func (s *GameService) Edit(_ context.Context, sessionID string, op domain.Edit) (Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.edit(op)
}

// Submit judges the draft and applies scoring.
func (s *GameService) Submit(_ context.Context, sessionID string) (domain.Outcome, Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Outcome{}, Snapshot{}, domain.ErrSessionNotFound
	}
	out, snap, err := session.submit()
	if err != nil {
		return out, snap, err
	}
	s.logger.Debug().
		Str("session", sessionID).
		Int("puzzle", out.PuzzleID).
		Bool("correct", out.Correct).
		Int("score", out.Score).
		Msg("submission judged")
	if out.Completed {
		s.logger.Info().Str("session", sessionID).Int("score", out.Score).Int("errors", out.ErrorCount).Msg("trail completed")
	}
	return out, snap, nil
}

// Advance moves past a solved puzzle.
func (s *GameService) Advance(_ context.Context, sessionID string) (Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.advance()
}

// Navigate returns to a reached puzzle from the map.
func (s *GameService) Navigate(_ context.Context, sessionID string, index int) (Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.navigate(index)
}

// RequestHint asks for a hint on the active puzzle and blocks until it is
// resolved. A request made while another is outstanding is ignored, and a
// result that arrives after the player moved to another draft is discarded.
// The returned flag reports whether the hint text was shown.
func (s *GameService) RequestHint(ctx context.Context, sessionID string) (Snapshot, bool, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, false, domain.ErrSessionNotFound
	}
	puzzle, stamp, ok := session.beginHint()
	if !ok {
		return session.Snapshot(), false, nil
	}

	text := s.hints.Hint(ctx, session.CatalogID(), puzzle)
	snap, applied := session.finishHint(stamp, text)
	if !applied {
		s.logger.Debug().Str("session", sessionID).Int("puzzle", puzzle.ID).Msg("stale hint discarded")
	}
	return snap, applied, nil
}

// Subscribe returns a channel that receives snapshots for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) Subscribe(_ context.Context, sessionID string) (<-chan Snapshot, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// End stops the session clock and forgets the session.
func (s *GameService) End(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
	s.logger.Info().Str("session", sessionID).Msg("session ended")
}
