package app

import (
	"context"
	"sync"
	"time"

	"escape-trail/internal/catalog"
	"escape-trail/internal/domain"
	"escape-trail/internal/engine"
)

// Snapshot is what presentation renders for one session.
type Snapshot struct {
	SessionID    string                  `json:"sessionId"`
	CatalogID    string                  `json:"catalogId"`
	State        domain.ProgressionState `json:"state"`
	Puzzle       domain.PuzzleView       `json:"puzzle"`
	DraftVariant domain.Variant          `json:"draftVariant"`
	Draft        domain.Draft            `json:"draft"`
	Generation   uint64                  `json:"generation"`
	Hint         string                  `json:"hint,omitempty"`
	HintLoading  bool                    `json:"hintLoading"`
	TimingActive bool                    `json:"timingActive"`
	Elapsed      string                  `json:"elapsed"`
	Map          []domain.MapEntry       `json:"map"`
	UpdatedAt    time.Time               `json:"updatedAt"`
}

// hintStamp identifies the draft a hint was requested for.
type hintStamp struct {
	puzzleID   int
	generation uint64
}

// Session hosts one player's engine. All engine access goes through mu.
type Session struct {
	id        string
	catalogID string
	createdAt time.Time
	now       func() time.Time

	mu          sync.Mutex
	engine      *engine.Engine
	lastSeen    time.Time
	hintText    string
	hintLoading bool
	hintFor     hintStamp
	closed      bool
	subscribers map[chan Snapshot]struct{}

	stopClock context.CancelFunc
	clockDone chan struct{}
}

// NewSession is exported for infrastructure layers and tests that need a
// session without going through GameService.
func NewSession(id string, cat *catalog.Catalog, opts ...engine.Option) *Session {
	return newSessionWithClock(id, cat, time.Now, opts...)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id string, cat *catalog.Catalog, now func() time.Time, opts ...engine.Option) *Session {
	return newSessionWithClock(id, cat, now, opts...)
}

func newSessionWithClock(id string, cat *catalog.Catalog, now func() time.Time, opts ...engine.Option) *Session {
	s := &Session{
		id:          id,
		catalogID:   cat.ID(),
		createdAt:   now(),
		now:         now,
		subscribers: make(map[chan Snapshot]struct{}),
	}
	s.lastSeen = s.createdAt
	// The listener runs inside engine calls, which already hold mu.
	opts = append(opts, engine.WithResetListener(func(engine.DraftReset) {
		s.hintText = ""
		s.hintLoading = false
	}))
	s.engine = engine.New(cat, opts...)
	s.engine.InitializeDraft()
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) CatalogID() string { return s.catalogID }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastSeen reports the time of the last player action.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) edit(op domain.Edit) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.Edit(op); err != nil {
		return Snapshot{}, err
	}
	s.lastSeen = s.now()
	return s.broadcastLocked(), nil
}

func (s *Session) submit() (domain.Outcome, Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := s.engine.Submit()
	if err != nil {
		return domain.Outcome{}, Snapshot{}, err
	}
	s.lastSeen = s.now()
	return out, s.broadcastLocked(), nil
}

func (s *Session) advance() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.Advance(); err != nil {
		return Snapshot{}, err
	}
	return s.broadcastLocked(), nil
}

func (s *Session) navigate(index int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.NavigateTo(index); err != nil {
		return Snapshot{}, err
	}
	s.lastSeen = s.now()
	return s.broadcastLocked(), nil
}

// beginHint marks a hint request as outstanding. It reports false when one is
// already in flight or no attempt is in progress.
func (s *Session) beginHint() (domain.Puzzle, hintStamp, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.hintLoading || s.engine.Phase() != domain.PhaseInProgress {
		return domain.Puzzle{}, hintStamp{}, false
	}
	p := s.engine.Active()
	s.hintLoading = true
	s.hintFor = hintStamp{puzzleID: p.ID, generation: s.engine.Generation()}
	s.lastSeen = s.now()
	s.broadcastLocked()
	return p, s.hintFor, true
}

// finishHint shows text only if the draft it was requested for is still the
// active one. It reports whether the text was applied.
func (s *Session) finishHint(stamp hintStamp, text string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := hintStamp{puzzleID: s.engine.Active().ID, generation: s.engine.Generation()}
	if s.closed || !s.hintLoading || current != stamp {
		return s.snapshotLocked(), false
	}
	s.hintText = text
	s.hintLoading = false
	return s.broadcastLocked(), true
}

func (s *Session) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.engine.TimingActive() {
		return
	}
	s.engine.Tick()
	s.broadcastLocked()
}

// startClock runs the elapsed-time ticker until Close.
func (s *Session) startClock(interval time.Duration) {
	if interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopClock = cancel
	s.clockDone = make(chan struct{})
	go func() {
		defer close(s.clockDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.tick()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close stops the clock and releases every subscriber.
func (s *Session) Close() {
	if s.stopClock != nil {
		s.stopClock()
		<-s.clockDone
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	// The buffer is empty, so this cannot block; sending under mu keeps Close
	// from closing ch first.
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() Snapshot {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow reader: drop its oldest snapshot so the newest always lands.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *Session) snapshotLocked() Snapshot {
	state := s.engine.State()
	draft := s.engine.Draft()
	return Snapshot{
		SessionID:    s.id,
		CatalogID:    s.catalogID,
		State:        state,
		Puzzle:       s.engine.Active().View(),
		DraftVariant: draft.Variant(),
		Draft:        draft,
		Generation:   s.engine.Generation(),
		Hint:         s.hintText,
		HintLoading:  s.hintLoading,
		TimingActive: s.engine.TimingActive(),
		Elapsed:      engine.FormatElapsed(state.ElapsedSeconds),
		Map:          s.engine.Map(),
		UpdatedAt:    s.now(),
	}
}
