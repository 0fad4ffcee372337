package engine

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"escape-trail/internal/catalog"
	"escape-trail/internal/domain"
)

const (
	// DefaultReward is added to the score for a first-time solve.
	DefaultReward = 250
	// DefaultPenalty is subtracted for an incorrect submission, never below zero.
	DefaultPenalty = 50
	// DefaultAdvanceDelay is how long presentation shows success before Advance.
	DefaultAdvanceDelay = 1500 * time.Millisecond
	// DefaultNoticeDuration is how long a notification stays on screen.
	DefaultNoticeDuration = 3000 * time.Millisecond
)

const (
	successMessage = "Optime! Prova superata."
	failureMessage = "Vae Victis! Errore commesso."
)

// Rules carries the scoring and pacing constants.
type Rules struct {
	Reward         int
	Penalty        int
	AdvanceDelay   time.Duration
	NoticeDuration time.Duration
}

// DefaultRules returns the standard trail rules.
func DefaultRules() Rules {
	return Rules{
		Reward:         DefaultReward,
		Penalty:        DefaultPenalty,
		AdvanceDelay:   DefaultAdvanceDelay,
		NoticeDuration: DefaultNoticeDuration,
	}
}

// DraftReset is emitted every time a fresh draft replaces the previous one.
type DraftReset struct {
	Index      int
	PuzzleID   int
	Generation uint64
}

// Engine owns one player's progression through a catalog. It is not safe for
// concurrent use; hosts serialize access.
type Engine struct {
	catalog *catalog.Catalog
	rules   Rules
	rnd     *rand.Rand
	onReset func(DraftReset)

	frontier   int
	active     int
	score      int
	elapsed    int
	errors     int
	complete   bool
	started    bool
	phase      domain.Phase
	unlocked   map[string]struct{}
	draft      domain.Draft
	generation uint64
}

type Option func(*Engine)

func WithRules(r Rules) Option {
	return func(e *Engine) { e.rules = r }
}

// WithRand fixes the shuffle source, mainly for deterministic tests.
func WithRand(rnd *rand.Rand) Option {
	return func(e *Engine) { e.rnd = rnd }
}

// WithResetListener registers fn to be called after every draft reset.
func WithResetListener(fn func(DraftReset)) Option {
	return func(e *Engine) { e.onReset = fn }
}

// New creates an engine positioned on the first puzzle. The draft is built by
// the first InitializeDraft call, when the player enters the puzzle screen.
func New(cat *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog:  cat,
		rules:    DefaultRules(),
		phase:    domain.PhaseInProgress,
		unlocked: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rnd == nil {
		e.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e.draft = e.freshDraft()
	return e
}

func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

func (e *Engine) Rules() Rules { return e.rules }

// Active returns the puzzle currently on screen.
func (e *Engine) Active() domain.Puzzle {
	p, _ := e.catalog.Get(e.active)
	return p
}

// Draft returns a copy of the active draft.
func (e *Engine) Draft() domain.Draft { return e.draft.Clone() }

// Generation increases with every draft reset; hint requests are stamped with it.
func (e *Engine) Generation() uint64 { return e.generation }

func (e *Engine) Phase() domain.Phase { return e.phase }

// TimingActive reports whether the elapsed-time clock should run: the player
// has entered the trail and has not finished it.
func (e *Engine) TimingActive() bool {
	return e.started && e.phase != domain.PhaseCompleted
}

// State returns a serializable snapshot of the progression.
func (e *Engine) State() domain.ProgressionState {
	titles := make([]string, 0, len(e.unlocked))
	for t := range e.unlocked {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return domain.ProgressionState{
		CurrentIndex:   e.frontier,
		ActiveIndex:    e.active,
		Score:          e.score,
		ElapsedSeconds: e.elapsed,
		ErrorCount:     e.errors,
		IsComplete:     e.complete,
		UnlockedTitles: titles,
		Phase:          e.phase,
	}
}

// Map lists every puzzle with its trail status.
func (e *Engine) Map() []domain.MapEntry {
	entries := make([]domain.MapEntry, e.catalog.Len())
	for i := range entries {
		p, _ := e.catalog.Get(i)
		status := domain.MapLocked
		switch {
		case i < e.frontier || (i == e.frontier && e.complete):
			status = domain.MapSolved
		case i == e.frontier:
			status = domain.MapCurrent
		}
		entries[i] = domain.MapEntry{Index: i, ID: p.ID, Title: p.Title, Location: p.Location, Status: status}
	}
	return entries
}

// InitializeDraft replaces the draft of the active puzzle with a fresh one and
// signals the reset so hint displays can clear themselves.
func (e *Engine) InitializeDraft() {
	e.started = true
	e.draft = e.freshDraft()
	e.generation++
	if e.onReset != nil {
		e.onReset(DraftReset{Index: e.active, PuzzleID: e.Active().ID, Generation: e.generation})
	}
}

func (e *Engine) freshDraft() domain.Draft {
	return NewDraft(e.Active(), e.rnd)
}

// Edit applies a variant-specific mutation to the draft.
func (e *Engine) Edit(op domain.Edit) error {
	if e.phase != domain.PhaseInProgress {
		return domain.ErrNotInProgress
	}
	if op == nil || op.Variant() != e.draft.Variant() {
		got := domain.Variant("none")
		if op != nil {
			got = op.Variant()
		}
		return fmt.Errorf("%w: draft is %s, edit is %s", domain.ErrVariantMismatch, e.draft.Variant(), got)
	}

	p := e.Active()
	switch op := op.(type) {
	case domain.SetText:
		e.draft.(*domain.ArithmeticDraft).Text = op.Text
	case domain.Select:
		if !hasOption(p.Choices.Options, op.ChoiceID) {
			return fmt.Errorf("%w: choice %q", domain.ErrInvalidEdit, op.ChoiceID)
		}
		e.draft.(*domain.OddOneOutDraft).Selected = op.ChoiceID
	case domain.Move:
		d := e.draft.(*domain.OrderingDraft)
		target := op.Index + 1
		if op.Direction == domain.DirectionUp {
			target = op.Index - 1
		}
		if op.Index < 0 || op.Index >= len(d.Steps) || target < 0 || target >= len(d.Steps) {
			return nil
		}
		d.Steps[op.Index], d.Steps[target] = d.Steps[target], d.Steps[op.Index]
	case domain.Assign:
		if !hasEntry(p.Choices.Left, op.LeftID) {
			return fmt.Errorf("%w: left %q", domain.ErrInvalidEdit, op.LeftID)
		}
		if !hasEntry(p.Choices.Right, op.RightID) {
			return fmt.Errorf("%w: right %q", domain.ErrInvalidEdit, op.RightID)
		}
		e.draft.(*domain.MatchingDraft).Pairs[op.LeftID] = op.RightID
	default:
		return fmt.Errorf("%w: unsupported edit %T", domain.ErrVariantMismatch, op)
	}
	return nil
}

// Judge evaluates the draft against the active puzzle without changing state.
func (e *Engine) Judge() bool {
	if e.phase != domain.PhaseInProgress {
		return false
	}
	return Judge(e.Active(), e.draft)
}

// ApplyOutcome records a judged submission. A first-time solve unlocks the
// title, adds the reward and moves the frontier (or completes the trail); the
// engine then waits in the transitioning phase for Advance. Replays of earlier
// puzzles are reward-free. A wrong answer counts an error and applies the
// penalty, leaving the draft for another try.
func (e *Engine) ApplyOutcome(correct bool) (domain.Outcome, error) {
	if e.phase != domain.PhaseInProgress {
		return domain.Outcome{}, domain.ErrNotInProgress
	}
	p := e.Active()
	out := domain.Outcome{PuzzleID: p.ID, Correct: correct, Replay: e.active < e.frontier}

	if !correct {
		e.errors++
		before := e.score
		e.score = max(0, e.score-e.rules.Penalty)
		out.Penalty = before - e.score
		out.Score, out.ErrorCount = e.score, e.errors
		out.Notice = domain.Notice{Kind: domain.NoticeError, Message: failureMessage, DisplayFor: e.rules.NoticeDuration}
		return out, nil
	}

	if !out.Replay {
		e.unlocked[p.Title] = struct{}{}
		e.score += e.rules.Reward
		out.Awarded = e.rules.Reward
		if e.frontier < e.catalog.Len()-1 {
			e.frontier++
		} else {
			e.complete = true
		}
	}
	e.phase = domain.PhaseTransitioning
	out.Score, out.ErrorCount, out.Completed = e.score, e.errors, e.complete
	out.AdvanceAfter = e.rules.AdvanceDelay
	out.Notice = domain.Notice{Kind: domain.NoticeSuccess, Message: successMessage, DisplayFor: e.rules.NoticeDuration}
	return out, nil
}

// Submit judges the draft and applies the outcome.
func (e *Engine) Submit() (domain.Outcome, error) {
	if e.phase != domain.PhaseInProgress {
		return domain.Outcome{}, domain.ErrNotInProgress
	}
	return e.ApplyOutcome(e.Judge())
}

// Advance performs the transition after a solve: the frontier puzzle becomes
// active with a fresh draft, or the trail enters its terminal phase.
func (e *Engine) Advance() error {
	if e.phase != domain.PhaseTransitioning {
		return domain.ErrNoTransition
	}
	if e.complete {
		e.phase = domain.PhaseCompleted
		return nil
	}
	e.active = e.frontier
	e.phase = domain.PhaseInProgress
	e.InitializeDraft()
	return nil
}

// NavigateTo makes an already reached puzzle active with a fresh draft.
func (e *Engine) NavigateTo(index int) error {
	if e.complete {
		return fmt.Errorf("%w: trail is complete", domain.ErrInvalidNavigation)
	}
	if index < 0 || index > e.frontier {
		return fmt.Errorf("%w: index %d, frontier %d", domain.ErrInvalidNavigation, index, e.frontier)
	}
	e.active = index
	e.phase = domain.PhaseInProgress
	e.InitializeDraft()
	return nil
}

// Tick advances the elapsed-time counter by one second while timing is active.
// Ticks may be dropped or coalesced; no puzzle logic depends on them.
func (e *Engine) Tick() {
	if e.TimingActive() {
		e.elapsed++
	}
}

// FormatElapsed renders seconds as m:ss.
func FormatElapsed(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func hasOption(opts []domain.Option, id string) bool {
	for _, o := range opts {
		if o.ID == id {
			return true
		}
	}
	return false
}

func hasEntry(entries []domain.MatchEntry, id string) bool {
	for _, en := range entries {
		if en.ID == id {
			return true
		}
	}
	return false
}
