package domain

import "time"

// Phase is the progression state machine position.
type Phase string

const (
	PhaseInProgress    Phase = "in_progress"
	PhaseTransitioning Phase = "transitioning"
	PhaseCompleted     Phase = "completed"
)

// ProgressionState is the serializable snapshot of a player's progress.
// CurrentIndex is the progression frontier; ActiveIndex is the puzzle on screen,
// which differs only while replaying an earlier puzzle.
type ProgressionState struct {
	CurrentIndex   int      `json:"currentIndex"`
	ActiveIndex    int      `json:"activeIndex"`
	Score          int      `json:"score"`
	ElapsedSeconds int      `json:"elapsedSeconds"`
	ErrorCount     int      `json:"errorCount"`
	IsComplete     bool     `json:"isComplete"`
	UnlockedTitles []string `json:"unlockedTitles"`
	Phase          Phase    `json:"phase"`
}

// NoticeKind classifies a transient player notification.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
)

// Notice is an auto-dismissing notification the presentation shows for DisplayFor.
type Notice struct {
	Kind       NoticeKind    `json:"kind"`
	Message    string        `json:"message"`
	DisplayFor time.Duration `json:"displayFor"`
}

// Outcome summarizes the bookkeeping applied for one judged submission.
type Outcome struct {
	PuzzleID   int  `json:"puzzleId"`
	Correct    bool `json:"correct"`
	Replay     bool `json:"replay"`
	Awarded    int  `json:"awarded"`
	Penalty    int  `json:"penalty"`
	Score      int  `json:"score"`
	ErrorCount int  `json:"errorCount"`
	Completed  bool `json:"completed"`
	// AdvanceAfter is how long presentation should wait before calling Advance.
	AdvanceAfter time.Duration `json:"advanceAfter,omitempty"`
	Notice       Notice        `json:"notice"`
}

// MapStatus is how a puzzle is shown on the trail map.
type MapStatus string

const (
	MapSolved  MapStatus = "solved"
	MapCurrent MapStatus = "current"
	MapLocked  MapStatus = "locked"
)

// MapEntry is one puzzle on the trail map.
type MapEntry struct {
	Index    int       `json:"index"`
	ID       int       `json:"id"`
	Title    string    `json:"title"`
	Location string    `json:"location,omitempty"`
	Status   MapStatus `json:"status"`
}
