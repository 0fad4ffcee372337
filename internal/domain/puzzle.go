package domain

// Variant tags the four structurally different puzzle kinds.
type Variant string

const (
	VariantArithmetic Variant = "arithmetic"
	VariantOddOneOut  Variant = "odd_one_out"
	VariantOrdering   Variant = "ordering"
	VariantMatching   Variant = "matching"
)

func (v Variant) IsValid() bool {
	switch v {
	case VariantArithmetic, VariantOddOneOut, VariantOrdering, VariantMatching:
		return true
	default:
		return false
	}
}

// Clue is a display-only label/value pair of an arithmetic puzzle.
type Clue struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Option is one selectable entry of an odd-one-out puzzle.
type Option struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Image string `json:"image,omitempty" yaml:"image,omitempty"`
}

// MatchEntry is one side of a matching pair.
type MatchEntry struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// Choices holds the variant-shaped payload shown to the player.
// Only the fields belonging to the puzzle's variant are populated.
type Choices struct {
	Clues   []Clue       `json:"clues,omitempty" yaml:"clues,omitempty"`
	Options []Option     `json:"options,omitempty" yaml:"options,omitempty"`
	Steps   []string     `json:"steps,omitempty" yaml:"steps,omitempty"`
	Left    []MatchEntry `json:"left,omitempty" yaml:"left,omitempty"`
	Right   []MatchEntry `json:"right,omitempty" yaml:"right,omitempty"`
}

// Solution holds the variant-shaped ground truth.
type Solution struct {
	Total    string            `json:"total,omitempty" yaml:"total,omitempty"`
	ChoiceID string            `json:"choiceId,omitempty" yaml:"choiceId,omitempty"`
	Order    []string          `json:"order,omitempty" yaml:"order,omitempty"`
	Pairs    map[string]string `json:"pairs,omitempty" yaml:"pairs,omitempty"`
}

// Puzzle is an immutable puzzle definition.
type Puzzle struct {
	ID          int      `json:"id" yaml:"id"`
	Variant     Variant  `json:"variant" yaml:"variant"`
	Title       string   `json:"title" yaml:"title"`
	Subtitle    string   `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Location    string   `json:"location,omitempty" yaml:"location,omitempty"`
	Image       string   `json:"image,omitempty" yaml:"image,omitempty"`
	Choices     Choices  `json:"choices" yaml:"choices"`
	Solution    Solution `json:"solution" yaml:"solution"`
}

// Clone returns a deep copy so callers can never alias catalog slices or maps.
func (p Puzzle) Clone() Puzzle {
	out := p
	out.Choices = Choices{
		Clues:   append([]Clue(nil), p.Choices.Clues...),
		Options: append([]Option(nil), p.Choices.Options...),
		Steps:   append([]string(nil), p.Choices.Steps...),
		Left:    append([]MatchEntry(nil), p.Choices.Left...),
		Right:   append([]MatchEntry(nil), p.Choices.Right...),
	}
	out.Solution.Order = append([]string(nil), p.Solution.Order...)
	if p.Solution.Pairs != nil {
		out.Solution.Pairs = make(map[string]string, len(p.Solution.Pairs))
		for k, v := range p.Solution.Pairs {
			out.Solution.Pairs[k] = v
		}
	}
	return out
}

// PuzzleView is a puzzle without its solution, safe to hand to presentation.
type PuzzleView struct {
	ID          int     `json:"id"`
	Variant     Variant `json:"variant"`
	Title       string  `json:"title"`
	Subtitle    string  `json:"subtitle,omitempty"`
	Description string  `json:"description,omitempty"`
	Location    string  `json:"location,omitempty"`
	Image       string  `json:"image,omitempty"`
	Choices     Choices `json:"choices"`
}

func (p Puzzle) View() PuzzleView {
	c := p.Clone()
	return PuzzleView{
		ID:          c.ID,
		Variant:     c.Variant,
		Title:       c.Title,
		Subtitle:    c.Subtitle,
		Description: c.Description,
		Location:    c.Location,
		Image:       c.Image,
		Choices:     c.Choices,
	}
}
