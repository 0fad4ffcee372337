package domain

// Draft is the player's unsubmitted answer for the active puzzle.
// The set of implementations is closed; switch over the concrete types.
type Draft interface {
	Variant() Variant
	Clone() Draft
	isDraft()
}

// ArithmeticDraft is the raw text the player is typing.
type ArithmeticDraft struct {
	Text string `json:"text"`
}

// OddOneOutDraft holds the selected choice id; empty until a choice is made.
type OddOneOutDraft struct {
	Selected string `json:"selected,omitempty"`
}

// OrderingDraft is the player's current arrangement of the steps.
type OrderingDraft struct {
	Steps []string `json:"steps"`
}

// MatchingDraft maps left ids to chosen right ids. Unassigned lefts are absent.
type MatchingDraft struct {
	Pairs map[string]string `json:"pairs"`
}

func (*ArithmeticDraft) Variant() Variant { return VariantArithmetic }
func (*OddOneOutDraft) Variant() Variant  { return VariantOddOneOut }
func (*OrderingDraft) Variant() Variant   { return VariantOrdering }
func (*MatchingDraft) Variant() Variant   { return VariantMatching }

func (*ArithmeticDraft) isDraft() {}
func (*OddOneOutDraft) isDraft()  {}
func (*OrderingDraft) isDraft()   {}
func (*MatchingDraft) isDraft()   {}

func (d *ArithmeticDraft) Clone() Draft { c := *d; return &c }
func (d *OddOneOutDraft) Clone() Draft  { c := *d; return &c }

func (d *OrderingDraft) Clone() Draft {
	return &OrderingDraft{Steps: append([]string(nil), d.Steps...)}
}

func (d *MatchingDraft) Clone() Draft {
	pairs := make(map[string]string, len(d.Pairs))
	for k, v := range d.Pairs {
		pairs[k] = v
	}
	return &MatchingDraft{Pairs: pairs}
}

// Direction is the way an ordering step moves.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Edit is a variant-specific draft mutation.
type Edit interface {
	Variant() Variant
	isEdit()
}

// SetText replaces an arithmetic draft verbatim.
type SetText struct {
	Text string
}

// Select replaces the odd-one-out selection.
type Select struct {
	ChoiceID string
}

// Move swaps the step at Index with its neighbour in Direction.
type Move struct {
	Index     int
	Direction Direction
}

// Assign sets or overwrites the pairing for LeftID.
type Assign struct {
	LeftID  string
	RightID string
}

func (SetText) Variant() Variant { return VariantArithmetic }
func (Select) Variant() Variant  { return VariantOddOneOut }
func (Move) Variant() Variant    { return VariantOrdering }
func (Assign) Variant() Variant  { return VariantMatching }

func (SetText) isEdit() {}
func (Select) isEdit()  {}
func (Move) isEdit()    {}
func (Assign) isEdit()  {}
