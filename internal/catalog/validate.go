package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"escape-trail/internal/domain"
)

// CatalogError locates a malformed catalog entry.
type CatalogError struct {
	Index    int
	PuzzleID int
	Reason   string
}

func (e *CatalogError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", domain.ErrMalformedCatalog, e.Reason)
	}
	return fmt.Sprintf("%s: puzzle %d (index %d): %s", domain.ErrMalformedCatalog, e.PuzzleID, e.Index, e.Reason)
}

func (e *CatalogError) Unwrap() error { return domain.ErrMalformedCatalog }

// Validate checks that every solution structurally matches its variant's choices.
func Validate(puzzles []domain.Puzzle) error {
	if len(puzzles) == 0 {
		return &CatalogError{Index: -1, Reason: "catalog has no puzzles"}
	}
	ids := make(map[int]struct{}, len(puzzles))
	titles := make(map[string]struct{}, len(puzzles))
	for i, p := range puzzles {
		fail := func(format string, args ...any) error {
			return &CatalogError{Index: i, PuzzleID: p.ID, Reason: fmt.Sprintf(format, args...)}
		}
		if _, dup := ids[p.ID]; dup {
			return fail("duplicate id")
		}
		ids[p.ID] = struct{}{}

		title := strings.TrimSpace(p.Title)
		if title == "" {
			return fail("title is required")
		}
		if _, dup := titles[title]; dup {
			return fail("duplicate title %q", title)
		}
		titles[title] = struct{}{}

		if err := validateShape(p); err != nil {
			return fail("%v", err)
		}
	}
	return nil
}

func validateShape(p domain.Puzzle) error {
	c, s := p.Choices, p.Solution
	switch p.Variant {
	case domain.VariantArithmetic:
		if len(c.Clues) == 0 {
			return errors.New("arithmetic puzzle needs clues")
		}
		if strings.TrimSpace(s.Total) == "" {
			return errors.New("arithmetic puzzle needs a total")
		}
		return onlyFields(p, "clues", "total")
	case domain.VariantOddOneOut:
		if len(c.Options) < 2 {
			return errors.New("odd-one-out puzzle needs at least two options")
		}
		seen, err := uniqueIDs(optionIDs(c.Options), "option")
		if err != nil {
			return err
		}
		if _, ok := seen[s.ChoiceID]; !ok {
			return fmt.Errorf("solution choice %q is not an option", s.ChoiceID)
		}
		return onlyFields(p, "options", "choiceId")
	case domain.VariantOrdering:
		if len(c.Steps) < 2 {
			return errors.New("ordering puzzle needs at least two steps")
		}
		if !sameMultiset(c.Steps, s.Order) {
			return errors.New("solution order is not a permutation of the steps")
		}
		return onlyFields(p, "steps", "order")
	case domain.VariantMatching:
		if len(c.Left) == 0 || len(c.Right) == 0 {
			return errors.New("matching puzzle needs left and right columns")
		}
		left, err := uniqueIDs(entryIDs(c.Left), "left")
		if err != nil {
			return err
		}
		right, err := uniqueIDs(entryIDs(c.Right), "right")
		if err != nil {
			return err
		}
		if len(s.Pairs) != len(left) {
			return fmt.Errorf("solution pairs %d left ids, want %d", len(s.Pairs), len(left))
		}
		for l, r := range s.Pairs {
			if _, ok := left[l]; !ok {
				return fmt.Errorf("solution pairs unknown left id %q", l)
			}
			if _, ok := right[r]; !ok {
				return fmt.Errorf("solution pairs %q with unknown right id %q", l, r)
			}
		}
		return onlyFields(p, "left", "right", "pairs")
	default:
		return fmt.Errorf("unknown variant %q", p.Variant)
	}
}

// onlyFields rejects payload fields that belong to a different variant.
func onlyFields(p domain.Puzzle, allowed ...string) error {
	present := map[string]bool{
		"clues":    len(p.Choices.Clues) > 0,
		"options":  len(p.Choices.Options) > 0,
		"steps":    len(p.Choices.Steps) > 0,
		"left":     len(p.Choices.Left) > 0,
		"right":    len(p.Choices.Right) > 0,
		"total":    p.Solution.Total != "",
		"choiceId": p.Solution.ChoiceID != "",
		"order":    len(p.Solution.Order) > 0,
		"pairs":    len(p.Solution.Pairs) > 0,
	}
	for _, name := range allowed {
		delete(present, name)
	}
	var extra []string
	for name, set := range present {
		if set {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return fmt.Errorf("%s puzzle carries foreign fields %s", p.Variant, strings.Join(extra, ", "))
	}
	return nil
}

func uniqueIDs(ids []string, what string) (map[string]struct{}, error) {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("%s id is required", what)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate %s id %q", what, id)
		}
		seen[id] = struct{}{}
	}
	return seen, nil
}

func optionIDs(opts []domain.Option) []string {
	ids := make([]string, len(opts))
	for i, o := range opts {
		ids[i] = o.ID
	}
	return ids
}

func entryIDs(entries []domain.MatchEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func sameMultiset(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, s := range a {
		counts[s]++
	}
	for _, s := range b {
		counts[s]--
		if counts[s] < 0 {
			return false
		}
	}
	return true
}
