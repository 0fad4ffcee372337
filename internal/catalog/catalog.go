package catalog

import (
	"fmt"
	"io"
	"os"

	"escape-trail/internal/domain"
	"gopkg.in/yaml.v3"
)

// Catalog is an ordered, validated, read-only sequence of puzzles.
type Catalog struct {
	id      string
	puzzles []domain.Puzzle
}

// Document is the file/row layout of a catalog.
type Document struct {
	ID      string          `json:"id" yaml:"id"`
	Puzzles []domain.Puzzle `json:"puzzles" yaml:"puzzles"`
}

// New validates puzzles and builds a catalog. A malformed entry is returned as
// a *CatalogError so callers can fail at startup instead of mid-game.
func New(id string, puzzles []domain.Puzzle) (*Catalog, error) {
	if err := Validate(puzzles); err != nil {
		return nil, err
	}
	copied := make([]domain.Puzzle, len(puzzles))
	for i := range puzzles {
		copied[i] = puzzles[i].Clone()
	}
	return &Catalog{id: id, puzzles: copied}, nil
}

// FromDocument validates a decoded document.
func FromDocument(doc Document) (*Catalog, error) {
	return New(doc.ID, doc.Puzzles)
}

// Decode reads a YAML (or JSON, which is valid YAML) catalog document.
func Decode(r io.Reader) (*Catalog, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return FromDocument(doc)
}

// LoadFile reads and validates a catalog document from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

func (c *Catalog) ID() string { return c.id }

func (c *Catalog) Len() int { return len(c.puzzles) }

// Get returns a copy of the puzzle at index.
func (c *Catalog) Get(index int) (domain.Puzzle, error) {
	if index < 0 || index >= len(c.puzzles) {
		return domain.Puzzle{}, fmt.Errorf("%w: %d", domain.ErrOutOfRange, index)
	}
	return c.puzzles[index].Clone(), nil
}

// Titles lists puzzle titles in catalog order.
func (c *Catalog) Titles() []string {
	titles := make([]string, len(c.puzzles))
	for i, p := range c.puzzles {
		titles[i] = p.Title
	}
	return titles
}

// Document returns the catalog in its storable layout.
func (c *Catalog) Document() Document {
	puzzles := make([]domain.Puzzle, len(c.puzzles))
	for i := range c.puzzles {
		puzzles[i] = c.puzzles[i].Clone()
	}
	return Document{ID: c.id, Puzzles: puzzles}
}

// Views returns every puzzle without solutions.
func (c *Catalog) Views() []domain.PuzzleView {
	views := make([]domain.PuzzleView, len(c.puzzles))
	for i := range c.puzzles {
		views[i] = c.puzzles[i].View()
	}
	return views
}
