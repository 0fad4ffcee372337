package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
)

// BuiltinID is the id of the catalog shipped with the binary.
const BuiltinID = "roma"

//go:embed data/roma.yaml
var romaYAML []byte

// Builtin returns the embedded Roma Aeterna trail.
func Builtin() (*Catalog, error) {
	cat, err := Decode(bytes.NewReader(romaYAML))
	if err != nil {
		return nil, fmt.Errorf("builtin catalog: %w", err)
	}
	return cat, nil
}

// MustBuiltin panics if the embedded catalog is malformed.
func MustBuiltin() *Catalog {
	cat, err := Builtin()
	if err != nil {
		panic(err)
	}
	return cat
}
