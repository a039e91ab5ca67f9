package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/roach88/fxdispatch/internal/ir"
)

// LoadJSON reads a compiled catalog file.
func LoadJSON(path string) (*ir.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return DecodeJSON(f)
}

// DecodeJSON decodes a compiled catalog. Unknown fields are rejected.
func DecodeJSON(r io.Reader) (*ir.Catalog, error) {
	var cat ir.Catalog
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if cat.Version != ir.CatalogVersion {
		return nil, fmt.Errorf("decode catalog: unsupported version %q (want %q)", cat.Version, ir.CatalogVersion)
	}
	if cat.Definitions == nil {
		cat.Definitions = []ir.AnimationDefinition{}
	}
	if cat.Categories == nil {
		cat.Categories = []ir.Category{}
	}
	return &cat, nil
}
