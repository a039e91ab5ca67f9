package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fxdispatch/internal/catalog"
	"github.com/roach88/fxdispatch/internal/ir"
	"github.com/roach88/fxdispatch/internal/normalize"
)

// loadCatalog reads a catalog from a CUE directory or from a compiled JSON
// file written by the compile command.
func loadCatalog(path string) (ir.Catalog, error) {
	if filepath.Ext(path) == ".json" {
		cat, err := catalog.LoadJSON(path)
		if err != nil {
			return ir.Catalog{}, err
		}
		return *cat, nil
	}

	result, errs := catalog.LoadDir(path, catalog.LoadModeFailFast)
	if len(errs) > 0 {
		return ir.Catalog{}, errs[0]
	}
	return result.Catalog, nil
}

// loadEvents reads one or more host action events from a YAML file. The
// file holds either a single event or a list of events.
func loadEvents(path string) ([]normalize.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read action file: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse action file %s: %w", path, err)
	}
	if len(node.Content) == 0 {
		return nil, fmt.Errorf("parse action file %s: empty document", path)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if node.Content[0].Kind == yaml.SequenceNode {
		var events []normalize.Event
		if err := decoder.Decode(&events); err != nil {
			return nil, fmt.Errorf("parse action file %s: %w", path, err)
		}
		return events, nil
	}

	var ev normalize.Event
	if err := decoder.Decode(&ev); err != nil {
		return nil, fmt.Errorf("parse action file %s: %w", path, err)
	}
	return []normalize.Event{ev}, nil
}
