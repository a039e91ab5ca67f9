package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/fxdispatch/internal/ir"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestDispatch creates a dispatch record with minimal required fields.
func createTestDispatch(id, origin string, seq int64, outcome ir.Outcome) ir.DispatchRecord {
	return ir.DispatchRecord{
		ID:             id,
		Seq:            seq,
		Origin:         origin,
		SceneID:        "arena",
		SystemID:       "dnd5e",
		ItemName:       "Fire Bolt",
		NormalizedName: "firebolt",
		Outcome:        outcome,
		EngineVersion:  ir.EngineVersion,
	}
}
