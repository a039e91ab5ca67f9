package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fxdispatch/internal/ir"
)

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")

	s1, err := Open(path)
	require.NoError(t, err)
	_, err = s1.WriteDispatch(context.Background(), createTestDispatch("d1", "o1", 1, ir.OutcomeNoMatch), nil)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	seq, err := s2.LastSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}

func TestLastSeq_Empty(t *testing.T) {
	s := createTestStore(t)

	seq, err := s.LastSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)
}

func TestWriteDispatch_WithPlacements(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	d := createTestDispatch("d1", "item-1", 1, ir.OutcomeSuccess)
	d.Rule = "exact_name"
	d.DefinitionID = "animation/firebolt"
	fade := 500
	placements := []ir.Placement{
		{Phase: ir.PhaseSource, File: "cast.webm", Origin: "item-1", FadeOutMs: &fade},
		{Phase: ir.PhaseTarget, File: "hit.webm", Origin: "item-1", Location: ir.Location{Kind: ir.LocationToken, Token: "ogre"}},
	}

	inserted, err := s.WriteDispatch(ctx, d, placements)
	require.NoError(t, err)
	assert.True(t, inserted)

	got, err := s.ReadDispatch(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, d, got)

	rows, err := s.ReadPlacements(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0, rows[0].Index)
	assert.Equal(t, placements[0], rows[0].Placement)
	assert.Equal(t, ir.MustPlacementDigest(placements[1]), rows[1].Digest)
	assert.Equal(t, ir.TokenRef("ogre"), rows[1].Placement.Location.Token)
}

func TestWriteDispatch_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	d := createTestDispatch("d1", "item-1", 1, ir.OutcomeSuccess)

	inserted, err := s.WriteDispatch(ctx, d, []ir.Placement{{Phase: ir.PhaseTarget, File: "a"}})
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = s.WriteDispatch(ctx, d, []ir.Placement{{Phase: ir.PhaseTarget, File: "b"}, {Phase: ir.PhaseTarget, File: "c"}})
	require.NoError(t, err)
	assert.False(t, inserted)

	rows, err := s.ReadPlacements(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].Placement.File)
}

func TestWriteDispatch_RejectsUnknownOutcome(t *testing.T) {
	s := createTestStore(t)

	_, err := s.WriteDispatch(context.Background(), createTestDispatch("d1", "o", 1, ir.Outcome("maybe")), nil)
	assert.Error(t, err)
}

func TestReadDispatches_Filter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, d := range []ir.DispatchRecord{
		createTestDispatch("d3", "item-2", 3, ir.OutcomeSuccess),
		createTestDispatch("d1", "item-1", 1, ir.OutcomeSuccess),
		createTestDispatch("d2", "item-1", 2, ir.OutcomeSuppressed),
	} {
		_, err := s.WriteDispatch(ctx, d, nil)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all in seq order", Filter{}, []string{"d1", "d2", "d3"}},
		{"by origin", Filter{Origin: "item-1"}, []string{"d1", "d2"}},
		{"by outcome", Filter{Outcome: ir.OutcomeSuccess}, []string{"d1", "d3"}},
		{"limit", Filter{Limit: 1}, []string{"d1"}},
		{"no match", Filter{SceneID: "elsewhere"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ReadDispatches(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, d := range got {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestReadDispatch_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadDispatch(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadPlacements_Empty(t *testing.T) {
	s := createTestStore(t)

	rows, err := s.ReadPlacements(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}
