package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/fxdispatch/internal/ir"
)

// ErrNotFound is returned when a dispatch id is not in the log.
var ErrNotFound = errors.New("dispatch not found")

// Filter narrows ReadDispatches. Zero fields match everything.
type Filter struct {
	Origin  string
	SceneID string
	Outcome ir.Outcome
	Limit   int
}

const dispatchColumns = `id, seq, origin, scene_id, message_id, system_id, item_name, normalized_name,
	outcome, rule, definition_id, reason, deferred, catalog_hash, engine_version`

// ReadDispatches returns logged dispatches ordered by seq.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ReadDispatches(ctx context.Context, f Filter) ([]ir.DispatchRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.Origin != "" {
		where = append(where, "origin = ?")
		args = append(args, f.Origin)
	}
	if f.SceneID != "" {
		where = append(where, "scene_id = ?")
		args = append(args, f.SceneID)
	}
	if f.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, string(f.Outcome))
	}

	query := "SELECT " + dispatchColumns + " FROM dispatches"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC, id COLLATE BINARY ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	records := []ir.DispatchRecord{}
	for rows.Next() {
		d, err := scanDispatch(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}
	return records, nil
}

// ReadDispatch returns one dispatch by id or ErrNotFound.
func (s *Store) ReadDispatch(ctx context.Context, id string) (ir.DispatchRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+dispatchColumns+" FROM dispatches WHERE id = ?", id)
	d, err := scanDispatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.DispatchRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, err
}

// ReadPlacements returns the placements of a dispatch in emission order.
func (s *Store) ReadPlacements(ctx context.Context, dispatchID string) ([]ir.PlacementRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dispatch_id, idx, digest, placement
		FROM placements
		WHERE dispatch_id = ?
		ORDER BY idx ASC
	`, dispatchID)
	if err != nil {
		return nil, fmt.Errorf("query placements: %w", err)
	}
	defer rows.Close()

	out := []ir.PlacementRow{}
	for rows.Next() {
		var (
			row  ir.PlacementRow
			data string
		)
		if err := rows.Scan(&row.DispatchID, &row.Index, &row.Digest, &data); err != nil {
			return nil, fmt.Errorf("scan placement: %w", err)
		}
		if row.Placement, err = unmarshalPlacement(data); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate placements: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDispatch(row scanner) (ir.DispatchRecord, error) {
	var (
		d        ir.DispatchRecord
		outcome  string
		deferred int
	)
	err := row.Scan(
		&d.ID,
		&d.Seq,
		&d.Origin,
		&d.SceneID,
		&d.MessageID,
		&d.SystemID,
		&d.ItemName,
		&d.NormalizedName,
		&outcome,
		&d.Rule,
		&d.DefinitionID,
		&d.Reason,
		&deferred,
		&d.CatalogHash,
		&d.EngineVersion,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.DispatchRecord{}, err
		}
		return ir.DispatchRecord{}, fmt.Errorf("scan dispatch: %w", err)
	}
	d.Outcome = ir.Outcome(outcome)
	d.Deferred = deferred != 0
	return d, nil
}
