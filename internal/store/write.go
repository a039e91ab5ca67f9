package store

import (
	"context"
	"fmt"

	"github.com/roach88/fxdispatch/internal/ir"
)

// WriteDispatch appends a dispatch and its placements in one transaction.
// Uses ON CONFLICT DO NOTHING for idempotency: when the dispatch id already
// exists nothing is written and inserted is false.
func (s *Store) WriteDispatch(ctx context.Context, d ir.DispatchRecord, placements []ir.Placement) (inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write dispatch: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO dispatches
		(id, seq, origin, scene_id, message_id, system_id, item_name, normalized_name,
		 outcome, rule, definition_id, reason, deferred, catalog_hash, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		d.ID,
		d.Seq,
		d.Origin,
		d.SceneID,
		d.MessageID,
		d.SystemID,
		d.ItemName,
		d.NormalizedName,
		string(d.Outcome),
		d.Rule,
		d.DefinitionID,
		d.Reason,
		boolToInt(d.Deferred),
		d.CatalogHash,
		d.EngineVersion,
	)
	if err != nil {
		return false, fmt.Errorf("write dispatch %s: %w", d.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write dispatch %s: rows affected: %w", d.ID, err)
	}
	if n == 0 {
		return false, tx.Commit()
	}

	for i, p := range placements {
		data, err := marshalPlacement(p)
		if err != nil {
			return false, fmt.Errorf("write dispatch %s: %w", d.ID, err)
		}
		digest, err := ir.PlacementDigest(p)
		if err != nil {
			return false, fmt.Errorf("write dispatch %s: %w", d.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO placements (dispatch_id, idx, phase, digest, placement)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, d.ID, i, string(p.Phase), digest, data); err != nil {
			return false, fmt.Errorf("write placement %s/%d: %w", d.ID, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write dispatch %s: commit: %w", d.ID, err)
	}
	return true, nil
}
