package ir

// NOTE: These are store-layer records, not part of the dispatch data model.

// Outcome is the tri-state result of a dispatch.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeNoMatch    Outcome = "no_match"
	OutcomeSuppressed Outcome = "suppressed"
)

// DispatchRecord is one logged dispatch (store-layer).
type DispatchRecord struct {
	ID             string  `json:"id"` // UUIDv7
	Seq            int64   `json:"seq"`
	Origin         string  `json:"origin"`
	SceneID        string  `json:"scene_id"`
	MessageID      string  `json:"message_id,omitempty"`
	SystemID       string  `json:"system_id"`
	ItemName       string  `json:"item_name"`
	NormalizedName string  `json:"normalized_name"`
	Outcome        Outcome `json:"outcome"`
	Rule           string  `json:"rule,omitempty"`
	DefinitionID   string  `json:"definition_id,omitempty"`
	Reason         string  `json:"reason,omitempty"`
	Deferred       bool    `json:"deferred,omitempty"`
	CatalogHash    string  `json:"catalog_hash,omitempty"`
	EngineVersion  string  `json:"engine_version"`
}

// PlacementRow is one logged placement (store-layer).
type PlacementRow struct {
	DispatchID string    `json:"dispatch_id"`
	Index      int       `json:"index"`
	Digest     string    `json:"digest"` // content hash of the placement
	Placement  Placement `json:"placement"`
}
