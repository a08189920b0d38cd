package domain

import "time"

type EntityKind string

const (
	EntityKindItem       EntityKind = "ITEM"
	EntityKindOwnership  EntityKind = "OWNERSHIP"
	EntityKindCollection EntityKind = "COLLECTION"
)

// EntityUpdateEvent announces one accepted enrichment transition. It is
// emitted exactly once per committed write, never for no-op outcomes.
type EntityUpdateEvent struct {
	EventID   string      `json:"event_id"`
	Kind      EntityKind  `json:"kind"`
	EntityID  string      `json:"entity_id"`
	Entity    interface{} `json:"entity"`
	EmittedAt time.Time   `json:"emitted_at"`
}

// EntityDeleteEvent announces that an entity's enrichment became empty
// and its cache row was removed.
type EntityDeleteEvent struct {
	EventID   string     `json:"event_id"`
	Kind      EntityKind `json:"kind"`
	EntityID  string     `json:"entity_id"`
	EmittedAt time.Time  `json:"emitted_at"`
}
