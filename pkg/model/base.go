// Package model provides embeddable base entities and a generic repository
// over registered table metadata. Structs embed Timestamped (or Association
// for link tables) to pick up the id and bookkeeping columns, then go through
// Repo[T] for persistence.
package model

import (
	"time"
)

// timeNow returns the current UTC instant. Tests swap it out to freeze
// timestamps.
var timeNow = func() time.Time { return time.Now().UTC() }

// Timestamped carries the columns shared by every persisted entity: a
// serial primary key and creation/modification timestamps. Both timestamps
// are assigned client-side; at creation they hold the same instant, and
// UpdatedAt is reset on every successful update.
type Timestamped struct {
	ID        int64     `keel:"id,primaryKey,serial"`
	CreatedAt time.Time `keel:"created_at,autoCreate"`
	UpdatedAt time.Time `keel:"updated_at,autoCreate,autoUpdate"`
}

// Association marks a link table keyed by its foreign key columns. Embedding
// it switches Repo.CreateOrUpdate from unconditional insert to an upsert on
// the foreign key combination.
type Association struct {
	Timestamped
}

func (Association) associationTable() {}

// associationMarker is satisfiable only by types embedding Association.
type associationMarker interface {
	associationTable()
}

func isAssociation(model any) bool {
	_, ok := model.(associationMarker)
	return ok
}
