// Package engine is the in-memory record engine behind the development backend.
// Records are kept per resource in insertion order and receive auto-increment
// integer ids.
package engine

import (
	"errors"

	"github.com/celerix-dev/realtrack/pkg/schema"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrBadRecord is returned when a record is missing required fields.
	ErrBadRecord = errors.New("record is missing required fields")
	// ErrDuplicate is returned when a link for the same pair already exists.
	ErrDuplicate = errors.New("link already exists")
)

// Join describes a many-to-many link table between two resources.
type Join struct {
	Table         string
	LeftResource  string
	LeftKey       string
	RightResource string
	RightKey      string
}

// DefaultJoins is the link layout used by realtrack.
var DefaultJoins = []Join{{
	Table:         schema.ResourceLinks,
	LeftResource:  schema.ResourceTransactions,
	LeftKey:       "transaction_id",
	RightResource: schema.ResourceBuildings,
	RightKey:      "building_id",
}}

// RecordStore is the contract the HTTP API is written against.
type RecordStore interface {
	// Resources returns the names of every resource holding at least one record.
	Resources() []string

	// List returns the records of a resource in insertion order. Each filter
	// entry must match the stringified field value exactly.
	List(resource string, filter map[string]string) ([]schema.Record, error)

	// Get returns a single record.
	Get(resource, id string) (schema.Record, error)

	// Create stores a new record and returns it with its assigned id.
	Create(resource string, rec schema.Record) (schema.Record, error)

	// Update merges patch into an existing record and returns the result.
	Update(resource, id string, patch schema.Record) (schema.Record, error)

	// Delete removes a record. Links that reference it are removed as well.
	Delete(resource, id string) error

	// DeleteLinkPair removes the link joining left and right in the first join.
	DeleteLinkPair(leftID, rightID string) error

	// Related lists records reachable from resource/id under relation, either
	// through a join table or through a "<singular>_id" foreign key.
	Related(resource, id, relation string) ([]schema.Record, error)

	// CreateRelated creates a record under resource/id/relation and wires it up.
	CreateRelated(resource, id, relation string, rec schema.Record) (schema.Record, error)
}
