package sdk

import (
	"context"
	"net/url"

	"github.com/celerix-dev/realtrack/pkg/schema"
)

// LinkEndpoint is the resource holding transaction/building associations.
const LinkEndpoint = schema.ResourceLinks

// --- Functional Interfaces (Interface Segregation) ---

// Reader defines the read operations on a resource collection.
type Reader interface {
	GetAll(ctx context.Context, resource string) ([]schema.Record, error)
	GetByID(ctx context.Context, resource string, id any) (schema.Record, error)
	Query(ctx context.Context, resource string, params url.Values) ([]schema.Record, error)
}

// Writer defines create, update and delete on a resource collection.
type Writer interface {
	Create(ctx context.Context, resource string, data schema.Record) (schema.Record, error)
	Update(ctx context.Context, resource string, id any, data schema.Record) (schema.Record, error)
	Delete(ctx context.Context, resource string, id any) error
}

// RelationClient reaches nested resources under /{resource}/{id}/{relation}.
type RelationClient interface {
	GetRelated(ctx context.Context, resource string, id any, relation string) ([]schema.Record, error)
	CreateRelated(ctx context.Context, resource string, id any, relation string, data schema.Record) (schema.Record, error)
	DeleteRelated(ctx context.Context, resource string, id any, relation string, relatedID any) error
}

// Linker manages rows of a link table.
type Linker interface {
	CreateLink(ctx context.Context, linkResource string, primaryID, relatedID any, primaryKey, relatedKey string) (schema.Record, error)
	DeleteLink(ctx context.Context, primaryID, relatedID any) error
}

// --- Composite Interfaces ---

// ResourceClient is what a collection store needs from the backend.
type ResourceClient interface {
	Reader
	Writer
	RelationClient
}

// API is the complete client surface. Both *Client and test fakes implement it.
type API interface {
	ResourceClient
	Linker
}
