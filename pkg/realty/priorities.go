package realty

import (
	"cmp"

	"github.com/celerix-dev/realtrack/pkg/collection"
	"github.com/celerix-dev/realtrack/pkg/schema"
	"github.com/celerix-dev/realtrack/pkg/sdk"
)

// Priorities is the store for priorities, sorted by ascending order.
type Priorities struct {
	*collection.Store
}

func NewPriorities(client sdk.ResourceClient, deps ...collection.Option) *Priorities {
	return &Priorities{
		Store: collection.New(client, schema.ResourcePriorities, collection.Options{
			Sort: collection.SortWith(ByOrder),
		}, deps...),
	}
}

// List returns the sorted priorities as typed values.
func (p *Priorities) List() ([]schema.Priority, error) {
	return schema.AsSlice[schema.Priority](p.SortedItems())
}

// ByOrder compares records by their numeric "order" field; a missing order
// counts as 0.
func ByOrder(a, b schema.Record, _ collection.Additional) int {
	oa, _ := a.Number("order")
	ob, _ := b.Number("order")
	return cmp.Compare(oa, ob)
}
