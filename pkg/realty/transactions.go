// Package realty configures collection stores for the realtrack resources and
// adds the behavior specific to each of them.
package realty

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/celerix-dev/realtrack/pkg/collection"
	"github.com/celerix-dev/realtrack/pkg/schema"
	"github.com/celerix-dev/realtrack/pkg/sdk"
)

// DefaultPriorityRank is the sort rank of a transaction whose priority is
// unknown or has no order.
const DefaultPriorityRank = 999

// Transactions is the store for transactions. Items sort by the order of their
// priority, which is looked up in the priorities fetched alongside.
type Transactions struct {
	*collection.Store

	// Now supplies the listing date of new transactions.
	Now func() time.Time
}

func NewTransactions(client sdk.ResourceClient, deps ...collection.Option) *Transactions {
	t := &Transactions{Now: time.Now}
	t.Store = collection.New(client, schema.ResourceTransactions, collection.Options{
		DefaultCreateData: t.defaultCreateData,
		Sort:              collection.SortWith(ByPriorityOrder),
	}, deps...)
	return t
}

func (t *Transactions) defaultCreateData() schema.Record {
	return schema.Record{
		"name":         "New Transaction",
		"date_listing": t.Now().Format(time.DateOnly),
	}
}

// FetchAll reloads transactions and always the priorities their sort order
// depends on, whatever fetchOpts ask for.
func (t *Transactions) FetchAll(ctx context.Context, fetchOpts ...collection.FetchOption) ([]schema.Record, error) {
	opts := append(slices.Clip(fetchOpts), collection.WithAdditional(schema.ResourcePriorities))
	return t.Store.FetchAll(ctx, opts...)
}

// Fetch loads transactions together with their priorities.
func (t *Transactions) Fetch(ctx context.Context) ([]schema.Record, error) {
	return t.FetchAll(ctx)
}

// Priorities returns the priorities loaded by the last fetch.
func (t *Transactions) Priorities() []schema.Record {
	return t.Additional(schema.ResourcePriorities)
}

// AddNew creates a transaction from the default payload.
func (t *Transactions) AddNew(ctx context.Context) (schema.Record, error) {
	return t.Create(ctx, nil)
}

// List returns the sorted transactions as typed values.
func (t *Transactions) List() ([]schema.Transaction, error) {
	return schema.AsSlice[schema.Transaction](t.SortedItems())
}

// PriorityRank returns the order of the priority tx points at, or
// DefaultPriorityRank when there is no such priority or it has no order.
func PriorityRank(tx schema.Record, priorities []schema.Record) float64 {
	key := tx.String("priority_id")
	if key == "" {
		return DefaultPriorityRank
	}
	for _, p := range priorities {
		if p.IDKey() != key {
			continue
		}
		if order, ok := p.Number("order"); ok {
			return order
		}
		return DefaultPriorityRank
	}
	return DefaultPriorityRank
}

// ByPriorityOrder compares transactions by PriorityRank.
func ByPriorityOrder(a, b schema.Record, additional collection.Additional) int {
	priorities := additional.Get(schema.ResourcePriorities)
	return cmp.Compare(PriorityRank(a, priorities), PriorityRank(b, priorities))
}
