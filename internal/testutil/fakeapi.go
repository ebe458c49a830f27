// Package testutil provides an in-memory sdk.API for store tests.
package testutil

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/celerix-dev/realtrack/pkg/schema"
	"github.com/celerix-dev/realtrack/pkg/sdk"
)

// Call records one request made against a FakeAPI.
type Call struct {
	Method   string
	Resource string
	ID       any
	Body     schema.Record
	Params   url.Values
}

// FakeAPI is an in-memory implementation of sdk.API. Every operation can be
// replaced through its Func field; unset fields fall back to a simple table
// backed behavior. All calls are recorded, including overridden ones.
type FakeAPI struct {
	GetAllFunc        func(ctx context.Context, resource string) ([]schema.Record, error)
	GetByIDFunc       func(ctx context.Context, resource string, id any) (schema.Record, error)
	QueryFunc         func(ctx context.Context, resource string, params url.Values) ([]schema.Record, error)
	CreateFunc        func(ctx context.Context, resource string, data schema.Record) (schema.Record, error)
	UpdateFunc        func(ctx context.Context, resource string, id any, data schema.Record) (schema.Record, error)
	DeleteFunc        func(ctx context.Context, resource string, id any) error
	GetRelatedFunc    func(ctx context.Context, resource string, id any, relation string) ([]schema.Record, error)
	CreateRelatedFunc func(ctx context.Context, resource string, id any, relation string, data schema.Record) (schema.Record, error)
	CreateLinkFunc    func(ctx context.Context, linkResource string, primaryID, relatedID any, primaryKey, relatedKey string) (schema.Record, error)
	DeleteLinkFunc    func(ctx context.Context, primaryID, relatedID any) error

	mu     sync.Mutex
	tables map[string][]schema.Record
	lastID int64
	calls  []Call
}

var _ sdk.API = (*FakeAPI)(nil)

// NewFakeAPI returns an empty fake.
func NewFakeAPI() *FakeAPI {
	return &FakeAPI{tables: make(map[string][]schema.Record)}
}

// NotFound is the error the fake returns for unknown ids.
func NotFound() error {
	return &sdk.APIError{Kind: sdk.KindNotFound, Message: "Resource not found", Status: 404}
}

// Seed appends rows to a resource table as-is. Ids assigned later continue
// after the highest numeric id seeded.
func (f *FakeAPI) Seed(resource string, rows ...schema.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		if n, ok := r.Number("id"); ok && int64(n) > f.lastID {
			f.lastID = int64(n)
		}
		f.tables[resource] = append(f.tables[resource], r.Clone())
	}
}

// Rows returns a copy of a resource table.
func (f *FakeAPI) Rows(resource string) []schema.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return schema.CloneAll(f.tables[resource])
}

// Calls returns every call made so far.
func (f *FakeAPI) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the calls made with the given method.
func (f *FakeAPI) CallsTo(method string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeAPI) record(c Call) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

func (f *FakeAPI) GetAll(ctx context.Context, resource string) ([]schema.Record, error) {
	f.record(Call{Method: "GetAll", Resource: resource})
	if f.GetAllFunc != nil {
		return f.GetAllFunc(ctx, resource)
	}
	return f.Rows(resource), nil
}

func (f *FakeAPI) GetByID(ctx context.Context, resource string, id any) (schema.Record, error) {
	f.record(Call{Method: "GetByID", Resource: resource, ID: id})
	if f.GetByIDFunc != nil {
		return f.GetByIDFunc(ctx, resource, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.indexLocked(resource, id); i >= 0 {
		return f.tables[resource][i].Clone(), nil
	}
	return nil, NotFound()
}

func (f *FakeAPI) Query(ctx context.Context, resource string, params url.Values) ([]schema.Record, error) {
	f.record(Call{Method: "Query", Resource: resource, Params: params})
	if f.QueryFunc != nil {
		return f.QueryFunc(ctx, resource, params)
	}
	out := []schema.Record{}
	for _, r := range f.Rows(resource) {
		if matches(r, params) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *FakeAPI) Create(ctx context.Context, resource string, data schema.Record) (schema.Record, error) {
	f.record(Call{Method: "Create", Resource: resource, Body: data.Clone()})
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, resource, data)
	}
	return f.insert(resource, data), nil
}

func (f *FakeAPI) Update(ctx context.Context, resource string, id any, data schema.Record) (schema.Record, error) {
	f.record(Call{Method: "Update", Resource: resource, ID: id, Body: data.Clone()})
	if f.UpdateFunc != nil {
		return f.UpdateFunc(ctx, resource, id, data)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexLocked(resource, id)
	if i < 0 {
		return nil, NotFound()
	}
	row := f.tables[resource][i].Clone()
	for k, v := range data {
		if k != "id" {
			row[k] = v
		}
	}
	f.tables[resource][i] = row
	return row.Clone(), nil
}

// Delete removes the row if present. Deleting an unknown id succeeds.
func (f *FakeAPI) Delete(ctx context.Context, resource string, id any) error {
	f.record(Call{Method: "Delete", Resource: resource, ID: id})
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, resource, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.indexLocked(resource, id); i >= 0 {
		rows := f.tables[resource]
		f.tables[resource] = append(rows[:i:i], rows[i+1:]...)
	}
	return nil
}

func (f *FakeAPI) GetRelated(ctx context.Context, resource string, id any, relation string) ([]schema.Record, error) {
	f.record(Call{Method: "GetRelated", Resource: resource + "/" + relation, ID: id})
	if f.GetRelatedFunc != nil {
		return f.GetRelatedFunc(ctx, resource, id, relation)
	}
	return f.Query(ctx, relation, url.Values{parentKey(resource): {schema.IDKey(id)}})
}

func (f *FakeAPI) CreateRelated(ctx context.Context, resource string, id any, relation string, data schema.Record) (schema.Record, error) {
	f.record(Call{Method: "CreateRelated", Resource: resource + "/" + relation, ID: id, Body: data.Clone()})
	if f.CreateRelatedFunc != nil {
		return f.CreateRelatedFunc(ctx, resource, id, relation, data)
	}
	row := data.Clone()
	if row == nil {
		row = schema.Record{}
	}
	row[parentKey(resource)] = id
	return f.insert(relation, row), nil
}

func (f *FakeAPI) DeleteRelated(ctx context.Context, resource string, id any, relation string, relatedID any) error {
	f.record(Call{Method: "DeleteRelated", Resource: resource + "/" + relation, ID: relatedID})
	return f.Delete(ctx, relation, relatedID)
}

func (f *FakeAPI) CreateLink(ctx context.Context, linkResource string, primaryID, relatedID any, primaryKey, relatedKey string) (schema.Record, error) {
	if primaryKey == "" {
		primaryKey = "transaction_id"
	}
	if relatedKey == "" {
		relatedKey = "building_id"
	}
	body := schema.Record{primaryKey: primaryID, relatedKey: relatedID}
	f.record(Call{Method: "CreateLink", Resource: linkResource, Body: body})
	if f.CreateLinkFunc != nil {
		return f.CreateLinkFunc(ctx, linkResource, primaryID, relatedID, primaryKey, relatedKey)
	}
	return f.insert(linkResource, body), nil
}

func (f *FakeAPI) DeleteLink(ctx context.Context, primaryID, relatedID any) error {
	f.record(Call{Method: "DeleteLink", Resource: sdk.LinkEndpoint, ID: schema.IDKey(primaryID) + "/" + schema.IDKey(relatedID)})
	if f.DeleteLinkFunc != nil {
		return f.DeleteLinkFunc(ctx, primaryID, relatedID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.tables[sdk.LinkEndpoint]
	for i, r := range rows {
		if r.String("transaction_id") == schema.IDKey(primaryID) && r.String("building_id") == schema.IDKey(relatedID) {
			f.tables[sdk.LinkEndpoint] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return NotFound()
}

func (f *FakeAPI) insert(resource string, data schema.Record) schema.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := data.Clone()
	if row == nil {
		row = schema.Record{}
	}
	f.lastID++
	row["id"] = f.lastID
	f.tables[resource] = append(f.tables[resource], row)
	return row.Clone()
}

func (f *FakeAPI) indexLocked(resource string, id any) int {
	key := schema.IDKey(id)
	for i, r := range f.tables[resource] {
		if r.IDKey() == key {
			return i
		}
	}
	return -1
}

func matches(r schema.Record, params url.Values) bool {
	for k, v := range params {
		if len(v) > 0 && r.String(k) != v[0] {
			return false
		}
	}
	return true
}

func parentKey(resource string) string {
	return strings.TrimSuffix(resource, "s") + "_id"
}
