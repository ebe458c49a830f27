// Package collection provides Store, a client-side mirror of one backend
// resource with selection, search and sorting.
//
// A Store only changes its items after the backend acknowledged the change.
// Failures are reported through a Notifier; destructive operations ask a
// Confirmer first.
package collection

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/celerix-dev/realtrack/pkg/schema"
	"github.com/celerix-dev/realtrack/pkg/sdk"
	"golang.org/x/sync/errgroup"
)

// Store mirrors a single resource. It is safe for concurrent use; every
// accessor returns copies. Network calls are made without holding the lock.
type Store struct {
	client    sdk.ResourceClient
	resource  string
	opts      Options
	notifier  Notifier
	confirmer Confirmer
	log       sdk.Logger

	mu            sync.RWMutex
	items         []schema.Record
	selectedItems []schema.Record
	selectedItem  schema.Record
	loading       bool
	searchQuery   string
	additional    Additional
}

// New creates a Store for resource.
func New(client sdk.ResourceClient, resource string, opts Options, deps ...Option) *Store {
	s := &Store{
		client:     client,
		resource:   resource,
		opts:       opts.withDefaults(resource),
		items:      []schema.Record{},
		additional: Additional{},
	}
	d := ResolveDeps(deps...)
	s.notifier, s.confirmer, s.log = d.Notifier, d.Confirmer, d.Logger
	return s
}

func (s *Store) Resource() string { return s.resource }

func (s *Store) Label() string { return s.opts.Label }

func (s *Store) Options() Options { return s.opts }

// Client returns the client the store talks to.
func (s *Store) Client() sdk.ResourceClient { return s.client }

// Notify forwards n to the store's Notifier.
func (s *Store) Notify(n Notification) { s.notifier.Notify(n) }

// Confirm asks the store's Confirmer.
func (s *Store) Confirm(ctx context.Context, c Confirmation) bool {
	return s.confirmer.Confirm(ctx, c)
}

// Logger returns the store's logger.
func (s *Store) Logger() sdk.Logger { return s.log }

// FetchAll replaces the items with the server's collection. With
// WithAdditional the named resources are fetched in parallel and kept as
// auxiliary data; nothing is stored unless every request succeeds. On failure
// the items and requested auxiliary collections are reset to empty, the user is
// notified and the error is returned.
func (s *Store) FetchAll(ctx context.Context, fetchOpts ...FetchOption) ([]schema.Record, error) {
	var cfg fetchConfig
	for _, o := range fetchOpts {
		o(&cfg)
	}

	s.setLoading(true)
	defer s.setLoading(false)

	var primary []schema.Record
	aux := make([][]schema.Record, len(cfg.additional))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if cfg.query != nil {
			primary, err = s.client.Query(gctx, s.resource, cfg.query)
		} else {
			primary, err = s.client.GetAll(gctx, s.resource)
		}
		return err
	})
	for i, name := range cfg.additional {
		i, name := i, name
		g.Go(func() error {
			recs, err := s.client.GetAll(gctx, name)
			aux[i] = recs
			return err
		})
	}

	if err := g.Wait(); err != nil {
		s.mu.Lock()
		s.items = []schema.Record{}
		for _, name := range cfg.additional {
			s.additional[name] = []schema.Record{}
		}
		s.pruneSelectionLocked()
		s.mu.Unlock()

		s.log.Errorf("Failed to fetch %s: %v", s.resource, err)
		s.notifier.Notify(failure("fetch", s.opts.Label, err))
		return nil, err
	}

	items := dedupe(primary)
	s.mu.Lock()
	s.items = items
	for i, name := range cfg.additional {
		s.additional[name] = nonNil(aux[i])
	}
	s.pruneSelectionLocked()
	s.mu.Unlock()

	s.log.Debugf("%s loaded: %d", s.resource, len(items))
	return schema.CloneAll(items), nil
}

// Create posts data, or the default create payload when data is nil, and puts
// the returned record first.
func (s *Store) Create(ctx context.Context, data schema.Record) (schema.Record, error) {
	if data == nil {
		if s.opts.DefaultCreateData != nil {
			data = s.opts.DefaultCreateData()
		}
		if data == nil {
			data = schema.Record{}
		}
	}

	created, err := s.client.Create(ctx, s.resource, data)
	if err != nil {
		s.log.Errorf("Failed to create %s: %v", s.resource, err)
		s.notifier.Notify(failure("create", s.opts.Label, err))
		return nil, err
	}

	s.Prepend(created)
	s.notifier.Notify(Notification{Severity: Positive, Message: fmt.Sprintf("New %s added", s.opts.Label)})
	return created.Clone(), nil
}

// Prepend puts r first in the items, replacing any record with the same id.
// It is for records the server already acknowledged.
func (s *Store) Prepend(r schema.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]schema.Record{r.Clone()}, removeID(s.items, r.IDKey())...)
}

// Append puts r last in the items, replacing any record with the same id.
func (s *Store) Append(r schema.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(removeID(s.items, r.IDKey()), r.Clone())
}

// SaveField updates a single field of record on the server and, once
// acknowledged, in the local items. Fields whose name contains "date_" are sent
// as plain dates (YYYY-MM-DD). It reports whether the update happened.
func (s *Store) SaveField(ctx context.Context, record schema.Record, field string, value any) bool {
	apiValue := normalizeField(field, value)
	s.log.Debugf("Saving field: %s %s %s", s.resource, record.IDKey(), field)

	if record.IDKey() == "" {
		s.notifier.Notify(Notification{Severity: Negative, Message: fmt.Sprintf("Failed to update %s: record has no id", field)})
		return false
	}

	if _, err := s.client.Update(ctx, s.resource, record.ID(), schema.Record{field: apiValue}); err != nil {
		s.log.Errorf("Save field error: %v", err)
		s.notifier.Notify(failure("update", field, err))
		return false
	}

	s.mu.Lock()
	key := record.IDKey()
	for i, it := range s.items {
		if it.IDKey() == key {
			updated := it.Clone()
			updated[field] = apiValue
			s.items[i] = updated
			break
		}
	}
	if s.selectedItem != nil && s.selectedItem.IDKey() == key {
		s.selectedItem = s.selectedItem.Clone()
		s.selectedItem[field] = apiValue
	}
	s.mu.Unlock()

	s.notifier.Notify(Notification{Severity: Positive, Message: field + " updated", Timeout: time.Second})
	return true
}

// DeleteItem asks for confirmation, deletes record on the server, then drops
// it from the items and the selection. It reports whether the deletion
// happened; false on cancel or failure.
func (s *Store) DeleteItem(ctx context.Context, record schema.Record) bool {
	c := DeleteItemConfirmation(s.opts.Label, s.opts.DisplayField, record)
	if !s.confirmer.Confirm(ctx, c) {
		return false
	}

	if err := s.client.Delete(ctx, s.resource, record.ID()); err != nil {
		s.log.Errorf("Failed to delete %s %s: %v", s.resource, record.IDKey(), err)
		s.notifier.Notify(failure("delete", s.opts.Label, err))
		return false
	}

	s.Remove(record.IDKey())
	s.notifier.Notify(Notification{Severity: Positive, Message: fmt.Sprintf("%s deleted successfully", s.opts.Label)})
	return true
}

// DeleteSelected deletes every selected record after a single confirmation.
// The deletes run concurrently. Local removal is all-or-nothing: if any request
// fails no record is removed from the items, even though the server may have
// deleted some of them.
func (s *Store) DeleteSelected(ctx context.Context) bool {
	selected := s.SelectedItems()
	if len(selected) == 0 {
		return false
	}

	c := DeleteSelectedConfirmation(s.opts.Label, len(selected))
	if !s.confirmer.Confirm(ctx, c) {
		return false
	}

	var g errgroup.Group
	for _, r := range selected {
		r := r
		g.Go(func() error {
			return s.client.Delete(ctx, s.resource, r.ID())
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Errorf("Failed to delete %s: %v", s.resource, err)
		s.notifier.Notify(failure("delete selected", s.opts.Label, err))
		return false
	}

	keys := make([]string, len(selected))
	for i, r := range selected {
		keys[i] = r.IDKey()
	}
	s.Remove(keys...)
	s.mu.Lock()
	s.selectedItems = nil
	s.mu.Unlock()

	s.notifier.Notify(Notification{Severity: Positive, Message: fmt.Sprintf("Selected %s deleted successfully", s.opts.Label)})
	return true
}

// Remove drops the records with the given id keys from the items and the
// selection. Unknown ids are ignored.
func (s *Store) Remove(idKeys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range idKeys {
		s.items = removeID(s.items, k)
	}
	s.pruneSelectionLocked()
}

// GetRelated fetches a nested collection. Errors are logged and read as an
// empty result.
func (s *Store) GetRelated(ctx context.Context, id any, relation string) []schema.Record {
	recs, err := s.client.GetRelated(ctx, s.resource, id, relation)
	if err != nil {
		s.log.Errorf("Failed to fetch %s for %s: %v", relation, s.resource, err)
		return []schema.Record{}
	}
	return nonNil(recs)
}

// CreateRelated creates a record in a nested collection. Failures are notified
// and returned.
func (s *Store) CreateRelated(ctx context.Context, id any, relation string, data schema.Record) (schema.Record, error) {
	rec, err := s.client.CreateRelated(ctx, s.resource, id, relation, data)
	if err != nil {
		s.log.Errorf("Failed to create %s for %s %s: %v", relation, s.resource, schema.IDKey(id), err)
		s.notifier.Notify(failure("create", relation, err))
		return nil, err
	}
	return rec, nil
}

// Items returns the records in server order.
func (s *Store) Items() []schema.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return schema.CloneAll(s.items)
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Find returns the item with the given id.
func (s *Store) Find(id any) (schema.Record, bool) {
	key := schema.IDKey(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.IDKey() == key {
			return it.Clone(), true
		}
	}
	return nil, false
}

// Loading reports whether a FetchAll is in progress.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Additional returns the auxiliary collection fetched under name, or an empty
// slice if it was never requested.
func (s *Store) Additional(name string) []schema.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return nonNil(schema.CloneAll(s.additional.Get(name)))
}

func (s *Store) SetSearchQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchQuery = q
}

func (s *Store) SearchQuery() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searchQuery
}

// SortedItems returns the items ordered by the configured sort rule, or in
// server order when there is none.
func (s *Store) SortedItems() []schema.Record {
	s.mu.RLock()
	items := schema.CloneAll(s.items)
	additional := s.snapshotAdditionalLocked()
	s.mu.RUnlock()

	return s.opts.Sort.Sort(items, additional)
}

// FilteredItems returns SortedItems narrowed to records where any search field
// contains the search query, ignoring case. The query is used as given;
// whitespace is not trimmed.
func (s *Store) FilteredItems() []schema.Record {
	return filter(s.SortedItems(), s.SearchQuery(), s.opts.SearchFields)
}

// SelectItem marks r as the active record. nil clears it.
func (s *Store) SelectItem(r schema.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedItem = r.Clone()
}

// SelectedItem returns the active record, or nil.
func (s *Store) SelectedItem() schema.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedItem.Clone()
}

// SetSelectedItems replaces the bulk selection.
func (s *Store) SetSelectedItems(recs ...schema.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedItems = dedupe(recs)
}

// ToggleSelected adds r to the bulk selection, or removes it if already
// selected. It reports whether r is selected afterwards.
func (s *Store) ToggleSelected(r schema.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := r.IDKey()
	before := len(s.selectedItems)
	s.selectedItems = removeID(s.selectedItems, key)
	if len(s.selectedItems) < before {
		return false
	}
	s.selectedItems = append(s.selectedItems, r.Clone())
	return true
}

// SelectedItems returns the bulk selection.
func (s *Store) SelectedItems() []schema.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return schema.CloneAll(s.selectedItems)
}

// ClearSelection empties the bulk selection and the active record.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedItems = nil
	s.selectedItem = nil
}

// SelectedString summarizes the bulk selection, or returns "" when it is
// empty.
func (s *Store) SelectedString() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.selectedItems) == 0 {
		return ""
	}
	return fmt.Sprintf("%d record(s) selected of %d", len(s.selectedItems), len(s.items))
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Store) snapshotAdditionalLocked() Additional {
	out := make(Additional, len(s.additional))
	for k, v := range s.additional {
		out[k] = schema.CloneAll(v)
	}
	return out
}

// pruneSelectionLocked keeps the selection consistent with the items: the
// active record and bulk selection follow the current version of each record
// and are dropped once their id is gone.
func (s *Store) pruneSelectionLocked() {
	index := make(map[string]schema.Record, len(s.items))
	for _, it := range s.items {
		index[it.IDKey()] = it
	}

	if s.selectedItem != nil {
		if cur, ok := index[s.selectedItem.IDKey()]; ok {
			s.selectedItem = cur.Clone()
		} else {
			s.selectedItem = nil
		}
	}

	kept := s.selectedItems[:0:0]
	for _, r := range s.selectedItems {
		if cur, ok := index[r.IDKey()]; ok {
			kept = append(kept, cur.Clone())
		}
	}
	s.selectedItems = kept
}

// normalizeField truncates timestamps sent for date fields to the date part.
func normalizeField(field string, value any) any {
	if !strings.Contains(field, "date_") {
		return value
	}
	switch v := value.(type) {
	case string:
		date, _, _ := strings.Cut(v, "T")
		return date
	case time.Time:
		if v.IsZero() {
			return nil
		}
		return v.Format(time.DateOnly)
	case *time.Time:
		if v == nil || v.IsZero() {
			return nil
		}
		return v.Format(time.DateOnly)
	default:
		return value
	}
}

// dedupe copies recs, keeping the first record for each id.
func dedupe(recs []schema.Record) []schema.Record {
	out := make([]schema.Record, 0, len(recs))
	seen := make(map[string]bool, len(recs))
	for _, r := range recs {
		k := r.IDKey()
		if k != "" {
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		out = append(out, r.Clone())
	}
	return out
}

func removeID(recs []schema.Record, key string) []schema.Record {
	out := recs[:0:0]
	for _, r := range recs {
		if r.IDKey() != key {
			out = append(out, r)
		}
	}
	return out
}

func nonNil(recs []schema.Record) []schema.Record {
	if recs == nil {
		return []schema.Record{}
	}
	return recs
}
