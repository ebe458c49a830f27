package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/celerix-dev/realtrack/pkg/schema"
	"github.com/celerix-dev/realtrack/pkg/sdk"
)

// Table is one resource: its rows in insertion order and the last id handed out.
type Table struct {
	LastID int64           `json:"last_id"`
	Rows   []schema.Record `json:"rows"`

	seq uint64
}

// MemStore is the thread-safe record engine.
type MemStore struct {
	mu sync.RWMutex
	// Structure: [resource]table
	data      map[string]*Table
	joins     []Join
	persister *Persistence
	log       sdk.Logger
	wg        sync.WaitGroup
	seq       atomic.Uint64
}

// NewMemStore initializes a store.
// It accepts existing data (from LoadAll) and a persister; both may be nil.
func NewMemStore(initialData map[string]*Table, p *Persistence, opts ...Option) *MemStore {
	if initialData == nil {
		initialData = make(map[string]*Table)
	}
	return &MemStore{
		data:      initialData,
		joins:     DefaultJoins,
		persister: p,
		log:       resolve(opts).log,
	}
}

// Wait waits for all background persistence tasks to complete.
func (m *MemStore) Wait() {
	m.wg.Wait()
}

// --- Interface Implementation ---

func (m *MemStore) Resources() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []string
	for name, t := range m.data {
		if len(t.Rows) > 0 {
			list = append(list, name)
		}
	}
	sort.Strings(list)
	return list
}

func (m *MemStore) List(resource string, filter map[string]string) ([]schema.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]schema.Record, 0)
	t, ok := m.data[resource]
	if !ok {
		return list, nil
	}
	for _, row := range t.Rows {
		if matches(row, filter) {
			list = append(list, row.Clone())
		}
	}
	return list, nil
}

func (m *MemStore) Get(resource, id string) (schema.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, row := m.find(resource, id)
	if row == nil {
		return nil, ErrNotFound
	}
	return row.Clone(), nil
}

func (m *MemStore) Create(resource string, rec schema.Record) (schema.Record, error) {
	m.mu.Lock()
	created, err := m.createLocked(resource, rec)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	snapshot := m.copyTable(resource)
	m.mu.Unlock()

	m.persist(resource, snapshot)
	return created, nil
}

func (m *MemStore) Update(resource, id string, patch schema.Record) (schema.Record, error) {
	m.mu.Lock()
	_, row := m.find(resource, id)
	if row == nil {
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		row[k] = v
	}
	updated := row.Clone()
	snapshot := m.copyTable(resource)
	m.mu.Unlock()

	m.persist(resource, snapshot)
	return updated, nil
}

func (m *MemStore) Delete(resource, id string) error {
	m.mu.Lock()
	idx, _ := m.find(resource, id)
	if idx < 0 {
		m.mu.Unlock()
		return ErrNotFound
	}
	t := m.data[resource]
	t.Rows = append(t.Rows[:idx], t.Rows[idx+1:]...)

	touched := map[string]*Table{resource: m.copyTable(resource)}
	for _, j := range m.joins {
		var key string
		switch resource {
		case j.LeftResource:
			key = j.LeftKey
		case j.RightResource:
			key = j.RightKey
		default:
			continue
		}
		if m.removeWhereLocked(j.Table, map[string]string{key: id}) > 0 {
			touched[j.Table] = m.copyTable(j.Table)
		}
	}
	m.mu.Unlock()

	for name, snapshot := range touched {
		m.persist(name, snapshot)
	}
	return nil
}

func (m *MemStore) DeleteLinkPair(leftID, rightID string) error {
	if len(m.joins) == 0 {
		return ErrNotFound
	}
	j := m.joins[0]

	m.mu.Lock()
	n := m.removeWhereLocked(j.Table, map[string]string{j.LeftKey: leftID, j.RightKey: rightID})
	if n == 0 {
		m.mu.Unlock()
		return ErrNotFound
	}
	snapshot := m.copyTable(j.Table)
	m.mu.Unlock()

	m.persist(j.Table, snapshot)
	return nil
}

func (m *MemStore) Related(resource, id, relation string) ([]schema.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, row := m.find(resource, id); row == nil {
		return nil, ErrNotFound
	}

	if j, fromKey, toKey, ok := m.joinFor(resource, relation); ok {
		list := make([]schema.Record, 0)
		links := m.data[j.Table]
		if links == nil {
			return list, nil
		}
		for _, link := range links.Rows {
			if link.String(fromKey) != id {
				continue
			}
			if _, target := m.find(relation, link.String(toKey)); target != nil {
				list = append(list, target.Clone())
			}
		}
		return list, nil
	}

	list := make([]schema.Record, 0)
	t := m.data[relation]
	if t == nil {
		return list, nil
	}
	fk := ForeignKey(resource)
	for _, row := range t.Rows {
		if row.String(fk) == id {
			list = append(list, row.Clone())
		}
	}
	return list, nil
}

func (m *MemStore) CreateRelated(resource, id, relation string, rec schema.Record) (schema.Record, error) {
	m.mu.Lock()
	if _, row := m.find(resource, id); row == nil {
		m.mu.Unlock()
		return nil, ErrNotFound
	}

	touched := []string{relation}
	var created schema.Record
	var err error
	if j, fromKey, toKey, ok := m.joinFor(resource, relation); ok {
		created, err = m.createLocked(relation, rec)
		if err == nil {
			_, err = m.createLocked(j.Table, schema.Record{fromKey: parseID(id), toKey: created["id"]})
			touched = append(touched, j.Table)
		}
	} else {
		rec = rec.Clone()
		if rec == nil {
			rec = schema.Record{}
		}
		rec[ForeignKey(resource)] = parseID(id)
		created, err = m.createLocked(relation, rec)
	}
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}

	snapshots := make(map[string]*Table, len(touched))
	for _, name := range touched {
		snapshots[name] = m.copyTable(name)
	}
	m.mu.Unlock()

	for name, snapshot := range snapshots {
		m.persist(name, snapshot)
	}
	return created, nil
}

// ForeignKey returns the column that references resource from a child table:
// "transactions" -> "transaction_id", "priorities" -> "priority_id".
func ForeignKey(resource string) string {
	switch {
	case strings.HasSuffix(resource, "ies"):
		return strings.TrimSuffix(resource, "ies") + "y_id"
	case strings.HasSuffix(resource, "s"):
		return strings.TrimSuffix(resource, "s") + "_id"
	default:
		return resource + "_id"
	}
}

// createLocked MUST be called while holding m.mu.Lock.
func (m *MemStore) createLocked(resource string, rec schema.Record) (schema.Record, error) {
	if resource == "" {
		return nil, fmt.Errorf("%w: resource name is empty", ErrBadRecord)
	}
	row := rec.Clone()
	if row == nil {
		row = schema.Record{}
	}
	delete(row, "id")

	for _, j := range m.joins {
		if j.Table != resource {
			continue
		}
		left, right := row.String(j.LeftKey), row.String(j.RightKey)
		if left == "" || right == "" {
			return nil, fmt.Errorf("%w: %s and %s are required", ErrBadRecord, j.LeftKey, j.RightKey)
		}
		if t := m.data[resource]; t != nil {
			for _, existing := range t.Rows {
				if matches(existing, map[string]string{j.LeftKey: left, j.RightKey: right}) {
					return nil, ErrDuplicate
				}
			}
		}
	}

	t := m.data[resource]
	if t == nil {
		t = &Table{}
		m.data[resource] = t
	}
	t.LastID++
	row["id"] = t.LastID
	t.Rows = append(t.Rows, row)
	return row.Clone(), nil
}

// removeWhereLocked MUST be called while holding m.mu.Lock.
func (m *MemStore) removeWhereLocked(resource string, filter map[string]string) int {
	t := m.data[resource]
	if t == nil {
		return 0
	}
	kept := t.Rows[:0]
	removed := 0
	for _, row := range t.Rows {
		if matches(row, filter) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	t.Rows = kept
	return removed
}

// find MUST be called while holding m.mu (read or write).
func (m *MemStore) find(resource, id string) (int, schema.Record) {
	t, ok := m.data[resource]
	if !ok {
		return -1, nil
	}
	for i, row := range t.Rows {
		if row.IDKey() == id {
			return i, row
		}
	}
	return -1, nil
}

func (m *MemStore) joinFor(resource, relation string) (Join, string, string, bool) {
	for _, j := range m.joins {
		if j.LeftResource == resource && j.RightResource == relation {
			return j, j.LeftKey, j.RightKey, true
		}
		if j.RightResource == resource && j.LeftResource == relation {
			return j, j.RightKey, j.LeftKey, true
		}
	}
	return Join{}, "", "", false
}

// copyTable creates a deep copy of a resource table.
// It MUST be called while holding m.mu.Lock or m.mu.RLock.
func (m *MemStore) copyTable(resource string) *Table {
	original, ok := m.data[resource]
	if !ok {
		return nil
	}
	return &Table{LastID: original.LastID, Rows: schema.CloneAll(original.Rows), seq: m.seq.Add(1)}
}

func (m *MemStore) persist(resource string, snapshot *Table) {
	if m.persister == nil || snapshot == nil {
		return
	}
	m.wg.Add(1)
	go func(name string, t *Table) {
		defer m.wg.Done()
		if err := m.persister.SaveTable(name, t, t.seq); err != nil {
			m.log.Warnf("Could not persist %s: %v", name, err)
		}
	}(resource, snapshot)
}

func matches(row schema.Record, filter map[string]string) bool {
	for k, want := range filter {
		if row.String(k) != want {
			return false
		}
	}
	return true
}

// parseID keeps numeric ids numeric so that link rows look like the ones a
// client would post.
func parseID(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
