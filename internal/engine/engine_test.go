package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/celerix-dev/realtrack/pkg/schema"
	"github.com/celerix-dev/realtrack/pkg/sdk"
)

func TestMemStore_CreateGetUpdateDelete(t *testing.T) {
	ms := NewMemStore(nil, nil)

	created, err := ms.Create("transactions", schema.Record{"id": 99, "name": "Main St"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.IDKey() != "1" {
		t.Errorf("Expected assigned id 1, got %v", created.ID())
	}

	got, err := ms.Get("transactions", "1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got["name"] != "Main St" {
		t.Errorf("Expected Main St, got %v", got["name"])
	}

	updated, err := ms.Update("transactions", "1", schema.Record{"id": 5, "notes": "call back"})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.IDKey() != "1" || updated["notes"] != "call back" || updated["name"] != "Main St" {
		t.Errorf("Unexpected update result: %v", updated)
	}

	if err := ms.Delete("transactions", "1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := ms.Get("transactions", "1"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := ms.Delete("transactions", "1"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemStore_ListFilterKeepsOrder(t *testing.T) {
	ms := NewMemStore(nil, nil)
	ms.Create("buildings", schema.Record{"address_street": "A", "address_zip": "10001"})
	ms.Create("buildings", schema.Record{"address_street": "B", "address_zip": "10002"})
	ms.Create("buildings", schema.Record{"address_street": "C", "address_zip": "10001"})

	all, _ := ms.List("buildings", nil)
	if len(all) != 3 || all[0]["address_street"] != "A" || all[2]["address_street"] != "C" {
		t.Errorf("Unexpected list: %v", all)
	}

	filtered, _ := ms.List("buildings", map[string]string{"address_zip": "10001"})
	if len(filtered) != 2 {
		t.Errorf("Expected 2 filtered rows, got %d", len(filtered))
	}

	byID, _ := ms.List("buildings", map[string]string{"id": "2"})
	if len(byID) != 1 || byID[0]["address_street"] != "B" {
		t.Errorf("Expected building B, got %v", byID)
	}

	empty, err := ms.List("unknown", nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected empty list for unknown resource, got %v, %v", empty, err)
	}
}

func TestMemStore_ListReturnsCopies(t *testing.T) {
	ms := NewMemStore(nil, nil)
	ms.Create("priorities", schema.Record{"order": 1})

	list, _ := ms.List("priorities", nil)
	list[0]["order"] = 50

	again, _ := ms.List("priorities", nil)
	if again[0]["order"] != 1 {
		t.Error("Mutating a listed record must not change the store")
	}
}

func TestMemStore_LinksAndRelated(t *testing.T) {
	ms := NewMemStore(nil, nil)
	ms.Create("transactions", schema.Record{"name": "Deal"})
	ms.Create("buildings", schema.Record{"address_street": "1 Elm"})
	ms.Create("buildings", schema.Record{"address_street": "2 Oak"})

	if _, err := ms.Create(schema.ResourceLinks, schema.Record{"transaction_id": 1, "building_id": 2}); err != nil {
		t.Fatalf("link create failed: %v", err)
	}
	if _, err := ms.Create(schema.ResourceLinks, schema.Record{"transaction_id": 1, "building_id": 2}); err != ErrDuplicate {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
	if _, err := ms.Create(schema.ResourceLinks, schema.Record{"transaction_id": 1}); !errors.Is(err, ErrBadRecord) {
		t.Errorf("Expected ErrBadRecord, got %v", err)
	}

	related, err := ms.Related("transactions", "1", "buildings")
	if err != nil {
		t.Fatalf("Related failed: %v", err)
	}
	if len(related) != 1 || related[0]["address_street"] != "2 Oak" {
		t.Errorf("Expected [2 Oak], got %v", related)
	}

	back, _ := ms.Related("buildings", "2", "transactions")
	if len(back) != 1 || back[0]["name"] != "Deal" {
		t.Errorf("Expected [Deal], got %v", back)
	}

	if err := ms.DeleteLinkPair("1", "2"); err != nil {
		t.Fatalf("DeleteLinkPair failed: %v", err)
	}
	if err := ms.DeleteLinkPair("1", "2"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemStore_DeleteCascadesLinks(t *testing.T) {
	ms := NewMemStore(nil, nil)
	ms.Create("transactions", schema.Record{"name": "Deal"})
	ms.Create("buildings", schema.Record{"address_street": "1 Elm"})
	ms.Create(schema.ResourceLinks, schema.Record{"transaction_id": 1, "building_id": 1})

	if err := ms.Delete("buildings", "1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	links, _ := ms.List(schema.ResourceLinks, nil)
	if len(links) != 0 {
		t.Errorf("Expected links to be removed, got %v", links)
	}
}

func TestMemStore_CreateRelated(t *testing.T) {
	ms := NewMemStore(nil, nil)
	ms.Create("transactions", schema.Record{"name": "Deal"})

	note, err := ms.CreateRelated("transactions", "1", "notes", schema.Record{"text": "hello"})
	if err != nil {
		t.Fatalf("CreateRelated failed: %v", err)
	}
	if note.String("transaction_id") != "1" {
		t.Errorf("Expected foreign key to be set, got %v", note)
	}

	notes, _ := ms.Related("transactions", "1", "notes")
	if len(notes) != 1 {
		t.Errorf("Expected 1 note, got %d", len(notes))
	}

	b, err := ms.CreateRelated("transactions", "1", "buildings", schema.Record{"address_street": "9 Pine"})
	if err != nil {
		t.Fatalf("CreateRelated through join failed: %v", err)
	}
	buildings, _ := ms.Related("transactions", "1", "buildings")
	if len(buildings) != 1 || !buildings[0].SameID(b) {
		t.Errorf("Expected the new building to be linked, got %v", buildings)
	}

	if _, err := ms.CreateRelated("transactions", "42", "notes", nil); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound for missing parent, got %v", err)
	}
}

func TestForeignKey(t *testing.T) {
	cases := map[string]string{
		"transactions": "transaction_id",
		"priorities":   "priority_id",
		"staff":        "staff_id",
	}
	for in, want := range cases {
		if got := ForeignKey(in); got != want {
			t.Errorf("ForeignKey(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestPersistence(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "realtrack-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	p, err := NewPersistence(tmpDir)
	if err != nil {
		t.Fatalf("NewPersistence failed: %v", err)
	}

	table := &Table{LastID: 1, Rows: []schema.Record{{"id": 1, "name": "x"}}}
	if err := p.SaveTable("transactions", table, 2); err != nil {
		t.Fatalf("SaveTable failed: %v", err)
	}

	// an older snapshot must not overwrite the newer one
	stale := &Table{LastID: 0}
	if err := p.SaveTable("transactions", stale, 1); err != nil {
		t.Fatalf("SaveTable failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "transactions.json")); os.IsNotExist(err) {
		t.Fatal("Table file was not created")
	}

	allData, err := p.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	got := allData["transactions"]
	if got == nil || got.LastID != 1 || len(got.Rows) != 1 || got.Rows[0]["name"] != "x" {
		t.Errorf("Loaded data mismatch: %+v", got)
	}
}

func TestMemStore_Persistence(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "realtrack-persistence-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	p, _ := NewPersistence(tmpDir)
	ms := NewMemStore(nil, p)

	ms.Create("participants", schema.Record{"participant": "Ann"})
	ms.Create("participants", schema.Record{"participant": "Bob"})
	ms.Wait() // Wait for background persistence

	// Create new MemStore and load data
	allData, _ := p.LoadAll()
	ms2 := NewMemStore(allData, p)

	got, err := ms2.Get("participants", "2")
	if err != nil {
		t.Fatalf("Get on new store failed: %v", err)
	}
	if got["participant"] != "Bob" {
		t.Errorf("Expected Bob, got %v", got["participant"])
	}

	next, _ := ms2.Create("participants", schema.Record{"participant": "Cy"})
	if next.IDKey() != "3" {
		t.Errorf("Expected id sequence to continue at 3, got %v", next.ID())
	}
}

func TestImport(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "realtrack-seed-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	seedYAML := `
link_transactions_buildings:
  - transaction_id: 1
    building_id: 1
transactions:
  - name: Corner lot
    priority_id: 1
buildings:
  - address_street: 12 Main St
priorities:
  - name: High
    order: 1
`
	path := filepath.Join(tmpDir, "seed.yaml")
	if err := os.WriteFile(path, []byte(seedYAML), 0644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	seed, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("LoadSeed failed: %v", err)
	}

	ms := NewMemStore(nil, nil)
	n, err := Import(ms, seed)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if n != 4 {
		t.Errorf("Expected 4 imported records, got %d", n)
	}

	linked, _ := ms.Related("transactions", "1", "buildings")
	if len(linked) != 1 || linked[0]["address_street"] != "12 Main St" {
		t.Errorf("Expected the seeded link, got %v", linked)
	}

	if got := ms.Resources(); len(got) != 4 {
		t.Errorf("Expected 4 resources, got %v", got)
	}
}

func TestMemStore_Concurrent(t *testing.T) {
	ms := NewMemStore(nil, nil)
	const (
		numGoroutines = 10
		numOps        = 50
	)
	var wg sync.WaitGroup

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOps; j++ {
				name := fmt.Sprintf("t-%d-%d", id, j)
				created, err := ms.Create("transactions", schema.Record{"name": name})
				if err != nil {
					t.Errorf("Create failed: %v", err)
					return
				}
				got, err := ms.Get("transactions", created.IDKey())
				if err != nil || got["name"] != name {
					t.Errorf("Concurrent error: expected %s, got %v, err %v", name, got, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	all, _ := ms.List("transactions", nil)
	if len(all) != numGoroutines*numOps {
		t.Errorf("Expected %d rows, got %d", numGoroutines*numOps, len(all))
	}
}

type warnings struct {
	sdk.NopLogger
	mu   sync.Mutex
	list []string
}

func (w *warnings) Warnf(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.list = append(w.list, fmt.Sprintf(format, args...))
}

func (w *warnings) all() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.list...)
}

func TestLoadAll_WarnsOnCorruptTable(t *testing.T) {
	tmpDir := t.TempDir()
	log := &warnings{}

	p, err := NewPersistence(tmpDir, WithLogger(log))
	if err != nil {
		t.Fatalf("NewPersistence failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "buildings.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := p.SaveTable("participants", &Table{LastID: 1, Rows: []schema.Record{{"id": 1}}}, 1); err != nil {
		t.Fatalf("SaveTable failed: %v", err)
	}

	allData, err := p.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if _, ok := allData["buildings"]; ok {
		t.Error("Corrupt table should be skipped")
	}
	if allData["participants"] == nil {
		t.Error("Readable table should still load")
	}

	got := log.all()
	if len(got) != 1 || !strings.Contains(got[0], "buildings.json") {
		t.Errorf("Expected one warning naming buildings.json, got %v", got)
	}
}

func TestMemStore_WarnsWhenPersistFails(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	log := &warnings{}

	p, err := NewPersistence(dataDir)
	if err != nil {
		t.Fatalf("NewPersistence failed: %v", err)
	}
	// replace the directory with a plain file so every write fails
	if err := os.RemoveAll(dataDir); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}
	if err := os.WriteFile(dataDir, nil, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	ms := NewMemStore(nil, p, WithLogger(log))
	if _, err := ms.Create("participants", schema.Record{"participant": "Ann"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	ms.Wait()

	got := log.all()
	if len(got) != 1 || !strings.Contains(got[0], "Could not persist participants") {
		t.Errorf("Expected a persist warning, got %v", got)
	}
}
