package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/celerix-dev/realtrack/pkg/sdk"
)

// Persistence handles the disk I/O for the MemStore. Each resource is one JSON
// file in DataDir.
type Persistence struct {
	DataDir string
	mu      sync.Mutex // Protects concurrent writes to the filesystem
	written map[string]uint64
	log     sdk.Logger
}

// NewPersistence initializes a persistence handler.
func NewPersistence(dir string, opts ...Option) (*Persistence, error) {
	// Ensure the data directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Persistence{DataDir: dir, written: make(map[string]uint64), log: resolve(opts).log}, nil
}

// SaveTable writes a single resource table to a JSON file atomically. Snapshots
// carry a sequence number; a snapshot older than the last one written for the
// same resource is dropped.
func (p *Persistence) SaveTable(resource string, t *Table, seq uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq != 0 && seq < p.written[resource] {
		return nil
	}

	filePath := filepath.Join(p.DataDir, fmt.Sprintf("%s.json", resource))
	tempPath := filePath + ".tmp"

	bytes, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tempPath, bytes, 0644); err != nil {
		return err
	}

	// Rename is atomic on POSIX filesystems: readers see the old file or the new
	// one, never a partial write.
	if err := os.Rename(tempPath, filePath); err != nil {
		return err
	}
	p.written[resource] = seq
	return nil
}

// LoadAll returns every resource table found in the data directory.
func (p *Persistence) LoadAll() (map[string]*Table, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	allData := make(map[string]*Table)

	files, err := os.ReadDir(p.DataDir)
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}
		resource := file.Name()[:len(file.Name())-5] // Strip .json

		content, err := os.ReadFile(filepath.Join(p.DataDir, file.Name()))
		if err != nil {
			p.log.Warnf("Could not read table file %s: %v", file.Name(), err)
			continue // Skip corrupted/unreadable files
		}

		var t Table
		if err := json.Unmarshal(content, &t); err != nil {
			p.log.Warnf("Could not unmarshal table data from %s: %v", file.Name(), err)
			continue
		}
		allData[resource] = &t
	}
	return allData, nil
}
