package engine

import (
	"fmt"
	"os"
	"sort"

	"github.com/celerix-dev/realtrack/pkg/schema"
	"gopkg.in/yaml.v3"
)

// Seed is initial data keyed by resource name.
type Seed map[string][]schema.Record

// LoadSeed reads a seed file. The file must be in JSON or YAML format.
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string][]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse seed %q: %w", path, err)
	}

	seed := make(Seed, len(raw))
	for resource, rows := range raw {
		recs := make([]schema.Record, len(rows))
		for i, row := range rows {
			recs[i] = schema.Record(row)
		}
		seed[resource] = recs
	}
	return seed, nil
}

// Import pushes every seed record into dst and returns how many were created.
// Link tables are imported last so that, on an empty store, link rows can refer
// to the ids handed out in seed order (1, 2, 3...).
//
// This works for:
// - Fresh dev databases (seed file on startup)
// - Test fixtures
func Import(dst RecordStore, seed Seed) (int, error) {
	linkTables := make(map[string]bool)
	for _, j := range DefaultJoins {
		linkTables[j.Table] = true
	}

	names := make([]string, 0, len(seed))
	for name := range seed {
		names = append(names, name)
	}
	sort.Slice(names, func(i, k int) bool {
		if linkTables[names[i]] != linkTables[names[k]] {
			return !linkTables[names[i]]
		}
		return names[i] < names[k]
	})

	count := 0
	for _, name := range names {
		for _, rec := range seed[name] {
			if _, err := dst.Create(name, rec); err != nil {
				return count, fmt.Errorf("failed to import %s record: %w", name, err)
			}
			count++
		}
	}
	return count, nil
}
