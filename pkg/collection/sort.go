package collection

import (
	"cmp"
	"slices"
	"strings"

	"github.com/celerix-dev/realtrack/pkg/schema"
)

// Additional holds auxiliary collections fetched alongside the primary one,
// keyed by resource name.
type Additional map[string][]schema.Record

// Get returns the named collection. Absent names read as empty.
func (a Additional) Get(name string) []schema.Record {
	if a == nil {
		return nil
	}
	return a[name]
}

// Comparator orders two records, returning a negative number when a sorts
// before b, a positive number when after, and zero for ties. It may consult the
// auxiliary collections.
type Comparator func(a, b schema.Record, additional Additional) int

// SortRule orders a collection either by a single field or by a Comparator.
// The zero SortRule leaves items in server order.
type SortRule struct {
	field string
	cmp   Comparator
}

// SortByField sorts ascending on field. Numbers compare numerically, anything
// else as text. Records missing the field sort last.
func SortByField(field string) SortRule {
	return SortRule{field: field}
}

// SortWith sorts using cmp.
func SortWith(cmp Comparator) SortRule {
	return SortRule{cmp: cmp}
}

// IsZero reports whether the rule sorts at all.
func (r SortRule) IsZero() bool {
	return r.field == "" && r.cmp == nil
}

// Field returns the field name of a SortByField rule.
func (r SortRule) Field() string {
	return r.field
}

// Compare applies the rule to a pair of records.
func (r SortRule) Compare(a, b schema.Record, additional Additional) int {
	switch {
	case r.cmp != nil:
		return r.cmp(a, b, additional)
	case r.field != "":
		return CompareField(a, b, r.field)
	default:
		return 0
	}
}

// Sort returns a sorted copy of recs. Ties keep their relative order.
func (r SortRule) Sort(recs []schema.Record, additional Additional) []schema.Record {
	out := slices.Clone(recs)
	if r.IsZero() {
		return out
	}
	slices.SortStableFunc(out, func(a, b schema.Record) int {
		return r.Compare(a, b, additional)
	})
	return out
}

// CompareField compares a single field of two records.
func CompareField(a, b schema.Record, field string) int {
	av, bv := a[field], b[field]
	switch {
	case av == nil && bv == nil:
		return 0
	case av == nil:
		return 1
	case bv == nil:
		return -1
	}

	an, aok := schema.Numeric(av)
	bn, bok := schema.Numeric(bv)
	if aok && bok {
		return cmp.Compare(an, bn)
	}
	return strings.Compare(schema.Stringify(av), schema.Stringify(bv))
}

// filter keeps records where any of fields contains query, ignoring case.
func filter(recs []schema.Record, query string, fields []string) []schema.Record {
	if query == "" {
		return recs
	}
	needle := strings.ToLower(query)
	out := make([]schema.Record, 0, len(recs))
	for _, r := range recs {
		for _, f := range fields {
			v, ok := r[f]
			if !ok || v == nil {
				continue
			}
			if strings.Contains(strings.ToLower(schema.Stringify(v)), needle) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
