package neuprep

import (
	"sort"
	"strings"
)

// DefaultMirrorSuffix marks the mirrored variant of a shape, e.g. "720575940612345678_m".
const DefaultMirrorSuffix = "_m"

// Identifier is the string identity of a shape or record.  FlyWire root ids and
// hemibrain body ids are both carried as decimal strings.
type Identifier string

// IsMirrored returns true if the identifier ends with the given mirror suffix.
func (id Identifier) IsMirrored(suffix string) bool {
	if suffix == "" {
		return false
	}
	s := string(id)
	return len(s) > len(suffix) && strings.HasSuffix(s, suffix)
}

// Strip removes trailing mirror suffixes, including repeated ones left by
// mirroring an already mirrored shape.  Identifiers without the suffix are
// returned unchanged, so Strip is idempotent.
func (id Identifier) Strip(suffix string) Identifier {
	for id.IsMirrored(suffix) {
		id = Identifier(strings.TrimSuffix(string(id), suffix))
	}
	return id
}

// Mirror returns the mirrored variant of the identifier.
func (id Identifier) Mirror(suffix string) Identifier {
	if id.IsMirrored(suffix) {
		return id
	}
	return Identifier(string(id) + suffix)
}

// Identifiers is a list of Identifier that can be sorted.
type Identifiers []Identifier

func (ids Identifiers) Len() int           { return len(ids) }
func (ids Identifiers) Swap(i, j int)      { ids[i], ids[j] = ids[j], ids[i] }
func (ids Identifiers) Less(i, j int) bool { return ids[i] < ids[j] }

// Unique returns the identifiers with duplicates removed, keeping first appearance order.
func (ids Identifiers) Unique() Identifiers {
	seen := make(map[Identifier]struct{}, len(ids))
	out := make(Identifiers, 0, len(ids))
	for _, id := range ids {
		if _, found := seen[id]; found {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Sorted returns a sorted copy.
func (ids Identifiers) Sorted() Identifiers {
	out := make(Identifiers, len(ids))
	copy(out, ids)
	sort.Sort(out)
	return out
}

// Strings returns the identifiers as plain strings.
func (ids Identifiers) Strings() []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// ParseIdentifiers converts a list of strings, trimming whitespace and skipping
// blank entries.
func ParseIdentifiers(strs []string) Identifiers {
	ids := make(Identifiers, 0, len(strs))
	for _, s := range strs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		ids = append(ids, Identifier(s))
	}
	return ids
}
