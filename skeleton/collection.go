package skeleton

import (
	"fmt"
	"sort"

	"github.com/tinylib/msgp/msgp"

	"github.com/janelia-flyem/neuprep/neuprep"
)

// Collection is a set of skeletons keyed by identifier.
type Collection map[neuprep.Identifier]*Skeleton

// NewCollection returns a collection holding the given skeletons.  Later
// skeletons replace earlier ones with the same identifier.
func NewCollection(skels ...*Skeleton) Collection {
	c := make(Collection, len(skels))
	for _, s := range skels {
		c[s.ID] = s
	}
	return c
}

// IDs returns the sorted identifiers.
func (c Collection) IDs() neuprep.Identifiers {
	ids := make(neuprep.Identifiers, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Sort(ids)
	return ids
}

// Sorted returns the skeletons ordered by identifier.
func (c Collection) Sorted() []*Skeleton {
	out := make([]*Skeleton, 0, len(c))
	for _, id := range c.IDs() {
		out = append(out, c[id])
	}
	return out
}

// Subset returns the skeletons with the given identifiers, along with the
// identifiers that were not found.
func (c Collection) Subset(ids neuprep.Identifiers) (Collection, neuprep.Identifiers) {
	out := make(Collection, len(ids))
	var missing neuprep.Identifiers
	for _, id := range ids {
		if s, found := c[id]; found {
			out[id] = s
		} else {
			missing = append(missing, id)
		}
	}
	return out, missing
}

// Merge adds updates to the collection.  Skeletons already present are
// replaced only if replace is true.
func (c Collection) Merge(updates Collection, replace bool) (added, replaced int) {
	for id, s := range updates {
		if _, found := c[id]; found {
			if !replace {
				continue
			}
			replaced++
		} else {
			added++
		}
		c[id] = s
	}
	return
}

// Marshal encodes the collection, sorted by identifier.
func (c Collection) Marshal() []byte {
	b := msgp.AppendArrayHeader(nil, uint32(len(c)))
	for _, s := range c.Sorted() {
		b = s.appendMsg(b)
	}
	return b
}

// UnmarshalCollection decodes a collection written by Collection.Marshal.
func UnmarshalCollection(b []byte) (Collection, error) {
	num, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return nil, err
	}
	c := make(Collection, num)
	for i := uint32(0); i < num; i++ {
		s := new(Skeleton)
		if b, err = s.readMsg(b); err != nil {
			return nil, fmt.Errorf("skeleton %d of %d: %v", i, num, err)
		}
		c[s.ID] = s
	}
	if len(b) != 0 {
		return nil, fmt.Errorf("%d trailing bytes after collection", len(b))
	}
	return c, nil
}

// Bundle returns the zstd-compressed encoding used for archive uploads.
func (c Collection) Bundle() ([]byte, error) {
	return Compress(c.Marshal())
}

// UnbundleCollection reverses Collection.Bundle.
func UnbundleCollection(data []byte) (Collection, error) {
	raw, err := Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("unable to decompress skeleton bundle: %v", err)
	}
	return UnmarshalCollection(raw)
}
