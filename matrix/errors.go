package matrix

import (
	"fmt"
	"strings"

	"github.com/janelia-flyem/neuprep/neuprep"
)

// ShapeMismatchError is returned when matrices cannot be combined, e.g. the
// forward and backward scores are not transposes of each other or an axis
// carries duplicate identifiers.  A merge that fails this way produces no output.
type ShapeMismatchError struct {
	Op     string
	Reason string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch in %s: %s", e.Op, e.Reason)
}

// Axis names a matrix axis.
type Axis string

const (
	RowAxis    Axis = "row"
	ColumnAxis Axis = "column"
)

// IdentifierCollision records a collapse group that consolidated more than a
// native and a mirrored variant.  It is a warning; the reduction still decides
// the collapsed value.
type IdentifierCollision struct {
	Axis     Axis
	Stripped neuprep.Identifier
	Members  neuprep.Identifiers
}

func (c IdentifierCollision) String() string {
	return fmt.Sprintf("%s %q collapsed from %d identifiers: %s", c.Axis, c.Stripped, len(c.Members),
		strings.Join(c.Members.Strings(), ", "))
}
