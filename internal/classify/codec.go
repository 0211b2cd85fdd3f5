package classify

import (
	"strings"

	"github.com/lviewgo/recorder/pkg/core"
)

// Codec resolves kinds and unit names to TypeCodes using one Table.
type Codec struct {
	table *Table
}

// NewCodec creates a codec over table. A nil table means the built-in one.
func NewCodec(table *Table) *Codec {
	if table == nil {
		table = DefaultTable()
	}
	return &Codec{table: table}
}

// Table returns the table backing the codec.
func (c *Codec) Table() *Table {
	return c.table
}

// Classify returns the packed code of kind, or NoObject if the table does
// not know it.
func (c *Codec) Classify(kind core.ObjectKind) core.TypeCode {
	code, ok := c.table.codes[kind]
	if !ok {
		return core.NoObject
	}
	return code
}

// ClassifyName resolves an in-game unit name. Lookups ignore case; unknown
// names give NoObject.
func (c *Codec) ClassifyName(name string) core.TypeCode {
	kind, ok := c.table.byName[strings.ToLower(name)]
	if !ok {
		return core.NoObject
	}
	return c.Classify(kind)
}

// Label returns the table label of the code's kind, or "" for NoObject and
// unknown kinds.
func (c *Codec) Label(code core.TypeCode) string {
	if code == core.NoObject {
		return ""
	}
	e, ok := c.table.byKind[code.Kind()]
	if !ok {
		return ""
	}
	return e.Label
}
