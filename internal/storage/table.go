package storage

import (
	"strconv"
	"strings"
	"unicode"
)

// Affinity is the type affinity SQLite derives from a declared column type.
type Affinity string

const (
	AffinityInteger Affinity = "INTEGER"
	AffinityText    Affinity = "TEXT"
	AffinityBlob    Affinity = "BLOB"
	AffinityReal    Affinity = "REAL"
	AffinityNumeric Affinity = "NUMERIC"
)

// Column describes one declared column.
type Column struct {
	Position int     // 0-based declaration position
	Name     string  // Column name
	DeclType string  // Declared type, verbatim
	NotNull  bool    // NOT NULL constraint
	Default  *string // Default expression; nil when none
	// PKOrdinal is the 1-based position in the primary key, 0 when the
	// column is not part of it.
	PKOrdinal int
}

// Affinity applies the SQLite affinity rules to DeclType, in rule order.
func (c Column) Affinity() Affinity {
	t := strings.ToUpper(c.DeclType)
	switch {
	case strings.Contains(t, "INT"):
		return AffinityInteger
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return AffinityText
	case strings.Contains(t, "BLOB"), t == "":
		return AffinityBlob
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return AffinityReal
	default:
		return AffinityNumeric
	}
}

// Numeric reports whether the column is declared to hold numbers.
func (c Column) Numeric() bool {
	switch c.Affinity() {
	case AffinityInteger, AffinityReal, AffinityNumeric:
		return true
	}
	return false
}

// TableInfo is the introspected shape of a table.
type TableInfo struct {
	Name    string
	Columns []Column
	// PrimaryKey lists key columns in key order; empty when the table has none.
	PrimaryKey []string
	// DDL is the CREATE TABLE statement as stored by the engine.
	DDL string
}

// ColumnNames returns column names in declaration order.
func (t *TableInfo) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (t *TableInfo) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnText renders the declaration-order column list in a canonical
// textual form: one line per column with quoted name, quoted declared type,
// not-null flag, default expression and primary key ordinal.
func (t *TableInfo) ColumnText() string {
	var b strings.Builder
	for _, c := range t.Columns {
		b.WriteString("column ")
		b.WriteString(strconv.Quote(c.Name))
		b.WriteString(" type ")
		b.WriteString(strconv.Quote(c.DeclType))
		b.WriteString(" notnull ")
		b.WriteString(strconv.FormatBool(c.NotNull))
		b.WriteString(" default ")
		if c.Default == nil {
			b.WriteString("none")
		} else {
			b.WriteString(strconv.Quote(*c.Default))
		}
		b.WriteString(" pk ")
		b.WriteString(strconv.Itoa(c.PKOrdinal))
		b.WriteByte('\n')
	}
	return b.String()
}

// SchemaText is ColumnText followed by the normalised definition body, so
// UNIQUE, CHECK, FOREIGN KEY and COLLATE clauses take part as well.
//
// The table name is not part of the text, so a table restored from a
// snapshot renders the same as the table the snapshot was taken of.
func (t *TableInfo) SchemaText() string {
	return t.ColumnText() + "definition " + strconv.Quote(Definition(t.DDL)) + "\n"
}

// Definition returns the part of a CREATE TABLE statement from the first
// unquoted opening parenthesis onwards, with runs of whitespace outside
// quotes collapsed to one space. It is "" when ddl has no column list.
func Definition(ddl string) string {
	var b strings.Builder
	var quote rune
	started, space := false, false
	for _, r := range ddl {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '[':
			quote = ']'
		case r == '(':
			started = true
		case unicode.IsSpace(r):
			space = true
			continue
		}
		if !started {
			space = false
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
