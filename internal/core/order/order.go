package order

// Key is the ordered list of sort columns, ascending with NULLs first.
//
// TieBreak is set when the columns do not form a key: rows that are equal on
// every sort column are then ordered by their physical position, which the
// storage engine appends as a final sort term.
type Key struct {
	Columns  []string
	TieBreak bool
}

// Canonical returns the sort key for a table.
//
// If primaryKey is non-empty its columns are used in declared key order,
// whether or not they are included. Otherwise every included column is
// used in the order it appears in declared. Included names absent from
// declared are ignored.
func Canonical(declared, included, primaryKey []string) Key {
	if len(primaryKey) > 0 {
		return Key{Columns: append([]string(nil), primaryKey...)}
	}

	want := make(map[string]struct{}, len(included))
	for _, c := range included {
		want[c] = struct{}{}
	}

	cols := make([]string, 0, len(included))
	for _, c := range declared {
		if _, ok := want[c]; ok {
			cols = append(cols, c)
		}
	}
	return Key{Columns: cols, TieBreak: true}
}

// Included returns declared minus excluded, preserving declared order.
// Excluded names that are not declared are ignored.
func Included(declared, excluded []string) []string {
	skip := make(map[string]struct{}, len(excluded))
	for _, c := range excluded {
		skip[c] = struct{}{}
	}

	out := make([]string, 0, len(declared))
	for _, c := range declared {
		if _, ok := skip[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}
