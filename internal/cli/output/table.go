package output

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

// TimeLayout is how timestamps render in tables.
const TimeLayout = "2006-01-02 15:04:05"

// Table is rows of pre-rendered cells under upper-case headers.
type Table struct {
	Headers []string
	Rows    [][]string
}

// AddRow appends one row.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// SetHeaders replaces the headers.
func (t *Table) SetHeaders(headers ...string) {
	t.Headers = headers
}

// Render writes the table with headers.
func (t *Table) Render(w io.Writer) error {
	return t.write(w, true)
}

func (t *Table) write(w io.Writer, headers bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if headers && len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// Records converts the table into header-keyed maps for structured
// formats. Keys are lower-cased headers.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(row) {
				rec[strings.ToLower(h)] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

func unwrapTable(data any) any {
	switch t := data.(type) {
	case *Table:
		return t.Records()
	case Table:
		return t.Records()
	default:
		return data
	}
}

// TableFormatter renders results as aligned columns.
type TableFormatter struct {
	// Wide includes fields tagged table:"wide".
	Wide      bool
	NoHeaders bool
}

// Format renders a Table as is, a slice of structs as one row per
// element, and a struct or map as FIELD/VALUE or KEY/VALUE pairs. Anything
// else falls back to indented JSON.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	var table *Table
	switch d := data.(type) {
	case nil:
		return nil
	case *Table:
		table = d
	case Table:
		table = &d
	default:
		var ok bool
		if table, ok = buildTable(reflect.ValueOf(data), f.Wide); !ok {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(data)
		}
	}
	return table.write(w, !f.NoHeaders)
}

func buildTable(v reflect.Value, wide bool) (*Table, bool) {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return rowsTable(v, wide), true
	case reflect.Struct:
		t := &Table{Headers: []string{"FIELD", "VALUE"}}
		for _, f := range fieldsOf(v.Type(), wide) {
			t.AddRow(f.name, formatValue(v.Field(f.index)))
		}
		return t, true
	case reflect.Map:
		t := &Table{Headers: []string{"KEY", "VALUE"}}
		addPairs(t, v)
		return t, true
	default:
		return nil, false
	}
}

// field is one struct field shown in a table.
type field struct {
	index  int
	name   string
	header string
}

// fieldsOf lists the exported fields of t, named by their json tag and
// skipping table:"-". Fields tagged table:"wide" appear only when wide is
// set.
func fieldsOf(t reflect.Type, wide bool) []field {
	var out []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("table")
		if !sf.IsExported() || tag == "-" || (!wide && strings.Contains(tag, "wide")) {
			continue
		}
		name := sf.Name
		if j, _, _ := strings.Cut(sf.Tag.Get("json"), ","); j != "" && j != "-" {
			name = j
		}
		out = append(out, field{index: i, name: name, header: strings.ToUpper(toSnakeCase(name))})
	}
	return out
}

func rowsTable(v reflect.Value, wide bool) *Table {
	t := &Table{}
	if v.Len() == 0 {
		return t
	}

	elemAt := func(i int) reflect.Value {
		e := v.Index(i)
		if e.Kind() == reflect.Ptr {
			e = e.Elem()
		}
		return e
	}

	first := elemAt(0)
	switch first.Kind() {
	case reflect.Struct:
		fields := fieldsOf(first.Type(), wide)
		for _, f := range fields {
			t.Headers = append(t.Headers, f.header)
		}
		for i := 0; i < v.Len(); i++ {
			e := elemAt(i)
			row := make([]string, len(fields))
			for j, f := range fields {
				row[j] = formatValue(e.Field(f.index))
			}
			t.AddRow(row...)
		}
	case reflect.Map:
		t.Headers = []string{"KEY", "VALUE"}
		for i := 0; i < v.Len(); i++ {
			addPairs(t, elemAt(i))
		}
	default:
		t.Headers = []string{"VALUE"}
		for i := 0; i < v.Len(); i++ {
			t.AddRow(formatValue(elemAt(i)))
		}
	}
	return t
}

// addPairs appends one row per map entry, ordered by rendered key.
func addPairs(t *Table, m reflect.Value) {
	rows := make([][]string, 0, m.Len())
	iter := m.MapRange()
	for iter.Next() {
		rows = append(rows, []string{formatValue(iter.Key()), formatValue(iter.Value())})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	t.Rows = append(t.Rows, rows...)
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

// formatValue renders one cell. Empty strings, nil pointers, zero times
// and empty collections show as "-".
func formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if k := v.Kind(); k == reflect.Interface || k == reflect.Ptr {
		if v.IsNil() {
			return "-"
		}
		v = v.Elem()
	}

	switch {
	case v.Type() == timeType:
		if ts := v.Interface().(time.Time); !ts.IsZero() {
			return ts.Local().Format(TimeLayout)
		}
		return "-"
	case v.Kind() != reflect.String && v.Type().Implements(stringerType):
		return v.Interface().(fmt.Stringer).String()
	}

	switch v.Kind() {
	case reflect.String:
		if s := v.String(); s != "" {
			return s
		}
		return "-"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return humanize.Comma(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return FormatFloat(v.Float())
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Slice, reflect.Array:
		switch {
		case v.Len() == 0:
			return "-"
		case v.Type().Elem().Kind() == reflect.String:
			parts := make([]string, v.Len())
			for i := range parts {
				parts[i] = v.Index(i).String()
			}
			return strings.Join(parts, ",")
		default:
			return fmt.Sprintf("[%d items]", v.Len())
		}
	case reflect.Map:
		if v.Len() == 0 {
			return "-"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	default:
		return fmt.Sprint(v.Interface())
	}
}

// FormatFloat renders statistics and p-values with six significant digits.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}

// FormatCount renders a row count with thousands separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// FormatAge renders t with its age, e.g. "2024-05-01 12:00:00 (3 hours ago)".
func FormatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(TimeLayout) + " (" + humanize.Time(t) + ")"
}

// toSnakeCase inserts an underscore before each interior upper-case
// letter: RowCount becomes Row_Count.
func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return b.String()
}
