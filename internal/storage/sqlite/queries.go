package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/yndnr/wrought-go/internal/storage"
)

// StagingPrefix names the table a rollback builds before swapping it in.
const StagingPrefix = "_wi_staging_"

// queries runs statements against either the pool or an open transaction.
type queries struct {
	ext    sqlx.ExtContext
	logger *slog.Logger
}

// quoteIdent quotes an SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteIdents(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quoteIdent(n)
	}
	return out
}

type masterRow struct {
	Name string         `db:"name"`
	SQL  sql.NullString `db:"sql"`
}

// tableDDL returns the canonical name and CREATE statement of a table.
func (q queries) tableDDL(ctx context.Context, table string) (masterRow, error) {
	var row masterRow
	err := sqlx.GetContext(ctx, q.ext, &row,
		`SELECT name, sql FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE`, table)
	if errors.Is(err, sql.ErrNoRows) {
		return row, fmt.Errorf("%w: %s", storage.ErrTableNotFound, table)
	}
	if err != nil {
		return row, fmt.Errorf("lookup table %s: %w", table, err)
	}
	return row, nil
}

type columnRow struct {
	CID     int            `db:"cid"`
	Name    string         `db:"name"`
	Type    string         `db:"type"`
	NotNull bool           `db:"notnull"`
	Default sql.NullString `db:"dflt_value"`
	PK      int            `db:"pk"`
}

func (q queries) describe(ctx context.Context, table string) (*storage.TableInfo, error) {
	master, err := q.tableDDL(ctx, table)
	if err != nil {
		return nil, err
	}

	var rows []columnRow
	if err := sqlx.SelectContext(ctx, q.ext, &rows,
		`SELECT cid, name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`, master.Name); err != nil {
		return nil, fmt.Errorf("introspect %s: %w", master.Name, err)
	}

	info := &storage.TableInfo{Name: master.Name, Columns: make([]storage.Column, 0, len(rows)), DDL: master.SQL.String}
	pk := make(map[int]string)
	for _, r := range rows {
		col := storage.Column{
			Position:  r.CID,
			Name:      r.Name,
			DeclType:  r.Type,
			NotNull:   r.NotNull,
			PKOrdinal: r.PK,
		}
		if r.Default.Valid {
			d := r.Default.String
			col.Default = &d
		}
		if r.PK > 0 {
			pk[r.PK] = r.Name
		}
		info.Columns = append(info.Columns, col)
	}
	for i := 1; i <= len(pk); i++ {
		info.PrimaryKey = append(info.PrimaryKey, pk[i])
	}
	return info, nil
}

// scanQuery builds the SELECT for a ScanRequest. With no projected columns
// a constant is selected so row membership is still observable.
func scanQuery(req storage.ScanRequest) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(req.Columns) == 0 {
		b.WriteString("NULL")
	} else {
		b.WriteString(strings.Join(quoteIdents(req.Columns), ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(req.Table))

	terms := make([]string, 0, len(req.OrderBy)+1)
	for _, c := range req.OrderBy {
		terms = append(terms, quoteIdent(c)+" ASC NULLS FIRST")
	}
	if req.TieBreak {
		terms = append(terms, "rowid ASC")
	}
	if len(terms) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(terms, ", "))
	}
	return b.String()
}

func (q queries) scan(ctx context.Context, req storage.ScanRequest, fn func(*storage.Chunk) error) error {
	if req.ChunkSize <= 0 {
		return fmt.Errorf("scan %s: chunk size must be positive", req.Table)
	}

	query := scanQuery(req)
	rows, err := q.ext.QueryxContext(ctx, query)
	if err != nil {
		return fmt.Errorf("scan %s: %w", req.Table, err)
	}
	defer rows.Close()

	columns := append([]string(nil), req.Columns...)
	chunk := &storage.Chunk{Columns: columns, Rows: make([][]any, 0, min(req.ChunkSize, 1024))}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return fmt.Errorf("scan %s: %w", req.Table, err)
		}
		if len(req.Columns) == 0 {
			values = values[:0]
		}
		chunk.Rows = append(chunk.Rows, values)

		if len(chunk.Rows) == req.ChunkSize {
			if err := fn(chunk); err != nil {
				return err
			}
			chunk = &storage.Chunk{Columns: columns, Rows: make([][]any, 0, min(req.ChunkSize, 1024))}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", req.Table, err)
	}
	if len(chunk.Rows) > 0 {
		return fn(chunk)
	}
	return nil
}

func (q queries) countRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := sqlx.GetContext(ctx, q.ext, &n, "SELECT COUNT(*) FROM "+quoteIdent(table)); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// columnList returns the offsets of the parentheses around the column list
// of a CREATE TABLE statement, skipping quoted identifiers and literals.
// Both are -1 when there is none.
func columnList(ddl string) (open, end int) {
	open, end = -1, -1
	var quote rune
	depth := 0
	for i, r := range ddl {
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
			if depth == 0 && open < 0 {
				open = i
			}
			depth++
		case r == ')' && depth > 0:
			depth--
			if depth == 0 {
				return open, i
			}
		}
	}
	return -1, -1
}

// createAs rewrites a CREATE TABLE statement to create dst instead. Only the
// prefix up to the column list is replaced, so constraints, STRICT and
// WITHOUT ROWID survive.
func createAs(ddl, dst string) (string, error) {
	open, _ := columnList(ddl)
	if open < 0 {
		return "", fmt.Errorf("unrecognised table definition %q", ddl)
	}
	return "CREATE TABLE " + quoteIdent(dst) + " " + ddl[open:], nil
}

// tableOptions returns what follows the column list of a CREATE TABLE
// statement, such as " STRICT" or " WITHOUT ROWID".
func tableOptions(ddl string) string {
	if _, end := columnList(ddl); end >= 0 {
		return ddl[end+1:]
	}
	return ""
}

// snapshotDDL declares dst with the columns of info: declared types, NOT NULL,
// defaults and the primary key. Foreign key, CHECK, UNIQUE and COLLATE
// clauses are dropped so nothing done to other tables can reach the copy.
// Generated columns are not listed and so are not copied.
func snapshotDDL(info *storage.TableInfo, dst string) string {
	defs := make([]string, 0, len(info.Columns)+1)
	for _, c := range info.Columns {
		def := quoteIdent(c.Name)
		if c.DeclType != "" {
			def += " " + c.DeclType
		}
		if c.NotNull {
			def += " NOT NULL"
		}
		if c.Default != nil {
			def += " DEFAULT (" + *c.Default + ")"
		}
		defs = append(defs, def)
	}
	if len(info.PrimaryKey) > 0 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(quoteIdents(info.PrimaryKey), ", ")+")")
	}
	return "CREATE TABLE " + quoteIdent(dst) + " (" + strings.Join(defs, ", ") + ")" + tableOptions(info.DDL)
}

// fill copies rows of src into dst over the given columns.
func (q queries) fill(ctx context.Context, src, dst string, columns []string) (int64, error) {
	cols := strings.Join(quoteIdents(columns), ", ")
	res, err := q.ext.ExecContext(ctx,
		"INSERT INTO "+quoteIdent(dst)+" ("+cols+") SELECT "+cols+" FROM "+quoteIdent(src))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (q queries) copyTable(ctx context.Context, src, dst string) error {
	info, err := q.describe(ctx, src)
	if err != nil {
		return err
	}
	if info.DDL == "" || len(info.Columns) == 0 {
		return fmt.Errorf("copy %s: table has no definition", src)
	}

	if _, err := q.ext.ExecContext(ctx, snapshotDDL(info, dst)); err != nil {
		return fmt.Errorf("copy %s: create %s: %w", src, dst, err)
	}
	n, err := q.fill(ctx, info.Name, dst, info.ColumnNames())
	if err != nil {
		return fmt.Errorf("copy %s: fill %s: %w", src, dst, err)
	}

	q.logger.Debug("table copied", "src", info.Name, "dst", dst, "rows", n)
	return nil
}

type indexRow struct {
	Name string `db:"name"`
	Type string `db:"type"`
	SQL  string `db:"sql"`
}

// attachedDDL lists the explicit indexes and triggers defined on table.
// Automatic indexes have no SQL and are recreated by the table definition.
func (q queries) attachedDDL(ctx context.Context, table string) ([]indexRow, error) {
	var rows []indexRow
	err := sqlx.SelectContext(ctx, q.ext, &rows,
		`SELECT name, type, sql FROM sqlite_master
		 WHERE type IN ('index', 'trigger') AND tbl_name = ? COLLATE NOCASE AND sql IS NOT NULL
		 ORDER BY type, name`, table)
	if err != nil {
		return nil, fmt.Errorf("list indexes of %s: %w", table, err)
	}
	return rows, nil
}

// restoreTable rebuilds target from definition, its CREATE TABLE statement
// as recorded when src was taken, and fills it with src's rows. An empty
// definition falls back to src's own. Columns of the definition that src
// lacks take their defaults; generated columns are recomputed.
func (q queries) restoreTable(ctx context.Context, src, target, definition string) error {
	snap, err := q.describe(ctx, src)
	if err != nil {
		return err
	}
	if definition == "" {
		definition = snap.DDL
	}

	staging := StagingPrefix + target
	if err := q.dropTable(ctx, staging); err != nil {
		return err
	}
	create, err := createAs(definition, staging)
	if err != nil {
		return fmt.Errorf("restore %s: %w", target, err)
	}
	if _, err := q.ext.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("restore %s: create staging: %w", target, err)
	}
	fresh, err := q.describe(ctx, staging)
	if err != nil {
		return err
	}
	var columns []string
	for _, c := range fresh.Columns {
		for _, sc := range snap.Columns {
			if strings.EqualFold(c.Name, sc.Name) {
				columns = append(columns, c.Name)
				break
			}
		}
	}
	if len(columns) > 0 {
		if _, err := q.fill(ctx, snap.Name, staging, columns); err != nil {
			return fmt.Errorf("restore %s: fill staging: %w", target, err)
		}
	}

	var attached []indexRow
	_, err = q.tableDDL(ctx, target)
	switch {
	case err == nil:
		if attached, err = q.attachedDDL(ctx, target); err != nil {
			return err
		}
		if err := q.dropTable(ctx, target); err != nil {
			return err
		}
	case errors.Is(err, storage.ErrTableNotFound):
		q.logger.Warn("restoring table that no longer exists", "table", target)
	default:
		return err
	}

	if err := q.rename(ctx, staging, target); err != nil {
		return fmt.Errorf("restore %s: rename staging: %w", target, err)
	}

	for _, ix := range attached {
		if _, err := q.ext.ExecContext(ctx, ix.SQL); err != nil {
			q.logger.Warn("skipping "+ix.Type+" that no longer applies",
				"table", target, "name", ix.Name, "error", err)
		}
	}
	q.checkForeignKeys(ctx, target)

	q.logger.Debug("table restored", "src", src, "target", target, "attached", len(attached))
	return nil
}

// rename renames a table without re-parsing views and triggers. Those may
// name the target, which does not exist while the staging table is swapped
// in.
func (q queries) rename(ctx context.Context, from, to string) error {
	if _, err := q.ext.ExecContext(ctx, "PRAGMA legacy_alter_table = ON"); err != nil {
		return err
	}
	defer func() {
		if _, err := q.ext.ExecContext(context.WithoutCancel(ctx), "PRAGMA legacy_alter_table = OFF"); err != nil {
			q.logger.Warn("reset legacy_alter_table", "error", err)
		}
	}()

	_, err := q.ext.ExecContext(ctx, "ALTER TABLE "+quoteIdent(from)+" RENAME TO "+quoteIdent(to))
	return err
}

// checkForeignKeys warns about rows that reference a missing parent after
// target was replaced. Enforcement is off, so these are reported, not
// rejected.
func (q queries) checkForeignKeys(ctx context.Context, target string) {
	rows, err := q.ext.QueryxContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		q.logger.Debug("foreign key check unavailable", "table", target, "error", err)
		return
	}
	defer rows.Close()

	violations := make(map[string]int)
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			q.logger.Debug("foreign key check unavailable", "table", target, "error", err)
			return
		}
		if len(values) == 0 {
			continue
		}
		switch child := values[0].(type) {
		case []byte:
			violations[string(child)]++
		default:
			violations[fmt.Sprint(child)]++
		}
	}
	for child, n := range violations {
		q.logger.Warn("rows reference missing parents after restore",
			"table", target, "child", child, "rows", n)
	}
}

func (q queries) dropTable(ctx context.Context, table string) error {
	if _, err := q.ext.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
		return fmt.Errorf("drop %s: %w", table, err)
	}
	return nil
}
