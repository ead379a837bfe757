package sql

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/userdb"
	"github.com/syssam/userdb/dialect"
)

// Kind tags a Value with the strategy used to bind it into a statement.
// The zero Kind marks an absent value.
type Kind uint8

// Value kinds.
const (
	KindAbsent Kind = iota
	KindString
	KindInt
	KindDate
	KindBinary
)

var kindNames = [...]string{
	KindAbsent: "Absent",
	KindString: "String",
	KindInt:    "Int",
	KindDate:   "Date",
	KindBinary: "Pic",
}

// String returns the tag name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind maps a type tag (String, Int, Date, Pic) to its Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "String":
		return KindString, nil
	case "Int", "Integer":
		return KindInt, nil
	case "Date":
		return KindDate, nil
	case "Pic", "Binary":
		return KindBinary, nil
	}
	return KindAbsent, userdb.NewUnknownTypeError("", name)
}

// Date layouts. Dates travel as year/day/month strings.
const (
	dateLayout         = "2006/02/01"
	mysqlDateFormat    = "%Y/%d/%m"
	postgresDateFormat = "YYYY/DD/MM"
)

// Value is a typed column value. The zero Value is absent: it is skipped by
// Insert and Update instead of being written.
type Value struct {
	kind Kind
	v    any
}

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, v: s} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, v: i} }

// Date returns a date value in year/day/month form, e.g. "1990/31/12".
func Date(s string) Value { return Value{kind: KindDate, v: s} }

// Binary returns a binary value.
func Binary(b []byte) Value { return Value{kind: KindBinary, v: b} }

// Typed returns a value with an explicit kind. The shape of v is not
// checked against k.
func Typed(k Kind, v any) Value { return Value{kind: k, v: v} }

// Absent returns the absent marker.
func Absent() Value { return Value{} }

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether the value marks a field that was not provided.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Interface returns the underlying Go value.
func (v Value) Interface() any { return v.v }

// FieldSet is an ordered mapping from column name to Value.
type FieldSet struct {
	columns []string
	values  []Value
}

// NewFieldSet returns an empty FieldSet.
func NewFieldSet() *FieldSet { return &FieldSet{} }

// Set sets the value of a column. Setting an existing column replaces its
// value and keeps its position.
func (f *FieldSet) Set(column string, v Value) *FieldSet {
	for i, c := range f.columns {
		if c == column {
			f.values[i] = v
			return f
		}
	}
	f.columns = append(f.columns, column)
	f.values = append(f.values, v)
	return f
}

// Get returns the value of a column.
func (f *FieldSet) Get(column string) (Value, bool) {
	if f == nil {
		return Value{}, false
	}
	for i, c := range f.columns {
		if c == column {
			return f.values[i], true
		}
	}
	return Value{}, false
}

// Len returns the number of columns, absent ones included.
func (f *FieldSet) Len() int {
	if f == nil {
		return 0
	}
	return len(f.columns)
}

// Columns returns the column names in insertion order.
func (f *FieldSet) Columns() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.columns...)
}

// present returns the indexes of the non-absent values.
func (f *FieldSet) present() []int {
	if f == nil {
		return nil
	}
	idx := make([]int, 0, len(f.values))
	for i, v := range f.values {
		if !v.IsAbsent() {
			idx = append(idx, i)
		}
	}
	return idx
}

// ConditionSet is an ordered mapping from column name to a raw value,
// combined with AND into a WHERE clause.
type ConditionSet struct {
	columns []string
	values  []string
}

// NewConditionSet returns an empty ConditionSet.
func NewConditionSet() *ConditionSet { return &ConditionSet{} }

// EQ adds an equality condition. Adding an existing column replaces its value.
func (c *ConditionSet) EQ(column, value string) *ConditionSet {
	for i, col := range c.columns {
		if col == column {
			c.values[i] = value
			return c
		}
	}
	c.columns = append(c.columns, column)
	c.values = append(c.values, value)
	return c
}

// Len returns the number of conditions.
func (c *ConditionSet) Len() int {
	if c == nil {
		return 0
	}
	return len(c.columns)
}

// Statement is a built SQL statement with its bind arguments.
type Statement struct {
	Query string
	Args  []any

	inline string
}

// Inline returns the statement with every argument rendered as a SQL
// literal. It is meant for logs and debugging; execute Query with Args.
func (s Statement) Inline() string { return s.inline }

// Builder builds statements for one dialect. A Builder holds no mutable
// state and is safe for concurrent use.
type Builder struct {
	dialect string
}

// Dialect returns a Builder for the given dialect name.
//
//	b := sql.Dialect(dialect.Postgres)
//	st, err := b.Select([]string{"USERNAME"}, "MYUSER", sql.NewConditionSet().EQ("USERNAME", "alice"))
func Dialect(name string) *Builder {
	return &Builder{dialect: name}
}

// Dialect returns the dialect name of the builder.
func (b *Builder) Dialect() string { return b.dialect }

var (
	errNoFields      = errors.New("no fields to write")
	errNoColumns     = errors.New("no columns to select")
	errUnconditional = errors.New("statement without conditions")
)

// Insert builds INSERT INTO <table>(c1, c2) VALUES (v1, v2). Absent values
// are skipped.
func (b *Builder) Insert(table string, fields *FieldSet) (Statement, error) {
	if err := checkIdent(table); err != nil {
		return Statement{}, err
	}
	idx := fields.present()
	if len(idx) == 0 {
		return Statement{}, userdb.NewValidationError(table, errNoFields)
	}
	w := b.writer()
	w.WriteString("INSERT INTO " + table + "(")
	for n, i := range idx {
		if err := checkIdent(fields.columns[i]); err != nil {
			return Statement{}, err
		}
		if n > 0 {
			w.WriteString(", ")
		}
		w.WriteString(fields.columns[i])
	}
	w.WriteString(") VALUES (")
	for n, i := range idx {
		if n > 0 {
			w.WriteString(", ")
		}
		if err := b.bind(w, fields.columns[i], fields.values[i]); err != nil {
			return Statement{}, err
		}
	}
	w.WriteString(")")
	return w.statement(), nil
}

// Select builds SELECT c1, c2 FROM <table> WHERE k1 = v1 AND k2 = v2.
// The WHERE clause is omitted when there are no conditions.
func (b *Builder) Select(columns []string, table string, conds *ConditionSet) (Statement, error) {
	if err := checkIdent(table); err != nil {
		return Statement{}, err
	}
	if len(columns) == 0 {
		return Statement{}, userdb.NewValidationError(table, errNoColumns)
	}
	for _, c := range columns {
		if err := checkIdent(c); err != nil {
			return Statement{}, err
		}
	}
	w := b.writer()
	w.WriteString("SELECT " + strings.Join(columns, ", ") + " FROM " + table)
	if err := b.where(w, conds); err != nil {
		return Statement{}, err
	}
	return w.statement(), nil
}

// Delete builds one DELETE FROM <table> WHERE ... per (table, conditions)
// pair. Both sequences must have the same length, and every condition set
// must be non-empty.
func (b *Builder) Delete(tables []string, conds []*ConditionSet) ([]Statement, error) {
	if len(tables) != len(conds) {
		return nil, userdb.NewArityMismatchError("delete", len(tables), len(conds), "condition sets")
	}
	stmts := make([]Statement, 0, len(tables))
	for i, table := range tables {
		if err := checkIdent(table); err != nil {
			return nil, err
		}
		if conds[i].Len() == 0 {
			return nil, userdb.NewValidationError(table, errUnconditional)
		}
		w := b.writer()
		w.WriteString("DELETE FROM " + table)
		if err := b.where(w, conds[i]); err != nil {
			return nil, err
		}
		stmts = append(stmts, w.statement())
	}
	return stmts, nil
}

// Update builds one UPDATE <table> SET k1 = v1, ... WHERE ... per triple.
// Absent values are left out of the SET clause, and a triple with nothing
// to set produces no statement.
func (b *Builder) Update(tables []string, fields []*FieldSet, conds []*ConditionSet) ([]Statement, error) {
	if len(tables) != len(fields) {
		return nil, userdb.NewArityMismatchError("update", len(tables), len(fields), "field sets")
	}
	if len(tables) != len(conds) {
		return nil, userdb.NewArityMismatchError("update", len(tables), len(conds), "condition sets")
	}
	stmts := make([]Statement, 0, len(tables))
	for i, table := range tables {
		if err := checkIdent(table); err != nil {
			return nil, err
		}
		idx := fields[i].present()
		if len(idx) == 0 {
			continue
		}
		if conds[i].Len() == 0 {
			return nil, userdb.NewValidationError(table, errUnconditional)
		}
		w := b.writer()
		w.WriteString("UPDATE " + table + " SET ")
		for n, j := range idx {
			column := fields[i].columns[j]
			if err := checkIdent(column); err != nil {
				return nil, err
			}
			if n > 0 {
				w.WriteString(", ")
			}
			w.WriteString(column + " = ")
			if err := b.bind(w, column, fields[i].values[j]); err != nil {
				return nil, err
			}
		}
		if err := b.where(w, conds[i]); err != nil {
			return nil, err
		}
		stmts = append(stmts, w.statement())
	}
	return stmts, nil
}

// where writes the WHERE clause, if any.
func (b *Builder) where(w *writer, conds *ConditionSet) error {
	if conds.Len() == 0 {
		return nil
	}
	w.WriteString(" WHERE ")
	for i, c := range conds.columns {
		if err := checkIdent(c); err != nil {
			return err
		}
		if i > 0 {
			w.WriteString(" AND ")
		}
		w.WriteString(c + " = ")
		w.arg(conds.values[i], quote(conds.values[i]))
	}
	return nil
}

// bind writes the placeholder for v and records its argument.
func (b *Builder) bind(w *writer, column string, v Value) error {
	switch v.kind {
	case KindString:
		w.arg(v.v, quote(fmt.Sprint(v.v)))
	case KindInt:
		w.arg(v.v, fmt.Sprint(v.v))
	case KindDate:
		return b.bindDate(w, column, fmt.Sprint(v.v))
	case KindBinary:
		raw := bytesOf(v.v)
		w.arg(raw, quote(string(raw)))
	default:
		return userdb.NewUnknownTypeError(column, v.kind.String())
	}
	return nil
}

// bindDate converts a year/day/month string into a date on the database
// side where the dialect can, and in Go otherwise.
func (b *Builder) bindDate(w *writer, column, s string) error {
	switch b.dialect {
	case dialect.Postgres:
		w.WriteString("TO_DATE(")
		w.arg(s, quote(s))
		w.WriteString(", '" + postgresDateFormat + "')")
	case dialect.SQLite:
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return userdb.NewValidationError(column, fmt.Errorf("date %q: %w", s, err))
		}
		iso := t.Format(time.DateOnly)
		w.arg(iso, quote(iso))
	default:
		w.WriteString("STR_TO_DATE(")
		w.arg(s, quote(s))
		w.WriteString(", '" + mysqlDateFormat + "')")
	}
	return nil
}

func bytesOf(v any) []byte {
	switch v := v.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	case nil:
		return nil
	default:
		return []byte(fmt.Sprint(v))
	}
}

// writer accumulates the parameterized and the inline form of a statement.
type writer struct {
	dialect string
	query   strings.Builder
	inline  strings.Builder
	args    []any
}

func (b *Builder) writer() *writer {
	return &writer{dialect: b.dialect}
}

// WriteString writes s to both forms.
func (w *writer) WriteString(s string) {
	w.query.WriteString(s)
	w.inline.WriteString(s)
}

// arg writes a placeholder to the query and the literal to the inline form.
func (w *writer) arg(v any, literal string) {
	w.args = append(w.args, v)
	if w.dialect == dialect.Postgres {
		w.query.WriteString("$" + strconv.Itoa(len(w.args)))
	} else {
		w.query.WriteByte('?')
	}
	w.inline.WriteString(literal)
}

func (w *writer) statement() Statement {
	return Statement{Query: w.query.String(), Args: w.args, inline: w.inline.String()}
}

// BuildInsert builds an INSERT statement with the MySQL dialect.
func BuildInsert(table string, fields *FieldSet) (Statement, error) {
	return Dialect(dialect.MySQL).Insert(table, fields)
}

// BuildSelect builds a SELECT statement with the MySQL dialect.
func BuildSelect(columns []string, table string, conds *ConditionSet) (Statement, error) {
	return Dialect(dialect.MySQL).Select(columns, table, conds)
}

// BuildDelete builds DELETE statements with the MySQL dialect.
func BuildDelete(tables []string, conds []*ConditionSet) ([]Statement, error) {
	return Dialect(dialect.MySQL).Delete(tables, conds)
}

// BuildUpdate builds UPDATE statements with the MySQL dialect.
func BuildUpdate(tables []string, fields []*FieldSet, conds []*ConditionSet) ([]Statement, error) {
	return Dialect(dialect.MySQL).Update(tables, fields, conds)
}

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores, dots for schema.name)
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// isValidIdentifier checks if the string is a valid SQL identifier.
func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

func checkIdent(s string) error {
	if !isValidIdentifier(s) {
		return userdb.NewValidationError(s, userdb.ErrInvalidIdentifier)
	}
	return nil
}

// escapeStringValue escapes a string value for use in an inline literal.
// It escapes both single quotes (by doubling) and backslashes (for MySQL compatibility).
func escapeStringValue(s string) string {
	// Fast path: if no escaping needed, return as-is
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	// Escape backslashes first, then single quotes
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return s
}

func quote(s string) string {
	return "'" + escapeStringValue(s) + "'"
}
