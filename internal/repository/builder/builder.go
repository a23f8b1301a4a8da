package builder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
)

// SQLBuilder constructs postgres queries with $n placeholders. Conditions are
// written with "?" markers which are numbered in argument order on Build.
type SQLBuilder struct {
	table    string
	columns  []string
	values   []interface{}
	where    []string
	args     []interface{}
	orderBy  []string
	limit    int
	offset   int
	conflict string
	isInsert bool
	isDelete bool
	isSelect bool
}

// Operators accepted by WhereCondition.
var operators = map[string]string{
	"=":     "=",
	"!=":    "<>",
	"<>":    "<>",
	"<":     "<",
	"<=":    "<=",
	">":     ">",
	">=":    ">=",
	"like":  "LIKE",
	"ilike": "ILIKE",
	"in":    "IN",
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NewSQLBuilder creates a new instance of SQLBuilder.
func NewSQLBuilder() *SQLBuilder {
	return &SQLBuilder{}
}

// QuoteIdent quotes a possibly schema qualified identifier such as
// "school.teacher". Each part must be a plain identifier.
func QuoteIdent(name string) (string, error) {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if !identPattern.MatchString(p) {
			return "", fmt.Errorf("invalid identifier %q", name)
		}
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, "."), nil
}

// Select specifies the columns to retrieve.
func (b *SQLBuilder) Select(cols ...string) *SQLBuilder {
	b.isSelect = true
	b.columns = cols
	return b
}

// Insert specifies the table and columns for insertion.
func (b *SQLBuilder) Insert(table string, cols ...string) *SQLBuilder {
	b.isInsert = true
	b.table = table
	b.columns = cols
	return b
}

// OnConflict appends an ON CONFLICT clause to an insert, e.g. "DO NOTHING".
func (b *SQLBuilder) OnConflict(clause string) *SQLBuilder {
	b.conflict = clause
	return b
}

// Delete specifies the table to delete from.
func (b *SQLBuilder) Delete(table string) *SQLBuilder {
	b.isDelete = true
	b.table = table
	return b
}

// From specifies the table to select from.
func (b *SQLBuilder) From(table string) *SQLBuilder {
	b.table = table
	return b
}

// Values specifies the values for insertion.
func (b *SQLBuilder) Values(vals ...interface{}) *SQLBuilder {
	b.values = vals
	return b
}

// Where adds a condition. Where conditions are joined with AND.
func (b *SQLBuilder) Where(cond string, args ...interface{}) *SQLBuilder {
	b.where = append(b.where, cond)
	b.args = append(b.args, args...)
	return b
}

// WhereCondition adds "column op value" with a quoted column. The in operator
// expects a slice value and matches any of its elements.
func (b *SQLBuilder) WhereCondition(column, op string, value interface{}) error {
	col, err := QuoteIdent(column)
	if err != nil {
		return err
	}
	sqlOp, ok := operators[strings.ToLower(strings.TrimSpace(op))]
	if !ok {
		return fmt.Errorf("unsupported operator %q", op)
	}
	if sqlOp == "IN" {
		b.Where(col+" = ANY(?)", pq.Array(value))
		return nil
	}
	b.Where(col+" "+sqlOp+" ?", value)
	return nil
}

// OrderBy adds an ORDER BY clause.
func (b *SQLBuilder) OrderBy(order string) *SQLBuilder {
	b.orderBy = append(b.orderBy, order)
	return b
}

// Limit adds a LIMIT clause.
func (b *SQLBuilder) Limit(limit int) *SQLBuilder {
	b.limit = limit
	return b
}

// Offset adds an OFFSET clause.
func (b *SQLBuilder) Offset(offset int) *SQLBuilder {
	b.offset = offset
	return b
}

// BuildSafe is Build plus a check that every argument has a placeholder.
func (b *SQLBuilder) BuildSafe() (string, []interface{}, error) {
	sql, args := b.Build()

	count := 0
	for i := 1; i <= len(args)+10; i++ {
		if strings.Contains(sql, fmt.Sprintf("$%d", i)) {
			count++
		} else if i > len(args) {
			break
		}
	}
	if count != len(args) {
		return "", nil, fmt.Errorf("placeholder count (%d) does not match argument count (%d)", count, len(args))
	}

	return sql, args, nil
}

// Build constructs the final SQL string and arguments. It can be called
// repeatedly.
func (b *SQLBuilder) Build() (string, []interface{}) {
	var sb strings.Builder
	var args []interface{}

	switch {
	case b.isSelect:
		sb.WriteString("SELECT ")
		sb.WriteString(strings.Join(b.columns, ", "))
		sb.WriteString(" FROM ")
		sb.WriteString(b.table)
	case b.isInsert:
		placeholders := make([]string, len(b.values))
		for i := range b.values {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES (%s)",
			b.table, strings.Join(b.columns, ", "), strings.Join(placeholders, ", "))
		if b.conflict != "" {
			sb.WriteString(" ON CONFLICT ")
			sb.WriteString(b.conflict)
		}
		return sb.String(), append(args, b.values...)
	case b.isDelete:
		sb.WriteString("DELETE FROM ")
		sb.WriteString(b.table)
	}

	if len(b.where) > 0 {
		next := 1
		sb.WriteString(" WHERE ")
		sb.WriteString(bind(strings.Join(b.where, " AND "), &next))
		args = append(args, b.args...)
	}

	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", b.limit)
	}
	if b.offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", b.offset)
	}

	return sb.String(), args
}

// bind replaces every "?" of sql with the next $n placeholder.
func bind(sql string, next *int) string {
	parts := strings.Split(sql, "?")
	var sb strings.Builder
	for i, part := range parts {
		sb.WriteString(part)
		if i < len(parts)-1 {
			fmt.Fprintf(&sb, "$%d", *next)
			*next++
		}
	}
	return sb.String()
}
