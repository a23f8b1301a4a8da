package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/locvowork/tablereport/internal/repository/builder"
	"github.com/locvowork/tablereport/pkg/reportspec"
	"github.com/locvowork/tablereport/pkg/tablereport"
)

// SQLRowRepository reads rows from postgres. JSON columns, typically built
// with json_agg, are decoded so they can feed cascade columns.
type SQLRowRepository struct {
	db *sql.DB
}

func NewSQLRowRepository(db *sql.DB) *SQLRowRepository {
	return &SQLRowRepository{db: db}
}

// FetchRows runs the raw query of src, or a select built from its table,
// columns, where, sort and limit.
func (r *SQLRowRepository) FetchRows(ctx context.Context, src *reportspec.SourceTemplate) ([]tablereport.DataRow, error) {
	query, args, err := BuildSelect(src)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query failed: %v", ErrSourceUnavailable, err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// BuildSelect returns the statement and arguments for a postgres source.
func BuildSelect(src *reportspec.SourceTemplate) (string, []interface{}, error) {
	if src.Query != "" {
		return src.Query, src.Args, nil
	}

	table, err := builder.QuoteIdent(src.Table)
	if err != nil {
		return "", nil, err
	}
	cols := []string{"*"}
	if len(src.Columns) > 0 {
		cols = make([]string, 0, len(src.Columns))
		for _, c := range src.Columns {
			q, err := builder.QuoteIdent(c)
			if err != nil {
				return "", nil, err
			}
			cols = append(cols, q)
		}
	}

	b := builder.NewSQLBuilder().Select(cols...).From(table)
	for _, w := range src.Where {
		if err := b.WhereCondition(w.Field, w.Op, w.Value); err != nil {
			return "", nil, fmt.Errorf("where %s: %w", w.Field, err)
		}
	}
	for _, s := range src.Sort {
		col, err := builder.QuoteIdent(s.Field)
		if err != nil {
			return "", nil, err
		}
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		b.OrderBy(col + " " + dir)
	}
	if src.Limit > 0 {
		b.Limit(src.Limit)
	}
	if src.Offset > 0 {
		b.Offset(src.Offset)
	}

	return b.BuildSafe()
}

func scanRows(rows *sql.Rows) ([]tablereport.DataRow, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	var out []tablereport.DataRow
	for rows.Next() {
		values := make([]interface{}, len(types))
		ptrs := make([]interface{}, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		row := make(tablereport.DataRow, len(types))
		for i, ct := range types {
			v, err := columnValue(ct.DatabaseTypeName(), values[i])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", ct.Name(), err)
			}
			row[ct.Name()] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// columnValue decodes JSON columns and turns other byte values into strings.
func columnValue(dbType string, v interface{}) (interface{}, error) {
	var raw []byte
	switch x := v.(type) {
	case []byte:
		raw = x
	case string:
		raw = []byte(x)
	default:
		return v, nil
	}

	switch strings.ToUpper(dbType) {
	case "JSON", "JSONB":
		return decodeJSON(raw)
	}
	if _, ok := v.([]byte); ok {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') && json.Valid(trimmed) {
			return decodeJSON(trimmed)
		}
		return string(raw), nil
	}
	return v, nil
}

func decodeJSON(raw []byte) (interface{}, error) {
	var out interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return out, nil
}
