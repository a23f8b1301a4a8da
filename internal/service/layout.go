package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/locvowork/tablereport/pkg/reportspec"
	"github.com/locvowork/tablereport/pkg/tablereport"
)

// SheetLayout is the JSON view of the layout of one sheet.
type SheetLayout struct {
	Sheet       string             `json:"sheet"`
	Placeholder string             `json:"placeholder,omitempty"`
	HeaderRect  *tablereport.Rect  `json:"header_rect,omitempty"`
	DataRect    *tablereport.Rect  `json:"data_rect,omitempty"`
	Columns     []ColumnLayout     `json:"columns,omitempty"`
	Rows        []RowLayoutSummary `json:"rows,omitempty"`
}

// ColumnLayout is the position of one header node.
type ColumnLayout struct {
	Path  string `json:"path"`
	Label string `json:"label,omitempty"`
	Leaf  bool   `json:"leaf"`
	tablereport.NodeLayout
}

// RowLayoutSummary is the position of one top level data row.
type RowLayoutSummary struct {
	Row     int `json:"row"`
	RowSpan int `json:"rowspan"`
}

// Layout computes the placement of every sheet of tmpl without rendering it.
func (s *ReportService) Layout(ctx context.Context, tmpl *reportspec.ReportTemplate, bindings map[string][]tablereport.DataRow) ([]SheetLayout, error) {
	specs, err := s.BuildSheets(ctx, tmpl, bindings)
	if err != nil {
		return nil, err
	}

	out := make([]SheetLayout, 0, len(specs))
	for i, spec := range specs {
		sl, err := layoutSheet(spec, i)
		if err != nil {
			return nil, fmt.Errorf("sheet[%d] '%s': %w", i, sl.Sheet, err)
		}
		out = append(out, sl)
	}
	return out, nil
}

func layoutSheet(spec tablereport.SheetSpec, index int) (SheetLayout, error) {
	sl := SheetLayout{Sheet: tablereport.SheetName(spec, index)}
	switch {
	case spec.Table == nil:
		sl.Placeholder = tablereport.NoTableText
		return sl, nil
	case len(spec.Table.Columns) == 0:
		sl.Placeholder = tablereport.NoHeadColumnText
		return sl, nil
	}

	layout, err := tablereport.BuildTableLayout(spec.Table, spec.Table.HeaderRow())
	if err != nil {
		return sl, err
	}
	if len(spec.Table.Rows) == 0 {
		sl.Placeholder = tablereport.NoDataText
	}

	sl.HeaderRect = &layout.HeaderRect
	sl.DataRect = &layout.DataRect
	sl.Columns = columnLayouts(layout.Header, spec.Table.Columns, "columns")
	for _, rl := range layout.Rows {
		sl.Rows = append(sl.Rows, RowLayoutSummary{Row: rl.Row, RowSpan: rl.RowSpan})
	}
	return sl, nil
}

// columnLayouts lists the nodes of columns in pre-order.
func columnLayouts(h *tablereport.HeaderLayout, columns []tablereport.Column, prefix string) []ColumnLayout {
	var out []ColumnLayout
	for i, c := range columns {
		path := fmt.Sprintf("%s[%d]", prefix, i)
		node, _ := h.Node(c)
		cl := ColumnLayout{Path: path, Label: columnLabel(c), NodeLayout: node}

		if g, ok := c.(*tablereport.GroupColumn); ok {
			out = append(out, cl)
			out = append(out, columnLayouts(h, g.Children, path+".children")...)
			continue
		}
		cl.Leaf = true
		out = append(out, cl)
	}
	return out
}

func columnLabel(c tablereport.Column) string {
	if label := tablereport.Attrs(c).Label; label != "" {
		return label
	}
	switch col := c.(type) {
	case *tablereport.DirectColumn:
		return col.Key
	case *tablereport.CascadeColumn:
		return strings.Join(col.Keys, ".")
	}
	return ""
}
