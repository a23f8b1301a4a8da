package reportspec

import (
	"fmt"

	"github.com/locvowork/tablereport/pkg/tablereport"
)

// ToSheetSpecs converts the template sheets into tablereport sheets.
// rowsBySheet holds the fetched rows keyed by sheet name, NONAME{n} for an
// unnamed sheet; sheets missing from it use their inline rows. A nil registry means DefaultMappers.
func (t *ReportTemplate) ToSheetSpecs(registry *MapperRegistry, rowsBySheet map[string][]tablereport.DataRow) ([]tablereport.SheetSpec, error) {
	if registry == nil {
		registry = DefaultMappers
	}

	specs := make([]tablereport.SheetSpec, 0, len(t.Sheets))
	for i := range t.Sheets {
		sheet := &t.Sheets[i]
		spec := tablereport.SheetSpec{Name: sheet.Name, Properties: sheet.Properties}

		if sheet.Table != nil {
			rows, ok := rowsBySheet[tablereport.SheetName(spec, i)]
			if !ok {
				rows = sheet.InlineRows()
			}
			table, err := sheet.Table.toTable(registry, rows)
			if err != nil {
				return nil, fmt.Errorf("sheet[%d] '%s': %w", i, sheet.Name, err)
			}
			spec.Table = table
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (tt *TableTemplate) toTable(registry *MapperRegistry, rows []tablereport.DataRow) (*tablereport.Table, error) {
	columns := make([]tablereport.Column, 0, len(tt.Columns))
	for i := range tt.Columns {
		c, err := tt.Columns[i].toColumn(registry, fmt.Sprintf("columns[%d]", i))
		if err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}

	return &tablereport.Table{
		Columns:       columns,
		Rows:          rows,
		Caption:       tt.Caption.toCaption(),
		SubCaption:    tt.SubCaption.toCaption(),
		CellStyle:     tt.CellStyle,
		HeadCellStyle: tt.HeadCellStyle,
		DataCellStyle: tt.DataCellStyle,
	}, nil
}

func (c *CaptionTemplate) toCaption() *tablereport.Caption {
	if c == nil {
		return nil
	}
	return &tablereport.Caption{Value: c.Value, Style: c.Style}
}

func (c *ColumnTemplate) toColumn(registry *MapperRegistry, path string) (tablereport.Column, error) {
	kind, err := c.kind()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	attrs := tablereport.ColumnAttrs{
		Label:         c.Label,
		Width:         c.Width,
		CellStyle:     c.CellStyle,
		HeadCellStyle: c.HeadCellStyle,
		DataCellStyle: c.DataCellStyle,
	}

	if kind == "children" {
		children := make([]tablereport.Column, 0, len(c.Children))
		for i := range c.Children {
			child, err := c.Children[i].toColumn(registry, fmt.Sprintf("%s.children[%d]", path, i))
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return &tablereport.GroupColumn{ColumnAttrs: attrs, Children: children}, nil
	}

	var mapper tablereport.ValueMapper
	if c.Mapper != nil {
		mapper, err = registry.Build(*c.Mapper)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if kind == "key" {
		return &tablereport.DirectColumn{ColumnAttrs: attrs, Key: c.Key, Mapper: mapper}, nil
	}
	keys := append([]string(nil), c.Keys...)
	return &tablereport.CascadeColumn{ColumnAttrs: attrs, Keys: keys, Mapper: mapper}, nil
}
