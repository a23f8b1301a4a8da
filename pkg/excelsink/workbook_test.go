package excelsink

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/locvowork/tablereport/pkg/tablereport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func mergedRanges(t *testing.T, f *excelize.File, sheet string) []string {
	t.Helper()
	merges, err := f.GetMergeCells(sheet)
	require.NoError(t, err)
	var out []string
	for i := range merges {
		out = append(out, merges[i].GetStartAxis()+":"+merges[i].GetEndAxis())
	}
	return out
}

func schoolSheets() []tablereport.SheetSpec {
	seq := func(_ interface{}, index int, _ tablereport.DataRow) interface{} { return index + 1 }
	thin := &tablereport.CellStyle{
		Alignment: &tablereport.AlignmentStyle{Vertical: "center"},
		Border:    tablereport.AllBorders("thin", "#000000"),
	}
	table := &tablereport.Table{
		Caption: &tablereport.Caption{Value: "ABC primary school", Style: &tablereport.CellStyle{
			Font: &tablereport.FontStyle{Bold: tablereport.Bool(true)},
		}},
		Columns: []tablereport.Column{
			tablereport.Direct("sn").WithLabel("SN").WithWidth(5).WithMapper(seq),
			tablereport.Direct("teacher").WithLabel("Teacher").WithWidth(15),
			tablereport.Group("Students",
				tablereport.Cascade("students", "name").WithLabel("Name"),
				tablereport.Cascade("students", "score").WithLabel("Score").
					WithDataStyle(&tablereport.CellStyle{NumFmt: "0.00"}),
			),
		},
		Rows: []tablereport.DataRow{
			{"teacher": "John"},
			{"teacher": "Li", "students": []interface{}{
				map[string]interface{}{"name": "Lili", "score": json.Number("9.5")},
				map[string]interface{}{"name": "Suson", "score": json.Number("8")},
			}},
		},
		CellStyle:     thin,
		HeadCellStyle: &tablereport.CellStyle{Font: &tablereport.FontStyle{Bold: tablereport.Bool(true)}},
	}
	return tablereport.SingleSheet("School", table, &tablereport.SheetProperties{
		DefaultRowHeight: 20,
		ShowGridLines:    tablereport.Bool(false),
		Freeze:           &tablereport.FreezePane{XSplit: 1, YSplit: 3},
	})
}

func TestWorkbook_RendersTable(t *testing.T) {
	wb, err := NewWorkbook(nil)
	require.NoError(t, err)
	defer wb.Close()

	require.NoError(t, tablereport.BuildWorkbook(wb, schoolSheets()))
	f := wb.File()

	assert.Equal(t, []string{"School"}, f.GetSheetList())

	cases := map[string]string{
		"A1": "ABC primary school",
		"A2": "SN",
		"B2": "Teacher",
		"C2": "Students",
		"C3": "Name",
		"D3": "Score",
		"A4": "1",
		"B4": "John",
		"A5": "2",
		"B5": "Li",
		"C5": "Lili",
		"C6": "Suson",
		"D6": "8",
	}
	for cell, want := range cases {
		got, err := f.GetCellValue("School", cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}

	assert.ElementsMatch(t, []string{"A2:A3", "B2:B3", "C2:D2", "A5:A6", "B5:B6"}, mergedRanges(t, f, "School"))

	width, err := f.GetColWidth("School", "B")
	require.NoError(t, err)
	assert.Equal(t, 15.0, width)

	// header style
	id, err := f.GetCellStyle("School", "C3")
	require.NoError(t, err)
	style, err := f.GetStyle(id)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
	assert.Len(t, style.Border, 4)
	require.NotNil(t, style.Alignment)
	assert.Equal(t, "center", style.Alignment.Vertical)

	// empty cascade cell still carries the data style
	id, err = f.GetCellStyle("School", "D4")
	require.NoError(t, err)
	assert.NotZero(t, id)
	style, err = f.GetStyle(id)
	require.NoError(t, err)
	require.NotNil(t, style.CustomNumFmt)
	assert.Equal(t, "0.00", *style.CustomNumFmt)

	// identical resolved styles share one id
	a, err := f.GetCellStyle("School", "C5")
	require.NoError(t, err)
	b, err := f.GetCellStyle("School", "C6")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWorkbook_SheetProperties(t *testing.T) {
	wb, err := NewWorkbook(nil)
	require.NoError(t, err)
	defer wb.Close()

	fitW, fitH := 1, 0
	_, err = wb.AddSheet("Print", &tablereport.SheetProperties{
		DefaultRowHeight: 20,
		DefaultColWidth:  12,
		TabColor:         "#ff0000",
		ShowGridLines:    tablereport.Bool(false),
		Freeze:           &tablereport.FreezePane{YSplit: 2},
		PageSetup: &tablereport.PageSetup{
			PaperSize:   9,
			Orientation: "landscape",
			FitToWidth:  &fitW,
			FitToHeight: &fitH,
			Margins:     &tablereport.PageMargins{Top: 0.2, Left: 0.2, Bottom: 0.2, Right: 0.2, Header: 0.1, Footer: 0.1},
			PrintArea:   "A1:F20",
		},
	})
	require.NoError(t, err)
	f := wb.File()

	props, err := f.GetSheetProps("Print")
	require.NoError(t, err)
	require.NotNil(t, props.DefaultRowHeight)
	assert.Equal(t, 20.0, *props.DefaultRowHeight)
	require.NotNil(t, props.DefaultColWidth)
	assert.Equal(t, 12.0, *props.DefaultColWidth)
	require.NotNil(t, props.TabColorRGB)
	assert.Contains(t, *props.TabColorRGB, "FF0000")

	view, err := f.GetSheetView("Print", 0)
	require.NoError(t, err)
	require.NotNil(t, view.ShowGridLines)
	assert.False(t, *view.ShowGridLines)

	panes, err := f.GetPanes("Print")
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 2, panes.YSplit)
	assert.Equal(t, "A3", panes.TopLeftCell)

	layout, err := f.GetPageLayout("Print")
	require.NoError(t, err)
	require.NotNil(t, layout.Orientation)
	assert.Equal(t, "landscape", *layout.Orientation)
	require.NotNil(t, layout.Size)
	assert.Equal(t, 9, *layout.Size)

	var printArea string
	for _, dn := range f.GetDefinedName() {
		if dn.Name == "_xlnm.Print_Area" {
			printArea = dn.RefersTo
		}
	}
	assert.Equal(t, "'Print'!$A$1:$F$20", printArea)
}

func TestWorkbook_DocProperties(t *testing.T) {
	t.Run("default creator", func(t *testing.T) {
		wb, err := NewWorkbook(&tablereport.WorkbookProperties{Title: "Report"})
		require.NoError(t, err)
		defer wb.Close()

		doc, err := wb.File().GetDocProps()
		require.NoError(t, err)
		assert.Equal(t, "NextRJ", doc.Creator)
		assert.Equal(t, "Power by https://deno.land/x/nextrj_xlsx", doc.Description)
		assert.Equal(t, "Report", doc.Title)
	})

	t.Run("explicit properties", func(t *testing.T) {
		created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		wb, err := NewWorkbook(&tablereport.WorkbookProperties{
			Creator:        "school office",
			Description:    "term report",
			Company:        "ABC",
			LastModifiedBy: "admin",
			Created:        created,
		})
		require.NoError(t, err)
		defer wb.Close()

		doc, err := wb.File().GetDocProps()
		require.NoError(t, err)
		assert.Equal(t, "school office", doc.Creator)
		assert.Equal(t, "term report", doc.Description)
		assert.Equal(t, "admin", doc.LastModifiedBy)
		assert.Equal(t, "2024-01-02T03:04:05Z", doc.Created)

		app, err := wb.File().GetAppProps()
		require.NoError(t, err)
		assert.Equal(t, "ABC", app.Company)
	})
}

func TestSheet_DateCells(t *testing.T) {
	wb, err := NewWorkbook(nil)
	require.NoError(t, err)
	defer wb.Close()

	sheet, err := wb.AddSheet("Dates", nil)
	require.NoError(t, err)

	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bordered := &tablereport.CellStyle{Border: tablereport.AllBorders("thin", "")}
	require.NoError(t, sheet.SetCell(1, 1, d, nil))
	require.NoError(t, sheet.SetCell(2, 1, d, bordered))
	require.NoError(t, sheet.SetCell(3, 1, &d, bordered))
	require.NoError(t, sheet.SetCell(4, 1, d, &tablereport.CellStyle{NumFmt: "dd/mm/yyyy"}))

	f := wb.File()
	for cell, want := range map[string]string{
		"A2": "2024-03-01",
		"A3": "2024-03-01",
		"A4": "01/03/2024",
	} {
		got, err := f.GetCellValue("Dates", cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}

	unstyled, err := f.GetCellValue("Dates", "A1")
	require.NoError(t, err)
	assert.NotEqual(t, "45352", unstyled)

	assert.Empty(t, bordered.NumFmt, "caller style is not modified")
}

func TestWorkbook_SheetNames(t *testing.T) {
	wb, err := NewWorkbook(nil)
	require.NoError(t, err)
	defer wb.Close()

	err = tablereport.BuildWorkbook(wb, []tablereport.SheetSpec{{Name: "First"}, {}, {Name: "Third"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"First", "NONAME2", "Third"}, wb.File().GetSheetList())
	assert.Equal(t, []string{"First", "NONAME2", "Third"}, wb.SheetNames())

	v, err := wb.File().GetCellValue("NONAME2", "A1")
	require.NoError(t, err)
	assert.Equal(t, tablereport.NoTableText, v)

	_, err = wb.AddSheet("first", nil)
	assert.True(t, errors.Is(err, ErrDuplicateSheet))
}

func TestWorkbook_Write(t *testing.T) {
	wb, err := NewWorkbook(nil)
	require.NoError(t, err)
	require.NoError(t, tablereport.BuildWorkbook(wb, schoolSheets()))

	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))
	require.NoError(t, wb.Close())

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("School", "C5")
	require.NoError(t, err)
	assert.Equal(t, "Lili", v)
}

func TestToExcelStyle(t *testing.T) {
	s := ToExcelStyle(&tablereport.CellStyle{
		Font:   &tablereport.FontStyle{Name: "Arial", Size: 12, Color: "#ff0000", Italic: tablereport.Bool(true)},
		Fill:   &tablereport.FillStyle{Color: "#eeeeee"},
		Border: &tablereport.BorderStyle{Top: &tablereport.BorderSide{Style: "double"}, Left: &tablereport.BorderSide{Style: "unknown"}},
		Locked: tablereport.Bool(false),
	})
	assert.Equal(t, "Arial", s.Font.Family)
	assert.Equal(t, "FF0000", s.Font.Color)
	assert.True(t, s.Font.Italic)
	assert.Equal(t, excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"EEEEEE"}}, s.Fill)
	assert.Equal(t, []excelize.Border{{Type: "top", Style: 6}}, s.Border)
	require.NotNil(t, s.Protection)
	assert.False(t, s.Protection.Locked)
	assert.Nil(t, s.Alignment)
}
