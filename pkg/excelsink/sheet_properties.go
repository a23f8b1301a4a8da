package excelsink

import (
	"fmt"
	"strings"

	"github.com/locvowork/tablereport/pkg/tablereport"
	"github.com/xuri/excelize/v2"
)

func applySheetProperties(f *excelize.File, sheet string, props *tablereport.SheetProperties) error {
	if props == nil {
		return nil
	}

	opts := &excelize.SheetPropsOptions{}
	if props.DefaultRowHeight > 0 {
		h := props.DefaultRowHeight
		opts.DefaultRowHeight = &h
		opts.CustomHeight = boolPtr(true)
	}
	if props.DefaultColWidth > 0 {
		w := props.DefaultColWidth
		opts.DefaultColWidth = &w
	}
	if props.TabColor != "" {
		c := color(props.TabColor)
		opts.TabColorRGB = &c
	}
	if ps := props.PageSetup; ps != nil && (ps.FitToWidth != nil || ps.FitToHeight != nil) {
		opts.FitToPage = boolPtr(true)
	}
	if err := f.SetSheetProps(sheet, opts); err != nil {
		return fmt.Errorf("setting sheet properties: %w", err)
	}

	if props.ShowGridLines != nil {
		show := *props.ShowGridLines
		if err := f.SetSheetView(sheet, 0, &excelize.ViewOptions{ShowGridLines: &show}); err != nil {
			return fmt.Errorf("setting sheet view: %w", err)
		}
	}

	if fp := props.Freeze; fp != nil && (fp.XSplit > 0 || fp.YSplit > 0) {
		topLeft := fp.TopLeftCell
		if topLeft == "" {
			cell, err := excelize.CoordinatesToCellName(fp.XSplit+1, fp.YSplit+1)
			if err != nil {
				return err
			}
			topLeft = cell
		}
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			XSplit:      fp.XSplit,
			YSplit:      fp.YSplit,
			TopLeftCell: topLeft,
			ActivePane:  activePane(fp),
		}); err != nil {
			return fmt.Errorf("setting freeze panes: %w", err)
		}
	}

	if ps := props.PageSetup; ps != nil {
		if err := applyPageSetup(f, sheet, ps); err != nil {
			return err
		}
	}
	return nil
}

func activePane(fp *tablereport.FreezePane) string {
	switch {
	case fp.XSplit > 0 && fp.YSplit > 0:
		return "bottomRight"
	case fp.YSplit > 0:
		return "bottomLeft"
	default:
		return "topRight"
	}
}

func applyPageSetup(f *excelize.File, sheet string, ps *tablereport.PageSetup) error {
	layout := &excelize.PageLayoutOptions{
		FitToWidth:  ps.FitToWidth,
		FitToHeight: ps.FitToHeight,
	}
	if ps.PaperSize > 0 {
		size := ps.PaperSize
		layout.Size = &size
	}
	if ps.Orientation != "" {
		o := ps.Orientation
		layout.Orientation = &o
	}
	if err := f.SetPageLayout(sheet, layout); err != nil {
		return fmt.Errorf("setting page layout: %w", err)
	}

	if m := ps.Margins; m != nil {
		if err := f.SetPageMargins(sheet, &excelize.PageLayoutMarginsOptions{
			Top:    floatPtr(m.Top),
			Left:   floatPtr(m.Left),
			Bottom: floatPtr(m.Bottom),
			Right:  floatPtr(m.Right),
			Header: floatPtr(m.Header),
			Footer: floatPtr(m.Footer),
		}); err != nil {
			return fmt.Errorf("setting page margins: %w", err)
		}
	}

	if ps.PrintArea != "" {
		ref, err := absoluteRange(sheet, ps.PrintArea)
		if err != nil {
			return fmt.Errorf("print area %q: %w", ps.PrintArea, err)
		}
		if err := f.SetDefinedName(&excelize.DefinedName{
			Name:     "_xlnm.Print_Area",
			RefersTo: ref,
			Scope:    sheet,
		}); err != nil {
			return fmt.Errorf("setting print area: %w", err)
		}
	}
	return nil
}

// absoluteRange turns "A1:F20" into "'Sheet'!$A$1:$F$20".
func absoluteRange(sheet, area string) (string, error) {
	parts := strings.Split(area, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("expected a range like A1:F20")
	}
	abs := make([]string, 2)
	for i, p := range parts {
		col, row, err := excelize.CellNameToCoordinates(strings.ReplaceAll(p, "$", ""))
		if err != nil {
			return "", err
		}
		if abs[i], err = excelize.CoordinatesToCellName(col, row, true); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("'%s'!%s:%s", strings.ReplaceAll(sheet, "'", "''"), abs[0], abs[1]), nil
}

func boolPtr(b bool) *bool { return &b }

func floatPtr(f float64) *float64 { return &f }
