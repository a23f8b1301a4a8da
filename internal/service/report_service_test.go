package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/locvowork/tablereport/internal/repository"
	"github.com/locvowork/tablereport/pkg/reportspec"
	"github.com/locvowork/tablereport/pkg/tablereport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const schoolTemplate = `
name: school
variables: {grade: "1"}
workbook: {title: "School ${grade}", creator: tests}
sheets:
  - name: "Teachers ${grade}"
    source: {type: elastic, index: teachers}
    table:
      caption: Teachers
      columns:
        - {key: sn, label: SN, mapper: {name: seq}}
        - {key: name, label: Name}
        - label: Classes
          children:
            - {keys: [classes, code], label: Code}
            - {keys: [classes, students, name], label: Student}
  - name: Inline
    source:
      rows:
        - {name: Zed}
    table:
      columns:
        - {key: name}
  - name: Bound
    table:
      columns:
        - {key: name}
  - name: Notes
`

// fakeRows serves elastic rows and fails the first failures calls. A non-nil
// err fails every call.
type fakeRows struct {
	mu       sync.Mutex
	calls    int
	failures int
	err      error
	rows     []tablereport.DataRow
}

func (f *fakeRows) FetchRows(_ context.Context, src *reportspec.SourceTemplate) ([]tablereport.DataRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls <= f.failures {
		return nil, repository.ErrSourceUnavailable
	}
	return f.rows, nil
}

func schoolRows() []tablereport.DataRow {
	return []tablereport.DataRow{
		{"name": "Alice", "classes": []interface{}{
			map[string]interface{}{"code": "M1", "students": []interface{}{
				map[string]interface{}{"name": "Tom"},
				map[string]interface{}{"name": "Ann"},
			}},
		}},
		{"name": "Bob", "classes": []interface{}{}},
	}
}

func loadSchool(t *testing.T) *reportspec.ReportTemplate {
	t.Helper()
	tmpl, err := reportspec.LoadTemplateFromString(schoolTemplate)
	require.NoError(t, err)
	return reportspec.ResolveVariables(tmpl, nil)
}

func newTestService(t *testing.T, repo repository.RowRepository, reg prometheus.Registerer) *ReportService {
	t.Helper()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)
	return NewReportService(repo, Options{Workers: 2, Retries: 2, Metrics: metrics})
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestReportService_Render(t *testing.T) {
	reg := prometheus.NewRegistry()
	repo := &fakeRows{failures: 1, rows: schoolRows()}
	svc := newTestService(t, repo, reg)

	var buf bytes.Buffer
	err := svc.Render(context.Background(), loadSchool(t), map[string][]tablereport.DataRow{
		"Bound": {{"name": "Yan"}, {"name": "Xia"}},
	}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls, "one failure then a retry")

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Teachers 1", "Inline", "Bound", "Notes"}, f.GetSheetList())

	get := func(sheet, cell string) string {
		v, err := f.GetCellValue(sheet, cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Teachers", get("Teachers 1", "A1"))
	assert.Equal(t, "Classes", get("Teachers 1", "C2"))
	assert.Equal(t, "Student", get("Teachers 1", "D3"))
	assert.Equal(t, "1", get("Teachers 1", "A4"))
	assert.Equal(t, "Alice", get("Teachers 1", "B4"))
	assert.Equal(t, "M1", get("Teachers 1", "C4"))
	assert.Equal(t, "Ann", get("Teachers 1", "D5"))
	assert.Equal(t, "2", get("Teachers 1", "A6"))
	assert.Equal(t, "Bob", get("Teachers 1", "B6"))

	assert.Equal(t, "Zed", get("Inline", "A2"))
	assert.Equal(t, "Xia", get("Bound", "A3"))
	assert.Equal(t, tablereport.NoTableText, get("Notes", "A1"))

	props, err := f.GetDocProps()
	require.NoError(t, err)
	assert.Equal(t, "School 1", props.Title)

	assert.Equal(t, 1.0, counterValue(t, reg, "tablereport_renders_total", StatusSuccess))
	assert.Equal(t, 2.0, counterValue(t, reg, "tablereport_rows_fetched_total", reportspec.SourceElastic))
}

func TestReportService_RenderSourceFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	repo := &fakeRows{failures: 10}
	svc := newTestService(t, repo, reg)

	var buf bytes.Buffer
	err := svc.Render(context.Background(), loadSchool(t), nil, &buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "sheet[0] 'Teachers 1'")
	assert.Equal(t, 3, repo.calls, "first attempt plus two retries")
	assert.Zero(t, buf.Len())

	assert.Equal(t, 1.0, counterValue(t, reg, "tablereport_renders_total", StatusError))
}

func TestReportService_RenderPermanentFailureIsNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"bad identifier", errors.New(`invalid identifier "teacher; --"`)},
		{"not configured", fmt.Errorf("%w: elastic", repository.ErrSourceNotConfigured)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRows{err: tt.err}
			svc := newTestService(t, repo, prometheus.NewRegistry())

			err := svc.Render(context.Background(), loadSchool(t), nil, &bytes.Buffer{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, repo.calls)
		})
	}
}

func TestReportService_RenderInvalidCascade(t *testing.T) {
	svc := newTestService(t, &fakeRows{rows: []tablereport.DataRow{{"name": "Alice", "classes": "M1"}}}, nil)

	err := svc.Render(context.Background(), loadSchool(t), nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, tablereport.ErrInvalidCascadeValue)
}

func TestReportService_RenderUnknownMapper(t *testing.T) {
	tmpl := loadSchool(t)
	registry := reportspec.NewMapperRegistry()
	svc := NewReportService(&fakeRows{}, Options{Registry: registry})

	tmpl.Sheets[1].Table.Columns[0].Mapper = &reportspec.MapperTemplate{Name: "nope"}
	err := svc.Render(context.Background(), tmpl, nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, reportspec.ErrInvalidTemplate)
	assert.ErrorIs(t, err, reportspec.ErrUnknownMapper)
}

func TestReportService_RenderNamed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "school.yaml"), []byte(schoolTemplate), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("skip"), 0o644))

	svc := NewReportService(&fakeRows{rows: schoolRows()}, Options{TemplateDir: dir})

	var buf bytes.Buffer
	require.NoError(t, svc.RenderNamed(context.Background(), "school", map[string]interface{}{"grade": 3}, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "Teachers 3", f.GetSheetList()[0])

	names, err := svc.ListTemplates()
	require.NoError(t, err)
	assert.Equal(t, []string{"school"}, names)

	err = svc.RenderNamed(context.Background(), "missing", nil, &buf)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	err = svc.RenderNamed(context.Background(), "../etc/passwd", nil, &buf)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestReportService_Layout(t *testing.T) {
	svc := NewReportService(&fakeRows{rows: schoolRows()}, Options{})

	layouts, err := svc.Layout(context.Background(), loadSchool(t), nil)
	require.NoError(t, err)
	require.Len(t, layouts, 4)

	teachers := layouts[0]
	assert.Equal(t, "Teachers 1", teachers.Sheet)
	assert.Empty(t, teachers.Placeholder)
	assert.Equal(t, &tablereport.Rect{Top: 2, Left: 1, Bottom: 3, Right: 4}, teachers.HeaderRect)
	assert.Equal(t, &tablereport.Rect{Top: 4, Left: 1, Bottom: 6, Right: 4}, teachers.DataRect)
	assert.Equal(t, []RowLayoutSummary{{Row: 4, RowSpan: 2}, {Row: 6, RowSpan: 1}}, teachers.Rows)

	require.Len(t, teachers.Columns, 5)
	group := teachers.Columns[2]
	assert.Equal(t, "columns[2]", group.Path)
	assert.Equal(t, "Classes", group.Label)
	assert.False(t, group.Leaf)
	assert.Equal(t, 2, group.ColSpan)
	student := teachers.Columns[4]
	assert.Equal(t, "columns[2].children[1]", student.Path)
	assert.True(t, student.Leaf)
	assert.Equal(t, 3, student.Row)
	assert.Equal(t, 4, student.Col)

	assert.Equal(t, tablereport.NoDataText, layouts[2].Placeholder)
	assert.Equal(t, tablereport.NoTableText, layouts[3].Placeholder)
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	var already prometheus.AlreadyRegisteredError
	assert.True(t, errors.As(err, &already))
}

func TestReportService_BundledTemplates(t *testing.T) {
	svc := NewReportService(repository.NewSourceRouter(), Options{TemplateDir: filepath.Join("..", "..", "templates")})

	names, err := svc.ListTemplates()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"school_datastore", "school_elastic", "school_inline", "school_postgres"}, names)
	for _, name := range names {
		_, err := svc.LoadNamed(name)
		assert.NoError(t, err, name)
	}

	var buf bytes.Buffer
	require.NoError(t, svc.RenderNamed(context.Background(), "school_inline", nil, &buf))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	for cell, want := range map[string]string{
		"A1":  "ABC primary school",
		"A2":  "Class One",
		"E5":  "Name",
		"A6":  "1",
		"B6":  "Alice Nguyen",
		"C6":  "n/a",
		"D6":  "C1-1",
		"E7":  "Ann",
		"B8":  "Bao Tran",
		"D10": "C1-3",
		"F10": "6",
	} {
		got, err := f.GetCellValue("Class One", cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}

	err = svc.RenderNamed(context.Background(), "school_postgres", nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, repository.ErrSourceUnavailable)
}
