package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/locvowork/tablereport/internal/logger"
	"github.com/locvowork/tablereport/internal/repository"
	"github.com/locvowork/tablereport/pkg/dataflow"
	"github.com/locvowork/tablereport/pkg/excelsink"
	"github.com/locvowork/tablereport/pkg/reportspec"
	"github.com/locvowork/tablereport/pkg/tablereport"
)

// ErrTemplateNotFound is returned by RenderNamed for an unknown template.
var ErrTemplateNotFound = errors.New("template not found")

var templateName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Options tune a ReportService.
type Options struct {
	// Registry resolves column mappers, DefaultMappers when nil.
	Registry    *reportspec.MapperRegistry
	TemplateDir string
	// Workers, Retries and Backoff drive the concurrent row fetch.
	Workers int
	Retries int
	Backoff time.Duration
	Metrics *Metrics
}

// ReportService turns report templates into xlsx workbooks.
type ReportService struct {
	rows repository.RowRepository
	opts Options
}

func NewReportService(rows repository.RowRepository, opts Options) *ReportService {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &ReportService{rows: rows, opts: opts}
}

// Render fetches the rows of every sheet, builds the workbook and writes it
// to w. bindings supply rows per sheet name and take precedence over inline
// rows and the sheet source.
func (s *ReportService) Render(ctx context.Context, tmpl *reportspec.ReportTemplate, bindings map[string][]tablereport.DataRow, w io.Writer) (err error) {
	start := time.Now()
	defer func() {
		status := StatusSuccess
		if err != nil {
			status = StatusError
		}
		s.opts.Metrics.observeRender(status, time.Since(start).Seconds())
	}()

	specs, err := s.BuildSheets(ctx, tmpl, bindings)
	if err != nil {
		return err
	}

	wb, err := excelsink.NewWorkbook(tmpl.Workbook)
	if err != nil {
		return fmt.Errorf("failed to create workbook: %w", err)
	}
	defer wb.Close()

	if err := tablereport.BuildWorkbook(wb, specs); err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	if err := wb.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	logger.InfoLog(ctx, "rendered report %q with %d sheets in %s", tmpl.Name, len(specs), time.Since(start))
	return nil
}

// RenderNamed loads <TemplateDir>/<name>.yaml, substitutes vars and renders it.
func (s *ReportService) RenderNamed(ctx context.Context, name string, vars map[string]interface{}, w io.Writer) error {
	tmpl, err := s.LoadNamed(name)
	if err != nil {
		return err
	}
	return s.Render(ctx, reportspec.ResolveVariables(tmpl, vars), nil, w)
}

// LoadNamed loads the template stored as <TemplateDir>/<name>.yaml.
func (s *ReportService) LoadNamed(name string) (*reportspec.ReportTemplate, error) {
	if !templateName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}

	tmpl, err := reportspec.LoadTemplate(filepath.Join(s.opts.TemplateDir, name+".yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}
	return tmpl, err
}

// ListTemplates returns the names of the templates in TemplateDir.
func (s *ReportService) ListTemplates() ([]string, error) {
	entries, err := os.ReadDir(s.opts.TemplateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read template dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		names = append(names, e.Name()[:len(e.Name())-len(".yaml")])
	}
	return names, nil
}

// BuildSheets fetches rows and converts tmpl into tablereport sheets.
func (s *ReportService) BuildSheets(ctx context.Context, tmpl *reportspec.ReportTemplate, bindings map[string][]tablereport.DataRow) ([]tablereport.SheetSpec, error) {
	rows, err := s.fetchRows(ctx, tmpl, bindings)
	if err != nil {
		return nil, err
	}

	specs, err := tmpl.ToSheetSpecs(s.opts.Registry, rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", reportspec.ErrInvalidTemplate, err)
	}
	return specs, nil
}

// fetchRows loads the rows of every sheet bound to an external source, one
// sheet per worker.
func (s *ReportService) fetchRows(ctx context.Context, tmpl *reportspec.ReportTemplate, bindings map[string][]tablereport.DataRow) (map[string][]tablereport.DataRow, error) {
	rowsBySheet := make(map[string][]tablereport.DataRow, len(tmpl.Sheets))
	var pending []int
	for i := range tmpl.Sheets {
		sheet := &tmpl.Sheets[i]
		if sheet.Table == nil {
			continue
		}
		key := tablereport.SheetName(tablereport.SheetSpec{Name: sheet.Name}, i)
		if rows, ok := bindings[key]; ok {
			rowsBySheet[key] = rows
			continue
		}
		if sheet.SourceType() != reportspec.SourceInline {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return rowsBySheet, nil
	}

	var mu sync.Mutex
	err := dataflow.ForEach(ctx, dataflow.From(ctx, pending...), func(i int) error {
		sheet := &tmpl.Sheets[i]
		key := tablereport.SheetName(tablereport.SheetSpec{Name: sheet.Name}, i)

		rows, err := s.rows.FetchRows(ctx, sheet.Source)
		if err != nil {
			logger.WarnLog(ctx, "fetching rows of sheet %q from %s failed: %v", key, sheet.SourceType(), err)
			return fmt.Errorf("sheet[%d] '%s': %w", i, key, err)
		}
		s.opts.Metrics.addRows(sheet.SourceType(), len(rows))

		mu.Lock()
		rowsBySheet[key] = rows
		mu.Unlock()
		return nil
	},
		dataflow.WithWorkers(s.opts.Workers),
		dataflow.WithRetry(s.opts.Retries, dataflow.ExponentialBackoff(s.opts.Backoff)),
		dataflow.WithRetryIf(repository.Retryable),
	)
	if err != nil {
		return nil, err
	}
	return rowsBySheet, nil
}
