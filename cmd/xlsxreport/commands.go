package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/locvowork/tablereport/internal/bootstrap"
	"github.com/locvowork/tablereport/internal/repository"
	"github.com/locvowork/tablereport/internal/service"
	"github.com/locvowork/tablereport/pkg/reportspec"
	"github.com/locvowork/tablereport/pkg/tablereport"
	"github.com/spf13/cobra"
)

type renderParams struct {
	output  string
	data    []string
	vars    []string
	connect bool
}

func newRootCommand(stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "xlsxreport",
		Short:         "Render report templates into xlsx workbooks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRenderCommand(), newLayoutCommand(stdout))
	return root
}

func newRenderCommand() *cobra.Command {
	var params renderParams
	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a template into an xlsx file",
		Long: `Render a YAML report template into an xlsx workbook.

Rows come from --data files bound to sheet names, the rows embedded in the
template, or the data source of each sheet when --connect is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return render(cmd.Context(), args[0], &params)
		},
	}
	addTemplateFlags(cmd, &params)
	cmd.Flags().StringVarP(&params.output, "output", "o", "report.xlsx", "path of the generated workbook")
	return cmd
}

func newLayoutCommand(stdout io.Writer) *cobra.Command {
	var params renderParams
	cmd := &cobra.Command{
		Use:   "layout <template>",
		Short: "Print the computed layout of a template as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return layout(cmd.Context(), args[0], &params, stdout)
		},
	}
	addTemplateFlags(cmd, &params)
	return cmd
}

func addTemplateFlags(cmd *cobra.Command, params *renderParams) {
	cmd.Flags().StringArrayVar(&params.data, "data", nil, "bind a JSON array of rows to a sheet, as sheet=rows.json (repeatable)")
	cmd.Flags().StringArrayVar(&params.vars, "var", nil, "set a template variable, as name=value (repeatable)")
	cmd.Flags().BoolVar(&params.connect, "connect", false, "fetch sheet sources from the stores configured in the environment")
}

func render(ctx context.Context, path string, params *renderParams) error {
	svc, tmpl, bindings, closeFn, err := prepare(ctx, path, params)
	if err != nil {
		return err
	}
	defer closeFn()

	f, err := os.Create(params.output)
	if err != nil {
		return err
	}
	if err := svc.Render(ctx, tmpl, bindings, f); err != nil {
		f.Close()
		os.Remove(params.output)
		return err
	}
	return f.Close()
}

func layout(ctx context.Context, path string, params *renderParams, stdout io.Writer) error {
	svc, tmpl, bindings, closeFn, err := prepare(ctx, path, params)
	if err != nil {
		return err
	}
	defer closeFn()

	layouts, err := svc.Layout(ctx, tmpl, bindings)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(layouts)
}

func prepare(ctx context.Context, path string, params *renderParams) (*service.ReportService, *reportspec.ReportTemplate, map[string][]tablereport.DataRow, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}

	tmpl, err := reportspec.LoadTemplate(path)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	vars, err := parsePairs(params.vars)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("--var: %w", err)
	}
	bindings, err := loadBindings(params.data)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("--data: %w", err)
	}

	router := repository.NewSourceRouter()
	closeFn := func() {}
	if params.connect {
		app := bootstrap.NewApp()
		if err := app.Setup(ctx); err != nil {
			return nil, nil, nil, nil, err
		}
		router = app.Router()
		closeFn = app.Close
	}

	svc := service.NewReportService(router, service.Options{Workers: 4})
	return svc, reportspec.ResolveVariables(tmpl, vars), bindings, closeFn, nil
}

func parsePairs(pairs []string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected name=value, got %q", p)
		}
		out[k] = v
	}
	return out, nil
}

// loadBindings reads sheet=file pairs. Numbers are kept as json.Number so
// integers are written exactly.
func loadBindings(pairs []string) (map[string][]tablereport.DataRow, error) {
	files, err := parsePairs(pairs)
	if err != nil {
		return nil, err
	}

	bindings := make(map[string][]tablereport.DataRow, len(files))
	for sheet, file := range files {
		f, err := os.Open(file.(string))
		if err != nil {
			return nil, err
		}
		dec := json.NewDecoder(f)
		dec.UseNumber()
		var rows []tablereport.DataRow
		err = dec.Decode(&rows)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", file, err)
		}
		bindings[sheet] = rows
	}
	return bindings, nil
}
