package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/locvowork/tablereport/internal/logger"
	"github.com/locvowork/tablereport/internal/repository"
	"github.com/locvowork/tablereport/internal/service"
	"github.com/locvowork/tablereport/internal/service/serviceutils"
	"github.com/locvowork/tablereport/pkg/reportspec"
	"github.com/locvowork/tablereport/pkg/tablereport"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RenderRequest is the body of POST /reports/render and POST /reports/layout.
// Template is a JSON encoded report template.
type RenderRequest struct {
	Template  json.RawMessage                  `json:"template"`
	Variables map[string]interface{}           `json:"variables"`
	Bindings  map[string][]tablereport.DataRow `json:"bindings"`
}

type ReportHandler struct {
	svc *service.ReportService
}

func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// RenderHandler handles POST /reports/render
func (h *ReportHandler) RenderHandler(c echo.Context) error {
	ctx := c.Request().Context()
	req, tmpl, err := bindTemplate(c)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid report template", err)
	}

	var buf bytes.Buffer
	if err := h.svc.Render(ctx, tmpl, req.Bindings, &buf); err != nil {
		logger.ErrorLog(ctx, "failed to render report %q", err, tmpl.Name)
		return serviceutils.ResponseError(c, statusOf(err), "Failed to render report", err)
	}
	return writeWorkbook(c, tmpl.Name, buf.Bytes())
}

// RenderNamedHandler handles GET /reports/:name. Query parameters become
// template variables.
func (h *ReportHandler) RenderNamedHandler(c echo.Context) error {
	ctx := c.Request().Context()
	name := c.Param("name")

	vars := make(map[string]interface{})
	for k, v := range c.QueryParams() {
		if len(v) > 0 {
			vars[k] = v[0]
		}
	}

	var buf bytes.Buffer
	if err := h.svc.RenderNamed(ctx, name, vars, &buf); err != nil {
		logger.ErrorLog(ctx, "failed to render report %q", err, name)
		return serviceutils.ResponseError(c, statusOf(err), "Failed to render report", err)
	}
	return writeWorkbook(c, name, buf.Bytes())
}

// LayoutHandler handles POST /reports/layout
func (h *ReportHandler) LayoutHandler(c echo.Context) error {
	ctx := c.Request().Context()
	req, tmpl, err := bindTemplate(c)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid report template", err)
	}

	layouts, err := h.svc.Layout(ctx, tmpl, req.Bindings)
	if err != nil {
		logger.ErrorLog(ctx, "failed to lay out report %q", err, tmpl.Name)
		return serviceutils.ResponseError(c, statusOf(err), "Failed to lay out report", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Layout computed", layouts)
}

// ListHandler handles GET /reports
func (h *ReportHandler) ListHandler(c echo.Context) error {
	names, err := h.svc.ListTemplates()
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to list templates", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Templates listed", names)
}

// HealthHandler handles GET /healthz
func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// bindTemplate decodes the request and loads its template through the YAML
// loader, which reads JSON as well, so defaults and validation match the
// template files.
func bindTemplate(c echo.Context) (*RenderRequest, *reportspec.ReportTemplate, error) {
	var req RenderRequest
	if err := c.Bind(&req); err != nil {
		return nil, nil, fmt.Errorf("invalid request body: %w", err)
	}
	if len(req.Template) == 0 {
		return nil, nil, fmt.Errorf("%w: template is required", reportspec.ErrInvalidTemplate)
	}

	tmpl, err := reportspec.LoadTemplateFromReader(bytes.NewReader(req.Template))
	if err != nil {
		return nil, nil, err
	}
	return &req, reportspec.ResolveVariables(tmpl, req.Variables), nil
}

func writeWorkbook(c echo.Context, name string, data []byte) error {
	if name == "" {
		name = "report"
	}
	c.Response().Header().Set(echo.HeaderContentType, xlsxContentType)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name+".xlsx"))
	c.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(len(data)))
	c.Response().WriteHeader(http.StatusOK)

	_, err := c.Response().Write(data)
	return err
}

// statusOf maps a render error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrSourceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, reportspec.ErrInvalidTemplate),
		errors.Is(err, tablereport.ErrInvalidCascadeValue),
		errors.Is(err, tablereport.ErrEmptyHeader),
		errors.Is(err, tablereport.ErrEmptyGroup),
		errors.Is(err, tablereport.ErrNilColumn),
		errors.Is(err, tablereport.ErrDuplicateColumn),
		errors.Is(err, tablereport.ErrUnsupportedColumn),
		errors.Is(err, tablereport.ErrEmptyColumnKey),
		errors.Is(err, tablereport.ErrEmptySheetList):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
