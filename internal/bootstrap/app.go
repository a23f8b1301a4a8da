package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/locvowork/tablereport/internal/config"
	"github.com/locvowork/tablereport/internal/database"
	"github.com/locvowork/tablereport/internal/handler"
	"github.com/locvowork/tablereport/internal/logger"
	"github.com/locvowork/tablereport/internal/repository"
	"github.com/locvowork/tablereport/internal/service"
	"github.com/locvowork/tablereport/pkg/reportspec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App holds the clients and the HTTP server. Stores that are not configured
// stay nil.
type App struct {
	Echo     *echo.Echo
	DB       *sql.DB
	ES       *database.ElasticSearchClient
	DS       *database.DatastoreClient
	Service  *service.ReportService
	Registry *prometheus.Registry
}

func NewApp() *App {
	return &App{
		Echo:     echo.New(),
		Registry: prometheus.NewRegistry(),
	}
}

// Setup loads the configuration, initializes logging and connects to every
// configured store.
func (a *App) Setup(ctx context.Context) error {
	// Load environment configuration
	if err := config.LoadEnvConfig(); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}
	cfg := config.DefaultEnvConfig

	logger.InitLogging(cfg.LOG_FILE_PATH, cfg.LOG_LEVEL)
	logger.InfoLog(ctx, "Environment variables loaded successfully")

	if cfg.DB_ENABLED {
		db, err := database.NewPostgresDB(ctx, database.Config{
			Host:            cfg.DB_HOST,
			Port:            cfg.DB_PORT,
			User:            cfg.DB_USER,
			Password:        cfg.DB_PASSWORD,
			DBName:          cfg.DB_NAME,
			SSLMode:         cfg.DB_SSL_MODE,
			MaxOpenConns:    cfg.DB_MAX_OPEN_CONNS,
			MaxIdleConns:    cfg.DB_MAX_IDLE_CONNS,
			ConnMaxLifetime: cfg.DB_CONN_MAX_LIFETIME,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		a.DB = db
		logger.InfoLog(ctx, "Postgres connection established")
	}

	if cfg.ES_URL != "" {
		es, err := database.NewElasticSearchClient(cfg.ES_URL, cfg.ES_USERNAME, cfg.ES_PASSWORD)
		if err != nil {
			return fmt.Errorf("failed to initialize elasticsearch: %w", err)
		}
		a.ES = es
		logger.InfoLog(ctx, "Elasticsearch client created for %s", cfg.ES_URL)
	}

	if cfg.DATASTORE_PROJECT_ID != "" {
		ds, err := database.NewDatastoreClient(ctx, cfg.DATASTORE_PROJECT_ID)
		if err != nil {
			return fmt.Errorf("failed to initialize datastore: %w", err)
		}
		a.DS = ds
		logger.InfoLog(ctx, "Datastore client created for project %s", cfg.DATASTORE_PROJECT_ID)
	}

	return nil
}

// Initialize runs Setup and wires the report service and the HTTP routes.
func (a *App) Initialize(ctx context.Context) error {
	if err := a.Setup(ctx); err != nil {
		return err
	}
	cfg := config.DefaultEnvConfig

	metrics, err := service.NewMetrics(a.Registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.Service = service.NewReportService(a.Router(), service.Options{
		Registry:    reportspec.DefaultMappers,
		TemplateDir: cfg.REPORT_TEMPLATE_DIR,
		Workers:     cfg.REPORT_FETCH_WORKERS,
		Retries:     cfg.REPORT_FETCH_RETRIES,
		Backoff:     cfg.REPORT_FETCH_BACKOFF,
		Metrics:     metrics,
	})

	// Register Middlewares
	a.RegisterMiddlewares()

	// Register Routes
	a.RegisterRoutes(handler.NewReportHandler(a.Service))

	return nil
}

// Router returns a source router with a repository for every connected store.
func (a *App) Router() *repository.SourceRouter {
	router := repository.NewSourceRouter()
	if a.DB != nil {
		router.Register(reportspec.SourcePostgres, repository.NewSQLRowRepository(a.DB))
	}
	if a.ES != nil {
		router.Register(reportspec.SourceElastic, repository.NewElasticRowRepository(a.ES))
	}
	if a.DS != nil {
		router.Register(reportspec.SourceDatastore, repository.NewDatastoreRowRepository(a.DS))
	}
	return router
}

func (a *App) RegisterMiddlewares() {
	a.Echo.Use(middleware.RequestID())
	a.Echo.Use(requestLogger)
	a.Echo.Use(middleware.Logger())
	a.Echo.Use(middleware.Recover())
	a.Echo.Use(middleware.CORS())
}

// requestLogger scopes the request context logger to the request id.
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Response().Header().Get(echo.HeaderXRequestID)
		if id != "" {
			req := c.Request()
			ctx := logger.WithLogger(req.Context(), map[string]interface{}{"request_id": id})
			c.SetRequest(req.WithContext(ctx))
		}
		return next(c)
	}
}

func (a *App) RegisterRoutes(reportHandler *handler.ReportHandler) {
	a.Echo.GET("/healthz", handler.HealthHandler)
	a.Echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))

	reportGroup := a.Echo.Group("/reports")
	reportGroup.GET("", reportHandler.ListHandler)
	reportGroup.POST("/render", reportHandler.RenderHandler)
	reportGroup.POST("/layout", reportHandler.LayoutHandler)
	reportGroup.GET("/:name", reportHandler.RenderNamedHandler)
}

// Close releases every connected store.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
	if a.DS != nil {
		a.DS.Close()
	}
}

func (a *App) Run() error {
	defer a.Close()
	return a.Echo.Start(":" + config.DefaultEnvConfig.APP_PORT)
}
