package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	appAuth "github.com/communitylink/communitylink/internal/app/auth"
	appControllers "github.com/communitylink/communitylink/internal/app/controllers"
	appMigrations "github.com/communitylink/communitylink/internal/app/migrations"
	appRepos "github.com/communitylink/communitylink/internal/app/repositories"
	"github.com/communitylink/communitylink/internal/app/repositories/gormstore"
	appRoutes "github.com/communitylink/communitylink/internal/app/routes"
	appServices "github.com/communitylink/communitylink/internal/app/services"
	"github.com/communitylink/communitylink/internal/app/web"
	"github.com/communitylink/communitylink/internal/config"
	"github.com/communitylink/communitylink/internal/db"
	appMiddleware "github.com/communitylink/communitylink/internal/middleware"
	pkgAuth "github.com/communitylink/communitylink/internal/pkg/auth"
	"github.com/communitylink/communitylink/internal/pkg/cache"
	"github.com/communitylink/communitylink/internal/pkg/email"
	"github.com/communitylink/communitylink/internal/pkg/logger"
	"github.com/communitylink/communitylink/internal/pkg/metrics"
	"github.com/communitylink/communitylink/internal/pkg/validation"
	"github.com/communitylink/communitylink/internal/pkg/websocket"
)

// templatesDir is read from disk when web.templates_reload is on
const templatesDir = "internal/app/web/templates"

// Options locates the configuration sources
type Options struct {
	ConfigPath string
	EnvFile    string
}

// Storage is the opened database behind the repositories
type Storage struct {
	Store appRepos.Store
	close func()
}

// Close releases the database connections
func (s *Storage) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// Dependencies holds all the application dependencies
type Dependencies struct {
	Store        appRepos.Store
	JWTService   *pkgAuth.JWTService
	AuthzService *appAuth.AuthorizationService
	Metrics      *metrics.Metrics
	Hub          *websocket.Hub
	Counter      cache.UnreadCounter

	AuthService         *appServices.AuthService
	ActionService       appServices.ActionService
	ApplicationService  appServices.ApplicationService
	NotificationService appServices.NotificationService
	HistoryService      appServices.HistoryService
	ProfileService      appServices.ProfileService

	AuthMiddleware *appMiddleware.AuthMiddleware
	Handlers       appRoutes.Handlers
	Web            *web.Handler

	Logger zerolog.Logger
}

// Close releases what BuildDependencies opened
func (d *Dependencies) Close() {
	if c, ok := d.Counter.(*cache.RedisCounter); ok {
		if err := c.Close(); err != nil {
			d.Logger.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(opts Options) (*config.Config, zerolog.Logger, error) {
	if err := config.LoadEnvFile(opts.EnvFile); err != nil {
		logger.Error().Err(err).Msg("Failed to load env file")
		return nil, zerolog.Logger{}, err
	}
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		logger.Error().Err(err).Str("path", opts.ConfigPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	lgr := logger.Configure(logger.FromSettings(cfg.Logging.Level, cfg.Logging.Format))
	lgr.Info().
		Str("logLevel", cfg.Logging.Level).
		Str("logFormat", cfg.Logging.Format).
		Str("dbDriver", cfg.Database.Driver).
		Msg("Logger configured")
	return cfg, lgr, nil
}

// OpenStorage connects to the configured database and, when migrate is set, brings the
// schema up to date
func OpenStorage(ctx context.Context, cfg *config.Config, lgr zerolog.Logger, migrate bool) (*Storage, error) {
	if cfg.IsSQLite() {
		return openSQLite(cfg, lgr, migrate)
	}
	return openPostgres(ctx, cfg, lgr, migrate)
}

func openSQLite(cfg *config.Config, lgr zerolog.Logger, migrate bool) (*Storage, error) {
	lgr.Info().Str("path", cfg.Database.SQLitePath).Msg("Opening SQLite database...")
	gdb, err := db.NewSQLiteDB(cfg, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to open SQLite database")
		return nil, err
	}
	if migrate {
		if err := gormstore.Migrate(gdb); err != nil {
			_ = db.CloseSQLite(gdb)
			lgr.Error().Err(err).Msg("SQLite schema migration error")
			return nil, fmt.Errorf("sqlite migrations failed: %w", err)
		}
		lgr.Info().Msg("SQLite schema is up to date.")
	}
	return &Storage{
		Store: gormstore.New(gdb),
		close: func() {
			if err := db.CloseSQLite(gdb); err != nil {
				lgr.Warn().Err(err).Msg("Failed to close SQLite database")
			}
		},
	}, nil
}

func openPostgres(ctx context.Context, cfg *config.Config, lgr zerolog.Logger, migrate bool) (*Storage, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	if migrate {
		dir := cfg.Database.MigrationsDir
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			database.Close()
			lgr.Error().Str("path", dir).Msg("Migrations directory not found")
			return nil, fmt.Errorf("migrations directory not found at %s: %w", dir, err)
		}

		lgr.Info().Str("path", dir).Msg("Running database migrations...")
		applied, err := appMigrations.NewMigrator(database.Pool, lgr).MigrateFromDirectory(ctx, dir)
		if err != nil {
			database.Close()
			lgr.Error().Err(err).Msg("Database migration error")
			return nil, fmt.Errorf("database migrations failed: %w", err)
		}
		lgr.Info().Int("applied", applied).Msg("Database migrations successfully applied.")
	}

	return &Storage{Store: appRepos.NewPostgresStore(database), close: database.Close}, nil
}

// unreadCounter connects to redis when it is enabled; the application works without it
func unreadCounter(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) cache.UnreadCounter {
	if !cfg.Redis.Enabled {
		return cache.NoopCounter{}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	counter, err := cache.NewRedisCounter(ctx, cache.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      config.Duration(cfg.Redis.TTL, 5*time.Minute),
	}, lgr)
	if err != nil {
		lgr.Warn().Err(err).Str("addr", cfg.GetRedisAddr()).Msg("Redis unavailable, unread counters are not cached")
		return cache.NoopCounter{}
	}
	lgr.Info().Str("addr", cfg.GetRedisAddr()).Msg("Unread counters cached in redis")
	return counter
}

func mailer(cfg *config.Config, lgr zerolog.Logger) email.Mailer {
	if !cfg.Notifications.EmailEnabled {
		return nil
	}
	smtp := email.SMTPConfig{BaseURL: cfg.Server.BaseURL}
	if cfg.SMTP.Enabled {
		smtp.Host = cfg.SMTP.Host
		smtp.Port = cfg.SMTP.Port
		smtp.Username = cfg.SMTP.Username
		smtp.Password = cfg.SMTP.Password
		smtp.FromName = cfg.SMTP.FromName
		smtp.FromEmail = cfg.SMTP.FromEmail
	}
	return email.NewMailer(smtp, lgr.With().Str("component", "mailer").Logger())
}

// BuildDependencies initializes application services, middleware and controllers.
func BuildDependencies(ctx context.Context, cfg *config.Config, store appRepos.Store, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Store: store, Logger: lgr}

	deps.Metrics = metrics.New()
	deps.Hub = websocket.NewHub(lgr.With().Str("component", "websocket").Logger())
	deps.Hub.ObserveConnections(deps.Metrics.WebsocketConnected)
	deps.Counter = unreadCounter(ctx, cfg, lgr)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  config.Duration(cfg.JWT.AccessTokenExpiration, time.Hour),
		RefreshTokenExp: config.Duration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
	})
	deps.AuthzService = appAuth.NewAuthorizationService(store.Users(), lgr)

	dispatcher := appServices.NewLiveDispatcher(store, deps.Hub, deps.Counter, mailer(cfg, lgr), deps.Metrics, lgr)
	deps.AuthService = appServices.NewAuthService(store, deps.JWTService, lgr)
	deps.ActionService = appServices.NewActionService(store, dispatcher, lgr)
	deps.ApplicationService = appServices.NewApplicationService(store, dispatcher, deps.Metrics, lgr)
	deps.NotificationService = appServices.NewNotificationService(store, deps.Counter, dispatcher, lgr)
	deps.HistoryService = appServices.NewHistoryService(store, lgr)
	deps.ProfileService = appServices.NewProfileService(store, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, deps.AuthzService, cfg.Web.SessionCookie, lgr)

	deps.Handlers = appRoutes.Handlers{
		Auth:         appControllers.NewAuthController(deps.AuthService, lgr),
		User:         appControllers.NewUserController(deps.ProfileService, deps.HistoryService, deps.ActionService, lgr),
		Action:       appControllers.NewActionController(deps.ActionService, deps.ApplicationService, lgr),
		Application:  appControllers.NewApplicationController(deps.ApplicationService, lgr),
		Notification: appControllers.NewNotificationController(deps.NotificationService, cfg.Notifications.PageSize, lgr),
		Health:       appControllers.NewHealthController(store, lgr),
		WebSocket:    websocket.NewHandler(deps.Hub, cfg.WebsocketOrigins(), lgr),
	}

	deps.Web = web.NewHandler(
		deps.ActionService,
		deps.ApplicationService,
		deps.NotificationService,
		deps.HistoryService,
		deps.ProfileService,
		deps.AuthService,
		web.Options{
			SessionCookie:        cfg.Web.SessionCookie,
			CookieSecure:         cfg.Web.CookieSecure,
			NotificationPageSize: cfg.Notifications.PageSize,
		},
		lgr.With().Str("component", "web").Logger(),
	)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}
	if err := validation.RegisterWithGin(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(lgr), deps.Metrics.Middleware())

	// Debug mode re-parses globbed templates on every render
	if cfg.Web.TemplatesReload && !cfg.IsProduction() {
		router.SetFuncMap(web.FuncMap())
		router.LoadHTMLGlob(templatesDir + "/*.html")
		lgr.Info().Str("path", templatesDir).Msg("Page templates are reloaded from disk")
	} else {
		tmpl, err := web.Templates()
		if err != nil {
			return nil, err
		}
		router.SetHTMLTemplate(tmpl)
	}

	appRoutes.SetupSwagger(router, cfg.Server.BaseURL)
	appRoutes.SetupRouter(router, deps.Handlers, deps.AuthMiddleware)

	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	deps.Web.Register(router, deps.AuthMiddleware)

	return router, nil
}
