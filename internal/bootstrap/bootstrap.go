package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	appControllers "github.com/campusops/erp/internal/app/controllers"
	appMigrations "github.com/campusops/erp/internal/app/migrations"
	appRepos "github.com/campusops/erp/internal/app/repositories"
	"github.com/campusops/erp/internal/app/repositories/memory"
	appRoutes "github.com/campusops/erp/internal/app/routes"
	appServices "github.com/campusops/erp/internal/app/services"
	"github.com/campusops/erp/internal/config"
	"github.com/campusops/erp/internal/db"
	appMiddleware "github.com/campusops/erp/internal/middleware"
	pkgAuth "github.com/campusops/erp/internal/pkg/auth"
	"github.com/campusops/erp/internal/pkg/email"
	"github.com/campusops/erp/internal/pkg/filestorage"
	"github.com/campusops/erp/internal/pkg/identity"
	"github.com/campusops/erp/internal/pkg/logger"
	"github.com/campusops/erp/internal/pkg/notifier"
	"github.com/campusops/erp/internal/pkg/payments"
	"github.com/campusops/erp/internal/pkg/validation"
	"github.com/campusops/erp/internal/pkg/websocket"
	"github.com/campusops/erp/internal/seed"
)

const appName = "College ERP"

// Database is the storage backend selected by configuration
type Database struct {
	Repos    *appRepos.Repositories
	Tx       appRepos.Transactor
	postgres *db.PostgresDB
}

// Close releases the connection pool, if any
func (d *Database) Close() {
	if d.postgres != nil {
		d.postgres.Close()
	}
}

// Dependencies holds all the application dependencies
type Dependencies struct {
	Database   *Database
	Dispatcher *notifier.Dispatcher
	Hub        *websocket.Hub
	Reconciler *appServices.SagaReconciler

	AccountService      *appServices.AccountService
	AuthService         *appServices.AuthService
	HostelService       *appServices.HostelService
	ClassService        *appServices.ClassService
	CourseService       *appServices.CourseService
	AttendanceService   *appServices.AttendanceService
	FeeService          *appServices.FeeService
	ExamService         *appServices.ExamService
	NotificationService *appServices.NotificationService

	Handlers       appRoutes.Handlers
	AuthMiddleware *appMiddleware.AuthMiddleware
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"
	host, _ := os.Hostname()

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
		Rollbar: logger.RollbarConfig{
			Token:       cfg.Logging.RollbarToken,
			Environment: cfg.Server.Mode,
			ServerHost:  host,
			CodeVersion: cfg.Logging.Version,
		},
	})

	lgr := logger.Get()
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase opens the configured backend. For PostgreSQL it also applies the
// pending migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*Database, error) {
	if cfg.Database.Driver == "memory" {
		lgr.Warn().Msg("Using the in-memory database, data is lost on restart")
		mem := memory.New()
		return &Database{Repos: mem.Repositories(), Tx: mem}, nil
	}

	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		database.Close()
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := appMigrations.NewMigrator(database, lgr).MigrateFromDirectory(ctx, migrationsDir); err != nil {
		database.Close()
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	return &Database{
		Repos:    appRepos.NewRepositories(database.Pool),
		Tx:       appRepos.NewPostgresTransactor(database),
		postgres: database,
	}, nil
}

// setupIdentity returns the identity provider and, for the local provider, the
// password authenticator
func setupIdentity(ctx context.Context, cfg *config.Config, repos *appRepos.Repositories) (identity.Provider, appServices.PasswordAuthenticator, error) {
	if cfg.Identity.Provider == "firebase" {
		fb, err := identity.NewFirebase(ctx, identity.FirebaseConfig{
			CredentialsFile: cfg.Identity.FirebaseCredentialsFile,
			ProjectID:       cfg.Identity.FirebaseProjectID,
			ResetURL:        cfg.Identity.ResetURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return fb, nil, nil
	}

	jwtService := pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  config.Duration(cfg.JWT.AccessTokenExpiration),
		RefreshTokenExp: config.Duration(cfg.JWT.RefreshTokenExpiration),
		TokenIssuer:     cfg.JWT.Issuer,
	})
	local := identity.NewLocal(repos, jwtService, identity.LocalConfig{
		ResetURL:      cfg.Identity.ResetURL,
		ResetTokenTTL: config.Duration(cfg.Identity.ResetTokenExpiration),
	})
	return local, local, nil
}

func setupEmail(cfg *config.Config, lgr zerolog.Logger) email.EmailService {
	if cfg.Email.Provider == "sendgrid" {
		return email.NewSendGridService(cfg.Email.SendGridAPIKey, appName, cfg.Email.FromName, cfg.Email.FromEmail, lgr)
	}
	return email.NewSMTPService(email.SMTPConfig{
		Host:      cfg.Email.SMTPHost,
		Port:      cfg.Email.SMTPPort,
		Username:  cfg.Email.SMTPUsername,
		Password:  cfg.Email.SMTPPassword,
		FromName:  cfg.Email.FromName,
		FromEmail: cfg.Email.FromEmail,
		UseTLS:    cfg.Email.SMTPPort == 465,
	}, appName, lgr)
}

// BuildDependencies initializes application services, controllers and background workers.
func BuildDependencies(cfg *config.Config, database *Database, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Database: database, Logger: lgr}
	repos := database.Repos

	fileStorage, err := filestorage.NewLocalStorage(cfg.Storage.BasePath, cfg.Storage.BaseURL)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	provider, password, err := setupIdentity(context.Background(), cfg, repos)
	if err != nil {
		lgr.Error().Err(err).Str("provider", cfg.Identity.Provider).Msg("Failed to initialize identity provider")
		return nil, fmt.Errorf("failed to initialize identity provider: %w", err)
	}
	lgr.Info().Str("provider", cfg.Identity.Provider).Msg("Identity provider configured")

	mailer := setupEmail(cfg, lgr)

	var gateway payments.Gateway
	if cfg.Payments.MidtransServerKey != "" {
		gateway = payments.NewMidtransGateway(cfg.Payments.MidtransServerKey, cfg.Payments.MidtransProduction)
	} else {
		lgr.Warn().Msg("Payment gateway not configured, online checkout disabled")
	}

	deps.Dispatcher = notifier.New(notifier.Config{
		Workers:        cfg.Notifier.Workers,
		QueueSize:      cfg.Notifier.QueueSize,
		MaxAttempts:    cfg.Notifier.MaxAttempts,
		InitialBackoff: config.Duration(cfg.Notifier.InitialBackoff),
		MaxBackoff:     config.Duration(cfg.Notifier.MaxBackoff),
		TaskTimeout:    config.Duration(cfg.Notifier.TaskTimeout),
	}, lgr)
	deps.Hub = websocket.NewHub(lgr)

	tasks := deps.Dispatcher
	deps.NotificationService = appServices.NewNotificationService(repos, deps.Hub, lgr)
	counters := appServices.NewCounterService(database.Tx)
	deps.AccountService = appServices.NewAccountService(database.Tx, repos, counters, provider, deps.NotificationService, mailer, tasks, lgr).
		WithFeeDefaults(appServices.FeeDefaults{
			TotalFees:      cfg.Fees.DefaultTotal,
			DueAfterMonths: cfg.Fees.DueAfterMonths,
		})
	deps.AuthService = appServices.NewAuthService(repos, provider, password, mailer, tasks, lgr)
	deps.HostelService = appServices.NewHostelService(database.Tx, repos, lgr)
	deps.ClassService = appServices.NewClassService(database.Tx, repos, tasks, lgr)
	deps.CourseService = appServices.NewCourseService(repos, fileStorage, lgr)
	deps.AttendanceService = appServices.NewAttendanceService(repos, cfg.Attendance.ScanLimit, lgr)
	deps.FeeService = appServices.NewFeeService(database.Tx, repos, gateway, deps.NotificationService, tasks, lgr)
	deps.ExamService = appServices.NewExamService(repos, deps.AttendanceService, deps.NotificationService, tasks, lgr)

	deps.Reconciler = appServices.NewSagaReconciler(repos, provider, appServices.ReconcilerConfig{
		Interval:  config.Duration(cfg.Saga.ReconcileInterval),
		Grace:     config.Duration(cfg.Saga.GracePeriod),
		BatchSize: cfg.Saga.BatchSize,
	}, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(provider, lgr)
	deps.Handlers = appRoutes.Handlers{
		Auth:          appControllers.NewAuthController(deps.AuthService, deps.AccountService, lgr),
		Accounts:      appControllers.NewAccountController(deps.AccountService),
		Hostels:       appControllers.NewHostelController(deps.HostelService),
		Classes:       appControllers.NewClassController(deps.ClassService),
		Courses:       appControllers.NewCourseController(deps.CourseService),
		Attendance:    appControllers.NewAttendanceController(deps.AttendanceService),
		Fees:          appControllers.NewFeeController(deps.FeeService, lgr),
		Exams:         appControllers.NewExamController(deps.ExamService),
		Notifications: appControllers.NewNotificationController(deps.NotificationService),
		WebSocket:     websocket.NewHandler(deps.Hub, lgr),
	}

	return deps, nil
}

// SeedDefaultData creates the first administrator. Failures are logged and do not stop
// the startup.
func SeedDefaultData(ctx context.Context, cfg *config.Config, deps *Dependencies) {
	err := seed.CreateDefaultAdmin(ctx, deps.Database.Repos, deps.AccountService, seed.AdminConfig{
		Name:        cfg.Seed.AdminName,
		Email:       cfg.Seed.AdminEmail,
		DateOfBirth: cfg.Seed.AdminDOB,
		Department:  cfg.Seed.AdminDept,
		Position:    cfg.Seed.AdminPosition,
	}, deps.Logger)
	if err != nil {
		deps.Logger.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	validation.RegisterWithGin()

	router := gin.New()
	router.Use(appMiddleware.RequestLogger(lgr), appMiddleware.Recovery(lgr))
	router.MaxMultipartMemory = 32 << 20

	if appRoutes.SetupSwagger(router, filepath.Join("docs", "swagger.json")) {
		lgr.Info().Msg("Swagger UI available at /swagger/index.html")
	}

	appRoutes.SetupRouter(router, deps.Handlers, deps.AuthMiddleware)

	router.Static("/uploads", cfg.Storage.BasePath)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
