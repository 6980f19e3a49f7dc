package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/growtradenfts/platform/internal/config"
	"github.com/growtradenfts/platform/internal/db"
	adminapi "github.com/growtradenfts/platform/internal/http/api/admin"
	"github.com/growtradenfts/platform/internal/http/api/core"
	"github.com/growtradenfts/platform/internal/http/api/front"
	"github.com/growtradenfts/platform/internal/ledger"
	"github.com/growtradenfts/platform/internal/ratelimit"
	internalsettings "github.com/growtradenfts/platform/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultPort             = 8318
	settingsRefreshInterval = 30 * time.Second
	shutdownTimeout         = 10 * time.Second
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	conn, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(conn)
	if errMigrate := db.Migrate(conn.WithContext(ctx)); errMigrate != nil {
		return errMigrate
	}
	log.Info("database migrated")
	return nil
}

// RunServer serves the member and admin APIs until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.AppConfig, port int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	conn, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := internalsettings.Refresh(ctx, conn); errRefresh != nil {
		return errRefresh
	}

	jwtConfig, errJWT := config.LoadJWTConfig(configPath)
	if errJWT != nil {
		log.WithError(errJWT).Error("failed to load jwt config")
		return errJWT
	}
	if jwtConfig.Secret == "" {
		return fmt.Errorf("jwt secret is not configured (set jwt.secret or %s)", config.EnvJWTSecret)
	}
	ledgerConfig, errLedger := config.LoadLedgerConfig(configPath)
	if errLedger != nil {
		log.WithError(errLedger).Warn("falling back to UTC for daily resets")
	}
	serverConfig, errServer := config.LoadServerConfig(configPath)
	if errServer != nil {
		return errServer
	}
	if serverConfig.Port > 0 {
		port = serverConfig.Port
	}
	if port <= 0 {
		port = defaultPort
	}

	initialized, errInit := HasAdminInitialized(ctx, conn)
	if errInit != nil {
		return errInit
	}
	if !initialized {
		log.Warn("no admin account exists yet; run `growtrade create-admin` to add one")
	}

	limiter := ratelimit.NewManager(nil, nil, nil)
	defer func() {
		if errClose := limiter.Close(); errClose != nil {
			log.WithError(errClose).Warn("close rate limiter")
		}
	}()

	l := ledger.New(conn, ledger.WithLocation(ledgerConfig.Location))
	svc := core.NewServices(conn, jwtConfig, l, limiter)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", serverConfig.Host, port),
		Handler:           NewRouter(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go refreshSettings(ctx, conn, settingsRefreshInterval)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	log.WithFields(log.Fields{"addr": srv.Addr, "config": configPath}).Info("starting growtrade server")
	if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
		return errListen
	}
	log.Info("server stopped")
	return nil
}

// NewRouter builds the HTTP handler for svc.
func NewRouter(svc *core.Services) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())
	engine.Use(corsMiddleware())
	adminapi.RegisterAdminRoutes(engine, svc)
	front.RegisterFrontRoutes(engine, svc)
	return engine
}

// refreshSettings reloads DB settings so changes made by other instances
// take effect without a restart.
func refreshSettings(ctx context.Context, conn *gorm.DB, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if errRefresh := internalsettings.Refresh(ctx, conn); errRefresh != nil && ctx.Err() == nil {
				log.WithError(errRefresh).Warn("settings refresh failed")
			}
		}
	}
}

// requestLogger writes one log line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		entry := log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  c.Writer.Status(),
			"latency": time.Since(started).String(),
			"ip":      c.ClientIP(),
		})
		if uid := c.GetUint64(core.ContextUserID); uid != 0 {
			entry = entry.WithField("user_id", uid)
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request")
		case path == "/healthz" || path == "/metrics":
			entry.Debug("request")
		default:
			entry.Info("request")
		}
	}
}

// corsMiddleware enables permissive CORS for browser clients.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Expose-Headers", "X-RateLimit-Limit, X-RateLimit-Remaining, Retry-After")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func openDatabase(cfg config.AppConfig) (*gorm.DB, error) {
	dsn, err := config.LoadDatabaseDSN(config.ResolveConfigPath(cfg.ConfigPath))
	if err != nil {
		return nil, err
	}
	return db.Open(dsn)
}

func closeDatabase(conn *gorm.DB) {
	if sqlDB, errDB := conn.DB(); errDB == nil {
		if errClose := sqlDB.Close(); errClose != nil {
			log.Errorf("sql db close error: %v", errClose)
		}
	}
}
