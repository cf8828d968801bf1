package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "tempspec/api/swagger" // swagger docs
	"tempspec/internal/app"
	"tempspec/internal/config"
	"tempspec/internal/handler"
	"tempspec/internal/middleware"
	"tempspec/internal/scheduler"
	"tempspec/internal/websocket"
	"tempspec/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
)

//go:generate swag init -g cmd/api/main.go -o api/swagger -d ../../

// @title           Temporary Specification API
// @version         1.0
// @description     Lifecycle, document generation and history of temporary specifications.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		// zap is not configured yet
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Env, cfg.Log.Level)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()
	cfg.LogSummary(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer a.Close()
	log.Info("Connected to database successfully.", zap.String("driver", cfg.Database.Driver))

	// Set up WebSocket Hub
	go a.Hub.Run()
	defer a.Hub.Stop()

	secret := []byte(cfg.Auth.JWTSecret)
	maxUpload := cfg.Server.MaxUploadMB << 20

	// Initialize Handlers
	userHandler := handler.NewUserHandler(a.Users, cfg.Auth.SecureCookie, log)
	specHandler := handler.NewSpecHandler(a.Specs, a.History, maxUpload, log)
	imageHandler := handler.NewImageHandler(a.Images, maxUpload, log)
	statisticsHandler := handler.NewStatisticsHandler(a.Stats, log)
	activityHandler := handler.NewActivityHandler(a.Activity, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.MaxMultipartMemory = maxUpload

	requests := middleware.NewRequestMiddleware(log)
	router.Use(requests.RecoverPanic(), requests.ProcessRequest())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		if err := a.HealthCheck(c.Request.Context()); err != nil {
			log.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(a.Hub, c, secret)
	})

	// Inline images referenced from narratives
	router.Static("/static", filepath.Join(cfg.Server.StaticRoot, "static"))

	// API Routing
	auth := middleware.Authenticate(secret)
	throttle := middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware()
	api := router.Group("/api")
	userHandler.RegisterRoutes(api, auth, throttle)
	specHandler.RegisterRoutes(api, auth, throttle)
	imageHandler.RegisterRoutes(api, auth, throttle)
	statisticsHandler.RegisterRoutes(api, auth)
	activityHandler.RegisterRoutes(api, auth)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(log)
		job := scheduler.NewExpireJob(a.Specs, 0, log)
		if err := sched.Add(cfg.Scheduler.ExpireSpec, job); err != nil {
			log.Fatal("Failed to schedule expiry job", zap.Error(err))
		}
		sched.Start()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
}
