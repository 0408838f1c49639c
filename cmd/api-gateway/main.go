package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/datatouch/booking-api/api/swagger"
	"github.com/datatouch/booking-api/internal/handler"
	"github.com/datatouch/booking-api/internal/middleware"
	"github.com/datatouch/booking-api/internal/repository"
	"github.com/datatouch/booking-api/internal/service"
	"github.com/datatouch/booking-api/pkg/cache"
	"github.com/datatouch/booking-api/pkg/config"
	"github.com/datatouch/booking-api/pkg/database"
	"github.com/datatouch/booking-api/pkg/logger"
	corsmiddleware "github.com/datatouch/booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/datatouch/booking-api/pkg/middleware/requestid"
)

// @title DataTouch Booking API
// @version 0.1.0
// @description Availability and booking scheduling engine for DataTouch cards
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		redisClient = nil
	}

	appointmentRepo := repository.NewAppointmentRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	cardRepo := repository.NewCardRepository(db)
	serviceRepo := repository.NewServiceRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(cfg.JWT.Secret)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, settingsRepo, cardRepo, cfg.Booking.DefaultTimezone, nil, logr)
	bookingSvc := service.NewBookingService(service.BookingServiceParams{
		Appointments:           appointmentRepo,
		Slots:                  availabilitySvc,
		Services:               serviceRepo,
		Cards:                  cardRepo,
		Redis:                  redisClient,
		Metrics:                metricsSvc,
		Logger:                 logr,
		DefaultDurationMinutes: cfg.Booking.DefaultDurationMinutes,
		DefaultTimezone:        cfg.Booking.DefaultTimezone,
		ServicesCacheTTL:       cfg.Booking.ServicesCacheTTL,
	})

	bookingHandler := handler.NewBookingHandler(bookingSvc, availabilitySvc)
	appointmentHandler := handler.NewAppointmentHandler(bookingSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/api/v1")

	public := api.Group("/public/cards/:cardId")
	{
		public.GET("/services", bookingHandler.Services)
		public.GET("/days", bookingHandler.Days)
		public.GET("/slots", bookingHandler.Slots)
		public.POST("/appointments", bookingHandler.Create)
	}

	crm := api.Group("/cards/:cardId", middleware.JWT(authSvc))
	{
		crm.GET("/appointments", appointmentHandler.List)
		crm.POST("/appointments", appointmentHandler.Create)
		crm.GET("/appointments/export", appointmentHandler.Export)
		crm.GET("/appointments/:id", appointmentHandler.Get)
		crm.POST("/appointments/:id/reschedule", appointmentHandler.Reschedule)
		crm.PATCH("/appointments/:id/status", appointmentHandler.UpdateStatus)
		crm.POST("/appointments/:id/cancel", appointmentHandler.Cancel)
		crm.POST("/appointments/:id/restore", appointmentHandler.Restore)

		crm.GET("/availability/rules", availabilityHandler.GetRules)
		crm.PUT("/availability/rules", availabilityHandler.SaveRules)
		crm.POST("/availability/rules/defaults", availabilityHandler.CreateDefaults)
		crm.GET("/availability/exceptions", availabilityHandler.ListExceptions)
		crm.POST("/availability/exceptions", availabilityHandler.CreateException)
		crm.PUT("/availability/exceptions/:id", availabilityHandler.UpdateException)
		crm.DELETE("/availability/exceptions/:id", availabilityHandler.DeleteException)
		crm.GET("/booking-settings", availabilityHandler.GetSettings)
		crm.PUT("/booking-settings", availabilityHandler.SaveSettings)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.Sweep.Enabled {
		sweep := service.NewSweepService(appointmentRepo, nil, metricsSvc, logr, service.SweepConfig{
			Interval:     cfg.Sweep.Interval,
			ReminderLead: cfg.Sweep.ReminderLead,
			Workers:      cfg.Sweep.Workers,
		})
		sweep.Start(ctx)
		defer sweep.Stop()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
