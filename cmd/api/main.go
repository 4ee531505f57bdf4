package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/presencehq/presence-backend-go/internal/config"
	"github.com/presencehq/presence-backend-go/internal/domain/attendance"
	"github.com/presencehq/presence-backend-go/internal/domain/entity"
	"github.com/presencehq/presence-backend-go/internal/domain/notification"
	appHTTP "github.com/presencehq/presence-backend-go/internal/handler/http"
	"github.com/presencehq/presence-backend-go/internal/pkg/cron"
	"github.com/presencehq/presence-backend-go/internal/pkg/database"
	"github.com/presencehq/presence-backend-go/internal/pkg/sse"
	"github.com/presencehq/presence-backend-go/internal/pkg/token"
	"github.com/presencehq/presence-backend-go/internal/repository/postgresql"
	correctionService "github.com/presencehq/presence-backend-go/internal/service/correction"
	notificationService "github.com/presencehq/presence-backend-go/internal/service/notification"
	sessionService "github.com/presencehq/presence-backend-go/internal/service/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	dsn := cfg.DatabaseURL()
	db, err := database.NewPostgreSQLDB(dsn)
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}

	recordRepo := postgresql.NewRecordRepository(db)

	registry := entity.NewRegistry()
	for _, entityType := range cfg.Attendance.EntityTypes {
		registry.Register(entityType, postgresql.NewEntityRepository(db, entityType))
	}

	settings := attendance.DefaultSettings()
	settings.DuplicateWindow = cfg.Attendance.DuplicateWindow
	settings.MaxSessionDuration = cfg.Attendance.MaxSessionLength
	settings.AutoCheckout = cfg.Attendance.AutoCheckout
	settings.AutoCheckoutAfter = cfg.Attendance.AutoCheckoutAfter
	settingsProvider := attendance.StaticSettings(settings, nil)

	hub := notificationService.NewHub()
	sseHub := sse.NewHub()
	hub.Subscribe(sseHub.Publish)
	hub.Subscribe(func(event notification.Event) {
		if event.Type == notification.EventMilestoneAchieved {
			slog.Info("Milestone achieved",
				"tenant_id", event.TenantID,
				"entity_type", event.EntityType,
				"entity_id", event.EntityID,
				"data", event.Data)
		}
	})

	tokenService := token.NewTokenService(cfg.Auth.Secret, cfg.Auth.TokenExpiration)
	sessionSvc := sessionService.NewSessionService(db, recordRepo, registry, hub, settingsProvider)
	correctionSvc := correctionService.NewCorrectionService(db, recordRepo, registry, settingsProvider)

	scheduler := cron.NewScheduler()
	sweepJobs := cron.NewSweepJobs(sessionSvc, registry, settingsProvider, db)
	sweepJobs.RegisterJobs(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	authHandler := appHTTP.NewAuthHandler(tokenService, cfg.Auth.DeviceKeys)
	attendanceHandler := appHTTP.NewAttendanceHandler(sessionSvc, registry)
	correctionHandler := appHTTP.NewCorrectionHandler(correctionSvc)
	eventsHandler := appHTTP.NewEventsHandler(sseHub)

	router := appHTTP.NewRouter(
		tokenService,
		authHandler,
		attendanceHandler,
		correctionHandler,
		eventsHandler,
	)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	fmt.Printf("Server running at http://localhost%s\n", port)
	if err := http.ListenAndServe(port, router); err != nil {
		fmt.Println("Server error:", err)
	}
}
