package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"

	"github.com/Thanaruk598-0/CPmail/config"
	"github.com/Thanaruk598-0/CPmail/internal/eventbus"
	"github.com/Thanaruk598-0/CPmail/internal/handler"
	"github.com/Thanaruk598-0/CPmail/internal/middleware"
	"github.com/Thanaruk598-0/CPmail/internal/pkg/database"
	"github.com/Thanaruk598-0/CPmail/internal/repository"
	"github.com/Thanaruk598-0/CPmail/internal/router"
	"github.com/Thanaruk598-0/CPmail/internal/service"
	"github.com/Thanaruk598-0/CPmail/internal/service/reviewer"
	"github.com/Thanaruk598-0/CPmail/internal/subscriber"
)

func main() {
	// 初始化 klog
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	klog.V(6).Info("服务启动中...")

	cfg := config.GetConfig()

	if cfg.Database.Type == "sqlite" && cfg.Database.DSN != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}

	// 初始化数据库
	db, err := database.InitDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if cfg.Seed.DefaultTemplates {
		if err := service.InitDefaultTemplates(db); err != nil {
			log.Fatalf("Failed to seed default templates: %v", err)
		}
	}

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	formRepo := repository.NewFormRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// 初始化 Service
	identityService := service.NewIdentityService(userRepo, courseRepo)
	templateService := service.NewTemplateService(templateRepo)
	notificationService := service.NewNotificationService(notificationRepo, cfg.Notification.PageSize)
	submissionService := service.NewSubmissionService(templateService, courseRepo, formRepo, reviewer.NewRouter(courseRepo, userRepo, nil))
	historyService := service.NewHistoryService(formRepo, templateRepo, userRepo, courseRepo, cfg.History.PageSize)
	reportService := service.NewReportService(formRepo, templateRepo, courseRepo)

	// 表单状态变化通过事件总线通知相关用户
	bus := eventbus.NewFormEventBus()
	subscriber.NewFormEventSubscriber(notificationService, cfg.Notification.LinkPrefix).Register(bus)
	formService := service.NewFormService(formRepo, courseRepo, userRepo, bus)

	authMiddleware := middleware.Auth(identityService, middleware.AuthOptions{
		Secret:        cfg.Auth.JWTSecret,
		Location:      cfg.Location(),
		DefaultLocale: cfg.Server.DefaultLocale,
	})

	// 设置路由
	r := router.Setup(cfg, authMiddleware,
		handler.NewTemplateHandler(templateService),
		handler.NewSubmissionHandler(submissionService, cfg.Portal.SubmitterDashboard),
		handler.NewFormHandler(formService, cfg.Portal.FormDetail),
		handler.NewHistoryHandler(historyService),
		handler.NewNotificationHandler(notificationService),
		handler.NewReportHandler(reportService),
		handler.NewAdminTemplateHandler(templateService),
	)

	log.Printf("Server starting on port %s...", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
