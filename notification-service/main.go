package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "surveyhub-backend/docs"
	notificationConfig "surveyhub-backend/notification-service/config"
	"surveyhub-backend/notification-service/handlers"
	"surveyhub-backend/notification-service/services"
	"surveyhub-backend/shared/app"
	"surveyhub-backend/shared/config"
)

// @title SurveyHub Notification API
// @version 1.0
// @description Transactional email and real-time dashboard notifications
// @BasePath /api
func main() {
	ctx := context.Background()
	a, err := app.Bootstrap(ctx, "notification", app.Options{Database: true, Cache: true})
	if err != nil {
		log.Fatalf("Failed to bootstrap notification service: %v", err)
	}
	defer a.Close()

	if err := run(a); err != nil {
		a.Log.Error("notification service stopped", zap.Error(err))
		a.Close()
		os.Exit(1)
	}
}

func run(a *app.App) error {
	cfg, err := notificationConfig.LoadNotificationConfig(a.Config)
	if err != nil {
		return err
	}

	templates, err := services.NewTemplateService(cfg.MailTemplates)
	if err != nil {
		return err
	}

	var mailer services.Mailer = services.NewLogMailer(a.Log)
	if cfg.Email.Enabled {
		mailer = services.NewSMTPMailer(services.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			From:        cfg.EmailFrom,
			FromName:    cfg.EmailFromName,
			ImplicitTLS: cfg.SMTPUseTLS,
			Timeout:     cfg.Email.SendTimeout,
		})
	} else {
		a.Log.Warn("SMTP is not configured, emails are logged instead of sent")
	}

	authn, _, err := a.Authenticator()
	if err != nil {
		return err
	}

	h := handlers.New(
		services.NewEmailService(mailer, templates, cfg.Email, a.Log),
		services.NewWebSocketManager([]string{cfg.FrontendURL}, a.Log),
		a.Log,
	)

	router := a.Router()
	h.Register(router, authn)
	if gin.Mode() == gin.DebugMode {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return a.Run(config.ListenAddr(cfg.NotificationServiceURL), router)
}
