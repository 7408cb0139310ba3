package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"surveyhub-backend/core-service/handlers"
	_ "surveyhub-backend/docs"
	"surveyhub-backend/shared/app"
	"surveyhub-backend/shared/clients"
	"surveyhub-backend/shared/config"
	"surveyhub-backend/shared/usage"
	"surveyhub-backend/shared/utils/permission"
)

// @title SurveyHub Core API
// @version 1.0
// @description Organizations, members, invitations, usage and admin endpoints
// @BasePath /api
// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name surveyhub_session
func main() {
	ctx := context.Background()
	a, err := app.Bootstrap(ctx, "core", app.Options{Database: true, Cache: true})
	if err != nil {
		log.Fatalf("Failed to bootstrap core service: %v", err)
	}
	defer a.Close()

	if err := run(a); err != nil {
		a.Log.Error("core service stopped", zap.Error(err))
		a.Close()
		os.Exit(1)
	}
}

func run(a *app.App) error {
	cfg := a.Config

	catalog, err := usage.LoadCatalog(cfg.PlansFile)
	if err != nil {
		return err
	}
	authn, sessions, err := a.Authenticator()
	if err != nil {
		return err
	}

	h := handlers.New(
		a.Stores,
		usage.NewChecker(a.Stores, catalog, a.Cache, a.Log),
		permission.NewChecker(a.Stores.Members, a.Stores.Roles, a.Cache),
		clients.NewNotificationClient(cfg.NotificationServiceURL),
		sessions,
		a.Cache,
		handlers.Options{
			FrontendURL:      cfg.FrontendURL,
			InvitationTTL:    cfg.InvitationTTL,
			ImpersonationTTL: cfg.ImpersonationTTL,
			CookieName:       cfg.SessionCookieName,
			SecureCookies:    cfg.IsProduction(),
		},
		a.Log,
	)

	router := a.Router()
	h.Register(router, authn)
	if gin.Mode() == gin.DebugMode {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return a.Run(config.ListenAddr(cfg.CoreServiceURL), router)
}
