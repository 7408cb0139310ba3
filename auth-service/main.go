package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"surveyhub-backend/auth-service/handlers"
	"surveyhub-backend/auth-service/identity"
	_ "surveyhub-backend/docs"
	"surveyhub-backend/shared/app"
	"surveyhub-backend/shared/config"
	"surveyhub-backend/shared/ratelimit"
)

// @title SurveyHub Auth API
// @version 1.0
// @description Hosted login, session cookies and the current user
// @BasePath /api
// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name surveyhub_session
func main() {
	ctx := context.Background()
	a, err := app.Bootstrap(ctx, "auth", app.Options{Database: true, Cache: true})
	if err != nil {
		log.Fatalf("Failed to bootstrap auth service: %v", err)
	}
	defer a.Close()

	if err := run(a); err != nil {
		a.Log.Error("auth service stopped", zap.Error(err))
		a.Close()
		os.Exit(1)
	}
}

func run(a *app.App) error {
	cfg := a.Config
	if cfg.WorkOSAPIKey == "" || cfg.WorkOSClientID == "" {
		return errors.New("WORKOS_API_KEY and WORKOS_CLIENT_ID are required")
	}

	authn, sessions, err := a.Authenticator()
	if err != nil {
		return err
	}

	limiter := ratelimit.New(cfg.RateLimitCleanupPeriod, a.Metrics)
	defer limiter.Stop()
	loginLimit := ratelimit.FromConfig(cfg)
	loginLimit.MaxRequests = cfg.PublicRateLimitRequests

	h := handlers.New(
		a.Stores.Users,
		identity.NewWorkOS(cfg.WorkOSAPIKey, cfg.WorkOSClientID, cfg.WorkOSRedirectURI),
		sessions,
		a.Cache,
		handlers.Options{
			FrontendURL:     cfg.FrontendURL,
			CookieName:      cfg.SessionCookieName,
			SecureCookies:   cfg.IsProduction(),
			SuperAdminEmail: cfg.SuperAdminEmail,
		},
		a.Log,
	)

	router := a.Router()
	h.Register(router, authn, limiter.Middleware("login", loginLimit))
	if gin.Mode() == gin.DebugMode {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	a.Log.Info("login provider configured", zap.String("redirect_uri", cfg.WorkOSRedirectURI))
	return a.Run(config.ListenAddr(cfg.AuthServiceURL), router)
}
