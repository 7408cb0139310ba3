package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"surveyhub-backend/api-gateway/routes"
	_ "surveyhub-backend/docs"
	"surveyhub-backend/shared/app"
	"surveyhub-backend/shared/config"
	"surveyhub-backend/shared/httpx"
	"surveyhub-backend/shared/ratelimit"
)

// @title SurveyHub API
// @version 1.0
// @description Multi-tenant survey platform with plan based usage limits
// @host localhost:8000
// @BasePath /api
// @schemes http https

// @tag.name auth
// @tag.description Hosted login and sessions
// @tag.name organizations
// @tag.description Organizations, members and invitations
// @tag.name usage
// @tag.description Plan limits and current usage
// @tag.name surveys
// @tag.description Surveys and public survey links
// @tag.name billing
// @tag.description Plans, checkout and subscription status
// @tag.name content
// @tag.description Blog posts
// @tag.name admin
// @tag.description Super admin dashboard

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name surveyhub_session
func main() {
	ctx := context.Background()
	a, err := app.Bootstrap(ctx, "gateway", app.Options{})
	if err != nil {
		log.Fatalf("Failed to bootstrap api gateway: %v", err)
	}
	defer a.Close()

	if err := run(a); err != nil {
		a.Log.Error("api gateway stopped", zap.Error(err))
		a.Close()
		os.Exit(1)
	}
}

func run(a *app.App) error {
	cfg := a.Config
	services := routes.Services(cfg)

	proxy, err := routes.NewProxy(services, a.Log)
	if err != nil {
		return err
	}
	for name, check := range routes.ServiceChecks(services, nil) {
		a.AddCheck(name, check)
	}

	limiter := ratelimit.New(cfg.RateLimitCleanupPeriod, a.Metrics)
	defer limiter.Stop()
	general := ratelimit.FromConfig(cfg)
	public := general
	public.MaxRequests = cfg.PublicRateLimitRequests

	router := a.Router()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", httpx.RequestIDHeader},
		ExposeHeaders:    []string{httpx.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/api/health", httpx.Health("gateway", a.HealthChecks()))
	routes.Register(router, proxy, routes.Limits{
		General: limiter.Middleware("general", general),
		Public:  limiter.Middleware("public", public),
	})

	if gin.Mode() == gin.DebugMode {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return a.Run(config.ListenAddr(cfg.APIGatewayURL), router)
}
