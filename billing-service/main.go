package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"surveyhub-backend/billing-service/handlers"
	"surveyhub-backend/billing-service/payments"
	_ "surveyhub-backend/docs"
	"surveyhub-backend/shared/app"
	"surveyhub-backend/shared/clients"
	"surveyhub-backend/shared/config"
	"surveyhub-backend/shared/usage"
)

// @title SurveyHub Billing API
// @version 1.0
// @description Plans, Stripe checkout and subscription status
// @BasePath /api
func main() {
	ctx := context.Background()
	a, err := app.Bootstrap(ctx, "billing", app.Options{Database: true, Cache: true})
	if err != nil {
		log.Fatalf("Failed to bootstrap billing service: %v", err)
	}
	defer a.Close()

	if err := run(a); err != nil {
		a.Log.Error("billing service stopped", zap.Error(err))
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
	authn, _, err := a.Authenticator()
	if err != nil {
		return err
	}

	var gateway payments.Gateway
	if cfg.StripeSecretKey != "" {
		gateway = payments.NewStripeGateway(cfg.StripeSecretKey)
	} else {
		a.Log.Warn("STRIPE_SECRET_KEY is not set, checkout and portal are disabled")
	}

	h := handlers.New(
		a.Stores,
		usage.NewChecker(a.Stores, catalog, a.Cache, a.Log),
		gateway,
		clients.NewNotificationClient(cfg.NotificationServiceURL),
		handlers.Options{
			WebhookSecret: cfg.StripeWebhookSecret,
			FrontendURL:   cfg.FrontendURL,
		},
		a.Log,
	)

	router := a.Router()
	h.Register(router, authn)
	if gin.Mode() == gin.DebugMode {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return a.Run(config.ListenAddr(cfg.BillingServiceURL), router)
}
