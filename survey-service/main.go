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
	"surveyhub-backend/shared/app"
	"surveyhub-backend/shared/config"
	"surveyhub-backend/shared/ids"
	"surveyhub-backend/shared/usage"
	"surveyhub-backend/shared/utils/permission"
	"surveyhub-backend/survey-service/handlers"
)

// @title SurveyHub Survey API
// @version 1.0
// @description Survey authoring and public survey retrieval
// @BasePath /api
func main() {
	ctx := context.Background()
	a, err := app.Bootstrap(ctx, "survey", app.Options{Database: true, Cache: true})
	if err != nil {
		log.Fatalf("Failed to bootstrap survey service: %v", err)
	}
	defer a.Close()

	if err := run(a); err != nil {
		a.Log.Error("survey service stopped", zap.Error(err))
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
	gen, err := ids.NewGenerator(ids.NodeFromHostname())
	if err != nil {
		return err
	}
	authn, _, err := a.Authenticator()
	if err != nil {
		return err
	}

	h := handlers.New(
		a.Stores,
		usage.NewChecker(a.Stores, catalog, a.Cache, a.Log),
		permission.NewChecker(a.Stores.Members, a.Stores.Roles, a.Cache),
		gen,
		a.Log,
	)

	router := a.Router()
	h.Register(router, authn)
	if gin.Mode() == gin.DebugMode {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	return a.Run(config.ListenAddr(cfg.SurveyServiceURL), router)
}
