package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"surveyhub-backend/content-service/handlers"
	_ "surveyhub-backend/docs"
	"surveyhub-backend/shared/app"
	"surveyhub-backend/shared/config"
	"surveyhub-backend/shared/storage"
)

// @title SurveyHub Content API
// @version 1.0
// @description Marketing blog and media uploads
// @BasePath /api
func main() {
	ctx := context.Background()
	a, err := app.Bootstrap(ctx, "content", app.Options{Database: true, Cache: true})
	if err != nil {
		log.Fatalf("Failed to bootstrap content service: %v", err)
	}
	defer a.Close()

	if err := run(ctx, a); err != nil {
		a.Log.Error("content service stopped", zap.Error(err))
		a.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App) error {
	cfg := a.Config

	authn, _, err := a.Authenticator()
	if err != nil {
		return err
	}

	var media storage.MediaStore
	minio, err := storage.NewMinIOStorage(ctx, cfg, a.Log)
	if err != nil {
		a.Log.Warn("object storage unavailable, cover uploads disabled", zap.Error(err))
	} else {
		media = minio
		a.AddCheck("storage", minio.Ping)
	}

	h := handlers.New(a.Stores.BlogPosts, media, cfg.MaxUploadBytes, a.Log)

	router := a.Router()
	router.MaxMultipartMemory = cfg.MaxUploadBytes
	h.Register(router, authn)
	if gin.Mode() == gin.DebugMode {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return a.Run(config.ListenAddr(cfg.ContentServiceURL), router)
}
