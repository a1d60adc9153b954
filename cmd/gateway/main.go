package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	cmnenv "media_gateway/server/common/env"
	commonlog "media_gateway/server/common/log"
	gatewayapp "media_gateway/server/gateway/app"
)

func main() {
	if err := cmnenv.Load(); err != nil {
		log.Fatalf("load configuration: %v", err)
	}
	commonlog.Configure(commonlog.Options{
		FilePath:     cmnenv.String("LOG_FILE_PATH", "./logs/media_gateway.log"),
		MaxSizeBytes: int64(cmnenv.Int("LOG_MAX_SIZE_MB", 20)) * 1024 * 1024,
		Format:       cmnenv.String("LOG_FORMAT", "text"),
		Level:        cmnenv.String("LOG_LEVEL", "info"),
	})
	defer commonlog.Close()

	if cmnenv.String("APP_ENV", "dev") != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg := gatewayapp.LoadConfig()
	server, err := gatewayapp.NewServer(cfg)
	if err != nil {
		log.Fatalf("initialize gateway server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		commonlog.Infof("start gateway http server on :%s (bucket %s, backend %s)", cfg.Port, cfg.MinioBucket, cfg.StorageBackend)
		if err := server.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("run gateway http server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		commonlog.Errorf("shutdown gateway server gracefully: %v", err)
	}
}
