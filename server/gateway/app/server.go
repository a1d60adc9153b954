package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"media_gateway/server/common/infra/mq"
	"media_gateway/server/common/infra/object"
	commonlog "media_gateway/server/common/log"
	"media_gateway/server/common/metrics"
	"media_gateway/server/common/middleware"
	"media_gateway/server/common/tracing"
	gatewayapi "media_gateway/server/gateway/api"
	"media_gateway/server/gateway/service"
)

type bucketStore interface {
	service.ObjectStore
	EnsureBucket(ctx context.Context) error
}

type Server struct {
	HTTPServer *http.Server
	Metrics    *metrics.Metrics

	publisher       *mq.AMQPPublisher
	shutdownTracing func(context.Context) error
}

func NewServer(cfg Config) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, tracing.Options{
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
		ServiceName: "media_gateway",
	})
	if err != nil {
		return nil, fmt.Errorf("initialize tracing: %w", err)
	}

	m := metrics.New()
	store, err := newStore(cfg, m)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", cfg.MinioBucket, err)
	}

	opts := service.Options{Thumbnails: cfg.ThumbnailsEnabled}
	var publisher *mq.AMQPPublisher
	if cfg.UseMQ {
		conn, err := mq.NewConnection(cfg.LavinMQURL)
		if err != nil {
			return nil, fmt.Errorf("connect lavinmq: %w", err)
		}
		publisher, err = mq.NewAMQPPublisher(conn)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("initialize publisher: %w", err)
		}
		opts.Publisher = publisher
	}

	fileSvc := service.NewFileService(store, opts)
	h := gatewayapi.NewHandler(fileSvc, cfg.TenantHeader, cfg.maxUploadBytes())

	r := newEngine(cfg, m)
	h.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		HTTPServer:      httpServer,
		Metrics:         m,
		publisher:       publisher,
		shutdownTracing: shutdownTracing,
	}, nil
}

func newStore(cfg Config, m *metrics.Metrics) (bucketStore, error) {
	switch strings.ToLower(cfg.StorageBackend) {
	case BackendMemory:
		commonlog.Warnf("using in-memory object store; uploads do not survive restarts")
		return object.NewMemoryStore(cfg.MinioBucket), nil
	case BackendMinIO, "":
		store, err := object.NewMinIOStore(object.Config{
			Endpoint:       cfg.MinioEndpoint,
			PublicEndpoint: cfg.MinioPublicEndpoint,
			AccessKey:      cfg.MinioAccessKey,
			SecretKey:      cfg.MinioSecretKey,
			Bucket:         cfg.MinioBucket,
			Region:         cfg.MinioRegion,
			UseSSL:         cfg.MinioUseSSL,
		}, m)
		if err != nil {
			return nil, fmt.Errorf("initialize minio: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func newEngine(cfg Config, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = 32 << 20
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(), m.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.GET("/metrics", gin.WrapH(m.Handler()))
	return r
}

func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.HTTPServer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.shutdownTracing != nil {
		if err := s.shutdownTracing(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
