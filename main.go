package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"jansarthi-be/config"
	"jansarthi-be/controllers"
	"jansarthi-be/observability"
	"jansarthi-be/routes"
	"jansarthi-be/services"
	"jansarthi-be/store"
	"jansarthi-be/store/memstore"
	"jansarthi-be/store/mongostore"
	"jansarthi-be/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := observability.NewLogger(settings.Debug)
	slog.SetDefault(logger)
	if !settings.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	controllers.RegisterValidators()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, settings)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer func() { _ = st.Close(context.Background()) }()

	rdb, err := config.ConnectRedis(ctx, settings.RedisAddress, settings.RedisPassword)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	objects, err := openStorage(ctx, settings)
	if err != nil {
		log.Fatalf("Failed to set up photo storage: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	sms := smsSender(settings, logger)
	h := &controllers.Controller{
		Store:  st,
		Tokens: utils.NewTokenIssuer(settings.JWTSecret, settings.AccessTokenTTL, settings.RefreshTokenTTL),
		OTP: &services.OTPService{
			Store:       st,
			SMS:         sms,
			Cooldown:    &services.Cooldown{Client: rdb, Prefix: "otp", Window: settings.OTPCooldown},
			Metrics:     metrics,
			Expiry:      settings.OTPExpiry,
			Length:      settings.OTPLength,
			MaxAttempts: settings.OTPMaxAttempts,
		},
		SMS: sms,
		Photos: &services.PhotoService{
			Storage:      objects,
			IDs:          st,
			MaxSize:      settings.MaxFileSize,
			AllowedTypes: settings.AllowedImageTypes,
			URLExpiry:    settings.PhotoURLExpiry,
		},
		Clusters: &services.ClusterService{Store: st, Metrics: metrics, MaxRadius: settings.AutoAssignRadiusM},
		Geocoder: services.NewNominatim(settings.NominatimBaseURL),
		Metrics:  metrics,
		Settings: settings,
	}

	r := gin.New()
	opts := routes.Options{Logger: logger, Redis: rdb, Gatherer: reg}
	if settings.StorageDriver == "local" {
		opts.UploadsDir = settings.LocalStorageDir
	}
	routes.Setup(r, h, opts)

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Starting server", "addr", srv.Addr, "store", settings.StoreDriver, "storage", settings.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}

func openStore(ctx context.Context, s config.Settings) (store.Store, error) {
	if s.StoreDriver == "memory" {
		slog.Warn("Using in-memory store; data is lost on restart")
		return memstore.New(), nil
	}
	db, err := config.ConnectDB(ctx, s.MongoURI, s.MongoDatabase)
	if err != nil {
		return nil, err
	}
	ms := mongostore.New(db)
	if err := ms.EnsureIndexes(ctx); err != nil {
		_ = ms.Close(context.Background())
		return nil, err
	}
	return ms, nil
}

func openStorage(ctx context.Context, s config.Settings) (services.ObjectStorage, error) {
	if s.StorageDriver == "local" {
		return &services.LocalStorage{
			Dir:     s.LocalStorageDir,
			BaseURL: strings.TrimRight(s.PublicBaseURL, "/") + "/uploads",
		}, nil
	}
	return services.NewMinioStorage(ctx, s.MinioEndpoint, s.MinioAccessKey, s.MinioSecretKey, s.MinioBucket, s.MinioSecure)
}

func smsSender(s config.Settings, logger *slog.Logger) services.SMSSender {
	if s.SMSDriver == "log" {
		return services.LogSender{Logger: logger}
	}
	return services.NewTwilioSender(s.TwilioAccountSID, s.TwilioAuthToken, s.TwilioFromNumber)
}
