package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/TerribleTurtle/squad-sync/internal/controller"
	clipRedis "github.com/TerribleTurtle/squad-sync/internal/repository/clip/redis"
	connInmemory "github.com/TerribleTurtle/squad-sync/internal/repository/connection/inmemory"
	connRedis "github.com/TerribleTurtle/squad-sync/internal/repository/connection/redis"
	roomInmemory "github.com/TerribleTurtle/squad-sync/internal/repository/room/inmemory"
	"github.com/TerribleTurtle/squad-sync/internal/service/ratelimit"
	"github.com/TerribleTurtle/squad-sync/internal/service/room"
	"github.com/TerribleTurtle/squad-sync/internal/storage/s3"
	"github.com/TerribleTurtle/squad-sync/pkg/ctxlogger"
	"github.com/TerribleTurtle/squad-sync/pkg/randstr"
	"github.com/TerribleTurtle/squad-sync/pkg/redisclient"
)

type AppConfig struct {
	Host          string        `json:"host"`
	Port          int           `json:"port"`
	LogLevel      string        `json:"log_level"`
	MembersLimit  int           `json:"members_limit"`
	GracePeriod   time.Duration `json:"grace_period"`
	ClipTTL       time.Duration `json:"clip_ttl"`
	UploadURLTTL  time.Duration `json:"upload_url_ttl"`
	RedisHost     string        `json:"redis_host"`
	RedisPort     int           `json:"redis_port"`
	RedisPassword string        `json:"-"`
	S3Region      string        `json:"s3_region"`
	S3Bucket      string        `json:"s3_bucket"`
	S3Endpoint    string        `json:"s3_endpoint"`
	S3PublicURL   string        `json:"s3_public_url"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.MembersLimit < 1 {
		return fmt.Errorf("members limit must be greater than 0")
	}
	if cfg.GracePeriod <= 0 {
		return fmt.Errorf("grace period must be greater than 0")
	}
	if cfg.S3Bucket == "" {
		return fmt.Errorf("s3 bucket must be provided")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	storage, err := s3.NewStorage(&s3.Config{
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		Endpoint:  cfg.S3Endpoint,
		URLTTL:    cfg.UploadURLTTL,
		PublicURL: cfg.S3PublicURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create s3 storage: %w", err)
	}

	clock := clockwork.NewRealClock()

	roomRepo := roomInmemory.NewRepo()
	clipRepo := clipRedis.NewRepo(rc, cfg.ClipTTL, logger)
	connRepo := connInmemory.NewRepo()
	userRepo := connRedis.NewRepo(rc, cfg.ClipTTL, logger)

	roomService := room.NewService(roomRepo, clipRepo, connRepo, userRepo, storage, clock, logger, &room.Config{
		MembersLimit: cfg.MembersLimit,
		GracePeriod:  cfg.GracePeriod,
	})

	limiter := ratelimit.NewLimiter(clock, ratelimit.Config{
		Policies: map[string]ratelimit.Policy{
			"TIME_SYNC_REQUEST": {Max: 10, Window: time.Minute},
			"TRIGGER_CLIP":      {Max: 5, Window: time.Minute},
			"JOIN_ROOM":         {Max: 10, Window: time.Minute},
		},
		Default:       ratelimit.Policy{Max: 20, Window: time.Minute},
		SweepInterval: time.Minute,
	})

	idGen := randstr.New([]byte("abcdefghijklmnopqrstuvwxyz0123456789"))

	controller := controller.NewController(roomService, limiter, clock, idGen, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	go controller.Run(serverCtx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
